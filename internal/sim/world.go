// Package sim walks a scripted agent through a reconstructed scene and
// reports bounding-box violations and run metrics. The simulation is fully
// deterministic: no randomness and no wall-clock reads inside the step.
package sim

import (
	"fmt"
	"math"

	"github.com/worldloom/worldloom-backend/internal/types"
)

const (
	defaultDt    = 1.0 / 60.0
	defaultSpeed = 1.5

	agentWidth  = 0.5
	agentHeight = 1.8
	agentDepth  = 0.5

	overlapTolerance = 0.05
)

// Severity weights used by the physics score.
var severityWeights = map[string]float64{
	types.SeverityHigh:   0.3,
	types.SeverityMedium: 0.15,
	types.SeverityLow:    0.05,
}

// Bounds is the declared walkable boundary of a scene.
type Bounds struct {
	MinX, MaxX float64
	MinZ, MaxZ float64
}

// HallBounds matches the canonical hallway walls.
var HallBounds = Bounds{MinX: -3, MaxX: 3, MinZ: -7.5, MaxZ: 7.5}

func (b Bounds) contains(p types.Vec3) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Z >= b.MinZ && p.Z <= b.MaxZ
}

type aabb struct {
	min, max types.Vec3
}

func boxAround(pos, scale types.Vec3) aabb {
	half := scale.Scale(0.5)
	return aabb{min: pos.Sub(half), max: pos.Add(half)}
}

func (a aabb) intersects(b aabb) bool {
	return a.min.X < b.max.X && a.max.X > b.min.X &&
		a.min.Y < b.max.Y && a.max.Y > b.min.Y &&
		a.min.Z < b.max.Z && a.max.Z > b.min.Z
}

// penetration is the smallest axis overlap, the distance one box must move
// to separate from the other.
func (a aabb) penetration(b aabb) float64 {
	dx := math.Min(a.max.X, b.max.X) - math.Max(a.min.X, b.min.X)
	dy := math.Min(a.max.Y, b.max.Y) - math.Max(a.min.Y, b.min.Y)
	dz := math.Min(a.max.Z, b.max.Z) - math.Max(a.min.Z, b.min.Z)
	return math.Min(dx, math.Min(dy, dz))
}

// Options tunes the world; zero values take the defaults above.
type Options struct {
	Dt     float64
	Speed  float64
	Bounds *Bounds
}

// World advances an agent along a fixed path through a scene, accumulating
// violations as contact episodes. A run always completes the path: there is
// no mid-run cancellation.
type World struct {
	objects  []types.SceneObject
	animated []int // indices into objects
	boxes    []aabb
	path     []types.Vec3
	lengths  []float64
	total    float64
	bounds   Bounds
	dt       float64
	speed    float64

	traveled float64
	elapsed  float64
	ticks    int
	done     bool

	agentContact  map[int]bool
	pairContact   map[[2]int]bool
	depthContact  map[int]bool
	boundaryOpen  bool
	violations    []types.Violation
	severityTotal float64
}

// DefaultPath is the 7-waypoint demo route weaving down the hallway. It
// stays inside HallBounds for its entire length.
func DefaultPath() []types.Vec3 {
	return []types.Vec3{
		{X: 0, Y: 0.9, Z: 6.3},
		{X: -1.5, Y: 0.9, Z: 4.5},
		{X: 1.5, Y: 0.9, Z: 2.0},
		{X: -1.2, Y: 0.9, Z: -0.5},
		{X: 1.2, Y: 0.9, Z: -3.0},
		{X: -1.0, Y: 0.9, Z: -5.5},
		{X: 0, Y: 0.9, Z: -6.8},
	}
}

func NewWorld(s *types.Scene, path []types.Vec3, opts Options) *World {
	if len(path) < 2 {
		path = DefaultPath()
	}
	if opts.Dt <= 0 {
		opts.Dt = defaultDt
	}
	if opts.Speed <= 0 {
		opts.Speed = defaultSpeed
	}
	bounds := HallBounds
	if opts.Bounds != nil {
		bounds = *opts.Bounds
	}

	w := &World{
		path:         path,
		bounds:       bounds,
		dt:           opts.Dt,
		speed:        opts.Speed,
		agentContact: map[int]bool{},
		pairContact:  map[[2]int]bool{},
		depthContact: map[int]bool{},
	}

	staticOffset := len(s.Static)
	w.objects = s.Objects()
	for i, obj := range w.objects {
		w.boxes = append(w.boxes, boxAround(obj.Position, obj.Scale))
		if i >= staticOffset || obj.IsAnimated {
			w.animated = append(w.animated, i)
		}
	}

	for i := 0; i < len(path)-1; i++ {
		d := path[i+1].Sub(path[i])
		l := math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
		w.lengths = append(w.lengths, l)
		w.total += l
	}
	return w
}

// Step advances one tick. It returns false once the agent has reached the
// final waypoint and the run is complete.
func (w *World) Step() bool {
	if w.done {
		return false
	}

	w.traveled += w.speed * w.dt
	if w.traveled >= w.total {
		w.traveled = w.total
		w.done = true
	}
	w.ticks++
	w.elapsed += w.dt

	pos := w.pointAt(w.traveled)
	agent := boxAround(pos, types.Vec3{X: agentWidth, Y: agentHeight, Z: agentDepth})

	w.checkBoundary(pos)
	w.checkAgentContacts(pos, agent)
	w.checkAnimatedPairs()
	w.checkDepth()

	return !w.done
}

// Run drives the world to completion in a tight loop.
func (w *World) Run() ([]types.Violation, types.Metrics) {
	for w.Step() {
	}
	return w.Result()
}

// Result reports the accumulated violations and metrics so far.
func (w *World) Result() ([]types.Violation, types.Metrics) {
	m := types.Metrics{
		PathCompletion: 1.0,
		PhysicsScore:   math.Max(0, 1-w.severityTotal),
		StabilityScore: math.Max(0.5, 1-0.1*float64(len(w.violations))),
		Ticks:          w.ticks,
	}
	if w.ticks > 0 {
		m.CollisionRate = float64(len(w.violations)) / float64(w.ticks)
	}
	return w.violations, m
}

func (w *World) pointAt(dist float64) types.Vec3 {
	for i, l := range w.lengths {
		if dist <= l || i == len(w.lengths)-1 {
			if l == 0 {
				return w.path[i]
			}
			t := dist / l
			if t > 1 {
				t = 1
			}
			return w.path[i].Add(w.path[i+1].Sub(w.path[i]).Scale(t))
		}
		dist -= l
	}
	return w.path[len(w.path)-1]
}

func (w *World) checkBoundary(pos types.Vec3) {
	outside := !w.bounds.contains(pos)
	if outside && !w.boundaryOpen {
		w.addViolation(types.Violation{
			Type:        types.ViolationBoundary,
			Description: "agent left the declared scene boundary",
			Severity:    types.SeverityHigh,
			Location:    pos,
			Timestamp:   w.elapsed,
		})
	}
	w.boundaryOpen = outside
}

func (w *World) checkAgentContacts(pos types.Vec3, agent aabb) {
	for i, obj := range w.objects {
		// Planes are walkable surfaces, not solid obstacles.
		if obj.Type == types.ObjectPlane {
			continue
		}
		box := w.boxes[i]
		hit := agent.intersects(box)
		var pen float64
		if hit {
			pen = agent.penetration(box)
		}
		active := hit && pen > overlapTolerance
		if active && !w.agentContact[i] {
			w.addViolation(types.Violation{
				Type:        types.ViolationPhysics,
				Description: fmt.Sprintf("agent intersects %s (depth %.2f)", objectLabel(obj, i), pen),
				Severity:    severityFor(pen, obj.Scale),
				Location:    pos,
				Timestamp:   w.elapsed,
			})
		}
		w.agentContact[i] = active
	}
}

func (w *World) checkAnimatedPairs() {
	for ai := 0; ai < len(w.animated); ai++ {
		for bi := ai + 1; bi < len(w.animated); bi++ {
			i, j := w.animated[ai], w.animated[bi]
			key := [2]int{i, j}
			hit := w.boxes[i].intersects(w.boxes[j])
			var pen float64
			if hit {
				pen = w.boxes[i].penetration(w.boxes[j])
			}
			active := hit && pen > overlapTolerance
			if active && !w.pairContact[key] {
				w.addViolation(types.Violation{
					Type: types.ViolationObjectPersistence,
					Description: fmt.Sprintf("%s and %s occupy the same space",
						objectLabel(w.objects[i], i), objectLabel(w.objects[j], j)),
					Severity:  severityFor(pen, w.objects[i].Scale),
					Location:  w.objects[i].Position,
					Timestamp: w.elapsed,
				})
			}
			w.pairContact[key] = active
		}
	}
}

func (w *World) checkDepth() {
	for _, i := range w.animated {
		sunk := w.boxes[i].min.Y < -overlapTolerance
		if sunk && !w.depthContact[i] {
			w.addViolation(types.Violation{
				Type:        types.ViolationDepth,
				Description: fmt.Sprintf("%s sinks below the ground plane", objectLabel(w.objects[i], i)),
				Severity:    types.SeverityMedium,
				Location:    w.objects[i].Position,
				Timestamp:   w.elapsed,
			})
		}
		w.depthContact[i] = sunk
	}
}

func (w *World) addViolation(v types.Violation) {
	w.violations = append(w.violations, v)
	w.severityTotal += severityWeights[v.Severity]
}

func severityFor(penetration float64, scale types.Vec3) string {
	minDim := math.Min(scale.X, math.Min(scale.Y, scale.Z))
	if minDim <= 0 {
		return types.SeverityHigh
	}
	ratio := penetration / minDim
	switch {
	case ratio > 0.5:
		return types.SeverityHigh
	case ratio > 0.2:
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}

func objectLabel(obj types.SceneObject, idx int) string {
	if obj.Name != "" {
		return obj.Name
	}
	return fmt.Sprintf("%s_%d", obj.Type, idx)
}
