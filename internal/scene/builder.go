package scene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/worldloom/worldloom-backend/internal/logger"
	"github.com/worldloom/worldloom-backend/internal/types"
	"github.com/worldloom/worldloom-backend/internal/vision"
)

// ErrSandbox marks any failure of an untrusted builder program: bad ops,
// exhausted budgets, timeouts, or panics inside the interpreter. Callers fall
// back to the canonical scene on it.
var ErrSandbox = errors.New("scene: builder program rejected")

const (
	defaultBudget = 2 * time.Second
	maxOps        = 256
	maxDepth      = 8
)

// Op is one instruction in a builder program. Programs are pure data: there
// is no scripting, only nested op lists interpreted against the builder.
type Op struct {
	Op       string     `json:"op"`
	Name     string     `json:"name,omitempty"`
	Position [3]float64 `json:"position,omitempty"`
	Scale    [3]float64 `json:"scale,omitempty"`
	Color    string     `json:"color,omitempty"`
	Target   string     `json:"target,omitempty"`
	Children []Op       `json:"children,omitempty"`
}

// Sandbox interprets analyzer-supplied builder programs under hard limits:
// at most 256 ops, nesting depth 8, and a wall-clock budget.
type Sandbox struct {
	log    *logger.Logger
	budget time.Duration
}

func NewSandbox(log *logger.Logger, budget time.Duration) *Sandbox {
	if budget <= 0 {
		budget = defaultBudget
	}
	return &Sandbox{log: log.With("service", "SceneSandbox"), budget: budget}
}

// Run executes a program and returns the scene it built. Every failure mode
// wraps ErrSandbox.
func (s *Sandbox) Run(ctx context.Context, program json.RawMessage) (*types.Scene, error) {
	var ops []Op
	if err := json.Unmarshal(program, &ops); err != nil {
		return nil, fmt.Errorf("%w: parse program: %v", ErrSandbox, err)
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: empty program", ErrSandbox)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	type outcome struct {
		scene *types.Scene
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: interpreter panic: %v", ErrSandbox, r)}
			}
		}()
		b := &builder{ctx: runCtx}
		if err := b.run(ops, [3]float64{}, 0); err != nil {
			done <- outcome{err: err}
			return
		}
		scene, err := b.scene()
		done <- outcome{scene: scene, err: err}
	}()

	select {
	case <-runCtx.Done():
		return nil, fmt.Errorf("%w: %v", ErrSandbox, runCtx.Err())
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		s.log.Info("Builder program accepted", "objects", len(out.scene.Static)+len(out.scene.Animated))
		return out.scene, nil
	}
}

// builder is the capability surface a program runs against. It can only
// append primitives and flip animation flags; it has no access to the
// filesystem, network, or anything outside its own object list.
type builder struct {
	ctx     context.Context
	specs   []vision.ObjectSpec
	opCount int
}

func (b *builder) run(ops []Op, offset [3]float64, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: nesting depth exceeds %d", ErrSandbox, maxDepth)
	}
	for _, op := range ops {
		select {
		case <-b.ctx.Done():
			return fmt.Errorf("%w: %v", ErrSandbox, b.ctx.Err())
		default:
		}
		b.opCount++
		if b.opCount > maxOps {
			return fmt.Errorf("%w: program exceeds %d ops", ErrSandbox, maxOps)
		}

		switch op.Op {
		case "add_box", "add_sphere", "add_cylinder", "add_plane":
			b.specs = append(b.specs, vision.ObjectSpec{
				Type: op.Op[len("add_"):],
				Name: op.Name,
				Position: [3]float64{
					op.Position[0] + offset[0],
					op.Position[1] + offset[1],
					op.Position[2] + offset[2],
				},
				Scale: op.Scale,
				Color: op.Color,
			})
		case "group":
			childOffset := [3]float64{
				op.Position[0] + offset[0],
				op.Position[1] + offset[1],
				op.Position[2] + offset[2],
			}
			if err := b.run(op.Children, childOffset, depth+1); err != nil {
				return err
			}
		case "set_color":
			if err := b.setColor(op.Target, op.Color); err != nil {
				return err
			}
		case "animate":
			if err := b.animate(op.Target); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown op %q", ErrSandbox, op.Op)
		}
	}
	return nil
}

func (b *builder) setColor(target, color string) error {
	if target == "" {
		return fmt.Errorf("%w: set_color requires a target", ErrSandbox)
	}
	found := false
	for i := range b.specs {
		if b.specs[i].Name == target {
			b.specs[i].Color = color
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: set_color target %q not found", ErrSandbox, target)
	}
	return nil
}

func (b *builder) animate(target string) error {
	if target == "" {
		return fmt.Errorf("%w: animate requires a target", ErrSandbox)
	}
	found := false
	for i := range b.specs {
		if b.specs[i].Name == target {
			b.specs[i].Animated = true
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: animate target %q not found", ErrSandbox, target)
	}
	return nil
}

func (b *builder) scene() (*types.Scene, error) {
	s, err := FromObjects(b.specs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSandbox, err)
	}
	s.Source = types.SceneSourceProgram
	return s, nil
}
