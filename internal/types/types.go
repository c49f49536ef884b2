package types

import (
	"time"

	"gorm.io/datatypes"
)

// JobStatus is the lifecycle state of a generation job. Transitions are
// monotonic: queued -> in_progress -> completed | failed.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Scores holds the per-dimension quality scores for one take, all in [0,1].
type Scores struct {
	Overall             float64 `json:"overall"`
	IdentityPersistence float64 `json:"identity_persistence"`
	PathRealism         float64 `json:"path_realism"`
	PhysicsPlausibility float64 `json:"physics_plausibility"`
	VisualQuality       float64 `json:"visual_quality"`
	MotionSmoothness    float64 `json:"motion_smoothness"`
	TemporalCoherence   float64 `json:"temporal_coherence"`
}

// Take is one produced video artifact with its scores. Rank 1 is the best
// take for its prompt.
type Take struct {
	TakeID    int    `json:"take_id"`
	VideoPath string `json:"video_path"`
	VideoURL  string `json:"video_url"`
	Scores    Scores `json:"scores"`
	Rank      int    `json:"rank"`
}

// GenerationMode records which collaborator produced a set of takes.
const (
	ModeMock = "mock"
	ModeReal = "real"
)

// CacheEntry is the durable record of a completed generation, keyed by the
// prompt fingerprint. Once written it is never replaced by a different take
// set for the same key.
type CacheEntry struct {
	Key        string         `gorm:"primaryKey;size:16" json:"prompt_key"`
	PromptText string         `gorm:"not null" json:"prompt"`
	Mode       string         `gorm:"not null" json:"mode"`
	Takes      datatypes.JSON `json:"takes"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (CacheEntry) TableName() string { return "cache_entry" }

// Vec3 is a point or extent in scene space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }

// Primitive types a SceneObject may take. Unknown types coming back from
// analysis are coerced to a box.
const (
	ObjectBox      = "box"
	ObjectSphere   = "sphere"
	ObjectCylinder = "cylinder"
	ObjectPlane    = "plane"
)

// SceneObject is one 3D primitive. Scale must be strictly positive on all
// axes so the derived bounding box is never degenerate.
type SceneObject struct {
	Type       string `json:"type"`
	Name       string `json:"name,omitempty"`
	Position   Vec3   `json:"position"`
	Scale      Vec3   `json:"scale"`
	Color      string `json:"color"`
	IsAnimated bool   `json:"is_animated"`
}

// Scene is a reconstructed 3D world, partitioned into static geometry and
// animated objects. Source records how the scene was produced.
type Scene struct {
	Static   []SceneObject `json:"static"`
	Animated []SceneObject `json:"animated"`
	Source   string        `json:"source"`
}

// Scene sources.
const (
	SceneSourceAnalysis  = "analysis"
	SceneSourceProgram   = "program"
	SceneSourceCanonical = "canonical"
)

// Objects returns all scene objects, static first.
func (s *Scene) Objects() []SceneObject {
	out := make([]SceneObject, 0, len(s.Static)+len(s.Animated))
	out = append(out, s.Static...)
	out = append(out, s.Animated...)
	return out
}

// Violation types detected during agent traversal.
const (
	ViolationPhysics           = "PhysicsViolation"
	ViolationBoundary          = "BoundaryViolation"
	ViolationObjectPersistence = "ObjectPersistenceViolation"
	ViolationDepth             = "DepthInconsistencyViolation"
)

// Violation severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Violation is one detected rule breach during a simulation run. Timestamp
// is elapsed simulation time in seconds and always lies within the traversal
// window.
type Violation struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Severity    string  `json:"severity"`
	Location    Vec3    `json:"location"`
	Timestamp   float64 `json:"timestamp"`
}

// Metrics aggregates one simulation run.
type Metrics struct {
	CollisionRate  float64 `json:"collision_rate"`
	PathCompletion float64 `json:"path_completion"`
	PhysicsScore   float64 `json:"physics_score"`
	StabilityScore float64 `json:"stability_score"`
	Ticks          int     `json:"ticks"`
}

// RevisedPrompt is the deterministic textual mutation produced from a prompt
// and the violations observed against it.
type RevisedPrompt struct {
	Text        string `json:"text"`
	Explanation string `json:"explanation"`
}
