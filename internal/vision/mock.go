package vision

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/worldloom/worldloom-backend/internal/logger"
	"github.com/worldloom/worldloom-backend/internal/types"
)

var motionVerbs = []string{
	"walk", "run", "move", "roll", "bounce", "fly", "jump", "dance",
	"slide", "spin", "drive", "swim", "fall",
}

// Mock is a deterministic analyzer for offline development: it fabricates a
// hallway-style object list seeded by the prompt text. The same prompt and
// frame count always yield the same result.
type Mock struct {
	log *logger.Logger
}

func NewMock(log *logger.Logger) *Mock {
	return &Mock{log: log.With("service", "MockVisionAnalyzer")}
}

func (m *Mock) Mode() string { return types.ModeMock }

func (m *Mock) AnalyzeFrames(ctx context.Context, frames [][]byte, prompt string) (*AnalysisResult, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("vision: no frames to analyze")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	seed := sha256.Sum256([]byte(strings.TrimSpace(prompt)))
	pick := func(slot int, n uint32) uint32 {
		return binary.LittleEndian.Uint32(seed[(slot*4)%28:]) % n
	}

	objects := []ObjectSpec{
		{Type: "plane", Name: "floor", Position: [3]float64{0, 0, 0}, Scale: [3]float64{6, 0.2, 15}, Color: "#8a8a8a"},
		{Type: "box", Name: "wall_left", Position: [3]float64{-3, 1.25, 0}, Scale: [3]float64{0.2, 2.5, 15}, Color: "#b0b0b0"},
		{Type: "box", Name: "wall_right", Position: [3]float64{3, 1.25, 0}, Scale: [3]float64{0.2, 2.5, 15}, Color: "#b0b0b0"},
		{Type: "box", Name: "wall_back", Position: [3]float64{0, 1.25, -7.5}, Scale: [3]float64{6, 2.5, 0.2}, Color: "#9a9a9a"},
	}

	// A handful of prompt-seeded props inside the hallway.
	props := 2 + int(pick(0, 3))
	for i := 0; i < props; i++ {
		kind := "box"
		if pick(i+1, 2) == 1 {
			kind = "sphere"
		}
		x := -2.0 + 4.0*float64(pick(i+2, 1000))/1000.0
		z := -6.0 + 12.0*float64(pick(i+3, 1000))/1000.0
		size := 0.3 + 0.5*float64(pick(i+4, 1000))/1000.0
		hue := pick(i+5, 360)
		objects = append(objects, ObjectSpec{
			Type:     kind,
			Name:     fmt.Sprintf("prop_%d", i+1),
			Position: [3]float64{x, size / 2, z},
			Scale:    [3]float64{size, size, size},
			Color:    fmt.Sprintf("#%02x%02x80", 100+hue%156, 80+hue%120),
		})
	}

	if hasMotionVerb(prompt) {
		objects = append(objects, ObjectSpec{
			Type:     "box",
			Name:     "figure",
			Position: [3]float64{0, 0.9, 6.5},
			Scale:    [3]float64{0.5, 1.8, 0.5},
			Color:    "#d08040",
			Animated: true,
		})
	}

	m.log.Debug("Mock analysis produced objects", "count", len(objects), "frames", len(frames))
	return &AnalysisResult{
		Objects: objects,
		Summary: fmt.Sprintf("Detected %d objects across %d keyframes", len(objects), len(frames)),
	}, nil
}

func hasMotionVerb(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, verb := range motionVerbs {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}
