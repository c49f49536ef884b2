package scene

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/worldloom/worldloom-backend/internal/types"
	"github.com/worldloom/worldloom-backend/internal/vision"
)

const fallbackColor = "#808080"

// FromAnalysis builds a scene from whichever path the analyzer took: a
// direct object list, or a builder program run through the sandbox.
func FromAnalysis(ctx context.Context, sb *Sandbox, result *vision.AnalysisResult) (*types.Scene, error) {
	if result == nil {
		return nil, fmt.Errorf("scene: nil analysis")
	}
	if len(result.Objects) > 0 {
		return FromObjects(result.Objects)
	}
	if len(result.Program) > 0 {
		return sb.Run(ctx, result.Program)
	}
	return nil, fmt.Errorf("scene: analysis has neither objects nor program")
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var knownTypes = map[string]bool{
	types.ObjectBox:      true,
	types.ObjectSphere:   true,
	types.ObjectCylinder: true,
	types.ObjectPlane:    true,
}

// FromObjects validates a raw analyzer object list into a scene. Unknown
// primitive types are coerced to boxes and bad colors to gray; objects with a
// non-positive scale on any axis are rejected outright since their bounding
// box would be degenerate. An empty surviving set is an error.
func FromObjects(specs []vision.ObjectSpec) (*types.Scene, error) {
	s := &types.Scene{Source: types.SceneSourceAnalysis}
	for _, spec := range specs {
		obj, ok := normalize(spec)
		if !ok {
			continue
		}
		if obj.IsAnimated {
			s.Animated = append(s.Animated, obj)
		} else {
			s.Static = append(s.Static, obj)
		}
	}
	if len(s.Static)+len(s.Animated) == 0 {
		return nil, fmt.Errorf("scene: no valid objects in analysis")
	}
	return s, nil
}

func normalize(spec vision.ObjectSpec) (types.SceneObject, bool) {
	if spec.Scale[0] <= 0 || spec.Scale[1] <= 0 || spec.Scale[2] <= 0 {
		return types.SceneObject{}, false
	}

	objType := strings.ToLower(strings.TrimSpace(spec.Type))
	if !knownTypes[objType] {
		objType = types.ObjectBox
	}

	color := strings.TrimSpace(spec.Color)
	if !colorPattern.MatchString(color) {
		color = fallbackColor
	}

	return types.SceneObject{
		Type:       objType,
		Name:       strings.TrimSpace(spec.Name),
		Position:   types.Vec3{X: spec.Position[0], Y: spec.Position[1], Z: spec.Position[2]},
		Scale:      types.Vec3{X: spec.Scale[0], Y: spec.Scale[1], Z: spec.Scale[2]},
		Color:      strings.ToLower(color),
		IsAnimated: spec.Animated,
	}, true
}
