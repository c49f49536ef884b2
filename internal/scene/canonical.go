// Package scene turns vision analysis output into a validated 3D scene. Three
// paths produce a scene: direct object validation, a sandboxed builder
// program, and the canonical fallback used when both of those fail.
package scene

import "github.com/worldloom/worldloom-backend/internal/types"

// Hallway extents shared with the simulation: the floor spans x in [-3,3]
// and z in [-7.5,7.5].
const (
	HallWidth  = 6.0
	HallLength = 15.0
	WallHeight = 2.5
)

// Canonical returns the fixed demo hallway. It is total: it cannot fail, so
// reconstruction always has a scene to fall back to.
func Canonical() *types.Scene {
	static := []types.SceneObject{
		{Type: types.ObjectPlane, Name: "floor", Position: types.Vec3{X: 0, Y: 0, Z: 0}, Scale: types.Vec3{X: HallWidth, Y: 0.2, Z: HallLength}, Color: "#8a8a8a"},
		{Type: types.ObjectBox, Name: "wall_left", Position: types.Vec3{X: -HallWidth / 2, Y: WallHeight / 2, Z: 0}, Scale: types.Vec3{X: 0.2, Y: WallHeight, Z: HallLength}, Color: "#b0b0b0"},
		{Type: types.ObjectBox, Name: "wall_right", Position: types.Vec3{X: HallWidth / 2, Y: WallHeight / 2, Z: 0}, Scale: types.Vec3{X: 0.2, Y: WallHeight, Z: HallLength}, Color: "#b0b0b0"},
		{Type: types.ObjectBox, Name: "wall_back", Position: types.Vec3{X: 0, Y: WallHeight / 2, Z: -HallLength / 2}, Scale: types.Vec3{X: HallWidth, Y: WallHeight, Z: 0.2}, Color: "#9a9a9a"},

		{Type: types.ObjectBox, Name: "crate_1", Position: types.Vec3{X: -1.8, Y: 0.4, Z: -5.0}, Scale: types.Vec3{X: 0.8, Y: 0.8, Z: 0.8}, Color: "#aa6633"},
		{Type: types.ObjectBox, Name: "crate_2", Position: types.Vec3{X: 1.9, Y: 0.3, Z: -2.5}, Scale: types.Vec3{X: 0.6, Y: 0.6, Z: 0.6}, Color: "#996644"},
		{Type: types.ObjectSphere, Name: "orb_1", Position: types.Vec3{X: -1.5, Y: 0.35, Z: 1.0}, Scale: types.Vec3{X: 0.7, Y: 0.7, Z: 0.7}, Color: "#3366cc"},
		{Type: types.ObjectSphere, Name: "orb_2", Position: types.Vec3{X: 2.0, Y: 0.25, Z: 3.5}, Scale: types.Vec3{X: 0.5, Y: 0.5, Z: 0.5}, Color: "#cc3366"},
		{Type: types.ObjectCylinder, Name: "pillar_1", Position: types.Vec3{X: -2.2, Y: 1.0, Z: 5.5}, Scale: types.Vec3{X: 0.4, Y: 2.0, Z: 0.4}, Color: "#888899"},
		{Type: types.ObjectBox, Name: "bench", Position: types.Vec3{X: 1.2, Y: 0.25, Z: 6.0}, Scale: types.Vec3{X: 1.2, Y: 0.5, Z: 0.4}, Color: "#775533"},
	}

	// An articulated walking figure: torso, head, and limbs that move
	// together.
	animated := []types.SceneObject{
		{Type: types.ObjectBox, Name: "figure_torso", Position: types.Vec3{X: 0, Y: 1.1, Z: 6.8}, Scale: types.Vec3{X: 0.4, Y: 0.6, Z: 0.25}, Color: "#d08040", IsAnimated: true},
		{Type: types.ObjectSphere, Name: "figure_head", Position: types.Vec3{X: 0, Y: 1.55, Z: 6.8}, Scale: types.Vec3{X: 0.25, Y: 0.25, Z: 0.25}, Color: "#e0a060", IsAnimated: true},
		{Type: types.ObjectBox, Name: "figure_leg_l", Position: types.Vec3{X: -0.1, Y: 0.4, Z: 6.8}, Scale: types.Vec3{X: 0.15, Y: 0.8, Z: 0.15}, Color: "#404060", IsAnimated: true},
		{Type: types.ObjectBox, Name: "figure_leg_r", Position: types.Vec3{X: 0.1, Y: 0.4, Z: 6.8}, Scale: types.Vec3{X: 0.15, Y: 0.8, Z: 0.15}, Color: "#404060", IsAnimated: true},
	}

	return &types.Scene{
		Static:   static,
		Animated: animated,
		Source:   types.SceneSourceCanonical,
	}
}
