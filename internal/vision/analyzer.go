// Package vision turns keyframes from a generated video into a structured
// description of the 3D scene they show. The analyzer returns either a flat
// object list or a builder program; the scene package decides which path to
// take from there.
package vision

import (
	"context"
	"encoding/json"
)

// ObjectSpec is one object reported by the analyzer. Fields are raw and
// untrusted until scene validation accepts them.
type ObjectSpec struct {
	Type     string     `json:"type"`
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Scale    [3]float64 `json:"scale"`
	Color    string     `json:"color"`
	Animated bool       `json:"animated"`
}

// AnalysisResult carries what the analyzer saw. Exactly one of Objects or
// Program is expected to be populated; Program is a builder op list that the
// scene sandbox interprets.
type AnalysisResult struct {
	Objects []ObjectSpec    `json:"objects,omitempty"`
	Program json.RawMessage `json:"program,omitempty"`
	Summary string          `json:"summary,omitempty"`
}

// Analyzer inspects keyframes against the prompt that produced them.
type Analyzer interface {
	AnalyzeFrames(ctx context.Context, frames [][]byte, prompt string) (*AnalysisResult, error)
	Mode() string
}
