package services

import "strings"

// PromptAnalysis is a heuristic completeness check used by the prompt
// authoring UI.
type PromptAnalysis struct {
	Length          int      `json:"length"`
	HasSubject      bool     `json:"has_subject"`
	HasAction       bool     `json:"has_action"`
	HasEnvironment  bool     `json:"has_environment"`
	HasStyle        bool     `json:"has_style"`
	HasQualityTerms bool     `json:"has_quality_terms"`
	Suggestions     []string `json:"suggestions"`
}

var actionVerbs = []string{
	"walk", "run", "jump", "fly", "swim", "drive", "move", "spin",
	"rotate", "explor", "travel", "float", "dance", "fight",
}

var environmentTerms = []string{
	"hallway", "room", "street", "forest", "beach", "city", "space",
	"indoor", "outdoor", "building", "landscape", "scene", "environment",
}

var styleTerms = []string{
	"cinematic", "artistic", "realistic", "cartoon", "anime", "photorealistic",
	"stylized", "abstract", "dramatic", "beautiful", "stunning",
}

var promptQualityTerms = []string{
	"high quality", "detailed", "cinematic", "4k", "8k",
}

// AnalyzePrompt scores a prompt's completeness and suggests what is missing.
func AnalyzePrompt(prompt string) PromptAnalysis {
	lower := strings.ToLower(prompt)
	words := strings.Fields(prompt)

	a := PromptAnalysis{
		Length:          len(words),
		HasSubject:      len(words) > 0,
		HasAction:       containsAny(lower, actionVerbs),
		HasEnvironment:  containsAny(lower, environmentTerms),
		HasStyle:        containsAny(lower, styleTerms),
		HasQualityTerms: containsAny(lower, promptQualityTerms),
		Suggestions:     []string{},
	}

	if !a.HasSubject {
		a.Suggestions = append(a.Suggestions, "Consider adding a clear subject (person, object, character)")
	}
	if !a.HasAction {
		a.Suggestions = append(a.Suggestions, "Consider adding an action or movement")
	}
	if !a.HasEnvironment {
		a.Suggestions = append(a.Suggestions, "Consider describing the environment or setting")
	}
	if !a.HasStyle {
		a.Suggestions = append(a.Suggestions, "Consider adding style descriptors (cinematic, artistic, etc.)")
	}
	if a.Length < 5 {
		a.Suggestions = append(a.Suggestions, "Prompt is quite short; consider adding more details")
	}
	return a
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
