// Package revision closes the feedback loop: it maps observed violation
// types to deterministic prompt-text mutations. Revision never fails, and
// applying it twice with the same violations changes nothing.
package revision

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/worldloom/worldloom-backend/internal/types"
)

// phrases maps each violation type to the enhancement appended for it.
var phrases = map[string]string{
	types.ViolationPhysics:           "with clear solid boundaries",
	types.ViolationBoundary:          "in a contained environment",
	types.ViolationObjectPersistence: "with consistent object appearance",
	types.ViolationDepth:             "with accurate depth perception",
}

// typeOrder fixes the order phrases are applied in, so output never depends
// on map iteration.
var typeOrder = []string{
	types.ViolationPhysics,
	types.ViolationBoundary,
	types.ViolationObjectPersistence,
	types.ViolationDepth,
}

var qualityTerms = []string{
	"cinematic", "high quality", "detailed", "realistic", "4k", "8k",
	"photorealistic", "professional",
}

const generalEnhancement = "cinematic shot"

// Revise produces a revised prompt from the violations observed against it.
func Revise(prompt string, violations []types.Violation) types.RevisedPrompt {
	text := strings.TrimSpace(prompt)

	if len(violations) == 0 {
		return types.RevisedPrompt{
			Text:        text,
			Explanation: "No issues detected. The prompt was not modified.",
		}
	}

	present := map[string]bool{}
	counts := map[string]int{}
	for _, v := range violations {
		present[v.Type] = true
		counts[v.Type]++
	}

	var added []string
	for _, vt := range typeOrder {
		if !present[vt] {
			continue
		}
		phrase := phrases[vt]
		if phrase == "" || containsFold(text, phrase) {
			continue
		}
		text = appendClause(text, phrase)
		added = append(added, phrase)
	}

	if needsGeneralEnhancement(text) {
		text = appendClause(text, generalEnhancement)
		added = append(added, generalEnhancement)
	}

	text = capitalize(text)

	return types.RevisedPrompt{
		Text:        text,
		Explanation: explain(prompt, text, counts, added),
	}
}

// appendClause joins a phrase onto the prompt, dropping one trailing
// terminator first so the comma reads naturally.
func appendClause(text, phrase string) string {
	text = strings.TrimSpace(text)
	if n := len(text); n > 0 {
		switch text[n-1] {
		case '.', ',', ';':
			text = text[:n-1]
		}
	}
	return text + ", " + phrase
}

func containsFold(text, phrase string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(phrase))
}

// needsGeneralEnhancement adds a style cue to short prompts that carry no
// quality terms of their own.
func needsGeneralEnhancement(text string) bool {
	if len(strings.Fields(text)) >= 30 {
		return false
	}
	lower := strings.ToLower(text)
	for _, term := range qualityTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

func capitalize(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return text
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func explain(original, revised string, counts map[string]int, added []string) string {
	var b strings.Builder
	total := 0
	var parts []string
	for _, vt := range typeOrder {
		if counts[vt] > 0 {
			total += counts[vt]
			parts = append(parts, fmt.Sprintf("%d %s", counts[vt], vt))
		}
	}
	fmt.Fprintf(&b, "Addressed %d issue(s): %s.", total, strings.Join(parts, ", "))
	if len(added) > 0 {
		quoted := make([]string, len(added))
		for i, p := range added {
			quoted[i] = strconv.Quote(p)
		}
		fmt.Fprintf(&b, " Added: %s.", strings.Join(quoted, ", "))
	} else {
		b.WriteString(" All corrective phrases were already present.")
	}
	fmt.Fprintf(&b, " Original: %q. Revised: %q.", strings.TrimSpace(original), revised)
	return b.String()
}
