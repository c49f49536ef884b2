// Package scoring rates produced takes across six quality dimensions and a
// weighted overall score. Scores are derived from a digest of the video path
// so repeated scoring of the same artifact is stable.
package scoring

import (
	"crypto/sha256"
	"encoding/binary"
	"os"
	"sort"

	"github.com/worldloom/worldloom-backend/internal/types"
)

var overallWeights = []struct {
	weight float64
	get    func(types.Scores) float64
}{
	{0.25, func(s types.Scores) float64 { return s.IdentityPersistence }},
	{0.20, func(s types.Scores) float64 { return s.PathRealism }},
	{0.20, func(s types.Scores) float64 { return s.PhysicsPlausibility }},
	{0.15, func(s types.Scores) float64 { return s.VisualQuality }},
	{0.10, func(s types.Scores) float64 { return s.MotionSmoothness }},
	{0.10, func(s types.Scores) float64 { return s.TemporalCoherence }},
}

// ScoreTake scores one video artifact. A missing file scores 0.50 on every
// dimension.
func ScoreTake(videoPath string) types.Scores {
	if _, err := os.Stat(videoPath); err != nil {
		return defaultScores()
	}

	h := sha256.Sum256([]byte(videoPath))
	scores := types.Scores{
		IdentityPersistence: scaled(h[:], 0, 0.82, 0.98),
		PathRealism:         scaled(h[:], 1, 0.80, 0.96),
		PhysicsPlausibility: scaled(h[:], 2, 0.75, 0.95),
		VisualQuality:       scaled(h[:], 3, 0.85, 0.99),
		MotionSmoothness:    scaled(h[:], 4, 0.78, 0.97),
		TemporalCoherence:   scaled(h[:], 5, 0.80, 0.98),
	}
	scores.Overall = Overall(scores)
	return scores
}

// Overall computes the weighted overall score from the six dimensions.
func Overall(s types.Scores) float64 {
	sum := 0.0
	for _, w := range overallWeights {
		sum += w.weight * w.get(s)
	}
	return sum
}

// Rank sorts takes by overall score descending and assigns 1-based ranks.
func Rank(takes []types.Take) {
	sort.SliceStable(takes, func(i, j int) bool {
		return takes[i].Scores.Overall > takes[j].Scores.Overall
	})
	for i := range takes {
		takes[i].Rank = i + 1
	}
}

func scaled(digest []byte, slot int, lo, hi float64) float64 {
	u := binary.LittleEndian.Uint32(digest[(slot*4)%28:])
	frac := float64(u%10_000) / 10_000.0
	return lo + frac*(hi-lo)
}

func defaultScores() types.Scores {
	return types.Scores{
		Overall:             0.50,
		IdentityPersistence: 0.50,
		PathRealism:         0.50,
		PhysicsPlausibility: 0.50,
		VisualQuality:       0.50,
		MotionSmoothness:    0.50,
		TemporalCoherence:   0.50,
	}
}
