// Package videogen produces video takes for a prompt. Two implementations
// exist: a synthetic local renderer used in mock mode and a remote
// text-to-video service client. The coordinator is identical regardless of
// which one is injected.
package videogen

import (
	"context"

	"github.com/worldloom/worldloom-backend/internal/types"
)

// ProgressFunc receives job progress updates while takes are produced.
type ProgressFunc func(status types.JobStatus, progress int, message string)

// Generator produces n takes for a prompt into outDir and returns the
// artifact paths in take order.
type Generator interface {
	GenerateTakes(ctx context.Context, prompt string, n int, outDir string, onProgress ProgressFunc) ([]string, error)
	Mode() string
}
