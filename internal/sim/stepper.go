package sim

import (
	"context"
	"time"

	"github.com/worldloom/worldloom-backend/internal/types"
)

// Stepper drives a World to completion. With a zero interval it runs the
// whole simulation in a tight batch loop; with a positive interval it paces
// steps on a ticker, the way an animation-frame scheduler would. Each step is
// bounded work and never blocks.
type Stepper struct {
	world    *World
	interval time.Duration
}

func NewStepper(w *World, interval time.Duration) *Stepper {
	return &Stepper{world: w, interval: interval}
}

// Run steps the world until the path completes. The context only gates the
// pacing waits: a completed run is always reported, and batch runs are not
// interruptible.
func (s *Stepper) Run(ctx context.Context) ([]types.Violation, types.Metrics, error) {
	if s.interval <= 0 {
		violations, metrics := s.world.Run()
		return violations, metrics, nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for s.world.Step() {
		select {
		case <-ctx.Done():
			return nil, types.Metrics{}, ctx.Err()
		case <-ticker.C:
		}
	}
	violations, metrics := s.world.Result()
	return violations, metrics, nil
}
