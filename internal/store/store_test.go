package store

import (
	"sync"
	"testing"

	"github.com/worldloom/worldloom-backend/internal/types"
)

func TestBeginSuppressesDuplicates(t *testing.T) {
	s := NewJobStore()
	if !s.Begin("k1") {
		t.Fatal("first Begin should start a job")
	}
	if s.Begin("k1") {
		t.Fatal("second Begin while in flight should be suppressed")
	}
	if s.CreatedCount() != 1 {
		t.Fatalf("created = %d, want 1", s.CreatedCount())
	}

	s.Fail("k1", "collaborator unreachable")
	if !s.Begin("k1") {
		t.Fatal("Begin after terminal failure should start a fresh job")
	}
	if s.CreatedCount() != 2 {
		t.Fatalf("created = %d, want 2", s.CreatedCount())
	}
}

func TestProgressMonotonic(t *testing.T) {
	s := NewJobStore()
	s.Begin("k1")

	steps := []int{10, 40, 30, 70, 55, 90}
	last := 0
	for _, p := range steps {
		s.Update("k1", types.JobInProgress, p, "working")
		snap, ok := s.Snapshot("k1")
		if !ok {
			t.Fatal("snapshot missing")
		}
		if snap.Progress < last {
			t.Fatalf("progress went backwards: %d after %d", snap.Progress, last)
		}
		last = snap.Progress
	}
	if last != 90 {
		t.Fatalf("final progress = %d, want 90", last)
	}
}

func TestTerminalStatesFreeze(t *testing.T) {
	s := NewJobStore()
	s.Begin("k1")
	s.Complete("k1", "done")

	s.Update("k1", types.JobInProgress, 10, "late update")
	snap, _ := s.Snapshot("k1")
	if snap.Status != types.JobCompleted || snap.Progress != 100 {
		t.Fatalf("terminal job mutated: %+v", snap)
	}

	s.Fail("k1", "late failure")
	snap, _ = s.Snapshot("k1")
	if snap.Status != types.JobCompleted {
		t.Fatalf("completed job moved to %s", snap.Status)
	}
}

func TestSnapshotUnknownKey(t *testing.T) {
	s := NewJobStore()
	if _, ok := s.Snapshot("never"); ok {
		t.Fatal("snapshot for unknown key should report absence")
	}
}

func TestConcurrentBeginSingleJob(t *testing.T) {
	s := NewJobStore()
	var wg sync.WaitGroup
	started := make(chan bool, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- s.Begin("k1")
		}()
	}
	wg.Wait()
	close(started)

	wins := 0
	for ok := range started {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("%d goroutines started a job for the same key, want 1", wins)
	}
}
