package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/worldloom/worldloom-backend/internal/apierr"
	"github.com/worldloom/worldloom-backend/internal/config"
	"github.com/worldloom/worldloom-backend/internal/logger"
	"github.com/worldloom/worldloom-backend/internal/promptkey"
	"github.com/worldloom/worldloom-backend/internal/repos"
	"github.com/worldloom/worldloom-backend/internal/scoring"
	"github.com/worldloom/worldloom-backend/internal/store"
	"github.com/worldloom/worldloom-backend/internal/types"
	"github.com/worldloom/worldloom-backend/internal/videogen"
)

// GenerationResult is the payload returned for a generation request, cached
// or fresh.
type GenerationResult struct {
	PromptKey string       `json:"prompt_key"`
	Prompt    string       `json:"prompt"`
	Takes     []types.Take `json:"takes"`
	Cached    bool         `json:"cached"`
	Mode      string       `json:"mode"`
}

// PromptSummary is one row of the cached prompt listing.
type PromptSummary struct {
	PromptKey string    `json:"prompt_key"`
	Prompt    string    `json:"prompt"`
	Mode      string    `json:"mode"`
	TakeCount int       `json:"take_count"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerationService coordinates the prompt-keyed generation flow: cache
// lookup, duplicate suppression, driving a Generator with progress updates,
// scoring, and idempotent persistence.
type GenerationService struct {
	log      *logger.Logger
	cfg      config.Config
	store    *store.JobStore
	cache    repos.CacheEntryRepo
	remote   videogen.Generator // nil in mock-only deployments
	fallback videogen.Generator // synthetic, always present

	pollInterval time.Duration
	maxPolls     int
}

func NewGenerationService(
	log *logger.Logger,
	cfg config.Config,
	jobStore *store.JobStore,
	cache repos.CacheEntryRepo,
	remote videogen.Generator,
	fallback videogen.Generator,
) *GenerationService {
	return &GenerationService{
		log:          log.With("service", "GenerationService"),
		cfg:          cfg,
		store:        jobStore,
		cache:        cache,
		remote:       remote,
		fallback:     fallback,
		pollInterval: cfg.PollInterval,
		maxPolls:     cfg.MaxPolls,
	}
}

// RequestGeneration serves one generation request end to end. A cache hit
// returns immediately; otherwise a job is started and awaited. A duplicate
// request while the key's job is live gets 409 without starting more work.
func (s *GenerationService) RequestGeneration(ctx context.Context, prompt string, numTakes int, useReal bool) (*GenerationResult, error) {
	key := promptkey.Derive(prompt)
	if numTakes < 1 {
		numTakes = s.cfg.NumTakes
	}

	if result, err := s.cachedResult(ctx, key); err != nil {
		return nil, err
	} else if result != nil {
		s.log.Info("Cache hit", "key", key)
		return result, nil
	}

	if !s.store.Begin(key) {
		return nil, apierr.New(http.StatusConflict, apierr.CodeGenerationInProgress,
			fmt.Errorf("generation already in progress for key %s", key))
	}

	// Production continues even if the caller stops waiting; a poll timeout
	// only abandons the local wait.
	go s.produce(context.Background(), key, prompt, numTakes, useReal)

	return s.AwaitCompletion(ctx, key)
}

func (s *GenerationService) cachedResult(ctx context.Context, key string) (*GenerationResult, error) {
	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if entry == nil {
		return nil, nil
	}
	takes, err := repos.DecodeTakes(entry)
	if err != nil {
		return nil, fmt.Errorf("decode cached takes: %w", err)
	}
	return &GenerationResult{
		PromptKey: entry.Key,
		Prompt:    entry.PromptText,
		Takes:     takes,
		Cached:    true,
		Mode:      entry.Mode,
	}, nil
}

func (s *GenerationService) produce(ctx context.Context, key, prompt string, numTakes int, useReal bool) {
	s.store.Update(key, types.JobInProgress, 5, "Starting generation...")

	outDir := GenerationDir(s.cfg.DataRoot, key)
	onProgress := func(status types.JobStatus, progress int, message string) {
		s.store.Update(key, status, progress, message)
	}

	gen := s.fallback
	if useReal && !s.cfg.UseMock() && s.remote != nil {
		gen = s.remote
	}

	mode := gen.Mode()
	paths, err := gen.GenerateTakes(ctx, prompt, numTakes, outDir, onProgress)
	if err != nil && gen != s.fallback {
		// Remote trouble degrades to the synthetic generator rather than
		// failing the whole request.
		s.log.Warn("Remote generation failed, falling back to synthetic", "key", key, "error", err)
		s.store.Update(key, types.JobInProgress, 10, "Remote service unavailable, using local generator...")
		mode = s.fallback.Mode()
		paths, err = s.fallback.GenerateTakes(ctx, prompt, numTakes, outDir, onProgress)
	}
	if err != nil {
		s.log.Error("Generation failed", "key", key, "error", err)
		s.store.Fail(key, fmt.Sprintf("Generation failed: %v", err))
		return
	}

	s.store.Update(key, types.JobInProgress, 92, "Scoring takes...")
	takes := make([]types.Take, 0, len(paths))
	for i, path := range paths {
		takes = append(takes, types.Take{
			TakeID:    i + 1,
			VideoPath: path,
			VideoURL:  RelativeURL(s.cfg.DataRoot, path),
			Scores:    scoring.ScoreTake(path),
		})
	}
	scoring.Rank(takes)

	if err := s.cache.Create(ctx, key, prompt, mode, takes); err != nil {
		s.log.Error("Failed to persist cache entry", "key", key, "error", err)
		s.store.Fail(key, fmt.Sprintf("Failed to persist takes: %v", err))
		return
	}

	s.store.Complete(key, fmt.Sprintf("Generated %d take(s)", len(takes)))
	s.log.Info("Generation complete", "key", key, "takes", len(takes), "mode", mode)
}

// AwaitCompletion watches the job for key until it reaches a terminal state.
// The watcher gives up after maxPolls polls with a 504; the job itself is
// left untouched and keeps running.
func (s *GenerationService) AwaitCompletion(ctx context.Context, key string) (*GenerationResult, error) {
	for poll := 0; poll < s.maxPolls; poll++ {
		snap, ok := s.store.Snapshot(key)
		if !ok {
			return nil, apierr.New(http.StatusNotFound, apierr.CodeUnknownKey,
				fmt.Errorf("no job for key %s", key))
		}
		switch snap.Status {
		case types.JobCompleted:
			result, err := s.cachedResult(ctx, key)
			if err != nil {
				return nil, err
			}
			if result == nil {
				return nil, apierr.New(http.StatusBadGateway, apierr.CodeGenerationFailed,
					fmt.Errorf("job completed but no cache entry for key %s", key))
			}
			result.Cached = false
			return result, nil
		case types.JobFailed:
			return nil, apierr.New(http.StatusBadGateway, apierr.CodeGenerationFailed,
				fmt.Errorf("%s", snap.Message))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
	return nil, apierr.New(http.StatusGatewayTimeout, apierr.CodePollTimeout,
		fmt.Errorf("generation did not finish within %d polls", s.maxPolls))
}

// GetProgress is the read side of the job state machine. It never blocks on
// production work.
func (s *GenerationService) GetProgress(key string) (store.Snapshot, error) {
	snap, ok := s.store.Snapshot(key)
	if !ok {
		return store.Snapshot{}, apierr.New(http.StatusNotFound, apierr.CodeUnknownKey,
			fmt.Errorf("unknown prompt key %s", key))
	}
	return snap, nil
}

// ListCachedPrompts returns summaries of every completed generation.
func (s *GenerationService) ListCachedPrompts(ctx context.Context) ([]PromptSummary, error) {
	entries, err := s.cache.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cache: %w", err)
	}
	out := make([]PromptSummary, 0, len(entries))
	for i := range entries {
		takes, err := repos.DecodeTakes(&entries[i])
		if err != nil {
			s.log.Warn("Skipping undecodable cache entry", "key", entries[i].Key, "error", err)
			continue
		}
		out = append(out, PromptSummary{
			PromptKey: entries[i].Key,
			Prompt:    entries[i].PromptText,
			Mode:      entries[i].Mode,
			TakeCount: len(takes),
			CreatedAt: entries[i].CreatedAt,
		})
	}
	return out, nil
}
