package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/worldloom/worldloom-backend/internal/apierr"
	"github.com/worldloom/worldloom-backend/internal/config"
	"github.com/worldloom/worldloom-backend/internal/logger"
	"github.com/worldloom/worldloom-backend/internal/scene"
	"github.com/worldloom/worldloom-backend/internal/types"
	"github.com/worldloom/worldloom-backend/internal/vision"
)

// SceneAssetFormat is the structured scene format written by Reconstruct.
const SceneAssetFormat = "scene.json"

// KeyframeExtractor pulls JPEG keyframes out of a video artifact.
type KeyframeExtractor interface {
	ExtractKeyframes(ctx context.Context, videoPath string, count int) ([][]byte, error)
}

// ReconstructionService turns a generated video into a 3D scene. Its core
// contract is fallback totality: no matter what fails along the way, the
// caller always receives a usable scene.
type ReconstructionService struct {
	log      *logger.Logger
	cfg      config.Config
	frames   KeyframeExtractor
	analyzer vision.Analyzer
	sandbox  *scene.Sandbox
}

func NewReconstructionService(
	log *logger.Logger,
	cfg config.Config,
	frames KeyframeExtractor,
	analyzer vision.Analyzer,
	sandbox *scene.Sandbox,
) *ReconstructionService {
	return &ReconstructionService{
		log:      log.With("service", "ReconstructionService"),
		cfg:      cfg,
		frames:   frames,
		analyzer: analyzer,
		sandbox:  sandbox,
	}
}

// GenerateScene reconstructs a scene from a video and the prompt that
// produced it. It never returns an error: any failure in extraction,
// analysis, validation, or the sandbox is absorbed into the canonical scene.
func (s *ReconstructionService) GenerateScene(ctx context.Context, videoPath, prompt string, frameCount int) *types.Scene {
	if frameCount <= 0 {
		frameCount = s.cfg.FrameCount
	}

	frames, err := s.frames.ExtractKeyframes(ctx, videoPath, frameCount)
	if err != nil {
		s.log.Warn("Keyframe extraction failed, using canonical scene", "video", videoPath, "error", err)
		return scene.Canonical()
	}

	result, err := s.analyzer.AnalyzeFrames(ctx, frames, prompt)
	if err != nil {
		s.log.Warn("Vision analysis failed, using canonical scene", "error", err)
		return scene.Canonical()
	}

	built, err := scene.FromAnalysis(ctx, s.sandbox, result)
	if err != nil {
		s.log.Warn("Scene construction failed, using canonical scene", "error", err)
		return scene.Canonical()
	}

	s.log.Info("Scene reconstructed", "source", built.Source,
		"static", len(built.Static), "animated", len(built.Animated))
	return built
}

// Reconstruct builds the scene for a take and writes it as the key's scene
// asset, replacing any prior one. The video must exist; the scene build
// itself cannot fail.
func (s *ReconstructionService) Reconstruct(ctx context.Context, key, videoPath string, frameCount int) (string, string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return "", "", apierr.New(http.StatusNotFound, apierr.CodeNotFound,
			fmt.Errorf("video not found: %s", videoPath))
	}

	built := s.GenerateScene(ctx, videoPath, "", frameCount)

	dir := ReconstructionDir(s.cfg.DataRoot, key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create reconstruction dir: %w", err)
	}
	raw, err := json.MarshalIndent(built, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode scene: %w", err)
	}
	assetPath := filepath.Join(dir, SceneAssetFormat)
	if err := os.WriteFile(assetPath, raw, 0o644); err != nil {
		return "", "", fmt.Errorf("write scene asset: %w", err)
	}

	s.log.Info("Scene asset written", "key", key, "path", assetPath)
	return assetPath, SceneAssetFormat, nil
}

// LoadSceneAsset reads a previously written scene asset. A missing or
// unreadable asset yields the canonical scene, keeping downstream consumers
// total.
func (s *ReconstructionService) LoadSceneAsset(assetPath string) *types.Scene {
	raw, err := os.ReadFile(assetPath)
	if err != nil {
		s.log.Warn("Scene asset unavailable, using canonical scene", "path", assetPath, "error", err)
		return scene.Canonical()
	}
	var built types.Scene
	if err := json.Unmarshal(raw, &built); err != nil {
		s.log.Warn("Scene asset malformed, using canonical scene", "path", assetPath, "error", err)
		return scene.Canonical()
	}
	if len(built.Static)+len(built.Animated) == 0 {
		return scene.Canonical()
	}
	return &built
}
