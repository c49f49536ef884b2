package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/worldloom/worldloom-backend/internal/apierr"
	"github.com/worldloom/worldloom-backend/internal/scene"
	"github.com/worldloom/worldloom-backend/internal/types"
	"github.com/worldloom/worldloom-backend/internal/vision"
)

type stubExtractor struct {
	frames [][]byte
	err    error
}

func (s *stubExtractor) ExtractKeyframes(ctx context.Context, videoPath string, count int) ([][]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.frames, nil
}

type stubAnalyzer struct {
	result *vision.AnalysisResult
	err    error
}

func (s *stubAnalyzer) Mode() string { return types.ModeMock }

func (s *stubAnalyzer) AnalyzeFrames(ctx context.Context, frames [][]byte, prompt string) (*vision.AnalysisResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newReconstructionService(t *testing.T, ex KeyframeExtractor, an vision.Analyzer) *ReconstructionService {
	t.Helper()
	log := testLogger(t)
	return NewReconstructionService(log, testConfig(t), ex, an, scene.NewSandbox(log, 0))
}

func TestGenerateSceneFromAnalysis(t *testing.T) {
	svc := newReconstructionService(t,
		&stubExtractor{frames: [][]byte{{1}, {2}}},
		&stubAnalyzer{result: &vision.AnalysisResult{
			Objects: []vision.ObjectSpec{
				{Type: "plane", Name: "floor", Scale: [3]float64{6, 0.2, 15}},
				{Type: "box", Name: "crate", Position: [3]float64{0, 0.5, 0}, Scale: [3]float64{1, 1, 1}},
			},
		}},
	)

	built := svc.GenerateScene(context.Background(), "clip.gif", "A crate on the floor", 3)
	if built.Source != types.SceneSourceAnalysis {
		t.Fatalf("source = %q", built.Source)
	}
	if len(built.Static) != 2 {
		t.Fatalf("static objects = %d", len(built.Static))
	}
}

func TestGenerateSceneFallbackTotality(t *testing.T) {
	cases := []struct {
		name string
		ex   KeyframeExtractor
		an   vision.Analyzer
	}{
		{
			"extractor failure",
			&stubExtractor{err: errors.New("no such video")},
			&stubAnalyzer{},
		},
		{
			"analyzer failure",
			&stubExtractor{frames: [][]byte{{1}}},
			&stubAnalyzer{err: errors.New("upstream 500")},
		},
		{
			"all objects invalid",
			&stubExtractor{frames: [][]byte{{1}}},
			&stubAnalyzer{result: &vision.AnalysisResult{
				Objects: []vision.ObjectSpec{{Type: "box", Scale: [3]float64{0, 0, 0}}},
			}},
		},
		{
			"malformed program",
			&stubExtractor{frames: [][]byte{{1}}},
			&stubAnalyzer{result: &vision.AnalysisResult{
				Program: json.RawMessage(`[{"op":"launch_missiles"}]`),
			}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newReconstructionService(t, tc.ex, tc.an)
			built := svc.GenerateScene(context.Background(), "clip.gif", "prompt", 3)
			if built == nil {
				t.Fatal("GenerateScene must always return a scene")
			}
			if built.Source != types.SceneSourceCanonical {
				t.Fatalf("source = %q, want canonical fallback", built.Source)
			}
			if len(built.Static) == 0 {
				t.Fatal("fallback scene is empty")
			}
		})
	}
}

func TestGenerateSceneFromProgram(t *testing.T) {
	svc := newReconstructionService(t,
		&stubExtractor{frames: [][]byte{{1}}},
		&stubAnalyzer{result: &vision.AnalysisResult{
			Program: json.RawMessage(`[
				{"op":"add_plane","name":"floor","scale":[6,0.2,15],"color":"#888888"},
				{"op":"add_box","name":"mover","position":[0,0.5,0],"scale":[1,1,1]},
				{"op":"animate","target":"mover"}
			]`),
		}},
	)

	built := svc.GenerateScene(context.Background(), "clip.gif", "prompt", 3)
	if built.Source != types.SceneSourceProgram {
		t.Fatalf("source = %q", built.Source)
	}
	if len(built.Animated) != 1 {
		t.Fatalf("animated objects = %d", len(built.Animated))
	}
}

func TestReconstructWritesSceneAsset(t *testing.T) {
	cfg := testConfig(t)
	log := testLogger(t)
	svc := NewReconstructionService(log, cfg,
		&stubExtractor{frames: [][]byte{{1}}},
		&stubAnalyzer{result: &vision.AnalysisResult{
			Objects: []vision.ObjectSpec{{Type: "box", Name: "a", Scale: [3]float64{1, 1, 1}}},
		}},
		scene.NewSandbox(log, 0),
	)

	videoPath := filepath.Join(cfg.DataRoot, "clip.gif")
	if err := os.WriteFile(videoPath, []byte("gif"), 0o644); err != nil {
		t.Fatal(err)
	}

	assetPath, format, err := svc.Reconstruct(context.Background(), "abcd1234abcd1234", videoPath, 3)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if format != SceneAssetFormat {
		t.Fatalf("format = %q", format)
	}
	if !strings.HasSuffix(assetPath, filepath.Join("reconstructions", "abcd1234abcd1234", "scene.json")) {
		t.Fatalf("asset path = %q", assetPath)
	}

	raw, err := os.ReadFile(assetPath)
	if err != nil {
		t.Fatal(err)
	}
	var loaded types.Scene
	if err := json.Unmarshal(raw, &loaded); err != nil {
		t.Fatalf("asset is not valid scene JSON: %v", err)
	}
	if len(loaded.Static) != 1 {
		t.Fatalf("loaded scene has %d static objects", len(loaded.Static))
	}
}

func TestReconstructMissingVideo(t *testing.T) {
	svc := newReconstructionService(t, &stubExtractor{}, &stubAnalyzer{})
	_, _, err := svc.Reconstruct(context.Background(), "k", "/no/such/clip.gif", 3)
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeNotFound {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestLoadSceneAssetFallsBack(t *testing.T) {
	svc := newReconstructionService(t, &stubExtractor{}, &stubAnalyzer{})

	if got := svc.LoadSceneAsset("/no/such/scene.json"); got.Source != types.SceneSourceCanonical {
		t.Fatalf("missing asset should load canonical, got %q", got.Source)
	}

	bad := filepath.Join(t.TempDir(), "scene.json")
	if err := os.WriteFile(bad, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := svc.LoadSceneAsset(bad); got.Source != types.SceneSourceCanonical {
		t.Fatalf("malformed asset should load canonical, got %q", got.Source)
	}
}

func TestRunAgentMissingAsset(t *testing.T) {
	cfg := testConfig(t)
	recon := newReconstructionService(t, &stubExtractor{}, &stubAnalyzer{})
	agent := NewAgentService(testLogger(t), cfg, recon)

	_, err := agent.RunAgent(context.Background(), "/no/such/scene.json", "A robot walks down a hallway")
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeNotFound {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestRunAgentOnCanonicalScene(t *testing.T) {
	cfg := testConfig(t)
	recon := newReconstructionService(t, &stubExtractor{}, &stubAnalyzer{})
	agent := NewAgentService(testLogger(t), cfg, recon)

	// Malformed asset -> canonical scene; the demo path stays inside the walls.
	assetPath := filepath.Join(t.TempDir(), "scene.json")
	if err := os.WriteFile(assetPath, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	result, err := agent.RunAgent(context.Background(), assetPath, "A robot walks down a hallway")
	if err != nil {
		t.Fatalf("RunAgent: %v", err)
	}
	for _, v := range result.Violations {
		if v.Type == types.ViolationBoundary {
			t.Fatalf("unexpected boundary violation: %+v", v)
		}
	}
	if result.Metrics.PathCompletion != 1.0 {
		t.Fatalf("path completion = %f", result.Metrics.PathCompletion)
	}
	if result.Metrics.Ticks == 0 {
		t.Fatal("no ticks recorded")
	}
	if result.RevisedPrompt == "" || result.Explanation == "" {
		t.Fatalf("revision missing: %+v", result)
	}
}

func TestAnalyzePrompt(t *testing.T) {
	full := AnalyzePrompt("A cinematic robot walks down a hallway")
	if !full.HasSubject || !full.HasAction || !full.HasEnvironment || !full.HasStyle {
		t.Fatalf("complete prompt misclassified: %+v", full)
	}
	if len(full.Suggestions) != 0 {
		t.Fatalf("complete prompt should have no suggestions: %+v", full.Suggestions)
	}

	bare := AnalyzePrompt("cat")
	if bare.HasAction || bare.HasEnvironment || bare.HasStyle {
		t.Fatalf("bare prompt misclassified: %+v", bare)
	}
	if len(bare.Suggestions) < 3 {
		t.Fatalf("bare prompt should draw suggestions: %+v", bare.Suggestions)
	}
}

func TestRelativeURL(t *testing.T) {
	if got := RelativeURL("data", filepath.Join("data", "generations", "k", "take_1.gif")); got != "/data/generations/k/take_1.gif" {
		t.Fatalf("RelativeURL = %q", got)
	}
	if got := RelativeURL("data", "/etc/passwd"); got != "" {
		t.Fatalf("outside path should map to empty, got %q", got)
	}
}
