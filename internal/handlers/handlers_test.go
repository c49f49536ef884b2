package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/worldloom/worldloom-backend/internal/config"
	"github.com/worldloom/worldloom-backend/internal/handlers"
	"github.com/worldloom/worldloom-backend/internal/logger"
	"github.com/worldloom/worldloom-backend/internal/media"
	"github.com/worldloom/worldloom-backend/internal/middleware"
	"github.com/worldloom/worldloom-backend/internal/promptkey"
	"github.com/worldloom/worldloom-backend/internal/scene"
	"github.com/worldloom/worldloom-backend/internal/server"
	"github.com/worldloom/worldloom-backend/internal/services"
	"github.com/worldloom/worldloom-backend/internal/store"
	"github.com/worldloom/worldloom-backend/internal/types"
	"github.com/worldloom/worldloom-backend/internal/videogen"
	"github.com/worldloom/worldloom-backend/internal/vision"
)

// memCache keeps cache entries in a map with the repo's idempotent create.
type memCache struct {
	mu      sync.Mutex
	entries map[string]types.CacheEntry
}

func (m *memCache) Create(ctx context.Context, key, promptText, mode string, takes []types.Take) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		return nil
	}
	raw, err := json.Marshal(takes)
	if err != nil {
		return err
	}
	m.entries[key] = types.CacheEntry{Key: key, PromptText: promptText, Mode: mode, Takes: raw, CreatedAt: time.Now()}
	return nil
}

func (m *memCache) Get(ctx context.Context, key string) (*types.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (m *memCache) List(ctx context.Context) ([]types.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.CacheEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		out = append(out, entry)
	}
	return out, nil
}

// quickGenerator avoids rendering real frames in router tests.
type quickGenerator struct{}

func (quickGenerator) Mode() string { return types.ModeMock }

func (quickGenerator) GenerateTakes(ctx context.Context, prompt string, n int, outDir string, onProgress videogen.ProgressFunc) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := filepath.Join(outDir, fmt.Sprintf("take_%d.gif", i))
		if err := os.WriteFile(p, []byte("gif"), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("development")
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{
		Mode:         "mock",
		DataRoot:     t.TempDir(),
		NumTakes:     2,
		VideoSeconds: 4,
		FrameCount:   3,
		PollInterval: time.Millisecond,
		MaxPolls:     500,
	}

	jobStore := store.NewJobStore()
	cache := &memCache{entries: map[string]types.CacheEntry{}}
	generationService := services.NewGenerationService(log, cfg, jobStore, cache, nil, quickGenerator{})
	reconstructionService := services.NewReconstructionService(log, cfg,
		media.NewExtractor(log), vision.NewMock(log), scene.NewSandbox(log, 0))
	agentService := services.NewAgentService(log, cfg, reconstructionService)

	router := server.NewRouter(server.RouterConfig{
		DataRoot:              cfg.DataRoot,
		HealthHandler:         handlers.NewHealthHandler(cfg.Mode),
		GenerationHandler:     handlers.NewGenerationHandler(generationService),
		ReconstructionHandler: handlers.NewReconstructionHandler(reconstructionService),
		AgentHandler:          handlers.NewAgentHandler(agentService),
		AnalyzeHandler:        handlers.NewAnalyzeHandler(),
		UploadHandler:         handlers.NewUploadHandler(log, cfg.DataRoot),
		RequestID:             middleware.NewRequestIDMiddleware(log),
	})
	return router, cfg
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var payload map[string]any
	if len(rec.Body.Bytes()) > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("response is not JSON: %v; body=%s", err, rec.Body.String())
		}
	}
	return rec, payload
}

func TestHealthcheck(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, payload := doJSON(t, router, http.MethodGet, "/healthcheck", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload["status"] != "healthy" || payload["mode"] != "mock" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestGenerateValidationAndFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, payload := doJSON(t, router, http.MethodPost, "/api/generate", map[string]any{"prompt": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank prompt status = %d", rec.Code)
	}
	if errObj, ok := payload["error"].(map[string]any); !ok || errObj["code"] != "invalid_request" {
		t.Fatalf("error envelope = %v", payload)
	}

	rec, payload = doJSON(t, router, http.MethodPost, "/api/generate",
		map[string]any{"prompt": "A ball moving left to right", "num_takes": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d body=%v", rec.Code, payload)
	}
	if payload["cached"] != false {
		t.Fatalf("first request cached = %v", payload["cached"])
	}
	takes, ok := payload["takes"].([]any)
	if !ok || len(takes) != 2 {
		t.Fatalf("takes = %v", payload["takes"])
	}

	rec, payload = doJSON(t, router, http.MethodPost, "/api/generate",
		map[string]any{"prompt": "A ball moving left to right", "num_takes": 2})
	if rec.Code != http.StatusOK || payload["cached"] != true {
		t.Fatalf("second request: status=%d cached=%v", rec.Code, payload["cached"])
	}
}

func TestProgressEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/progress/0000000000000000", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown key status = %d", rec.Code)
	}
	if errObj, ok := payload["error"].(map[string]any); !ok || errObj["code"] != "unknown_key" {
		t.Fatalf("error envelope = %v", payload)
	}

	if rec, _ := doJSON(t, router, http.MethodPost, "/api/generate", map[string]any{"prompt": "progress probe"}); rec.Code != http.StatusOK {
		t.Fatalf("seed generation failed: %d", rec.Code)
	}
	key := promptkey.Derive("progress probe")
	rec, payload = doJSON(t, router, http.MethodGet, "/api/progress/"+key, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status = %d", rec.Code)
	}
	if payload["status"] != string(types.JobCompleted) || payload["progress"] != float64(100) {
		t.Fatalf("progress payload = %v", payload)
	}
}

func TestGenerateSceneAlwaysSucceeds(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, payload := doJSON(t, router, http.MethodPost, "/api/generate_scene",
		map[string]any{"video_path": "/no/such/clip.gif", "prompt": "A robot walks down a hallway"})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate_scene must be total, status = %d", rec.Code)
	}
	if payload["source"] != "canonical" {
		t.Fatalf("missing video should fall back to canonical, got %v", payload["source"])
	}
}

func TestRunAgentEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, payload := doJSON(t, router, http.MethodPost, "/api/run_agent",
		map[string]any{"asset_path": "/no/such/scene.json", "prompt": "A robot walks down a hallway"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing asset status = %d", rec.Code)
	}
	if errObj, ok := payload["error"].(map[string]any); !ok || errObj["code"] != "not_found" {
		t.Fatalf("error envelope = %v", payload)
	}

	assetPath := filepath.Join(t.TempDir(), "scene.json")
	if err := os.WriteFile(assetPath, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec, payload = doJSON(t, router, http.MethodPost, "/api/run_agent",
		map[string]any{"asset_path": assetPath, "prompt": "A robot walks down a hallway"})
	if rec.Code != http.StatusOK {
		t.Fatalf("run_agent status = %d body=%v", rec.Code, payload)
	}
	metrics, ok := payload["metrics"].(map[string]any)
	if !ok || metrics["path_completion"] != float64(1) {
		t.Fatalf("metrics = %v", payload["metrics"])
	}
	if payload["revised_prompt"] == "" || payload["explanation"] == "" {
		t.Fatalf("revision fields missing: %v", payload)
	}
}

func TestUploadVideoEndpoint(t *testing.T) {
	router, cfg := newTestRouter(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("video", "../clip one.gif")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("gif")); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload_video", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d body=%s", rec.Code, rec.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	filename, _ := payload["filename"].(string)
	if strings.Contains(filename, "/") || strings.Contains(filename, " ") {
		t.Fatalf("filename not sanitized: %q", filename)
	}
	saved := filepath.Join(cfg.DataRoot, "uploads", filename)
	if _, err := os.Stat(saved); err != nil {
		t.Fatalf("uploaded file missing: %v", err)
	}
	if payload["url"] != "/data/uploads/"+filename {
		t.Fatalf("url = %v", payload["url"])
	}

	// No file part at all.
	rec, payload = doJSON(t, router, http.MethodPost, "/api/upload_video", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing file status = %d", rec.Code)
	}
	if errObj, ok := payload["error"].(map[string]any); !ok || errObj["code"] != "invalid_request" {
		t.Fatalf("error envelope = %v", payload)
	}
}

func TestReconstructMissingVideo(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, payload := doJSON(t, router, http.MethodPost, "/api/reconstruct",
		map[string]any{"prompt_key": "abcd1234abcd1234", "video_path": "/no/such/clip.gif"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d body=%v", rec.Code, payload)
	}
}

func TestAnalyzePromptEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/analyze_prompt", map[string]any{"prompt": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty prompt status = %d", rec.Code)
	}

	rec, payload := doJSON(t, router, http.MethodPost, "/api/analyze_prompt",
		map[string]any{"prompt": "A cinematic robot walks down a hallway"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	analysis, ok := payload["analysis"].(map[string]any)
	if !ok || analysis["has_action"] != true || analysis["has_style"] != true {
		t.Fatalf("analysis = %v", payload["analysis"])
	}
}
