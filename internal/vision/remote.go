package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/worldloom/worldloom-backend/internal/logger"
	"github.com/worldloom/worldloom-backend/internal/types"
)

const analyzerSystemPrompt = `You are a 3D scene reconstruction assistant. You are given keyframes
from a generated video together with the prompt that produced it. Respond
with a single JSON object and nothing else. The object has either an
"objects" array (each entry: type, name, position [x,y,z], scale [x,y,z],
color as #rrggbb, animated boolean) or a "program" array of builder
operations, plus a short "summary" string.`

// RemoteOptions configures the hosted multimodal analyzer client.
type RemoteOptions struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Remote sends keyframes to a multimodal chat-completions endpoint and
// parses the scene description out of the reply.
type Remote struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	log        *logger.Logger
	httpClient *http.Client
}

func NewRemote(opts RemoteOptions, log *logger.Logger) (*Remote, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("vision: base_url required")
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Remote{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      opts.Model,
		timeout:    opts.Timeout,
		log:        log.With("service", "RemoteVisionAnalyzer"),
		httpClient: &http.Client{Transport: tr},
	}, nil
}

// NewRemoteWithHTTPClient is intended for tests.
func NewRemoteWithHTTPClient(opts RemoteOptions, log *logger.Logger, httpClient *http.Client) (*Remote, error) {
	r, err := NewRemote(opts, log)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		r.httpClient = httpClient
	}
	return r, nil
}

func (r *Remote) Mode() string { return types.ModeReal }

type chatContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (r *Remote) AnalyzeFrames(ctx context.Context, frames [][]byte, prompt string) (*AnalysisResult, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("vision: no frames to analyze")
	}

	parts := []chatContentPart{{
		Type: "text",
		Text: fmt.Sprintf("Original prompt: %q. Reconstruct the scene shown in these %d keyframes.", prompt, len(frames)),
	}}
	for _, frame := range frames {
		url := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame)
		part := chatContentPart{Type: "image_url"}
		part.ImageURL = &struct {
			URL string `json:"url"`
		}{URL: url}
		parts = append(parts, part)
	}

	body, err := json.Marshal(chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: analyzerSystemPrompt},
			{Role: "user", Content: parts},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, r.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("vision upstream: status=%d body=%s", resp.StatusCode, string(raw))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, errors.New("vision upstream returned no choices")
	}

	result, err := parseAnalysis(chat.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	r.log.Info("Vision analysis complete", "objects", len(result.Objects), "has_program", len(result.Program) > 0)
	return result, nil
}

// parseAnalysis tolerates prose around the JSON payload: the model sometimes
// wraps the object in markdown fences or commentary, so we cut from the
// first '{' to the last '}'.
func parseAnalysis(content string) (*AnalysisResult, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("vision reply contains no JSON object")
	}
	var result AnalysisResult
	if err := json.Unmarshal([]byte(content[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}
	if len(result.Objects) == 0 && len(result.Program) == 0 {
		return nil, fmt.Errorf("analysis has neither objects nor program")
	}
	return &result, nil
}
