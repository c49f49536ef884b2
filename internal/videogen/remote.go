package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/worldloom/worldloom-backend/internal/logger"
	"github.com/worldloom/worldloom-backend/internal/types"
)

// HTTPError is a non-2xx response from the video service.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	if e.Body == "" {
		return fmt.Sprintf("upstream http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("upstream http error: status=%d body=%s", e.StatusCode, e.Body)
}

// RemoteOptions configures the remote text-to-video client.
type RemoteOptions struct {
	BaseURL      string
	APIKey       string
	Seconds      int
	Size         string
	PollInterval time.Duration
	Timeout      time.Duration
}

// Remote drives a hosted text-to-video service: it creates one job per take,
// polls until terminal, and downloads the finished artifact.
type Remote struct {
	baseURL      string
	apiKey       string
	seconds      int
	size         string
	pollInterval time.Duration
	timeout      time.Duration

	log        *logger.Logger
	httpClient *http.Client
}

func NewRemote(opts RemoteOptions, log *logger.Logger) (*Remote, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("videogen: base_url required")
	}
	if opts.Seconds <= 0 {
		opts.Seconds = 8
	}
	if opts.Size == "" {
		opts.Size = "1280x720"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
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
		baseURL:      baseURL,
		apiKey:       strings.TrimSpace(opts.APIKey),
		seconds:      opts.Seconds,
		size:         opts.Size,
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
		log:          log.With("service", "RemoteGenerator"),
		httpClient:   &http.Client{Transport: tr},
	}, nil
}

// NewRemoteWithHTTPClient is intended for tests; it avoids network access by
// using a custom RoundTripper.
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

type createVideoRequest struct {
	Prompt  string `json:"prompt"`
	Seconds string `json:"seconds"`
	Size    string `json:"size"`
	Seed    int    `json:"seed,omitempty"`
}

type videoJob struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (r *Remote) GenerateTakes(ctx context.Context, prompt string, n int, outDir string, onProgress ProgressFunc) ([]string, error) {
	if n < 1 {
		n = 1
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	paths := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		path := filepath.Join(outDir, fmt.Sprintf("take_%d.mp4", i))
		if err := r.generateOne(ctx, prompt, i, n, path, onProgress); err != nil {
			return nil, fmt.Errorf("take %d: %w", i, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (r *Remote) generateOne(ctx context.Context, prompt string, take, total int, outPath string, onProgress ProgressFunc) error {
	job, err := r.createJob(ctx, prompt, take)
	if err != nil {
		return err
	}
	r.log.Info("Video job created", "job_id", job.ID, "status", job.Status)

	// The service enforces its own deadline; 30x the clip duration bounds
	// the local wait.
	deadline := time.Now().Add(time.Duration(r.seconds*30) * time.Second)
	for job.Status == "queued" || job.Status == "in_progress" {
		if time.Now().After(deadline) {
			return fmt.Errorf("video generation timed out after %ds", r.seconds*30)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
		job, err = r.retrieveJob(ctx, job.ID)
		if err != nil {
			return err
		}
		if onProgress != nil {
			// Each take owns an equal slice of the 10..90 progress band.
			base := 10 + 80*(take-1)/total
			span := 80 / total
			onProgress(types.JobInProgress, base+span*job.Progress/100,
				fmt.Sprintf("Generating take %d/%d: %d%%", take, total, job.Progress))
		}
	}

	if job.Status == "failed" {
		msg := "unknown error"
		if job.Error != nil && job.Error.Message != "" {
			msg = job.Error.Message
		}
		return fmt.Errorf("video generation failed: %s", msg)
	}

	return r.downloadContent(ctx, job.ID, outPath)
}

func (r *Remote) createJob(ctx context.Context, prompt string, seed int) (*videoJob, error) {
	body, _ := json.Marshal(createVideoRequest{
		Prompt:  prompt,
		Seconds: strconv.Itoa(r.seconds),
		Size:    r.size,
		Seed:    seed,
	})
	var job videoJob
	if err := r.doJSON(ctx, http.MethodPost, "/v1/videos", bytes.NewReader(body), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *Remote) retrieveJob(ctx context.Context, id string) (*videoJob, error) {
	var job videoJob
	if err := r.doJSON(ctx, http.MethodGet, "/v1/videos/"+id, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *Remote) downloadContent(ctx context.Context, id, outPath string) error {
	resp, err := r.do(ctx, http.MethodGet, "/v1/videos/"+id+"/content", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("download artifact: %w", err)
	}
	return nil
}

func (r *Remote) doJSON(ctx context.Context, method, path string, body io.Reader, out any) error {
	resp, err := r.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (r *Remote) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		cancel()
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	// The cancel is tied to body consumption by the caller.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	c.cancel()
	return c.ReadCloser.Close()
}
