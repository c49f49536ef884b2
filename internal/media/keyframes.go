// Package media extracts keyframes from rendered video artifacts so the
// vision analyzer can inspect what was actually generated.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/worldloom/worldloom-backend/internal/logger"
)

const (
	minKeyframes = 2
	maxKeyframes = 10
)

// Extractor pulls evenly-spaced JPEG keyframes out of a video file. GIF
// artifacts produced by the synthetic generator are decoded in-process;
// everything else goes through ffmpeg.
type Extractor struct {
	log        *logger.Logger
	ffmpegPath string
	timeout    time.Duration
}

func NewExtractor(log *logger.Logger) *Extractor {
	return &Extractor{
		log:        log.With("service", "KeyframeExtractor"),
		ffmpegPath: "ffmpeg",
		timeout:    60 * time.Second,
	}
}

// ExtractKeyframes returns count JPEG-encoded frames sampled evenly across
// the clip. count is clamped to [2, 10].
func (e *Extractor) ExtractKeyframes(ctx context.Context, videoPath string, count int) ([][]byte, error) {
	if count < minKeyframes {
		count = minKeyframes
	}
	if count > maxKeyframes {
		count = maxKeyframes
	}
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("stat video: %w", err)
	}

	e.log.Debug("Extracting keyframes", "video", videoPath, "count", count)
	if strings.EqualFold(filepath.Ext(videoPath), ".gif") {
		return e.extractFromGIF(videoPath, count)
	}
	return e.extractWithFFmpeg(ctx, videoPath, count)
}

func (e *Extractor) extractFromGIF(videoPath string, count int) ([][]byte, error) {
	raw, err := os.ReadFile(videoPath)
	if err != nil {
		return nil, fmt.Errorf("read video: %w", err)
	}
	anim, err := gif.DecodeAll(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode gif: %w", err)
	}
	total := len(anim.Image)
	if total == 0 {
		return nil, fmt.Errorf("gif has no frames")
	}
	if count > total {
		count = total
	}

	// GIF frames may be partial updates; composite them onto an accumulator
	// so sampled frames are fully drawn.
	bounds := image.Rect(0, 0, anim.Config.Width, anim.Config.Height)
	if bounds.Empty() {
		bounds = anim.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)

	wanted := sampleIndices(total, count)
	frames := make([][]byte, 0, count)
	next := 0
	for i, frame := range anim.Image {
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		if next < len(wanted) && i == wanted[next] {
			var buf bytes.Buffer
			snapshot := image.NewRGBA(bounds)
			draw.Draw(snapshot, bounds, canvas, bounds.Min, draw.Src)
			if err := jpeg.Encode(&buf, snapshot, &jpeg.Options{Quality: 85}); err != nil {
				return nil, fmt.Errorf("encode frame %d: %w", i, err)
			}
			frames = append(frames, buf.Bytes())
			next++
		}
	}
	return frames, nil
}

func (e *Extractor) extractWithFFmpeg(ctx context.Context, videoPath string, count int) ([][]byte, error) {
	if _, err := exec.LookPath(e.ffmpegPath); err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "wl_keyframes_*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// Sample at 2fps, then pick count frames evenly from what came out. This
	// avoids probing the clip duration up front.
	pattern := filepath.Join(tmpDir, "frame_%03d.jpg")
	cmd := exec.CommandContext(callCtx, e.ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vf", "fps=2",
		"-q:v", "3",
		pattern,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		s := strings.TrimSpace(stderr.String())
		if s != "" {
			return nil, fmt.Errorf("ffmpeg: %w; stderr=%s", err, s)
		}
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("read frames dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".jpg") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frames")
	}
	sort.Strings(names)

	wanted := sampleIndices(len(names), count)
	frames := make([][]byte, 0, len(wanted))
	for _, idx := range wanted {
		raw, err := os.ReadFile(filepath.Join(tmpDir, names[idx]))
		if err != nil {
			return nil, fmt.Errorf("read frame %s: %w", names[idx], err)
		}
		frames = append(frames, raw)
	}
	return frames, nil
}

// sampleIndices spreads count picks evenly across [0, total-1], first and
// last frame included.
func sampleIndices(total, count int) []int {
	if count >= total {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, 0, count)
	last := -1
	for i := 0; i < count; i++ {
		idx := i * (total - 1) / (count - 1)
		if idx != last {
			out = append(out, idx)
			last = idx
		}
	}
	return out
}
