package videogen

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/sync/errgroup"

	"github.com/worldloom/worldloom-backend/internal/logger"
	"github.com/worldloom/worldloom-backend/internal/types"
)

// SyntheticOptions controls the local test-pattern renderer.
type SyntheticOptions struct {
	Seconds int
	FPS     int
	Size    string // "WxH", render target before downscale
}

// Synthetic renders deterministic animated takes without any external
// binaries: frames are drawn with gg, downscaled, and assembled into an
// animated GIF. The animation is seeded by the prompt text so the same
// prompt always produces byte-identical artifacts.
type Synthetic struct {
	log  *logger.Logger
	opts SyntheticOptions
}

func NewSynthetic(log *logger.Logger, opts SyntheticOptions) *Synthetic {
	if opts.Seconds <= 0 {
		opts.Seconds = 8
	}
	if opts.FPS <= 0 {
		opts.FPS = 24
	}
	if opts.Size == "" {
		opts.Size = "1280x720"
	}
	return &Synthetic{log: log.With("service", "SyntheticGenerator"), opts: opts}
}

func (s *Synthetic) Mode() string { return types.ModeMock }

func (s *Synthetic) GenerateTakes(ctx context.Context, prompt string, n int, outDir string, onProgress ProgressFunc) ([]string, error) {
	if n < 1 {
		n = 1
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	s.log.Info("Rendering synthetic takes", "prompt", prompt, "takes", n)

	paths := make([]string, n)
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		take := i + 1
		g.Go(func() error {
			path := filepath.Join(outDir, fmt.Sprintf("take_%d.gif", take))
			if err := s.renderTake(gctx, prompt, take, path); err != nil {
				return fmt.Errorf("render take %d: %w", take, err)
			}
			mu.Lock()
			paths[take-1] = path
			done++
			if onProgress != nil {
				onProgress(types.JobInProgress, 10+80*done/n, fmt.Sprintf("Rendered take %d/%d", done, n))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (s *Synthetic) renderTake(ctx context.Context, prompt string, take int, outPath string) error {
	width, height := parseSize(s.opts.Size)
	// GIF frames are downscaled to a quarter of the nominal resolution to
	// keep artifacts small.
	gw, gh := width/4, height/4
	if gw < 160 {
		gw, gh = 160, 90
	}

	// Render at a reduced frame rate; the take duration is preserved via the
	// per-frame delay.
	fps := 12
	frameCount := s.opts.Seconds * fps
	if frameCount > 120 {
		frameCount = 120
	}
	delay := 100 / fps // hundredths of a second

	seed := sha256.Sum256([]byte(prompt + "#take" + strconv.Itoa(take)))
	ballHue := float64(binary.LittleEndian.Uint32(seed[0:])%360) / 360.0
	ballY := 0.35 + 0.3*float64(binary.LittleEndian.Uint32(seed[4:])%1000)/1000.0

	anim := &gif.GIF{}
	for f := 0; f < frameCount; f++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		dc := gg.NewContext(gw, gh)
		dc.SetRGB(0.08, 0.09, 0.12)
		dc.Clear()

		// grid backdrop
		dc.SetRGBA(1, 1, 1, 0.08)
		dc.SetLineWidth(1)
		for x := 0; x < gw; x += gw / 10 {
			dc.DrawLine(float64(x), 0, float64(x), float64(gh))
			dc.Stroke()
		}
		for y := 0; y < gh; y += gh / 6 {
			dc.DrawLine(0, float64(y), float64(gw), float64(y))
			dc.Stroke()
		}

		// moving subject, left to right with a gentle bounce
		t := float64(f) / float64(frameCount-1)
		cx := 0.1*float64(gw) + t*0.8*float64(gw)
		cy := ballY*float64(gh) + 0.1*float64(gh)*math.Sin(t*4*math.Pi)
		r, g, b := hueToRGB(ballHue)
		dc.SetRGB(r, g, b)
		dc.DrawCircle(cx, cy, float64(gh)/10)
		dc.Fill()

		dc.SetFontFace(basicfont.Face7x13)
		dc.SetRGB(0.9, 0.9, 0.9)
		dc.DrawString(fmt.Sprintf("take %d  frame %03d", take, f+1), 4, 12)

		anim.Image = append(anim.Image, quantize(dc.Image(), gw, gh))
		anim.Delay = append(anim.Delay, delay)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer out.Close()
	if err := gif.EncodeAll(out, anim); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return nil
}

func quantize(src image.Image, w, h int) *image.Paletted {
	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	pal := image.NewPaletted(scaled.Bounds(), palette.Plan9)
	draw.Draw(pal, pal.Bounds(), scaled, image.Point{}, draw.Src)
	return pal
}

func hueToRGB(h float64) (float64, float64, float64) {
	sector := math.Mod(h*6, 6)
	x := 1 - math.Abs(math.Mod(sector, 2)-1)
	switch int(sector) {
	case 0:
		return 1, x, 0
	case 1:
		return x, 1, 0
	case 2:
		return 0, 1, x
	case 3:
		return 0, x, 1
	case 4:
		return x, 0, 1
	default:
		return 1, 0, x
	}
}

func parseSize(size string) (int, int) {
	parts := strings.SplitN(strings.ToLower(size), "x", 2)
	if len(parts) != 2 {
		return 1280, 720
	}
	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 1280, 720
	}
	return w, h
}
