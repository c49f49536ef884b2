package media

import (
	"bytes"
	"context"
	"image"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/worldloom/worldloom-backend/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatal(err)
	}
	return log
}

func writeTestGIF(t *testing.T, frames int) string {
	t.Helper()
	anim := &gif.GIF{Config: image.Config{Width: 32, Height: 24}}
	for i := 0; i < frames; i++ {
		img := image.NewPaletted(image.Rect(0, 0, 32, 24), palette.Plan9)
		for x := 0; x < 32; x++ {
			img.SetColorIndex(x, i%24, uint8(i%255))
		}
		anim.Image = append(anim.Image, img)
		anim.Delay = append(anim.Delay, 8)
	}
	path := filepath.Join(t.TempDir(), "clip.gif")
	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()
	if err := gif.EncodeAll(out, anim); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractKeyframesFromGIF(t *testing.T) {
	path := writeTestGIF(t, 24)
	ex := NewExtractor(testLogger(t))

	frames, err := ex.ExtractKeyframes(context.Background(), path, 5)
	if err != nil {
		t.Fatalf("ExtractKeyframes: %v", err)
	}
	if len(frames) != 5 {
		t.Fatalf("got %d frames, want 5", len(frames))
	}
	for i, raw := range frames {
		img, err := jpeg.Decode(bytes.NewReader(raw))
		if err != nil {
			t.Fatalf("frame %d is not valid JPEG: %v", i, err)
		}
		if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
			t.Fatalf("frame %d has bounds %v", i, img.Bounds())
		}
	}
}

func TestExtractKeyframesClampsCount(t *testing.T) {
	path := writeTestGIF(t, 24)
	ex := NewExtractor(testLogger(t))

	frames, err := ex.ExtractKeyframes(context.Background(), path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 {
		t.Fatalf("count 0 should clamp to 2, got %d", len(frames))
	}

	frames, err = ex.ExtractKeyframes(context.Background(), path, 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 10 {
		t.Fatalf("count 99 should clamp to 10, got %d", len(frames))
	}
}

func TestExtractKeyframesMissingFile(t *testing.T) {
	ex := NewExtractor(testLogger(t))
	if _, err := ex.ExtractKeyframes(context.Background(), "/no/such/clip.gif", 4); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSampleIndices(t *testing.T) {
	cases := []struct {
		total, count int
		want         []int
	}{
		{10, 2, []int{0, 9}},
		{10, 4, []int{0, 3, 6, 9}},
		{3, 5, []int{0, 1, 2}},
		{1, 3, []int{0}},
	}
	for _, tc := range cases {
		got := sampleIndices(tc.total, tc.count)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("sampleIndices(%d, %d) = %v, want %v", tc.total, tc.count, got, tc.want)
		}
	}
}
