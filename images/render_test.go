package images

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/marketreel/marketreel/slides"
)

// systemFonts are common Linux font locations; tests needing text
// rendering skip when none exist.
var systemFonts = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
}

func availableFonts(t *testing.T) []string {
	t.Helper()
	for _, path := range systemFonts {
		if _, err := os.Stat(path); err == nil {
			return systemFonts
		}
	}
	t.Skip("no system font available")
	return nil
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
	return img
}

func TestSolidFrameDimensions(t *testing.T) {
	r := NewRenderer(540, 960, nil, "")
	outPath := filepath.Join(t.TempDir(), "frame.png")
	if err := r.SolidFrame(outPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img := decodePNG(t, outPath)
	bounds := img.Bounds()
	if bounds.Dx() != 540 || bounds.Dy() != 960 {
		t.Errorf("expected 540x960, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestPriceChartWithoutLabelNeedsNoFont(t *testing.T) {
	r := NewRenderer(540, 960, nil, "")
	outPath := filepath.Join(t.TempDir(), "chart.png")
	closes := []float64{100, 102, 101, 105, 108}
	if err := r.PriceChart(closes, "bullish", "", outPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("expected chart file: %v", err)
	}
}

func TestPriceChartRejectsTooFewCloses(t *testing.T) {
	r := NewRenderer(540, 960, nil, "")
	err := r.PriceChart([]float64{100}, "neutral", "", filepath.Join(t.TempDir(), "chart.png"))
	if err == nil {
		t.Fatal("expected error for single close")
	}
}

func TestBackgroundCropsToFrame(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src.png")
	writeTestPNG(t, srcPath, 400, 300)

	r := NewRenderer(270, 480, nil, "")
	outPath := filepath.Join(dir, "bg.png")
	if err := r.Background(srcPath, outPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img := decodePNG(t, outPath)
	if img.Bounds().Dx() != 270 || img.Bounds().Dy() != 480 {
		t.Errorf("expected 270x480, got %v", img.Bounds())
	}
}

func TestSlideImageDrawsTextOverBackground(t *testing.T) {
	fonts := availableFonts(t)
	dir := t.TempDir()
	bgPath := filepath.Join(dir, "bg.png")

	r := NewRenderer(540, 960, fonts, "")
	if err := r.SolidFrame(bgPath); err != nil {
		t.Fatalf("preparing background: %v", err)
	}

	outPath := filepath.Join(dir, "slide.png")
	slide := slides.Slide{Title: "Breaking Update", Body: "Shares moved sharply higher in the afternoon session."}
	if err := r.SlideImage(bgPath, slide, 1, 3, outPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img := decodePNG(t, outPath)
	if img.Bounds().Dx() != 540 || img.Bounds().Dy() != 960 {
		t.Errorf("unexpected slide dimensions: %v", img.Bounds())
	}
}

func TestSlideImageFailsWithoutFonts(t *testing.T) {
	dir := t.TempDir()
	bgPath := filepath.Join(dir, "bg.png")

	r := NewRenderer(540, 960, []string{filepath.Join(dir, "missing.ttf")}, "")
	if err := r.SolidFrame(bgPath); err != nil {
		t.Fatalf("preparing background: %v", err)
	}

	err := r.SlideImage(bgPath, slides.Slide{Title: "Title"}, 1, 1, filepath.Join(dir, "out.png"))
	if err == nil {
		t.Fatal("expected font loading error")
	}
}

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating test image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
}
