package images

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/marketreel/marketreel/slides"
)

// Renderer composes slide frames at the target resolution. Fonts are
// tried in order until one loads, so the configured list can mix
// platform-specific paths.
type Renderer struct {
	Width     int
	Height    int
	FontPaths []string
	LogoPath  string
}

func NewRenderer(width, height int, fontPaths []string, logoPath string) *Renderer {
	return &Renderer{
		Width:     width,
		Height:    height,
		FontPaths: fontPaths,
		LogoPath:  logoPath,
	}
}

// Background fills the frame with the source image, darkens it for text
// legibility and stamps the logo. The source is center-cropped to cover
// the full frame.
func (r *Renderer) Background(srcPath, outPath string) error {
	src, err := imaging.Open(srcPath)
	if err != nil {
		return errors.Wrap(err, "opening background source")
	}
	filled := imaging.Fill(src, r.Width, r.Height, imaging.Center, imaging.Lanczos)

	dc := gg.NewContext(r.Width, r.Height)
	dc.DrawImage(filled, 0, 0)
	r.darken(dc)
	r.watermark(dc)

	return dc.SavePNG(outPath)
}

// SolidFrame writes a plain dark frame for when no provider produced an
// image.
func (r *Renderer) SolidFrame(outPath string) error {
	dc := gg.NewContext(r.Width, r.Height)
	grad := gg.NewLinearGradient(0, 0, 0, float64(r.Height))
	grad.AddColorStop(0, color.NRGBA{R: 18, G: 24, B: 38, A: 255})
	grad.AddColorStop(1, color.NRGBA{R: 8, G: 10, B: 16, A: 255})
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(r.Width), float64(r.Height))
	dc.Fill()
	r.watermark(dc)
	return dc.SavePNG(outPath)
}

// SlideImage draws one slide's text over the prepared background frame
// and writes the result. index and total feed the page footer.
func (r *Renderer) SlideImage(bgPath string, slide slides.Slide, index, total int, outPath string) error {
	bg, err := gg.LoadImage(bgPath)
	if err != nil {
		return errors.Wrap(err, "loading background frame")
	}

	dc := gg.NewContext(r.Width, r.Height)
	dc.DrawImage(bg, 0, 0)

	w := float64(r.Width)
	h := float64(r.Height)
	margin := w * 0.08
	textWidth := w - 2*margin

	if slide.Title != "" {
		if err := r.loadFont(dc, r.scale(64)); err != nil {
			return err
		}
		dc.SetRGB(1, 1, 1)
		dc.DrawStringWrapped(slide.Title, w/2, h*0.12, 0.5, 0, textWidth, 1.3, gg.AlignCenter)
	}

	if slide.Body != "" {
		if err := r.loadFont(dc, r.scale(44)); err != nil {
			return err
		}
		dc.SetRGBA(1, 1, 1, 0.95)
		bodyTop := h * 0.12
		if slide.Title != "" {
			bodyTop = h * 0.28
		}
		dc.DrawStringWrapped(slide.Body, margin, bodyTop, 0, 0, textWidth, 1.45, gg.AlignLeft)
	}

	if err := r.footer(dc, index, total); err != nil {
		return err
	}
	return dc.SavePNG(outPath)
}

// PriceChart draws the closing-price series for technical stories. The
// line color follows the trend direction.
func (r *Renderer) PriceChart(closes []float64, trend, label, outPath string) error {
	if len(closes) < 2 {
		return errors.New("not enough closes to chart")
	}

	dc := gg.NewContext(r.Width, r.Height)
	dc.SetRGB(0.05, 0.06, 0.1)
	dc.Clear()

	w := float64(r.Width)
	h := float64(r.Height)
	left, right := w*0.1, w*0.9
	top, bottom := h*0.3, h*0.7

	min, max := closes[0], closes[0]
	for _, c := range closes {
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	span := max - min
	if span == 0 {
		span = 1
	}

	// Axis baseline.
	dc.SetRGBA(1, 1, 1, 0.3)
	dc.SetLineWidth(2)
	dc.DrawLine(left, bottom, right, bottom)
	dc.Stroke()

	switch trend {
	case "bearish":
		dc.SetRGB(0.9, 0.3, 0.3)
	case "bullish":
		dc.SetRGB(0.3, 0.85, 0.5)
	default:
		dc.SetRGB(0.95, 0.8, 0.3)
	}
	dc.SetLineWidth(5)

	step := (right - left) / float64(len(closes)-1)
	for i, c := range closes {
		x := left + float64(i)*step
		y := bottom - (c-min)/span*(bottom-top)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	if label != "" {
		if err := r.loadFont(dc, r.scale(56)); err != nil {
			return err
		}
		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored(label, w/2, h*0.2, 0.5, 0.5)
	}

	r.watermark(dc)
	return dc.SavePNG(outPath)
}

// darken lays a vertical gradient plus a soft vignette so white text
// stays readable over busy photos.
func (r *Renderer) darken(dc *gg.Context) {
	w := float64(r.Width)
	h := float64(r.Height)

	grad := gg.NewLinearGradient(0, 0, 0, h)
	grad.AddColorStop(0, color.NRGBA{A: 51})
	grad.AddColorStop(1, color.NRGBA{A: 178})
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	vignette := gg.NewRadialGradient(w/2, h/2, h*0.3, w/2, h/2, h*0.75)
	vignette.AddColorStop(0, color.NRGBA{A: 0})
	vignette.AddColorStop(1, color.NRGBA{A: 115})
	dc.SetFillStyle(vignette)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()
}

func (r *Renderer) watermark(dc *gg.Context) {
	if r.LogoPath == "" {
		return
	}
	logo, err := imaging.Open(r.LogoPath)
	if err != nil {
		logrus.WithError(err).Debug("logo not available, skipping watermark")
		return
	}
	targetW := r.Width * 12 / 100
	resized := imaging.Resize(logo, targetW, 0, imaging.Lanczos)
	faded := fade(resized, 0.85)

	x := r.Width - faded.Bounds().Dx() - r.Width*3/100
	y := r.Height - faded.Bounds().Dy() - r.Height*2/100
	dc.DrawImage(faded, x, y)
}

func (r *Renderer) footer(dc *gg.Context, index, total int) error {
	if err := r.loadFont(dc, r.scale(34)); err != nil {
		return err
	}
	dc.SetRGBA(1, 1, 1, 0.7)
	dc.DrawStringAnchored(
		fmt.Sprintf("%d/%d", index, total),
		float64(r.Width)*0.95, float64(r.Height)*0.96, 1, 0.5,
	)
	return nil
}

func (r *Renderer) loadFont(dc *gg.Context, points float64) error {
	for _, path := range r.FontPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := dc.LoadFontFace(path, points); err == nil {
			return nil
		}
	}
	return errors.New("no usable font found")
}

// scale keeps text proportional when rendering landscape frames.
func (r *Renderer) scale(base float64) float64 {
	ref := r.Width
	if r.Height < r.Width {
		ref = r.Height
	}
	return base * float64(ref) / 1080
}

func fade(img image.Image, alpha float64) image.Image {
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	mask := image.NewUniform(color.Alpha{A: uint8(alpha * 255)})
	draw.DrawMask(out, bounds, img, bounds.Min, mask, image.Point{}, draw.Over)
	return out
}
