// Package enhance prepares a normalized page image for text recognition:
// grayscale conversion, adaptive binarization, noise removal and deskew.
// Every stage is best-effort; an image that defeats a stage passes through
// that stage unchanged.
package enhance

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Config toggles individual enhancement stages. Use DefaultConfig for the
// usual full chain; callers with clean digital scans can switch stages off.
type Config struct {
	Grayscale bool
	Binarize  bool
	Denoise   bool
	Deskew    bool
}

// DefaultConfig enables every stage.
func DefaultConfig() Config {
	return Config{Grayscale: true, Binarize: true, Denoise: true, Deskew: true}
}

// Enhancer applies the configured enhancement chain.
type Enhancer struct {
	cfg Config
}

// New creates an Enhancer.
func New(cfg Config) *Enhancer {
	return &Enhancer{cfg: cfg}
}

// Enhance runs the enabled stages in order: grayscale, binarize, denoise,
// deskew. It never fails; the worst case is returning the input unchanged.
func (e *Enhancer) Enhance(img *image.NRGBA) *image.NRGBA {
	if img == nil || img.Bounds().Empty() {
		return img
	}
	out := img
	if e.cfg.Grayscale {
		out = imaging.Grayscale(out)
	}
	if e.cfg.Binarize {
		out = binarize(out)
	}
	if e.cfg.Denoise {
		out = median3x3(out)
	}
	if e.cfg.Deskew {
		if angle := detectSkew(out); angle != 0 {
			out = imaging.Rotate(out, -angle, color.White)
		}
	}
	return out
}

// luminance returns the 0..255 brightness of the pixel at (x, y).
func luminance(img *image.NRGBA, x, y int) int {
	i := img.PixOffset(x, y)
	r := int(img.Pix[i])
	g := int(img.Pix[i+1])
	b := int(img.Pix[i+2])
	// Rec. 601 weights, integer arithmetic
	return (299*r + 587*g + 114*b) / 1000
}

func setGray(img *image.NRGBA, x, y, v int) {
	i := img.PixOffset(x, y)
	img.Pix[i] = uint8(v)
	img.Pix[i+1] = uint8(v)
	img.Pix[i+2] = uint8(v)
	img.Pix[i+3] = 0xff
}
