package enhance

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// skewRange bounds the search; scans skewed further than this are rare
	// and better handled by re-scanning.
	skewRange = 10.0
	skewStep  = 0.5

	// minSkew below which rotation is not worth the interpolation blur.
	minSkew = 0.25

	// skewMargin is how much better than the unrotated score a candidate
	// angle must be before we trust it.
	skewMargin = 1.05

	deskewMaxWidth = 800
	darkThreshold  = 128
)

// detectSkew estimates the dominant text-line angle in degrees using a
// projection profile search: the correct shear concentrates dark pixels
// into rows, maximizing the variance of row sums. The returned angle is the
// measured tilt; rotating by its negation straightens the image. Returns 0
// when no confident angle is found.
func detectSkew(img *image.NRGBA) float64 {
	small := img
	if img.Bounds().Dx() > deskewMaxWidth {
		small = imaging.Resize(img, deskewMaxWidth, 0, imaging.Box)
	}

	b := small.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 2 || h < 2 {
		return 0
	}

	dark := make([]bool, w*h)
	total := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if luminance(small, b.Min.X+x, b.Min.Y+y) < darkThreshold {
				dark[y*w+x] = true
				total++
			}
		}
	}
	if total == 0 {
		return 0
	}

	zeroScore := projectionScore(dark, w, h, 0)
	best, bestScore := 0.0, zeroScore
	for angle := -skewRange; angle <= skewRange+1e-9; angle += skewStep {
		if angle == 0 {
			continue
		}
		if s := projectionScore(dark, w, h, angle); s > bestScore {
			best, bestScore = angle, s
		}
	}

	if math.Abs(best) < minSkew || bestScore < zeroScore*skewMargin {
		return 0
	}
	return best
}

// projectionScore shears the dark-pixel mask by angle and returns the
// variance of the resulting row histogram.
func projectionScore(dark []bool, w, h int, angle float64) float64 {
	tan := math.Tan(angle * math.Pi / 180)
	rows := make([]float64, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !dark[y*w+x] {
				continue
			}
			yy := y + int(float64(x-w/2)*tan)
			if yy >= 0 && yy < h {
				rows[yy]++
			}
		}
	}

	var sum float64
	for _, v := range rows {
		sum += v
	}
	mean := sum / float64(h)

	var variance float64
	for _, v := range rows {
		d := v - mean
		variance += d * d
	}
	return variance / float64(h)
}
