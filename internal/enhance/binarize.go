package enhance

import "image"

// bradleyT is the percentage below the local mean at which a pixel turns
// black. 15 tracks the OpenCV adaptive-threshold defaults this stage
// replaces.
const bradleyT = 15

// binarize applies Bradley adaptive thresholding: each pixel is compared
// against the mean brightness of a window around it, so uneven lighting and
// scanner shadows do not wash out whole regions the way a single global
// threshold would.
func binarize(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}

	// Integral image of luminance, one row/column of padding.
	integral := make([]uint64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum uint64
		for x := 0; x < w; x++ {
			rowSum += uint64(luminance(img, b.Min.X+x, b.Min.Y+y))
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}

	window := w / 8
	if window < 15 {
		window = 15
	}
	half := window / 2

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y1, y2 := y-half, y+half
		if y1 < 0 {
			y1 = 0
		}
		if y2 >= h {
			y2 = h - 1
		}
		for x := 0; x < w; x++ {
			x1, x2 := x-half, x+half
			if x1 < 0 {
				x1 = 0
			}
			if x2 >= w {
				x2 = w - 1
			}
			count := uint64((x2 - x1 + 1) * (y2 - y1 + 1))
			sum := integral[(y2+1)*(w+1)+x2+1] -
				integral[y1*(w+1)+x2+1] -
				integral[(y2+1)*(w+1)+x1] +
				integral[y1*(w+1)+x1]

			lum := uint64(luminance(img, b.Min.X+x, b.Min.Y+y))
			if lum*count*100 <= sum*(100-bradleyT) {
				setGray(out, x, y, 0)
			} else {
				setGray(out, x, y, 255)
			}
		}
	}
	return out
}

// median3x3 replaces each pixel with the median brightness of its 3x3
// neighborhood, removing salt-and-pepper speckle left over from scanning.
func median3x3(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return img
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	var window [9]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 {
						nx = 0
					} else if nx >= w {
						nx = w - 1
					}
					if ny < 0 {
						ny = 0
					} else if ny >= h {
						ny = h - 1
					}
					window[n] = luminance(img, b.Min.X+nx, b.Min.Y+ny)
					n++
				}
			}
			setGray(out, x, y, median9(window))
		}
	}
	return out
}

// median9 returns the median of 9 values via insertion sort on a fixed array.
func median9(v [9]int) int {
	for i := 1; i < 9; i++ {
		for j := i; j > 0 && v[j] < v[j-1]; j-- {
			v[j], v[j-1] = v[j-1], v[j]
		}
	}
	return v[4]
}
