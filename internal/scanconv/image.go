package scanconv

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linspace returns n evenly spaced values over [start, stop], inclusive of
// both ends. n == 1 yields [start]; n <= 0 yields nil.
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, stop)
}

// Pad returns a copy of src with zero rows and columns added on each side.
// Negative pads are treated as zero.
func Pad(src *mat.Dense, top, bottom, left, right int) *mat.Dense {
	top, bottom, left, right = max(top, 0), max(bottom, 0), max(left, 0), max(right, 0)
	r, c := src.Dims()
	dst := mat.NewDense(r+top+bottom, c+left+right, nil)
	dst.Slice(top, top+r, left, left+c).(*mat.Dense).Copy(src)
	return dst
}

// CropTop returns a copy of img with its first n rows removed.
func CropTop(img *mat.Dense, n int) (*mat.Dense, error) {
	r, c := img.Dims()
	if n < 0 || n >= r {
		return nil, fmt.Errorf("%w: cannot crop %d rows from a %dx%d image", ErrShapeMismatch, n, r, c)
	}
	out := mat.NewDense(r-n, c, nil)
	out.Copy(img.Slice(n, r, 0, c))
	return out, nil
}

// SampleBilinear reads img at a sub-pixel position, clamping to the image
// border.
func SampleBilinear(img *mat.Dense, y, x float64) float64 {
	r, c := img.Dims()
	y = clamp(y, 0, float64(r-1))
	x = clamp(x, 0, float64(c-1))

	y0, x0 := int(math.Floor(y)), int(math.Floor(x))
	y1, x1 := min(y0+1, r-1), min(x0+1, c-1)
	fy, fx := y-float64(y0), x-float64(x0)

	top := img.At(y0, x0)*(1-fx) + img.At(y0, x1)*fx
	bot := img.At(y1, x0)*(1-fx) + img.At(y1, x1)*fx
	return top*(1-fy) + bot*fy
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Normalize maps v from [lo, hi] onto [0, 1]. A collapsed range maps to 0 so
// a single surviving value does not turn into NaN.
func Normalize(v, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}
