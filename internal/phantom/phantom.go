// Package phantom generates synthetic r-theta ultrasound frames for tests and
// benchmarking. Rows are depth samples and columns are scan lines.
package phantom

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Kind names a phantom pattern.
type Kind string

const (
	KindConstant        Kind = "constant"
	KindDepthGradient   Kind = "depth_gradient"
	KindLateralGradient Kind = "lateral_gradient"
	KindTargets         Kind = "targets"
	KindSpeckle         Kind = "speckle"
)

// Kinds lists every supported pattern in a stable order.
var Kinds = []Kind{KindConstant, KindDepthGradient, KindLateralGradient, KindTargets, KindSpeckle}

// Constant returns a rows x cols frame filled with v.
func Constant(rows, cols int, v float64) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = v
	}
	return mat.NewDense(rows, cols, data)
}

// DepthGradient ramps linearly from 0 at the first row to 1 at the last.
func DepthGradient(rows, cols int) *mat.Dense {
	img := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		v := float64(y) / float64(max(rows-1, 1))
		for x := 0; x < cols; x++ {
			img.Set(y, x, v)
		}
	}
	return img
}

// LateralGradient ramps linearly from 0 at the first scan line to 1 at the last.
func LateralGradient(rows, cols int) *mat.Dense {
	img := mat.NewDense(rows, cols, nil)
	for x := 0; x < cols; x++ {
		v := float64(x) / float64(max(cols-1, 1))
		for y := 0; y < rows; y++ {
			img.Set(y, x, v)
		}
	}
	return img
}

// Targets places bright Gaussian point reflectors on a regular lattice, every
// spacing pixels in both directions, on a dark background.
func Targets(rows, cols, spacing int) *mat.Dense {
	img := mat.NewDense(rows, cols, nil)
	if spacing <= 0 {
		return img
	}
	const sigma = 1.5
	for cy := spacing / 2; cy < rows; cy += spacing {
		for cx := spacing / 2; cx < cols; cx += spacing {
			for y := max(cy-4, 0); y < min(cy+5, rows); y++ {
				for x := max(cx-4, 0); x < min(cx+5, cols); x++ {
					d2 := float64((y-cy)*(y-cy) + (x-cx)*(x-cx))
					img.Set(y, x, math.Max(img.At(y, x), math.Exp(-d2/(2*sigma*sigma))))
				}
			}
		}
	}
	return img
}

// Speckle returns Rayleigh-distributed speckle with unit scale, attenuated
// with depth. The same seed always yields the same frame.
func Speckle(rows, cols int, seed uint64) *mat.Dense {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		atten := math.Exp(-1.5 * float64(y) / float64(max(rows, 1)))
		for x := 0; x < cols; x++ {
			u := rng.Float64()
			img.Set(y, x, atten*math.Sqrt(-2*math.Log(1-u)))
		}
	}
	return img
}

// Generate builds a phantom by kind. seed only affects KindSpeckle.
func Generate(kind Kind, rows, cols int, seed uint64) (*mat.Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("phantom dimensions must be positive, got %dx%d", rows, cols)
	}
	switch kind {
	case KindConstant:
		return Constant(rows, cols, 1), nil
	case KindDepthGradient:
		return DepthGradient(rows, cols), nil
	case KindLateralGradient:
		return LateralGradient(rows, cols), nil
	case KindTargets:
		return Targets(rows, cols, max(min(rows, cols)/6, 8)), nil
	case KindSpeckle:
		return Speckle(rows, cols, seed), nil
	default:
		return nil, fmt.Errorf("unknown phantom kind %q", kind)
	}
}
