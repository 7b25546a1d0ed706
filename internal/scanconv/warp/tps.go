package warp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/scanconvert/internal/monitoring"
	"github.com/banshee-data/scanconvert/internal/scanconv"
	"gonum.org/v1/gonum/mat"
)

// ThinPlateSpline warps an image with a second-order polyharmonic spline
// (kernel r² log r plus an affine term) fitted to the control point flows.
//
// The spline is fitted at the destination points to the flow dst - src, and
// each output pixel p samples the source at p - flow(p), so the pixel found at
// src[i] lands on dst[i].
type ThinPlateSpline struct {
	// Regularization adds a smoothing term to the kernel diagonal. Zero makes
	// the spline pass exactly through every control point.
	Regularization float64

	// Workers bounds the number of goroutines evaluating output rows.
	// Zero uses GOMAXPROCS.
	Workers int
}

// Warp implements Warper.
func (t ThinPlateSpline) Warp(img *mat.Dense, src, dst []scanconv.Point) (*mat.Dense, error) {
	start := time.Now()

	s, err := FitSpline(dst, flows(src, dst), t.Regularization)
	if err != nil {
		return nil, err
	}

	rows, cols := img.Dims()
	out := mat.NewDense(rows, cols, nil)
	err = scanconv.ParallelFor(context.Background(), rows, t.Workers, func(_ context.Context, r0, r1 int) error {
		for y := r0; y < r1; y++ {
			for x := 0; x < cols; x++ {
				fy, fx := s.At(float64(y), float64(x))
				out.Set(y, x, scanconv.SampleBilinear(img, float64(y)-fy, float64(x)-fx))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.Tracef("tps warp: %dx%d image, %d control points in %s", rows, cols, len(src), time.Since(start))
	return out, nil
}

func flows(src, dst []scanconv.Point) []scanconv.Point {
	if len(src) != len(dst) {
		return nil
	}
	f := make([]scanconv.Point, len(src))
	for i := range src {
		f[i] = scanconv.Point{Y: dst[i].Y - src[i].Y, X: dst[i].X - src[i].X}
	}
	return f
}

// Spline is a fitted two-component polyharmonic spline.
type Spline struct {
	centers []scanconv.Point
	// weights holds len(centers) kernel weights followed by the affine
	// coefficients for 1, y and x. Column 0 is the y component, column 1 x.
	weights *mat.Dense
}

// FitSpline fits a spline through values at centers. regularization >= 0
// trades exact interpolation for smoothness.
func FitSpline(centers, values []scanconv.Point, regularization float64) (*Spline, error) {
	n := len(centers)
	if len(values) != n {
		return nil, fmt.Errorf("%w: %d centers, %d values", scanconv.ErrShapeMismatch, n, len(values))
	}
	if n < 3 {
		return nil, fmt.Errorf("%w: need at least 3, got %d", ErrTooFewControlPoints, n)
	}

	// Block system [K+λI P; Pᵀ 0][w; a] = [v; 0].
	size := n + 3
	lhs := mat.NewDense(size, size, nil)
	rhs := mat.NewDense(size, 2, nil)
	for i, ci := range centers {
		for j := i; j < n; j++ {
			k := kernel(dist2(ci, centers[j]))
			lhs.Set(i, j, k)
			lhs.Set(j, i, k)
		}
		lhs.Set(i, i, lhs.At(i, i)+regularization)

		lhs.Set(i, n, 1)
		lhs.Set(i, n+1, ci.Y)
		lhs.Set(i, n+2, ci.X)
		lhs.Set(n, i, 1)
		lhs.Set(n+1, i, ci.Y)
		lhs.Set(n+2, i, ci.X)

		rhs.Set(i, 0, values[i].Y)
		rhs.Set(i, 1, values[i].X)
	}

	var w mat.Dense
	if err := w.Solve(lhs, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 0) || hasNaN(&w) {
			return nil, fmt.Errorf("%w: %v", ErrSingularSpline, err)
		}
		monitoring.Diagf("spline system ill-conditioned (cond=%g), continuing", float64(cond))
	}
	if hasNaN(&w) {
		return nil, ErrSingularSpline
	}

	c := make([]scanconv.Point, n)
	copy(c, centers)
	return &Spline{centers: c, weights: &w}, nil
}

// At evaluates the spline at (y, x).
func (s *Spline) At(y, x float64) (vy, vx float64) {
	n := len(s.centers)
	p := scanconv.Point{Y: y, X: x}
	for i, c := range s.centers {
		k := kernel(dist2(p, c))
		vy += k * s.weights.At(i, 0)
		vx += k * s.weights.At(i, 1)
	}
	vy += s.weights.At(n, 0) + s.weights.At(n+1, 0)*y + s.weights.At(n+2, 0)*x
	vx += s.weights.At(n, 1) + s.weights.At(n+1, 1)*y + s.weights.At(n+2, 1)*x
	return vy, vx
}

// kernel is r² log r expressed on the squared distance.
func kernel(r2 float64) float64 {
	if r2 < 1e-10 {
		return 0
	}
	return 0.5 * r2 * math.Log(r2)
}

func dist2(a, b scanconv.Point) float64 {
	dy, dx := a.Y-b.Y, a.X-b.X
	return dy*dy + dx*dx
}

func hasNaN(m *mat.Dense) bool {
	if m.IsEmpty() {
		return true
	}
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}
	return false
}
