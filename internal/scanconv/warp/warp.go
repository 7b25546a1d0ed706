// Package warp provides the sparse-correspondence image warp used by the
// sparse warp scan conversion pipeline.
//
// A Warper resamples an image so that the pixel found at each source control
// point ends up at the matching destination point, interpolating smoothly in
// between. ThinPlateSpline is the default implementation; callers and tests
// can substitute any other Warper, or wrap a function with Func.
package warp

import (
	"errors"

	"github.com/banshee-data/scanconvert/internal/scanconv"
	"gonum.org/v1/gonum/mat"
)

// Warper resamples img given matched source and destination control points.
type Warper interface {
	Warp(img *mat.Dense, src, dst []scanconv.Point) (*mat.Dense, error)
}

// Func adapts an ordinary function to the Warper interface.
type Func func(img *mat.Dense, src, dst []scanconv.Point) (*mat.Dense, error)

// Warp calls f(img, src, dst).
func (f Func) Warp(img *mat.Dense, src, dst []scanconv.Point) (*mat.Dense, error) {
	return f(img, src, dst)
}

// ErrTooFewControlPoints is returned when a spline cannot be fitted because
// there are fewer control points than its affine part needs.
var ErrTooFewControlPoints = errors.New("too few control points")

// ErrSingularSpline is returned when the spline system has no usable solution,
// typically because control points repeat.
var ErrSingularSpline = errors.New("singular spline system")
