// Package interp implements scan conversion as a precompute/apply split.
//
// Precompute walks the output canvas once for a given geometry and control
// grid, keeps the pixels that fall inside the fan sector and records, for
// each, four source corners and their interpolation weights. Apply then only
// gathers, blends and scatters pixel values, so frames that share a geometry
// reuse the same Correspondence.
//
// The default weighting is distance-proportional (w_i = d_i / Σd), which
// favours the farthest corner rather than the nearest. WeightInverseDistance
// is the conventional alternative.
package interp

import (
	"fmt"

	"github.com/banshee-data/scanconvert/internal/scanconv"
	"gonum.org/v1/gonum/mat"
)

// Weighting selects how corner distances become interpolation weights.
type Weighting string

const (
	// WeightDistance sets w_i = d_i / Σd.
	WeightDistance Weighting = "distance"
	// WeightInverseDistance sets w_i = (1/d_i) / Σ(1/d), giving a coincident
	// corner the full weight.
	WeightInverseDistance Weighting = "inverse_distance"
)

// Validate reports whether w is a known weighting. The empty value means
// WeightDistance.
func (w Weighting) Validate() error {
	switch w {
	case "", WeightDistance, WeightInverseDistance:
		return nil
	}
	return fmt.Errorf("unknown weighting %q", string(w))
}

// Options tunes Precompute and Apply.
type Options struct {
	Weighting Weighting

	// StrictDegenerate makes Precompute fail with
	// scanconv.ErrDegenerateInterpolationPoint instead of assigning the full
	// weight to the first corner.
	StrictDegenerate bool

	// Workers bounds the goroutines used by Apply. Zero uses GOMAXPROCS.
	Workers int
}

func (o Options) weighting() Weighting {
	if o.Weighting == "" {
		return WeightDistance
	}
	return o.Weighting
}

// Correspondence is the reusable output of Precompute. It must not be
// modified after creation; any number of goroutines may Apply it at once.
type Correspondence struct {
	// Canvas is the zero output image, (res_height+1) x (res_width+1).
	Canvas *mat.Dense

	// PointsXY holds the (y, x) canvas index of every kept output pixel.
	PointsXY [][2]int

	// ValRTheta holds the four source corners of each kept pixel as (y, x)
	// positions in the unpadded source frame, in the order (floor, floor),
	// (floor, ceil), (ceil, ceil), (ceil, floor).
	ValRTheta [][4]scanconv.Point

	// Weights holds the interpolation weight of each corner; every row sums
	// to 1.
	Weights [][4]float64

	InitialRadius float64
	SourceRows    int
	SourceCols    int
	Geometry      scanconv.SectorGeometry
	Segmentation  scanconv.GridSegmentation
	Weighting     Weighting

	// Degenerate counts kept pixels whose corners all coincided with them and
	// received the fallback weights.
	Degenerate int
}

// Len returns the number of kept output pixels.
func (c *Correspondence) Len() int {
	return len(c.PointsXY)
}

// OutputDims returns the dimensions of an applied image after the near-field
// crop.
func (c *Correspondence) OutputDims() (rows, cols int) {
	r, cols := c.Canvas.Dims()
	return r - int(c.InitialRadius), cols
}
