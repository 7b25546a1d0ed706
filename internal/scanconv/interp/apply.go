package interp

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/scanconvert/internal/monitoring"
	"github.com/banshee-data/scanconvert/internal/scanconv"
	"gonum.org/v1/gonum/mat"
)

// Apply converts img with precomputed lookup arrays: it gathers the four
// corner pixels of every kept point, blends them by weight, adds the result
// into a copy of canvas at pointsXY and crops the top int(irad) rows.
//
// canvas is never modified, so the same arrays can be applied to any number
// of frames. The scatter is additive: a coordinate listed twice receives the
// sum of both blends.
func Apply(img, canvas *mat.Dense, irad float64, pointsXY [][2]int, valRTheta [][4]scanconv.Point, weights [][4]float64) (*mat.Dense, error) {
	return apply(context.Background(), img, canvas, irad, pointsXY, valRTheta, weights, 0)
}

// Apply converts one frame. img must have the dimensions the correspondence
// was precomputed for.
func (c *Correspondence) Apply(img *mat.Dense) (*mat.Dense, error) {
	return c.ApplyContext(context.Background(), img, 0)
}

// ApplyContext is Apply with a context and a worker bound for the gather
// stage. workers <= 0 uses GOMAXPROCS.
func (c *Correspondence) ApplyContext(ctx context.Context, img *mat.Dense, workers int) (*mat.Dense, error) {
	if img == nil || img.IsEmpty() {
		return nil, fmt.Errorf("%w: empty frame", scanconv.ErrShapeMismatch)
	}
	if r, cols := img.Dims(); r != c.SourceRows || cols != c.SourceCols {
		return nil, fmt.Errorf("%w: frame is %dx%d, correspondence expects %dx%d",
			scanconv.ErrShapeMismatch, r, cols, c.SourceRows, c.SourceCols)
	}
	return apply(ctx, img, c.Canvas, c.InitialRadius, c.PointsXY, c.ValRTheta, c.Weights, workers)
}

func apply(ctx context.Context, img, canvas *mat.Dense, irad float64, pointsXY [][2]int, valRTheta [][4]scanconv.Point, weights [][4]float64, workers int) (*mat.Dense, error) {
	start := time.Now()

	if img == nil || img.IsEmpty() || canvas == nil || canvas.IsEmpty() {
		return nil, fmt.Errorf("%w: empty frame or canvas", scanconv.ErrShapeMismatch)
	}
	n := len(pointsXY)
	if len(valRTheta) != n || len(weights) != n {
		return nil, fmt.Errorf("%w: %d points, %d corner sets, %d weight sets",
			scanconv.ErrShapeMismatch, n, len(valRTheta), len(weights))
	}

	rows, cols := img.Dims()
	blended := make([]float64, n)
	err := scanconv.ParallelFor(ctx, n, workers, func(_ context.Context, lo, hi int) error {
		for i := lo; i < hi; i++ {
			var v float64
			for k, p := range valRTheta[i] {
				y, x := int(p.Y), int(p.X)
				if y < 0 || y >= rows || x < 0 || x >= cols {
					return fmt.Errorf("%w: corner (%d, %d) of point %d outside %dx%d frame",
						scanconv.ErrShapeMismatch, y, x, i, rows, cols)
				}
				v += weights[i][k] * img.At(y, x)
			}
			blended[i] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := mat.DenseCopyOf(canvas)
	cr, cc := res.Dims()
	for i, p := range pointsXY {
		if p[0] < 0 || p[0] >= cr || p[1] < 0 || p[1] >= cc {
			return nil, fmt.Errorf("%w: point (%d, %d) outside %dx%d canvas", scanconv.ErrShapeMismatch, p[0], p[1], cr, cc)
		}
		res.Set(p[0], p[1], res.At(p[0], p[1])+blended[i])
	}

	out, err := scanconv.CropTop(res, int(irad))
	if err != nil {
		return nil, err
	}
	monitoring.Tracef("apply: %d points onto %dx%d canvas in %s", n, cr, cc, time.Since(start))
	return out, nil
}
