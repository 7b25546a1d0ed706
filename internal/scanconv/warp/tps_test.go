package warp

import (
	"testing"

	"github.com/banshee-data/scanconvert/internal/scanconv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func gridPoints() []scanconv.Point {
	var pts []scanconv.Point
	for _, y := range []float64{0, 10, 20} {
		for _, x := range []float64{0, 15, 30} {
			pts = append(pts, scanconv.Point{Y: y, X: x})
		}
	}
	return pts
}

func rampImage(rows, cols int) *mat.Dense {
	img := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			img.Set(y, x, float64(y*cols+x))
		}
	}
	return img
}

func TestFitSpline_InterpolatesCenters(t *testing.T) {
	t.Parallel()
	centers := gridPoints()
	values := make([]scanconv.Point, len(centers))
	for i, c := range centers {
		// Non-affine field so the kernel weights matter.
		values[i] = scanconv.Point{Y: c.X * c.X / 30, X: c.Y*c.X/20 - 3}
	}

	s, err := FitSpline(centers, values, 0)
	require.NoError(t, err)

	for i, c := range centers {
		vy, vx := s.At(c.Y, c.X)
		assert.InDelta(t, values[i].Y, vy, 1e-6, "center %d y", i)
		assert.InDelta(t, values[i].X, vx, 1e-6, "center %d x", i)
	}
}

func TestFitSpline_ReproducesAffine(t *testing.T) {
	t.Parallel()
	affine := func(p scanconv.Point) scanconv.Point {
		return scanconv.Point{Y: 2 + 0.5*p.Y - 0.25*p.X, X: -1 + 0.1*p.Y + 1.5*p.X}
	}
	centers := gridPoints()
	values := make([]scanconv.Point, len(centers))
	for i, c := range centers {
		values[i] = affine(c)
	}

	s, err := FitSpline(centers, values, 0)
	require.NoError(t, err)

	for _, p := range []scanconv.Point{{Y: 3, X: 7}, {Y: 17.5, X: 22}, {Y: 40, X: -5}} {
		want := affine(p)
		vy, vx := s.At(p.Y, p.X)
		assert.InDelta(t, want.Y, vy, 1e-6)
		assert.InDelta(t, want.X, vx, 1e-6)
	}
}

func TestFitSpline_Errors(t *testing.T) {
	t.Parallel()

	_, err := FitSpline(gridPoints()[:2], gridPoints()[:2], 0)
	assert.ErrorIs(t, err, ErrTooFewControlPoints)

	_, err = FitSpline(gridPoints(), gridPoints()[:4], 0)
	assert.ErrorIs(t, err, scanconv.ErrShapeMismatch)

	dup := append(gridPoints(), scanconv.Point{Y: 10, X: 15})
	vals := make([]scanconv.Point, len(dup))
	vals[len(vals)-1] = scanconv.Point{Y: 1, X: 1}
	_, err = FitSpline(dup, vals, 0)
	assert.ErrorIs(t, err, ErrSingularSpline)
}

func TestFitSpline_RegularizationToleratesDuplicates(t *testing.T) {
	t.Parallel()
	dup := append(gridPoints(), scanconv.Point{Y: 10, X: 15})
	vals := make([]scanconv.Point, len(dup))
	_, err := FitSpline(dup, vals, 0.5)
	assert.NoError(t, err)
}

func TestThinPlateSpline_IdentityWhenPointsMatch(t *testing.T) {
	t.Parallel()
	img := rampImage(21, 31)
	pts := gridPoints()

	out, err := ThinPlateSpline{}.Warp(img, pts, pts)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(img, out, 1e-9))
}

func TestThinPlateSpline_Translation(t *testing.T) {
	t.Parallel()
	img := rampImage(21, 31)
	src := gridPoints()
	dst := make([]scanconv.Point, len(src))
	for i, p := range src {
		dst[i] = scanconv.Point{Y: p.Y, X: p.X + 1}
	}

	out, err := ThinPlateSpline{Workers: 3}.Warp(img, src, dst)
	require.NoError(t, err)

	// Content moves one column to the right.
	for _, y := range []int{0, 5, 20} {
		for _, x := range []int{1, 10, 30} {
			assert.InDelta(t, img.At(y, x-1), out.At(y, x), 1e-6, "pixel (%d,%d)", y, x)
		}
	}
}

func TestThinPlateSpline_ShapeMismatch(t *testing.T) {
	t.Parallel()
	_, err := ThinPlateSpline{}.Warp(rampImage(5, 5), gridPoints(), gridPoints()[:5])
	assert.ErrorIs(t, err, scanconv.ErrShapeMismatch)
}

func TestFunc_Adapter(t *testing.T) {
	t.Parallel()
	called := false
	var w Warper = Func(func(img *mat.Dense, _, _ []scanconv.Point) (*mat.Dense, error) {
		called = true
		return img, nil
	})
	img := rampImage(2, 2)
	out, err := w.Warp(img, nil, nil)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Same(t, img, out)
}
