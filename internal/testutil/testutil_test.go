package testutil

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()

	// Verify nil error doesn't cause issues
	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	t.Parallel()
	AssertError(t, errors.ErrUnsupported)
}

func TestAssertDims(t *testing.T) {
	t.Parallel()
	AssertDims(t, mat.NewDense(3, 7, nil), 3, 7)
}

func TestAssertFinite(t *testing.T) {
	t.Parallel()
	AssertFinite(t, mat.NewDense(2, 2, []float64{0, 1, -1, 1e300}))
}

func TestFrame(t *testing.T) {
	t.Parallel()

	img := Frame(2, 3, func(y, x int) float64 { return float64(10*y + x) })
	AssertDims(t, img, 2, 3)
	if got := img.At(1, 2); got != 12 {
		t.Errorf("At(1,2) = %v, want 12", got)
	}
}
