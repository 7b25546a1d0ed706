// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across the scan conversion test files.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertDims checks that img is rows x cols.
func AssertDims(t testing.TB, img mat.Matrix, rows, cols int) {
	t.Helper()
	r, c := img.Dims()
	if r != rows || c != cols {
		t.Errorf("dims = %dx%d, want %dx%d", r, c, rows, cols)
	}
}

// AssertFinite fails the test if img holds any NaN or infinite value.
func AssertFinite(t testing.TB, img mat.Matrix) {
	t.Helper()
	r, c := img.Dims()
	for y := 0; y < r; y++ {
		for x := 0; x < c; x++ {
			if v := img.At(y, x); math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("non-finite value %v at (%d,%d)", v, y, x)
			}
		}
	}
}

// Frame returns a rows x cols frame whose pixel (y, x) is f(y, x).
func Frame(rows, cols int, f func(y, x int) float64) *mat.Dense {
	img := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			img.Set(y, x, f(y, x))
		}
	}
	return img
}
