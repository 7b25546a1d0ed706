package scanconv

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLinspace(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Linspace(0, 1, 0))
	assert.Equal(t, []float64{3}, Linspace(3, 9, 1))
	assert.InDeltaSlice(t, []float64{0, 25, 50, 75, 100}, Linspace(0, 100, 5), 1e-12)
	assert.InDeltaSlice(t, []float64{-1, 0, 1}, Linspace(-1, 1, 3), 1e-12)
}

func TestPad(t *testing.T) {
	t.Parallel()
	src := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	out := Pad(src, 1, 0, 2, 2)
	r, c := out.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 6, c)

	want := mat.NewDense(3, 6, []float64{
		0, 0, 0, 0, 0, 0,
		0, 0, 1, 2, 0, 0,
		0, 0, 3, 4, 0, 0,
	})
	assert.True(t, mat.Equal(want, out), "padded = %v", mat.Formatted(out))

	// Negative pads clamp to zero and the source is left alone.
	same := Pad(src, -3, 0, -1, 0)
	assert.True(t, mat.Equal(src, same))
	same.Set(0, 0, 99)
	assert.Equal(t, 1.0, src.At(0, 0))
}

func TestCropTop(t *testing.T) {
	t.Parallel()
	img := mat.NewDense(4, 2, []float64{1, 1, 2, 2, 3, 3, 4, 4})

	out, err := CropTop(img, 1)
	require.NoError(t, err)
	r, _ := out.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2.0, out.At(0, 0))

	out, err = CropTop(img, 0)
	require.NoError(t, err)
	assert.True(t, mat.Equal(img, out))

	_, err = CropTop(img, 4)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = CropTop(img, -1)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSampleBilinear(t *testing.T) {
	t.Parallel()
	img := mat.NewDense(2, 2, []float64{0, 10, 20, 30})

	assert.InDelta(t, 0.0, SampleBilinear(img, 0, 0), 1e-12)
	assert.InDelta(t, 5.0, SampleBilinear(img, 0, 0.5), 1e-12)
	assert.InDelta(t, 15.0, SampleBilinear(img, 0.5, 0.5), 1e-12)
	// Clamped outside the image.
	assert.InDelta(t, 30.0, SampleBilinear(img, 5, 5), 1e-12)
	assert.InDelta(t, 0.0, SampleBilinear(img, -2, -2), 1e-12)
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 0.5, Normalize(5, 0, 10), 1e-12)
	assert.Equal(t, 0.0, Normalize(7, 7, 7))
}

func TestParallelFor_CoversRange(t *testing.T) {
	t.Parallel()
	for _, workers := range []int{0, 1, 3, 64} {
		var seen [100]atomic.Int32
		err := ParallelFor(context.Background(), len(seen), workers, func(_ context.Context, start, end int) error {
			for i := start; i < end; i++ {
				seen[i].Add(1)
			}
			return nil
		})
		require.NoError(t, err)
		for i := range seen {
			assert.Equal(t, int32(1), seen[i].Load(), "workers=%d index=%d", workers, i)
		}
	}
}

func TestParallelFor_PropagatesError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	err := ParallelFor(context.Background(), 10, 4, func(_ context.Context, start, _ int) error {
		if start == 0 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestParallelFor_Empty(t *testing.T) {
	t.Parallel()
	called := false
	err := ParallelFor(context.Background(), 0, 4, func(context.Context, int, int) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.False(t, called)
}
