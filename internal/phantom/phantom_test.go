package phantom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestConstant(t *testing.T) {
	img := Constant(3, 4, 2.5)
	r, c := img.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 4, c)
	assert.Equal(t, 2.5*12, mat.Sum(img))
}

func TestGradients(t *testing.T) {
	d := DepthGradient(5, 3)
	assert.Equal(t, 0.0, d.At(0, 2))
	assert.Equal(t, 1.0, d.At(4, 0))
	assert.Equal(t, 0.5, d.At(2, 1))

	l := LateralGradient(3, 5)
	assert.Equal(t, 0.0, l.At(2, 0))
	assert.Equal(t, 1.0, l.At(0, 4))
}

func TestTargets(t *testing.T) {
	img := Targets(40, 40, 10)
	assert.InDelta(t, 1.0, img.At(5, 5), 1e-12)
	assert.InDelta(t, 1.0, img.At(35, 25), 1e-12)
	assert.Equal(t, 0.0, img.At(0, 39))
	assert.Equal(t, 0.0, mat.Sum(Targets(4, 4, 0)))
}

func TestSpeckle_Deterministic(t *testing.T) {
	a := Speckle(16, 8, 42)
	b := Speckle(16, 8, 42)
	c := Speckle(16, 8, 43)
	assert.True(t, mat.Equal(a, b))
	assert.False(t, mat.Equal(a, c))
	assert.GreaterOrEqual(t, mat.Min(a), 0.0)
}

func TestGenerate(t *testing.T) {
	for _, k := range Kinds {
		t.Run(string(k), func(t *testing.T) {
			img, err := Generate(k, 24, 12, 1)
			require.NoError(t, err)
			r, c := img.Dims()
			assert.Equal(t, 24, r)
			assert.Equal(t, 12, c)
		})
	}

	_, err := Generate("nope", 4, 4, 0)
	assert.Error(t, err)
	_, err = Generate(KindConstant, 0, 4, 0)
	assert.Error(t, err)
}
