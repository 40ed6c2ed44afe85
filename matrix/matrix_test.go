package matrix

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNonsingular() *Dense {
	return FromRows([][]float64{
		{4, 3, 2},
		{1, 5, 1},
		{2, 2, 6},
	})
}

func sampleSymmetricPSD() *Dense {
	return FromRows([][]float64{
		{4, 1, 0},
		{1, 3, 1},
		{0, 1, 2},
	})
}

func TestInverseRoundTrip(t *testing.T) {
	a := sampleNonsingular()
	inv, err := a.Inverse()
	require.NoError(t, err)
	id := a.Mul(inv)
	n, _ := id.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, id.At(i, j), 1e-9)
		}
	}
}

func TestSingularMatrixFails(t *testing.T) {
	singular := FromRows([][]float64{
		{1, 2},
		{2, 4},
	})
	_, err := DecomposeLU(ViewOf(singular))
	require.Error(t, err)
}

func TestLUReconstructsWithPivot(t *testing.T) {
	a := sampleNonsingular()
	lu, err := DecomposeLU(ViewOf(a))
	require.NoError(t, err)
	reconstructed := lu.L.Mul(lu.U)
	n, _ := a.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.InDelta(t, a.At(lu.Pivot[i], j), reconstructed.At(i, j), 1e-9)
		}
	}
}

func TestUDReconstructsSymmetric(t *testing.T) {
	a := sampleSymmetricPSD()
	ud, err := DecomposeUD(ViewOf(a))
	require.NoError(t, err)
	rec := ud.Reconstruct()
	n, _ := a.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.InDelta(t, a.At(i, j), rec.At(i, j), 1e-9)
		}
	}
}

func TestHessenbergIsUpperHessenbergAndSimilar(t *testing.T) {
	a := FromRows([][]float64{
		{4, 1, 2, 0},
		{3, 4, 1, 7},
		{0, 2, 3, 4},
		{1, 1, 1, 1},
	})
	h, err := Hessenberg(ViewOf(a), nil)
	require.NoError(t, err)
	n, _ := h.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i > j+1 {
				assert.InDelta(t, 0, h.At(i, j), 1e-9)
			}
		}
	}

	eigA, err := DecomposeEigen(ViewOf(a), 0, 0)
	require.NoError(t, err)
	eigH, err := DecomposeEigen(ViewOf(h), 0, 0)
	require.NoError(t, err)
	sumA, sumH := 0.0, 0.0
	for i := 0; i < n; i++ {
		sumA += real(eigA.Values[i])
		sumH += real(eigH.Values[i])
	}
	assert.InDelta(t, sumA, sumH, 1e-6)
}

func TestEigenSatisfiesAvEqualsLambdaV(t *testing.T) {
	a := sampleSymmetricPSD()
	eig, err := DecomposeEigen(ViewOf(a), 0, 0)
	require.NoError(t, err)
	n, _ := a.Dims()
	for j := 0; j < n; j++ {
		if imag(eig.Values[j]) != 0 {
			continue
		}
		lambda := real(eig.Values[j])
		v := NewDense(n, 1)
		for i := 0; i < n; i++ {
			v.Set(i, 0, eig.Vectors.At(i, j))
		}
		av := a.Mul(v)
		for i := 0; i < n; i++ {
			assert.InDelta(t, lambda*v.At(i, 0), av.At(i, 0), 1e-6)
		}
	}
}

func TestViewTransposePartialComposition(t *testing.T) {
	a := sampleNonsingular()
	v := ViewOf(a).Transpose().Partial(2, 2, 1, 1)
	rows, cols := v.Dims()
	require.Equal(t, 2, rows)
	require.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			assert.Equal(t, a.At(j+1, i+1), v.At(i, j))
		}
	}
}

func TestSymmetrizeAndClamp(t *testing.T) {
	a := FromRows([][]float64{
		{-1, 2},
		{2.1, 3},
	})
	sym := a.Symmetrize()
	assert.InDelta(t, sym.At(0, 1), sym.At(1, 0), 1e-12)
	clamped := sym.ClampDiagonalNonNegative()
	assert.Equal(t, 1, clamped)
	assert.False(t, math.Signbit(sym.At(0, 0)) && sym.At(0, 0) != 0)
}
