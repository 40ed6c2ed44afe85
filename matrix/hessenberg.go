package matrix

import (
	"math"

	"github.com/westphae/insgps/ferr"
)

// Hessenberg reduces a square matrix to upper-Hessenberg form via
// successive Householder reflections, optionally accumulating the
// similarity transform into transform (if non-nil, transform must start as
// the identity and is right-multiplied by each reflector so that, on
// return, transformᵀ * A * transform == the returned Hessenberg matrix).
// Grounded on
// original_source/tool/param/matrix.h's hessenberg().
func Hessenberg(a View, transform *Dense) (*Dense, error) {
	n, cols := a.Dims()
	if n != cols {
		return nil, ferr.New(ferr.SingularMatrix, "hessenberg: matrix not square")
	}
	result := a.Materialize()

	for j := 0; j < n-2; j++ {
		t := 0.0
		for i := j + 1; i < n; i++ {
			t += result.At(i, j) * result.At(i, j)
		}
		s := math.Sqrt(t)
		if result.At(j+1, j) < 0 {
			s = -s
		}

		omega := NewDense(n-(j+1), 1)
		omegaRows, _ := omega.Dims()
		for i := 0; i < omegaRows; i++ {
			omega.Set(i, 0, result.At(j+i+1, j))
		}
		omega.Set(0, 0, omega.At(0, 0)+s)

		p := Eye(n)
		denom := t + result.At(j+1, j)*s
		if denom != 0 {
			reflector := omega.Mul(omega.T()).Scale(-1 / denom)
			p.PivotMerge(j+1, j+1, reflector)
		}

		result = p.Mul(result).Mul(p)
		if transform != nil {
			*transform = *transform.Mul(p)
		}
	}

	sym := a.Materialize().IsSymmetric(1e-9)
	for j := 0; j < n-2; j++ {
		for i := j + 2; i < n; i++ {
			result.Set(i, j, 0)
			if sym {
				result.Set(j, i, 0)
			}
		}
	}
	return result, nil
}
