package matrix

import "github.com/westphae/insgps/ferr"

// LU holds the result of a partial-pivoting LU decomposition: PA = LU, with
// L unit-lower-triangular and U upper-triangular. Pivot records the row
// permutation actually applied (Pivot[i] = j means row j of A ended up in
// row i of L·U), and Swaps counts the number of row exchanges performed, so
// Determinant can recover the sign. Grounded on
// original_source/tool/param/matrix.h's decomposeLUP.
type LU struct {
	L     *Dense
	U     *Dense
	Pivot []int
	Swaps int
}

// DecomposeLU factors a (tolerant of view-wrapped input) matrix via
// Gaussian elimination with partial pivoting. It fails with
// ferr.SingularMatrix when a zero pivot cannot be eliminated by row
// exchange.
func DecomposeLU(a View) (*LU, error) {
	n, cols := a.Dims()
	if n != cols {
		return nil, ferr.New(ferr.SingularMatrix, "LU: matrix not square")
	}

	u := a.Materialize()
	l := Eye(n)
	pivot := make([]int, n)
	for i := range pivot {
		pivot[i] = i
	}
	swaps := 0

	for i := 0; i < n; i++ {
		if u.At(i, i) == 0 {
			j := i
			for {
				j++
				if j == n {
					return nil, ferr.New(ferr.SingularMatrix, "LU decomposition cannot be performed")
				}
				if u.At(j, i) != 0 {
					break
				}
			}
			u.ExchangeRows(i, j)
			// Exchange already-computed multipliers in L below the diagonal.
			for k := 0; k < i; k++ {
				tmp := l.At(i, k)
				l.Set(i, k, l.At(j, k))
				l.Set(j, k, tmp)
			}
			pivot[i], pivot[j] = pivot[j], pivot[i]
			swaps++
		}
		for r := i + 1; r < n; r++ {
			factor := u.At(r, i) / u.At(i, i)
			l.Set(r, i, factor)
			for c := i; c < n; c++ {
				u.Set(r, c, u.At(r, c)-factor*u.At(i, c))
			}
		}
	}

	return &LU{L: l, U: u, Pivot: pivot, Swaps: swaps}, nil
}

// Determinant computes det(A) via LU decomposition: the product of U's
// diagonal, sign-flipped once per row exchange.
func Determinant(a View) (float64, error) {
	lu, err := DecomposeLU(a)
	if err != nil {
		return 0, err
	}
	n, _ := a.Dims()
	det := 1.0
	if lu.Swaps%2 == 1 {
		det = -1.0
	}
	for i := 0; i < n; i++ {
		det *= lu.U.At(i, i)
	}
	return det, nil
}

// Solve solves Ax = y given A's LU factors (forward then backward
// substitution), honoring the row permutation recorded in Pivot.
func (lu *LU) Solve(y *Dense) *Dense {
	n, _ := lu.L.Dims()
	py := NewDense(n, 1)
	for i := 0; i < n; i++ {
		py.Set(i, 0, y.At(lu.Pivot[i], 0))
	}

	// Forward substitution: L z = Py
	z := NewDense(n, 1)
	for i := 0; i < n; i++ {
		sum := py.At(i, 0)
		for k := 0; k < i; k++ {
			sum -= lu.L.At(i, k) * z.At(k, 0)
		}
		z.Set(i, 0, sum/lu.L.At(i, i))
	}

	// Backward substitution: U x = z
	x := NewDense(n, 1)
	for i := n - 1; i >= 0; i-- {
		sum := z.At(i, 0)
		for k := i + 1; k < n; k++ {
			sum -= lu.U.At(i, k) * x.At(k, 0)
		}
		x.Set(i, 0, sum/lu.U.At(i, i))
	}
	return x
}
