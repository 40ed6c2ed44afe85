// Package matrix provides the dense matrix kernel used by ins, kalman and
// timesync: element access, +/-/scalar *//, matrix product, composable views
// (transpose, partial window), and the decompositions (LU, UD, Hessenberg,
// eigen) that github.com/skelterjohn/go.matrix — the teacher dependency used
// for basic dense arithmetic throughout this engine — does not itself
// provide. Those are implemented here directly atop *go_matrix.DenseMatrix,
// grounded on the NinjaScan INS/GPS post-processor's param/matrix.h.
package matrix

import (
	"fmt"

	gomatrix "github.com/skelterjohn/go.matrix"

	"github.com/westphae/insgps/ferr"
)

// Dense is a materialized (viewless) dense matrix. It owns its storage; no
// other Dense or View aliases it unless explicitly constructed to do so.
type Dense struct {
	d *gomatrix.DenseMatrix
}

// NewDense allocates a rows×cols matrix of zeros.
func NewDense(rows, cols int) *Dense {
	return &Dense{d: gomatrix.Zeros(rows, cols)}
}

// Eye returns the n×n identity matrix.
func Eye(n int) *Dense {
	return &Dense{d: gomatrix.Eye(n)}
}

// Diag returns a diagonal matrix with the given entries.
func Diag(entries []float64) *Dense {
	return &Dense{d: gomatrix.Diagonal(entries)}
}

// FromRows builds a Dense from row-major data; each inner slice is one row.
func FromRows(rows [][]float64) *Dense {
	if len(rows) == 0 {
		return NewDense(0, 0)
	}
	m := NewDense(len(rows), len(rows[0]))
	for i, row := range rows {
		for j, v := range row {
			m.Set(i, j, v)
		}
	}
	return m
}

// Dims returns the matrix's row and column counts.
func (m *Dense) Dims() (rows, cols int) {
	return m.d.GetSize()
}

// At returns the (i,j) element.
func (m *Dense) At(i, j int) float64 { return m.d.Get(i, j) }

// Set assigns the (i,j) element.
func (m *Dense) Set(i, j int, v float64) { m.d.Set(i, j, v) }

// Clone returns a deep, independent copy.
func (m *Dense) Clone() *Dense {
	rows, cols := m.Dims()
	out := NewDense(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(i, j))
		}
	}
	return out
}

// Add returns m + other.
func (m *Dense) Add(other *Dense) *Dense {
	return &Dense{d: gomatrix.Sum(m.d, other.d)}
}

// Sub returns m − other.
func (m *Dense) Sub(other *Dense) *Dense {
	return &Dense{d: gomatrix.Difference(m.d, other.d)}
}

// Scale returns m × f.
func (m *Dense) Scale(f float64) *Dense {
	return &Dense{d: gomatrix.Scaled(m.d, f)}
}

// Mul returns m × other.
func (m *Dense) Mul(other *Dense) *Dense {
	return &Dense{d: gomatrix.Product(m.d, other.d)}
}

// T returns the transpose as a fresh materialization.
func (m *Dense) T() *Dense {
	return &Dense{d: m.d.Transpose()}
}

// Symmetrize returns (m + mᵀ)/2, used after every covariance update per the
// P ← (P + Pᵀ)/2 invariant.
func (m *Dense) Symmetrize() *Dense {
	return m.Add(m.T()).Scale(0.5)
}

// ClampDiagonalNonNegative zeroes any negative diagonal entry in place and
// reports how many entries were clamped (used to detect repeated
// CovarianceNotPSD occurrences upstream).
func (m *Dense) ClampDiagonalNonNegative() int {
	rows, _ := m.Dims()
	clamped := 0
	for i := 0; i < rows; i++ {
		if m.At(i, i) < 0 {
			m.Set(i, i, 0)
			clamped++
		}
	}
	return clamped
}

// Inverse computes the matrix inverse via the underlying Gauss-Jordan
// elimination, wrapping a failure to eliminate a zero pivot as
// ferr.SingularMatrix.
func (m *Dense) Inverse() (*Dense, error) {
	inv, err := m.d.Inverse()
	if err != nil {
		return nil, ferr.Wrap(ferr.SingularMatrix, "matrix inverse", err)
	}
	return &Dense{d: inv}, nil
}

// IsSquare reports whether rows == cols.
func (m *Dense) IsSquare() bool {
	r, c := m.Dims()
	return r == c
}

// IsSymmetric reports whether m(i,j) == m(j,i) within tol for all i,j.
func (m *Dense) IsSymmetric(tol float64) bool {
	rows, cols := m.Dims()
	if rows != cols {
		return false
	}
	for i := 0; i < rows; i++ {
		for j := i + 1; j < cols; j++ {
			d := m.At(i, j) - m.At(j, i)
			if d > tol || d < -tol {
				return false
			}
		}
	}
	return true
}

// PivotMerge adds a smaller matrix sub into m's (row,col)-rooted sub-block
// in place, returning m. Grounded on matrix.h's pivotMerge, used by
// Hessenberg reduction and the double-shift QR eigensolver to apply a
// Householder reflector to a sub-block of a larger matrix without
// materializing the full-size reflector.
func (m *Dense) PivotMerge(row, col int, sub *Dense) *Dense {
	subRows, subCols := sub.Dims()
	for i := 0; i < subRows; i++ {
		for j := 0; j < subCols; j++ {
			m.Set(row+i, col+j, m.At(row+i, col+j)+sub.At(i, j))
		}
	}
	return m
}

// ExchangeRows swaps rows i and j in place.
func (m *Dense) ExchangeRows(i, j int) {
	_, cols := m.Dims()
	for k := 0; k < cols; k++ {
		tmp := m.At(i, k)
		m.Set(i, k, m.At(j, k))
		m.Set(j, k, tmp)
	}
}

// ExchangeCols swaps columns i and j in place.
func (m *Dense) ExchangeCols(i, j int) {
	rows, _ := m.Dims()
	for k := 0; k < rows; k++ {
		tmp := m.At(k, i)
		m.Set(k, i, m.At(k, j))
		m.Set(k, j, tmp)
	}
}

func (m *Dense) String() string {
	rows, cols := m.Dims()
	s := ""
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			s += fmt.Sprintf("%10.4g", m.At(i, j))
		}
		s += "\n"
	}
	return s
}
