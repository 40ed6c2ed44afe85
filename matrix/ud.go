package matrix

import "github.com/westphae/insgps/ferr"

// UD holds the Bierman/Thornton U-D factorization of a symmetric
// positive-semidefinite matrix: P = U D Uᵀ, with U unit-upper-triangular
// and D diagonal, non-negative. Grounded on
// original_source/tool/param/matrix.h's decomposeUD.
type UD struct {
	U *Dense
	D *Dense // diagonal matrix; off-diagonal entries are zero
}

// DecomposeUD factors a symmetric PSD matrix (tolerant of view-wrapped
// input) into its U and D factors.
func DecomposeUD(a View) (*UD, error) {
	n, cols := a.Dims()
	if n != cols {
		return nil, ferr.New(ferr.SingularMatrix, "UD: matrix not square")
	}
	if !a.Materialize().IsSymmetric(1e-9) {
		return nil, ferr.New(ferr.SingularMatrix, "UD: matrix not symmetric")
	}

	p := a.Materialize()
	u := Eye(n)
	d := NewDense(n, n)

	for i := n - 1; i >= 0; i-- {
		dii := p.At(i, i)
		d.Set(i, i, dii)
		if dii < 0 {
			return nil, ferr.New(ferr.SingularMatrix, "UD: negative diagonal encountered")
		}
		for j := 0; j < i; j++ {
			var uji float64
			if dii != 0 {
				uji = p.At(j, i) / dii
			}
			u.Set(j, i, uji)
			for k := 0; k <= j; k++ {
				p.Set(k, j, p.At(k, j)-u.At(k, i)*dii*uji)
			}
		}
	}
	return &UD{U: u, D: d}, nil
}

// Reconstruct returns U D Uᵀ, used to verify the factorization against the
// standard-form covariance within 1e-9 (testable property #5).
func (ud *UD) Reconstruct() *Dense {
	return ud.U.Mul(ud.D).Mul(ud.U.T())
}

// BiermanUpdate performs a single scalar (rank-1) measurement update on the
// U-D factors in place: given observation row h (1×n) and measurement
// variance r, it updates U, D and returns the Kalman gain column k and the
// innovation covariance scalar; the caller scales k by its innovation
// y = z − h x̂ to get the state correction. This is the numerically-stable alternative to the
// Joseph-form covariance update, applied once per scalar measurement
// component in sequence (spec §4.3).
func (ud *UD) BiermanUpdate(h *Dense, r float64) (gain *Dense, innovationCov float64) {
	n, _ := ud.U.Dims()

	// f = Uᵀ h, v_i = D_ii * f_i
	f := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := h.At(0, i)
		for j := i + 1; j < n; j++ {
			sum += ud.U.At(i, j) * h.At(0, j)
		}
		f[i] = sum
	}
	v := make([]float64, n)
	for i := 0; i < n; i++ {
		v[i] = ud.D.At(i, i) * f[i]
	}

	alpha := r
	for i := 0; i < n; i++ {
		alpha += f[i] * v[i]
	}
	_ = alpha // alpha_0 = r; recurrence below recomputes alpha_j progressively

	gainVec := make([]float64, n)
	alphaPrev := r
	gainVec[0] = v[0]
	dNew := make([]float64, n)
	dNew[0] = ud.D.At(0, 0) * alphaPrev / (alphaPrev + f[0]*v[0])
	alphaPrev += f[0] * v[0]

	uNew := ud.U.Clone()
	for j := 1; j < n; j++ {
		alphaOld := alphaPrev
		alphaPrev = alphaOld + f[j]*v[j]
		dNew[j] = ud.D.At(j, j) * alphaOld / alphaPrev
		pj := -f[j] / alphaOld
		for i := 0; i < j; i++ {
			uij := ud.U.At(i, j)
			uNew.Set(i, j, uij+gainVec[i]*pj)
			gainVec[i] += v[j] * uij
		}
		gainVec[j] = v[j]
	}

	ud.U = uNew
	for i := 0; i < n; i++ {
		ud.D.Set(i, i, dNew[i])
	}

	gain = NewDense(n, 1)
	for i := 0; i < n; i++ {
		gain.Set(i, 0, gainVec[i]/alphaPrev)
	}
	return gain, alphaPrev
}
