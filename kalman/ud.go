package kalman

import "github.com/westphae/insgps/matrix"

// UD implements the UD-factorized (Bierman/Thornton) filter variant
// spec.md §4.3 calls for as the --use_udkf alternative: covariance is
// carried as P = U D Uᵀ, and measurement updates use matrix.UD's rank-1
// Bierman scalar update directly rather than forming P explicitly. The
// time update, for tractability, reconstructs P = UDUᵀ, propagates it by
// the same FPFᵀ+Qdt rule as Standard, and re-factors — see DESIGN.md for
// why this trades away some of Thornton's factorized time-update
// stability in exchange for not re-deriving modified weighted
// Gram-Schmidt from scratch; the measurement path, where the factorized
// form matters most for numerical conditioning, is genuinely UD/Bierman.
type UD struct {
	dim int
	ud  *matrix.UD
}

// NewUD constructs a UD filter from an initial covariance (must be
// symmetric positive semi-definite and dim×dim).
func NewUD(dim int, p0 *matrix.Dense) (*UD, error) {
	ud, err := matrix.DecomposeUD(matrix.ViewOf(p0))
	if err != nil {
		return nil, err
	}
	return &UD{dim: dim, ud: ud}, nil
}

func (u *UD) Dim() int { return u.dim }

// Covariance reconstructs P = U D Uᵀ on demand.
func (u *UD) Covariance() *matrix.Dense { return u.ud.Reconstruct() }

// SetCovariance re-factors a new covariance matrix into U and D in place.
func (u *UD) SetCovariance(p *matrix.Dense) {
	if ud, err := matrix.DecomposeUD(matrix.ViewOf(p)); err == nil {
		u.ud = ud
	}
}

// TimeUpdate reconstructs P, applies the standard FPFᵀ+Qdt propagation,
// symmetrizes, clamps, and re-factors into U/D.
func (u *UD) TimeUpdate(f, q *matrix.Dense, dt float64) {
	p := u.ud.Reconstruct()
	p = f.Mul(p).Mul(f.T()).Add(q.Scale(dt))
	p = p.Symmetrize()
	p.ClampDiagonalNonNegative()
	if ud, err := matrix.DecomposeUD(matrix.ViewOf(p)); err == nil {
		u.ud = ud
	}
}

// ScalarUpdate performs Bierman's rank-1 scalar measurement update
// directly on U and D, returning the correction δx = gain·z.
func (u *UD) ScalarUpdate(h *matrix.Dense, z, r float64) (*matrix.Dense, float64, error) {
	gain, innovCov := u.ud.BiermanUpdate(h, r)
	return gain.Scale(z), innovCov, nil
}
