// Package kalman implements the EKF correction cycle (spec.md §4.3) in
// both standard (Joseph-form covariance) and UD-factorized (Bierman
// scalar update) variants, selected as a tagged variant at construction
// rather than through generic/template dispatch, per the REDESIGN FLAGS
// guidance on mechanization-variant selection. Grounded on the teacher's
// ahrs.Kalman0State/KalmanState predict/update structure, generalized from
// its single hard-coded state layout to the dimension-agnostic error-state
// vector ins.State.Dim() returns.
package kalman

import (
	"math"

	"github.com/westphae/insgps/ferr"
	"github.com/westphae/insgps/matrix"
)

// Filter is the capability set a constructed variant exposes: time update
// and scalar measurement update over an error-state covariance of fixed
// dimension, known at construction from ins.State.Dim().
type Filter interface {
	Dim() int
	Covariance() *matrix.Dense
	SetCovariance(p *matrix.Dense)
	TimeUpdate(f, q *matrix.Dense, dt float64)
	ScalarUpdate(h *matrix.Dense, z, r float64) (dx *matrix.Dense, innovationCov float64, err error)
}

// VectorUpdate applies several scalar updates in sequence — once per row
// of h/z/diag(r) — the standard way to process a correlated-free vector
// measurement (GPS position/velocity, with R assumed diagonal) through a
// Filter that only exposes a scalar primitive. Each row's residual is
// reduced by h_i times the correction already accumulated from earlier
// rows. Returns the accumulated correction.
func VectorUpdate(f Filter, h *matrix.Dense, z []float64, r []float64) (*matrix.Dense, error) {
	n := f.Dim()
	total := matrix.NewDense(n, 1)
	rows, _ := h.Dims()
	for i := 0; i < rows; i++ {
		hi := matrix.NewDense(1, n)
		for j := 0; j < n; j++ {
			hi.Set(0, j, h.At(i, j))
		}
		innov := z[i]
		for j := 0; j < n; j++ {
			innov -= hi.At(0, j) * total.At(j, 0)
		}
		dx, _, err := f.ScalarUpdate(hi, innov, r[i])
		if err != nil {
			return nil, err
		}
		total = total.Add(dx)
	}
	return total, nil
}

// Standard implements the textbook Joseph-form EKF: P ← FPFᵀ+Qdt on time
// update, K = PHᵀ(HPHᵀ+R)⁻¹ and P ← (I−KH)P(I−KH)ᵀ+KRKᵀ on measurement
// update. Grounded on ahrs.Kalman0State's predict/update, generalized to
// arbitrary dimension and to returning the correction rather than mutating
// a hard-coded State.
type Standard struct {
	dim         int
	p           *matrix.Dense
	lastClamped int
}

// NewStandard constructs a Standard filter with the given initial
// covariance (must be dim×dim).
func NewStandard(dim int, p0 *matrix.Dense) *Standard {
	return &Standard{dim: dim, p: p0}
}

func (s *Standard) Dim() int                      { return s.dim }
func (s *Standard) Covariance() *matrix.Dense      { return s.p }
func (s *Standard) SetCovariance(p *matrix.Dense)  { s.p = p }

// TimeUpdate propagates P ← FPFᵀ + Q·dt, then re-symmetrizes and clamps
// against CovarianceNotPSD per spec.md §7's recovery rule.
func (s *Standard) TimeUpdate(f, q *matrix.Dense, dt float64) {
	s.p = f.Mul(s.p).Mul(f.T()).Add(q.Scale(dt))
	s.p = s.p.Symmetrize()
	s.p.ClampDiagonalNonNegative()
}

// ScalarUpdate applies a single scalar measurement h·δx = z with variance
// r, returning the correction δx and the innovation covariance h P hᵀ + r.
func (s *Standard) ScalarUpdate(h *matrix.Dense, z, r float64) (*matrix.Dense, float64, error) {
	ph := s.p.Mul(h.T())
	innovCov := h.Mul(ph).At(0, 0) + r
	if innovCov <= 0 || math.IsNaN(innovCov) {
		return nil, 0, ferr.New(ferr.CovarianceNotPSD, "scalar update: non-positive innovation covariance")
	}
	k := ph.Scale(1 / innovCov)
	dx := k.Scale(z)

	ikh := matrix.Eye(s.dim).Sub(k.Mul(h))
	s.p = ikh.Mul(s.p).Mul(ikh.T()).Add(k.Mul(k.T()).Scale(r))
	s.p = s.p.Symmetrize()
	s.lastClamped = s.p.ClampDiagonalNonNegative()
	return dx, innovCov, nil
}

// LastClampCount reports how many diagonal entries the most recent
// ScalarUpdate clamped back to zero. The fusion controller does not read
// it: its FilterDiverged escalation counts the CovarianceNotPSD errors
// ScalarUpdate returns.
func (s *Standard) LastClampCount() int { return s.lastClamped }
