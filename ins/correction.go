package ins

import (
	"math"

	"github.com/westphae/insgps/matrix"
)

// ApplyErrorState injects a Kalman correction vector dx (ordered position
// error in NED meters, velocity error, small-angle attitude error, and
// optionally accelerometer/gyro bias error, matching errorStateJacobian's
// row order) into State, then renormalizes. Position error is converted
// back to latitude/longitude using the local meridian/transverse radii;
// attitude error is applied as a small-angle quaternion correction rather
// than an additive Euler update, since the attitude error state is itself
// defined in the quaternion's tangent space.
func ApplyErrorState(s *State, dx *matrix.Dense) {
	lat, lon := s.LatLon()
	rm := MeridianRadius(lat) + s.H
	rn := TransverseRadius(lat) + s.H

	dLat := dx.At(0, 0) / rm
	dLon := dx.At(1, 0) / (rn * cosOrOne(lat))
	dH := -dx.At(2, 0)

	lat += dLat
	lon += dLon
	s.H += dH
	s.P0, s.P1, s.P2, s.P3 = PositionQuaternion(lat, lon)

	s.Vn += dx.At(3, 0)
	s.Ve += dx.At(4, 0)
	s.Vd += dx.At(5, 0)

	// Small-angle attitude correction: q_corrected = dq(ψ) ⊗ q, with
	// dq(ψ) ≈ (1, ψ/2).
	psiN, psiE, psiD := dx.At(6, 0), dx.At(7, 0), dx.At(8, 0)
	dq0, dq1, dq2, dq3 := 1.0, psiN/2, psiE/2, psiD/2
	s.Q0, s.Q1, s.Q2, s.Q3 = QuatMultiply(dq0, dq1, dq2, dq3, s.Q0, s.Q1, s.Q2, s.Q3)

	rows, _ := dx.Dims()
	if s.Biased && rows >= 15 {
		for i := 0; i < 3; i++ {
			s.AccelBias[i] += dx.At(9+i, 0)
			s.GyroBias[i] += dx.At(12+i, 0)
		}
	}

	s.normalize()
}

func cosOrOne(lat float64) float64 {
	c := math.Cos(lat)
	if c == 0 {
		return 1e-9
	}
	return c
}
