package kalman

import (
	"math"

	"github.com/westphae/insgps/ins"
	"github.com/westphae/insgps/matrix"
	"github.com/westphae/insgps/packet"
)

// PositionVelocityResidual builds the error-state measurement (z, H, R)
// for a GPS fix against the current navigation state, per spec.md §4.3's
// linearized measurement model. Position residual is expressed in local
// NED meters (consistent with the position-error units errorStateJacobian
// uses); when the fix carries a lever arm, the antenna offset couples the
// position row into the attitude-error columns, and the velocity row
// picks up the rigid-body term r_b × ω_b (rotated into NED) induced by
// the vehicle's own rotation about the IMU, per spec.md §4.3/§4.5. omegaB
// is the averaged body-frame angular rate around the fix's itow (see
// fusion.aBuffer.MeanOmegaNear); it is ignored when hasLeverArm is false.
func PositionVelocityResidual(s *ins.State, sol packet.GPSSolution, leverArm packet.Vec3, hasLeverArm bool, omegaB [3]float64) (z []float64, h *matrix.Dense, r []float64) {
	dim := s.Dim()
	lat, lon := s.LatLon()
	rm := ins.MeridianRadius(lat) + s.H
	rn := ins.TransverseRadius(lat) + s.H

	dN := (sol.Lat - lat) * rm
	dE := (sol.Lon - lon) * rn * math.Cos(lat)
	dD := -(sol.H - s.H)

	dVn := sol.Vn - s.Vn
	dVe := sol.Ve - s.Ve
	dVd := sol.Vd - s.Vd

	ln, le, ld := 0.0, 0.0, 0.0
	lvn, lve, lvd := 0.0, 0.0, 0.0
	if hasLeverArm {
		ln, le, ld = s.RotateBodyToNED(leverArm.X, leverArm.Y, leverArm.Z)
		dN -= ln
		dE -= le
		dD -= ld

		rxwX, rxwY, rxwZ := cross3([3]float64{leverArm.X, leverArm.Y, leverArm.Z}, omegaB)
		lvn, lve, lvd = s.RotateBodyToNED(rxwX, rxwY, rxwZ)
		dVn -= lvn
		dVe -= lve
		dVd -= lvd
	}

	z = []float64{dN, dE, dD, dVn, dVe, dVd}
	r = []float64{sq(sol.Sigma2D), sq(sol.Sigma2D), sq(sol.SigmaH), sq(sol.SigmaVel), sq(sol.SigmaVel), sq(sol.SigmaVel)}

	h = matrix.NewDense(6, dim)
	for i := 0; i < 3; i++ {
		h.Set(i, i, 1)
		h.Set(3+i, 3+i, 1)
	}
	if hasLeverArm {
		skewArm := skew3(ln, le, ld)
		skewVelArm := skew3(lvn, lve, lvd)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				h.Set(i, 6+j, -skewArm[i][j])
				h.Set(3+i, 6+j, -skewVelArm[i][j])
			}
		}
	}
	return
}

// cross3 returns a × b.
func cross3(a, b [3]float64) (float64, float64, float64) {
	return a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0]
}

// YawResidual builds the scalar yaw auxiliary update (h, z, r) of spec.md
// §4.3/§4.5: H selects the down-axis attitude error, z is the wrapped
// heading residual, R is the configured magnetic heading accuracy.
func YawResidual(s *ins.State, measuredYaw, sigmaYaw float64) (h *matrix.Dense, z, r float64) {
	dim := s.Dim()
	_, _, predictedYaw := s.RollPitchYaw()
	z = wrapPi(measuredYaw - predictedYaw)
	r = sigmaYaw * sigmaYaw
	h = matrix.NewDense(1, dim)
	h.Set(0, 8, 1)
	return
}

func wrapPi(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func sq(v float64) float64 { return v * v }

func skew3(x, y, z float64) [3][3]float64 {
	return [3][3]float64{
		{0, -z, y},
		{z, 0, -x},
		{-y, x, 0},
	}
}
