package ins

import "math"

// Quaternion kinematics follow the teacher's functional q0,q1,q2,q3 calling
// convention (ahrs/quaternions.go's ToQuaternion/FromQuaternion) rather than
// a Quat struct, generalized from the teacher's single aircraft-attitude
// quaternion to drive both the attitude quaternion and, with the Earth/
// transport rate in place of body rate, the position quaternion.

// QuatMultiply returns the Hamilton product q ⊗ r.
func QuatMultiply(q0, q1, q2, q3, r0, r1, r2, r3 float64) (float64, float64, float64, float64) {
	return q0*r0 - q1*r1 - q2*r2 - q3*r3,
		q0*r1 + q1*r0 + q2*r3 - q3*r2,
		q0*r2 - q1*r3 + q2*r0 + q3*r1,
		q0*r3 + q1*r2 - q2*r1 + q3*r0
}

// QuatNormalize rescales q to unit norm.
func QuatNormalize(q0, q1, q2, q3 float64) (float64, float64, float64, float64) {
	n := math.Sqrt(q0*q0 + q1*q1 + q2*q2 + q3*q3)
	if n == 0 {
		return 1, 0, 0, 0
	}
	return q0 / n, q1 / n, q2 / n, q3 / n
}

// QuatIntegrate advances a rotation quaternion q over dt under angular rate
// (wx,wy,wz) expressed in the frame q rotates vectors out of (the body
// frame for the body-to-NED attitude quaternion), via the first-order
// Taylor expansion of the quaternion exponential, then renormalizes. This
// same routine drives both the attitude quaternion (body rate) and the
// position quaternion (Earth/transport rate), per spec.md §4.2's shared
// mechanization structure.
func QuatIntegrate(q0, q1, q2, q3, wx, wy, wz, dt float64) (float64, float64, float64, float64) {
	dq0, dq1, dq2, dq3 := QuatMultiply(q0, q1, q2, q3, 0, wx, wy, wz)
	return QuatNormalize(q0+0.5*dt*dq0, q1+0.5*dt*dq1, q2+0.5*dt*dq2, q3+0.5*dt*dq3)
}

// QuatConjugate returns the conjugate (inverse, for unit quaternions) of q.
func QuatConjugate(q0, q1, q2, q3 float64) (float64, float64, float64, float64) {
	return q0, -q1, -q2, -q3
}

// RotateVector rotates vector v from the frame q is expressed relative to
// into the frame q rotates into: v' = q ⊗ (0,v) ⊗ q*.
func RotateVector(q0, q1, q2, q3, vx, vy, vz float64) (float64, float64, float64) {
	t0, t1, t2, t3 := QuatMultiply(q0, q1, q2, q3, 0, vx, vy, vz)
	c0, c1, c2, c3 := QuatConjugate(q0, q1, q2, q3)
	_, x, y, z := QuatMultiply(t0, t1, t2, t3, c0, c1, c2, c3)
	return x, y, z
}

// EulerFromQuat returns the roll, pitch, yaw (rad) of a body-to-NED
// attitude quaternion under the standard ZYX (yaw-pitch-roll) convention.
func EulerFromQuat(q0, q1, q2, q3 float64) (roll, pitch, yaw float64) {
	roll = math.Atan2(2*(q0*q1+q2*q3), 1-2*(q1*q1+q2*q2))
	sinp := 2 * (q0*q2 - q3*q1)
	if sinp > 1 {
		sinp = 1
	} else if sinp < -1 {
		sinp = -1
	}
	pitch = math.Asin(sinp)
	yaw = math.Atan2(2*(q0*q3+q1*q2), 1-2*(q2*q2+q3*q3))
	return
}

// QuatFromEuler builds a body-to-NED attitude quaternion from roll, pitch,
// yaw (rad) under the standard ZYX convention.
func QuatFromEuler(roll, pitch, yaw float64) (float64, float64, float64, float64) {
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)
	q0 := cr*cp*cy + sr*sp*sy
	q1 := sr*cp*cy - cr*sp*sy
	q2 := cr*sp*cy + sr*cp*sy
	q3 := cr*cp*sy - sr*sp*cy
	return QuatNormalize(q0, q1, q2, q3)
}

// PositionQuaternion builds the quaternion rotating the ECEF frame into the
// north-wander-pointing geographic frame at the given geodetic latitude and
// longitude (rad), per Titterton & Weston's closed form; wander angle is
// tracked separately (State.Wander) rather than folded into this
// quaternion, per the Open Question decision recorded in DESIGN.md (the
// engine runs north-slaved, not pole-robust free-azimuth, mechanization).
func PositionQuaternion(lat, lon float64) (float64, float64, float64, float64) {
	half := -math.Pi/4 - lat/2
	ch, sh := math.Cos(half), math.Sin(half)
	cl, sl := math.Cos(lon/2), math.Sin(lon/2)
	return ch * cl, -sh * sl, sh * cl, ch * sl
}

// LatLonFromQuaternion recovers geodetic latitude and longitude (rad) from
// a position quaternion built by PositionQuaternion.
func LatLonFromQuaternion(q0, q1, q2, q3 float64) (lat, lon float64) {
	half := math.Atan2(q2, q0)
	lat = -2*half - math.Pi/2
	lon = 2 * math.Atan2(q3, q0)
	return
}
