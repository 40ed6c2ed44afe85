package ins

import "math"

// State holds the complete navigation solution propagated by the strapdown
// mechanization, per spec.md §4.2. Field grouping mirrors the teacher's
// ahrs.State convention of named scalar components (P0-P3, Q0-Q3) rather
// than opaque vectors/quaternion types, generalized from the teacher's
// single aircraft-attitude quaternion to also carry the navigation
// position quaternion and NED kinematics this engine needs.
type State struct {
	P0, P1, P2, P3 float64 // Position quaternion, ECEF frame to geographic frame
	Wander         float64 // Wander angle, rad (always 0: see quaternion.go doc comment)
	H              float64 // Ellipsoidal height, m

	Vn, Ve, Vd float64 // NED velocity, m/s

	Q0, Q1, Q2, Q3 float64 // Attitude quaternion, body frame to NED frame

	Biased    bool
	AccelBias [3]float64 // Body-frame accelerometer bias, m/s^2
	GyroBias  [3]float64 // Body-frame gyro bias, rad/s

	T float64 // ITOW when state was last updated, s

	c11, c12, c13 float64 // cached body-to-NED rotation matrix
	c21, c22, c23 float64
	c31, c32, c33 float64
}

// NewState builds an identity-attitude state at the given geodetic
// position and zero velocity, ready for Initialize to overwrite attitude
// and velocity from the first measurements.
func NewState(lat, lon, h float64) *State {
	s := &State{H: h}
	s.P0, s.P1, s.P2, s.P3 = PositionQuaternion(lat, lon)
	s.Q0, s.Q1, s.Q2, s.Q3 = 1, 0, 0, 0
	s.calcRotationMatrix()
	return s
}

// LatLon returns the state's current geodetic latitude and longitude.
func (s *State) LatLon() (lat, lon float64) {
	return LatLonFromQuaternion(s.P0, s.P1, s.P2, s.P3)
}

// RollPitchYaw returns the state's current attitude as roll, pitch, yaw.
func (s *State) RollPitchYaw() (roll, pitch, yaw float64) {
	return EulerFromQuat(s.Q0, s.Q1, s.Q2, s.Q3)
}

// calcRotationMatrix caches the body-to-NED DCM derived from the attitude
// quaternion, following the teacher's calcRotationMatrices caching pattern
// (ahrs_state.go's e11..e33/f11..f33 fields) so downstream steps that need
// several rotated components don't each re-derive the DCM.
func (s *State) calcRotationMatrix() {
	q0, q1, q2, q3 := s.Q0, s.Q1, s.Q2, s.Q3
	s.c11 = q0*q0 + q1*q1 - q2*q2 - q3*q3
	s.c12 = 2 * (q1*q2 - q0*q3)
	s.c13 = 2 * (q1*q3 + q0*q2)
	s.c21 = 2 * (q1*q2 + q0*q3)
	s.c22 = q0*q0 - q1*q1 + q2*q2 - q3*q3
	s.c23 = 2 * (q2*q3 - q0*q1)
	s.c31 = 2 * (q1*q3 - q0*q2)
	s.c32 = 2 * (q2*q3 + q0*q1)
	s.c33 = q0*q0 - q1*q1 - q2*q2 + q3*q3
}

// RotateBodyToNED rotates a body-frame vector into the NED frame using the
// cached attitude DCM.
func (s *State) RotateBodyToNED(x, y, z float64) (n, e, d float64) {
	n = s.c11*x + s.c12*y + s.c13*z
	e = s.c21*x + s.c22*y + s.c23*z
	d = s.c31*x + s.c32*y + s.c33*z
	return
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := *s
	return &c
}

// normalize renormalizes both unit quaternions; called after every
// propagation step to counter floating-point drift, per the teacher's
// normalize() convention in ahrs_state.go.
func (s *State) normalize() {
	s.P0, s.P1, s.P2, s.P3 = QuatNormalize(s.P0, s.P1, s.P2, s.P3)
	s.Q0, s.Q1, s.Q2, s.Q3 = QuatNormalize(s.Q0, s.Q1, s.Q2, s.Q3)
	s.calcRotationMatrix()
}

// Dim returns the dimension of the error-state vector this State implies:
// 9 (position, velocity, attitude) or 15 with Biased accelerometer and
// gyro bias states augmented, per spec.md §4.4's bias-augmented variant.
func (s *State) Dim() int {
	if s.Biased {
		return 15
	}
	return 9
}

// Valid reports whether the state's floating-point values are all finite,
// mirroring the teacher's State.Valid() sanity gate.
func (s *State) Valid() bool {
	vals := []float64{s.P0, s.P1, s.P2, s.P3, s.H, s.Vn, s.Ve, s.Vd, s.Q0, s.Q1, s.Q2, s.Q3}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
