package ins

import "math"

// AttitudeFromAccel computes roll and pitch from an averaged stationary
// accelerometer reading, per spec.md §4.5's initialization formula: the
// specific force measured at rest is the negative of gravity, so its
// direction fixes the body's tilt relative to NED.
func AttitudeFromAccel(ax, ay, az float64) (roll, pitch float64) {
	roll = math.Atan2(-ay, -az)
	norm := math.Sqrt(ax*ax + ay*ay + az*az)
	if norm == 0 {
		return roll, 0
	}
	pitch = math.Asin(clamp(ax/norm, -1, 1))
	return
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Initialize seeds a State at the given geodetic position and NED velocity
// with the given attitude, ready for the fusion controller to replay
// buffered inertial packets up to the accepted GPS fix's timestamp.
func Initialize(lat, lon, h, vn, ve, vd, roll, pitch, yaw, itow float64) *State {
	s := NewState(lat, lon, h)
	s.Vn, s.Ve, s.Vd = vn, ve, vd
	s.Q0, s.Q1, s.Q2, s.Q3 = QuatFromEuler(roll, pitch, yaw)
	s.T = itow
	s.normalize()
	return s
}

// WithBias returns a copy of s with bias-state augmentation enabled and
// the given initial bias estimates, per spec.md §4.4.
func (s *State) WithBias(accelBias, gyroBias [3]float64) *State {
	c := s.Clone()
	c.Biased = true
	c.AccelBias = accelBias
	c.GyroBias = gyroBias
	return c
}
