// Package packet defines the measurement types consumed from the external
// page-oriented log decoder: inertial (A), GPS (G), magnetometer (M) and
// time-reference (T) packets, per spec.md §3 and §6. The HasX-style
// validity flags follow the convention used throughout the retrieval
// pack's packet/telemetry structs (e.g. mrombold-adsb-receiver's
// pkg/types.Aircraft) rather than pointer-typed optional fields.
package packet

// Vec3 is a plain 3-vector; used for specific force, angular rate,
// magnetometer readings and lever arms.
type Vec3 struct {
	X, Y, Z float64
}

// A is an inertial measurement: specific force and angular rate in the
// body frame, timestamped by GPS seconds-of-week.
type A struct {
	ITOW  float64
	Accel Vec3 // m/s^2, body frame
	Omega Vec3 // rad/s, body frame
}

// GPSSolution is the single-point-positioning solver's output: geodetic
// position, NED velocity and quality indicators. Produced by the external
// GPS collaborator (spec.md §1); consumed here only through this struct.
type GPSSolution struct {
	Lat, Lon, H        float64 // rad, rad, m (ellipsoidal height)
	Vn, Ve, Vd         float64 // m/s, NED
	Sigma2D            float64 // m, one-sigma horizontal position error
	SigmaH             float64 // m, one-sigma vertical position error
	SigmaVel           float64 // m/s, one-sigma velocity error (isotropic)
}

// G is a GPS fix packet, optionally carrying the body-frame lever arm from
// IMU to GPS antenna.
type G struct {
	ITOW          float64
	Solution      GPSSolution
	HasLeverArm   bool
	LeverArm      Vec3 // body frame, m
}

// M is a magnetometer sample in the sensor frame.
type M struct {
	ITOW float64
	Mag  Vec3 // µT, sensor frame
}

// T is a time-reference packet augmenting the GPS week number and leap
// second count used to convert ITOW into a calendar timestamp.
type T struct {
	ITOW           float64
	HasWeekNumber  bool
	WeekNumber     int
	HasLeapSeconds bool
	LeapSeconds    int
}

// Kind selects which one of a Packet's A, G, M, T fields is meaningful.
type Kind int

const (
	KindA Kind = iota
	KindG
	KindM
	KindT
)

// Packet wraps one measurement of any Kind for uniform delivery through a
// Source.
type Packet struct {
	Kind Kind
	A    A
	G    G
	M    M
	T    T
}

// ITOW returns the packet's time-of-week regardless of Kind.
func (p Packet) ITOW() float64 {
	switch p.Kind {
	case KindA:
		return p.A.ITOW
	case KindG:
		return p.G.ITOW
	case KindM:
		return p.M.ITOW
	case KindT:
		return p.T.ITOW
	default:
		return 0
	}
}
