// Package simdata generates synthetic inertial, magnetometer and GPS
// packet streams by piecewise-linear interpolation between waypoints,
// for use in integration tests that need a flight profile more
// realistic than a single static fix.
package simdata

import (
	"math"
	"sort"

	"github.com/westphae/insgps/ins"
	"github.com/westphae/insgps/packet"
)

// Waypoint is one knot of a piecewise-linear flight profile.
type Waypoint struct {
	ITOW                   float64
	LatDeg, LonDeg, HeightM float64
	RollDeg, PitchDeg, YawDeg float64
	Vn, Ve, Vd             float64 // m/s, NED
	MagN, MagE, MagD       float64 // µT, local level
}

// Scenario interpolates a sequence of Waypoints and emits the A, M and G
// packets an IMU/magnetometer/GPS receiver would produce along that
// profile, grounded on the teacher's situationSim.go piecewise-linear
// interpolation idiom.
type Scenario struct {
	waypoints []Waypoint
	gravity   ins.GravityModel
}

// NewScenario builds a Scenario from waypoints ordered by increasing ITOW.
func NewScenario(waypoints []Waypoint) *Scenario {
	return &Scenario{waypoints: waypoints, gravity: ins.NormalGravity{}}
}

func (s *Scenario) BeginTime() float64 { return s.waypoints[0].ITOW }
func (s *Scenario) EndTime() float64   { return s.waypoints[len(s.waypoints)-1].ITOW }

// at returns the interpolated waypoint at t, clamped to the scenario's span.
func (s *Scenario) at(t float64) Waypoint {
	ts := make([]float64, len(s.waypoints))
	for i, w := range s.waypoints {
		ts[i] = w.ITOW
	}
	if t <= ts[0] {
		return s.waypoints[0]
	}
	if t >= ts[len(ts)-1] {
		return s.waypoints[len(ts)-1]
	}
	ix := sort.SearchFloat64s(ts, t) - 1
	if ix < 0 {
		ix = 0
	}
	a, b := s.waypoints[ix], s.waypoints[ix+1]
	f := (t - a.ITOW) / (b.ITOW - a.ITOW)
	lerp := func(x, y float64) float64 { return x + f*(y-x) }
	return Waypoint{
		ITOW:    t,
		LatDeg:  lerp(a.LatDeg, b.LatDeg),
		LonDeg:  lerp(a.LonDeg, b.LonDeg),
		HeightM: lerp(a.HeightM, b.HeightM),
		RollDeg: lerp(a.RollDeg, b.RollDeg),
		PitchDeg: lerp(a.PitchDeg, b.PitchDeg),
		YawDeg:  lerp(a.YawDeg, b.YawDeg),
		Vn:      lerp(a.Vn, b.Vn),
		Ve:      lerp(a.Ve, b.Ve),
		Vd:      lerp(a.Vd, b.Vd),
		MagN:    lerp(a.MagN, b.MagN),
		MagE:    lerp(a.MagE, b.MagE),
		MagD:    lerp(a.MagD, b.MagD),
	}
}

const deg2rad = math.Pi / 180

// A synthesizes the specific-force and angular-rate packet a strapdown IMU
// would report at t, by finite-differencing attitude and velocity around a
// small window and subtracting gravity, expressed in the body frame.
func (s *Scenario) A(t, dt float64) packet.A {
	w0, w1 := s.at(t-dt/2), s.at(t+dt/2)
	q0, q1, q2, q3 := ins.QuatFromEuler(w1.RollDeg*deg2rad, w1.PitchDeg*deg2rad, w1.YawDeg*deg2rad)

	gn, ge, gd := s.gravity.Gravity(w1.LatDeg*deg2rad, w1.HeightM)
	an := (w1.Vn-w0.Vn)/dt - gn
	ae := (w1.Ve-w0.Ve)/dt - ge
	ad := (w1.Vd-w0.Vd)/dt - gd

	rq0, rq1, rq2, rq3 := ins.QuatConjugate(q0, q1, q2, q3)
	ax, ay, az := ins.RotateVector(rq0, rq1, rq2, rq3, an, ae, ad)

	wx := (w1.RollDeg - w0.RollDeg) * deg2rad / dt
	wy := (w1.PitchDeg - w0.PitchDeg) * deg2rad / dt
	wz := (w1.YawDeg - w0.YawDeg) * deg2rad / dt

	return packet.A{
		ITOW:  t,
		Accel: packet.Vec3{X: ax, Y: ay, Z: az},
		Omega: packet.Vec3{X: wx, Y: wy, Z: wz},
	}
}

// M synthesizes a body-frame magnetometer reading at t.
func (s *Scenario) M(t float64) packet.M {
	w := s.at(t)
	q0, q1, q2, q3 := ins.QuatFromEuler(w.RollDeg*deg2rad, w.PitchDeg*deg2rad, w.YawDeg*deg2rad)
	rq0, rq1, rq2, rq3 := ins.QuatConjugate(q0, q1, q2, q3)
	mx, my, mz := ins.RotateVector(rq0, rq1, rq2, rq3, w.MagN, w.MagE, w.MagD)
	return packet.M{ITOW: t, Mag: packet.Vec3{X: mx, Y: my, Z: mz}}
}

// G synthesizes a GPS fix at t with the given quality, in the solved units
// (radians for position).
func (s *Scenario) G(t, sigma2D, sigmaH, sigmaVel float64) packet.G {
	w := s.at(t)
	return packet.G{
		ITOW: t,
		Solution: packet.GPSSolution{
			Lat: w.LatDeg * deg2rad, Lon: w.LonDeg * deg2rad, H: w.HeightM,
			Vn: w.Vn, Ve: w.Ve, Vd: w.Vd,
			Sigma2D: sigma2D, SigmaH: sigmaH, SigmaVel: sigmaVel,
		},
	}
}
