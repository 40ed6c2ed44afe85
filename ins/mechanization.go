package ins

import (
	"math"

	"github.com/westphae/insgps/matrix"
)

// Config parameterizes the strapdown mechanization, per spec.md §4.2/§4.4.
type Config struct {
	Gravity    GravityModel // defaults to NormalGravity{} when nil
	TauAccel   float64      // accelerometer bias Gauss-Markov time constant, s
	TauGyro    float64      // gyro bias Gauss-Markov time constant, s
}

// DefaultConfig returns the mechanization configuration used when the CLI
// supplies no overrides: WGS-84 normal gravity and 300s bias time
// constants, a conservative default for MEMS-grade sensors.
func DefaultConfig() Config {
	return Config{Gravity: NormalGravity{}, TauAccel: 300, TauGyro: 300}
}

func (c Config) gravity() GravityModel {
	if c.Gravity == nil {
		return NormalGravity{}
	}
	return c.Gravity
}

// Propagate advances State by dt under body-frame specific force fb and
// angular rate wb, implementing the mechanization equations of spec.md
// §4.2: position-quaternion update via the transport rate, velocity
// update via rotated specific force plus gravity and Coriolis terms, and
// attitude update via the body rate corrected for Earth and transport
// rate. It returns the propagated state and the first-order discrete
// error-state transition matrix Φ = I + F·dt, built from the
// continuous-time Jacobian F (9x9, or 15x15 when Biased), for the caller's
// covariance time-update (C3). Grounded on original_source/tool/INS_GPS.cpp's
// mechanization step and the teacher's State.init/normalize structure,
// generalized from single-frame attitude tracking to full navigation.
func Propagate(s *State, cfg Config, dt float64, fb, wb [3]float64) (*State, *matrix.Dense) {
	next := s.Clone()

	accelBias, gyroBias := [3]float64{}, [3]float64{}
	if s.Biased {
		accelBias, gyroBias = s.AccelBias, s.GyroBias
	}
	fbc := [3]float64{fb[0] - accelBias[0], fb[1] - accelBias[1], fb[2] - accelBias[2]}
	wbc := [3]float64{wb[0] - gyroBias[0], wb[1] - gyroBias[1], wb[2] - gyroBias[2]}

	lat, _ := s.LatLon()
	ien, iee, ied := EarthRateNED(lat)
	ten, tee, ted := TransportRateNED(s.Vn, s.Ve, lat, s.H)
	omegaIEN := [3]float64{ien, iee, ied}
	omegaENN := [3]float64{ten, tee, ted}
	omegaSum := add3(omegaIEN, omegaENN)

	fn0, fn1, fn2 := s.RotateBodyToNED(fbc[0], fbc[1], fbc[2])
	fn := [3]float64{fn0, fn1, fn2}

	_, _, gd := cfg.gravity().Gravity(lat, s.H)
	gravity := [3]float64{0, 0, gd}

	coriolis := cross(add3(scale3(omegaIEN, 2), omegaENN), [3]float64{s.Vn, s.Ve, s.Vd})
	vdot := sub3(add3(fn, gravity), coriolis)

	// Attitude and position-quaternion updates use the first-order
	// quaternion expansion directly (spec.md §4.2 steps 2-3/6); only the
	// velocity/height integral of steps 5-6 is trapezoidal.
	next.P0, next.P1, next.P2, next.P3 = QuatIntegrate(s.P0, s.P1, s.P2, s.P3, omegaENN[0], omegaENN[1], omegaENN[2], dt)

	nbx, nby, nbz := nedToBody(s, omegaSum[0], omegaSum[1], omegaSum[2])
	omegaNBB := [3]float64{wbc[0] - nbx, wbc[1] - nby, wbc[2] - nbz}
	next.Q0, next.Q1, next.Q2, next.Q3 = QuatIntegrate(s.Q0, s.Q1, s.Q2, s.Q3, omegaNBB[0], omegaNBB[1], omegaNBB[2], dt)
	next.calcRotationMatrix()

	// Predictor/corrector (Heun's method) trapezoidal integration: vdot
	// above is the derivative at the start of the interval; predict the
	// Euler end-of-interval state, evaluate the same derivative there
	// with the already-updated attitude and position, and integrate
	// velocity and height with the average of the two.
	predVn := s.Vn + dt*vdot[0]
	predVe := s.Ve + dt*vdot[1]
	predVd := s.Vd + dt*vdot[2]
	predH := s.H - dt*s.Vd

	predLat, _ := next.LatLon()
	pIen, pIee, pIed := EarthRateNED(predLat)
	pTen, pTee, pTed := TransportRateNED(predVn, predVe, predLat, predH)
	predOmegaIEN := [3]float64{pIen, pIee, pIed}
	predOmegaENN := [3]float64{pTen, pTee, pTed}

	predFn0, predFn1, predFn2 := next.RotateBodyToNED(fbc[0], fbc[1], fbc[2])
	predFn := [3]float64{predFn0, predFn1, predFn2}

	_, _, predGd := cfg.gravity().Gravity(predLat, predH)
	predGravity := [3]float64{0, 0, predGd}

	predCoriolis := cross(add3(scale3(predOmegaIEN, 2), predOmegaENN), [3]float64{predVn, predVe, predVd})
	predVdot := sub3(add3(predFn, predGravity), predCoriolis)

	vdotAvg := scale3(add3(vdot, predVdot), 0.5)
	vdAvg := 0.5 * (s.Vd + predVd)

	next.Vn = s.Vn + dt*vdotAvg[0]
	next.Ve = s.Ve + dt*vdotAvg[1]
	next.Vd = s.Vd + dt*vdotAvg[2]
	next.H = s.H - dt*vdAvg

	if s.Biased {
		if cfg.TauAccel > 0 {
			decay := math.Exp(-dt / cfg.TauAccel)
			for i := range next.AccelBias {
				next.AccelBias[i] = s.AccelBias[i] * decay
			}
		}
		if cfg.TauGyro > 0 {
			decay := math.Exp(-dt / cfg.TauGyro)
			for i := range next.GyroBias {
				next.GyroBias[i] = s.GyroBias[i] * decay
			}
		}
	}

	next.T = s.T + dt
	next.normalize()

	f := errorStateJacobian(s, cfg, fn, omegaIEN, omegaENN)
	phi := matrix.Eye(s.Dim()).Add(f.Scale(dt))
	return next, phi
}

// errorStateJacobian builds the continuous-time error-state Jacobian F
// (d(δx)/dt = F·δx) for the psi-angle (local-level) error model: position error in
// NED meters, velocity error in NED m/s, attitude error as a small NED
// rotation vector, optionally augmented with accelerometer and gyro bias
// states propagating as independent Gauss-Markov processes.
func errorStateJacobian(s *State, cfg Config, fn, omegaIEN, omegaENN [3]float64) *matrix.Dense {
	n := s.Dim()
	f := matrix.NewDense(n, n)

	// Position rows: d(δp)/dt = δv.
	for i := 0; i < 3; i++ {
		f.Set(i, 3+i, 1)
	}

	// Velocity rows: d(δv)/dt = -[fn×]ψ - (2Ω_ie+Ω_en)×δv (+ Cbn δba).
	skewFn := skew(fn)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			f.Set(3+i, 6+j, -skewFn[i][j])
		}
	}
	omegaCoriolis := add3(scale3(omegaIEN, 2), omegaENN)
	skewCoriolis := skew(omegaCoriolis)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			f.Set(3+i, 3+j, -skewCoriolis[i][j])
		}
	}

	// Attitude rows: d(ψ)/dt = -(Ω_ie+Ω_en)×ψ (- Cbn δbg).
	skewEarthTransport := skew(add3(omegaIEN, omegaENN))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			f.Set(6+i, 6+j, -skewEarthTransport[i][j])
		}
	}

	if s.Biased {
		cbn := bodyToNEDMatrix(s)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				f.Set(3+i, 9+j, cbn[i][j])
			}
		}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				f.Set(6+i, 12+j, -cbn[i][j])
			}
		}
		if cfg.TauAccel > 0 {
			for i := 0; i < 3; i++ {
				f.Set(9+i, 9+i, -1/cfg.TauAccel)
			}
		}
		if cfg.TauGyro > 0 {
			for i := 0; i < 3; i++ {
				f.Set(12+i, 12+i, -1/cfg.TauGyro)
			}
		}
	}

	return f
}

func bodyToNEDMatrix(s *State) [3][3]float64 {
	return [3][3]float64{
		{s.c11, s.c12, s.c13},
		{s.c21, s.c22, s.c23},
		{s.c31, s.c32, s.c33},
	}
}

func nedToBody(s *State, n, e, d float64) (x, y, z float64) {
	x = s.c11*n + s.c21*e + s.c31*d
	y = s.c12*n + s.c22*e + s.c32*d
	z = s.c13*n + s.c23*e + s.c33*d
	return
}

func skew(v [3]float64) [3][3]float64 {
	return [3][3]float64{
		{0, -v[2], v[1]},
		{v[2], 0, -v[0]},
		{-v[1], v[0], 0},
	}
}

func add3(a, b [3]float64) [3]float64 { return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func sub3(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func scale3(a [3]float64, k float64) [3]float64 { return [3]float64{a[0] * k, a[1] * k, a[2] * k} }

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
