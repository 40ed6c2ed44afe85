package fusion

import (
	"context"
	"io"
	"math"

	"github.com/westphae/insgps/ferr"
	"github.com/westphae/insgps/ins"
	"github.com/westphae/insgps/kalman"
	"github.com/westphae/insgps/matrix"
	"github.com/westphae/insgps/packet"
	"github.com/westphae/insgps/report"
	"github.com/westphae/insgps/timesync"
)

// Controller owns the navigation State, its error covariance and the
// packet dispatch loop of spec.md §4.5: gate and average GPS fixes for
// initialization, mechanize inertial packets, and apply GPS/magnetic
// corrections under whichever of the three timesync.Mode disciplines is
// configured. Grounded structurally on the teacher's ahrs.AHRSProvider
// select-loop (sim/ahrs_sim.go's read-dispatch-write cycle), generalized
// from a single aircraft attitude filter to the full loosely-coupled
// INS/GPS engine.
type Controller struct {
	cfg Config

	state       *ins.State
	cov         *matrix.Dense
	filter      kalman.Filter
	initialized bool

	aBuf *aBuffer
	mBuf *mBuffer

	reorder  *timesync.ReorderBuffer
	ring     *timesync.SnapshotRing
	realtime *timesync.RealtimePolicy

	// One-step-back cache for REALTIME rewind: the state/covariance just
	// before the most recent A was mechanized, plus the input that
	// advanced it, so a G packet lagging by less than one A step can be
	// corrected at its true itow and re-propagated forward.
	havePriorA  bool
	priorState  *ins.State
	priorCov    *matrix.Dense
	priorInput  timesync.ControlInput

	calendar packet.CalendarConverter
	writer   report.Writer

	divergeStreak int

	lastAITOW, lastMITOW float64
	haveLastA, haveLastM bool
}

// SetCalendarOffset sets the --calendar_time hour offset applied when
// converting a record's itow to a calendar timestamp.
func (c *Controller) SetCalendarOffset(hr float64) {
	c.calendar.HourOffsetSec = hr * 3600
}

// NewController builds a Controller from a fully resolved Config and
// output writer; w may be nil, in which case records are discarded (e.g.
// for tests that only care about the final state).
func NewController(cfg Config, w report.Writer) *Controller {
	c := &Controller{
		cfg:    cfg,
		aBuf:   newABuffer(cfg.ABufferCap),
		mBuf:   newMBuffer(cfg.MBufferCap),
		writer: w,
	}
	switch cfg.Mode {
	case timesync.Offline:
		c.reorder = timesync.NewReorderBuffer()
	case timesync.BackPropagation:
		c.ring = timesync.NewSnapshotRing(cfg.BPDepth)
	case timesync.Realtime:
		c.realtime = timesync.NewRealtimePolicy(cfg.MaxRewindSec)
	}
	return c
}

// Run drains src until it reports io.EOF, dispatching each packet per the
// configured timesync.Mode, and returns the first non-EOF error (or the
// context's error, if cancelled first).
func (c *Controller) Run(ctx context.Context, src Source) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := src.Next()
		if err != nil {
			if err == io.EOF {
				return c.flush()
			}
			return err
		}
		if err := c.dispatch(p); err != nil {
			return err
		}
	}
}

// flush drains anything still held by the OFFLINE reorder buffer at
// end-of-stream, applying every packet regardless of horizon.
func (c *Controller) flush() error {
	if c.reorder == nil {
		return nil
	}
	for _, p := range c.reorder.Drain() {
		if err := c.applyPacket(p); err != nil {
			return err
		}
	}
	return nil
}

// dispatch routes a packet through the configured timesync discipline:
// OFFLINE sorts into the reorder buffer and releases whatever has aged
// past the horizon; BACK_PROPAGATION and REALTIME apply directly, since
// their reconciliation with delayed/out-of-order data happens inside
// applyPacket itself (snapshot replay, or bounded rewind).
func (c *Controller) dispatch(p packet.Packet) error {
	if c.reorder != nil {
		c.reorder.Push(p)
		for _, ready := range c.reorder.Ready(c.cfg.BPDepth) {
			if err := c.applyPacket(ready); err != nil {
				return err
			}
		}
		return nil
	}
	return c.applyPacket(p)
}

func (c *Controller) applyPacket(p packet.Packet) error {
	switch p.Kind {
	case packet.KindA:
		return c.handleA(correctGlitch(p.A, &c.lastAITOW, &c.haveLastA))
	case packet.KindM:
		return c.handleM(correctMGlitch(p.M, &c.lastMITOW, &c.haveLastM))
	case packet.KindG:
		return c.handleG(p.G)
	case packet.KindT:
		c.calendar.Apply(p.T)
		return nil
	}
	return nil
}

// correctGlitch implements spec.md §7's 1-PPS glitch correction: a
// one-second jump that lands just past a whole second (Δitow ∈ [1,2)) is
// a duplicated PPS edge, not real motion, and is folded back by
// subtracting one second.
func correctGlitch(a packet.A, last *float64, have *bool) packet.A {
	if *have {
		d := a.ITOW - *last
		if d >= 1 && d < 2 {
			a.ITOW -= 1
		}
	}
	*last = a.ITOW
	*have = true
	return a
}

func correctMGlitch(m packet.M, last *float64, have *bool) packet.M {
	if *have {
		d := m.ITOW - *last
		if d >= 1 && d < 2 {
			m.ITOW -= 1
		}
	}
	*last = m.ITOW
	*have = true
	return m
}

func (c *Controller) handleA(a packet.A) error {
	c.aBuf.Push(a)
	if !c.initialized {
		return nil
	}
	c.timeUpdate(a)
	c.emit(c.tag(timesync.TimeUpdated))
	return nil
}

func (c *Controller) handleM(m packet.M) error {
	c.mBuf.Push(m)
	if !c.initialized || !c.cfg.UseMagnet {
		return nil
	}
	speed := math.Sqrt(c.state.Vn*c.state.Vn + c.state.Ve*c.state.Ve)
	if speed >= c.cfg.YawCorrectSpeedLessThan {
		return nil
	}
	mag, ok := interpolatedMag(c.mBuf, m.ITOW)
	if !ok {
		return nil
	}
	yaw, ok := magneticYawEstimate(c.state, mag, c.cfg.MagModel)
	if !ok {
		return nil
	}
	h, z, r := kalman.YawResidual(c.state, yaw, c.cfg.MagHeadingAccuracyDeg*math.Pi/180)
	dx, _, err := c.filter.ScalarUpdate(h, z, r)
	if err != nil {
		return c.handleFilterError(err)
	}
	c.divergeStreak = 0
	ins.ApplyErrorState(c.state, dx)
	c.cov = c.filter.Covariance()
	c.emit(c.tag(timesync.MeasurementUpdated))
	return nil
}

func (c *Controller) handleG(g packet.G) error {
	if !c.initialized {
		if c.passesInitGate(g) {
			c.initializeFromGPS(g)
			c.emit(c.tag(timesync.JustInitialized))
		}
		return nil
	}
	if !c.passesContinualGate(g) {
		return nil
	}

	switch c.cfg.Mode {
	case timesync.BackPropagation:
		return c.correctBackPropagation(g)
	case timesync.Realtime:
		return c.correctRealtime(g)
	default:
		return c.correctDirect(g)
	}
}

// leverArmOmegaSamples is the number of buffered A samples averaged around
// a GPS fix's itow to build the velocity lever-arm correction, per
// spec.md §4.5.
const leverArmOmegaSamples = 16

func (c *Controller) meanOmegaNear(itow float64) [3]float64 {
	wx, wy, wz := c.aBuf.MeanOmegaNear(itow, leverArmOmegaSamples)
	return [3]float64{wx, wy, wz}
}

// correctDirect applies a GPS measurement update against the current
// state directly, used by OFFLINE (where the reorder buffer has already
// guaranteed monotonic delivery).
func (c *Controller) correctDirect(g packet.G) error {
	leverArm, hasLeverArm := g.LeverArm, g.HasLeverArm
	omegaB := c.meanOmegaNear(g.ITOW)
	z, h, r := kalman.PositionVelocityResidual(c.state, g.Solution, leverArm, hasLeverArm, omegaB)
	dx, err := kalman.VectorUpdate(c.filter, h, z, r)
	if err != nil {
		return c.handleFilterError(err)
	}
	c.divergeStreak = 0
	ins.ApplyErrorState(c.state, dx)
	c.cov = c.filter.Covariance()
	c.emit(c.tag(timesync.MeasurementUpdated))
	return nil
}

// correctBackPropagation implements spec.md §4.4's fixed-lag smoother:
// find the ring's nearest-itow snapshot to g, correct it in place, then
// replay every control input recorded since that snapshot to bring the
// live state back up to the present.
func (c *Controller) correctBackPropagation(g packet.G) error {
	idx, ok := c.ring.Nearest(g.ITOW)
	if !ok {
		return c.correctDirect(g)
	}
	snaps := c.ring.All()
	snap := snaps[idx]

	savedState, savedCov, savedFilter := c.state, c.cov, c.filter
	c.state, c.cov = snap.State.Clone(), snap.Cov.Clone()
	c.filter = newFilter(c.cfg, c.cov)

	leverArm, hasLeverArm := g.LeverArm, g.HasLeverArm
	omegaB := c.meanOmegaNear(g.ITOW)
	z, h, r := kalman.PositionVelocityResidual(c.state, g.Solution, leverArm, hasLeverArm, omegaB)
	dx, err := kalman.VectorUpdate(c.filter, h, z, r)
	if err != nil {
		c.state, c.cov, c.filter = savedState, savedCov, savedFilter
		return c.handleFilterError(err)
	}
	ins.ApplyErrorState(c.state, dx)
	c.cov = c.filter.Covariance()
	corrected := timesync.Snapshot{ITOW: snap.ITOW, Phase: timesync.MeasurementUpdated, State: c.state.Clone(), Cov: c.cov.Clone()}
	c.emit(c.tag(timesync.MeasurementUpdated))

	replayed := []timesync.Snapshot{corrected}
	for _, in := range c.ring.InputsAfter(snap.ITOW) {
		next, f := ins.Propagate(c.state, c.cfg.Mechanization, in.DT, in.Accel, in.Omega)
		c.filter.TimeUpdate(f, processNoise(c.cfg, c.state.Dim()), in.DT)
		c.state = next
		c.cov = c.filter.Covariance()
		replayed = append(replayed, timesync.Snapshot{ITOW: in.ITOW, Phase: timesync.TimeUpdated, State: c.state.Clone(), Cov: c.cov.Clone()})
		c.emit(c.tagReplay(timesync.TimeUpdated))
	}
	c.ring.ReplaceFrom(idx, replayed)
	return nil
}

// correctRealtime implements spec.md §4.4's bounded rewind: if the fix
// lags behind the filter's current itow by less than one A step, rewind
// to the cached pre-step state, correct there, then re-propagate the
// cached input forward to bring the state back to the present; beyond
// that single step of lag (or with no cached step at all) the fix is
// applied directly, since no wider rewind history is retained. A fix
// lagging by more than MaxRewindSec (Drop) or ahead of the filter's itow
// (Defer) is discarded without an update; it is not held for later.
func (c *Controller) correctRealtime(g packet.G) error {
	instr, _ := c.realtime.Decide(c.state.T, g.ITOW)
	switch instr {
	case timesync.Drop, timesync.Defer:
		return nil
	case timesync.Rewind:
		if !c.havePriorA || g.ITOW < c.priorState.T {
			return c.correctDirect(g)
		}
		liveState, liveCov, liveFilter := c.state, c.cov, c.filter
		c.state, c.cov = c.priorState.Clone(), c.priorCov.Clone()
		c.filter = newFilter(c.cfg, c.cov)

		if err := c.correctDirect(g); err != nil {
			c.state, c.cov, c.filter = liveState, liveCov, liveFilter
			return err
		}

		in := c.priorInput
		next, f := ins.Propagate(c.state, c.cfg.Mechanization, in.DT, in.Accel, in.Omega)
		c.filter.TimeUpdate(f, processNoise(c.cfg, c.state.Dim()), in.DT)
		c.state = next
		c.cov = c.filter.Covariance()
		c.emit(c.tag(timesync.TimeUpdated))
		return nil
	default:
		return c.correctDirect(g)
	}
}

// timeUpdate mechanizes a over dt since the state's last timestamp,
// propagates the filter's covariance by the returned Jacobian, and
// records bookkeeping each timesync.Mode discipline needs.
func (c *Controller) timeUpdate(a packet.A) {
	dt := a.ITOW - c.state.T
	maxDT := c.cfg.MaxDT
	if maxDT <= 0 {
		maxDT = 10
	}
	if dt <= 0 || dt >= maxDT {
		return // TimeOutOfOrder or a gap past MaxDT: silently dropped, per spec.md §3
	}
	accel := [3]float64{a.Accel.X, a.Accel.Y, a.Accel.Z}
	omega := [3]float64{a.Omega.X, a.Omega.Y, a.Omega.Z}

	if c.realtime != nil {
		c.priorState = c.state.Clone()
		c.priorCov = c.cov.Clone()
		c.priorInput = timesync.ControlInput{ITOW: a.ITOW, DT: dt, Accel: accel, Omega: omega}
		c.havePriorA = true
	}

	next, f := ins.Propagate(c.state, c.cfg.Mechanization, dt, accel, omega)
	c.filter.TimeUpdate(f, processNoise(c.cfg, c.state.Dim()), dt)
	c.state = next
	c.cov = c.filter.Covariance()

	if c.ring != nil {
		c.ring.RecordInput(timesync.ControlInput{ITOW: a.ITOW, DT: dt, Accel: accel, Omega: omega})
		c.ring.Push(a.ITOW, timesync.TimeUpdated, c.state.Clone(), c.cov.Clone())
	}
}

// sq returns x*x.
func sq(x float64) float64 { return x * x }

// initialCovariance seeds P0 from the configured calibration sigmas,
// generous position/velocity/attitude priors standing in for the accepted
// fix's own uncertainty (refined immediately by the first measurement
// update that follows initialization).
func (c *Controller) initialCovariance() *matrix.Dense {
	dim := c.state.Dim()
	diag := make([]float64, dim)
	for i := 0; i < 3; i++ {
		diag[i] = sq(50) // m
	}
	for i := 3; i < 6; i++ {
		diag[i] = sq(1) // m/s
	}
	for i := 6; i < 9; i++ {
		diag[i] = sq(5 * math.Pi / 180) // rad
	}
	if dim > 9 {
		accelSigma2 := c.cfg.AccelCalibration.Sigma2()
		gyroSigma2 := c.cfg.GyroCalibration.Sigma2()
		for i := 0; i < 3; i++ {
			diag[9+i] = accelSigma2[i]
			diag[12+i] = gyroSigma2[i]
		}
	}
	c.filter = newFilter(c.cfg, matrix.Diag(diag))
	return c.filter.Covariance()
}

func newFilter(cfg Config, p0 *matrix.Dense) kalman.Filter {
	rows, _ := p0.Dims()
	if cfg.UseUDKF {
		if f, err := kalman.NewUD(rows, p0); err == nil {
			return f
		}
	}
	return kalman.NewStandard(rows, p0)
}

// processNoise builds the continuous-time process noise matrix Q from the
// configured accel/gyro calibration sigmas, zero elsewhere; used as the
// Qdt term in every TimeUpdate.
func processNoise(cfg Config, dim int) *matrix.Dense {
	diag := make([]float64, dim)
	accelSigma2 := cfg.AccelCalibration.Sigma2()
	gyroSigma2 := cfg.GyroCalibration.Sigma2()
	for i := 0; i < 3; i++ {
		diag[3+i] = accelSigma2[i]
		diag[6+i] = gyroSigma2[i]
	}
	return matrix.Diag(diag)
}

func (c *Controller) handleFilterError(err error) error {
	if kind, ok := ferr.KindOf(err); ok && kind == ferr.CovarianceNotPSD {
		c.divergeStreak++
		if c.divergeStreak >= 3 {
			return ferr.Wrap(ferr.FilterDiverged, "repeated covariance clamp across updates", err)
		}
		return nil
	}
	return err
}

func (c *Controller) tag(phase timesync.Phase) string { return phase.Tag(false) }
func (c *Controller) tagReplay(phase timesync.Phase) string { return phase.Tag(true) }

func (c *Controller) emit(tag string) {
	if c.writer == nil {
		return
	}
	c.writer.Write(c.record(tag))
}

func (c *Controller) record(tag string) report.Record {
	lat, lon := c.state.LatLon()
	roll, pitch, yaw := c.state.RollPitchYaw()
	rec := report.Record{
		Tag:      tag,
		ITOW:     c.state.T,
		LatDeg:   lat * 180 / math.Pi,
		LonDeg:   lon * 180 / math.Pi,
		HeightM:  c.state.H,
		Vn:       c.state.Vn,
		Ve:       c.state.Ve,
		Vd:       c.state.Vd,
		YawDeg:   yaw * 180 / math.Pi,
		PitchDeg: pitch * 180 / math.Pi,
		RollDeg:  roll * 180 / math.Pi,
	}
	t := c.calendar.Calendar(c.state.T)
	year, month, day := t.Date()
	rec.Year, rec.Month, rec.Day = year, int(month), day
	rec.Hour, rec.Minute = t.Hour(), t.Minute()
	rec.Second = float64(t.Second())
	rec.HasCalendar = true
	if c.state.Biased {
		rec.HasBias = true
		rec.AccelBias = c.state.AccelBias
		rec.GyroBias = c.state.GyroBias
	}
	if c.cov != nil {
		dim := c.state.Dim()
		std := make([]float64, dim)
		for i := 0; i < dim; i++ {
			std[i] = math.Sqrt(math.Max(0, c.cov.At(i, i)))
		}
		rec.HasStdDev = true
		rec.StdDev = std
	}
	return rec
}
