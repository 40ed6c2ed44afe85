// Package config assembles a fusion.Config (plus the output writer and
// calendar settings cmd/insgps needs) from parsed command-line flags,
// per spec.md §6's externalized flag surface. Grounded on the teacher's
// sim/ahrs_sim.go flag-parsing style: flag.Float64Var/BoolVar/StringVar
// registrations with const default/usage pairs, and a small
// comma-separated-list parser for the vector-valued flags.
package config

import (
	"flag"
	"math"
	"strconv"
	"strings"

	"github.com/westphae/insgps/ferr"
	"github.com/westphae/insgps/fusion"
	"github.com/westphae/insgps/geomag"
	"github.com/westphae/insgps/ins"
	"github.com/westphae/insgps/timesync"
)

// Builder holds the raw flag values registered on a FlagSet, resolved
// into a Config only once Parse has been called on the set (so callers
// can register these flags alongside any of their own before parsing).
type Builder struct {
	StartGPST   string
	EndGPST     string
	DumpUpdate  bool
	DumpCorrect bool
	DumpStdDev  bool
	CalendarHr  float64

	InitAttitudeDeg string
	InitYawDeg      float64
	HasInitYaw      bool
	EstBias         bool
	UseUDKF         bool
	UseEGM          bool
	BackPropagate   bool
	Realtime        bool

	GPSInitAcc2D float64
	GPSInitAccV  float64
	GPSContAcc2D float64

	UseMagnet                       bool
	MagHeadingAccuracyDeg           float64
	YawCorrectWithMagWhenSpeedLessThanMS float64

	BPDepth float64
}

// Register adds every flag spec.md §6 names to fs, pre-loaded with the
// defaults DefaultConfig documents, and returns a Builder whose fields
// Parse will have filled in once fs.Parse has run. Call MarkExplicit
// (typically via fs.Visit) after parsing so Build can tell an explicit
// --init_yaw_deg=0 apart from the flag never having been passed.
func Register(fs *flag.FlagSet) *Builder {
	b := &Builder{}
	d := fusion.DefaultConfig()

	fs.StringVar(&b.StartGPST, "start_gpst", "", "Start time, \"seconds\" or \"WN:seconds\"")
	fs.StringVar(&b.EndGPST, "end_gpst", "", "End time, \"seconds\" or \"WN:seconds\"")
	fs.BoolVar(&b.DumpUpdate, "dump_update", false, "Emit a record at every time update (TU)")
	fs.BoolVar(&b.DumpCorrect, "dump_correct", true, "Emit a record at every measurement update (MU)")
	fs.BoolVar(&b.DumpStdDev, "dump_stddev", false, "Include one-sigma standard deviation columns")
	fs.Float64Var(&b.CalendarHr, "calendar_time", 0, "Hour offset applied to the calendar timestamp (±hr)")

	fs.StringVar(&b.InitAttitudeDeg, "init_attitude_deg", "", "Initial attitude override \"yaw,pitch,roll\" in degrees")
	fs.Float64Var(&b.InitYawDeg, "init_yaw_deg", 0, "Initial yaw override, degrees")
	fs.BoolVar(&b.EstBias, "est_bias", false, "Augment the state with accelerometer/gyro bias estimation")
	fs.BoolVar(&b.UseUDKF, "use_udkf", false, "Use the UD-factorized (Bierman) filter variant instead of the standard Joseph-form EKF")
	fs.BoolVar(&b.UseEGM, "use_egm", false, "Use a higher-fidelity gravity model instead of WGS-84 normal gravity")
	fs.BoolVar(&b.BackPropagate, "back_propagate", false, "Use the fixed-lag back-propagation smoother instead of offline sort-then-apply")
	fs.BoolVar(&b.Realtime, "realtime", false, "Use the bounded-rewind realtime discipline instead of offline sort-then-apply")

	fs.Float64Var(&b.GPSInitAcc2D, "gps_init_acc_2d", d.InitAcc2D, "GPS horizontal accuracy gate for initialization, m")
	fs.Float64Var(&b.GPSInitAccV, "gps_init_acc_v", d.InitAccV, "GPS vertical accuracy gate for initialization, m")
	fs.Float64Var(&b.GPSContAcc2D, "gps_cont_acc_2d", d.ContAcc2D, "GPS horizontal accuracy gate for continual correction, m")

	fs.BoolVar(&b.UseMagnet, "use_magnet", false, "Enable the magnetometer yaw auxiliary update")
	fs.Float64Var(&b.MagHeadingAccuracyDeg, "mag_heading_accuracy_deg", d.MagHeadingAccuracyDeg, "One-sigma magnetic heading accuracy, degrees")
	fs.Float64Var(&b.YawCorrectWithMagWhenSpeedLessThanMS, "yaw_correct_with_mag_when_speed_less_than_ms", d.YawCorrectSpeedLessThan, "Only apply the magnetic yaw update below this groundspeed, m/s")

	fs.Float64Var(&b.BPDepth, "bp_depth", d.BPDepth, "Back-propagation snapshot ring depth, seconds")

	return b
}

// MarkExplicit records that a flag with the given name was explicitly
// passed on the command line; call it from fs.Visit(b.MarkExplicit)
// after fs.Parse, so Build can distinguish --init_yaw_deg=0 from the
// flag being absent.
func (b *Builder) MarkExplicit(f *flag.Flag) {
	if f.Name == "init_yaw_deg" {
		b.HasInitYaw = true
	}
}

// Build resolves the parsed flags into a fusion.Config, returning
// ferr.ConfigConflict if --back_propagate and --realtime were both set.
func (b *Builder) Build() (fusion.Config, error) {
	cfg := fusion.DefaultConfig()

	mode, err := timesync.NewMode(b.BackPropagate, b.Realtime)
	if err != nil {
		return cfg, err
	}
	cfg.Mode = mode

	cfg.InitAcc2D = b.GPSInitAcc2D
	cfg.InitAccV = b.GPSInitAccV
	cfg.ContAcc2D = b.GPSContAcc2D
	cfg.UseUDKF = b.UseUDKF
	cfg.UseBias = b.EstBias
	cfg.UseMagnet = b.UseMagnet
	cfg.MagHeadingAccuracyDeg = b.MagHeadingAccuracyDeg
	cfg.YawCorrectSpeedLessThan = b.YawCorrectWithMagWhenSpeedLessThanMS
	cfg.BPDepth = b.BPDepth

	if b.UseEGM {
		cfg.Mechanization.Gravity = ins.EGMModel{}
	}

	if b.HasInitYaw {
		yaw := b.InitYawDeg * degToRad
		cfg.InitYawOverride = &yaw
	}
	if b.InitAttitudeDeg != "" {
		vals, perr := parseFloat3(b.InitAttitudeDeg)
		if perr != nil {
			return cfg, ferr.Wrap(ferr.ConfigConflict, "--init_attitude_deg", perr)
		}
		deg := [3]float64{vals[0] * degToRad, vals[1] * degToRad, vals[2] * degToRad}
		cfg.InitAttitudeDeg = &deg
		yaw := deg[0]
		cfg.InitYawOverride = &yaw
	}
	if !cfg.UseMagnet {
		cfg.MagModel = geomag.NewDipoleModel()
	}
	return cfg, nil
}

const degToRad = math.Pi / 180

func parseFloat3(s string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, &strconv.NumError{Func: "parseFloat3", Num: s, Err: strconv.ErrSyntax}
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}
