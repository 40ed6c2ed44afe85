package fusion

import (
	"github.com/westphae/insgps/geomag"
	"github.com/westphae/insgps/ins"
	"github.com/westphae/insgps/timesync"
)

// Config parameterizes the fusion controller per spec.md §4.5/§6. Built
// once by config.Builder and passed to NewController, per the "factory
// chain maps to a builder struct" REDESIGN FLAGS guidance.
type Config struct {
	Mode timesync.Mode

	InitAcc2D  float64 // m, GPS init gate on horizontal accuracy, default 20
	InitAccV   float64 // m, GPS init gate on vertical accuracy, default 10
	ContAcc2D  float64 // m, continual GPS gate, default 100

	MaxDT float64 // s, A updates with dt <= 0 or dt >= MaxDT are dropped, default 10

	UseUDKF bool
	UseBias bool

	UseMagnet               bool
	MagHeadingAccuracyDeg   float64 // default 3
	YawCorrectSpeedLessThan float64 // m/s, default 5
	MagModel                geomag.Model

	InitYawOverride *float64 // rad, nil when unset
	InitAttitudeDeg *[3]float64 // yaw, pitch, roll overrides, nil when unset

	BPDepth       float64 // s, back-propagation ring depth, default 1.0
	MaxRewindSec  float64 // s, realtime rewind cap

	ABufferCap int
	MBufferCap int

	Mechanization ins.Config

	AccelCalibration Calibration
	GyroCalibration  Calibration
}

// DefaultConfig returns spec.md §6's documented default thresholds.
func DefaultConfig() Config {
	return Config{
		InitAcc2D:               20,
		InitAccV:                10,
		ContAcc2D:               100,
		MaxDT:                   10,
		MagHeadingAccuracyDeg:   3,
		YawCorrectSpeedLessThan: 5,
		MagModel:                geomag.NewDipoleModel(),
		BPDepth:                 1.0,
		MaxRewindSec:            2.0,
		ABufferCap:              256,
		MBufferCap:              16,
		Mechanization:           ins.DefaultConfig(),
	}
}
