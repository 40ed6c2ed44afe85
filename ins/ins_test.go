package ins

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttitudeFromAccelLevel(t *testing.T) {
	roll, pitch := AttitudeFromAccel(0, 0, -9.80665)
	assert.InDelta(t, 0, roll, 1e-9)
	assert.InDelta(t, 0, pitch, 1e-9)
}

func TestAttitudeFromAccelTilted(t *testing.T) {
	// Nose-up 10 deg: gravity's reaction shows up on the body x-axis.
	pitchTruth := 10 * math.Pi / 180
	ax := 9.80665 * math.Sin(pitchTruth)
	az := -9.80665 * math.Cos(pitchTruth)
	_, pitch := AttitudeFromAccel(ax, 0, az)
	assert.InDelta(t, pitchTruth, pitch, 1e-6)
}

func TestPositionQuaternionRoundTrip(t *testing.T) {
	lat := 37.5 * math.Pi / 180
	lon := -122.3 * math.Pi / 180
	q0, q1, q2, q3 := PositionQuaternion(lat, lon)
	gotLat, gotLon := LatLonFromQuaternion(q0, q1, q2, q3)
	assert.InDelta(t, lat, gotLat, 1e-9)
	assert.InDelta(t, lon, gotLon, 1e-9)
}

func TestEulerQuaternionRoundTrip(t *testing.T) {
	roll, pitch, yaw := 0.3, -0.2, 1.1
	q0, q1, q2, q3 := QuatFromEuler(roll, pitch, yaw)
	gotRoll, gotPitch, gotYaw := EulerFromQuat(q0, q1, q2, q3)
	assert.InDelta(t, roll, gotRoll, 1e-9)
	assert.InDelta(t, pitch, gotPitch, 1e-9)
	assert.InDelta(t, yaw, gotYaw, 1e-9)
}

func TestStaticBenchHoldsAttitudeAndPosition(t *testing.T) {
	lat := 40.0 * math.Pi / 180
	lon := -105.0 * math.Pi / 180
	s := Initialize(lat, lon, 1600, 0, 0, 0, 0, 0, 0, 0)
	cfg := DefaultConfig()

	dt := 0.01
	for i := 0; i < 6000; i++ {
		var f [3]float64
		_, _, gd := cfg.gravity().Gravity(lat, 1600)
		f = [3]float64{0, 0, -gd}
		s, _ = Propagate(s, cfg, dt, f, [3]float64{0, 0, 0})
	}

	require.True(t, s.Valid())
	roll, pitch, _ := s.RollPitchYaw()
	assert.InDelta(t, 0, roll, 1e-3)
	assert.InDelta(t, 0, pitch, 1e-3)
	gotLat, gotLon := s.LatLon()
	assert.InDelta(t, lat, gotLat, 1e-4)
	assert.InDelta(t, lon, gotLon, 1e-4)
}

func TestBiasDecaysTowardZero(t *testing.T) {
	s := Initialize(0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	s = s.WithBias([3]float64{0.1, 0, 0}, [3]float64{0.01, 0, 0})
	cfg := DefaultConfig()
	cfg.TauAccel = 10
	cfg.TauGyro = 10

	for i := 0; i < 1000; i++ {
		s, _ = Propagate(s, cfg, 0.1, [3]float64{0, 0, -9.80665}, [3]float64{0, 0, 0})
	}
	assert.Less(t, math.Abs(s.AccelBias[0]), 0.01)
	assert.Less(t, math.Abs(s.GyroBias[0]), 0.001)
}

func TestErrorStateJacobianDimensions(t *testing.T) {
	s := Initialize(0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	cfg := DefaultConfig()
	_, f := Propagate(s, cfg, 0.01, [3]float64{0, 0, -9.80665}, [3]float64{0, 0, 0})
	rows, cols := f.Dims()
	assert.Equal(t, 9, rows)
	assert.Equal(t, 9, cols)

	biased := s.WithBias([3]float64{}, [3]float64{})
	_, fb := Propagate(biased, cfg, 0.01, [3]float64{0, 0, -9.80665}, [3]float64{0, 0, 0})
	rows, cols = fb.Dims()
	assert.Equal(t, 15, rows)
	assert.Equal(t, 15, cols)
}
