package fusion

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westphae/insgps/ins"
	"github.com/westphae/insgps/packet"
	"github.com/westphae/insgps/simdata"
	"github.com/westphae/insgps/timesync"
)

func gFix(itow, lat, lon, h float64) packet.G {
	return packet.G{
		ITOW: itow,
		Solution: packet.GPSSolution{
			Lat: lat, Lon: lon, H: h,
			Sigma2D: 2, SigmaH: 3, SigmaVel: 0.2,
		},
	}
}

func TestPassesInitGateRequiresFreshABuffer(t *testing.T) {
	cfg := DefaultConfig()
	c := NewController(cfg, nil)
	for i := 0; i < 10; i++ {
		c.aBuf.Push(packet.A{ITOW: float64(i) * 0.1, Accel: packet.Vec3{Z: -9.80665}})
	}
	g := gFix(1.0, 0, 0, 0) // 1.0 s from the front A, not under the 0.1·len(A) = 1.0 s margin
	assert.False(t, c.passesInitGate(g))

	g2 := gFix(0.9, 0, 0, 0)
	assert.True(t, c.passesInitGate(g2))
}

func TestPassesContinualGateThresholdsOnSigma2D(t *testing.T) {
	cfg := DefaultConfig()
	c := NewController(cfg, nil)
	assert.True(t, c.passesContinualGate(gFix(0, 0, 0, 0)))
	bad := gFix(0, 0, 0, 0)
	bad.Solution.Sigma2D = cfg.ContAcc2D + 1
	assert.False(t, c.passesContinualGate(bad))
}

func TestInitializeFromGPSSeedsAtAcceptedFix(t *testing.T) {
	cfg := DefaultConfig()
	c := NewController(cfg, nil)
	lat, lon, h := 0.1, 0.2, 500.0
	// A stationary IMU at the fix reads the local normal gravity, so the
	// replay up to the fix's itow leaves the seeded position in place.
	_, _, gd := ins.NormalGravity{}.Gravity(lat, h)
	for i := 0; i < 300; i++ {
		c.aBuf.Push(packet.A{ITOW: float64(i) * 0.01, Accel: packet.Vec3{Z: -gd}})
	}
	g := gFix(c.aBuf.data[len(c.aBuf.data)-1].ITOW, lat, lon, h)

	c.initializeFromGPS(g)

	require.True(t, c.initialized)
	gotLat, gotLon := c.state.LatLon()
	assert.InDelta(t, lat, gotLat, 1e-5)
	assert.InDelta(t, lon, gotLon, 1e-5)
	assert.InDelta(t, h, c.state.H, 1e-5)
	assert.InDelta(t, g.ITOW, c.state.T, 1e-6)
}

func TestRunOfflineInitializesAndCorrects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = timesync.Offline
	c := NewController(cfg, nil)

	var packets []packet.Packet
	for i := 0; i < 300; i++ {
		packets = append(packets, packet.Packet{Kind: packet.KindA, A: packet.A{ITOW: float64(i) * 0.01, Accel: packet.Vec3{Z: -9.80665}}})
	}
	g := gFix(2.99, 0.1, 0.2, 500)
	packets = append(packets, packet.Packet{Kind: packet.KindG, G: g})
	for i := 300; i < 310; i++ {
		packets = append(packets, packet.Packet{Kind: packet.KindA, A: packet.A{ITOW: float64(i) * 0.01, Accel: packet.Vec3{Z: -9.80665}}})
	}

	src := &sliceSource{packets: packets}
	err := c.Run(context.Background(), src)
	require.NoError(t, err)
	require.True(t, c.initialized)
	lat, lon := c.state.LatLon()
	assert.InDelta(t, 0.1, lat, 1e-3)
	assert.InDelta(t, 0.2, lon, 1e-3)
}

// TestRunTracksMovingScenarioWithPeriodicGPSCorrections drives the
// controller over a climbing, turning profile generated by simdata instead
// of a single static fix, checking the fused position stays close to truth
// throughout rather than just at one instant.
func TestRunTracksMovingScenarioWithPeriodicGPSCorrections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = timesync.Offline
	c := NewController(cfg, nil)

	scn := simdata.NewScenario([]simdata.Waypoint{
		{ITOW: 0, LatDeg: 45, LonDeg: -93, HeightM: 300, YawDeg: 0, MagN: 20, MagD: 45},
		{ITOW: 10, LatDeg: 45.002, LonDeg: -93.001, HeightM: 350, YawDeg: 10, Vn: 20, Ve: 5, MagN: 20, MagD: 45},
		{ITOW: 20, LatDeg: 45.004, LonDeg: -93.003, HeightM: 400, YawDeg: 20, Vn: 18, Ve: 8, MagN: 20, MagD: 45},
	})

	const dt = 0.01
	var packets []packet.Packet
	nextG := scn.BeginTime() + 1
	for t := scn.BeginTime(); t <= scn.EndTime(); t += dt {
		a := scn.A(t, dt)
		packets = append(packets, packet.Packet{Kind: packet.KindA, A: a})
		if t >= nextG {
			g := scn.G(t, 2, 3, 0.2)
			packets = append(packets, packet.Packet{Kind: packet.KindG, G: g})
			nextG += 1
		}
	}

	src := &sliceSource{packets: packets}
	err := c.Run(context.Background(), src)
	require.NoError(t, err)
	require.True(t, c.initialized)

	lat, lon := c.state.LatLon()
	truth := scn.G(scn.EndTime(), 0, 0, 0)
	assert.InDelta(t, truth.Solution.Lat, lat, 1e-3)
	assert.InDelta(t, truth.Solution.Lon, lon, 1e-3)
}

type sliceSource struct {
	packets []packet.Packet
	idx     int
}

func (s *sliceSource) Next() (packet.Packet, error) {
	if s.idx >= len(s.packets) {
		return packet.Packet{}, io.EOF
	}
	p := s.packets[s.idx]
	s.idx++
	return p, nil
}

func TestCalibrationSigma2Squares(t *testing.T) {
	c := Calibration{Sigma: [3]float64{0.1, 0.2, 0.3}}
	got := c.Sigma2()
	assert.InDelta(t, 0.01, got[0], 1e-12)
	assert.InDelta(t, math.Pow(0.3, 2), got[2], 1e-12)
}
