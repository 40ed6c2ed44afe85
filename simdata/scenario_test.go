package simdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func levelScenario() *Scenario {
	return NewScenario([]Waypoint{
		{ITOW: 0, LatDeg: 45, LonDeg: -93, HeightM: 300, MagN: 20, MagE: 0, MagD: 45},
		{ITOW: 10, LatDeg: 45, LonDeg: -93, HeightM: 300, MagN: 20, MagE: 0, MagD: 45},
	})
}

func TestStationaryLevelScenarioReportsMinusGravityOnZ(t *testing.T) {
	s := levelScenario()
	a := s.A(5, 0.1)
	assert.InDelta(t, 0, a.Accel.X, 1e-6)
	assert.InDelta(t, 0, a.Accel.Y, 1e-6)
	assert.InDelta(t, -9.80, a.Accel.Z, 0.02)
	assert.InDelta(t, 0, a.Omega.X, 1e-9)
}

func TestMagnetometerMatchesLocalFieldWhenLevel(t *testing.T) {
	s := levelScenario()
	m := s.M(5)
	assert.InDelta(t, 20, m.Mag.X, 1e-9)
	assert.InDelta(t, 0, m.Mag.Y, 1e-9)
	assert.InDelta(t, 45, m.Mag.Z, 1e-9)
}

func TestGPSFixReflectsInterpolatedPosition(t *testing.T) {
	s := NewScenario([]Waypoint{
		{ITOW: 0, LatDeg: 45, LonDeg: -93, HeightM: 300},
		{ITOW: 10, LatDeg: 45.001, LonDeg: -93, HeightM: 300},
	})
	g := s.G(5, 2, 3, 0.2)
	lat, _ := g.Solution.Lat, g.Solution.Lon
	assert.InDelta(t, 45.0005*deg2rad, lat, 1e-9)
	assert.Equal(t, 2.0, g.Solution.Sigma2D)
}
