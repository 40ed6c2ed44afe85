package geomag

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldPointsNorthAtGeomagneticPole(t *testing.T) {
	d := NewDipoleModel()
	n, e, down := d.Field(d.PoleLat, d.PoleLon, 0)
	assert.InDelta(t, 0, n, 1e-6)
	assert.InDelta(t, 0, e, 1e-6)
	assert.Less(t, down, 0.0) // field points up out of the pole in this convention
}

func TestFieldMagnitudeDecreasesWithAltitude(t *testing.T) {
	d := NewDipoleModel()
	n0, e0, d0 := d.Field(0.5, 0.3, 0)
	n1, e1, d1 := d.Field(0.5, 0.3, 1e6)
	mag0 := math.Sqrt(n0*n0 + e0*e0 + d0*d0)
	mag1 := math.Sqrt(n1*n1 + e1*e1 + d1*d1)
	assert.Less(t, mag1, mag0)
}
