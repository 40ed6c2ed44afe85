package fusion

import (
	"math"

	"github.com/westphae/insgps/geomag"
	"github.com/westphae/insgps/ins"
	"github.com/westphae/insgps/packet"
)

// interpolatedMag linearly interpolates the M buffer to the given itow,
// refusing extrapolation beyond three sample intervals, per spec.md
// §4.5's magnetic yaw estimate rule.
func interpolatedMag(buf *mBuffer, itow float64) (packet.Vec3, bool) {
	prev, last, ok := buf.InterpolationPair()
	if !ok {
		if s, ok2 := buf.LastSample(); ok2 {
			return s.Mag, true
		}
		return packet.Vec3{}, false
	}
	dt := last.ITOW - prev.ITOW
	if dt <= 0 {
		return last.Mag, true
	}
	maxExtrap := 3 * dt
	if itow < prev.ITOW-maxExtrap || itow > last.ITOW+maxExtrap {
		return packet.Vec3{}, false
	}
	frac := (itow - prev.ITOW) / dt
	return packet.Vec3{
		X: prev.Mag.X + frac*(last.Mag.X-prev.Mag.X),
		Y: prev.Mag.Y + frac*(last.Mag.Y-prev.Mag.Y),
		Z: prev.Mag.Z + frac*(last.Mag.Z-prev.Mag.Z),
	}, true
}

// magneticYawEstimate rotates the interpolated magnetometer sample into
// NED using the current attitude, then compares its heading against the
// configured field model's heading at the state's position, per spec.md
// §4.5.
func magneticYawEstimate(s *ins.State, mag packet.Vec3, model geomag.Model) (yaw float64, ok bool) {
	n, e, _ := s.RotateBodyToNED(mag.X, mag.Y, mag.Z)
	measHeading := math.Atan2(e, n)

	lat, lon := s.LatLon()
	modelN, modelE, _ := model.Field(lat, lon, s.H)
	modelHeading := math.Atan2(modelE, modelN)

	_, _, predictedYaw := s.RollPitchYaw()
	// yaw = predicted heading corrected by the model-vs-measured heading
	// discrepancy, i.e. the estimated true heading implied by this sample.
	yaw = predictedYaw + (modelHeading - measHeading)
	return yaw, true
}
