// Package geomag supplies the "IGRF-style lookup of (lat, lon, h)" spec.md
// §4.5's magnetic yaw estimate calls for. No retrieval-pack example repo
// vendors a full IGRF/WMM coefficient table (the teacher's own
// magnetometer package only ever consumes raw field samples, never models
// Earth's field), so the default here is a centered-dipole approximation
// — closed-form, no external coefficient table — behind the same Model
// interface a true IGRF/WMM implementation would satisfy, matching the
// Open Question resolution already made for ins.EGMModel: pluggable, not
// embedded.
package geomag

import "math"

// Model returns the NED components of Earth's magnetic field (µT) at a
// geodetic position.
type Model interface {
	Field(lat, lon, h float64) (north, east, down float64)
}

// DipoleModel approximates Earth's field as a centered magnetic dipole
// tilted toward the geomagnetic pole (PoleLat, PoleLon): a standard closed-form first-order model, accurate to
// within a few degrees of declination in most regions and sufficient for
// the engine's yaw auxiliary update, which only needs a consistent model
// field to compare a measured heading against.
type DipoleModel struct {
	// MomentMicroTesla is the dipole moment constant (µT·Re³); Earth's
	// accepted mean value by default.
	MomentMicroTesla float64
	// PoleLat/PoleLon locate the geomagnetic north pole (rad); IGRF's
	// approximate 2020-epoch location by default.
	PoleLat, PoleLon float64
}

// NewDipoleModel returns a DipoleModel using Earth's standard dipole
// moment and the approximate present-epoch geomagnetic pole location.
func NewDipoleModel() DipoleModel {
	return DipoleModel{
		MomentMicroTesla: 29.4,
		PoleLat:          80.7 * math.Pi / 180,
		PoleLon:          -72.7 * math.Pi / 180,
	}
}

// Field evaluates the dipole field in NED at the given geodetic position.
// h is treated as a small perturbation to Earth's mean radius.
func (d DipoleModel) Field(lat, lon, h float64) (north, east, down float64) {
	const earthRadius = 6371000.0
	r := earthRadius + h

	// Geomagnetic colatitude via the spherical law of cosines against the
	// geomagnetic pole.
	cosTheta := math.Sin(d.PoleLat)*math.Sin(lat) + math.Cos(d.PoleLat)*math.Cos(lat)*math.Cos(lon-d.PoleLon)
	cosTheta = clamp(cosTheta, -1, 1)
	theta := math.Acos(cosTheta)

	bR := -2 * d.MomentMicroTesla * math.Pow(earthRadius/r, 3) * math.Cos(theta)
	bTheta := -d.MomentMicroTesla * math.Pow(earthRadius/r, 3) * math.Sin(theta)
	down = -bR

	// Bearing from the geographic point toward the geomagnetic pole gives
	// the horizontal field's direction (the dipole field points along the
	// meridian toward magnetic north in this simplified model).
	bearing := math.Atan2(
		math.Sin(d.PoleLon-lon)*math.Cos(d.PoleLat),
		math.Cos(lat)*math.Sin(d.PoleLat)-math.Sin(lat)*math.Cos(d.PoleLat)*math.Cos(d.PoleLon-lon),
	)
	horizontal := -bTheta
	north = horizontal * math.Cos(bearing)
	east = horizontal * math.Sin(bearing)
	return
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
