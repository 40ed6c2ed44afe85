// Package ins implements the strapdown inertial mechanization in the
// north-east-down (NED) navigation frame (spec.md §4.2): attitude and
// position-quaternion propagation, WGS-84 Earth/gravity modeling, and the
// bias-augmented Gauss-Markov variant. Grounded algorithmically on
// original_source/tool/INS_GPS.cpp's mechanization step; state layout
// follows the teacher's ahrs.State field-grouping convention (named
// scalar components rather than opaque vectors) adapted to this engine's
// navigation quantities.
package ins

import "math"

// WGS-84 ellipsoid constants.
const (
	WGS84SemiMajorAxis  = 6378137.0       // a, m
	WGS84Flattening     = 1 / 298.257223563 // f
	WGS84AngularRateIE  = 7.292115e-5     // Earth rotation rate, rad/s
	WGS84GM             = 3.986004418e14  // gravitational constant, m^3/s^2
)

// WGS84Eccentricity2 returns the ellipsoid's first eccentricity squared.
func WGS84Eccentricity2() float64 {
	f := WGS84Flattening
	return f * (2 - f)
}

// MeridianRadius returns R_M, the ellipsoid's radius of curvature in the
// meridian at the given geodetic latitude (rad).
func MeridianRadius(lat float64) float64 {
	e2 := WGS84Eccentricity2()
	sinLat := math.Sin(lat)
	denom := 1 - e2*sinLat*sinLat
	return WGS84SemiMajorAxis * (1 - e2) / math.Pow(denom, 1.5)
}

// TransverseRadius returns R_N, the ellipsoid's radius of curvature in the
// prime vertical (transverse) at the given geodetic latitude (rad).
func TransverseRadius(lat float64) float64 {
	e2 := WGS84Eccentricity2()
	sinLat := math.Sin(lat)
	denom := 1 - e2*sinLat*sinLat
	return WGS84SemiMajorAxis / math.Sqrt(denom)
}

// EarthRateNED returns the Earth rotation rate ω_ie^n expressed in the NED
// navigation frame at the given geodetic latitude.
func EarthRateNED(lat float64) (n, e, d float64) {
	n = WGS84AngularRateIE * math.Cos(lat)
	e = 0
	d = -WGS84AngularRateIE * math.Sin(lat)
	return
}

// TransportRateNED returns the navigation-frame transport rate ω_en^n
// induced by motion over the curved Earth, given NED velocity, latitude
// and height.
func TransportRateNED(vn, ve, lat, h float64) (n, e, d float64) {
	rm := MeridianRadius(lat) + h
	rn := TransverseRadius(lat) + h
	n = ve / rn
	e = -vn / rm
	d = -ve * math.Tan(lat) / rn
	return
}

// GravityModel computes the NED gravity vector's down component (and, for
// non-spherical models, small north/east anomalies) at a geodetic position.
// The default is WGS-84 normal gravity (Somigliana's formula); --use_egm
// substitutes a pluggable implementation, per the Open Question in
// spec.md §9: the precise EGM coefficients are supplied externally and are
// never embedded in the core.
type GravityModel interface {
	Gravity(lat, h float64) (gn, ge, gd float64)
}

// NormalGravity implements WGS-84 normal gravity via Somigliana's formula.
type NormalGravity struct{}

// Published WGS-84 normal-gravity formula constants.
const (
	gravityEquatorial = 9.7803253359
	somiglianaK       = 0.00193185265241
)

// Gravity returns the down-component of normal gravity at the given
// geodetic latitude and height, including the linear free-air correction;
// north/east components are zero for this ellipsoidal model.
func (NormalGravity) Gravity(lat, h float64) (gn, ge, gd float64) {
	sinLat := math.Sin(lat)
	sin2Lat := sinLat * sinLat
	e2 := WGS84Eccentricity2()
	g0 := gravityEquatorial * (1 + somiglianaK*sin2Lat) / math.Sqrt(1-e2*sin2Lat)
	gd = g0 * (1 - 2*h/WGS84SemiMajorAxis*(1+WGS84Flattening) + 3*h*h/(WGS84SemiMajorAxis*WGS84SemiMajorAxis))
	return 0, 0, gd
}

// EGMModel is a pluggable higher-fidelity gravity model. Its coefficient
// table must be supplied by the caller (see Config.Gravity); an
// EGMModel with a nil Lookup always defers to NormalGravity rather than
// guessing at embedded coefficients.
type EGMModel struct {
	// Lookup, if non-nil, returns the down-component gravity anomaly (m/s^2)
	// at (lat, lon, h) relative to WGS-84 normal gravity.
	Lookup func(lat, lon, h float64) float64
	Lon    float64
}

// Gravity returns WGS-84 normal gravity plus the configured EGM anomaly, or
// pure normal gravity when no coefficient table has been injected.
func (e EGMModel) Gravity(lat, h float64) (gn, ge, gd float64) {
	_, _, gd = NormalGravity{}.Gravity(lat, h)
	if e.Lookup != nil {
		gd += e.Lookup(lat, e.Lon, h)
	}
	return 0, 0, gd
}
