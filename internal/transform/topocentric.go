package transform

import (
	"fmt"
	"math"
)

// WGS-84 ellipsoid parameters.
const (
	wgs84AKm = 6378.137              // semi-major axis (km)
	wgs84F   = 1.0 / 298.257223563   // flattening
	wgs84E2  = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// ObserverLocation is a ground observer's geodetic position as supplied by the
// caller: degrees for latitude/longitude, meters above the WGS-84 ellipsoid.
type ObserverLocation struct {
	LatitudeDeg  float64
	LongitudeDeg float64
	AltitudeM    float64
}

// Validate checks every field against its allowed range and returns one error
// per violated constraint. An empty slice means the location is usable; partial
// validity is not accepted, so callers must see zero errors before computing.
func (o ObserverLocation) Validate() []error {
	var errs []error
	if o.LatitudeDeg < -90 || o.LatitudeDeg > 90 {
		errs = append(errs, fmt.Errorf("latitude %.4f out of range [-90, 90]", o.LatitudeDeg))
	}
	if o.LongitudeDeg < -180 || o.LongitudeDeg > 180 {
		errs = append(errs, fmt.Errorf("longitude %.4f out of range [-180, 180]", o.LongitudeDeg))
	}
	if o.AltitudeM < 0 {
		errs = append(errs, fmt.Errorf("altitude %.1f m must be >= 0", o.AltitudeM))
	}
	return errs
}

// ObserverPosition is an ObserverLocation resolved into the ECEF frame.
// The ECEF coordinates are computed once and reused across every look-angle
// evaluation in a search window.
type ObserverPosition struct {
	LatRad, LonRad, AltKm float64 // geodetic (radians, km above ellipsoid)
	ECEFx, ECEFy, ECEFz   float64 // km
}

// LookAngles is a topocentric snapshot of an object as seen from an observer.
type LookAngles struct {
	AzimuthDeg   float64 // 0 = North, clockwise, [0, 360)
	ElevationDeg float64 // 90 = zenith, negative below the mathematical horizon
	RangeKm      float64
}

// NewObserverPosition converts geodetic coordinates to ECEF on the WGS-84
// ellipsoid. Latitude/longitude in degrees, altitude in meters (converted to
// km here so all downstream vector arithmetic shares the propagator's unit).
func NewObserverPosition(latDeg, lonDeg, altM float64) ObserverPosition {
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0
	altKm := altM / 1000.0

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	// Radius of curvature in the prime vertical.
	N := wgs84AKm / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return ObserverPosition{
		LatRad: lat,
		LonRad: lon,
		AltKm:  altKm,
		ECEFx:  (N + altKm) * cosLat * math.Cos(lon),
		ECEFy:  (N + altKm) * cosLat * math.Sin(lon),
		ECEFz:  (N*(1-wgs84E2) + altKm) * sinLat,
	}
}

// Resolve converts a validated ObserverLocation into an ObserverPosition.
func (o ObserverLocation) Resolve() ObserverPosition {
	return NewObserverPosition(o.LatitudeDeg, o.LongitudeDeg, o.AltitudeM)
}

// ECEFToLookAngles computes azimuth, elevation, and range from an observer to
// an object given in ECEF km, using the SEZ (South-East-Zenith) topocentric
// rotation per Vallado Section 4.4.
func ECEFToLookAngles(obs ObserverPosition, satX, satY, satZ float64) LookAngles {
	// Line-of-sight vector in ECEF.
	rx := satX - obs.ECEFx
	ry := satY - obs.ECEFy
	rz := satZ - obs.ECEFz

	sinLat := math.Sin(obs.LatRad)
	cosLat := math.Cos(obs.LatRad)
	sinLon := math.Sin(obs.LonRad)
	cosLon := math.Cos(obs.LonRad)

	south := sinLat*cosLon*rx + sinLat*sinLon*ry - cosLat*rz
	east := -sinLon*rx + cosLon*ry
	zenith := cosLat*cosLon*rx + cosLat*sinLon*ry + sinLat*rz

	rangeKm := math.Sqrt(south*south + east*east + zenith*zenith)
	if rangeKm == 0 {
		// Coincident points have no defined direction; report zeros, not NaN.
		return LookAngles{}
	}

	el := math.Asin(zenith / rangeKm)

	// North = -South in SEZ, so az = atan2(east, -south), clockwise from North.
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return LookAngles{
		AzimuthDeg:   az * 180.0 / math.Pi,
		ElevationDeg: el * 180.0 / math.Pi,
		RangeKm:      rangeKm,
	}
}
