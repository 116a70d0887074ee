// Package transform provides the coordinate frame conversions between SGP4
// output and a ground observer's local horizon.
//
// SGP4 emits positions in TEME (True Equator Mean Equinox); the observer lives
// on the rotating Earth, so both sides are expressed in ECEF (Earth-Centered
// Earth-Fixed) before any line-of-sight arithmetic. The TEME→ECEF rotation here
// is the simplified Vallado method using GMST only (TEME → PEF ≈ ECEF), which
// ignores polar motion and the equation of equinoxes, at most tens of meters
// of error, well under a 10-second windowing cadence.
//
// All distances in this package are kilometers, matching the propagator's
// native unit. Angles are degrees at the public boundary and radians inside.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import (
	"math"
	"time"
)

// PositionTEME is a position/velocity state in the TEME frame (km, km/s).
type PositionTEME struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// PositionECEF is a position/velocity state in the ECEF frame (km, km/s).
type PositionECEF struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// TEMEToECEF rotates a TEME state into ECEF at the given UTC instant.
func TEMEToECEF(teme PositionTEME, t time.Time) PositionECEF {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST rotates TEME into ECEF using a precomputed GMST angle
// (radians). Useful when transforming many objects at the same instant.
//
// Position: r_ECEF = R3(θ) * r_TEME
// Velocity: v_ECEF = R3(θ) * v_TEME - ω × r_ECEF
//
// where R3(θ) rotates about the Z-axis by GMST and ω = [0, 0, ω_earth].
func TEMEToECEFWithGMST(teme PositionTEME, gmst float64) PositionECEF {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	x := teme.X*cosG + teme.Y*sinG
	y := -teme.X*sinG + teme.Y*cosG
	z := teme.Z

	vxRot := teme.VX*cosG + teme.VY*sinG
	vyRot := -teme.VX*sinG + teme.VY*cosG

	// ω × r_ECEF = [-ω*y, ω*x, 0]
	return PositionECEF{
		X:  x,
		Y:  y,
		Z:  z,
		VX: vxRot + OmegaEarth*y,
		VY: vyRot - OmegaEarth*x,
		VZ: teme.VZ,
	}
}

// ValidateECEF reports whether an ECEF position is physically plausible for an
// Earth-orbiting object: finite components and a magnitude between the lowest
// surviving perigee (~6200 km) and well beyond GEO (~50000 km).
func ValidateECEF(pos PositionECEF) bool {
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) {
		return false
	}
	if math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return false
	}

	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)

	const minRadiusKm = 6200.0
	const maxRadiusKm = 50000.0
	return mag >= minRadiusKm && mag <= maxRadiusKm
}
