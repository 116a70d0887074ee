package propagation

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/cywf/tle-fetcher/internal/transform"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Pure Go (no CGO), explicit TEME output, includes GSTimeFromDate/ECIToECEF
// for cross-validation in the transform tests.
//
// Note: Propagate() takes Satellite by value, so SGP4 error codes at the
// propagation step are not visible to the caller. Failures are detected by
// checking the output for NaN/Inf and unreasonable position magnitudes.

// Ephemeris yields an object's inertial-frame state at an instant.
//
// Implementations must be pure functions of (handle, instant) with no mutable
// state carried between calls; repeated calls are independent and safely
// reorderable. A failure is a typed *Error, never a silent zero vector;
// callers treat the instant as "no data", not "below horizon".
type Ephemeris interface {
	StateAt(t time.Time) (transform.PositionTEME, error)
}

// Error is a propagation failure at a specific instant for a specific object.
type Error struct {
	NORADID int
	At      time.Time
	Reason  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("sgp4 propagation failed for NORAD %d at %s: %s",
		e.NORADID, e.At.UTC().Format(time.RFC3339), e.Reason)
}

// SGP4 wraps the go-satellite model for a single object.
type SGP4 struct {
	sat     satellite.Satellite
	noradID int
}

// NewSGP4 initializes an SGP4 model from validated TLE lines.
//
// Pre-validates line format before handing off to the library, because
// go-satellite calls log.Fatal on malformed input (which would kill the
// process).
func NewSGP4(line1, line2 string, noradID int) (*SGP4, error) {
	if err := validateLines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for NORAD %d: %w", noradID, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", noradID, sat.Error, sat.ErrorStr)
	}
	return &SGP4{sat: sat, noradID: noradID}, nil
}

// validateLines performs the format checks the library itself fatals on.
func validateLines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// StateAt computes the object's TEME position and velocity (km, km/s) at t.
func (p *SGP4) StateAt(t time.Time) (transform.PositionTEME, error) {
	t = t.UTC()
	pos, vel := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return transform.PositionTEME{}, &Error{NORADID: p.noradID, At: t, Reason: "output is NaN/Inf"}
	}

	// Position magnitude must land between the lowest surviving perigee and
	// well past GEO; a decayed or degenerate orbit falls outside.
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return transform.PositionTEME{}, &Error{
			NORADID: p.noradID,
			At:      t,
			Reason:  fmt.Sprintf("unreasonable position magnitude %.1f km", mag),
		}
	}

	return transform.PositionTEME{
		X:  pos.X,
		Y:  pos.Y,
		Z:  pos.Z,
		VX: vel.X,
		VY: vel.Y,
		VZ: vel.Z,
	}, nil
}

// NORADID returns the catalog number this model was initialized with.
func (p *SGP4) NORADID() int {
	return p.noradID
}
