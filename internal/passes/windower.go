// Package passes predicts when Earth-orbiting objects are visible from a
// fixed ground observer, summarizing each visibility interval with its time
// bounds and peak elevation.
package passes

import (
	"time"

	"github.com/cywf/tle-fetcher/internal/propagation"
	"github.com/cywf/tle-fetcher/internal/transform"
)

// DefaultStep fills a Window whose Step is zero. DefaultMinElevation is the
// threshold request boundaries (the HTTP API, the diag CLI) apply when the
// caller omits the field; it is NOT applied here, because inside this package
// a zero MinElevationDeg is meaningful: it searches down to the mathematical
// horizon.
const (
	DefaultStep         = 10 * time.Second
	DefaultMinElevation = 5.0 // degrees
)

// Window describes a visibility search: start instant, length, elevation
// threshold, and the fixed step cadence between evaluated instants.
// MinElevationDeg is taken literally, including 0 for the horizon.
type Window struct {
	Start           time.Time
	Duration        time.Duration
	MinElevationDeg float64
	Step            time.Duration
}

// withDefaults fills a zero step cadence with the package default.
func (w Window) withDefaults() Window {
	if w.Step <= 0 {
		w.Step = DefaultStep
	}
	return w
}

// PassSummary is one contiguous above-threshold visibility interval.
// Entry never exceeds Exit, and PeakElevationDeg is at least the threshold
// that produced it. Immutable after creation.
type PassSummary struct {
	ObjectID         string    `json:"object_id"`
	Entry            time.Time `json:"entry"`
	Exit             time.Time `json:"exit"`
	PeakElevationDeg float64   `json:"peak_elevation_deg"`
	Link             string    `json:"link,omitempty"`
}

// FindFirstPass steps through the window at the fixed cadence, classifying
// each instant as above or below the elevation threshold, and reports the
// first contiguous above-threshold run as a pass.
//
// Entry and exit times are quantized to the step cadence: the entry is the
// first evaluated instant at or above the threshold, the exit the last; no
// sub-step crossing interpolation is attempted. A propagation failure at a
// step neither starts nor ends a pass; the step is simply skipped.
//
// Only the FIRST contiguous run in the window is reported; if the elevation
// rises above the threshold again later in the same window, those runs are
// dropped. Callers needing every pass in a long window re-invoke with the
// start narrowed past each detected exit. If the object is still above the
// threshold when the window ends, the pass closes at the last successfully
// computed step.
//
// The second return value is false when no instant reached the threshold,
// a valid outcome, not an error.
func FindFirstPass(eph propagation.Ephemeris, obs transform.ObserverPosition, w Window) (PassSummary, bool) {
	w = w.withDefaults()
	end := w.Start.Add(w.Duration)

	var (
		pass  PassSummary
		above bool
		found bool
	)

	for t := w.Start; !t.After(end); t = t.Add(w.Step) {
		teme, err := eph.StateAt(t)
		if err != nil {
			// No data at this instant. It is not "below horizon": the
			// current pass, if any, stays open and its peak stands.
			continue
		}

		ecef := transform.TEMEToECEF(teme, t)
		la := transform.ECEFToLookAngles(obs, ecef.X, ecef.Y, ecef.Z)

		if la.ElevationDeg >= w.MinElevationDeg {
			if !above {
				above = true
				found = true
				pass.Entry = t
				pass.PeakElevationDeg = la.ElevationDeg
			}
			pass.Exit = t
			if la.ElevationDeg > pass.PeakElevationDeg {
				pass.PeakElevationDeg = la.ElevationDeg
			}
		} else if above {
			// First run has ended; later runs in this window are dropped.
			break
		}
	}

	if !found {
		return PassSummary{}, false
	}
	return pass, true
}
