package propagation

import (
	"fmt"
	"time"

	"github.com/cywf/tle-fetcher/internal/transform"
)

// Frame selects the output coordinate frame for sampled states.
type Frame string

const (
	FrameTEME Frame = "teme"
	FrameECEF Frame = "ecef"
)

// ParseFrame converts a user-supplied frame name. "eci" is accepted as an
// alias for TEME.
func ParseFrame(s string) (Frame, error) {
	switch s {
	case "teme", "eci", "":
		return FrameTEME, nil
	case "ecef":
		return FrameECEF, nil
	default:
		return "", fmt.Errorf("unsupported frame %q", s)
	}
}

// Sample is one propagated state at an instant. Position in km, velocity in
// km/s, in the frame requested from SampleRange.
type Sample struct {
	Time     time.Time  `json:"time"`
	Position [3]float64 `json:"position_km"`
	Velocity [3]float64 `json:"velocity_km_s"`
}

// SampleRange propagates eph at a fixed cadence over [start, end] inclusive
// and returns the successful samples in the requested frame. Instants where
// propagation fails are skipped; if every instant fails the result is empty,
// not an error.
func SampleRange(eph Ephemeris, start, end time.Time, step time.Duration, frame Frame) ([]Sample, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end %s before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %s", step)
	}

	samples := make([]Sample, 0, int(end.Sub(start)/step)+1)
	for t := start; !t.After(end); t = t.Add(step) {
		teme, err := eph.StateAt(t)
		if err != nil {
			continue
		}

		s := Sample{Time: t}
		switch frame {
		case FrameECEF:
			ecef := transform.TEMEToECEF(teme, t)
			s.Position = [3]float64{ecef.X, ecef.Y, ecef.Z}
			s.Velocity = [3]float64{ecef.VX, ecef.VY, ecef.VZ}
		default:
			s.Position = [3]float64{teme.X, teme.Y, teme.Z}
			s.Velocity = [3]float64{teme.VX, teme.VY, teme.VZ}
		}
		samples = append(samples, s)
	}

	return samples, nil
}
