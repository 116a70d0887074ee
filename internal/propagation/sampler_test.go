package propagation

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/cywf/tle-fetcher/internal/transform"
)

// flakyEphemeris fails at instants selected by failAt, otherwise returns a
// fixed state.
type flakyEphemeris struct {
	failAt func(t time.Time) bool
}

func (f *flakyEphemeris) StateAt(t time.Time) (transform.PositionTEME, error) {
	if f.failAt != nil && f.failAt(t) {
		return transform.PositionTEME{}, &Error{NORADID: 99999, At: t, Reason: "decayed"}
	}
	return transform.PositionTEME{X: 7000, VX: 7.5}, nil
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		in      string
		want    Frame
		wantErr bool
	}{
		{"teme", FrameTEME, false},
		{"eci", FrameTEME, false},
		{"", FrameTEME, false},
		{"ecef", FrameECEF, false},
		{"itrf", "", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			got, err := ParseFrame(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("frame = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSampleRangeCount(t *testing.T) {
	eph := &flakyEphemeris{}
	start := time.Date(2020, 12, 9, 22, 0, 0, 0, time.UTC)

	// [start, start+5m] at 60 s is 6 inclusive instants.
	samples, err := SampleRange(eph, start, start.Add(5*time.Minute), time.Minute, FrameTEME)
	if err != nil {
		t.Fatalf("SampleRange: %v", err)
	}
	if len(samples) != 6 {
		t.Fatalf("got %d samples, want 6", len(samples))
	}
	if !samples[0].Time.Equal(start) {
		t.Errorf("first sample at %s, want %s", samples[0].Time, start)
	}
	if !samples[5].Time.Equal(start.Add(5 * time.Minute)) {
		t.Errorf("last sample at %s, want end instant", samples[5].Time)
	}
}

func TestSampleRangeSkipsFailedInstants(t *testing.T) {
	start := time.Date(2020, 12, 9, 22, 0, 0, 0, time.UTC)
	bad := start.Add(2 * time.Minute)
	eph := &flakyEphemeris{failAt: func(t time.Time) bool { return t.Equal(bad) }}

	samples, err := SampleRange(eph, start, start.Add(4*time.Minute), time.Minute, FrameTEME)
	if err != nil {
		t.Fatalf("SampleRange: %v", err)
	}
	if len(samples) != 4 {
		t.Fatalf("got %d samples, want 4 (one skipped)", len(samples))
	}
	for _, s := range samples {
		if s.Time.Equal(bad) {
			t.Errorf("failed instant %s present in output", bad)
		}
	}
}

func TestSampleRangeAllFailedIsEmptyNotError(t *testing.T) {
	start := time.Date(2020, 12, 9, 22, 0, 0, 0, time.UTC)
	eph := &flakyEphemeris{failAt: func(time.Time) bool { return true }}

	samples, err := SampleRange(eph, start, start.Add(3*time.Minute), time.Minute, FrameTEME)
	if err != nil {
		t.Fatalf("SampleRange: %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("got %d samples, want 0", len(samples))
	}
}

func TestSampleRangeRejectsBadArguments(t *testing.T) {
	eph := &flakyEphemeris{}
	start := time.Date(2020, 12, 9, 22, 0, 0, 0, time.UTC)

	if _, err := SampleRange(eph, start, start.Add(-time.Minute), time.Minute, FrameTEME); err == nil {
		t.Error("end before start accepted")
	}
	if _, err := SampleRange(eph, start, start.Add(time.Minute), 0, FrameTEME); err == nil {
		t.Error("zero step accepted")
	}
}

// TestSampleRangeFrames propagates a real element set and checks the ECEF
// output is the TEME output rotated, not a copy.
func TestSampleRangeFrames(t *testing.T) {
	eph, err := NewSGP4(issLine1, issLine2, 25544)
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	teme, err := SampleRange(eph, issEpoch, issEpoch, time.Minute, FrameTEME)
	if err != nil || len(teme) != 1 {
		t.Fatalf("teme samples = %d, err = %v", len(teme), err)
	}
	ecef, err := SampleRange(eph, issEpoch, issEpoch, time.Minute, FrameECEF)
	if err != nil || len(ecef) != 1 {
		t.Fatalf("ecef samples = %d, err = %v", len(ecef), err)
	}

	if teme[0].Position == ecef[0].Position {
		t.Error("ECEF position identical to TEME, rotation not applied")
	}

	magTEME := math.Hypot(math.Hypot(teme[0].Position[0], teme[0].Position[1]), teme[0].Position[2])
	magECEF := math.Hypot(math.Hypot(ecef[0].Position[0], ecef[0].Position[1]), ecef[0].Position[2])
	if math.Abs(magTEME-magECEF) > 1e-6 {
		t.Errorf("rotation changed magnitude: %.9f vs %.9f km", magTEME, magECEF)
	}
}
