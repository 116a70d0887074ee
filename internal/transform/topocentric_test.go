package transform

import (
	"math"
	"strings"
	"testing"
)

func TestObserverLocationValidate(t *testing.T) {
	tests := []struct {
		name     string
		loc      ObserverLocation
		wantErrs int
		mention  string // substring expected in the first error
	}{
		{"origin is valid", ObserverLocation{0, 0, 0}, 0, ""},
		{"poles are valid", ObserverLocation{90, 180, 0}, 0, ""},
		{"latitude too high", ObserverLocation{91, 0, 0}, 1, "latitude"},
		{"latitude too low", ObserverLocation{-90.5, 0, 0}, 1, "latitude"},
		{"longitude too low", ObserverLocation{0, -181, 0}, 1, "longitude"},
		{"longitude too high", ObserverLocation{0, 180.1, 0}, 1, "longitude"},
		{"negative altitude", ObserverLocation{0, 0, -1}, 1, "altitude"},
		{"everything wrong", ObserverLocation{120, -500, -10}, 3, "latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.loc.Validate()
			if len(errs) != tt.wantErrs {
				t.Fatalf("Validate() returned %d errors, want %d: %v", len(errs), tt.wantErrs, errs)
			}
			if tt.wantErrs > 0 && !strings.Contains(errs[0].Error(), tt.mention) {
				t.Errorf("first error %q does not mention %q", errs[0], tt.mention)
			}
		})
	}
}

func TestNewObserverPosition_ECEFMagnitude(t *testing.T) {
	// Observer at sea level should have ECEF magnitude close to Earth radius.
	obs := NewObserverPosition(0, 0, 0) // equator, prime meridian
	mag := math.Sqrt(obs.ECEFx*obs.ECEFx + obs.ECEFy*obs.ECEFy + obs.ECEFz*obs.ECEFz)

	// WGS-84 equatorial radius is 6378.137 km.
	if math.Abs(mag-6378.137) > 0.001 {
		t.Errorf("equatorial observer ECEF magnitude = %.4f km, want ~6378.137 km", mag)
	}

	// Observer at north pole: magnitude should be the polar radius, ~6356.752 km.
	obs2 := NewObserverPosition(90, 0, 0)
	mag2 := math.Sqrt(obs2.ECEFx*obs2.ECEFx + obs2.ECEFy*obs2.ECEFy + obs2.ECEFz*obs2.ECEFz)
	if math.Abs(mag2-6356.7523) > 0.001 {
		t.Errorf("polar observer ECEF magnitude = %.4f km, want ~6356.752 km", mag2)
	}
}

// TestNewObserverPosition_AltitudeUnits verifies the meters→km conversion:
// 100 m of altitude must move the observer 0.1 km outward.
func TestNewObserverPosition_AltitudeUnits(t *testing.T) {
	obs0 := NewObserverPosition(0, 0, 0)
	obs100 := NewObserverPosition(0, 0, 100)

	mag0 := math.Sqrt(obs0.ECEFx*obs0.ECEFx + obs0.ECEFy*obs0.ECEFy + obs0.ECEFz*obs0.ECEFz)
	mag100 := math.Sqrt(obs100.ECEFx*obs100.ECEFx + obs100.ECEFy*obs100.ECEFy + obs100.ECEFz*obs100.ECEFz)

	diff := mag100 - mag0
	if math.Abs(diff-0.1) > 1e-6 {
		t.Errorf("altitude difference = %.6f km, want 0.1 km", diff)
	}
}

func TestECEFToLookAngles_DirectlyOverhead(t *testing.T) {
	// Observer at equator, prime meridian. Object straight up at 400 km.
	obs := NewObserverPosition(0, 0, 0)

	la := ECEFToLookAngles(obs, obs.ECEFx+400.0, obs.ECEFy, obs.ECEFz)

	if math.Abs(la.ElevationDeg-90.0) > 0.1 {
		t.Errorf("overhead elevation = %.2f deg, want ~90", la.ElevationDeg)
	}
	if math.Abs(la.RangeKm-400.0) > 0.01 {
		t.Errorf("overhead range = %.3f km, want ~400", la.RangeKm)
	}
}

func TestECEFToLookAngles_Antipode(t *testing.T) {
	// Object on the far side of Earth must be far below the horizon.
	obs := NewObserverPosition(0, 0, 0)
	far := NewObserverPosition(0, 180, 400000) // antipode at 400 km

	la := ECEFToLookAngles(obs, far.ECEFx, far.ECEFy, far.ECEFz)
	if la.ElevationDeg > -45 {
		t.Errorf("antipodal elevation = %.2f deg, expected far below horizon", la.ElevationDeg)
	}
	if la.RangeKm <= 0 {
		t.Errorf("range must be positive, got %.2f km", la.RangeKm)
	}
}

func TestECEFToLookAngles_AzimuthDirections(t *testing.T) {
	obs := NewObserverPosition(0, 0, 0)

	// Object to the north (higher latitude, same longitude).
	satN := NewObserverPosition(10, 0, 400000)
	laN := ECEFToLookAngles(obs, satN.ECEFx, satN.ECEFy, satN.ECEFz)
	if laN.AzimuthDeg > 30 && laN.AzimuthDeg < 330 {
		t.Errorf("northward azimuth = %.2f deg, want near 0/360", laN.AzimuthDeg)
	}

	// Object to the east (same latitude, higher longitude).
	satE := NewObserverPosition(0, 10, 400000)
	laE := ECEFToLookAngles(obs, satE.ECEFx, satE.ECEFy, satE.ECEFz)
	if math.Abs(laE.AzimuthDeg-90.0) > 30 {
		t.Errorf("eastward azimuth = %.2f deg, want near 90", laE.AzimuthDeg)
	}

	// Object to the south (lower latitude, same longitude).
	satS := NewObserverPosition(-10, 0, 400000)
	laS := ECEFToLookAngles(obs, satS.ECEFx, satS.ECEFy, satS.ECEFz)
	if math.Abs(laS.AzimuthDeg-180.0) > 30 {
		t.Errorf("southward azimuth = %.2f deg, want near 180", laS.AzimuthDeg)
	}
}

// A zero-length line of sight has no direction; the result must still be
// finite, never NaN.
func TestECEFToLookAngles_CoincidentPoint(t *testing.T) {
	obs := NewObserverPosition(0, 0, 0)

	la := ECEFToLookAngles(obs, obs.ECEFx, obs.ECEFy, obs.ECEFz)
	if math.IsNaN(la.AzimuthDeg) || math.IsNaN(la.ElevationDeg) || math.IsNaN(la.RangeKm) {
		t.Fatalf("look angles contain NaN: %+v", la)
	}
	if la.RangeKm != 0 {
		t.Errorf("range = %.3f km, want 0", la.RangeKm)
	}
}

func TestResolveMatchesNewObserverPosition(t *testing.T) {
	loc := ObserverLocation{LatitudeDeg: 40.7128, LongitudeDeg: -74.006, AltitudeM: 10}
	a := loc.Resolve()
	b := NewObserverPosition(40.7128, -74.006, 10)
	if a != b {
		t.Errorf("Resolve() = %+v, NewObserverPosition = %+v", a, b)
	}
}
