package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cywf/tle-fetcher/internal/metrics"
	"github.com/cywf/tle-fetcher/internal/passes"
	"github.com/cywf/tle-fetcher/internal/propagation"
	"github.com/cywf/tle-fetcher/internal/tle"
	"github.com/cywf/tle-fetcher/internal/transform"
)

// Bounds accepted for the search window length.
const (
	minDurationMinutes = 1
	maxDurationMinutes = 1440
)

// referenceLink formats the external reference link attached to each result.
func referenceLink(objectID string) string {
	return "https://www.n2yo.com/satellite/?s=" + objectID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// passesRequest is the POST /api/v1/passes body. MinElevationDeg is a pointer
// so an absent field (take the default) is distinguishable from an explicit 0
// (search down to the horizon).
type passesRequest struct {
	Observer struct {
		LatitudeDeg  float64 `json:"latitude_deg"`
		LongitudeDeg float64 `json:"longitude_deg"`
		AltitudeM    float64 `json:"altitude_m"`
	} `json:"observer"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
	MinElevationDeg *float64  `json:"min_elevation_deg"`
	StepSeconds     int       `json:"step_seconds"`
	NORADIDs        []int     `json:"norad_ids,omitempty"`
}

// passesResponse pairs the ordered pass list with the per-object failures so
// a batch can partially succeed.
type passesResponse struct {
	Passes []passes.PassSummary `json:"passes"`
	Errors []passes.ObjectError `json:"errors,omitempty"`
}

func (s *Server) handlePasses(w http.ResponseWriter, r *http.Request) {
	var req passesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	loc := transform.ObserverLocation{
		LatitudeDeg:  req.Observer.LatitudeDeg,
		LongitudeDeg: req.Observer.LongitudeDeg,
		AltitudeM:    req.Observer.AltitudeM,
	}
	if errs := loc.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": msgs})
		return
	}

	if req.DurationMinutes < minDurationMinutes || req.DurationMinutes > maxDurationMinutes {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("duration_minutes %d out of range [%d, %d]", req.DurationMinutes, minDurationMinutes, maxDurationMinutes))
		return
	}
	minElevation := passes.DefaultMinElevation
	if req.MinElevationDeg != nil {
		if *req.MinElevationDeg < 0 || *req.MinElevationDeg > 90 {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("min_elevation_deg %.1f out of range [0, 90]", *req.MinElevationDeg))
			return
		}
		minElevation = *req.MinElevationDeg
	}
	if req.StepSeconds < 0 {
		writeError(w, http.StatusBadRequest, "step_seconds must be non-negative (0 selects the default)")
		return
	}
	if req.Start.IsZero() {
		writeError(w, http.StatusBadRequest, "start is required")
		return
	}

	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no TLE dataset loaded")
		return
	}

	objects := selectObjects(ds, req.NORADIDs)
	if len(objects) == 0 {
		writeError(w, http.StatusNotFound, "no matching objects in catalog")
		return
	}

	result, failures := passes.Aggregate(r.Context(), passes.Request{
		Observer: loc.Resolve(),
		Window: passes.Window{
			Start:           req.Start,
			Duration:        time.Duration(req.DurationMinutes) * time.Minute,
			MinElevationDeg: minElevation,
			Step:            time.Duration(req.StepSeconds) * time.Second,
		},
		Objects: objects,
		LinkFor: referenceLink,
	})

	writeJSON(w, http.StatusOK, passesResponse{Passes: result, Errors: failures})
}

// selectObjects filters the dataset down to the requested NORAD IDs, keyed by
// decimal object identifier. An empty filter selects the whole catalog.
func selectObjects(ds *tle.Dataset, ids []int) map[string]tle.ElementSet {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	objects := make(map[string]tle.ElementSet)
	for _, es := range ds.Satellites {
		if len(want) > 0 && !want[es.NORADID] {
			continue
		}
		objects[strconv.Itoa(es.NORADID)] = es
	}
	return objects
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no TLE dataset loaded")
		return
	}

	at := time.Now().UTC()
	if v := r.URL.Query().Get("at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'at' timestamp: "+err.Error())
			return
		}
		at = t.UTC()
	}

	start := time.Now()
	positions, success, errors := s.pool.Snapshot(r.Context(), ds.Satellites, at)
	metrics.RecordSnapshot(time.Since(start), success, errors)

	writeJSON(w, http.StatusOK, map[string]any{
		"time":      at.Format(time.RFC3339),
		"count":     len(positions),
		"errors":    errors,
		"positions": positions,
	})
}

func (s *Server) handlePropagate(w http.ResponseWriter, r *http.Request) {
	noradID, err := strconv.Atoi(r.PathValue("noradID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid NORAD ID")
		return
	}

	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no TLE dataset loaded")
		return
	}

	var entry *tle.ElementSet
	for i := range ds.Satellites {
		if ds.Satellites[i].NORADID == noradID {
			entry = &ds.Satellites[i]
			break
		}
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("NORAD %d not in catalog", noradID))
		return
	}

	q := r.URL.Query()
	start := time.Now().UTC()
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'start' timestamp: "+err.Error())
			return
		}
		start = t.UTC()
	}

	end := start.Add(90 * time.Minute)
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'end' timestamp: "+err.Error())
			return
		}
		end = t.UTC()
	}

	step := 60 * time.Second
	if v := q.Get("step_seconds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid 'step_seconds'")
			return
		}
		step = time.Duration(n) * time.Second
	}

	frame, err := propagation.ParseFrame(q.Get("frame"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	eph, err := propagation.NewSGP4(entry.Line1, entry.Line2, entry.NORADID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	samples, err := propagation.SampleRange(eph, start, end, step, frame)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"norad_id":     noradID,
		"frame":        string(frame),
		"step_seconds": step.Seconds(),
		"samples":      samples,
	})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no TLE dataset loaded")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"source":      ds.Source,
		"fetched_at":  ds.FetchedAt.UTC().Format(time.RFC3339),
		"age_seconds": s.store.AgeSeconds(),
		"count":       len(ds.Satellites),
		"epoch_min":   ds.EpochRange.Min.UTC().Format(time.RFC3339),
		"epoch_max":   ds.EpochRange.Max.UTC().Format(time.RFC3339),
	})
}
