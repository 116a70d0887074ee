// Command diag runs an offline visibility check: it parses a TLE catalog
// file, runs the batch windower for a configured observer and window, and
// prints the resulting passes.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/cywf/tle-fetcher/internal/passes"
	"github.com/cywf/tle-fetcher/internal/tle"
	"github.com/cywf/tle-fetcher/internal/transform"
)

func main() {
	var (
		file     = flag.String("file", "", "path to a 3-line TLE catalog file")
		lat      = flag.Float64("lat", 39.7392, "observer latitude (degrees)")
		lon      = flag.Float64("lon", -104.9903, "observer longitude (degrees)")
		alt      = flag.Float64("alt", 1609, "observer altitude (meters)")
		duration = flag.Int("minutes", 720, "search window length (minutes)")
		minElev  = flag.Float64("min-elevation", 5, "elevation threshold (degrees)")
		step     = flag.Int("step", 10, "step cadence (seconds)")
		limit    = flag.Int("limit", 10, "maximum number of objects to check")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: diag -file <catalog.txt> [flags]")
		os.Exit(2)
	}

	loc := transform.ObserverLocation{LatitudeDeg: *lat, LongitudeDeg: *lon, AltitudeM: *alt}
	if errs := loc.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, "observer:", e)
		}
		os.Exit(2)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR reading catalog:", err)
		os.Exit(1)
	}

	entries, err := tle.Parse(bytes.NewReader(data), logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR parsing catalog:", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d TLE entries\n", len(entries))

	if len(entries) > *limit {
		entries = entries[:*limit]
	}

	objects := make(map[string]tle.ElementSet, len(entries))
	for _, e := range entries {
		objects[strconv.Itoa(e.NORADID)] = e
	}

	start := time.Now().UTC()
	fmt.Printf("Window start: %v, duration: %dm, threshold: %.1f°, step: %ds\n",
		start.Format(time.RFC3339), *duration, *minElev, *step)

	result, failures := passes.Aggregate(context.Background(), passes.Request{
		Observer: loc.Resolve(),
		Window: passes.Window{
			Start:           start,
			Duration:        time.Duration(*duration) * time.Minute,
			MinElevationDeg: *minElev,
			Step:            time.Duration(*step) * time.Second,
		},
		Objects: objects,
		LinkFor: func(id string) string { return "https://www.n2yo.com/satellite/?s=" + id },
	})

	for _, f := range failures {
		fmt.Printf("  object %s: ERROR %s\n", f.ObjectID, f.Message)
	}
	for _, p := range result {
		fmt.Printf("  object %s: entry=%v exit=%v peak=%.1f°\n",
			p.ObjectID, p.Entry.Format(time.RFC3339), p.Exit.Format(time.RFC3339), p.PeakElevationDeg)
	}
	fmt.Printf("\nPasses found: %d (failures: %d, objects checked: %d)\n", len(result), len(failures), len(objects))
}
