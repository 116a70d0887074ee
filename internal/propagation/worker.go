package propagation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cywf/tle-fetcher/internal/tle"
	"github.com/cywf/tle-fetcher/internal/transform"
)

// ObjectPosition is one object's ECEF state at a snapshot instant (km, km/s).
type ObjectPosition struct {
	NORADID  int        `json:"norad_id"`
	Name     string     `json:"name,omitempty"`
	Position [3]float64 `json:"position_km"`
	Velocity [3]float64 `json:"velocity_km_s"`
}

// snapshotJob is a unit of work for the worker pool.
type snapshotJob struct {
	entry tle.ElementSet
	at    time.Time
	gmst  float64 // precomputed GMST for the snapshot instant
}

type snapshotResult struct {
	position ObjectPosition
	err      error
	noradID  int
}

// WorkerPool runs catalog-wide propagation snapshots across a fixed number of
// goroutines.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	return &WorkerPool{workers: workers, logger: logger}
}

// Snapshot propagates every catalog entry to the same instant. Entries whose
// elements fail validation or whose propagation fails are logged and skipped;
// the counts of successes and failures are returned alongside the positions.
func (wp *WorkerPool) Snapshot(ctx context.Context, entries []tle.ElementSet, at time.Time) ([]ObjectPosition, int, int) {
	if len(entries) == 0 {
		return nil, 0, 0
	}

	// GMST is identical for every object at the snapshot instant.
	gmst := transform.GMST(at)

	jobs := make(chan snapshotJob, wp.workers*2)
	results := make(chan snapshotResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := snapshotSingle(job)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, entry := range entries {
			select {
			case jobs <- snapshotJob{entry: entry, at: at, gmst: gmst}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	positions := make([]ObjectPosition, 0, len(entries))
	var successCount, errorCount int

	for result := range results {
		if result.err != nil {
			errorCount++
			wp.logger.Warn("snapshot propagation failed",
				"norad_id", result.noradID,
				"error", result.err,
			)
			continue
		}
		successCount++
		positions = append(positions, result.position)
	}

	return positions, successCount, errorCount
}

func snapshotSingle(job snapshotJob) snapshotResult {
	eph, err := NewSGP4(job.entry.Line1, job.entry.Line2, job.entry.NORADID)
	if err != nil {
		return snapshotResult{noradID: job.entry.NORADID, err: err}
	}

	teme, err := eph.StateAt(job.at)
	if err != nil {
		return snapshotResult{noradID: job.entry.NORADID, err: err}
	}

	ecef := transform.TEMEToECEFWithGMST(teme, job.gmst)
	return snapshotResult{
		noradID: job.entry.NORADID,
		position: ObjectPosition{
			NORADID:  job.entry.NORADID,
			Name:     job.entry.Name,
			Position: [3]float64{ecef.X, ecef.Y, ecef.Z},
			Velocity: [3]float64{ecef.VX, ecef.VY, ecef.VZ},
		},
	}
}
