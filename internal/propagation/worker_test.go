package propagation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cywf/tle-fetcher/internal/tle"
)

const (
	eseoLine1 = "1 43744U 18096AB  19115.19815699  .00002003  00000-0  78676-4 0  9994"
	eseoLine2 = "2 43744  97.4641 185.2907 0018688 163.4737 196.7173 15.26755683 22421"
)

func poolLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestSnapshotMixedCatalog(t *testing.T) {
	entries := []tle.ElementSet{
		{NORADID: 25544, Name: "ISS (ZARYA)", Line1: issLine1, Line2: issLine2},
		{NORADID: 43744, Name: "ESEO", Line1: eseoLine1, Line2: eseoLine2},
		{NORADID: 99999, Name: "CORRUPT", Line1: "garbage", Line2: "garbage"},
	}

	pool := NewWorkerPool(4, poolLogger())
	positions, ok, failed := pool.Snapshot(context.Background(), entries, issEpoch)

	if ok != 2 || failed != 1 {
		t.Fatalf("success = %d, failures = %d, want 2 and 1", ok, failed)
	}
	if len(positions) != 2 {
		t.Fatalf("got %d positions, want 2", len(positions))
	}

	seen := map[int]bool{}
	for _, p := range positions {
		seen[p.NORADID] = true
		if p.Position == [3]float64{} {
			t.Errorf("object %d has zero position", p.NORADID)
		}
	}
	if !seen[25544] || !seen[43744] {
		t.Errorf("positions missing objects: %v", seen)
	}
}

func TestSnapshotEmptyCatalog(t *testing.T) {
	pool := NewWorkerPool(2, poolLogger())
	positions, ok, failed := pool.Snapshot(context.Background(), nil, time.Now())
	if positions != nil || ok != 0 || failed != 0 {
		t.Errorf("empty catalog: positions = %v, ok = %d, failed = %d", positions, ok, failed)
	}
}

func TestSnapshotSingleWorker(t *testing.T) {
	entries := []tle.ElementSet{
		{NORADID: 25544, Line1: issLine1, Line2: issLine2},
	}

	pool := NewWorkerPool(1, poolLogger())
	positions, ok, failed := pool.Snapshot(context.Background(), entries, issEpoch)
	if ok != 1 || failed != 0 || len(positions) != 1 {
		t.Fatalf("ok = %d, failed = %d, positions = %d", ok, failed, len(positions))
	}
	if positions[0].NORADID != 25544 {
		t.Errorf("NORADID = %d, want 25544", positions[0].NORADID)
	}
}
