package passes

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/cywf/tle-fetcher/internal/metrics"
	"github.com/cywf/tle-fetcher/internal/propagation"
	"github.com/cywf/tle-fetcher/internal/tle"
	"github.com/cywf/tle-fetcher/internal/transform"
)

// Request holds the shared parameters for a batch visibility search.
type Request struct {
	Observer transform.ObserverPosition
	Window   Window
	Objects  map[string]tle.ElementSet

	// LinkFor, when non-nil, is invoked once per successful result to attach
	// an external reference link to the summary.
	LinkFor func(objectID string) string
}

// ObjectError attributes a per-object failure (element validation or SGP4
// initialization) to its object identifier so the rest of the batch can
// still succeed.
type ObjectError struct {
	ObjectID string `json:"object_id"`
	Err      error  `json:"-"`
	Message  string `json:"error"`
}

// Aggregate runs the windower for every object in the request and returns the
// passes found plus the per-object failures. There is no abort-on-first-error:
// one bad element set never suppresses results for the rest of the batch.
//
// Objects are processed concurrently, bounded by a NumCPU semaphore; element
// sets are read-only so no locking is needed. Ordering is restored after the
// join: passes ascend by entry time with ties broken by object ID, failures
// ascend by object ID. Identical inputs always yield the identical list.
func Aggregate(ctx context.Context, req Request) ([]PassSummary, []ObjectError) {
	ids := make([]string, 0, len(req.Objects))
	for id := range req.Objects {
		ids = append(ids, id)
	}

	type slot struct {
		pass  *PassSummary
		err   error
		objID string
	}
	slots := make([]slot, len(ids))

	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		go func(idx int, objID string, es tle.ElementSet) {
			defer wg.Done()
			slots[idx].objID = objID

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				slots[idx].err = ctx.Err()
				return
			}

			eph, err := propagation.NewSGP4(es.Line1, es.Line2, es.NORADID)
			if err != nil {
				slots[idx].err = err
				return
			}

			pass, found := FindFirstPass(eph, req.Observer, req.Window)
			if !found {
				return // no pass is a valid, empty outcome
			}

			pass.ObjectID = objID
			if req.LinkFor != nil {
				pass.Link = req.LinkFor(objID)
			}
			slots[idx].pass = &pass
		}(i, id, req.Objects[id])
	}

	wg.Wait()

	var passes []PassSummary
	var failures []ObjectError
	for _, s := range slots {
		switch {
		case s.err != nil:
			failures = append(failures, ObjectError{ObjectID: s.objID, Err: s.err, Message: s.err.Error()})
		case s.pass != nil:
			passes = append(passes, *s.pass)
		}
	}

	sort.Slice(passes, func(i, j int) bool {
		if !passes[i].Entry.Equal(passes[j].Entry) {
			return passes[i].Entry.Before(passes[j].Entry)
		}
		return passes[i].ObjectID < passes[j].ObjectID
	})
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].ObjectID < failures[j].ObjectID
	})

	metrics.RecordAggregation(len(req.Objects), len(passes), len(failures))

	return passes, failures
}
