package tle

import "time"

// ElementSet is a validated two-line element record for a single object.
// Immutable once created by ParseRecord or Parse; consumers only read it.
type ElementSet struct {
	NORADID int
	Name    string
	Epoch   time.Time
	Line1   string
	Line2   string
	Source  string
}

// EpochRange is the minimum and maximum element epochs in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Dataset is a complete catalog snapshot from one source.
type Dataset struct {
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Satellites []ElementSet
}

// NewDataset builds a Dataset, deriving the epoch range from the entries.
func NewDataset(source string, fetchedAt time.Time, entries []ElementSet) *Dataset {
	ds := &Dataset{
		Source:     source,
		FetchedAt:  fetchedAt,
		Satellites: entries,
	}
	if len(entries) > 0 {
		ds.EpochRange.Min = entries[0].Epoch
		ds.EpochRange.Max = entries[0].Epoch
		for _, e := range entries[1:] {
			if e.Epoch.Before(ds.EpochRange.Min) {
				ds.EpochRange.Min = e.Epoch
			}
			if e.Epoch.After(ds.EpochRange.Max) {
				ds.EpochRange.Max = e.Epoch
			}
		}
	}
	return ds
}
