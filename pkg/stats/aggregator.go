package stats

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"
)

// MethodCounts holds per-method request counts for one path.
type MethodCounts struct {
	Get    uint64
	Post   uint64
	Put    uint64
	Patch  uint64
	Delete uint64
	Other  uint64
}

// Record is the aggregated view of one path.
type Record struct {
	Path     string
	Counts   MethodCounts
	LastSeen time.Time
}

// Aggregator folds events into per-path method counters with a last-seen
// timestamp. It is the reference consumer of the stats channel; renderers
// (dashboards, exporters) read snapshots from it.
type Aggregator struct {
	mu     sync.Mutex
	byPath map[string]*Record
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{byPath: make(map[string]*Record)}
}

// Apply folds a single event into the aggregate.
func (a *Aggregator) Apply(ev Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.byPath[ev.Path]
	if !ok {
		rec = &Record{Path: ev.Path}
		a.byPath[ev.Path] = rec
	}

	switch ev.Method {
	case http.MethodGet:
		rec.Counts.Get++
	case http.MethodPost:
		rec.Counts.Post++
	case http.MethodPut:
		rec.Counts.Put++
	case http.MethodPatch:
		rec.Counts.Patch++
	case http.MethodDelete:
		rec.Counts.Delete++
	default:
		rec.Counts.Other++
	}
	if ev.At.After(rec.LastSeen) {
		rec.LastSeen = ev.At
	}
}

// Snapshot returns a copy of all records, most recently seen first.
func (a *Aggregator) Snapshot() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Record, 0, len(a.byPath))
	for _, rec := range a.byPath {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out
}

// Run drains events from the channel into the aggregate until the context
// is cancelled.
func (a *Aggregator) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case ev := <-events:
			a.Apply(ev)
		case <-ctx.Done():
			return
		}
	}
}
