package coordinator

import (
	"golang.org/x/exp/slices"

	"github.com/dreamware/wordshard/internal/cluster"
	"github.com/dreamware/wordshard/internal/partition"
)

// Registry is the coordinator's view of the cluster: workers in registration
// order with their ranges, validators in registration order, and at most one
// aggregator.
//
// Registry is a value type and is never modified in place. Every With*
// method returns a new Registry that shares nothing mutable with the
// receiver, so a Registry handed to another goroutine (or encoded into a
// Snapshot) can never change underneath it.
//
// Invariants:
//   - no two workers share a URL
//   - no two validators share a URL
//   - after WithRanges, the non-nil worker ranges tile A..Z in order
//
// Example:
//
//	reg := NewRegistry()
//	reg, _ = reg.WithWorker("http://127.0.0.1:1002")
//	reg = reg.WithRanges(partition.Assign(reg.WorkerCount()))
//	snap := reg.Snapshot() // workers: [{url, "A-Z"}]
type Registry struct {
	aggregator *cluster.NodeRef
	workers    []cluster.WorkerEntry
	validators []cluster.NodeRef
	version    uint64
}

// NewRegistry returns an empty registry at version 0.
func NewRegistry() Registry {
	return Registry{}
}

// Version is bumped by the coordinator on every committed mutation.
func (r Registry) Version() uint64 {
	return r.version
}

func (r Registry) withVersion(v uint64) Registry {
	r.version = v
	return r
}

// WorkerCount returns the number of registered workers.
func (r Registry) WorkerCount() int {
	return len(r.workers)
}

// ValidatorCount returns the number of registered validators.
func (r Registry) ValidatorCount() int {
	return len(r.validators)
}

// HasWorker reports whether url is a registered worker.
func (r Registry) HasWorker(url string) bool {
	return slices.ContainsFunc(r.workers, func(w cluster.WorkerEntry) bool { return w.URL == url })
}

// HasValidator reports whether url is a registered validator.
func (r Registry) HasValidator(url string) bool {
	return slices.ContainsFunc(r.validators, func(v cluster.NodeRef) bool { return v.URL == url })
}

// WithWorker appends a worker with no range. The second result is false, and
// the receiver is returned unchanged, when url is already registered.
func (r Registry) WithWorker(url string) (Registry, bool) {
	if r.HasWorker(url) {
		return r, false
	}
	next := r.clone()
	next.workers = append(next.workers, cluster.WorkerEntry{URL: url})
	return next, true
}

// WithValidator appends a validator. The second result is false when url is
// already registered.
func (r Registry) WithValidator(url string) (Registry, bool) {
	if r.HasValidator(url) {
		return r, false
	}
	next := r.clone()
	next.validators = append(next.validators, cluster.NodeRef{URL: url})
	return next, true
}

// WithAggregator replaces the aggregator slot, whether or not it was empty.
func (r Registry) WithAggregator(url string) Registry {
	next := r.clone()
	next.aggregator = &cluster.NodeRef{URL: url}
	return next
}

// WithRanges assigns ranges[i] to the i-th worker. Workers past the end of
// ranges, or with a nil entry, are left without a range.
func (r Registry) WithRanges(ranges []*partition.Range) Registry {
	next := r.clone()
	for i := range next.workers {
		next.workers[i].Range = nil
		if i < len(ranges) && ranges[i] != nil {
			rng := *ranges[i]
			next.workers[i].Range = &rng
		}
	}
	return next
}

// Snapshot encodes the registry for a topology push.
func (r Registry) Snapshot() cluster.Snapshot {
	snap := cluster.Snapshot{
		Version:    r.version,
		Workers:    r.workers,
		Validators: r.validators,
		Aggregator: r.aggregator,
	}
	return snap.Clone()
}

func (r Registry) clone() Registry {
	snap := r.Snapshot()
	return Registry{
		aggregator: snap.Aggregator,
		workers:    snap.Workers,
		validators: snap.Validators,
		version:    r.version,
	}
}
