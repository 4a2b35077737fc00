// Package aggregator implements the aggregator role: it merges validated
// batches into the deduplicated per-letter word table and serves it.
package aggregator

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dreamware/wordshard/internal/cluster"
	"github.com/dreamware/wordshard/internal/logger"
	"github.com/dreamware/wordshard/internal/storage"
)

// Options configures an Aggregator. A nil Store means a new MemoryStore.
type Options struct {
	Store  storage.Store
	Logger *logger.Logger
	Tracer trace.Tracer
}

type Aggregator struct {
	store  storage.Store
	log    *logger.Logger
	tracer trace.Tracer
}

// ResultsResponse is served on GET /results.
type ResultsResponse struct {
	Results []storage.Row `json:"results"`
}

func New(opts Options) *Aggregator {
	a := &Aggregator{store: opts.Store, log: opts.Logger, tracer: opts.Tracer}
	if a.store == nil {
		a.store = storage.NewMemoryStore()
	}
	if a.log == nil {
		a.log = logger.NewNop()
	}
	if a.tracer == nil {
		a.tracer = noop.NewTracerProvider().Tracer("noop")
	}
	return a
}

// OnBatch merges the batch's words into the table and returns how many were
// new. A batch without a letter range is ignored.
func (a *Aggregator) OnBatch(ctx context.Context, b cluster.Batch) int {
	if b.LetterRange == "" {
		a.log.Warn("batch without letter range ignored", "count", b.Count)
		return 0
	}
	_, span := a.tracer.Start(ctx, "aggregator.merge")
	defer span.End()

	added := a.store.Merge(b.Words)
	span.SetAttributes(
		attribute.String("letter_range", b.LetterRange),
		attribute.Int("words", len(b.Words)),
		attribute.Int("added", added))
	a.log.Debug("batch learned", "letter_range", b.LetterRange, "words", len(b.Words), "added", added)
	return added
}

// Results returns the table sorted by letter.
func (a *Aggregator) Results() []storage.Row {
	rows := a.store.Rows()
	if rows == nil {
		rows = []storage.Row{}
	}
	return rows
}

// Stats exposes the store counters.
func (a *Aggregator) Stats() storage.StoreStats {
	return a.store.Stats()
}

// OnTopologyUpdate accepts a snapshot. The aggregator makes no routing
// decisions, so it is only logged.
func (a *Aggregator) OnTopologyUpdate(snap cluster.Snapshot) {
	a.log.Debug("topology received", "version", snap.Version)
}
