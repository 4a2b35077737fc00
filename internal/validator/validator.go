// Package validator implements the validator role: it checks that a worker's
// batch is internally consistent and relays it to the aggregator.
package validator

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dreamware/wordshard/internal/cluster"
	"github.com/dreamware/wordshard/internal/logger"
	"github.com/dreamware/wordshard/internal/partition"
	"github.com/dreamware/wordshard/internal/transport"
)

// Options configures a Validator. Sender is required.
type Options struct {
	Sender transport.Sender
	Logger *logger.Logger
	Tracer trace.Tracer
}

// Validator holds nothing but its copy of the topology.
type Validator struct {
	sender   transport.Sender
	log      *logger.Logger
	tracer   trace.Tracer
	topology cluster.Snapshot
	mu       sync.RWMutex
}

// Outcome reports what happened to an accepted batch.
type Outcome int

const (
	Forwarded Outcome = iota + 1
	DroppedNoAggregator
	DeliveryFailed
)

func New(opts Options) *Validator {
	v := &Validator{
		sender:   opts.Sender,
		log:      opts.Logger,
		tracer:   opts.Tracer,
		topology: cluster.Snapshot{}.Clone(),
	}
	if v.log == nil {
		v.log = logger.NewNop()
	}
	if v.tracer == nil {
		v.tracer = noop.NewTracerProvider().Tracer("noop")
	}
	return v
}

// Validate checks that the range parses, the count matches the number of
// words, and every word starts with a letter in the range.
func Validate(b cluster.Batch) error {
	if b.LetterRange == "" {
		return cluster.Invalid("accept", fmt.Errorf("%w: missing letter_range", cluster.ErrInconsistentBatch))
	}
	r, err := partition.Parse(b.LetterRange)
	if err != nil {
		return cluster.Invalid("accept", fmt.Errorf("%w: %v", cluster.ErrInconsistentBatch, err))
	}
	if b.Count != len(b.Words) {
		return cluster.Invalid("accept", fmt.Errorf("%w: count %d, %d words", cluster.ErrInconsistentBatch, b.Count, len(b.Words)))
	}
	for _, word := range b.Words {
		if !r.ContainsWord(word) {
			return cluster.Invalid("accept", fmt.Errorf("%w: %q outside %s", cluster.ErrInconsistentBatch, word, r))
		}
	}
	return nil
}

// OnBatch validates b and forwards it unchanged to the aggregator. An
// inconsistent batch is returned as an error and never forwarded. A valid
// batch with nowhere to go is dropped with a warning.
func (v *Validator) OnBatch(ctx context.Context, b cluster.Batch) (Outcome, error) {
	log := v.log.With("letter_range", b.LetterRange, "count", b.Count)
	if err := Validate(b); err != nil {
		log.Warn("batch rejected", "error", err)
		return 0, err
	}

	v.mu.RLock()
	aggregator, ok := v.topology.AggregatorURL()
	v.mu.RUnlock()
	if !ok {
		log.Warn("no aggregator registered, batch dropped")
		return DroppedNoAggregator, nil
	}

	ctx, span := v.tracer.Start(ctx, "validator.forward")
	defer span.End()
	span.SetAttributes(attribute.String("letter_range", b.LetterRange), attribute.Int("count", b.Count))

	resp, err := v.sender.Send(ctx, aggregator+"/learn", b)
	if err != nil {
		log.Error("batch delivery failed", "aggregator", aggregator, "error", err)
		return DeliveryFailed, nil
	}
	if !resp.OK() {
		log.Warn("aggregator rejected batch", "aggregator", aggregator, "status", resp.StatusCode)
		return DeliveryFailed, nil
	}
	log.Debug("batch forwarded", "aggregator", aggregator)
	return Forwarded, nil
}

// OnTopologyUpdate replaces the local snapshot wholesale.
func (v *Validator) OnTopologyUpdate(snap cluster.Snapshot) {
	v.mu.Lock()
	prev := v.topology.Version
	v.topology = snap.Clone()
	v.mu.Unlock()

	if snap.Version < prev {
		v.log.Warn("topology version went backwards", "from", prev, "to", snap.Version)
	}
	v.log.Debug("topology updated", "version", snap.Version)
}

// Topology returns a copy of the local snapshot.
func (v *Validator) Topology() cluster.Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.topology.Clone()
}
