// Package worker implements the worker role: it owns one letter range,
// keeps the words of every incoming line that fall in it, and forwards the
// running batch to the first few validators it knows about.
package worker

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/exp/slices"

	"github.com/dreamware/wordshard/internal/cluster"
	"github.com/dreamware/wordshard/internal/logger"
	"github.com/dreamware/wordshard/internal/partition"
	"github.com/dreamware/wordshard/internal/shard"
	"github.com/dreamware/wordshard/internal/transport"
)

// DefaultFanOut is the number of validators each batch is sent to.
const DefaultFanOut = 2

var wordPattern = regexp.MustCompile(`\p{L}+`)

// Tokenize lowercases text and returns its maximal runs of letters. Letters
// outside ASCII stay inside their word; such words only reach a range when
// they start with A-Z.
func Tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// Options configures a Worker. Sender is required.
type Options struct {
	Sender transport.Sender
	Logger *logger.Logger
	Tracer trace.Tracer
	// Range, when set, is owned from startup without waiting for the
	// coordinator.
	Range *partition.Range
	// FanOut is how many validators, in registry order, receive each batch.
	// Zero means DefaultFanOut.
	FanOut int
}

// Worker holds one running shard per range it has owned. Only the shard for
// the current range is fed.
type Worker struct {
	sender   transport.Sender
	log      *logger.Logger
	tracer   trace.Tracer
	shards   map[partition.Range]*shard.Shard
	current  *shard.Shard
	topology cluster.Snapshot
	fanOut   int
	mu       sync.Mutex
}

// LineResult describes what one line did.
type LineResult struct {
	Range     string
	Matched   int
	Count     int
	Delivered int
	Targets   int
}

// Info is served on GET /info.
type Info struct {
	Range      *string           `json:"range"`
	Words      []string          `json:"words"`
	Validators []string          `json:"validators"`
	Shards     []shard.ShardInfo `json:"shards"`
	Count      int               `json:"count"`
	FanOut     int               `json:"fan_out"`
	Version    uint64            `json:"topology_version"`
}

func New(opts Options) *Worker {
	w := &Worker{
		sender:   opts.Sender,
		log:      opts.Logger,
		tracer:   opts.Tracer,
		shards:   make(map[partition.Range]*shard.Shard),
		topology: cluster.Snapshot{}.Clone(),
		fanOut:   opts.FanOut,
	}
	if w.log == nil {
		w.log = logger.NewNop()
	}
	if w.tracer == nil {
		w.tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if w.fanOut <= 0 {
		w.fanOut = DefaultFanOut
	}
	if opts.Range != nil {
		w.useRange(*opts.Range)
	}
	return w
}

// useRange switches the current shard. Callers hold mu or own w exclusively.
func (w *Worker) useRange(r partition.Range) {
	s, ok := w.shards[r]
	if !ok {
		s = shard.NewShard(r)
		w.shards[r] = s
	}
	w.current = s
}

// SetRange parses text and makes it the worker's range. A malformed range
// leaves the previous range in place.
func (w *Worker) SetRange(text string) (partition.Range, error) {
	r, err := partition.Parse(text)
	if err != nil {
		return partition.Range{}, cluster.Invalid("set_range", fmt.Errorf("%w: %v", cluster.ErrInvalidRangeFormat, err))
	}

	w.mu.Lock()
	prev := w.current
	w.useRange(r)
	w.mu.Unlock()

	if prev != nil && prev.Range != r {
		w.log.Info("range changed", "from", prev.Range.String(), "to", r.String())
	} else {
		w.log.Info("range set", "range", r.String())
	}
	return r, nil
}

// Range returns the current range, if any.
func (w *Worker) Range() (partition.Range, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return partition.Range{}, false
	}
	return w.current.Range, true
}

// OnLine filters text into the current shard and forwards the whole
// accumulated batch to the first FanOut validators. Send failures are logged
// and reflected in the result; they are not errors.
func (w *Worker) OnLine(ctx context.Context, text string) (LineResult, error) {
	tokens := Tokenize(text)

	w.mu.Lock()
	cur := w.current
	if cur == nil {
		w.mu.Unlock()
		return LineResult{}, cluster.Invalid("line", cluster.ErrRangeNotSet)
	}
	matched := cur.Filter(tokens)
	cur.Append(matched)
	batch := cur.Batch()
	targets := w.topology.FirstValidators(w.fanOut)
	w.mu.Unlock()

	res := LineResult{
		Range:   batch.LetterRange,
		Matched: len(matched),
		Count:   batch.Count,
		Targets: len(targets),
	}
	log := w.log.With("range", batch.LetterRange)
	log.Debug("line filtered", "tokens", len(tokens), "matched", matched, "batch", batch.Count)

	if len(targets) == 0 {
		log.Warn("no validators registered, batch not forwarded", "count", batch.Count)
		return res, nil
	}

	ctx, span := w.tracer.Start(ctx, "worker.forward")
	defer span.End()
	span.SetAttributes(
		attribute.String("letter_range", batch.LetterRange),
		attribute.Int("count", batch.Count),
		attribute.Int("targets", len(targets)))

	for _, url := range targets {
		resp, err := w.sender.Send(ctx, url+"/accept", batch)
		if err != nil {
			log.Error("batch delivery failed", "validator", url, "error", err)
			continue
		}
		if !resp.OK() {
			log.Warn("validator rejected batch", "validator", url, "status", resp.StatusCode, "body", string(resp.Body))
			continue
		}
		res.Delivered++
	}
	cur.RecordForward()
	return res, nil
}

// OnTopologyUpdate replaces the local snapshot. A snapshot older than the
// current one is still applied but logged.
func (w *Worker) OnTopologyUpdate(snap cluster.Snapshot) {
	w.mu.Lock()
	prev := w.topology.Version
	w.topology = snap.Clone()
	w.mu.Unlock()

	if snap.Version < prev {
		w.log.Warn("topology version went backwards", "from", prev, "to", snap.Version)
	}
	w.log.Debug("topology updated", "version", snap.Version, "validators", len(snap.Validators))
}

// Topology returns a copy of the local snapshot.
func (w *Worker) Topology() cluster.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.topology.Clone()
}

// Info reports the current shard alongside every shard the worker has held.
func (w *Worker) Info() Info {
	w.mu.Lock()
	defer w.mu.Unlock()

	info := Info{
		Words:      []string{},
		Shards:     []shard.ShardInfo{},
		Validators: w.topology.FirstValidators(w.fanOut),
		FanOut:     w.fanOut,
		Version:    w.topology.Version,
	}
	for _, s := range w.shards {
		info.Shards = append(info.Shards, s.Info())
	}
	slices.SortFunc(info.Shards, func(a, b shard.ShardInfo) int { return strings.Compare(a.Range, b.Range) })
	if w.current != nil {
		cur := w.current.Info()
		info.Range = &cur.Range
		info.Words = cur.Words
		info.Count = cur.Count
	}
	return info
}
