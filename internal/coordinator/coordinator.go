package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dreamware/wordshard/internal/cluster"
	"github.com/dreamware/wordshard/internal/logger"
	"github.com/dreamware/wordshard/internal/partition"
	"github.com/dreamware/wordshard/internal/transport"
)

// DefaultDocument is dispatched when /start names no file.
const DefaultDocument = "sample.txt"

// Options configures a Coordinator. Sender and Source are required.
type Options struct {
	Sender  transport.Sender
	Source  LineSource
	Logger  *logger.Logger
	Tracer  trace.Tracer
	Monitor *HealthMonitor
}

// Coordinator owns the registry and drives every control-plane operation:
// registration, range assignment, topology broadcast and document dispatch.
//
// Mutations are serialized by mu. Outbound sends never hold mu; they work
// from the registry value committed by the mutation that triggered them.
type Coordinator struct {
	sender   transport.Sender
	source   LineSource
	log      *logger.Logger
	tracer   trace.Tracer
	monitor  *HealthMonitor
	registry Registry
	mu       sync.Mutex
}

// DispatchReport summarizes one /start run.
type DispatchReport struct {
	Lines    int `json:"lines"`
	Sends    int `json:"sends"`
	Failed   int `json:"failed"`
	Rejected int `json:"rejected"`
}

func New(opts Options) *Coordinator {
	c := &Coordinator{
		sender:   opts.Sender,
		source:   opts.Source,
		log:      opts.Logger,
		tracer:   opts.Tracer,
		monitor:  opts.Monitor,
		registry: NewRegistry(),
	}
	if c.log == nil {
		c.log = logger.NewNop()
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if c.monitor != nil {
		c.monitor.SetOnUnhealthy(c.nodeUnhealthy)
	}
	return c
}

// nodeUnhealthy is the health monitor's callback. The node stays registered;
// while a worker is down its letters go uncounted.
func (c *Coordinator) nodeUnhealthy(m cluster.Member) {
	log := c.log.With("type", m.Type.String(), "url", m.URL)
	if m.Type == cluster.NodeWorker {
		for _, w := range c.Snapshot().Workers {
			if w.URL == m.URL && w.Range != nil {
				log.Warn("worker unhealthy, its range is not being counted", "range", w.Range.String())
				return
			}
		}
	}
	log.Warn("registered node unhealthy")
}

// Registry returns the current registry value.
func (c *Coordinator) Registry() Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry
}

// Snapshot returns the current topology.
func (c *Coordinator) Snapshot() cluster.Snapshot {
	return c.Registry().Snapshot()
}

// Members lists every registered node. It is the health monitor's node
// provider.
func (c *Coordinator) Members() []cluster.Member {
	return c.Snapshot().Members()
}

// commit installs next as the current registry under a new version.
// Callers hold mu.
func (c *Coordinator) commit(next Registry) Registry {
	next = next.withVersion(c.registry.Version() + 1)
	c.registry = next
	return next
}

// RegisterNode adds a node to the registry. Registering a worker
// reassigns every worker's range. Any change is followed by a topology
// broadcast; re-registering a known worker or validator changes nothing and
// sends nothing.
func (c *Coordinator) RegisterNode(ctx context.Context, typeName, url string) error {
	typeName, url = strings.TrimSpace(typeName), strings.TrimRight(strings.TrimSpace(url), "/")
	if typeName == "" || url == "" {
		return cluster.Invalid("register", cluster.ErrMissingField)
	}
	typ, err := cluster.ParseNodeType(typeName)
	if err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, "coordinator.register")
	defer span.End()
	span.SetAttributes(attribute.String("node.type", typ.String()), attribute.String("node.url", url))

	c.mu.Lock()
	var (
		next    Registry
		changed bool
	)
	switch typ {
	case cluster.NodeWorker:
		next, changed = c.registry.WithWorker(url)
		if changed {
			next = next.WithRanges(partition.Assign(next.WorkerCount()))
		}
	case cluster.NodeValidator:
		next, changed = c.registry.WithValidator(url)
	case cluster.NodeAggregator:
		next, changed = c.registry.WithAggregator(url), true
	default:
		c.mu.Unlock()
		return fmt.Errorf("register: unhandled node type %v", typ)
	}
	if changed {
		next = c.commit(next)
	}
	c.mu.Unlock()

	log := c.log.With("type", typ.String(), "url", url)
	if !changed {
		log.Info("node already registered")
		return nil
	}
	log.Info("node registered",
		"version", next.Version(),
		"workers", next.WorkerCount(),
		"validators", next.ValidatorCount())

	if typ == cluster.NodeWorker {
		c.sendRanges(ctx, next)
	}
	c.broadcast(ctx, next.Snapshot())
	return nil
}

// AssignRanges recomputes every worker's range from the current worker
// count and pushes the result to each worker that has one.
func (c *Coordinator) AssignRanges(ctx context.Context) {
	c.mu.Lock()
	if c.registry.WorkerCount() == 0 {
		c.mu.Unlock()
		return
	}
	next := c.commit(c.registry.WithRanges(partition.Assign(c.registry.WorkerCount())))
	c.mu.Unlock()

	c.sendRanges(ctx, next)
}

// BroadcastTopology pushes the current snapshot to every registered node.
func (c *Coordinator) BroadcastTopology(ctx context.Context) {
	c.broadcast(ctx, c.Snapshot())
}

func (c *Coordinator) sendRanges(ctx context.Context, reg Registry) {
	for _, w := range reg.Snapshot().Workers {
		if w.Range == nil {
			c.log.Warn("no letters left for worker", "url", w.URL, "workers", reg.WorkerCount())
			continue
		}
		resp, err := c.sender.Send(ctx, w.URL+"/set_range", cluster.RangeRequest{Range: w.Range.String()})
		if err != nil {
			c.log.Error("range push failed", "url", w.URL, "range", w.Range.String(), "error", err)
			continue
		}
		if !resp.OK() {
			c.log.Warn("worker rejected range", "url", w.URL, "range", w.Range.String(), "status", resp.StatusCode)
			continue
		}
		c.log.Debug("range assigned", "url", w.URL, "range", w.Range.String())
	}
}

func (c *Coordinator) broadcast(ctx context.Context, snap cluster.Snapshot) {
	members := snap.Members()
	failed := 0
	for _, m := range members {
		resp, err := c.sender.Send(ctx, m.URL+"/nodes", snap)
		if err != nil || !resp.OK() {
			failed++
			c.log.Warn("topology push failed", "url", m.URL, "type", m.Type.String(), "error", err)
		}
	}
	c.log.Debug("topology broadcast", "version", snap.Version, "members", len(members), "failed", failed)
}

// DispatchDocument reads the named document and sends each non-blank line,
// trimmed, to every registered worker. Lines go out in document order and a
// line is sent to all workers before the next line is read from the list.
// A document that cannot be read is reported before anything is sent.
func (c *Coordinator) DispatchDocument(ctx context.Context, name string) (DispatchReport, error) {
	var report DispatchReport
	if name == "" {
		name = DefaultDocument
	}

	ctx, span := c.tracer.Start(ctx, "coordinator.dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("document", name))

	lines, err := c.source.Lines(ctx, name)
	if err != nil {
		span.RecordError(err)
		return report, fmt.Errorf("%w: %s: %w", cluster.ErrSourceUnavailable, name, err)
	}

	log := c.log.With("document", name)
	workers := c.Snapshot().Workers
	if len(workers) == 0 {
		log.Warn("dispatching with no registered workers")
	}

	for _, line := range lines {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		report.Lines++
		for _, w := range workers {
			report.Sends++
			resp, err := c.sender.Send(ctx, w.URL+"/line", cluster.LineRequest{Text: text})
			switch {
			case err != nil:
				report.Failed++
				log.Error("line delivery failed", "url", w.URL, "error", err)
			case !resp.OK():
				report.Rejected++
				log.Warn("worker rejected line", "url", w.URL, "status", resp.StatusCode)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("lines", report.Lines),
		attribute.Int("sends", report.Sends),
		attribute.Int("failed", report.Failed))
	log.Info("document processed",
		"lines", report.Lines,
		"sends", report.Sends,
		"failed", report.Failed,
		"rejected", report.Rejected)
	return report, nil
}
