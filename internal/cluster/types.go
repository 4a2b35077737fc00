package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dreamware/wordshard/internal/partition"
)

// NodeType is the closed set of roles a node can register as.
type NodeType int

const (
	NodeWorker NodeType = iota + 1
	NodeValidator
	NodeAggregator
)

// ParseNodeType maps a registration type string to a NodeType. The role
// names used by earlier deployments (proposer, acceptor, learner) are
// accepted as aliases.
func ParseNodeType(s string) (NodeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "worker", "proposer":
		return NodeWorker, nil
	case "validator", "acceptor":
		return NodeValidator, nil
	case "aggregator", "learner":
		return NodeAggregator, nil
	default:
		return 0, Invalid("register", fmt.Errorf("%w: %q", ErrUnknownType, s))
	}
}

func (t NodeType) String() string {
	switch t {
	case NodeWorker:
		return "worker"
	case NodeValidator:
		return "validator"
	case NodeAggregator:
		return "aggregator"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// NodeRef addresses a validator or the aggregator.
type NodeRef struct {
	URL string `json:"url"`
}

// WorkerEntry is a registered worker and its assigned range, if any.
type WorkerEntry struct {
	Range *partition.Range `json:"range"`
	URL   string           `json:"url"`
}

// Snapshot is the point-in-time registry copy pushed to every node on each
// topology change. Receivers replace their copy wholesale.
type Snapshot struct {
	Aggregator *NodeRef      `json:"aggregator"`
	Workers    []WorkerEntry `json:"workers"`
	Validators []NodeRef     `json:"validators"`
	Version    uint64        `json:"version"`
}

// Clone returns a deep copy so callers can hand snapshots across goroutines.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Version: s.Version}
	if s.Aggregator != nil {
		agg := *s.Aggregator
		out.Aggregator = &agg
	}
	out.Workers = make([]WorkerEntry, len(s.Workers))
	for i, w := range s.Workers {
		out.Workers[i] = WorkerEntry{URL: w.URL}
		if w.Range != nil {
			r := *w.Range
			out.Workers[i].Range = &r
		}
	}
	out.Validators = append([]NodeRef{}, s.Validators...)
	return out
}

// FirstValidators returns up to n validator URLs in registry order.
func (s Snapshot) FirstValidators(n int) []string {
	if n > len(s.Validators) {
		n = len(s.Validators)
	}
	urls := make([]string, 0, n)
	for _, v := range s.Validators[:n] {
		urls = append(urls, v.URL)
	}
	return urls
}

// AggregatorURL reports the registered aggregator, if any.
func (s Snapshot) AggregatorURL() (string, bool) {
	if s.Aggregator == nil || s.Aggregator.URL == "" {
		return "", false
	}
	return s.Aggregator.URL, true
}

// Members lists every known node in broadcast order: workers, validators,
// then the aggregator.
func (s Snapshot) Members() []Member {
	out := make([]Member, 0, len(s.Workers)+len(s.Validators)+1)
	for _, w := range s.Workers {
		out = append(out, Member{Type: NodeWorker, URL: w.URL})
	}
	for _, v := range s.Validators {
		out = append(out, Member{Type: NodeValidator, URL: v.URL})
	}
	if url, ok := s.AggregatorURL(); ok {
		out = append(out, Member{Type: NodeAggregator, URL: url})
	}
	return out
}

// Member is a typed node address.
type Member struct {
	URL  string
	Type NodeType
}

// Batch is the word batch exchanged between worker, validator and
// aggregator.
type Batch struct {
	LetterRange string   `json:"letter_range"`
	Words       []string `json:"words"`
	Count       int      `json:"count"`
}

type RegisterRequest struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type StartRequest struct {
	Filename string `json:"filename"`
}

type LineRequest struct {
	Text string `json:"text"`
}

type RangeRequest struct {
	Range string `json:"range"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

// GetJSON fetches url and decodes the JSON body into out.
func GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
