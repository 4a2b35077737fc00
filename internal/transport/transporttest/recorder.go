// Package transporttest provides a recording Sender for unit tests.
package transporttest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/dreamware/wordshard/internal/transport"
)

// Sent is one recorded Send call.
type Sent struct {
	URL  string
	Body []byte
}

// Decode unmarshals the recorded body into v.
func (s Sent) Decode(v any) error {
	return json.Unmarshal(s.Body, v)
}

// Recorder records every send and answers 200 {"status":"ok"} unless the URL
// was marked as failing.
type Recorder struct {
	failing map[string]bool
	sent    []Sent
	mu      sync.Mutex
}

func NewRecorder() *Recorder {
	return &Recorder{failing: make(map[string]bool)}
}

// Fail makes every send to a URL starting with prefix return a
// transport.Error after recording it.
func (r *Recorder) Fail(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing[prefix] = true
}

func (r *Recorder) Send(_ context.Context, url string, body any) (*transport.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{URL: url, Body: data})
	for prefix := range r.failing {
		if strings.HasPrefix(url, prefix) {
			return nil, &transport.Error{URL: url, Attempts: 1, Err: errors.New("connection refused")}
		}
	}
	return &transport.Response{StatusCode: 200, Body: []byte(`{"status":"ok"}`)}, nil
}

// Sent returns a copy of every recorded send in order.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// To returns the recorded sends whose URL equals url.
func (r *Recorder) To(url string) []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.URL == url {
			out = append(out, s)
		}
	}
	return out
}

// URLs lists the target of every recorded send in order.
func (r *Recorder) URLs() []string {
	sent := r.Sent()
	out := make([]string, len(sent))
	for i, s := range sent {
		out[i] = s.URL
	}
	return out
}

// Reset forgets recorded sends but keeps failure rules.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
