// Package transport delivers JSON messages between nodes with a bounded,
// fixed-delay retry. Every outbound call in wordshard goes through a Sender.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dreamware/wordshard/internal/logger"
)

// RequestIDHeader carries the per-send id; it is the same across retries.
const RequestIDHeader = "X-Request-ID"

// Sender posts body as JSON to url. It blocks until an attempt gets an HTTP
// response or every attempt has failed. Any response, whatever its status,
// ends the sequence and is returned; only transport failures are retried.
type Sender interface {
	Send(ctx context.Context, url string, body any) (*Response, error)
}

// Response is the last HTTP response received.
type Response struct {
	Body       []byte
	StatusCode int
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Error is returned when every attempt failed to get a response.
type Error struct {
	Err      error
	URL      string
	Attempts int
}

func (e *Error) Error() string {
	return fmt.Sprintf("send %s: %d attempts failed: %v", e.URL, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Doer is the subset of *http.Client the sender needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSender is the production Sender.
type HTTPSender struct {
	client Doer
	log    *logger.Logger
	tracer trace.Tracer
	policy RetryPolicy
}

type Option func(*HTTPSender)

// WithClient replaces the default HTTP client (5s timeout per attempt).
func WithClient(c Doer) Option {
	return func(s *HTTPSender) { s.client = c }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *HTTPSender) { s.log = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *HTTPSender) { s.tracer = t }
}

func NewHTTPSender(policy RetryPolicy, opts ...Option) *HTTPSender {
	s := &HTTPSender{
		client: &http.Client{Timeout: 5 * time.Second},
		log:    logger.NewNop(),
		tracer: noop.NewTracerProvider().Tracer("noop"),
		policy: policy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSender) Send(ctx context.Context, url string, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body for %s: %w", url, err)
	}
	reqID := uuid.NewString()
	log := s.log.With("url", url, "request_id", reqID)

	ctx, span := s.tracer.Start(ctx, "transport.send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.url", url), attribute.String("request_id", reqID))

	var resp *Response
	attempts, err := s.policy.Do(func(n int) error {
		log.Debug("sending", "attempt", n, "bytes", len(payload))
		r, perr := s.post(ctx, url, payload, reqID)
		if perr != nil {
			log.Warn("send attempt failed", "attempt", n, "error", perr)
			return perr
		}
		resp = r
		return nil
	})
	span.SetAttributes(attribute.Int("attempts", attempts))

	if err != nil {
		log.Error("all send attempts failed", "attempts", attempts, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &Error{URL: url, Attempts: attempts, Err: err}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if !resp.OK() {
		log.Warn("peer rejected message", "status", resp.StatusCode, "body", string(resp.Body))
		span.SetStatus(codes.Error, fmt.Sprintf("http %d", resp.StatusCode))
	} else {
		log.Debug("delivered", "status", resp.StatusCode, "attempts", attempts)
		span.SetStatus(codes.Ok, "")
	}
	return resp, nil
}

func (s *HTTPSender) post(ctx context.Context, url string, payload []byte, reqID string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, reqID)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
