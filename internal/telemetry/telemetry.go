// Package telemetry ships structured error events to an external log sink.
// Delivery is best-effort: events are buffered and posted asynchronously, and
// a full buffer drops the event rather than blocking a request.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Event is a single structured telemetry record. Trace carries the request
// identifier so an event can be correlated with the failing request's logs.
type Event struct {
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
	Trace     string `json:"trace,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Sink receives telemetry events.
type Sink interface {
	Emit(ev Event)
	// Flush blocks until buffered events are delivered or ctx expires.
	Flush(ctx context.Context) error
}

// NopSink discards all events. Used when no telemetry endpoint is configured.
type NopSink struct{}

func (NopSink) Emit(Event) {}
func (NopSink) Flush(context.Context) error { return nil }

// HTTPSink posts each event as a JSON document with a bearer token.
type HTTPSink struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
	ch     chan Event
	done   chan struct{}
}

// NewHTTPSink creates a sink shipping to the given endpoint and starts its
// delivery goroutine.
func NewHTTPSink(endpoint, token string, logger *slog.Logger) *HTTPSink {
	s := &HTTPSink{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
		ch:       make(chan Event, 256),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *HTTPSink) Emit(ev Event) {
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Warn("telemetry sink closed, dropping event", "message", ev.Message)
		return
	}
	select {
	case s.ch <- ev:
	default:
		s.logger.Warn("telemetry buffer full, dropping event", "message", ev.Message)
	}
}

// Flush closes the sink and waits for the delivery goroutine to drain.
// Events emitted after Flush are dropped.
func (s *HTTPSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *HTTPSink) run() {
	defer close(s.done)
	for ev := range s.ch {
		s.deliver(ev)
	}
}

func (s *HTTPSink) deliver(ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("marshaling telemetry event", "error", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("building telemetry request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("delivering telemetry event", "error", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.logger.Warn("telemetry sink rejected event", "status", resp.StatusCode)
	}
}
