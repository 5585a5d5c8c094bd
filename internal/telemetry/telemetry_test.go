package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPSink_DeliversEvents(t *testing.T) {
	var mu sync.Mutex
	var received []Event
	var tokens []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decoding event: %v", err)
		}
		mu.Lock()
		received = append(received, ev)
		tokens = append(tokens, r.Header.Get("Authorization"))
		mu.Unlock()
	}))
	defer server.Close()

	sink := NewHTTPSink(server.URL, "sink-token", discardLogger())
	sink.Emit(Event{
		Message: "request failed",
		Error:   "relation does not exist",
		Method:  "POST",
		Path:    "/api/db/query",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sink.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("delivered %d events, want 1", len(received))
	}
	if received[0].Message != "request failed" || received[0].Path != "/api/db/query" {
		t.Errorf("event = %+v", received[0])
	}
	if received[0].Timestamp == "" {
		t.Error("event missing timestamp")
	}
	if tokens[0] != "Bearer sink-token" {
		t.Errorf("authorization = %q", tokens[0])
	}
}

func TestHTTPSink_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	sink := NewHTTPSink(server.URL, "", discardLogger())

	// Saturate the buffer while delivery is stalled. Emit must return
	// immediately either way.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			sink.Emit(Event{Message: "overflow"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}
}

func TestHTTPSink_EmitAfterFlushIsDropped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	sink := NewHTTPSink(server.URL, "", discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sink.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// A late emit must be discarded, not panic on the closed channel.
	sink.Emit(Event{Message: "late"})

	// Flush stays idempotent.
	if err := sink.Flush(ctx); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
}

func TestNopSink(t *testing.T) {
	var sink Sink = NopSink{}
	sink.Emit(Event{Message: "ignored"})
	if err := sink.Flush(context.Background()); err != nil {
		t.Errorf("Flush: %v", err)
	}
}
