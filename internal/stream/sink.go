// Package stream carries pipeline events to waiting clients.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"syscall"

	"github.com/collabscope/collabscope/pkg/models"
)

// Sink receives pipeline events. Implementations must be safe for
// concurrent Send calls.
type Sink interface {
	Send(event models.Event) error
}

// IsClientDisconnect reports whether an error is a broken-pipe class
// failure of the subscriber connection. Such errors never abort an
// analysis; it keeps running in the background.
func IsClientDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "client disconnected")
}

// SSESink writes events as server-sent JSON messages. Writes serialize
// through a mutex so the underlying stream is never interleaved
// mid-message.
type SSESink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSESink wraps a response writer as an event sink. Returns an error
// when the writer cannot flush incrementally.
func NewSSESink(w http.ResponseWriter) (*SSESink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &SSESink{w: w, flusher: flusher}, nil
}

// Send writes one event frame.
func (s *SSESink) Send(event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// ChannelSink delivers events on a channel; used by tests and the CLI.
type ChannelSink struct {
	ch chan models.Event
}

// NewChannelSink creates a sink buffering up to size events.
func NewChannelSink(size int) *ChannelSink {
	return &ChannelSink{ch: make(chan models.Event, size)}
}

// Send delivers an event, dropping it when the buffer is full so a slow
// consumer never stalls the pipeline.
func (s *ChannelSink) Send(event models.Event) error {
	select {
	case s.ch <- event:
		return nil
	default:
		return errors.New("event buffer full")
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan models.Event {
	return s.ch
}

// Close closes the event channel. Call only after the pipeline finished.
func (s *ChannelSink) Close() {
	close(s.ch)
}
