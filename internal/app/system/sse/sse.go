// Package sse writes text/event-stream responses.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// KeepAliveComment is sent periodically so proxies keep idle streams open.
const KeepAliveComment = "keep-alive"

// ErrNotFlushable is returned when the ResponseWriter cannot stream.
var ErrNotFlushable = errors.New("response writer does not support flushing")

// Stream is an open event stream. Methods are safe for concurrent use.
type Stream struct {
	mu sync.Mutex
	w  http.ResponseWriter
	f  http.Flusher
}

// Open writes the event-stream headers and flushes them.
func Open(w http.ResponseWriter) (*Stream, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNotFlushable
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &Stream{w: w, f: f}, nil
}

// Send writes one event. Multi-line data is split across data: fields.
func (s *Stream) Send(event string, data string) error {
	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	return s.write(b.String())
}

// SendJSON marshals v and sends it as event.
func (s *Stream) SendJSON(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	return s.Send(event, string(data))
}

// Comment writes a comment line, ignored by EventSource clients.
func (s *Stream) Comment(text string) error {
	return s.write(": " + text + "\n\n")
}

func (s *Stream) write(payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write([]byte(payload)); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// Latest is a one-slot mailbox: Put replaces any value not yet taken, so a
// slow client only ever receives the newest full result set.
type Latest[T any] struct {
	mu sync.Mutex
	ch chan T
}

func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{ch: make(chan T, 1)}
}

// Put never blocks.
func (l *Latest[T]) Put(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.ch:
	default:
	}
	l.ch <- v
}

// C is the receive side.
func (l *Latest[T]) C() <-chan T {
	return l.ch
}
