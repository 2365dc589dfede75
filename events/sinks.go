package events

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Multi fans an event out to several sinks. Every sink is tried; the
// errors are joined.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Emit(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(context.Context, Event) error { return nil }

// LogSink writes events to a logrus logger
type LogSink struct {
	log *logrus.Entry
}

// NewLogSink creates a LogSink. A nil entry uses the standard logger.
func NewLogSink(log *logrus.Entry) *LogSink {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LogSink{log: log.WithField("component", "events")}
}

// Emit logs the event at info level
func (s *LogSink) Emit(_ context.Context, ev Event) error {
	s.log.WithFields(logrus.Fields{
		"event":   ev.Type,
		"key":     ev.Key,
		"payload": ev.Payload,
	}).Info("event emitted")
	return nil
}

// Recorder keeps every event in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records the event
func (r *Recorder) Emit(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of type t
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Reset forgets every recorded event
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
