// package events defines the diagnostic event sink injected into every playback component.
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Kind names an observable occurrence.
type Kind string

const (
	CredentialRotated Kind = "credential_rotated"
	QuotaExhausted    Kind = "quota_exhausted"
	RequestFailed     Kind = "request_failed"
	RequestCoalesced  Kind = "request_coalesced"
	CacheHit          Kind = "cache_hit"
	CacheMiss         Kind = "cache_miss"
	CacheEvicted      Kind = "cache_evicted"
	RecordDropped     Kind = "record_dropped"
	ModeChanged       Kind = "mode_changed"
	AutonextAdvanced  Kind = "autonext_advanced"
	AutonextIdle      Kind = "autonext_idle"
	WidgetCreated     Kind = "widget_created"
	LoadQueued        Kind = "load_queued"
	LoadFlushed       Kind = "load_flushed"
	PageAttached      Kind = "page_attached"
	PageDetached      Kind = "page_detached"
	Unplayable        Kind = "unplayable"
	SubscriberFailed  Kind = "subscriber_failed"
)

// Event is one emitted occurrence. Fields holds alternating key-value pairs.
type Event struct {
	Kind    Kind
	Time    time.Time
	Message string
	Fields  []any
}

// String renders the event as "kind: message".
func (e Event) String() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Field returns the value paired with key in Fields.
func (e Event) Field(key string) (any, bool) {
	for i := 0; i+1 < len(e.Fields); i += 2 {
		if k, ok := e.Fields[i].(string); ok && k == key {
			return e.Fields[i+1], true
		}
	}
	return nil, false
}

// Sink receives events. Implementations must be safe for concurrent use and must not block.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Nop discards everything.
var Nop Sink = SinkFunc(func(Event) {})

// OrNop returns s, or [Nop] when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop
	}
	return s
}

// Emit builds an event stamped now and sends it to s.
func Emit(s Sink, kind Kind, msg string, kv ...any) {
	if s == nil {
		return
	}
	s.Emit(Event{Kind: kind, Time: time.Now(), Message: msg, Fields: kv})
}

// Fanout forwards every event to each sink in order.
type Fanout []Sink

func (f Fanout) Emit(e Event) {
	for _, s := range f {
		if s != nil {
			s.Emit(e)
		}
	}
}

// LogSink writes events through a [log.Logger] at a level chosen per kind.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a [LogSink].
func NewLogSink(l *log.Logger) *LogSink {
	return &LogSink{logger: l}
}

func (s *LogSink) Emit(e Event) {
	kv := append([]any{"event", string(e.Kind)}, e.Fields...)
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}

	switch e.Kind {
	case CacheHit, CacheMiss, CacheEvicted, RequestCoalesced, LoadQueued, LoadFlushed:
		s.logger.Debug(msg, kv...)
	case QuotaExhausted, RequestFailed, RecordDropped, Unplayable, CredentialRotated:
		s.logger.Warn(msg, kv...)
	case SubscriberFailed:
		s.logger.Error(msg, kv...)
	default:
		s.logger.Info(msg, kv...)
	}
}

// Channel delivers events to a buffered channel, dropping them when the reader falls behind.
type Channel struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
}

// NewChannel creates a [Channel] with the given buffer size.
func NewChannel(size int) *Channel {
	return &Channel{ch: make(chan Event, size)}
}

// C is the receive side.
func (c *Channel) C() <-chan Event { return c.ch }

func (c *Channel) Emit(e Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- e:
	default:
	}
}

// Close stops delivery and closes the channel. Safe to call more than once.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
