// package credentials rotates through an ordered set of API keys.
package credentials

import (
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/desertthunder/ytwatch/internal/shared"
)

// Rotator holds a non-empty key set and a cursor that always indexes a valid slot.
//
// Rotation is monotonic and wraps. Every holder of the same Rotator observes the same cursor.
type Rotator struct {
	mu     sync.Mutex
	keys   []string
	cursor int
	sink   events.Sink
}

// New builds a Rotator, dropping blank keys. An empty set is rejected with [shared.ErrMissingCredentials].
func New(keys []string, sink events.Sink) (*Rotator, error) {
	set := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			set = append(set, k)
		}
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: at least one API key is required", shared.ErrMissingCredentials)
	}
	return &Rotator{keys: set, sink: events.OrNop(sink)}, nil
}

// Current returns the key at the cursor.
func (r *Rotator) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keys[r.cursor]
}

// Rotate advances the cursor by one slot, wrapping at the end.
func (r *Rotator) Rotate() {
	r.mu.Lock()
	from := r.cursor
	r.cursor = (r.cursor + 1) % len(r.keys)
	to := r.cursor
	r.mu.Unlock()

	events.Emit(r.sink, events.CredentialRotated, "switching API key", "from", from, "to", to)
}

// Index returns the cursor position.
func (r *Rotator) Index() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// Len returns the number of keys.
func (r *Rotator) Len() int {
	return len(r.keys)
}

// Masked returns the current key with all but its last four characters hidden, for display.
func (r *Rotator) Masked() string {
	k := r.Current()
	if len(k) <= 4 {
		return strings.Repeat("*", len(k))
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}
