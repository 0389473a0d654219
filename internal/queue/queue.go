// Package queue is the ordered playback queue.
//
// The queue holds video ids and a pointer to the current one. The pointer is -1 exactly when the queue is empty
// and otherwise always indexes an item. Every mutation notifies subscribers with an immutable [Snapshot].
package queue

import (
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/ytwatch/internal/events"
)

// Snapshot is a copy of the queue at one point in time.
type Snapshot struct {
	Items   []string `json:"items"`
	Pointer int      `json:"pointer"`
}

// Current returns the id under the pointer.
func (s Snapshot) Current() (string, bool) {
	if s.Pointer < 0 || s.Pointer >= len(s.Items) {
		return "", false
	}
	return s.Items[s.Pointer], true
}

// Listener receives a snapshot after every mutation.
type Listener func(Snapshot)

// Queue is safe for concurrent use. Listeners run synchronously on the mutating goroutine, after the queue lock
// is released.
type Queue struct {
	mu        sync.Mutex
	items     []string
	pointer   int
	listeners map[int]Listener
	nextSub   int
	sink      events.Sink
}

// New creates an empty queue.
func New(sink events.Sink) *Queue {
	return &Queue{pointer: -1, listeners: make(map[int]Listener), sink: events.OrNop(sink)}
}

// clamp restores the pointer range. Callers hold mu.
func (q *Queue) clamp() {
	switch {
	case len(q.items) == 0:
		q.pointer = -1
	case q.pointer < 0:
		q.pointer = 0
	case q.pointer >= len(q.items):
		q.pointer = len(q.items) - 1
	}
}

// snapshot copies the state. Callers hold mu.
func (q *Queue) snapshot() Snapshot {
	items := make([]string, len(q.items))
	copy(items, q.items)
	return Snapshot{Items: items, Pointer: q.pointer}
}

// Snapshot returns the current state.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshot()
}

// Len returns the number of items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Add appends id. The first item of an empty queue becomes current. Blank ids are ignored.
func (q *Queue) Add(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}

	q.mu.Lock()
	q.items = append(q.items, id)
	q.clamp()
	snap := q.snapshot()
	q.mu.Unlock()

	q.notify(snap)
}

// Remove drops the first occurrence of id. Removing the current item, or one before it, moves the pointer back
// one place before clamping. Removing an absent id changes nothing.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	i := -1
	for j, item := range q.items {
		if item == id {
			i = j
			break
		}
	}
	if i < 0 {
		q.mu.Unlock()
		return
	}

	q.items = append(q.items[:i:i], q.items[i+1:]...)
	if i <= q.pointer {
		q.pointer--
	}
	q.clamp()
	snap := q.snapshot()
	q.mu.Unlock()

	q.notify(snap)
}

// Move relocates the item at from to index to. The pointer keeps following the current item. Out-of-range
// indices are ignored.
func (q *Queue) Move(from, to int) {
	q.mu.Lock()
	n := len(q.items)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		q.mu.Unlock()
		return
	}

	id := q.items[from]
	items := append(q.items[:from:from], q.items[from+1:]...)
	q.items = append(items[:to], append([]string{id}, items[to:]...)...)

	switch {
	case q.pointer == from:
		q.pointer = to
	case from < q.pointer && to >= q.pointer:
		q.pointer--
	case from > q.pointer && to <= q.pointer:
		q.pointer++
	}
	q.clamp()
	snap := q.snapshot()
	q.mu.Unlock()

	q.notify(snap)
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.clamp()
	snap := q.snapshot()
	q.mu.Unlock()

	q.notify(snap)
}

// Current returns the id under the pointer.
func (q *Queue) Current() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshot().Current()
}

// Next advances the pointer. At the last item it returns false and stays put.
func (q *Queue) Next() (string, bool) {
	return q.step(1)
}

// Prev moves the pointer back. At the first item it returns false and stays put.
func (q *Queue) Prev() (string, bool) {
	return q.step(-1)
}

func (q *Queue) step(delta int) (string, bool) {
	q.mu.Lock()
	target := q.pointer + delta
	if q.pointer < 0 || target < 0 || target >= len(q.items) {
		q.mu.Unlock()
		return "", false
	}
	q.pointer = target
	id := q.items[target]
	snap := q.snapshot()
	q.mu.Unlock()

	q.notify(snap)
	return id, true
}

// Peek returns the item after the current one without moving the pointer.
func (q *Queue) Peek() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pointer < 0 || q.pointer+1 >= len(q.items) {
		return "", false
	}
	return q.items[q.pointer+1], true
}

// Follow moves the pointer one step when the current item is still from and the next one is still to.
// It reports whether the pointer moved.
func (q *Queue) Follow(from, to string) bool {
	q.mu.Lock()
	p := q.pointer
	if p < 0 || p+1 >= len(q.items) || q.items[p] != from || q.items[p+1] != to {
		q.mu.Unlock()
		return false
	}
	q.pointer = p + 1
	snap := q.snapshot()
	q.mu.Unlock()

	q.notify(snap)
	return true
}

// Jump makes the item at index current.
func (q *Queue) Jump(index int) (string, bool) {
	q.mu.Lock()
	if index < 0 || index >= len(q.items) {
		q.mu.Unlock()
		return "", false
	}
	q.pointer = index
	id := q.items[index]
	snap := q.snapshot()
	q.mu.Unlock()

	q.notify(snap)
	return id, true
}

// Subscribe registers fn for future mutations and returns its unsubscribe function.
func (q *Queue) Subscribe(fn Listener) (unsubscribe func()) {
	q.mu.Lock()
	id := q.nextSub
	q.nextSub++
	q.listeners[id] = fn
	q.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			delete(q.listeners, id)
			q.mu.Unlock()
		})
	}
}

func (q *Queue) notify(snap Snapshot) {
	q.mu.Lock()
	listeners := make([]Listener, 0, len(q.listeners))
	// Registration order.
	for i := 0; i < q.nextSub; i++ {
		if fn, ok := q.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	q.mu.Unlock()

	for _, fn := range listeners {
		q.call(fn, snap)
	}
}

func (q *Queue) call(fn Listener, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			events.Emit(q.sink, events.SubscriberFailed, fmt.Sprint(r), "component", "queue")
		}
	}()
	fn(snap)
}
