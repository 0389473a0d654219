package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/shared"
	tu "github.com/desertthunder/ytwatch/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWidget struct {
	mu    sync.Mutex
	calls []string
	err   error

	// A load of hold signals holding, then blocks until release is closed.
	hold    string
	holding chan struct{}
	release chan struct{}
}

func (w *fakeWidget) holdOn(id string) {
	w.hold, w.holding, w.release = id, make(chan struct{}), make(chan struct{})
}

func (w *fakeWidget) record(call string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, call)
	return w.err
}

func (w *fakeWidget) Play() error  { return w.record("play") }
func (w *fakeWidget) Pause() error { return w.record("pause") }

func (w *fakeWidget) LoadVideoByID(id string) error {
	if w.hold != "" && id == w.hold {
		close(w.holding)
		<-w.release
	}
	return w.record("load:" + id)
}

func (w *fakeWidget) Last() string {
	calls := w.Calls()
	if len(calls) == 0 {
		return ""
	}
	return calls[len(calls)-1]
}

func (w *fakeWidget) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

type fakeFactory struct {
	mu         sync.Mutex
	widget     *fakeWidget
	created    int
	mountID    string
	cfg        WidgetConfig
	events     WidgetEvents
	readyOnNew bool
	err        error
}

func (f *fakeFactory) Create(mountID string, cfg WidgetConfig, ev WidgetEvents) (Widget, error) {
	f.mu.Lock()
	f.created++
	f.mountID, f.cfg, f.events = mountID, cfg, ev
	err := f.err
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if f.readyOnNew {
		ev.OnReady()
	}
	return f.widget, nil
}

func (f *fakeFactory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

// applyingAutonext records the picks the adapter reports as applied.
type applyingAutonext struct {
	*fakeAutonext
	amu     sync.Mutex
	applied []string
}

func (f *applyingAutonext) Applied(previous string, next models.Video) {
	f.amu.Lock()
	defer f.amu.Unlock()
	f.applied = append(f.applied, previous+">"+next.ID)
}

func (f *applyingAutonext) Applications() []string {
	f.amu.Lock()
	defer f.amu.Unlock()
	return append([]string(nil), f.applied...)
}

type fakeAutonext struct {
	mu    sync.Mutex
	next  map[string]string
	calls []string
	gate  chan struct{}
}

func (f *fakeAutonext) OnPlaybackEnded(ctx context.Context, current string) (models.Video, bool) {
	f.mu.Lock()
	f.calls = append(f.calls, current)
	gate := f.gate
	next, ok := f.next[current]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.Video{}, false
		}
	}
	return models.Video{ID: next}, ok
}

func (f *fakeAutonext) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newAdapter(t *testing.T, an Autonext, sink events.Sink) (*Adapter, *fakeFactory, *fakeWidget) {
	t.Helper()
	w := &fakeWidget{}
	f := &fakeFactory{widget: w}
	a := New(Options{
		MountID:  "player",
		Config:   WidgetConfig{Autoplay: true, Controls: true},
		Factory:  f,
		Autonext: an,
		Sink:     sink,
	})
	t.Cleanup(a.Close)
	return a, f, w
}

// readyAdapter returns an adapter whose widget is constructed and ready.
func readyAdapter(t *testing.T, an Autonext, sink events.Sink) (*Adapter, *fakeWidget) {
	t.Helper()
	a, _, w := newAdapter(t, an, sink)
	a.ScriptLoaded()
	a.MountReady()
	a.OnReady()
	return a, w
}

func TestAdapterReadiness(t *testing.T) {
	t.Run("three loads before readiness flush only the latest", func(t *testing.T) {
		rec := tu.NewRecorder()
		a, f, w := newAdapter(t, nil, rec)

		require.NoError(t, a.Load("a"))
		a.ScriptLoaded()
		require.NoError(t, a.Load("b"))
		a.MountReady()
		require.NoError(t, a.Load("x"))
		assert.Empty(t, w.Calls())

		a.OnReady()
		assert.Equal(t, []string{"load:x"}, w.Calls())
		assert.Equal(t, 1, f.Created())
		assert.Equal(t, 3, rec.Count(events.LoadQueued))
		assert.Equal(t, 1, rec.Count(events.LoadFlushed))
		assert.Equal(t, "x", a.Current())
	})

	t.Run("constructs once regardless of order and repeats", func(t *testing.T) {
		a, f, _ := newAdapter(t, nil, nil)

		a.MountReady()
		assert.Zero(t, f.Created(), "script not loaded yet")
		a.ScriptLoaded()
		a.ScriptLoaded()
		a.MountReady()

		assert.Equal(t, 1, f.Created())
		assert.Equal(t, "player", f.mountID)
		assert.Equal(t, WidgetConfig{Autoplay: true, Controls: true}, f.cfg)
	})

	t.Run("concurrent readiness constructs once", func(t *testing.T) {
		a, f, _ := newAdapter(t, nil, nil)

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if i%2 == 0 {
					a.ScriptLoaded()
				} else {
					a.MountReady()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, f.Created())
	})

	t.Run("ready reported during construction", func(t *testing.T) {
		a, f, w := newAdapter(t, nil, nil)
		f.readyOnNew = true

		require.NoError(t, a.Load("a"))
		a.ScriptLoaded()
		a.MountReady()

		assert.True(t, a.Status().Ready)
		assert.Equal(t, []string{"load:a"}, w.Calls())
	})

	t.Run("failed construction can be retried", func(t *testing.T) {
		a, f, _ := newAdapter(t, nil, nil)
		f.err = errors.New("no iframe api")

		a.ScriptLoaded()
		a.MountReady()
		assert.False(t, a.Status().Ready)

		f.err = nil
		a.MountReady()
		assert.Equal(t, 2, f.Created())
	})

	t.Run("loads after readiness go straight to the widget", func(t *testing.T) {
		a, w := readyAdapter(t, nil, nil)
		require.NoError(t, a.Load(map[string]any{"id": map[string]any{"videoId": "v1"}}))
		assert.Equal(t, []string{"load:v1"}, w.Calls())
	})

	t.Run("rejects unresolvable ids", func(t *testing.T) {
		a, _, _ := newAdapter(t, nil, nil)
		assert.ErrorIs(t, a.Load(map[string]any{}), shared.ErrInvalidInput)
		assert.ErrorIs(t, a.Load(" "), shared.ErrInvalidInput)
	})

	t.Run("a slow load never lands after a newer one", func(t *testing.T) {
		a, w := readyAdapter(t, nil, nil)
		w.holdOn("a")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Load("a"))
		}()
		<-w.holding
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Load("b"))
		}()
		tu.Eventually(t, time.Second, func() bool { return a.Current() == "b" })
		close(w.release)
		wg.Wait()

		assert.Equal(t, "b", a.Current())
		assert.Equal(t, "load:b", w.Last())
	})

	t.Run("a slow flush never lands after a newer load", func(t *testing.T) {
		a, _, w := newAdapter(t, nil, nil)
		require.NoError(t, a.Load("a"))
		a.ScriptLoaded()
		a.MountReady()
		w.holdOn("a")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.OnReady()
		}()
		<-w.holding
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Load("b"))
		}()
		tu.Eventually(t, time.Second, func() bool { return a.Current() == "b" })
		close(w.release)
		wg.Wait()

		assert.Equal(t, "load:b", w.Last())
	})

	t.Run("a superseded flush is skipped", func(t *testing.T) {
		a, _, w := newAdapter(t, nil, nil)
		require.NoError(t, a.Load("a"))
		a.ScriptLoaded()
		a.MountReady()

		a.sent.Lock()
		done := make(chan struct{})
		go func() {
			a.OnReady()
			close(done)
		}()
		tu.Eventually(t, time.Second, func() bool { return a.Status().Ready })
		a.mu.Lock()
		a.cycle++
		a.current = "b"
		a.mu.Unlock()
		a.sent.Unlock()
		<-done

		assert.Empty(t, w.Calls())
	})

	t.Run("reconnect reloads the current video", func(t *testing.T) {
		a, w := readyAdapter(t, nil, nil)
		require.NoError(t, a.Load("v1"))
		a.OnReady()
		assert.Equal(t, []string{"load:v1", "load:v1"}, w.Calls())
	})
}

func TestAdapterCommands(t *testing.T) {
	t.Run("play and pause before construction set the desired state", func(t *testing.T) {
		a, _, w := newAdapter(t, nil, nil)
		require.NoError(t, a.Load("v1"))
		require.NoError(t, a.Play())
		require.NoError(t, a.Pause())

		a.ScriptLoaded()
		a.MountReady()
		a.OnReady()
		assert.Equal(t, []string{"load:v1", "pause"}, w.Calls())
	})

	t.Run("idempotent against the reported state", func(t *testing.T) {
		a, w := readyAdapter(t, nil, nil)
		require.NoError(t, a.Load("v1"))
		a.OnStateChange(StatePlaying)

		require.NoError(t, a.Play())
		assert.Equal(t, []string{"load:v1"}, w.Calls())

		require.NoError(t, a.Pause())
		require.NoError(t, a.Pause())
		assert.Equal(t, []string{"load:v1", "pause"}, w.Calls())

		a.OnStateChange(StatePaused)
		require.NoError(t, a.Pause())
		require.NoError(t, a.Play())
		assert.Equal(t, []string{"load:v1", "pause", "play"}, w.Calls())
	})

	t.Run("toggle", func(t *testing.T) {
		a, w := readyAdapter(t, nil, nil)
		require.NoError(t, a.Load("v1"))
		a.OnStateChange(StatePlaying)

		require.NoError(t, a.Toggle())
		a.OnStateChange(StatePaused)
		require.NoError(t, a.Toggle())
		assert.Equal(t, []string{"load:v1", "pause", "play"}, w.Calls())
	})

	t.Run("closed adapter rejects commands", func(t *testing.T) {
		a, _ := readyAdapter(t, nil, nil)
		a.Close()
		assert.ErrorIs(t, a.Load("v1"), shared.ErrPlayerClosed)
		assert.ErrorIs(t, a.Play(), shared.ErrPlayerClosed)
	})
}

func TestAdapterAutonext(t *testing.T) {
	t.Run("duplicate ended reports advance once", func(t *testing.T) {
		gate := make(chan struct{})
		an := &fakeAutonext{next: map[string]string{"v1": "v2"}, gate: gate}
		a, w := readyAdapter(t, an, nil)
		require.NoError(t, a.Load("v1"))

		a.OnStateChange(StateEnded)
		a.OnStateChange(StateEnded)
		a.OnError(150)
		close(gate)

		tu.Eventually(t, time.Second, func() bool { return a.Current() == "v2" })
		assert.Equal(t, []string{"v1"}, an.Calls())
		assert.Equal(t, []string{"load:v1", "load:v2"}, w.Calls())
	})

	t.Run("error skips once and reports unplayable", func(t *testing.T) {
		rec := tu.NewRecorder()
		gate := make(chan struct{})
		an := &fakeAutonext{next: map[string]string{"bad": "good"}, gate: gate}
		a, _ := readyAdapter(t, an, rec)
		require.NoError(t, a.Load("bad"))

		a.OnError(101)
		a.OnError(101)
		a.OnStateChange(StateEnded)
		close(gate)

		tu.Eventually(t, time.Second, func() bool { return a.Current() == "good" })
		assert.Equal(t, []string{"bad"}, an.Calls())
		assert.Equal(t, 1, rec.Count(events.Unplayable))
	})

	t.Run("each load cycle may advance again", func(t *testing.T) {
		an := &fakeAutonext{next: map[string]string{"v1": "v2", "v2": "v3"}}
		a, _ := readyAdapter(t, an, nil)
		require.NoError(t, a.Load("v1"))

		a.OnStateChange(StateEnded)
		tu.Eventually(t, time.Second, func() bool { return a.Current() == "v2" })
		a.OnStateChange(StateEnded)
		tu.Eventually(t, time.Second, func() bool { return a.Current() == "v3" })
		assert.Equal(t, []string{"v1", "v2"}, an.Calls())
	})

	t.Run("a newer load wins over a late autonext result", func(t *testing.T) {
		gate := make(chan struct{})
		an := &fakeAutonext{next: map[string]string{"v1": "v2"}, gate: gate}
		a, w := readyAdapter(t, an, nil)
		require.NoError(t, a.Load("v1"))

		a.OnStateChange(StateEnded)
		tu.Eventually(t, time.Second, func() bool { return len(an.Calls()) == 1 })
		require.NoError(t, a.Load("user-pick"))
		close(gate)

		a.Close()
		assert.Equal(t, "user-pick", a.Current())
		assert.Equal(t, []string{"load:v1", "load:user-pick"}, w.Calls())
	})

	t.Run("only applied picks are reported", func(t *testing.T) {
		gate := make(chan struct{})
		an := &applyingAutonext{fakeAutonext: &fakeAutonext{next: map[string]string{"v1": "v2", "v3": "v4"}, gate: gate}}
		a, _ := readyAdapter(t, an, nil)

		require.NoError(t, a.Load("v1"))
		a.OnStateChange(StateEnded)
		tu.Eventually(t, time.Second, func() bool { return len(an.Calls()) == 1 })
		require.NoError(t, a.Load("v3"))
		close(gate)

		a.OnStateChange(StateEnded)
		tu.Eventually(t, time.Second, func() bool { return a.Current() == "v4" })
		a.Close()
		assert.Equal(t, []string{"v3>v4"}, an.Applications())
	})

	t.Run("idle autonext leaves the player alone", func(t *testing.T) {
		an := &fakeAutonext{next: map[string]string{}}
		a, w := readyAdapter(t, an, nil)
		require.NoError(t, a.Load("v1"))

		a.OnStateChange(StateEnded)
		tu.Eventually(t, time.Second, func() bool { return len(an.Calls()) == 1 })
		a.Close()
		assert.Equal(t, []string{"load:v1"}, w.Calls())
		assert.Equal(t, StateEnded, a.State())
	})

	t.Run("ended with nothing loaded does nothing", func(t *testing.T) {
		an := &fakeAutonext{}
		a, _ := readyAdapter(t, an, nil)
		a.OnStateChange(StateEnded)
		a.OnError(5)
		a.Close()
		assert.Empty(t, an.Calls())
	})

	t.Run("close cancels a pending lookup", func(t *testing.T) {
		an := &fakeAutonext{next: map[string]string{"v1": "v2"}, gate: make(chan struct{})}
		a, _ := readyAdapter(t, an, nil)
		require.NoError(t, a.Load("v1"))
		a.OnStateChange(StateEnded)

		done := make(chan struct{})
		go func() {
			a.Close()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			require.FailNow(t, "Close did not return")
		}
		assert.Equal(t, "v1", a.Current())
	})
}

func TestAdapterSubscribe(t *testing.T) {
	a, _ := readyAdapter(t, nil, nil)

	var mu sync.Mutex
	var seen []Status
	unsubscribe := a.Subscribe(func(s Status) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	a.Subscribe(func(Status) { panic("listener bug") })

	require.NoError(t, a.Load("v1"))
	a.OnStateChange(StatePlaying)
	unsubscribe()
	a.OnStateChange(StatePaused)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, "v1", seen[1].VideoID)
	assert.Equal(t, StatePlaying, seen[1].State)
	assert.True(t, seen[1].Ready)
}

func TestState(t *testing.T) {
	for n, want := range map[int]State{-1: StateUnstarted, 0: StateEnded, 1: StatePlaying, 2: StatePaused, 3: StateBuffering, 5: StateCued} {
		got, ok := ParseState(n)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := ParseState(4)
	assert.False(t, ok)

	assert.Equal(t, "playing", StatePlaying.String())
	assert.Equal(t, "state(9)", State(9).String())
	assert.Equal(t, "embedding not allowed", ErrorReason(150))
}
