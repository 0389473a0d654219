// Package player drives the embeddable video widget.
//
// The widget lives in a page that loads asynchronously, so an [Adapter] tracks three readiness conditions: the
// widget script has loaded, the mount node exists, and the constructed widget has reported ready. Until all three
// hold, loads are remembered (only the latest survives) and play/pause only set the desired state. The widget is
// constructed exactly once, as soon as the script and the mount node are both present.
//
// Each load starts a new cycle. The first "ended" or error report of a cycle asks the autonext machine for a
// successor; repeats are ignored. The successor is loaded only if no other load happened while it was looked up.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/normalize"
	"github.com/desertthunder/ytwatch/internal/shared"
)

// WidgetConfig holds the widget construction options.
type WidgetConfig struct {
	Autoplay bool `json:"autoplay"`
	Controls bool `json:"controls"`
}

// Widget is a constructed player widget.
type Widget interface {
	LoadVideoByID(id string) error
	Play() error
	Pause() error
}

// WidgetEvents receives reports from a widget.
type WidgetEvents interface {
	OnReady()
	OnStateChange(State)
	OnError(code int)
}

// WidgetFactory constructs a widget in the mount node named mountID.
type WidgetFactory interface {
	Create(mountID string, cfg WidgetConfig, ev WidgetEvents) (Widget, error)
}

// Autonext picks the video that follows currentID.
type Autonext interface {
	OnPlaybackEnded(ctx context.Context, currentID string) (models.Video, bool)
}

// Applier is implemented by an [Autonext] that must learn when its pick actually became the loaded video.
// Picks discarded because a newer load happened first are never reported.
type Applier interface {
	Applied(previousID string, next models.Video)
}

// Status is what listeners see after every change.
type Status struct {
	VideoID string `json:"videoId"`
	State   State  `json:"state"`
	Cycle   uint64 `json:"cycle"`
	Script  bool   `json:"script"`
	Mount   bool   `json:"mount"`
	Ready   bool   `json:"ready"`
}

// Options configures an [Adapter].
type Options struct {
	MountID  string
	Config   WidgetConfig
	Factory  WidgetFactory
	Autonext Autonext
	Sink     events.Sink
	Logger   *log.Logger
}

// Adapter owns the widget handle. It is safe for concurrent use; widget and listener calls are made without the
// adapter lock held.
type Adapter struct {
	mu   sync.Mutex
	sent sync.Mutex // orders LoadVideoByID calls; never taken while mu is held
	opts Options
	sink events.Sink
	log  *log.Logger

	script   bool
	mount    bool
	ready    bool
	creating bool
	early    bool // ready reported while Create was still running
	widget   Widget

	pending   string
	desired   State
	commanded State
	current   string
	state     State
	cycle     uint64
	handled   bool

	listeners map[int]func(Status)
	nextSub   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

const noState State = -99

// New creates an adapter. Nothing is constructed until the page reports readiness.
func New(opts Options) *Adapter {
	if opts.MountID == "" {
		opts.MountID = "player"
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Adapter{
		opts:      opts,
		sink:      events.OrNop(opts.Sink),
		log:       opts.Logger,
		desired:   noState,
		commanded: noState,
		state:     StateUnstarted,
		listeners: make(map[int]func(Status)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ScriptLoaded records that the widget script is available.
func (a *Adapter) ScriptLoaded() {
	a.mu.Lock()
	a.script = true
	a.mu.Unlock()
	a.construct()
}

// MountReady records that the mount node exists.
func (a *Adapter) MountReady() {
	a.mu.Lock()
	a.mount = true
	a.mu.Unlock()
	a.construct()
}

// construct builds the widget once both page conditions hold.
func (a *Adapter) construct() {
	a.mu.Lock()
	if !a.script || !a.mount || a.widget != nil || a.creating || a.closed || a.opts.Factory == nil {
		a.mu.Unlock()
		a.notify()
		return
	}
	a.creating = true
	a.mu.Unlock()

	w, err := a.opts.Factory.Create(a.opts.MountID, a.opts.Config, a)

	a.mu.Lock()
	a.creating = false
	if err != nil {
		a.mu.Unlock()
		a.log.Error("widget construction failed", "mount", a.opts.MountID, "error", err)
		return
	}
	a.widget = w
	early := a.early
	a.early = false
	a.mu.Unlock()

	events.Emit(a.sink, events.WidgetCreated, a.opts.MountID, "mount", a.opts.MountID)
	if early {
		a.OnReady()
		return
	}
	a.notify()
}

// Load plays raw, which may be an id or any record shape the normalizer understands. Before the widget is ready
// the id replaces any earlier pending one.
func (a *Adapter) Load(raw any) error {
	id, ok := normalize.ID(raw)
	if !ok {
		return fmt.Errorf("%w: no video id in %v", shared.ErrInvalidInput, raw)
	}
	_, err := a.load(id, 0, false)
	return err
}

// load starts a new cycle for id. When guarded, it only proceeds if the cycle is still ifCycle. It reports
// whether the new cycle started.
func (a *Adapter) load(id string, ifCycle uint64, guarded bool) (bool, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false, shared.ErrPlayerClosed
	}
	if guarded && a.cycle != ifCycle {
		a.mu.Unlock()
		a.log.Debug("discarding stale autonext result", "video", id)
		return false, nil
	}

	a.cycle++
	cycle := a.cycle
	a.handled = false
	a.current = id
	a.state = StateUnstarted
	a.commanded = noState

	if !a.ready {
		replaced := a.pending
		a.pending = id
		a.mu.Unlock()

		events.Emit(a.sink, events.LoadQueued, id, "video", id, "replaced", replaced)
		a.notify()
		return true, nil
	}
	w := a.widget
	a.mu.Unlock()

	a.notify()
	if _, err := a.dispatch(w, id, cycle); err != nil {
		return true, fmt.Errorf("load %s: %w", id, err)
	}
	return true, nil
}

// dispatch sends id to the widget unless a newer cycle began since cycle. Sends are serialized, so a slow
// send can never land after the send of a newer cycle.
func (a *Adapter) dispatch(w Widget, id string, cycle uint64) (bool, error) {
	a.sent.Lock()
	defer a.sent.Unlock()

	a.mu.Lock()
	stale := a.cycle != cycle || a.closed
	a.mu.Unlock()
	if stale {
		a.log.Debug("skipping superseded load", "video", id)
		return false, nil
	}
	return true, w.LoadVideoByID(id)
}

// Play resumes playback. It does nothing when the widget already reports playing.
func (a *Adapter) Play() error { return a.command(StatePlaying) }

// Pause pauses playback. It does nothing when the widget already reports paused.
func (a *Adapter) Pause() error { return a.command(StatePaused) }

// Toggle plays when paused and pauses otherwise.
func (a *Adapter) Toggle() error {
	a.mu.Lock()
	playing := a.state == StatePlaying || a.state == StateBuffering
	if !a.ready {
		playing = a.desired == StatePlaying || (a.desired == noState && a.opts.Config.Autoplay)
	}
	a.mu.Unlock()

	if playing {
		return a.Pause()
	}
	return a.Play()
}

func (a *Adapter) command(target State) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return shared.ErrPlayerClosed
	}
	if !a.ready {
		a.desired = target
		a.mu.Unlock()
		return nil
	}
	if a.state == target || a.commanded == target {
		a.mu.Unlock()
		return nil
	}
	a.commanded = target
	w := a.widget
	a.mu.Unlock()

	return send(w, target)
}

func send(w Widget, target State) error {
	if target == StatePlaying {
		return w.Play()
	}
	return w.Pause()
}

// OnReady is called by the widget once it accepts commands. The latest pending load is flushed, then the
// desired play state applied. A second report (a reconnecting page) reloads the current video.
func (a *Adapter) OnReady() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	if a.widget == nil {
		a.early = a.creating
		a.mu.Unlock()
		return
	}
	again := a.ready
	a.ready = true

	id := a.pending
	a.pending = ""
	if id == "" && again {
		id = a.current
	}
	desired := a.desired
	a.desired = noState
	a.commanded = desired
	w, cycle := a.widget, a.cycle
	a.mu.Unlock()

	if id != "" {
		if sent, err := a.dispatch(w, id, cycle); err != nil {
			a.log.Error("flushing pending load failed", "video", id, "error", err)
		} else if sent {
			events.Emit(a.sink, events.LoadFlushed, id, "video", id)
		}
	}
	if desired != noState {
		if err := send(w, desired); err != nil {
			a.log.Warn("applying desired state failed", "state", desired, "error", err)
		}
	}
	a.notify()
}

// OnStateChange is called by the widget on every playback state change.
func (a *Adapter) OnStateChange(s State) {
	a.mu.Lock()
	a.state = s
	if a.commanded == s {
		a.commanded = noState
	}
	trigger := s == StateEnded && !a.handled && a.current != ""
	if trigger {
		a.handled = true
	}
	cycle, id := a.cycle, a.current
	a.mu.Unlock()

	a.notify()
	if trigger {
		a.advance(cycle, id)
	}
}

// OnError is called by the widget when the current video cannot be played. It counts as the end of the cycle.
func (a *Adapter) OnError(code int) {
	a.mu.Lock()
	if a.handled || a.current == "" {
		a.mu.Unlock()
		return
	}
	a.handled = true
	cycle, id := a.cycle, a.current
	a.mu.Unlock()

	events.Emit(a.sink, events.Unplayable, ErrorReason(code), "video", id, "code", code)
	a.advance(cycle, id)
}

// advance looks up the successor off the widget's event goroutine.
func (a *Adapter) advance(cycle uint64, id string) {
	if a.opts.Autonext == nil {
		return
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		next, ok := a.opts.Autonext.OnPlaybackEnded(a.ctx, id)
		if !ok {
			return
		}
		started, err := a.load(next.ID, cycle, true)
		if err != nil && !errors.Is(err, shared.ErrPlayerClosed) {
			a.log.Warn("autonext load failed", "video", next.ID, "error", err)
		}
		if ap, ok := a.opts.Autonext.(Applier); ok && started {
			ap.Applied(id, next)
		}
	}()
}

// Current returns the id of the video of the current cycle.
func (a *Adapter) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// State returns the last state the widget reported for the current cycle.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Status returns a snapshot of the adapter.
func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status()
}

func (a *Adapter) status() Status {
	return Status{
		VideoID: a.current,
		State:   a.state,
		Cycle:   a.cycle,
		Script:  a.script,
		Mount:   a.mount,
		Ready:   a.ready,
	}
}

// Subscribe registers fn for status changes.
func (a *Adapter) Subscribe(fn func(Status)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.listeners[id] = fn
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

func (a *Adapter) notify() {
	a.mu.Lock()
	st := a.status()
	fns := make([]func(Status), 0, len(a.listeners))
	for i := 0; i < a.nextSub; i++ {
		if fn, ok := a.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	a.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					events.Emit(a.sink, events.SubscriberFailed, fmt.Sprint(r), "component", "player")
				}
			}()
			fn(st)
		}()
	}
}

// Close stops pending autonext lookups and rejects further commands.
func (a *Adapter) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.cancel()
	a.wg.Wait()
}

var _ WidgetEvents = (*Adapter)(nil)
