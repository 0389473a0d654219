package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytwatch/internal/autonext"
	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/player"
	"github.com/desertthunder/ytwatch/internal/queue"
)

type fakeController struct {
	loaded    []any
	enqueued  []any
	toggles   int
	mode      models.Mode
	playlist  string
	playlists []*models.Playlist
	results   []models.Video
	searchErr error
	nextOK    bool
	known     map[string]models.Video
	feed      chan events.Event
	queueFns  []queue.Listener
}

func newFakeController() *fakeController {
	return &fakeController{
		mode:  models.ModeRelated,
		known: map[string]models.Video{},
		feed:  make(chan events.Event, 8),
	}
}

func (f *fakeController) URL() string             { return "http://127.0.0.1:3000/" }
func (f *fakeController) LoadVideo(raw any) error { f.loaded = append(f.loaded, raw); return nil }
func (f *fakeController) Toggle() error           { f.toggles++; return nil }
func (f *fakeController) Next() (bool, error)     { return f.nextOK, nil }
func (f *fakeController) Prev() (bool, error)     { return false, nil }
func (f *fakeController) Enqueue(raw any) error   { f.enqueued = append(f.enqueued, raw); return nil }
func (f *fakeController) EnqueueCurrent() error   { return errors.New("nothing is playing") }
func (f *fakeController) Known(id string) (models.Video, bool) {
	v, ok := f.known[id]
	return v, ok
}

func (f *fakeController) CycleMode() (models.Mode, error) {
	f.mode = f.mode.Next()
	return f.mode, nil
}

func (f *fakeController) SelectPlaylist(ref string) (*models.Playlist, error) {
	for _, p := range f.playlists {
		if p.ID() == ref {
			f.mode, f.playlist = models.ModePlaylist, ref
			return p, nil
		}
	}
	return nil, errors.New("playlist not found")
}

func (f *fakeController) ListPlaylists() ([]*models.Playlist, error) { return f.playlists, nil }

func (f *fakeController) Search(ctx context.Context, q string) ([]models.Video, error) {
	return f.results, f.searchErr
}

func (f *fakeController) AutonextContext() autonext.Context {
	return autonext.Context{Mode: f.mode, PlaylistID: f.playlist, Region: "US"}
}

func (f *fakeController) QueueSnapshot() queue.Snapshot { return queue.Snapshot{Pointer: -1} }

func (f *fakeController) Subscribe(fn queue.Listener) func() {
	f.queueFns = append(f.queueFns, fn)
	return func() {}
}

func (f *fakeController) SubscribePlayer(fn func(player.Status)) func() { return func() {} }
func (f *fakeController) Events() <-chan events.Event                   { return f.feed }

var zeroTime time.Time

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and feeds the resulting message back into the model.
func run(m *Model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	if msg := cmd(); msg != nil {
		if _, ok := msg.(tea.BatchMsg); ok {
			return
		}
		m.Update(msg)
	}
}

func TestModel_Watch(t *testing.T) {
	t.Run("renders empty state", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeController())
		view := m.View()

		for _, want := range []string{"ytwatch", "player page: http://127.0.0.1:3000/", "nothing", "related", "empty"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected view to contain %q", want)
			}
		}
	})

	t.Run("queue and player updates", func(t *testing.T) {
		ctrl := newFakeController()
		ctrl.known["b"] = models.Video{ID: "b", Title: "Bee", ChannelName: "Hive"}
		m := NewModel(context.Background(), ctrl)

		m.Update(queueChangedMsg(queue.Snapshot{Items: []string{"a", "b"}, Pointer: 1}))
		m.Update(playerChangedMsg(player.Status{VideoID: "b", State: player.StatePlaying, Ready: true}))

		view := m.View()
		if !strings.Contains(view, "▶ 2. Bee - Hive") {
			t.Errorf("expected current queue item marker, got:\n%s", view)
		}
		if !strings.Contains(view, "(playing)") {
			t.Errorf("expected playing state, got:\n%s", view)
		}
	})

	t.Run("space toggles", func(t *testing.T) {
		ctrl := newFakeController()
		m := NewModel(context.Background(), ctrl)

		_, cmd := m.Update(keyPress(" "))
		run(m, cmd)
		if ctrl.toggles != 1 {
			t.Errorf("expected 1 toggle, got %d", ctrl.toggles)
		}
	})

	t.Run("failed actions flash", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeController())

		_, cmd := m.Update(keyPress("a"))
		run(m, cmd)
		if !strings.Contains(m.View(), "nothing is playing") {
			t.Error("expected failure message")
		}

		_, cmd = m.Update(keyPress("n"))
		run(m, cmd)
		if !strings.Contains(m.View(), "end of queue") {
			t.Error("expected boundary message")
		}
	})

	t.Run("mode cycles", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeController())
		m.Update(keyPress("m"))
		m.Update(keyPress("m"))
		if !strings.Contains(m.View(), "trending US") {
			t.Errorf("expected trending mode, got:\n%s", m.View())
		}
	})

	t.Run("quota banner and unplayable flash", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeController())

		m.Update(eventMsg(events.Event{Kind: events.QuotaExhausted, Message: "every API key was rejected"}))
		if !strings.Contains(m.View(), "quota exhausted") {
			t.Error("expected quota banner")
		}

		m.Update(eventMsg(events.Event{Kind: events.Unplayable, Message: "embedding not allowed", Fields: []any{"video", "x1"}}))
		if !strings.Contains(m.View(), "skipping x1: embedding not allowed") {
			t.Errorf("expected unplayable message, got:\n%s", m.View())
		}

		m.Update(eventMsg(events.Event{Kind: events.AutonextAdvanced, Message: "next"}))
		if strings.Contains(m.View(), "quota exhausted") {
			t.Error("banner should clear after autonext advanced")
		}
	})

	t.Run("flash expires", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeController())
		m.setFlash("first")
		stale := m.flashSeq
		m.setFlash("second")

		m.Update(flashExpiredMsg(stale))
		if m.flash != "second" {
			t.Errorf("stale expiry cleared newer flash")
		}
		m.Update(flashExpiredMsg(m.flashSeq))
		if m.flash != "" {
			t.Errorf("expected flash to clear")
		}
	})

	t.Run("event log is bounded", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeController())
		for range eventLogSize + 5 {
			m.Update(eventMsg(events.Event{Kind: events.CacheHit}))
		}
		if len(m.eventLog) != eventLogSize {
			t.Errorf("expected %d log lines, got %d", eventLogSize, len(m.eventLog))
		}
	})

	t.Run("quit", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeController())
		_, cmd := m.Update(keyPress("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestModel_Search(t *testing.T) {
	t.Run("play a result", func(t *testing.T) {
		ctrl := newFakeController()
		ctrl.results = []models.Video{{ID: "s1", Title: "First"}, {ID: "s2", Title: "Second"}}
		m := NewModel(context.Background(), ctrl)

		m.Update(keyPress("/"))
		if m.view != SearchInputView {
			t.Fatalf("expected search input view, got %v", m.view)
		}
		for _, r := range "lofi" {
			m.Update(keyPress(string(r)))
		}
		_, cmd := m.Update(keyPress("enter"))
		run(m, cmd)
		if m.view != SearchResultsView {
			t.Fatalf("expected results view, got %v", m.view)
		}

		_, cmd = m.Update(keyPress("enter"))
		run(m, cmd)
		if m.view != WatchView {
			t.Errorf("expected watch view after selection")
		}
		if len(ctrl.loaded) != 1 || ctrl.loaded[0].(models.Video).ID != "s1" {
			t.Errorf("expected s1 loaded, got %v", ctrl.loaded)
		}
	})

	t.Run("enqueue a result", func(t *testing.T) {
		ctrl := newFakeController()
		ctrl.results = []models.Video{{ID: "s1", Title: "First"}}
		m := NewModel(context.Background(), ctrl)
		m.Update(searchDoneMsg("q", ctrl.results, nil))

		_, cmd := m.Update(keyPress("a"))
		if cmd == nil {
			t.Fatal("expected command")
		}
		run(m, cmd().(tea.BatchMsg)[0])
		if len(ctrl.enqueued) != 1 {
			t.Errorf("expected 1 enqueued video, got %d", len(ctrl.enqueued))
		}
	})

	t.Run("failure returns to watch view", func(t *testing.T) {
		ctrl := newFakeController()
		ctrl.searchErr = errors.New("source unavailable")
		m := NewModel(context.Background(), ctrl)

		m.Update(searchDoneMsg("q", nil, ctrl.searchErr))
		if m.view != WatchView || !strings.Contains(m.View(), "search failed") {
			t.Errorf("expected failure flash in watch view")
		}
	})

	t.Run("escape cancels", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeController())
		m.Update(keyPress("/"))
		m.Update(keyPress("esc"))
		if m.view != WatchView {
			t.Errorf("expected watch view")
		}
	})
}

func TestModel_Playlists(t *testing.T) {
	t.Run("select playlist", func(t *testing.T) {
		ctrl := newFakeController()
		p := models.RestorePlaylist("pl-1", 1, "Focus", "", []models.Video{{ID: "a"}}, zeroTime, zeroTime, nil)
		ctrl.playlists = []*models.Playlist{p}
		m := NewModel(context.Background(), ctrl)

		_, cmd := m.Update(keyPress("l"))
		run(m, cmd)
		if m.view != PlaylistView {
			t.Fatalf("expected playlist view, got %v", m.view)
		}

		m.Update(keyPress("enter"))
		if ctrl.playlist != "pl-1" {
			t.Errorf("expected pl-1 selected, got %q", ctrl.playlist)
		}
		if !strings.Contains(m.View(), "playlist Focus") {
			t.Errorf("expected playlist mode line, got:\n%s", m.View())
		}
	})

	t.Run("no playlists", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeController())
		_, cmd := m.Update(keyPress("l"))
		run(m, cmd)
		if m.view != WatchView || !strings.Contains(m.View(), "no local playlists") {
			t.Error("expected hint in watch view")
		}
	})
}
