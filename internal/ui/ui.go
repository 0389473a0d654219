package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytwatch/internal/autonext"
	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/player"
	"github.com/desertthunder/ytwatch/internal/queue"
)

const (
	eventLogSize = 8
	flashTTL     = 4 * time.Second
)

// Controller is the session surface the TUI drives.
type Controller interface {
	URL() string
	LoadVideo(raw any) error
	Toggle() error
	Next() (bool, error)
	Prev() (bool, error)
	Enqueue(raw any) error
	EnqueueCurrent() error
	CycleMode() (models.Mode, error)
	SelectPlaylist(ref string) (*models.Playlist, error)
	ListPlaylists() ([]*models.Playlist, error)
	Search(ctx context.Context, q string) ([]models.Video, error)
	AutonextContext() autonext.Context
	QueueSnapshot() queue.Snapshot
	Known(id string) (models.Video, bool)
	Subscribe(fn queue.Listener) (unsubscribe func())
	SubscribePlayer(fn func(player.Status)) (unsubscribe func())
	Events() <-chan events.Event
}

// ViewState represents the current view in the TUI.
type ViewState int

const (
	WatchView ViewState = iota
	SearchInputView
	SearchResultsView
	PlaylistView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	ctrl         Controller
	view         ViewState
	width        int
	height       int
	updates      chan tea.Msg
	unsubscribe  []func()
	queue        queue.Snapshot
	status       player.Status
	playlistName string
	eventLog     []string
	quota        bool
	flash        string
	flashSeq     int
	err          error
	input        textinput.Model
	results      list.Model
	playlistList list.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model driving ctrl.
func NewModel(ctx context.Context, ctrl Controller) *Model {
	input := textinput.New()
	input.Placeholder = "search videos"
	input.CharLimit = 200

	return &Model{
		ctx:     ctx,
		ctrl:    ctrl,
		view:    WatchView,
		updates: make(chan tea.Msg, 64),
		queue:   ctrl.QueueSnapshot(),
		input:   input,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Run starts the TUI on the alternate screen and blocks until the user quits.
func Run(ctx context.Context, ctrl Controller) error {
	m := NewModel(ctx, ctrl)
	defer m.Close()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init subscribes to queue and player changes and starts reading the event feed.
func (m *Model) Init() tea.Cmd {
	m.unsubscribe = append(m.unsubscribe,
		m.ctrl.Subscribe(func(s queue.Snapshot) { m.forward(queueChangedMsg(s)) }),
		m.ctrl.SubscribePlayer(func(s player.Status) { m.forward(playerChangedMsg(s)) }),
	)
	return tea.Batch(m.waitForUpdate(), m.waitForEvent())
}

// Close drops the subscriptions.
func (m *Model) Close() {
	for _, fn := range m.unsubscribe {
		fn()
	}
	m.unsubscribe = nil
}

// forward hands a subscription callback to the update loop without blocking the caller.
func (m *Model) forward(msg tea.Msg) {
	select {
	case m.updates <- msg:
	default:
	}
}

func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.ctrl.Events()
		if !ok {
			return Msg{kind: MsgFeedClosed}
		}
		return eventMsg(e)
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case WatchView:
			return m.handleWatchKeys(msg)
		case SearchInputView:
			return m.handleSearchInputKeys(msg)
		case SearchResultsView:
			return m.handleResultKeys(msg)
		case PlaylistView:
			return m.handlePlaylistKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgQueueChanged:
		m.queue = msg.data.(queue.Snapshot)
		return m, m.waitForUpdate()

	case MsgPlayerChanged:
		m.status = msg.data.(player.Status)
		return m, m.waitForUpdate()

	case MsgEvent:
		return m, tea.Batch(m.recordEvent(msg.data.(events.Event)), m.waitForEvent())

	case MsgFeedClosed:
		return m, nil

	case MsgSearchDone:
		data := msg.data.(struct {
			query  string
			videos []models.Video
			err    error
		})
		if data.err != nil {
			m.view = WatchView
			return m, m.setFlash(fmt.Sprintf("search failed: %v", data.err))
		}
		m.quota = false
		items := make([]list.Item, len(data.videos))
		for i, v := range data.videos {
			items[i] = videoItem{video: v}
		}
		m.results = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.results.Title = fmt.Sprintf("Results for %q", data.query)
		m.resizeLists()
		m.view = SearchResultsView
		return m, nil

	case MsgPlaylistsFetched:
		data := msg.data.(struct {
			playlists []*models.Playlist
			err       error
		})
		if data.err != nil {
			m.view = WatchView
			return m, m.setFlash(fmt.Sprintf("loading playlists failed: %v", data.err))
		}
		if len(data.playlists) == 0 {
			m.view = WatchView
			return m, m.setFlash("no local playlists; create one with `ytwatch playlist create`")
		}
		items := make([]list.Item, len(data.playlists))
		for i, p := range data.playlists {
			items[i] = playlistItem{playlist: p}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Autonext Playlist"
		m.resizeLists()
		m.view = PlaylistView
		return m, nil

	case MsgActionFailed:
		return m, m.setFlash(msg.data.(error).Error())

	case MsgFlashExpired:
		if msg.data.(int) == m.flashSeq {
			m.flash = ""
		}
		return m, nil
	}
	return m, nil
}

// recordEvent appends e to the log and reacts to the kinds the screen surfaces.
func (m *Model) recordEvent(e events.Event) tea.Cmd {
	m.eventLog = append(m.eventLog, fmt.Sprintf("%s %s", e.Kind, e.Message))
	if len(m.eventLog) > eventLogSize {
		m.eventLog = m.eventLog[len(m.eventLog)-eventLogSize:]
	}

	switch e.Kind {
	case events.QuotaExhausted:
		m.quota = true
	case events.AutonextAdvanced, events.CredentialRotated:
		m.quota = false
	case events.Unplayable:
		video, _ := e.Field("video")
		return m.setFlash(fmt.Sprintf("skipping %v: %s", video, e.Message))
	}
	return nil
}

// setFlash shows text until a newer flash replaces it or it expires.
func (m *Model) setFlash(text string) tea.Cmd {
	m.flashSeq++
	m.flash = text
	seq := m.flashSeq
	return tea.Tick(flashTTL, func(time.Time) tea.Msg { return flashExpiredMsg(seq) })
}

func (m *Model) handleWatchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		return m, m.act(m.ctrl.Toggle)
	case key.Matches(msg, m.keys.next):
		return m, m.step(m.ctrl.Next, "end of queue")
	case key.Matches(msg, m.keys.prev):
		return m, m.step(m.ctrl.Prev, "start of queue")
	case key.Matches(msg, m.keys.enqueue):
		return m, m.act(m.ctrl.EnqueueCurrent)
	case key.Matches(msg, m.keys.mode):
		mode, err := m.ctrl.CycleMode()
		if err != nil {
			return m, m.setFlash(err.Error())
		}
		if mode != models.ModePlaylist {
			m.playlistName = ""
		}
		return m, nil
	case key.Matches(msg, m.keys.playlists):
		return m, m.fetchPlaylists()
	case key.Matches(msg, m.keys.search):
		m.view = SearchInputView
		m.input.SetValue("")
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *Model) handleSearchInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.input.Blur()
		m.view = WatchView
		return m, nil
	case tea.KeyEnter:
		q := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		if q == "" {
			m.view = WatchView
			return m, nil
		}
		return m, m.search(q)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.results.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.view = WatchView
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.results.SelectedItem().(videoItem); ok {
			m.view = WatchView
			return m, m.act(func() error { return m.ctrl.LoadVideo(item.video) })
		}
		return m, nil
	case key.Matches(msg, m.keys.enqueue):
		if item, ok := m.results.SelectedItem().(videoItem); ok {
			return m, tea.Batch(
				m.act(func() error { return m.ctrl.Enqueue(item.video) }),
				m.setFlash("queued "+item.Title()),
			)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = WatchView
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		item, ok := m.playlistList.SelectedItem().(playlistItem)
		if !ok {
			return m, nil
		}
		m.view = WatchView
		p, err := m.ctrl.SelectPlaylist(item.playlist.ID())
		if err != nil {
			return m, m.setFlash(err.Error())
		}
		m.playlistName = p.Name()
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

// act runs fn off the update loop and reports a failure as a flash.
func (m *Model) act(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return actionFailedMsg(err)
		}
		return nil
	}
}

func (m *Model) step(fn func() (bool, error), boundary string) tea.Cmd {
	return func() tea.Msg {
		moved, err := fn()
		if err != nil {
			return actionFailedMsg(err)
		}
		if !moved {
			return actionFailedMsg(errors.New(boundary))
		}
		return nil
	}
}

func (m *Model) search(q string) tea.Cmd {
	return func() tea.Msg {
		videos, err := m.ctrl.Search(m.ctx, q)
		return searchDoneMsg(q, videos, err)
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.ctrl.ListPlaylists()
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) resizeLists() {
	w, h := max(m.width-4, 20), max(m.height-8, 10)
	if len(m.results.Items()) > 0 {
		m.results.SetSize(w, h)
	}
	if len(m.playlistList.Items()) > 0 {
		m.playlistList.SetSize(w, h)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SearchInputView:
		return m.renderSearchInput()
	case SearchResultsView:
		return m.renderList(m.results, m.keys.enter, m.keys.enqueue, m.keys.back)
	case PlaylistView:
		return m.renderList(m.playlistList, m.keys.enter, m.keys.back)
	default:
		return m.renderWatch()
	}
}

func (m *Model) renderWatch() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("ytwatch"))
	b.WriteString("\n")
	if url := m.ctrl.URL(); url != "" {
		b.WriteString(styles.help.Render("player page: " + url))
		b.WriteString("\n")
	}
	if m.quota {
		b.WriteString(styles.banner.Render("API quota exhausted on every key; results may be stale or missing"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(styles.label.Render("Playing"))
	b.WriteString(m.nowPlaying())
	b.WriteString("\n")
	b.WriteString(styles.label.Render("Autonext"))
	b.WriteString(m.modeLine())
	b.WriteString("\n\n")

	b.WriteString(styles.label.Render("Queue"))
	b.WriteString("\n")
	b.WriteString(m.renderQueue())

	b.WriteString("\n")
	b.WriteString(styles.label.Render("Events"))
	b.WriteString("\n")
	for _, line := range m.eventLog {
		b.WriteString(styles.help.Render("  " + line))
		b.WriteString("\n")
	}

	if m.flash != "" {
		b.WriteString("\n")
		b.WriteString(styles.warn.Render(m.flash))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{
		m.keys.toggle, m.keys.next, m.keys.prev, m.keys.enqueue,
		m.keys.mode, m.keys.playlists, m.keys.search, m.keys.quit,
	}))
	return b.String()
}

func (m *Model) nowPlaying() string {
	if m.status.VideoID == "" {
		return styles.help.Render("nothing")
	}
	label := m.status.VideoID
	if v, ok := m.ctrl.Known(m.status.VideoID); ok {
		label = v.Label()
	}

	state := m.status.State.String()
	if !m.status.Ready {
		state = "waiting for player page"
	}
	return fmt.Sprintf("%s %s", styles.ok.Render(label), styles.help.Render("("+state+")"))
}

func (m *Model) modeLine() string {
	c := m.ctrl.AutonextContext()
	switch c.Mode {
	case models.ModePlaylist:
		name := m.playlistName
		if name == "" {
			name = c.PlaylistID
		}
		return fmt.Sprintf("playlist %s", name)
	case models.ModeTrending:
		return fmt.Sprintf("trending %s", c.Region)
	default:
		return string(c.Mode)
	}
}

func (m *Model) renderQueue() string {
	if len(m.queue.Items) == 0 {
		return styles.help.Render("  empty") + "\n"
	}

	var b strings.Builder
	for i, id := range m.queue.Items {
		label := id
		if v, ok := m.ctrl.Known(id); ok {
			label = v.Label()
		}
		line := fmt.Sprintf("  %d. %s", i+1, label)
		if i == m.queue.Pointer {
			line = styles.current.Render("▶ " + line[2:])
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderSearchInput() string {
	title := styles.title.Render("Search")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), helpView)
}

func (m *Model) renderList(l list.Model, bindings ...key.Binding) string {
	helpView := m.help.ShortHelpView(bindings)
	return fmt.Sprintf("%s\n\n%s", l.View(), helpView)
}
