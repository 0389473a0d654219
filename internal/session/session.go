// Package session is the application root. It builds every layer from the configuration and hands the result to
// the CLI and the watch TUI by reference.
//
// The session owns the queue and the player, and routes the player's "what next" question through the queue
// first: while the finished video is the current queue item and the queue has more, the queue advances. Only
// then does the autonext machine pick a successor.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytwatch/internal/autonext"
	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/normalize"
	"github.com/desertthunder/ytwatch/internal/player"
	"github.com/desertthunder/ytwatch/internal/queue"
	"github.com/desertthunder/ytwatch/internal/repositories"
	"github.com/desertthunder/ytwatch/internal/server"
	"github.com/desertthunder/ytwatch/internal/services"
	"github.com/desertthunder/ytwatch/internal/shared"
	"github.com/desertthunder/ytwatch/internal/sources"
)

// DefaultSearchResults is how many results a session search asks for.
const DefaultSearchResults = 25

// Options overrides parts of the wiring. The zero value builds everything from the config.
type Options struct {
	Logger      *log.Logger
	Sink        events.Sink // receives every event in addition to the log and the feed
	EventBuffer int         // feed capacity (default 256)
	DB          *sql.DB     // used instead of opening the configured database; not closed by the session
}

// Session wires the access layer, the local store, autonext, the queue, the player and the embed host.
type Session struct {
	cfg    *shared.Config
	log    *log.Logger
	sink   events.Sink
	feed   *events.Channel
	stack  *services.Stack
	db     *sql.DB
	ownsDB bool

	playlists *repositories.PlaylistRepository
	history   *repositories.SearchHistoryRepository
	machine   *autonext.Machine
	queue     *queue.Queue
	player    *player.Adapter
	bridge    *server.Bridge
	server    *server.Server

	mu           sync.Mutex
	known        map[string]models.Video
	lastPlaylist string
	closed       bool
}

// New builds a session from cfg.
func New(ctx context.Context, cfg *shared.Config, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 256
	}

	feed := events.NewChannel(opts.EventBuffer)
	sink := events.Fanout{events.NewLogSink(shared.WithLogger(logger, "component", "events")), feed}
	if opts.Sink != nil {
		sink = append(sink, opts.Sink)
	}

	stack, err := services.New(ctx, cfg, sink, logger)
	if err != nil {
		return nil, err
	}

	db, ownsDB := opts.DB, false
	if db == nil {
		db, err = shared.OpenDatabase(cfg.Database)
		if err != nil {
			stack.Close()
			return nil, err
		}
		ownsDB = true
	}

	s := &Session{
		cfg:       cfg,
		log:       logger,
		sink:      sink,
		feed:      feed,
		stack:     stack,
		db:        db,
		ownsDB:    ownsDB,
		playlists: repositories.NewPlaylistRepository(db, sink),
		history:   repositories.NewSearchHistoryRepository(db, cfg.History.Limit),
		queue:     queue.New(sink),
		known:     make(map[string]models.Video),
	}

	s.machine = autonext.New(autonext.Providers{
		Related:  sources.NewRelated(stack.YouTube, shared.WithLogger(logger, "source", "related")),
		Playlist: sources.NewPlaylist(s.playlists, shared.WithLogger(logger, "source", "playlist")),
		Trending: sources.NewTrending(stack.YouTube, shared.WithLogger(logger, "source", "trending")),
	}, cfg.Player.Region, sink)

	switch mode, _ := models.ParseMode(cfg.Player.Autonext); mode {
	case models.ModeTrending:
		_ = s.machine.SetMode(mode, "")
	case models.ModePlaylist:
		logger.Warn("playlist autonext needs a playlist; starting in related mode")
	}

	s.bridge = server.NewBridge(sink, shared.WithLogger(logger, "component", "bridge"))
	s.player = player.New(player.Options{
		MountID:  cfg.Player.MountID,
		Config:   player.WidgetConfig{Autoplay: cfg.Player.Autoplay, Controls: cfg.Player.Controls},
		Factory:  s.bridge,
		Autonext: continuity{s},
		Sink:     sink,
		Logger:   shared.WithLogger(logger, "component", "player"),
	})
	s.bridge.Attach(s.player)
	s.server = server.New(cfg.Server, s.bridge, cfg.Player.MountID, shared.WithLogger(logger, "component", "server"))

	return s, nil
}

// Start serves the embed page and, when configured, opens it in the browser.
func (s *Session) Start(ctx context.Context) error {
	if err := s.server.Start(ctx); err != nil {
		return err
	}
	if s.cfg.Server.OpenBrowser {
		if err := shared.OpenBrowser(ctx, s.server.URL()); err != nil {
			s.log.Warn("could not open browser; open the page manually", "url", s.server.URL(), "error", err)
		}
	}
	return nil
}

// URL is the embed page address once started.
func (s *Session) URL() string { return s.server.URL() }

func (s *Session) Config() *shared.Config                         { return s.cfg }
func (s *Session) YouTube() *services.YouTube                     { return s.stack.YouTube }
func (s *Session) Playlists() *repositories.PlaylistRepository    { return s.playlists }
func (s *Session) History() *repositories.SearchHistoryRepository { return s.history }
func (s *Session) Player() *player.Adapter                        { return s.player }

// Events is the feed of everything the layers report. Events are dropped when the reader falls behind.
func (s *Session) Events() <-chan events.Event { return s.feed.C() }

// LoadVideo plays raw now. raw is an id or any record shape the normalizer understands.
func (s *Session) LoadVideo(raw any) error {
	if v, ok := raw.(models.Video); ok {
		s.remember(v)
	}
	return s.player.Load(raw)
}

func (s *Session) Play() error   { return s.player.Play() }
func (s *Session) Pause() error  { return s.player.Pause() }
func (s *Session) Toggle() error { return s.player.Toggle() }

// SetAutonextMode switches where autonext looks. playlistID is required for playlist mode only.
func (s *Session) SetAutonextMode(mode models.Mode, playlistID string) error {
	if err := s.machine.SetMode(mode, playlistID); err != nil {
		return err
	}
	if mode == models.ModePlaylist {
		s.mu.Lock()
		s.lastPlaylist = playlistID
		s.mu.Unlock()
	}
	return nil
}

// SetRegion changes the region trending autonext uses.
func (s *Session) SetRegion(region string) { s.machine.SetRegion(region) }

// CycleMode moves to the next mode. Playlist mode is skipped until a playlist has been selected.
func (s *Session) CycleMode() (models.Mode, error) {
	s.mu.Lock()
	playlistID := s.lastPlaylist
	s.mu.Unlock()

	next := s.machine.Context().Mode.Next()
	if next == models.ModePlaylist && playlistID == "" {
		next = next.Next()
	}
	if next != models.ModePlaylist {
		playlistID = ""
	}
	if err := s.SetAutonextMode(next, playlistID); err != nil {
		return "", err
	}
	return next, nil
}

// SelectPlaylist resolves ref (id, sequence or name) and makes it the autonext source.
func (s *Session) SelectPlaylist(ref string) (*models.Playlist, error) {
	p, err := s.playlists.Resolve(ref)
	if err != nil {
		return nil, err
	}
	for _, v := range p.Items() {
		s.remember(v)
	}
	if err := s.SetAutonextMode(models.ModePlaylist, p.ID()); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPlaylists returns every local playlist.
func (s *Session) ListPlaylists() ([]*models.Playlist, error) {
	return s.playlists.List(models.Criteria{})
}

// AutonextContext is a snapshot of the autonext mode, playlist and region.
func (s *Session) AutonextContext() autonext.Context { return s.machine.Context() }

// Search records q in the history and returns matching videos.
func (s *Session) Search(ctx context.Context, q string) ([]models.Video, error) {
	return s.SearchN(ctx, q, DefaultSearchResults)
}

// SearchN is [Session.Search] asking for up to max results.
func (s *Session) SearchN(ctx context.Context, q string, max int) ([]models.Video, error) {
	if _, err := s.history.Record(q); err != nil {
		if errors.Is(err, shared.ErrInvalidInput) {
			return nil, err
		}
		s.log.Warn("recording search failed", "query", q, "error", err)
	}

	videos, err := s.stack.YouTube.Search(ctx, q, max)
	if err != nil {
		return nil, err
	}
	for _, v := range videos {
		s.remember(v)
	}
	return videos, nil
}

// Describe returns what is known about id, fetching details when nothing is. It never fails; an unknown video
// is returned with only its id.
func (s *Session) Describe(ctx context.Context, id string) models.Video {
	if v, ok := s.Known(id); ok {
		return v
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	v, err := s.stack.YouTube.Video(ctx, id)
	if err != nil {
		s.log.Debug("describe failed", "video", id, "error", err)
		return models.Video{ID: id}
	}
	s.remember(*v)
	return *v
}

// Known returns the record seen for id, if any.
func (s *Session) Known(id string) (models.Video, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.known[id]
	return v, ok
}

func (s *Session) remember(v models.Video) {
	if v.ID == "" || v.Title == "" {
		return
	}
	s.mu.Lock()
	s.known[v.ID] = v
	s.mu.Unlock()
}

// Enqueue appends raw to the queue.
func (s *Session) Enqueue(raw any) error {
	id, ok := normalize.ID(raw)
	if !ok {
		return fmt.Errorf("%w: no video id in %v", shared.ErrInvalidInput, raw)
	}
	if v, ok := raw.(models.Video); ok {
		s.remember(v)
	}
	s.queue.Add(id)
	return nil
}

// EnqueueCurrent appends the playing video to the queue.
func (s *Session) EnqueueCurrent() error {
	id := s.player.Current()
	if id == "" {
		return fmt.Errorf("%w: nothing is playing", shared.ErrInvalidArgument)
	}
	s.queue.Add(id)
	return nil
}

func (s *Session) Dequeue(id string)             { s.queue.Remove(id) }
func (s *Session) MoveQueued(from, to int)       { s.queue.Move(from, to) }
func (s *Session) ClearQueue()                   { s.queue.Clear() }
func (s *Session) QueueSnapshot() queue.Snapshot { return s.queue.Snapshot() }

// PlayQueue loads the current queue item.
func (s *Session) PlayQueue() error {
	id, ok := s.queue.Current()
	if !ok {
		return fmt.Errorf("%w: queue is empty", shared.ErrInvalidArgument)
	}
	return s.player.Load(id)
}

// Next loads the queue item after the current one. It reports false at the end of the queue.
func (s *Session) Next() (bool, error) {
	id, ok := s.queue.Next()
	if !ok {
		return false, nil
	}
	return true, s.player.Load(id)
}

// Prev loads the queue item before the current one. It reports false at the start of the queue.
func (s *Session) Prev() (bool, error) {
	id, ok := s.queue.Prev()
	if !ok {
		return false, nil
	}
	return true, s.player.Load(id)
}

// Jump loads the queue item at index.
func (s *Session) Jump(index int) (bool, error) {
	id, ok := s.queue.Jump(index)
	if !ok {
		return false, nil
	}
	return true, s.player.Load(id)
}

// Subscribe registers fn for queue changes.
func (s *Session) Subscribe(fn queue.Listener) (unsubscribe func()) {
	return s.queue.Subscribe(fn)
}

// SubscribePlayer registers fn for player status changes.
func (s *Session) SubscribePlayer(fn func(player.Status)) (unsubscribe func()) {
	return s.player.Subscribe(fn)
}

// Close stops the player and the embed host and releases the store and the cache connection.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.player.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var errs []error
	if err := s.server.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.feed.Close()
	if err := s.stack.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.ownsDB {
		if err := s.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// continuity answers the player's "what next" question, preferring the queue over autonext. The queue pointer
// only moves once the player reports the pick as applied.
type continuity struct{ s *Session }

var _ player.Applier = continuity{}

func (c continuity) OnPlaybackEnded(ctx context.Context, currentID string) (models.Video, bool) {
	if cur, ok := c.s.queue.Current(); ok && cur == currentID {
		if id, ok := c.s.queue.Peek(); ok {
			if v, known := c.s.Known(id); known {
				return v, true
			}
			return models.Video{ID: id}, true
		}
	}

	v, ok := c.s.machine.OnPlaybackEnded(ctx, currentID)
	if ok {
		c.s.remember(v)
	}
	return v, ok
}

func (c continuity) Applied(previousID string, next models.Video) {
	c.s.queue.Follow(previousID, next.ID)
}
