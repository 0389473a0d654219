package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/desertthunder/ytwatch/internal/player"
	"github.com/desertthunder/ytwatch/internal/shared"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Host receives page readiness reports. The player adapter satisfies it.
type Host interface {
	ScriptLoaded()
	MountReady()
}

// pageMessage is a report from the page.
type pageMessage struct {
	Type string `json:"type"`
	Data int    `json:"data"`
}

// command is an instruction to the page.
type command struct {
	Type    string               `json:"type"`
	VideoID string               `json:"videoId,omitempty"`
	MountID string               `json:"mountId,omitempty"`
	Config  *player.WidgetConfig `json:"config,omitempty"`
}

// Bridge relays between the player adapter and the page over a websocket.
type Bridge struct {
	mu       sync.Mutex
	host     Host
	page     *pageConn
	widget   player.WidgetEvents
	mountID  string
	cfg      player.WidgetConfig
	created  bool
	sink     events.Sink
	log      *log.Logger
	upgrader websocket.Upgrader
}

var _ player.WidgetFactory = (*Bridge)(nil)

// NewBridge creates a bridge with no page attached.
func NewBridge(sink events.Sink, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Bridge{
		sink: events.OrNop(sink),
		log:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: sameOrigin,
		},
	}
}

// Attach sets the receiver of readiness reports.
func (b *Bridge) Attach(h Host) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.host = h
}

// Attached reports whether a page is connected.
func (b *Bridge) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page != nil
}

// Create asks the page to construct the widget. It may be called once.
func (b *Bridge) Create(mountID string, cfg player.WidgetConfig, ev player.WidgetEvents) (player.Widget, error) {
	b.mu.Lock()
	if b.created {
		b.mu.Unlock()
		return nil, shared.ErrWidgetExists
	}
	b.created = true
	b.widget = ev
	b.mountID = mountID
	b.cfg = cfg
	page := b.page
	if page != nil {
		page.created = true
	}
	b.mu.Unlock()

	if page != nil {
		if err := page.enqueue(b.createCommand()); err != nil {
			b.log.Warn("sending create failed", "error", err)
		}
	}
	return remoteWidget{b}, nil
}

// Detach drops the current page connection.
func (b *Bridge) Detach() {
	b.mu.Lock()
	page := b.page
	b.page = nil
	b.mu.Unlock()

	if page != nil {
		page.close()
	}
}

// ServeHTTP upgrades the request and serves the page until it disconnects. A newer connection replaces this one.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	page := &pageConn{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	old := b.page
	b.page = page
	b.mu.Unlock()

	if old != nil {
		old.close()
	}
	events.Emit(b.sink, events.PageAttached, r.RemoteAddr, "remote", r.RemoteAddr)

	go page.writePump(b.log)
	page.readPump(b)
}

func (b *Bridge) dispatch(page *pageConn, msg pageMessage) {
	b.mu.Lock()
	if b.page != page {
		b.mu.Unlock()
		return
	}
	switch msg.Type {
	case "script_ready":
		page.script = true
	case "mount_ready":
		page.mount = true
	}
	recreate := b.created && !page.created && page.script && page.mount
	if recreate {
		page.created = true
	}
	host, widget := b.host, b.widget
	b.mu.Unlock()

	switch msg.Type {
	case "script_ready":
		if host != nil {
			host.ScriptLoaded()
		}
	case "mount_ready":
		if host != nil {
			host.MountReady()
		}
	case "ready":
		if widget != nil {
			widget.OnReady()
		}
	case "state":
		s, ok := player.ParseState(msg.Data)
		if !ok {
			b.log.Debug("ignoring unknown widget state", "code", msg.Data)
			break
		}
		if widget != nil {
			widget.OnStateChange(s)
		}
	case "error":
		if widget != nil {
			widget.OnError(msg.Data)
		}
	default:
		b.log.Warn("unknown page message", "type", msg.Type)
	}

	if recreate {
		if err := page.enqueue(b.createCommand()); err != nil {
			b.log.Warn("resending create failed", "error", err)
		}
	}
}

func (b *Bridge) release(page *pageConn) {
	b.mu.Lock()
	current := b.page == page
	if current {
		b.page = nil
	}
	b.mu.Unlock()

	page.close()
	if current {
		events.Emit(b.sink, events.PageDetached, "page disconnected")
	}
}

func (b *Bridge) createCommand() []byte {
	b.mu.Lock()
	cfg := b.cfg
	cmd := command{Type: "create", MountID: b.mountID, Config: &cfg}
	b.mu.Unlock()

	data, _ := json.Marshal(cmd)
	return data
}

func (b *Bridge) send(cmd command) error {
	b.mu.Lock()
	page := b.page
	b.mu.Unlock()

	if page == nil {
		return shared.ErrPageDetached
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return page.enqueue(data)
}

// remoteWidget forwards widget calls to the page.
type remoteWidget struct{ b *Bridge }

func (w remoteWidget) LoadVideoByID(id string) error {
	return w.b.send(command{Type: "load", VideoID: id})
}

func (w remoteWidget) Play() error  { return w.b.send(command{Type: "play"}) }
func (w remoteWidget) Pause() error { return w.b.send(command{Type: "pause"}) }

// pageConn is one websocket connection. script, mount and created are guarded by the bridge lock.
type pageConn struct {
	ws      *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	script  bool
	mount   bool
	created bool
}

func (c *pageConn) enqueue(data []byte) error {
	select {
	case <-c.done:
		return shared.ErrPageDetached
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return shared.ErrPageDetached
	default:
		return fmt.Errorf("page send buffer full")
	}
}

func (c *pageConn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *pageConn) readPump(b *Bridge) {
	defer b.release(c)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg pageMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.log.Debug("page read failed", "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		b.dispatch(c, msg)
	}
}

func (c *pageConn) writePump(logger *log.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("page write failed", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// sameOrigin accepts requests without an Origin header and those from the host itself.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}
