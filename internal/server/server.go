package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytwatch/internal/shared"
	"github.com/desertthunder/ytwatch/internal/web"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the loopback embed host.
type Server struct {
	cfg     shared.ServerConfig
	bridge  *Bridge
	mountID string
	log     *log.Logger
	srv     *http.Server
	addr    string
}

// New creates a server for bridge. The mount id must match the one the player constructs its widget in.
func New(cfg shared.ServerConfig, bridge *Bridge, mountID string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{cfg: cfg, bridge: bridge, mountID: mountID, log: logger}
}

// Handler returns the full route table with logging and panic recovery.
func (s *Server) Handler() http.Handler {
	return s.Router(RequestLogger(s.log), middleware.Recoverer)
}

// Start listens on the configured address and serves until ctx is done or [Server.Shutdown] is called. A zero
// port picks a free one; [Server.URL] reports the bound address.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	s.addr = ln.Addr().String()
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("embed host stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	s.log.Info("embed host listening", "url", s.URL())
	return nil
}

// URL is the page address once started.
func (s *Server) URL() string {
	if s.addr == "" {
		return ""
	}
	return "http://" + s.addr + "/"
}

// Shutdown stops the listener and drops the page connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.bridge.Detach()
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := web.Render(w, web.PageData{MountID: s.mountID}); err != nil {
		s.log.Error("rendering page failed", "error", err)
		http.Error(w, "page unavailable", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"attached": s.bridge.Attached(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
