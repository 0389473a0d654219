// Package autonext decides what plays after the current video ends.
//
// A [Machine] holds the autonext context (mode, playlist, region) and exactly one active [Provider]. Switching
// mode swaps the provider reference; nothing else changes state. When playback ends the active provider is asked
// for candidates and the first one becomes the next load target. No candidates is the idle state: playback stops
// until the user picks something.
package autonext

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/shared"
)

// Request is what a provider gets asked about.
type Request struct {
	CurrentID  string
	PlaylistID string
	Region     string
}

// Provider produces ordered next-video candidates. It never fails: internal errors yield no candidates.
type Provider interface {
	NextCandidates(ctx context.Context, req Request) []models.Video
}

// ProviderFunc adapts a function to [Provider].
type ProviderFunc func(ctx context.Context, req Request) []models.Video

func (f ProviderFunc) NextCandidates(ctx context.Context, req Request) []models.Video { return f(ctx, req) }

// Providers supplies one provider per mode.
type Providers struct {
	Related  Provider
	Playlist Provider
	Trending Provider
}

func (p Providers) get(m models.Mode) Provider {
	switch m {
	case models.ModeRelated:
		return p.Related
	case models.ModePlaylist:
		return p.Playlist
	case models.ModeTrending:
		return p.Trending
	}
	return nil
}

// Context is a snapshot of the machine's settings. PlaylistID is set only in playlist mode.
type Context struct {
	Mode       models.Mode `json:"mode"`
	PlaylistID string      `json:"playlistId,omitempty"`
	Region     string      `json:"region,omitempty"`
}

// Machine is the autonext state machine. It is safe for concurrent use.
type Machine struct {
	mu        sync.RWMutex
	providers Providers
	ctx       Context
	active    Provider
	sink      events.Sink
}

// New creates a machine in related mode for region.
func New(providers Providers, region string, sink events.Sink) *Machine {
	return &Machine{
		providers: providers,
		ctx:       Context{Mode: models.ModeRelated, Region: normalizeRegion(region)},
		active:    providers.Related,
		sink:      events.OrNop(sink),
	}
}

// SetMode switches the active provider. Playlist mode requires playlistID; the other modes reject one.
func (m *Machine) SetMode(mode models.Mode, playlistID string) error {
	playlistID = strings.TrimSpace(playlistID)
	switch {
	case mode == models.ModePlaylist && playlistID == "":
		return fmt.Errorf("%w: playlist mode requires a playlist id", shared.ErrInvalidArgument)
	case mode != models.ModePlaylist && playlistID != "":
		return fmt.Errorf("%w: %s mode takes no playlist id", shared.ErrInvalidArgument, mode)
	}

	provider := m.providers.get(mode)
	if provider == nil {
		return fmt.Errorf("%w: no provider for mode %q", shared.ErrInvalidArgument, mode)
	}

	m.mu.Lock()
	m.ctx.Mode = mode
	m.ctx.PlaylistID = playlistID
	m.active = provider
	m.mu.Unlock()

	events.Emit(m.sink, events.ModeChanged, string(mode), "mode", string(mode), "playlist", playlistID)
	return nil
}

// SetRegion changes the region used by the trending source.
func (m *Machine) SetRegion(region string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.Region = normalizeRegion(region)
}

// Context returns the current settings.
func (m *Machine) Context() Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ctx
}

// OnPlaybackEnded asks the active provider what follows currentID. The provider call happens without holding
// the machine lock. A false return is the idle state.
func (m *Machine) OnPlaybackEnded(ctx context.Context, currentID string) (models.Video, bool) {
	m.mu.RLock()
	provider, c := m.active, m.ctx
	m.mu.RUnlock()

	if provider == nil {
		events.Emit(m.sink, events.AutonextIdle, "no active provider", "mode", string(c.Mode))
		return models.Video{}, false
	}

	req := Request{CurrentID: currentID, PlaylistID: c.PlaylistID, Region: c.Region}
	for _, v := range provider.NextCandidates(ctx, req) {
		if v.ID == "" || v.ID == currentID {
			continue
		}
		events.Emit(m.sink, events.AutonextAdvanced, v.Label(), "mode", string(c.Mode), "from", currentID, "to", v.ID)
		return v, true
	}

	events.Emit(m.sink, events.AutonextIdle, "no candidates", "mode", string(c.Mode), "from", currentID)
	return models.Video{}, false
}

func normalizeRegion(r string) string {
	return strings.ToUpper(strings.TrimSpace(r))
}
