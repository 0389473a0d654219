// Package sources implements the autonext content providers.
//
// Each provider answers [autonext.Provider] from a different place: [Related] and [Trending] from the platform,
// [Playlist] from a local playlist. Providers never fail; an unavailable source yields no candidates and the
// machine goes idle.
package sources

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytwatch/internal/autonext"
	"github.com/desertthunder/ytwatch/internal/models"
)

// Platform is the subset of the API client the platform providers use.
type Platform interface {
	Related(ctx context.Context, id string) ([]models.Video, error)
	Trending(ctx context.Context, region string) ([]models.Video, error)
}

// PlaylistStore loads the items of a local playlist.
type PlaylistStore interface {
	Items(ctx context.Context, playlistID string) ([]models.Video, error)
}

func orDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return log.New(io.Discard)
	}
	return l
}

// without filters id out of videos.
func without(videos []models.Video, id string) []models.Video {
	out := make([]models.Video, 0, len(videos))
	for _, v := range videos {
		if v.ID != id {
			out = append(out, v)
		}
	}
	return out
}

// Related suggests videos related to the one that just ended.
type Related struct {
	platform Platform
	logger   *log.Logger
}

func NewRelated(p Platform, logger *log.Logger) *Related {
	return &Related{platform: p, logger: orDiscard(logger)}
}

func (r *Related) NextCandidates(ctx context.Context, req autonext.Request) []models.Video {
	if req.CurrentID == "" {
		return nil
	}
	videos, err := r.platform.Related(ctx, req.CurrentID)
	if err != nil {
		r.logger.Warn("related source unavailable", "video", req.CurrentID, "error", err)
		return nil
	}
	return without(videos, req.CurrentID)
}

// Trending suggests the regional most-popular chart. The current id only serves to avoid replaying it.
type Trending struct {
	platform Platform
	logger   *log.Logger
}

func NewTrending(p Platform, logger *log.Logger) *Trending {
	return &Trending{platform: p, logger: orDiscard(logger)}
}

func (t *Trending) NextCandidates(ctx context.Context, req autonext.Request) []models.Video {
	videos, err := t.platform.Trending(ctx, req.Region)
	if err != nil {
		t.logger.Warn("trending source unavailable", "region", req.Region, "error", err)
		return nil
	}
	return without(videos, req.CurrentID)
}

// Playlist steps through a local playlist, wrapping from the last item to the first.
//
// Position is recomputed from the current id on every call, so edits to the playlist between calls are
// picked up.
type Playlist struct {
	store  PlaylistStore
	logger *log.Logger
}

func NewPlaylist(s PlaylistStore, logger *log.Logger) *Playlist {
	return &Playlist{store: s, logger: orDiscard(logger)}
}

// NextCandidates returns the single item after the current id, or nothing when the playlist is empty, has one
// item, does not contain the current id, or cannot be loaded.
func (p *Playlist) NextCandidates(ctx context.Context, req autonext.Request) []models.Video {
	if req.PlaylistID == "" {
		return nil
	}

	items, err := p.store.Items(ctx, req.PlaylistID)
	if err != nil {
		p.logger.Warn("playlist source unavailable", "playlist", req.PlaylistID, "error", err)
		return nil
	}
	if len(items) < 2 {
		return nil
	}

	i := models.IndexOf(items, req.CurrentID)
	if i < 0 {
		return nil
	}
	return []models.Video{items[(i+1)%len(items)]}
}

var (
	_ autonext.Provider = (*Related)(nil)
	_ autonext.Provider = (*Trending)(nil)
	_ autonext.Provider = (*Playlist)(nil)
)
