package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BatchSize is the number of ids hydrated per request.
const BatchSize = 50

// Platform is the API surface an import needs.
type Platform interface {
	PlaylistItems(ctx context.Context, playlistID string) ([]models.Video, error)
	VideoDetails(ctx context.Context, ids ...string) ([]models.Video, error)
}

// PlaylistStore persists imported playlists.
type PlaylistStore interface {
	Create(p *models.Playlist) error
	Update(p *models.Playlist) error
	List(criteria models.Criteria) ([]*models.Playlist, error)
}

// ImportOpts configures [Importer.Import].
type ImportOpts struct {
	Name       string  // local name; defaults to the source id on first import
	NumWorkers int     // concurrent detail batches (default: 4, max: 8)
	RateLimit  float64 // detail requests per second (default: 5)
	SkipDetail bool    // keep snippet data only
}

// ImportResult summarizes an import.
type ImportResult struct {
	Playlist *models.Playlist
	SourceID string
	Fetched  int  // items listed by the platform
	Hydrated int  // items with full details
	Missing  int  // items the platform no longer returns details for
	Failed   int  // batches whose details could not be fetched
	Updated  bool // an earlier import was refreshed
}

// Importer copies platform playlists into the local store.
type Importer struct {
	platform Platform
	store    PlaylistStore
}

func NewImporter(platform Platform, store PlaylistStore) *Importer {
	return &Importer{platform: platform, store: store}
}

// Import fetches sourceID and stores it locally. Importing the same source again replaces the items of the
// earlier local copy, keeping its name unless opts.Name is given.
func (im *Importer) Import(ctx context.Context, progress chan<- ProgressUpdate, sourceID string, opts ImportOpts) (*ImportResult, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	sendProgress(progress, fetchItemsUpdate(sourceID))
	items, err := im.platform.PlaylistItems(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %s: %w", sourceID, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s has no playable items", shared.ErrPlaylistNotFound, sourceID)
	}
	sendProgress(progress, foundItemsUpdate(sourceID, len(items)))

	result := &ImportResult{SourceID: sourceID, Fetched: len(items)}
	if !opts.SkipDetail {
		items, err = im.hydrate(ctx, progress, items, opts, result)
		if err != nil {
			return nil, err
		}
	}

	playlist, err := im.save(sourceID, items, opts.Name, result)
	if err != nil {
		return nil, err
	}
	result.Playlist = playlist
	sendProgress(progress, savedUpdate(playlist, result.Updated))
	return result, nil
}

// hydrate replaces snippet records with full details. A failed batch keeps its snippet records; a batch that
// succeeds but omits an id means the video is gone and the item is dropped.
func (im *Importer) hydrate(ctx context.Context, progress chan<- ProgressUpdate, items []models.Video, opts ImportOpts, result *ImportResult) ([]models.Video, error) {
	batches := chunk(models.IDs(items), BatchSize)
	details := make([]map[string]models.Video, len(batches))
	failed := make([]bool, len(batches))
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.NumWorkers)
	for i, batch := range batches {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}

			videos, err := im.platform.VideoDetails(gctx, batch...)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed[i] = true
				sendProgress(progress, hydrateFailedUpdate(i+1, len(batches), err))
				return nil
			}

			found := make(map[string]models.Video, len(videos))
			for _, v := range videos {
				found[v.ID] = v
			}
			details[i] = found
			sendProgress(progress, hydrateUpdate(i+1, len(batches), len(videos)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("import cancelled: %w", err)
	}

	for _, f := range failed {
		if f {
			result.Failed++
		}
	}

	out := make([]models.Video, 0, len(items))
	for i, item := range items {
		b := i / BatchSize
		if failed[b] {
			out = append(out, item)
			continue
		}
		full, ok := details[b][item.ID]
		if !ok {
			result.Missing++
			continue
		}
		result.Hydrated++
		out = append(out, merge(item, full))
	}
	return out, nil
}

func (im *Importer) save(sourceID string, items []models.Video, name string, result *ImportResult) (*models.Playlist, error) {
	existing, err := im.store.List(models.Criteria{SourceID: sourceID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up earlier imports: %w", err)
	}

	if len(existing) > 0 {
		p := existing[len(existing)-1]
		p.SetItems(items)
		if name = strings.TrimSpace(name); name != "" {
			p.SetName(name)
		}
		if err := im.store.Update(p); err != nil {
			return nil, fmt.Errorf("failed to update playlist: %w", err)
		}
		result.Updated = true
		return p, nil
	}

	if name = strings.TrimSpace(name); name == "" {
		name = sourceID
	}
	p := models.NewPlaylist(name, items)
	p.SetSourceID(sourceID)
	if err := im.store.Create(p); err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	return p, nil
}

// merge prefers the detailed record and falls back to snippet fields it lacks.
func merge(snippet, full models.Video) models.Video {
	if full.Title == "" {
		full.Title = snippet.Title
	}
	if full.ChannelName == "" {
		full.ChannelName = snippet.ChannelName
	}
	if full.ThumbnailURL == nil {
		full.ThumbnailURL = snippet.ThumbnailURL
	}
	return full
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		out = append(out, ids[start:min(start+size, len(ids))])
	}
	return out
}
