package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/desertthunder/ytwatch/internal/fetch"
	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/normalize"
	"github.com/desertthunder/ytwatch/internal/shared"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

	// MaxBatch is the largest id list or page size the API accepts.
	MaxBatch = 50

	maxPlaylistPages = 20
	detailParts      = "snippet,contentDetails,statistics"
)

// TTLs are per-endpoint cache lifetimes.
type TTLs struct {
	Details       time.Duration
	Search        time.Duration
	Related       time.Duration
	Trending      time.Duration
	PlaylistItems time.Duration
}

// TTLsFromConfig converts the [cache.ttl] section.
func TTLsFromConfig(c shared.TTLConfig) TTLs {
	return TTLs{
		Details:       c.Details.Duration,
		Search:        c.Search.Duration,
		Related:       c.Related.Duration,
		Trending:      c.Trending.Duration,
		PlaylistItems: c.PlaylistItems.Duration,
	}
}

// YouTubeOpts configures a [YouTube] client.
type YouTubeOpts struct {
	BaseURL string
	TTL     TTLs
	Sink    events.Sink
	Logger  *log.Logger
}

// YouTube is the Data API client.
type YouTube struct {
	client  *fetch.Client
	baseURL string
	ttl     TTLs
	sink    events.Sink
	logger  *log.Logger
}

// NewYouTube creates a client over an access layer.
func NewYouTube(client *fetch.Client, opts YouTubeOpts) *YouTube {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &YouTube{
		client:  client,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		ttl:     opts.TTL,
		sink:    events.OrNop(opts.Sink),
		logger:  opts.Logger,
	}
}

// Name returns the service name.
func (y *YouTube) Name() string { return "YouTube" }

// Client exposes the access layer for cache inspection.
func (y *YouTube) Client() *fetch.Client { return y.client }

// page is the part of a list response every endpoint shares.
type page struct {
	Items         []any  `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// get resolves endpoint through the access layer. The credential is added per attempt and is never part of the
// cache key.
func (y *YouTube) get(ctx context.Context, endpoint string, params url.Values, ttl time.Duration) ([]byte, error) {
	key := fetch.Key(endpoint, params)
	build := func(credential string) string {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("key", credential)
		return y.baseURL + "/" + endpoint + "?" + q.Encode()
	}

	body, ok := y.client.Resource(ctx, key, build, ttl)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrSourceUnavailable, endpoint)
	}
	return body, nil
}

func (y *YouTube) list(ctx context.Context, endpoint string, params url.Values, ttl time.Duration) (*page, error) {
	body, err := y.get(ctx, endpoint, params, ttl)
	if err != nil {
		return nil, err
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		y.logger.Warn("malformed payload", "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("%w: malformed %s payload", shared.ErrSourceUnavailable, endpoint)
	}
	return &p, nil
}

// VideoDetails fetches full records for ids, in batches of [MaxBatch]. Blank ids are skipped and ids the API
// does not know are simply absent from the result.
func (y *YouTube) VideoDetails(ctx context.Context, ids ...string) ([]models.Video, error) {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("%w: no video ids", shared.ErrMissingArgument)
	}

	var videos []models.Video
	for start := 0; start < len(clean); start += MaxBatch {
		end := min(start+MaxBatch, len(clean))
		params := url.Values{
			"part": {detailParts},
			"id":   {strings.Join(clean[start:end], ",")},
		}

		p, err := y.list(ctx, "videos", params, y.ttl.Details)
		if err != nil {
			return nil, err
		}
		videos = append(videos, normalize.Videos(p.Items, y.sink)...)
	}
	return videos, nil
}

// Video fetches one video by id.
func (y *YouTube) Video(ctx context.Context, id string) (*models.Video, error) {
	videos, err := y.VideoDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrVideoNotFound, id)
	}
	return &videos[0], nil
}

// Search returns up to max videos matching query.
func (y *YouTube) Search(ctx context.Context, query string, max int) ([]models.Video, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	params := url.Values{
		"part":       {"snippet"},
		"type":       {"video"},
		"q":          {query},
		"maxResults": {strconv.Itoa(clampResults(max))},
	}
	p, err := y.list(ctx, "search", params, y.ttl.Search)
	if err != nil {
		return nil, err
	}
	return normalize.Videos(p.Items, y.sink), nil
}

// Related returns videos related to id.
func (y *YouTube) Related(ctx context.Context, id string) ([]models.Video, error) {
	params := url.Values{
		"part":             {"snippet"},
		"type":             {"video"},
		"relatedToVideoId": {id},
		"maxResults":       {strconv.Itoa(25)},
	}
	p, err := y.list(ctx, "search", params, y.ttl.Related)
	if err != nil {
		return nil, err
	}
	return normalize.Videos(p.Items, y.sink), nil
}

// Trending returns the most-popular chart for region. An empty region lets the API pick its default.
func (y *YouTube) Trending(ctx context.Context, region string) ([]models.Video, error) {
	params := url.Values{
		"part":       {detailParts},
		"chart":      {"mostPopular"},
		"maxResults": {strconv.Itoa(25)},
	}
	if region = strings.ToUpper(strings.TrimSpace(region)); region != "" {
		params.Set("regionCode", region)
	}

	p, err := y.list(ctx, "videos", params, y.ttl.Trending)
	if err != nil {
		return nil, err
	}
	return normalize.Videos(p.Items, y.sink), nil
}

// PlaylistItems returns every video of a platform playlist, following page tokens.
//
// Playlist items carry only snippet data; use [YouTube.VideoDetails] for durations and view counts.
func (y *YouTube) PlaylistItems(ctx context.Context, playlistID string) ([]models.Video, error) {
	playlistID = strings.TrimSpace(playlistID)
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	var videos []models.Video
	token := ""
	for range maxPlaylistPages {
		params := url.Values{
			"part":       {"snippet,contentDetails"},
			"playlistId": {playlistID},
			"maxResults": {strconv.Itoa(MaxBatch)},
		}
		if token != "" {
			params.Set("pageToken", token)
		}

		p, err := y.list(ctx, "playlistItems", params, y.ttl.PlaylistItems)
		if err != nil {
			return nil, err
		}
		videos = append(videos, normalize.Videos(p.Items, y.sink)...)

		if token = p.NextPageToken; token == "" {
			return videos, nil
		}
	}

	y.logger.Warn("playlist truncated", "playlist", playlistID, "pages", maxPlaylistPages, "items", len(videos))
	return videos, nil
}

func clampResults(n int) int {
	switch {
	case n <= 0:
		return 10
	case n > MaxBatch:
		return MaxBatch
	default:
		return n
	}
}
