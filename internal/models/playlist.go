package models

import (
	"fmt"
	"strings"
	"time"
)

// PlaylistExport is the portable form of a local playlist, used by exporters and JSON output.
type PlaylistExport struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SourceID  string    `json:"sourceId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Items     []Video   `json:"items"`
}

// Playlist is a locally stored, user-ordered list of videos.
//
// SourceID is set when the playlist was imported from a platform playlist.
type Playlist struct {
	id        string
	sequence  int
	name      string
	sourceID  string
	items     []Video
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPlaylist creates a playlist with timestamps set to now.
func NewPlaylist(name string, items []Video) *Playlist {
	now := time.Now().UTC()
	return &Playlist{
		name:      name,
		items:     items,
		createdAt: now,
		updatedAt: now,
	}
}

// RestorePlaylist rebuilds a playlist from stored columns.
func RestorePlaylist(id string, sequence int, name, sourceID string, items []Video, createdAt, updatedAt time.Time, deletedAt *time.Time) *Playlist {
	return &Playlist{
		id:        id,
		sequence:  sequence,
		name:      name,
		sourceID:  sourceID,
		items:     items,
		createdAt: createdAt,
		updatedAt: updatedAt,
		deletedAt: deletedAt,
	}
}

func (p *Playlist) ID() string            { return p.id }
func (p *Playlist) Sequence() int         { return p.sequence }
func (p *Playlist) Name() string          { return p.name }
func (p *Playlist) SourceID() string      { return p.sourceID }
func (p *Playlist) Items() []Video        { return p.items }
func (p *Playlist) Len() int              { return len(p.items) }
func (p *Playlist) CreatedAt() time.Time  { return p.createdAt }
func (p *Playlist) UpdatedAt() time.Time  { return p.updatedAt }
func (p *Playlist) DeletedAt() *time.Time { return p.deletedAt }

func (p *Playlist) SetID(id string)           { p.id = id }
func (p *Playlist) SetSequence(seq int)       { p.sequence = seq }
func (p *Playlist) SetName(name string)       { p.name = name }
func (p *Playlist) SetSourceID(id string)     { p.sourceID = id }
func (p *Playlist) SetUpdatedAt(t time.Time)  { p.updatedAt = t }
func (p *Playlist) SetDeletedAt(t *time.Time) { p.deletedAt = t }
func (p *Playlist) SetItems(items []Video)    { p.items = items }

// Add appends a video. Duplicates are allowed; a playlist may repeat a video.
func (p *Playlist) Add(v Video) {
	p.items = append(p.items, v)
}

// Remove drops the first occurrence of id and reports whether anything was removed.
func (p *Playlist) Remove(id string) bool {
	i := IndexOf(p.items, id)
	if i < 0 {
		return false
	}
	p.items = append(p.items[:i:i], p.items[i+1:]...)
	return true
}

// Move relocates the item at from to position to.
func (p *Playlist) Move(from, to int) error {
	n := len(p.items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move %d -> %d out of range for %d items", from, to, n)
	}
	v := p.items[from]
	items := append(p.items[:from:from], p.items[from+1:]...)
	items = append(items[:to], append([]Video{v}, items[to:]...)...)
	p.items = items
	return nil
}

// Validate checks the playlist has a name and every item an id.
func (p *Playlist) Validate() error {
	if strings.TrimSpace(p.name) == "" {
		return fmt.Errorf("playlist name is required")
	}
	for i, v := range p.items {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// Export converts to the portable form.
func (p *Playlist) Export() *PlaylistExport {
	items := make([]Video, len(p.items))
	copy(items, p.items)
	return &PlaylistExport{
		ID:        p.id,
		Name:      p.name,
		SourceID:  p.sourceID,
		CreatedAt: p.createdAt,
		UpdatedAt: p.updatedAt,
		Items:     items,
	}
}

// SearchEntry is one remembered search query.
type SearchEntry struct {
	id        string
	query     string
	createdAt time.Time
}

// NewSearchEntry creates an entry stamped now.
func NewSearchEntry(query string) *SearchEntry {
	return &SearchEntry{query: query, createdAt: time.Now().UTC()}
}

// RestoreSearchEntry rebuilds an entry from stored columns.
func RestoreSearchEntry(id, query string, createdAt time.Time) *SearchEntry {
	return &SearchEntry{id: id, query: query, createdAt: createdAt}
}

func (s *SearchEntry) ID() string           { return s.id }
func (s *SearchEntry) Query() string        { return s.query }
func (s *SearchEntry) CreatedAt() time.Time { return s.createdAt }
func (s *SearchEntry) UpdatedAt() time.Time { return s.createdAt }
func (s *SearchEntry) SetID(id string)      { s.id = id }

func (s *SearchEntry) Validate() error {
	if strings.TrimSpace(s.query) == "" {
		return fmt.Errorf("search query is required")
	}
	return nil
}
