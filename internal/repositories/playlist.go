package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/normalize"
	"github.com/desertthunder/ytwatch/internal/shared"
)

const playlistColumns = "id, sequence, name, source_id, items, created_at, updated_at, deleted_at"

// PlaylistRepository implements models.Repository[*models.Playlist] for local playlists.
type PlaylistRepository struct {
	db   *sql.DB
	sink events.Sink
}

// NewPlaylistRepository creates a new PlaylistRepository. Items dropped while decoding are reported to sink.
func NewPlaylistRepository(db *sql.DB, sink events.Sink) *PlaylistRepository {
	return &PlaylistRepository{db: db, sink: events.OrNop(sink)}
}

// Create inserts a new playlist with a generated ID and sequence.
func (r *PlaylistRepository) Create(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	items, err := encodeItems(playlist.Items())
	if err != nil {
		return err
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO playlists (id, sequence, name, source_id, items, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, id, sequence, playlist.Name(), playlist.SourceID(), items,
		playlist.CreatedAt(), playlist.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	playlist.SetID(id)
	playlist.SetSequence(sequence)
	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists.
func (r *PlaylistRepository) Get(id string) (*models.Playlist, error) {
	return r.GetContext(context.Background(), id)
}

// GetContext is [PlaylistRepository.Get] bound to ctx.
func (r *PlaylistRepository) GetContext(ctx context.Context, id string) (*models.Playlist, error) {
	query := "SELECT " + playlistColumns + " FROM playlists WHERE id = ? AND deleted_at IS NULL"
	return r.scan(r.db.QueryRowContext(ctx, query, id), id)
}

// Resolve finds a playlist by ID, "#sequence" or sequence number, or name (case-insensitive, newest wins).
func (r *PlaylistRepository) Resolve(ref string) (*models.Playlist, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: playlist reference", shared.ErrMissingArgument)
	}

	if p, err := r.Get(ref); err == nil || !errors.Is(err, shared.ErrPlaylistNotFound) {
		return p, err
	}

	if seq, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		query := "SELECT " + playlistColumns + " FROM playlists WHERE sequence = ? AND deleted_at IS NULL"
		if p, err := r.scan(r.db.QueryRow(query, seq), ref); err == nil || !errors.Is(err, shared.ErrPlaylistNotFound) {
			return p, err
		}
	}

	query := "SELECT " + playlistColumns + ` FROM playlists
		WHERE name = ? COLLATE NOCASE AND deleted_at IS NULL
		ORDER BY sequence DESC LIMIT 1`
	return r.scan(r.db.QueryRow(query, ref), ref)
}

// Items returns the items of a playlist. It satisfies the autonext playlist source.
func (r *PlaylistRepository) Items(ctx context.Context, id string) ([]models.Video, error) {
	p, err := r.GetContext(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Items(), nil
}

// Update persists the name, source and items of an existing playlist.
func (r *PlaylistRepository) Update(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	items, err := encodeItems(playlist.Items())
	if err != nil {
		return err
	}

	updatedAt := now()
	query := `
		UPDATE playlists
		SET name = ?, source_id = ?, items = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query, playlist.Name(), playlist.SourceID(), items, updatedAt, playlist.ID())
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	if err := requireRow(result, playlist.ID()); err != nil {
		return err
	}
	playlist.SetUpdatedAt(updatedAt)
	return nil
}

// Delete soft-deletes a playlist by ID.
func (r *PlaylistRepository) Delete(id string) error {
	query := `
		UPDATE playlists
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query, now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return requireRow(result, id)
}

// List retrieves playlists matching criteria.Name and criteria.SourceID, ordered by sequence.
func (r *PlaylistRepository) List(criteria models.Criteria) ([]*models.Playlist, error) {
	query := "SELECT " + playlistColumns + " FROM playlists WHERE deleted_at IS NULL"
	args := []any{}

	if criteria.Name != "" {
		query += " AND name = ? COLLATE NOCASE"
		args = append(args, criteria.Name)
	}

	if criteria.SourceID != "" {
		query += " AND source_id = ?"
		args = append(args, criteria.SourceID)
	}

	query += " ORDER BY sequence ASC"

	if criteria.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, criteria.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		playlist, err := r.scan(rows, "")
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

func (r *PlaylistRepository) scan(row scanner, ref string) (*models.Playlist, error) {
	var (
		id        string
		sequence  int
		name      string
		sourceID  string
		rawItems  string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &name, &sourceID, &rawItems, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	items, err := r.decodeItems(id, rawItems)
	if err != nil {
		return nil, err
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}
	return models.RestorePlaylist(id, sequence, name, sourceID, items, createdAt, updatedAt, deleted), nil
}

func (r *PlaylistRepository) decodeItems(id, raw string) ([]models.Video, error) {
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("playlist %s has corrupt items: %w", id, err)
	}
	return normalize.Videos(items, r.sink), nil
}

func encodeItems(items []models.Video) (string, error) {
	if items == nil {
		items = []models.Video{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode items: %w", err)
	}
	return string(b), nil
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return nil
}

var _ models.Repository[*models.Playlist] = (*PlaylistRepository)(nil)
