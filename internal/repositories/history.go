package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/shared"
)

// DefaultHistoryLimit applies when no limit is configured.
const DefaultHistoryLimit = 50

// SearchHistoryRepository keeps the most recent distinct search queries.
//
// Queries are compared after [shared.NormalizeQuery]; repeating one moves it to the front and keeps the latest
// spelling. Older entries beyond the limit are pruned on every write.
type SearchHistoryRepository struct {
	db    *sql.DB
	limit int
	now   func() time.Time
}

// NewSearchHistoryRepository creates a repository capped at limit entries.
func NewSearchHistoryRepository(db *sql.DB, limit int) *SearchHistoryRepository {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &SearchHistoryRepository{db: db, limit: limit, now: now}
}

// Record stores query as the most recent search.
func (r *SearchHistoryRepository) Record(query string) (*models.SearchEntry, error) {
	query = strings.TrimSpace(query)
	entry := models.RestoreSearchEntry("", query, r.now())
	if err := r.Create(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Create upserts entry by its normalized query and prunes beyond the limit. The stored ID is written back.
func (r *SearchHistoryRepository) Create(entry *models.SearchEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO search_history (id, query, normalized, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(normalized) DO UPDATE SET query = excluded.query, created_at = excluded.created_at
	`
	normalized := shared.NormalizeQuery(entry.Query())
	if _, err := tx.Exec(query, shared.GenerateID(), entry.Query(), normalized, entry.CreatedAt()); err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}

	var id string
	if err := tx.QueryRow("SELECT id FROM search_history WHERE normalized = ?", normalized).Scan(&id); err != nil {
		return fmt.Errorf("failed to read search id: %w", err)
	}

	prune := `
		DELETE FROM search_history WHERE id NOT IN (
			SELECT id FROM search_history ORDER BY created_at DESC, rowid DESC LIMIT ?
		)
	`
	if _, err := tx.Exec(prune, r.limit); err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit search: %w", err)
	}
	entry.SetID(id)
	return nil
}

// Get retrieves one entry.
func (r *SearchHistoryRepository) Get(id string) (*models.SearchEntry, error) {
	row := r.db.QueryRow("SELECT id, query, created_at FROM search_history WHERE id = ?", id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("search entry not found: %s", id)
	}
	return entry, err
}

// Update re-records an entry, moving it to the front.
func (r *SearchHistoryRepository) Update(entry *models.SearchEntry) error {
	return r.Create(models.RestoreSearchEntry(entry.ID(), entry.Query(), r.now()))
}

// Delete removes one entry.
func (r *SearchHistoryRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM search_history WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete search entry: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("search entry not found: %s", id)
	}
	return nil
}

// List returns entries newest first, filtered by criteria.Prefix and bounded by criteria.Limit.
func (r *SearchHistoryRepository) List(criteria models.Criteria) ([]*models.SearchEntry, error) {
	query := "SELECT id, query, created_at FROM search_history"
	args := []any{}

	if criteria.Prefix != "" {
		query += " WHERE normalized LIKE ? ESCAPE '\\'"
		args = append(args, escapeLike(shared.NormalizeQuery(criteria.Prefix))+"%")
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if criteria.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, criteria.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*models.SearchEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Recent returns up to n entries, newest first.
func (r *SearchHistoryRepository) Recent(n int) ([]*models.SearchEntry, error) {
	return r.List(models.Criteria{Limit: n})
}

// Clear removes every entry and reports how many were removed.
func (r *SearchHistoryRepository) Clear() (int64, error) {
	result, err := r.db.Exec("DELETE FROM search_history")
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return result.RowsAffected()
}

func scanEntry(row scanner) (*models.SearchEntry, error) {
	var (
		id        string
		query     string
		createdAt time.Time
	)
	if err := row.Scan(&id, &query, &createdAt); err != nil {
		return nil, err
	}
	return models.RestoreSearchEntry(id, query, createdAt), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ models.Repository[*models.SearchEntry] = (*SearchHistoryRepository)(nil)
