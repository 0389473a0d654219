package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/shared"
	tu "github.com/desertthunder/ytwatch/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func videos(ids ...string) []models.Video {
	out := make([]models.Video, len(ids))
	for i, id := range ids {
		out[i] = models.Video{ID: id, Title: "Video " + id}
	}
	return out
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "playlists")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}

func TestPlaylistRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t), nil)
		p := models.NewPlaylist("Focus", videos("a", "b"))

		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		if p.ID() == "" {
			t.Error("playlist ID should be set after creation")
		}
		if p.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", p.Sequence())
		}
	})

	t.Run("Create rejects invalid playlists", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t), nil)

		if err := repo.Create(models.NewPlaylist("  ", nil)); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if err := repo.Create(models.NewPlaylist("x", []models.Video{{ID: ""}})); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t), nil)
		p := models.NewPlaylist("Focus", videos("a", "b", "a"))
		p.SetSourceID("PL123")
		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		got, err := repo.Get(p.ID())
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if got.Name() != "Focus" || got.SourceID() != "PL123" {
			t.Errorf("unexpected playlist %q %q", got.Name(), got.SourceID())
		}
		if ids := models.IDs(got.Items()); fmt.Sprint(ids) != "[a b a]" {
			t.Errorf("unexpected items %v", ids)
		}
		if got.Items()[0].Title != "Video a" {
			t.Errorf("expected titles to round trip, got %q", got.Items()[0].Title)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t), nil)
		if _, err := repo.Get("nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("legacy item shapes load as records", func(t *testing.T) {
		db := setupTestDB(t)
		rec := tu.NewRecorder()
		repo := NewPlaylistRepository(db, rec)

		ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		legacy := `["bare", {"videoId": "vid"}, {"id": {"videoId": "nested"}}, {}, {"snippet": {"resourceId": {"videoId": "item"}}}]`
		_, err := db.Exec(`INSERT INTO playlists (id, sequence, name, items, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			"legacy", 99, "Old", legacy, ts, ts)
		if err != nil {
			t.Fatalf("failed to seed: %v", err)
		}

		items, err := repo.Items(context.Background(), "legacy")
		if err != nil {
			t.Fatalf("failed to load items: %v", err)
		}
		if ids := models.IDs(items); fmt.Sprint(ids) != "[bare vid nested item]" {
			t.Errorf("unexpected items %v", ids)
		}
		if rec.Count(events.RecordDropped) != 1 {
			t.Errorf("expected one dropped record, got %d", rec.Count(events.RecordDropped))
		}
	})

	t.Run("corrupt items", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db, nil)
		ts := time.Now().UTC()
		if _, err := db.Exec(`INSERT INTO playlists (id, sequence, name, items, created_at, updated_at) VALUES ('bad', 1, 'Bad', '{', ?, ?)`, ts, ts); err != nil {
			t.Fatalf("failed to seed: %v", err)
		}
		if _, err := repo.Get("bad"); err == nil {
			t.Error("expected error for corrupt items")
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t), nil)
		p := models.NewPlaylist("Focus", videos("a"))
		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		p.SetName("Deep Focus")
		p.Add(models.Video{ID: "b"})
		if err := repo.Update(p); err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}

		got, _ := repo.Get(p.ID())
		if got.Name() != "Deep Focus" || got.Len() != 2 {
			t.Errorf("update not persisted: %q with %d items", got.Name(), got.Len())
		}
	})

	t.Run("Update missing", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t), nil)
		p := models.NewPlaylist("Ghost", nil)
		p.SetID("ghost")
		if err := repo.Update(p); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Delete is soft", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db, nil)
		p := models.NewPlaylist("Gone", nil)
		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		if err := repo.Delete(p.ID()); err != nil {
			t.Fatalf("failed to delete playlist: %v", err)
		}
		if _, err := repo.Get(p.ID()); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("deleted playlist should not be found, got %v", err)
		}
		if err := repo.Delete(p.ID()); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("second delete should report not found, got %v", err)
		}

		var count int
		db.QueryRow("SELECT COUNT(*) FROM playlists WHERE id = ?", p.ID()).Scan(&count)
		if count != 1 {
			t.Error("row should remain after soft delete")
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t), nil)
		for _, name := range []string{"One", "Two", "Three"} {
			p := models.NewPlaylist(name, nil)
			if name == "Two" {
				p.SetSourceID("PL2")
			}
			if err := repo.Create(p); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
		}

		all, err := repo.List(models.Criteria{})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 3 || all[0].Name() != "One" || all[2].Name() != "Three" {
			t.Errorf("unexpected listing")
		}

		imported, _ := repo.List(models.Criteria{SourceID: "PL2"})
		if len(imported) != 1 || imported[0].Name() != "Two" {
			t.Errorf("unexpected source filter result")
		}

		named, _ := repo.List(models.Criteria{Name: "three"})
		if len(named) != 1 {
			t.Errorf("expected case-insensitive name match")
		}

		limited, _ := repo.List(models.Criteria{Limit: 2})
		if len(limited) != 2 || limited[1].Name() != "Two" {
			t.Errorf("expected the first two playlists by sequence, got %d", len(limited))
		}
	})

	t.Run("Resolve", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t), nil)
		first := models.NewPlaylist("Mix", nil)
		second := models.NewPlaylist("mix", nil)
		for _, p := range []*models.Playlist{first, second} {
			if err := repo.Create(p); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
		}

		tc := map[string]string{
			first.ID(): first.ID(),
			"#1":       first.ID(),
			"2":        second.ID(),
			"MIX":      second.ID(),
		}
		for ref, want := range tc {
			got, err := repo.Resolve(ref)
			if err != nil {
				t.Errorf("Resolve(%q): %v", ref, err)
				continue
			}
			if got.ID() != want {
				t.Errorf("Resolve(%q) = %s, want %s", ref, got.ID(), want)
			}
		}

		if _, err := repo.Resolve("#9"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if _, err := repo.Resolve(" "); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestSearchHistoryRepository(t *testing.T) {
	newRepo := func(t *testing.T, limit int) (*SearchHistoryRepository, *tu.Clock) {
		clock := tu.NewClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
		repo := NewSearchHistoryRepository(setupTestDB(t), limit)
		repo.now = func() time.Time {
			clock.Advance(time.Second)
			return clock.Now()
		}
		return repo, clock
	}
	queries := func(entries []*models.SearchEntry) string {
		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = e.Query()
		}
		return fmt.Sprint(out)
	}

	t.Run("Record orders newest first", func(t *testing.T) {
		repo, _ := newRepo(t, 10)
		for _, q := range []string{"lofi", "jazz", "synthwave"} {
			if _, err := repo.Record(q); err != nil {
				t.Fatalf("failed to record: %v", err)
			}
		}

		entries, err := repo.Recent(10)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if got := queries(entries); got != "[synthwave jazz lofi]" {
			t.Errorf("unexpected order %s", got)
		}
	})

	t.Run("repeats move to the front and keep one row", func(t *testing.T) {
		repo, _ := newRepo(t, 10)
		first, _ := repo.Record("Lofi  Beats")
		repo.Record("jazz")
		again, err := repo.Record("lofi beats")
		if err != nil {
			t.Fatalf("failed to record: %v", err)
		}

		if again.ID() != first.ID() {
			t.Errorf("expected the same entry, got %s and %s", first.ID(), again.ID())
		}
		entries, _ := repo.Recent(10)
		if got := queries(entries); got != "[lofi beats jazz]" {
			t.Errorf("unexpected history %s", got)
		}
	})

	t.Run("capped at the limit", func(t *testing.T) {
		repo, _ := newRepo(t, 3)
		for i := range 5 {
			repo.Record(fmt.Sprintf("q%d", i))
		}

		entries, _ := repo.List(models.Criteria{})
		if got := queries(entries); got != "[q4 q3 q2]" {
			t.Errorf("unexpected history %s", got)
		}
	})

	t.Run("rejects blank queries", func(t *testing.T) {
		repo, _ := newRepo(t, 3)
		if _, err := repo.Record("   "); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("prefix filter", func(t *testing.T) {
		repo, _ := newRepo(t, 10)
		for _, q := range []string{"lofi", "LOFI hip hop", "jazz", "100%_real"} {
			repo.Record(q)
		}

		entries, _ := repo.List(models.Criteria{Prefix: "Lo"})
		if got := queries(entries); got != "[LOFI hip hop lofi]" {
			t.Errorf("unexpected filtered history %s", got)
		}

		entries, _ = repo.List(models.Criteria{Prefix: "100%_"})
		if len(entries) != 1 {
			t.Errorf("expected wildcards to be literal, got %d entries", len(entries))
		}
	})

	t.Run("Get Update Delete", func(t *testing.T) {
		repo, _ := newRepo(t, 10)
		old, _ := repo.Record("old")
		repo.Record("new")

		if err := repo.Update(old); err != nil {
			t.Fatalf("failed to update: %v", err)
		}
		entries, _ := repo.Recent(1)
		if entries[0].ID() != old.ID() {
			t.Error("updated entry should be newest")
		}

		got, err := repo.Get(old.ID())
		if err != nil || got.Query() != "old" {
			t.Errorf("unexpected Get result %v, %v", got, err)
		}

		if err := repo.Delete(old.ID()); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := repo.Get(old.ID()); err == nil {
			t.Error("expected deleted entry to be gone")
		}
		if err := repo.Delete(old.ID()); err == nil {
			t.Error("expected error deleting twice")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo, _ := newRepo(t, 10)
		repo.Record("a")
		repo.Record("b")

		n, err := repo.Clear()
		if err != nil || n != 2 {
			t.Errorf("expected 2 cleared, got %d, %v", n, err)
		}
		entries, _ := repo.List(models.Criteria{})
		if len(entries) != 0 {
			t.Error("expected empty history")
		}
	})

	t.Run("default limit", func(t *testing.T) {
		if repo := NewSearchHistoryRepository(nil, 0); repo.limit != DefaultHistoryLimit {
			t.Errorf("expected default limit, got %d", repo.limit)
		}
	})
}
