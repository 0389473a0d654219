// Package repositories implements SQLite persistence for local playlists and search history.
//
// Key Implementations:
//   - [PlaylistRepository] : user playlists with items stored as a JSON array, soft deleted
//   - [SearchHistoryRepository] : recent distinct search queries, capped at a configured size
//
// Playlist items are re-normalized on every read, so rows written by older versions (bare id strings, records
// keyed by videoId) load as canonical video records. Items that cannot be resolved are dropped and reported.
//
// Sequence numbers give playlists a stable, human-readable ordering independent of UUIDs and timestamps. The
// [NextSequence] function atomically increments per-table counters held in dedicated sequence tables.
package repositories
