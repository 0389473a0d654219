// Package tasks runs the long operations behind the playlist commands, with progress reporting.
//
// # Core Operations
//
//  1. [Importer.Import] : copy a platform playlist into the local store
//     - Pages through the playlist items
//     - Hydrates durations and view counts in batches of 50 ids, several batches at a time, paced by a rate limiter
//     - Drops videos the API no longer returns (deleted or private)
//     - Creates the local playlist, or refreshes the one previously imported from the same source
//
//  2. [Exporter.Export] : write local playlists to disk
//     - A worker pool renders each playlist with the formatter package
//     - A manifest summarizes the run, including failures
//
// # Progress Reporting
//
// Operations report [ProgressUpdate] values over a caller-supplied channel. Sends never block: when the channel
// is full or nil the update is dropped.
package tasks
