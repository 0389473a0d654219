// Package models defines domain entities and persistence interfaces for the ytwatch client.
//
// The package contains two categories of types:
//
// 1. Records: plain structs shared by every layer
//   - [Video] : The canonical video record produced by normalization
//   - [PlaylistExport] : Portable playlist form used by exporters
//
// 2. Persistent Entities: Database-backed models with accessors and validation
//   - [Playlist] : Locally stored, user-ordered video lists with soft delete
//   - [SearchEntry] : Remembered search queries
//
// Persistent entities implement the [Model] interface. The [Repository] interface defines standard CRUD operations for database access.
package models
