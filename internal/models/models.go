// package models defines the data model for the watch client
package models

import (
	"time"
)

// Model defines the base interface for all persistent models.
// Implementations include [Playlist] and [SearchEntry].
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Criteria narrows a List call. The zero value matches everything; each repository ignores the fields that do
// not apply to its model.
type Criteria struct {
	Name     string // playlists: exact name, case-insensitive
	SourceID string // playlists: id of the platform playlist it was imported from
	Prefix   string // search history: normalized query prefix
	Limit    int    // at most this many rows; 0 is unbounded
}

// Repository is the local store contract shared by playlists and search history.
type Repository[T Model] interface {
	Create(model T) error                // Create inserts a new model into the database
	Get(id string) (T, error)            // Get retrieves a model by its ID
	Update(model T) error                // Update modifies an existing model in the database
	Delete(id string) error              // Delete removes a model from the database by its ID
	List(criteria Criteria) ([]T, error) // List retrieves the models matching criteria
}
