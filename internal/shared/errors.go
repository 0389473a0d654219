package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// API and source errors
	ErrAPIRequest        = fmt.Errorf("API request failed")
	ErrSourceUnavailable = fmt.Errorf("source unavailable")
	ErrQuotaExhausted    = fmt.Errorf("all credentials exhausted")
	ErrVideoNotFound     = fmt.Errorf("video not found")
	ErrPlaylistNotFound  = fmt.Errorf("playlist not found")

	// Player errors
	ErrPlayerClosed = fmt.Errorf("player closed")
	ErrWidgetExists = fmt.Errorf("widget already constructed")
	ErrPageDetached = fmt.Errorf("player page not connected")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
