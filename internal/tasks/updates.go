package tasks

import (
	"fmt"

	"github.com/desertthunder/ytwatch/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchItems Phase = iota
	HydrateDetails
	SavePlaylist
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case FetchItems:
		return "fetch_items"
	case HydrateDetails:
		return "hydrate_details"
	case SavePlaylist:
		return "save_playlist"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchItemsUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchItems,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist items for %s...", id),
	}
}

func foundItemsUpdate(id string, n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchItems,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d videos in %s", n, id),
		Data:    n,
	}
}

func hydrateUpdate(step, total, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   HydrateDetails,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetched details for %d videos", step, total, size),
	}
}

func hydrateFailedUpdate(step, total int, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   HydrateDetails,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ details unavailable, keeping snippet data: %v", step, total, err),
	}
}

func savedUpdate(p *models.Playlist, updated bool) ProgressUpdate {
	verb := "Created"
	if updated {
		verb = "Updated"
	}
	return ProgressUpdate{
		Phase:   SavePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%s playlist #%d %s (%d videos)", verb, p.Sequence(), p.Name(), p.Len()),
		Data:    p,
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
