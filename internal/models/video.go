package models

import (
	"fmt"
	"strings"
)

// Video is the canonical record every upstream shape is normalized into.
//
// ID is always the bare upstream identifier and never empty. Optional fields are nil when the upstream payload
// did not carry them, which is distinct from a zero value.
type Video struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	ChannelName     string  `json:"channelName"`
	ThumbnailURL    *string `json:"thumbnailUrl,omitempty"`
	DurationSeconds *int    `json:"durationSeconds,omitempty"`
	ViewCount       *int64  `json:"viewCount,omitempty"`
}

// Validate rejects records without an identifier.
func (v Video) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("video id is required")
	}
	return nil
}

// Label is "Title" or "Title - Channel" for display.
func (v Video) Label() string {
	title := v.Title
	if title == "" {
		title = v.ID
	}
	if v.ChannelName == "" {
		return title
	}
	return title + " - " + v.ChannelName
}

// Duration returns DurationSeconds or 0.
func (v Video) Duration() int {
	if v.DurationSeconds == nil {
		return 0
	}
	return *v.DurationSeconds
}

// Views returns ViewCount or 0.
func (v Video) Views() int64 {
	if v.ViewCount == nil {
		return 0
	}
	return *v.ViewCount
}

// Thumbnail returns ThumbnailURL or "".
func (v Video) Thumbnail() string {
	if v.ThumbnailURL == nil {
		return ""
	}
	return *v.ThumbnailURL
}

// IDs extracts identifiers in order.
func IDs(videos []Video) []string {
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
	}
	return ids
}

// IndexOf returns the position of the first video with id, or -1.
func IndexOf(videos []Video, id string) int {
	for i, v := range videos {
		if v.ID == id {
			return i
		}
	}
	return -1
}

// Mode selects where autonext looks for the next video.
type Mode string

const (
	ModeRelated  Mode = "related"
	ModePlaylist Mode = "playlist"
	ModeTrending Mode = "trending"
)

// Modes lists every mode in cycling order.
var Modes = []Mode{ModeRelated, ModePlaylist, ModeTrending}

// ParseMode accepts a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown autonext mode %q", s)
}

// Next returns the mode after m in [Modes], wrapping.
func (m Mode) Next() Mode {
	for i, known := range Modes {
		if known == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return ModeRelated
}
