package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/shared"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = videoItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist *models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name() }
func (i playlistItem) Title() string       { return fmt.Sprintf("#%d %s", i.playlist.Sequence(), i.playlist.Name()) }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d videos", i.playlist.Len())
	if i.playlist.SourceID() != "" {
		desc = fmt.Sprintf("%s • imported from %s", desc, i.playlist.SourceID())
	}
	return desc
}

// videoItem wraps [models.Video] to implement [list.Item].
type videoItem struct {
	video models.Video
}

func (i videoItem) FilterValue() string { return i.video.Title }
func (i videoItem) Title() string {
	if i.video.Title == "" {
		return i.video.ID
	}
	return i.video.Title
}
func (i videoItem) Description() string {
	parts := []string{}
	if i.video.ChannelName != "" {
		parts = append(parts, i.video.ChannelName)
	}
	if d := i.video.Duration(); d > 0 {
		parts = append(parts, shared.FormatDuration(d))
	}
	if v := i.video.ViewCount; v != nil {
		parts = append(parts, shared.FormatCount(*v)+" views")
	}
	return strings.Join(parts, " • ")
}
