package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/player"
	"github.com/desertthunder/ytwatch/internal/queue"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgQueueChanged MsgKind = iota
	MsgPlayerChanged
	MsgEvent
	MsgFeedClosed
	MsgSearchDone
	MsgPlaylistsFetched
	MsgActionFailed
	MsgFlashExpired
)

// queueChangedMsg is the constructor for [MsgQueueChanged]
func queueChangedMsg(snap queue.Snapshot) Msg {
	return Msg{kind: MsgQueueChanged, data: snap}
}

// playerChangedMsg is the constructor for [MsgPlayerChanged]
func playerChangedMsg(status player.Status) Msg {
	return Msg{kind: MsgPlayerChanged, data: status}
}

// eventMsg is the constructor for [MsgEvent]
func eventMsg(e events.Event) Msg {
	return Msg{kind: MsgEvent, data: e}
}

// searchDoneMsg is the constructor for [MsgSearchDone]
func searchDoneMsg(query string, videos []models.Video, err error) Msg {
	return Msg{
		kind: MsgSearchDone,
		data: struct {
			query  string
			videos []models.Video
			err    error
		}{query, videos, err},
	}
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []*models.Playlist, err error) Msg {
	return Msg{
		kind: MsgPlaylistsFetched,
		data: struct {
			playlists []*models.Playlist
			err       error
		}{playlists, err},
	}
}

// actionFailedMsg is the constructor for [MsgActionFailed]
func actionFailedMsg(err error) Msg {
	return Msg{kind: MsgActionFailed, data: err}
}

// flashExpiredMsg is the constructor for [MsgFlashExpired]; seq identifies the flash it clears.
func flashExpiredMsg(seq int) Msg {
	return Msg{kind: MsgFlashExpired, data: seq}
}
