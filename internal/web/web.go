// Package web renders the page that hosts the player widget.
//
// The page loads the IFrame API script, creates the mount node and opens a websocket back to the embed host. It
// reports script and mount readiness, then widget ready/state/error callbacks, and executes create, load, play and
// pause commands. When the socket drops it reconnects and announces readiness again.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

// ScriptURL is the widget script the page loads.
const ScriptURL = "https://www.youtube.com/iframe_api"

//go:embed page.html
var assets embed.FS

var page = template.Must(template.ParseFS(assets, "page.html"))

// PageData fills the page template.
type PageData struct {
	Title     string
	MountID   string
	SocketURL string // path or absolute ws:// URL
	ScriptURL string
}

// Render writes the embed page.
func Render(w io.Writer, data PageData) error {
	if data.MountID == "" {
		return fmt.Errorf("mount id is required")
	}
	if data.Title == "" {
		data.Title = "ytwatch"
	}
	if data.SocketURL == "" {
		data.SocketURL = "/ws"
	}
	if data.ScriptURL == "" {
		data.ScriptURL = ScriptURL
	}
	return page.Execute(w, data)
}
