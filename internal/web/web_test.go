package web

import (
	"bytes"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Render(&buf, PageData{MountID: "player"}); err != nil {
			t.Fatalf("Render failed: %v", err)
		}

		html := buf.String()
		for _, want := range []string{`<div id="player">`, ScriptURL, `"/ws"`, "<title>ytwatch</title>"} {
			if !strings.Contains(html, want) {
				t.Errorf("expected page to contain %q", want)
			}
		}
	})

	t.Run("escapes mount id", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Render(&buf, PageData{MountID: `"><script>`}); err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if strings.Contains(buf.String(), `<div id=""><script>">`) {
			t.Error("mount id was not escaped")
		}
	})

	t.Run("requires mount id", func(t *testing.T) {
		if err := Render(&bytes.Buffer{}, PageData{}); err == nil {
			t.Error("expected error")
		}
	})
}
