package formatter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/shared"
	th "github.com/desertthunder/ytwatch/internal/testing"
)

func ptr[T any](v T) *T { return &v }

func sampleVideos() []models.Video {
	return []models.Video{
		{
			ID:              "vid1",
			Title:           "Song One",
			ChannelName:     "Channel, One",
			DurationSeconds: ptr(185),
			ViewCount:       ptr(int64(1_500_000)),
		},
		{ID: "vid2", Title: "[Live] Two"},
	}
}

func sampleExport() *models.PlaylistExport {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.PlaylistExport{
		ID:        "pl-1",
		Name:      "Road Trip!",
		SourceID:  "PL123",
		CreatedAt: ts,
		UpdatedAt: ts,
		Items:     sampleVideos(),
	}
}

func TestVideoFormats(t *testing.T) {
	t.Run("CSV", func(t *testing.T) {
		data, err := VideosToCSV(sampleVideos())
		if err != nil {
			t.Fatalf("VideosToCSV failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "ID,Title,Channel,Duration,Views,URL\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `vid1,Song One,"Channel, One",185,1500000,https://www.youtube.com/watch?v=vid1`) {
			t.Errorf("CSV row not quoted as expected, got: %s", output)
		}
		if !strings.Contains(output, "vid2,[Live] Two,,,,") {
			t.Errorf("missing optionals should be empty cells, got: %s", output)
		}
	})

	t.Run("Text", func(t *testing.T) {
		output := string(VideosToText(sampleVideos()))
		if !strings.Contains(output, "1. Song One - Channel, One [3:05] vid1") {
			t.Errorf("unexpected text output: %s", output)
		}
		if !strings.Contains(output, "2. [Live] Two [--:--] vid2") {
			t.Errorf("unexpected text output: %s", output)
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		output := string(VideosToMarkdown(sampleVideos()))
		if !strings.Contains(output, "1. [Song One](https://www.youtube.com/watch?v=vid1) - Channel, One [3:05] (1.5M views)") {
			t.Errorf("unexpected markdown: %s", output)
		}
		if !strings.Contains(output, `[\[Live\] Two]`) {
			t.Errorf("brackets should be escaped: %s", output)
		}
	})

	t.Run("FormatVideos", func(t *testing.T) {
		data, err := FormatVideos(nil, "json")
		if err != nil || strings.TrimSpace(string(data)) != "[]" {
			t.Errorf("expected empty JSON array, got %q, %v", data, err)
		}

		for _, f := range Formats {
			if _, err := FormatVideos(sampleVideos(), f); err != nil {
				t.Errorf("%s: %v", f, err)
			}
		}

		if _, err := FormatVideos(nil, "xml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("ValidFormat", func(t *testing.T) {
		if !ValidFormat("markdown") || ValidFormat("md") {
			t.Error("unexpected format validation")
		}
	})
}

func TestPlaylistExports(t *testing.T) {
	t.Run("ExportToMarkdown", func(t *testing.T) {
		output := string(ExportToMarkdown(sampleExport(), "cover.jpg"))

		for _, want := range []string{
			"# Road Trip!",
			"![Cover](cover.jpg)",
			"list=PL123",
			"**Videos**: 2",
			"**Total length**: 3:05",
			"## Videos",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("markdown missing %q:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		output := string(ExportToText(sampleExport()))
		if !strings.HasPrefix(output, "Playlist: Road Trip!\nSource: PL123\nVideos: 2\n\n1. ") {
			t.Errorf("unexpected text export:\n%s", output)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(sampleExport())
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}
		var meta map[string]any
		if err := json.Unmarshal(data, &meta); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if meta["count"] != float64(2) || meta["name"] != "Road Trip!" {
			t.Errorf("unexpected metadata %v", meta)
		}
		if _, ok := meta["items"]; ok {
			t.Error("metadata should not carry items")
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		dir := t.TempDir()
		res, err := WriteExport(sampleExport(), WriteOpts{Format: "json", OutputDir: dir})
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		want := filepath.Join(dir, "road-trip.json")
		if len(res.Files) != 1 || res.Files[0] != want {
			t.Fatalf("unexpected files %v", res.Files)
		}

		var back models.PlaylistExport
		if err := json.Unmarshal([]byte(th.MustReadFile(t, want)), &back); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(back.Items) != 2 || back.Items[0].Duration() != 185 {
			t.Errorf("unexpected round trip %+v", back)
		}
	})

	t.Run("csv", func(t *testing.T) {
		dir := t.TempDir()
		res, err := WriteExport(sampleExport(), WriteOpts{Format: "csv", OutputDir: dir})
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if len(res.Files) != 2 {
			t.Fatalf("expected 2 files, got %v", res.Files)
		}
		th.AssertFileExists(t, filepath.Join(dir, "road-trip_videos.csv"))
		th.AssertFileExists(t, filepath.Join(dir, "road-trip_metadata.json"))
	})

	t.Run("txt", func(t *testing.T) {
		dir := t.TempDir()
		if _, err := WriteExport(sampleExport(), WriteOpts{Format: "txt", OutputDir: dir}); err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		th.AssertFileExists(t, filepath.Join(dir, "road-trip_videos.txt"))
	})

	t.Run("markdown with cover", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpeg-bytes"))
		}))
		defer server.Close()

		export := sampleExport()
		export.Items[0].ThumbnailURL = ptr(server.URL + "/hq.jpg")

		dir := t.TempDir()
		res, err := WriteExport(export, WriteOpts{Format: "markdown", OutputDir: dir, Cover: true, Client: server.Client()})
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if len(res.Files) != 2 {
			t.Fatalf("expected cover and README, got %v", res.Files)
		}
		if got := th.MustReadFile(t, filepath.Join(dir, "road-trip", "cover.jpg")); got != "jpeg-bytes" {
			t.Errorf("unexpected cover %q", got)
		}
		if readme := th.MustReadFile(t, filepath.Join(dir, "road-trip", "README.md")); !strings.Contains(readme, "![Cover](cover.jpg)") {
			t.Error("README should reference the cover")
		}
	})

	t.Run("markdown cover failure is a warning", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		export := sampleExport()
		export.Items[0].ThumbnailURL = ptr(server.URL + "/missing.jpg")

		var warn strings.Builder
		res, err := WriteExport(export, WriteOpts{Format: "markdown", OutputDir: t.TempDir(), Cover: true, Warn: &warn})
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if len(res.Files) != 1 {
			t.Errorf("expected only README, got %v", res.Files)
		}
		if !strings.Contains(warn.String(), "status 404") {
			t.Errorf("expected a warning, got %q", warn.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := WriteExport(sampleExport(), WriteOpts{Format: "xml", OutputDir: t.TempDir()}); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("unwritable directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, nil, 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := WriteExport(sampleExport(), WriteOpts{Format: "json", OutputDir: filepath.Join(file, "sub")}); err == nil {
			t.Error("expected error for a path under a file")
		}
	})
}

func TestDownloadImage(t *testing.T) {
	if _, err := DownloadImage(nil, ""); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestSlug(t *testing.T) {
	tc := map[[2]string]string{
		{"Road Trip!", "id"}:      "road-trip",
		{"  Lo-Fi // Beats ", "x"}: "lo-fi-beats",
		{"!!!", "pl-1"}:           "pl-1",
		{"", ""}:                  "playlist",
	}
	for in, want := range tc {
		if got := Slug(in[0], in[1]); got != want {
			t.Errorf("Slug(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}
