// package formatter renders playlists and video lists as JSON, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/shared"
)

// Formats lists the accepted export formats.
var Formats = []string{"json", "csv", "markdown", "txt"}

// ValidFormat reports whether f is one of [Formats].
func ValidFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// WatchURL is the public page of a video.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// VideosToCSV renders videos with columns: ID, Title, Channel, Duration, Views, URL
func VideosToCSV(videos []models.Video) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Channel", "Duration", "Views", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, v := range videos {
		views := ""
		if v.ViewCount != nil {
			views = strconv.FormatInt(*v.ViewCount, 10)
		}
		duration := ""
		if v.DurationSeconds != nil {
			duration = strconv.Itoa(*v.DurationSeconds)
		}
		record := []string{v.ID, v.Title, v.ChannelName, duration, views, WatchURL(v.ID)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// VideosToText renders one numbered line per video.
func VideosToText(videos []models.Video) []byte {
	var buf bytes.Buffer
	for i, v := range videos {
		fmt.Fprintf(&buf, "%d. %s [%s] %s\n", i+1, v.Label(), durationOf(v), v.ID)
	}
	return buf.Bytes()
}

// VideosToMarkdown renders a numbered list of links.
func VideosToMarkdown(videos []models.Video) []byte {
	var buf bytes.Buffer
	for i, v := range videos {
		fmt.Fprintf(&buf, "%d. [%s](%s)", i+1, escapeMarkdown(titleOf(v)), WatchURL(v.ID))
		if v.ChannelName != "" {
			fmt.Fprintf(&buf, " - %s", escapeMarkdown(v.ChannelName))
		}
		fmt.Fprintf(&buf, " [%s]", durationOf(v))
		if v.ViewCount != nil {
			fmt.Fprintf(&buf, " (%s views)", shared.FormatCount(*v.ViewCount))
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// FormatVideos renders videos in format, for command output.
func FormatVideos(videos []models.Video, format string) ([]byte, error) {
	switch format {
	case "json":
		if videos == nil {
			videos = []models.Video{}
		}
		return shared.MarshalJSON(videos, true)
	case "csv":
		return VideosToCSV(videos)
	case "markdown":
		return VideosToMarkdown(videos), nil
	case "txt":
		return VideosToText(videos), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidFlag, format, strings.Join(Formats, ", "))
	}
}

// ExportToMarkdown converts a PlaylistExport to Markdown with an optional cover image
func ExportToMarkdown(export *models.PlaylistExport, imageFilename string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if export.SourceID != "" {
		fmt.Fprintf(&buf, "**Imported from**: https://www.youtube.com/playlist?list=%s\n", export.SourceID)
	}
	fmt.Fprintf(&buf, "**Videos**: %d\n", len(export.Items))
	fmt.Fprintf(&buf, "**Total length**: %s\n\n", shared.FormatDuration(totalDuration(export.Items)))

	buf.WriteString("## Videos\n\n")
	buf.Write(VideosToMarkdown(export.Items))

	return buf.Bytes()
}

// ExportToText converts a PlaylistExport to plain text
func ExportToText(export *models.PlaylistExport) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Name)
	if export.SourceID != "" {
		fmt.Fprintf(&buf, "Source: %s\n", export.SourceID)
	}
	fmt.Fprintf(&buf, "Videos: %d\n\n", len(export.Items))
	buf.Write(VideosToText(export.Items))

	return buf.Bytes()
}

// ToMetadataJSON is the playlist without its items.
func ToMetadataJSON(export *models.PlaylistExport) ([]byte, error) {
	meta := struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		SourceID  string    `json:"sourceId,omitempty"`
		Count     int       `json:"count"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}{export.ID, export.Name, export.SourceID, len(export.Items), export.CreatedAt, export.UpdatedAt}
	return shared.MarshalJSON(meta, true)
}

// DownloadImage downloads an image and returns the raw bytes. A nil client uses a 30s timeout.
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// WriteResult lists the files a write produced.
type WriteResult struct {
	Format string   `json:"format"`
	Files  []string `json:"files"`
}

// WriteOpts configures [WriteExport].
type WriteOpts struct {
	Format    string
	OutputDir string
	Client    *http.Client // cover download; markdown only
	Cover     bool
	Warn      io.Writer // download problems; nil discards
}

// WriteExport writes export into opts.OutputDir under a name derived from the playlist.
//
//   - json: {base}.json
//   - csv: {base}_videos.csv and {base}_metadata.json
//   - markdown: {base}/README.md and optionally {base}/cover.jpg
//   - txt: {base}_videos.txt
func WriteExport(export *models.PlaylistExport, opts WriteOpts) (*WriteResult, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Warn == nil {
		opts.Warn = io.Discard
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	base := filepath.Join(opts.OutputDir, Slug(export.Name, export.ID))
	result := &WriteResult{Format: opts.Format}

	write := func(path string, data []byte) error {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		result.Files = append(result.Files, path)
		return nil
	}

	switch opts.Format {
	case "json":
		data, err := shared.MarshalJSON(export, true)
		if err != nil {
			return nil, fmt.Errorf("JSON marshal failed: %w", err)
		}
		if err := write(base+".json", data); err != nil {
			return nil, err
		}

	case "csv":
		data, err := VideosToCSV(export.Items)
		if err != nil {
			return nil, err
		}
		meta, err := ToMetadataJSON(export)
		if err != nil {
			return nil, err
		}
		if err := write(base+"_videos.csv", data); err != nil {
			return nil, err
		}
		if err := write(base+"_metadata.json", meta); err != nil {
			return nil, err
		}

	case "markdown":
		if err := os.MkdirAll(base, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}

		cover := ""
		if opts.Cover && len(export.Items) > 0 && export.Items[0].Thumbnail() != "" {
			data, err := DownloadImage(opts.Client, export.Items[0].Thumbnail())
			if err != nil {
				fmt.Fprintf(opts.Warn, "Warning: failed to download cover image: %v\n", err)
			} else if err := write(filepath.Join(base, "cover.jpg"), data); err != nil {
				fmt.Fprintf(opts.Warn, "Warning: failed to save cover image: %v\n", err)
			} else {
				cover = "cover.jpg"
			}
		}

		if err := write(filepath.Join(base, "README.md"), ExportToMarkdown(export, cover)); err != nil {
			return nil, err
		}

	case "txt":
		if err := write(base+"_videos.txt", ExportToText(export)); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidFlag, opts.Format, strings.Join(Formats, ", "))
	}

	return result, nil
}

// Slug turns a playlist name into a file name, falling back to fallback when nothing usable remains.
func Slug(name, fallback string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		s = fallback
	}
	if s == "" {
		s = "playlist"
	}
	return s
}

func titleOf(v models.Video) string {
	if v.Title == "" {
		return v.ID
	}
	return v.Title
}

func durationOf(v models.Video) string {
	if v.DurationSeconds == nil {
		return shared.FormatDuration(-1)
	}
	return shared.FormatDuration(*v.DurationSeconds)
}

func totalDuration(videos []models.Video) int {
	total := 0
	for _, v := range videos {
		total += v.Duration()
	}
	return total
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
