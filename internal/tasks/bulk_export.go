package tasks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/ytwatch/internal/formatter"
	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/shared"
)

// PlaylistSource resolves local playlists for export.
type PlaylistSource interface {
	Resolve(ref string) (*models.Playlist, error)
	List(criteria models.Criteria) ([]*models.Playlist, error)
}

// ExportOpts contains configuration for playlist exports.
type ExportOpts struct {
	Format     string       // Export format: json, csv, markdown, txt
	OutputDir  string       // Base output directory (default: ytwatch_export_{epoch})
	NumWorkers int          // Concurrent workers (default: 4)
	Cover      bool         // Markdown: download the first thumbnail as cover.jpg
	Client     *http.Client // Cover downloads
	Warn       io.Writer
}

// PlaylistExportResult is the outcome for one playlist.
type PlaylistExportResult struct {
	Ref          string   `json:"ref"`
	PlaylistID   string   `json:"playlistId,omitempty"`
	PlaylistName string   `json:"playlistName"`
	Success      bool     `json:"success"`
	Files        []string `json:"files"`
	Error        string   `json:"error,omitempty"`
}

// BulkExportResult summarizes an export run.
type BulkExportResult struct {
	Format            string                 `json:"format"`
	TotalPlaylists    int                    `json:"totalPlaylists"`
	SuccessfulExports int                    `json:"successfulExports"`
	FailedExports     int                    `json:"failedExports"`
	OutputDirectory   string                 `json:"outputDirectory"`
	ManifestPath      string                 `json:"-"`
	CompletedAt       time.Time              `json:"completedAt"`
	Results           []PlaylistExportResult `json:"results"`
}

type exportJob struct {
	index int
	ref   string
}

// Exporter writes local playlists to disk.
type Exporter struct {
	source PlaylistSource
}

func NewExporter(source PlaylistSource) *Exporter {
	return &Exporter{source: source}
}

// Export writes every playlist named by refs (all playlists when refs is empty) using a worker pool, then writes
// export_manifest.json. Per-playlist failures are recorded, not returned.
func (e *Exporter) Export(ctx context.Context, prog chan<- ProgressUpdate, refs []string, opts ExportOpts) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = "json"
	}
	if !formatter.ValidFormat(opts.Format) {
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("ytwatch_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}

	if len(refs) == 0 {
		all, err := e.source.List(models.Criteria{})
		if err != nil {
			return nil, fmt.Errorf("failed to list playlists: %w", err)
		}
		for _, p := range all {
			refs = append(refs, p.ID())
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		TotalPlaylists:  len(refs),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, len(refs)),
	}

	jobs := make(chan exportJob, len(refs))
	results := make(chan exportJobResult, len(refs))

	var wg sync.WaitGroup
	for range min(opts.NumWorkers, max(len(refs), 1)) {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	for i, ref := range refs {
		jobs <- exportJob{index: i, ref: ref}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results[res.index] = res.PlaylistExportResult

		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(refs), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, len(refs), res.PlaylistName, fmt.Errorf("%s", res.Error)))
		}
	}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export cancelled: %w", err)
	}

	result.CompletedAt = time.Now().UTC()
	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	data, err := shared.MarshalJSON(result, true)
	if err == nil {
		err = os.WriteFile(manifestPath, data, 0644)
	}
	if err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

type exportJobResult struct {
	index int
	PlaylistExportResult
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func (e *Exporter) exportWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan exportJob, results chan<- exportJobResult, opts ExportOpts) {
	defer wg.Done()

	for job := range jobs {
		res := PlaylistExportResult{Ref: job.ref, PlaylistName: job.ref, Files: []string{}}
		if err := ctx.Err(); err != nil {
			res.Error = err.Error()
			results <- exportJobResult{job.index, res}
			continue
		}

		results <- exportJobResult{job.index, e.exportOne(job, opts)}
	}
}

func (e *Exporter) exportOne(job exportJob, opts ExportOpts) PlaylistExportResult {
	res := PlaylistExportResult{Ref: job.ref, PlaylistName: job.ref, Files: []string{}}

	p, err := e.source.Resolve(job.ref)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.PlaylistID = p.ID()
	res.PlaylistName = p.Name()

	written, err := formatter.WriteExport(p.Export(), formatter.WriteOpts{
		Format:    opts.Format,
		OutputDir: opts.OutputDir,
		Client:    opts.Client,
		Cover:     opts.Cover,
		Warn:      opts.Warn,
	})
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Files = written.Files
	res.Success = true
	return res
}
