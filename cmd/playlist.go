package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/session"
	"github.com/desertthunder/ytwatch/internal/shared"
	"github.com/desertthunder/ytwatch/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistCreate creates a playlist named by the first argument, filled with any video ids that follow.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	s, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	videos, err := r.lookup(ctx, s, args[1:])
	if err != nil {
		return err
	}

	p := models.NewPlaylist(strings.TrimSpace(args[0]), videos)
	if err := s.Playlists().Create(p); err != nil {
		return err
	}

	r.logger.Info("playlist created", "id", p.ID(), "name", p.Name(), "items", p.Len())
	return r.writePlain("✓ Created playlist #%d %q (%d videos)\n", p.Sequence(), p.Name(), p.Len())
}

// PlaylistList prints every local playlist.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	playlists, err := s.ListPlaylists()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		exports := make([]*models.PlaylistExport, len(playlists))
		for i, p := range playlists {
			exports[i] = p.Export()
		}
		return r.writeJSON(exports, true)
	}

	if len(playlists) == 0 {
		return r.writePlain("No playlists yet. Create one with 'ytwatch playlist create <name>'.\n")
	}
	for _, p := range playlists {
		line := fmt.Sprintf("#%-3d %s (%d videos)", p.Sequence(), p.Name(), p.Len())
		if p.SourceID() != "" {
			line += " from " + p.SourceID()
		}
		r.writePlain("%s\n", line)
	}
	return nil
}

// PlaylistShow prints the items of one playlist in --format.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	_, p, err := r.resolvePlaylist(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.String("format") == "json" {
		return r.writeJSON(p.Export(), true)
	}
	if cmd.String("format") == "txt" {
		r.writePlainHeader(fmt.Sprintf("#%d %s", p.Sequence(), p.Name()))
	}
	return r.writeVideos(p.Items(), cmd.String("format"))
}

// PlaylistAdd appends videos to a playlist.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Tail()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one video id", shared.ErrMissingArgument)
	}

	s, p, err := r.resolvePlaylist(ctx, cmd)
	if err != nil {
		return err
	}

	videos, err := r.lookup(ctx, s, ids)
	if err != nil {
		return err
	}
	for _, v := range videos {
		p.Add(v)
	}
	if err := s.Playlists().Update(p); err != nil {
		return err
	}
	return r.writePlain("✓ Added %d videos to %q (%d total)\n", len(videos), p.Name(), p.Len())
}

// PlaylistRemove drops the first occurrence of a video.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.Args().Get(1))
	if id == "" {
		return fmt.Errorf("%w: video id", shared.ErrMissingArgument)
	}

	s, p, err := r.resolvePlaylist(ctx, cmd)
	if err != nil {
		return err
	}
	if !p.Remove(id) {
		return fmt.Errorf("%w: %s is not in %q", shared.ErrVideoNotFound, id, p.Name())
	}
	if err := s.Playlists().Update(p); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s from %q\n", id, p.Name())
}

// PlaylistMove relocates an item. Positions on the command line start at 1.
func (r *Runner) PlaylistMove(ctx context.Context, cmd *cli.Command) error {
	from, err := position(cmd.Args().Get(1))
	if err != nil {
		return err
	}
	to, err := position(cmd.Args().Get(2))
	if err != nil {
		return err
	}

	s, p, err := r.resolvePlaylist(ctx, cmd)
	if err != nil {
		return err
	}
	if err := p.Move(from-1, to-1); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	if err := s.Playlists().Update(p); err != nil {
		return err
	}
	return r.writePlain("✓ Moved item %d to %d in %q\n", from, to, p.Name())
}

// PlaylistRename gives a playlist a new name.
func (r *Runner) PlaylistRename(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(strings.Join(cmd.Args().Tail(), " "))
	if name == "" {
		return fmt.Errorf("%w: new name", shared.ErrMissingArgument)
	}

	s, p, err := r.resolvePlaylist(ctx, cmd)
	if err != nil {
		return err
	}
	old := p.Name()
	p.SetName(name)
	if err := s.Playlists().Update(p); err != nil {
		return err
	}
	return r.writePlain("✓ Renamed %q to %q\n", old, name)
}

// PlaylistDelete removes a playlist.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	s, p, err := r.resolvePlaylist(ctx, cmd)
	if err != nil {
		return err
	}
	if err := s.Playlists().Delete(p.ID()); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted playlist %q\n", p.Name())
}

// PlaylistImport copies a platform playlist into the local store, hydrating item details in batches.
func (r *Runner) PlaylistImport(ctx context.Context, cmd *cli.Command) error {
	sourceID := playlistSourceID(cmd.Args().First())
	if sourceID == "" {
		return fmt.Errorf("%w: playlist id or URL", shared.ErrMissingArgument)
	}

	s, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	importer := tasks.NewImporter(s.YouTube(), s.Playlists())
	progress, done := r.reportProgress()
	result, err := importer.Import(ctx, progress, sourceID, tasks.ImportOpts{
		Name:       cmd.String("name"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		SkipDetail: cmd.Bool("skip-details"),
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	verb := "Imported"
	if result.Updated {
		verb = "Refreshed"
	}
	r.writePlain("✓ %s %q as #%d (%d videos)\n", verb, result.Playlist.Name(), result.Playlist.Sequence(), result.Playlist.Len())
	if result.Missing > 0 {
		r.writePlain("  %d videos are no longer available and were skipped\n", result.Missing)
	}
	if result.Failed > 0 {
		r.writePlain("  %d detail batches failed; those videos keep playlist data only\n", result.Failed)
	}
	return nil
}

// PlaylistExport writes playlists to files and a manifest.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	exporter := tasks.NewExporter(s.Playlists())
	progress, done := r.reportProgress()
	result, err := exporter.Export(ctx, progress, cmd.Args().Slice(), tasks.ExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		Cover:      cmd.Bool("cover"),
		Client:     r.httpClient,
		Warn:       r.output,
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlainHeader("Export complete")
	r.writePlain("Format:    %s\n", result.Format)
	r.writePlain("Exported:  %d/%d\n", result.SuccessfulExports, result.TotalPlaylists)
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Manifest:  %s\n", result.ManifestPath)
	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("✗ %s: %s\n", res.Ref, res.Error)
		}
	}
	if result.FailedExports > 0 {
		return fmt.Errorf("%d of %d playlists failed to export", result.FailedExports, result.TotalPlaylists)
	}
	return nil
}

func (r *Runner) resolvePlaylist(ctx context.Context, cmd *cli.Command) (*session.Session, *models.Playlist, error) {
	ref := strings.TrimSpace(cmd.Args().First())
	if ref == "" {
		return nil, nil, fmt.Errorf("%w: playlist id, number or name", shared.ErrMissingArgument)
	}

	s, err := r.open(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.Playlists().Resolve(ref)
	if err != nil {
		return nil, nil, err
	}
	return s, p, nil
}

// lookup fetches details for ids, keeping their order. Ids the platform does not know are reported and skipped.
func (r *Runner) lookup(ctx context.Context, s *session.Session, ids []string) ([]models.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	found, err := s.YouTube().VideoDetails(ctx, ids...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Video, len(found))
	for _, v := range found {
		byID[v.ID] = v
	}

	videos := make([]models.Video, 0, len(ids))
	for _, id := range ids {
		v, ok := byID[strings.TrimSpace(id)]
		if !ok {
			r.logger.Warn("skipping unknown video", "id", id)
			continue
		}
		videos = append(videos, v)
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrVideoNotFound, strings.Join(ids, ", "))
	}
	return videos, nil
}

// reportProgress logs updates until the returned channel is closed; done closes once the last one is logged.
func (r *Runner) reportProgress() (chan tasks.ProgressUpdate, <-chan struct{}) {
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			r.logger.Info(u.Message, "phase", u.Phase, "step", u.Step, "total", u.Total)
		}
	}()
	return progress, done
}

// playlistSourceID accepts a bare playlist id or any URL with a list parameter.
func playlistSourceID(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return u.Query().Get("list")
	}
	return raw
}

func position(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: position %q must be a number from 1", shared.ErrInvalidArgument, arg)
	}
	return n, nil
}
