package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/ytwatch/internal/formatter"
	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/shared"
	"github.com/urfave/cli/v3"
)

// Video prints the details of one video.
func (r *Runner) Video(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.Args().First())
	if id == "" {
		return fmt.Errorf("%w: video id", shared.ErrMissingArgument)
	}

	s, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	r.logger.Debug("fetching video", "id", id)
	video, err := s.YouTube().Video(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(video, cmd.Bool("pretty"))
	}

	r.writePlainHeader(video.Title)
	r.writePlain("Channel:  %s\n", video.ChannelName)
	r.writePlain("Duration: %s\n", shared.FormatDuration(video.Duration()))
	if video.ViewCount != nil {
		r.writePlain("Views:    %s\n", shared.FormatCount(video.Views()))
	}
	r.writePlain("URL:      %s\n", formatter.WatchURL(video.ID))
	return nil
}

// Search runs a search, records the query in history and prints the results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	s, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	r.logger.Debug("searching", "query", query, "max", cmd.Int("max"))
	videos, err := s.SearchN(ctx, query, cmd.Int("max"))
	if err != nil {
		return err
	}
	return r.writeVideos(videos, cmd.String("format"))
}

// Related prints the videos related to one video.
func (r *Runner) Related(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.Args().First())
	if id == "" {
		return fmt.Errorf("%w: video id", shared.ErrMissingArgument)
	}

	s, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	videos, err := s.YouTube().Related(ctx, id)
	if err != nil {
		return err
	}
	return r.writeVideos(videos, cmd.String("format"))
}

// Trending prints the trending chart for --region, or the configured region.
func (r *Runner) Trending(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	region := cmd.String("region")
	if region == "" {
		region = s.Config().Player.Region
	}

	videos, err := s.YouTube().Trending(ctx, region)
	if err != nil {
		return err
	}
	return r.writeVideos(videos, cmd.String("format"))
}

func (r *Runner) writeVideos(videos []models.Video, format string) error {
	if format == "" {
		format = "txt"
	}
	out, err := formatter.FormatVideos(videos, format)
	if err != nil {
		return err
	}
	return r.writeBytes(out)
}
