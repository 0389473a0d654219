package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/desertthunder/ytwatch/internal/session"
	"github.com/desertthunder/ytwatch/internal/shared"
	"github.com/desertthunder/ytwatch/internal/ui"
	"github.com/urfave/cli/v3"
)

var _ ui.Controller = (*session.Session)(nil)

// Watch starts the embed host, applies the autonext flags and hands the terminal to the TUI.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	var mode models.Mode
	if raw := cmd.String("mode"); raw != "" {
		if mode, err = models.ParseMode(raw); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
	}
	playlist := strings.TrimSpace(cmd.String("playlist"))
	if mode == models.ModePlaylist && playlist == "" {
		return fmt.Errorf("%w: --mode playlist needs --playlist", shared.ErrMissingArgument)
	}

	if cmd.Bool("no-browser") {
		config.Server.OpenBrowser = false
	}

	// Log lines would tear the rendered view.
	if r.session == nil {
		fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		r.SetLogger(fileLogger)
	}

	s, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	r.logger.Info("player page ready", "url", s.URL())

	if region := cmd.String("region"); region != "" {
		s.SetRegion(region)
	}

	switch {
	case playlist != "":
		if _, err := s.SelectPlaylist(playlist); err != nil {
			return err
		}
	case mode != "":
		if err := s.SetAutonextMode(mode, ""); err != nil {
			return err
		}
	}

	if id := strings.TrimSpace(cmd.Args().First()); id != "" {
		if err := s.LoadVideo(id); err != nil {
			return err
		}
	}

	run := r.runUI
	if run == nil {
		run = ui.Run
	}
	if err := run(ctx, s); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
