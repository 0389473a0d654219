package main

import (
	"context"
	"time"

	"github.com/desertthunder/ytwatch/internal/models"
	"github.com/urfave/cli/v3"
)

type historyEntry struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryList prints recent searches, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	entries, err := s.History().List(models.Criteria{
		Limit:  cmd.Int("limit"),
		Prefix: cmd.String("prefix"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]historyEntry, len(entries))
		for i, e := range entries {
			out[i] = historyEntry{ID: e.ID(), Query: e.Query(), CreatedAt: e.CreatedAt()}
		}
		return r.writeJSON(out, true)
	}

	if len(entries) == 0 {
		return r.writePlain("No searches yet.\n")
	}
	for _, e := range entries {
		r.writePlain("%s  %s\n", e.CreatedAt().Local().Format(time.DateTime), e.Query())
	}
	return nil
}

// HistoryClear forgets every search.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	n, err := s.History().Clear()
	if err != nil {
		return err
	}
	r.logger.Info("search history cleared", "entries", n)
	return r.writePlain("✓ Cleared %d searches\n", n)
}
