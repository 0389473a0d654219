package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

type cacheReport struct {
	Version    int    `json:"version"`
	Tier       string `json:"tier"`
	Stored     int    `json:"stored"`
	MaxEntries int    `json:"maxEntries"`
	Attempts   int64  `json:"attempts"`
	Keys       int    `json:"keys"`
}

// CacheStats reports the cache tier and how many responses it holds.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	client := s.YouTube().Client()
	cache := client.Cache()
	stored, err := cache.Stored(ctx)
	if err != nil {
		return err
	}

	stats := cache.Stats()
	report := cacheReport{
		Version:    stats.Version,
		Tier:       "memory",
		Stored:     stored,
		MaxEntries: s.Config().Cache.MaxEntries,
		Attempts:   client.Attempts(),
		Keys:       len(s.Config().Keys()),
	}
	if stats.Redis {
		report.Tier = "memory+redis"
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	r.writePlainHeader("Response cache")
	r.writePlain("Tier:        %s\n", report.Tier)
	r.writePlain("Version:     %d\n", report.Version)
	r.writePlain("Stored:      %d\n", report.Stored)
	r.writePlain("Max entries: %d (in memory)\n", report.MaxEntries)
	r.writePlain("API keys:    %d\n", report.Keys)
	return nil
}

// CachePurge removes every cached response of the current cache version.
func (r *Runner) CachePurge(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	n, err := s.YouTube().Client().Cache().Purge(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("cache purged", "entries", n)
	return r.writePlain("✓ Purged %d cached responses\n", n)
}
