// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func formatFlag(value string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, csv, markdown, txt",
		Value:   value,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Prepare configuration and storage",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create config.toml if missing, initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

func videoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "video",
		Usage:     "Show details for a video",
		ArgsUsage: "<video-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Video,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search for videos (the query is kept in search history)",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "max",
				Aliases: []string{"n"},
				Usage:   "Maximum number of results (1-50)",
				Value:   10,
			},
			formatFlag("txt"),
		},
		Action: r.Search,
	}
}

func relatedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "related",
		Usage:     "List videos related to a video",
		ArgsUsage: "<video-id>",
		Flags:     []cli.Flag{formatFlag("txt")},
		Action:    r.Related,
	}
}

func trendingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "trending",
		Usage: "List trending videos for a region",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "region",
				Aliases: []string{"r"},
				Usage:   "Two-letter region code (default: player.region)",
			},
			formatFlag("txt"),
		},
		Action: r.Trending,
	}
}

func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage local playlists",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a playlist, optionally with videos",
				ArgsUsage: "<name> [video-id...]",
				Action:    r.PlaylistCreate,
			},
			{
				Name:  "list",
				Usage: "List playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistList,
			},
			{
				Name:      "show",
				Usage:     "Show the videos in a playlist",
				ArgsUsage: "<playlist>",
				Flags:     []cli.Flag{formatFlag("txt")},
				Action:    r.PlaylistShow,
			},
			{
				Name:      "add",
				Usage:     "Append videos to a playlist",
				ArgsUsage: "<playlist> <video-id...>",
				Action:    r.PlaylistAdd,
			},
			{
				Name:      "remove",
				Usage:     "Remove the first occurrence of a video from a playlist",
				ArgsUsage: "<playlist> <video-id>",
				Action:    r.PlaylistRemove,
			},
			{
				Name:      "move",
				Usage:     "Move an item to a new position (positions start at 1)",
				ArgsUsage: "<playlist> <from> <to>",
				Action:    r.PlaylistMove,
			},
			{
				Name:      "rename",
				Usage:     "Rename a playlist",
				ArgsUsage: "<playlist> <name>",
				Action:    r.PlaylistRename,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist",
				ArgsUsage: "<playlist>",
				Action:    r.PlaylistDelete,
			},
			{
				Name:      "import",
				Usage:     "Import a YouTube playlist by id or URL",
				ArgsUsage: "<playlist-id|url>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Local playlist name (default: the source id, or the existing name on re-import)",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent detail requests",
						Value:   4,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Detail requests per second",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "skip-details",
						Usage: "Keep playlist snippets without fetching durations and view counts",
					},
				},
				Action: r.PlaylistImport,
			},
			{
				Name:      "export",
				Usage:     "Export playlists to files (all playlists when none are named)",
				ArgsUsage: "[playlist...]",
				Flags: []cli.Flag{
					formatFlag("json"),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: ytwatch_export_{timestamp})",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Number of concurrent workers",
						Value:   4,
					},
					&cli.BoolFlag{
						Name:  "cover",
						Usage: "Markdown: download the first thumbnail as cover.jpg",
					},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Search history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent searches, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of entries",
						Value:   20,
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Only searches starting with this text",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:   "clear",
				Usage:  "Forget every search",
				Action: r.HistoryClear,
			},
		},
	}
}

func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and clear the response cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show cache configuration and entry counts",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheStats,
			},
			{
				Name:   "purge",
				Usage:  "Remove every cached response",
				Action: r.CachePurge,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the YouTube Data API through the cache and key rotation",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET an endpoint, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "endpoint",
					},
				},
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "param",
						Aliases: []string{"p"},
						Usage:   "Query parameter as key=value (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Aliases:   []string{"tui"},
		Usage:     "Start the player page and the interactive terminal UI",
		ArgsUsage: "[video-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Autonext mode: related, playlist, trending (default: player.autonext)",
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Playlist to continue from (implies --mode playlist)",
			},
			&cli.StringFlag{
				Name:    "region",
				Aliases: []string{"r"},
				Usage:   "Region for trending autonext (default: player.region)",
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the page address instead of opening a browser",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where logs go while the UI owns the terminal",
				Value: "./tmp/ytwatch.log",
			},
		},
		Action: r.Watch,
	}
}
