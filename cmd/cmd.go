// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func pageFlags(limit int) []cli.Flag {
	return append([]cli.Flag{
		&cli.IntFlag{
			Name:  "pages",
			Usage: "Number of pages to fetch (0 fetches every page)",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Page size",
			Value: limit,
		},
	}, jsonFlags()...)
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for the local database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent database migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupRollback,
			},
			{
				Name:   "config",
				Usage:  "Write a config file populated with defaults",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the API session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in with email and password and store the session token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("CADENCE_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the session token and locally read notifications",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the authenticated user",
				Action: r.AuthStatus,
			},
		},
	}
}

// notificationsCommand handles inbox operations
func notificationsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "notifications",
		Aliases: []string{"inbox", "n"},
		Usage:   "Read and manage notifications",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List notifications, newest first",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "pages",
						Usage: "Number of pages to fetch (0 fetches every page)",
						Value: 1,
					},
				}, jsonFlags()...),
				Action: r.NotificationsList,
			},
			{
				Name:   "unread",
				Usage:  "Print the unread count",
				Flags:  jsonFlags(),
				Action: r.NotificationsUnread,
			},
			{
				Name:  "read",
				Usage: "Mark a notification as read",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.NotificationsRead,
			},
			{
				Name:   "read-all",
				Usage:  "Mark every notification as read",
				Action: r.NotificationsReadAll,
			},
			{
				Name:  "open",
				Usage: "Open a notification's link in the browser and mark it read",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.NotificationsOpen,
			},
			{
				Name:  "watch",
				Usage: "Poll the unread count until interrupted",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Poll interval (defaults to notifications.poll_interval)",
					},
				},
				Action: r.NotificationsWatch,
			},
		},
	}
}

// songsCommand handles catalog browsing
func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "songs",
		Usage: "Browse the song catalog",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List songs",
				Flags:  pageFlags(r.config.Library.PageSize),
				Action: r.SongsList,
			},
			{
				Name:  "export",
				Usage: "Export songs to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, md, txt, json)",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (defaults to songs.<format>)",
					},
					&cli.IntFlag{
						Name:  "pages",
						Usage: "Number of pages to fetch (0 fetches every page)",
						Value: 0,
					},
				},
				Action: r.SongsExport,
			},
		},
	}
}

// playlistsCommand handles playlist operations
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Manage playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your playlists",
				Flags:  pageFlags(r.config.Library.PageSize),
				Action: r.PlaylistsList,
			},
			{
				Name:  "create",
				Usage: "Create a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "description",
						Usage: "Playlist description",
					},
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Make playlist public",
					},
				},
				Action: r.PlaylistsCreate,
			},
		},
	}
}

// submissionsCommand handles the creator submission workflow
func submissionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "submissions",
		Aliases: []string{"sub"},
		Usage:   "Submit songs for review",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your submissions",
				Flags:  pageFlags(r.config.Library.PageSize),
				Action: r.SubmissionsList,
			},
			{
				Name:  "create",
				Usage: "Submit a song",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Song title", Required: true},
					&cli.StringFlag{Name: "artist", Usage: "Artist name", Required: true},
					&cli.StringFlag{Name: "album", Usage: "Album name"},
					&cli.StringFlag{Name: "genre", Usage: "Genre"},
					&cli.StringFlag{Name: "url", Usage: "Audio URL", Required: true},
				},
				Action: r.SubmissionsCreate,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints the response body",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive inbox and song browser",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log file used while the TUI owns the terminal",
				Value: "./tmp/cadence-tui.log",
			},
		},
		Action: r.TUI,
	}
}
