// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the record store and manifests.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize the record store and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "manifest",
				Usage: "Write a namespace.toml manifest declaring a namespace's containers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "namespace",
						Aliases:  []string{"n"},
						Usage:    "Namespace name",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "container",
						Usage:   "Container to declare (repeatable)",
						Aliases: []string{"C"},
					},
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Directory to write the manifest into",
						Value: ".",
					},
				},
				Action: r.SetupManifest,
			},
		},
	}
}

// planCommand builds and prints a migration plan without touching the store.
func planCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Build the phase plan for a migration",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "source",
				Aliases:  []string{"s"},
				Usage:    "Source namespace (repeatable)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "target",
				Aliases:  []string{"t"},
				Usage:    "Target namespace",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "container",
				Aliases: []string{"C"},
				Usage:   "Limit selection to a source container (repeatable)",
			},
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
		Action: r.PlanBuild,
	}
}

// migrateCommand handles migration runs and resumption.
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Migrate custom records between namespaces",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Plan and execute a migration",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "Source namespace (repeatable)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "target",
						Aliases:  []string{"t"},
						Usage:    "Target namespace",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "container",
						Aliases: []string{"C"},
						Usage:   "Limit selection to a source container (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "apply",
						Usage: "Issue writes; omit for a dry run",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Session name",
					},
					&cli.StringFlag{
						Name:  "manifest",
						Usage: "Path to the target's namespace.toml",
					},
					&cli.StringFlag{
						Name:  "report",
						Usage: "Write a report after the run (csv, markdown, or text)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Base path for report files",
					},
				},
				Action: r.MigrateRun,
			},
			{
				Name:  "resume",
				Usage: "Resume an interrupted migration session",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "session",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "apply",
						Usage: "Issue writes; omit for a dry run",
					},
					&cli.StringFlag{
						Name:  "manifest",
						Usage: "Path to the target's namespace.toml",
					},
				},
				Action: r.MigrateResume,
			},
		},
	}
}

// sessionsCommand inspects recorded migration sessions.
func sessionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "sessions",
		Aliases: []string{"sess"},
		Usage:   "Inspect migration sessions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded sessions, newest first",
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
				Action: r.SessionsList,
			},
			{
				Name:  "show",
				Usage: "Show one session's state and ledger",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "session",
					},
				},
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
				Action: r.SessionsShow,
			},
		},
	}
}

// reconcileCommand handles orphan audits and duplicate resolution.
func reconcileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Audit and repair container assignments",
		Commands: []*cli.Command{
			{
				Name:  "orphans",
				Usage: "Audit orphan-suspect containers and propose rehomes",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "namespace",
						Aliases:  []string{"n"},
						Usage:    "Namespace to audit",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ReconcileOrphans,
			},
			{
				Name:  "duplicates",
				Usage: "Remove custom entities shadowed by a platform-owned twin",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "namespace",
						Aliases:  []string{"n"},
						Usage:    "Namespace to scan",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "container",
						Aliases:  []string{"C"},
						Usage:    "Container to scan",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "apply",
						Usage: "Delete the shadowed entities; omit to preview",
					},
				},
				Action: r.ReconcileDuplicates,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive session browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for session browsing",
		Action:  r.TUI,
	}
}
