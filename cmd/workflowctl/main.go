package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/subosito/gotenv"
	cli "github.com/urfave/cli/v3"
)

func main() {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "workflowctl: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "workflowctl",
		Usage:                 "Operate the content workflow database",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration file",
				Value:   "configs/config.yaml",
				Sources: cli.EnvVars("WORKFLOW_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations",
				Action: runMigrate,
			},
			{
				Name:  "seed",
				Usage: "Create the states and transitions declared in a YAML definitions file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Workflow definitions file",
						Required: true,
					},
				},
				Action: runSeed,
			},
			{
				Name:  "export-history",
				Usage: "Write the audit history of an entity to an .xlsx workbook",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     "entity",
						Aliases:  []string{"e"},
						Usage:    "Entity id",
						Required: true,
					},
				},
				Action: runExportHistory,
			},
		},
	}
}
