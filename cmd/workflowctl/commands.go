package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/garyjia/content-workflow/internal/config"
	"github.com/garyjia/content-workflow/internal/container"
	"github.com/garyjia/content-workflow/internal/infrastructure/definition"
	"github.com/garyjia/content-workflow/pkg/database"
	"github.com/garyjia/content-workflow/pkg/utils"
)

// setup loads configuration and builds the logger shared by every command
func setup(cmd *cli.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}

	logger, err := utils.NewLogger(cfg.ToLoggerConfig("workflowctl"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// startContainer starts the container without seeding any definitions
func startContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*container.Container, error) {
	cc := cfg.ToContainerConfig()
	cc.Workflow.DefinitionsFile = ""
	cc.Workflow.SeedDefault = false

	c, err := container.NewContainer(cc, logger)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func runMigrate(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.New(database.Config{
		URL:         cfg.Database.URL,
		Path:        cfg.Database.Path,
		BusyTimeout: cfg.Database.BusyTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := database.NewMigrator(db, logger).Migrate()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "applied %d migration(s)\n", applied)
	return nil
}

func runSeed(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	doc, err := definition.LoadFile(cmd.String("file"))
	if err != nil {
		return err
	}

	c, err := startContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Seeder().Apply(ctx, doc)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "states: %d created, %d skipped; transitions: %d created, %d skipped\n",
		res.StatesCreated, res.StatesSkipped, res.TransitionsCreated, res.TransitionsSkipped)
	return nil
}

func runExportHistory(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	c, err := startContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	path, err := c.Services().HistoryExport.ExportHistory(ctx, cmd.Int64("entity"))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Root().Writer, c.FileStorage().GetFullPath(path))
	return nil
}
