package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/noah-isme/studybot/internal/repository"
	"github.com/noah-isme/studybot/pkg/config"
	"github.com/noah-isme/studybot/pkg/database"
	"github.com/noah-isme/studybot/pkg/logger"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the PostgreSQL tables for events and verified members.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(c.Context, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.Migrate(c.Context, db); err != nil {
				return err
			}
			logr.Sugar().Infow("schema migrated", "database", cfg.Database.Name)
			return nil
		},
	}
}
