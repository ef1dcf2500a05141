package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/gridsearch/pkg/config"
	"github.com/rubiojr/gridsearch/pkg/storage"
	"github.com/urfave/cli/v3"
)

// OptimizeCommand creates the optimize command
func OptimizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "SQLite index optimization and maintenance commands",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Run SQLite and FTS5 integrity checks",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withSQLite(ctx, c.String("config"), func(s *storage.Storage) error {
						if err := s.Check(ctx); err != nil {
							return err
						}
						fmt.Println("Integrity check passed")
						return nil
					})
				},
			},
			{
				Name:  "fts-rebuild",
				Usage: "Rebuild the full-text index from stored documents",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withSQLite(ctx, c.String("config"), func(s *storage.Storage) error {
						if err := s.Rebuild(ctx); err != nil {
							return err
						}
						fmt.Println("Full-text index rebuilt")
						return nil
					})
				},
			},
			{
				Name:  "vacuum",
				Usage: "Merge FTS segments and update query planner statistics",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withSQLite(ctx, c.String("config"), func(s *storage.Storage) error {
						if err := s.Optimize(ctx); err != nil {
							return err
						}
						fmt.Println("Index optimized")
						return nil
					})
				},
			},
		},
	}
}

// withSQLite opens the configured SQLite store for maintenance.
func withSQLite(ctx context.Context, configPath string, fn func(*storage.Storage) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Backend != config.BackendSQLite {
		return fmt.Errorf("optimize only applies to the sqlite backend, configured backend is %s", cfg.Backend)
	}

	s, err := storage.Open(cfg.SQLite.Path, cfg.TextFields())
	if err != nil {
		return fmt.Errorf("opening %s: %w", cfg.SQLite.Path, err)
	}
	defer closeStore(s)

	return fn(s)
}
