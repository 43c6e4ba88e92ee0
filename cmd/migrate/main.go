// cmd/migrate/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/moehefner/streb/internal/config"
	"github.com/moehefner/streb/internal/db"
	"github.com/moehefner/streb/migrations"
)

func main() {
	var logger *logrus.Logger

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var cfg *config.Config
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger = config.NewLogger(cfg.LogLevel)
		return nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrate(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return err
			}
			return logVersion(m, logger)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back the given number of migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				steps = n
			}
			m, err := newMigrate(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return err
			}
			return logVersion(m, logger)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Load development seed data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return seed(cmd.Context(), cfg, logger)
		},
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		if logger == nil {
			logger = config.NewLogger("info")
		}
		logger.WithError(err).Fatal("migrate failed")
	}
}

func newMigrate(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*migrate.Migrate, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}
	driver, err := postgres.WithInstance(conn.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "postgres", driver)
}

func logVersion(m *migrate.Migrate, logger *logrus.Logger) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("database has no migrations applied")
		return nil
	}
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("schema version")
	return nil
}

// seed runs every file under seed/ in name order.
func seed(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	dsn, err := cfg.DSN()
	if err != nil {
		return err
	}
	conn, err := db.Open(ctx, dsn, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	files, err := fs.Glob(migrations.Seed, "seed/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(migrations.Seed, file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute %s: %w", file, err)
		}
		logger.WithField("file", file).Info("seeded")
	}

	logger.Info("database seeding completed")
	return nil
}
