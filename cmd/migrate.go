package cmd

import (
	"context"
	"fmt"

	"github.com/vibast-solutions/ms-go-account/app/repository"
	"github.com/vibast-solutions/ms-go-account/config"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrationProvider(cmd.Context(), func(ctx context.Context, provider *goose.Provider) error {
			return migrateUp(ctx, provider)
		})
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrationProvider(cmd.Context(), migrateUp)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrationProvider(cmd.Context(), func(ctx context.Context, provider *goose.Provider) error {
			result, err := provider.Down(ctx)
			if err != nil {
				return err
			}
			logrus.WithField("version", result.Source.Version).Info("Migration rolled back")
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of every migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrationProvider(cmd.Context(), func(ctx context.Context, provider *goose.Provider) error {
			statuses, err := provider.Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				applied := "pending"
				if s.State == goose.StateApplied {
					applied = s.AppliedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Printf("%05d  %-20s  %s\n", s.Source.Version, applied, s.Source.Path)
			}
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func migrateUp(ctx context.Context, provider *goose.Provider) error {
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		logrus.Info("Database schema is up to date")
	}
	for _, r := range results {
		logrus.WithFields(logrus.Fields{
			"version":  r.Source.Version,
			"duration": r.Duration.String(),
		}).Info("Migration applied")
	}
	return nil
}

func withMigrationProvider(ctx context.Context, fn func(ctx context.Context, provider *goose.Provider) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := configureLogging(cfg); err != nil {
		return err
	}
	if cfg.Store != config.StoreMySQL {
		return fmt.Errorf("migrations require STORE=%s", config.StoreMySQL)
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := repository.NewMigrationProvider(db)
	if err != nil {
		return err
	}
	return fn(ctx, provider)
}
