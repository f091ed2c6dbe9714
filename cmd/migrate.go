package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jandubois/clusterwatch/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run report journal migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("down", false, "Roll back all migrations")
	migrateCmd.Flags().StringP("database", "d", "", "SQLite database path (defaults to database_path from the config)")
}

func getDatabasePath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("database"); path != "" {
		return path, nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.DatabasePath == "" {
		return "", fmt.Errorf("no database_path configured")
	}
	return cfg.DatabasePath, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	path, err := getDatabasePath(cmd)
	if err != nil {
		return err
	}
	down, _ := cmd.Flags().GetBool("down")
	ctx := cmd.Context()

	if down {
		slog.Info("rolling back all migrations", "database", path)
		if err := db.RollbackMigrations(ctx, path); err != nil {
			return err
		}
		slog.Info("migrations rolled back")
		return nil
	}

	slog.Info("running migrations", "database", path)
	if err := db.RunMigrations(ctx, path); err != nil {
		return err
	}
	version, err := db.CurrentVersion(ctx, path)
	if err != nil {
		return err
	}
	slog.Info("migrations complete", "version", version)
	return nil
}
