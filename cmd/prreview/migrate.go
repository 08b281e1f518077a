package main

import (
	"fmt"

	"pr-review-engine/internal/config"
	"pr-review-engine/internal/database"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newMigrateCmd(logger *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down|status",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := config.LoadConfig()

			db, err := database.NewPostgresDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			switch args[0] {
			case "up":
				err = database.MigrateDB(db)
			case "down":
				err = database.MigrateDown(db)
			case "status":
				err = database.MigrationStatus(db)
			default:
				return fmt.Errorf("unknown migrate command %q", args[0])
			}
			if err != nil {
				return err
			}
			logger.WithField("command", args[0]).Info("Migrations done")
			return nil
		},
	}
}
