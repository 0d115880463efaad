package main

import (
	"fmt"

	"studio-backend/internal/database"
	"studio-backend/internal/env"
	"studio-backend/internal/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "studioctl",
	Short:         "Operator tasks for the studio backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := env.Load(); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
		cfg := env.LoadConfig()
		_, err := logger.Init(logger.Config{
			Level:       cfg.LogLevel,
			Environment: cfg.Environment,
			ServiceName: "studioctl",
		})
		return err
	},
}

// openDatabase connects with the AWS settings from the environment. Only the
// AWS region is required here; the HTTP secrets are not.
func openDatabase(cmd *cobra.Command) (*database.Database, error) {
	cfg := env.LoadConfig()
	if cfg.AWS.Region == "" {
		return nil, fmt.Errorf("%s is not set", env.AWSRegion)
	}
	return database.NewDatabase(cmd.Context(), cfg.AWS)
}
