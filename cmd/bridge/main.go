package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/athplan/bridge/internal/config"
	"github.com/athplan/bridge/internal/db"
	"github.com/athplan/bridge/internal/logger"
)

func main() {
	root := &cobra.Command{
		Use:          "bridge",
		Short:        "WhatsApp team assistant gateway",
		SilenceUsage: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the webhook server",
			Run: func(cmd *cobra.Command, args []string) {
				runServe()
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				logger.Init(cfg.Log.Level, cfg.Log.Format)
				return db.Migrate(cfg.Postgres)
			},
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
