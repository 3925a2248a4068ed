package cmd

import (
	"context"
	"encoding/json"
	"log"

	"stocksync/core/config"
	"stocksync/core/database"
	"stocksync/core/logger"
	"stocksync/feature/stock"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// statusCmd prints the current run metadata and watermark positions.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run status and watermarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Database connection failed", zap.Error(err))
		}

		service := stock.NewService(db, cfg.Sync, nil, logg)
		report, err := service.Status(context.Background())
		if err != nil {
			logg.Error("Failed to load status", zap.Error(err))
			return err
		}

		out, _ := json.MarshalIndent(report, "", "  ")
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(statusCmd)
}
