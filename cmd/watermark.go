package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"stocksync/core/config"
	"stocksync/core/database"
	"stocksync/core/logger"
	"stocksync/feature/stock"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watermarkYes bool

var watermarkCmd = &cobra.Command{
	Use:   "watermark",
	Short: "Inspect and administer source watermarks",
}

// watermarkResetCmd clears one source's cursor. Destructive in the sense
// that the next run reprocesses the source's full history, so it asks for
// confirmation unless --yes is passed.
var watermarkResetCmd = &cobra.Command{
	Use:   "reset <source>",
	Short: "Clear a source watermark, forcing a full reprocess",
	Long: `Deletes the watermark row for the given source (purchases, sales or
pos_counts). The next run will treat the source's entire history as
unprocessed. Refused while a run is in flight.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := strings.ToLower(strings.TrimSpace(args[0]))

		if !watermarkYes {
			cmd.Printf("Reset the %q watermark? The next run reprocesses its full history. [y/N]: ", source)
			var answer string
			fmt.Fscanln(cmd.InOrStdin(), &answer)
			if strings.ToLower(answer) != "y" {
				cmd.Println("Aborted.")
				return nil
			}
		}

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
		if err := service.ResetWatermark(context.Background(), source); err != nil {
			logg.Error("Watermark reset failed", zap.String("source", source), zap.Error(err))
			return err
		}

		logg.Warn("Watermark reset", zap.String("source", source))
		cmd.Printf("Watermark for %q cleared.\n", source)
		return nil
	},
}

func init() {
	watermarkResetCmd.Flags().BoolVar(&watermarkYes, "yes", false, "skip the confirmation prompt")
	watermarkCmd.AddCommand(watermarkResetCmd)
	RootCmd.AddCommand(watermarkCmd)
}
