package cmd

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"stocksync/core/archive"
	"stocksync/core/config"
	"stocksync/core/database"
	"stocksync/core/logger"
	"stocksync/feature/stock"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncFile string
	syncNote string
)

// syncCmd runs one reconciliation from a batch file, without the server.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation from a batch file",
	Long: `Reads a JSON batch of purchases, sales and POS counts from --file and
executes a single reconciliation run against the configured database.
Exits non-zero if the run fails.`,
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

		data, err := os.ReadFile(syncFile)
		if err != nil {
			logg.Fatal("Failed to read batch file", zap.String("file", syncFile), zap.Error(err))
		}

		var batch stock.Batch
		if err := json.Unmarshal(data, &batch); err != nil {
			logg.Fatal("Failed to parse batch file", zap.String("file", syncFile), zap.Error(err))
		}
		if syncNote != "" {
			batch.Note = syncNote
		}

		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Database connection failed", zap.Error(err))
		}

		var archiver *archive.Archiver
		if cfg.Archive.Enabled {
			client, err := archive.NewClient(cfg.Archive)
			if err != nil {
				logg.Fatal("Failed to create archive client", zap.Error(err))
			}
			archiver = archive.NewArchiver(client, cfg.Archive, logg)
		}

		service := stock.NewService(db, cfg.Sync, archiver, logg)
		result, err := service.Run(context.Background(), batch)
		if err != nil {
			logg.Error("Sync run failed", zap.Error(err))
			return err
		}

		logg.Info("Sync run completed",
			zap.String("run_id", result.RunID),
			zap.Int("items_created", result.ItemsCreated),
			zap.Int("items_updated", result.ItemsUpdated),
			zap.Int("items_overridden", result.ItemsOverridden),
			zap.Int("ledger_rows", result.LedgerRowsWritten),
			zap.Strings("negative_items", result.NegativeItems),
		)

		out, _ := json.MarshalIndent(result, "", "  ")
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncFile, "file", "", "path to the JSON batch file (required)")
	syncCmd.Flags().StringVar(&syncNote, "note", "", "operator note recorded with the run")
	_ = syncCmd.MarkFlagRequired("file")
	RootCmd.AddCommand(syncCmd)
}
