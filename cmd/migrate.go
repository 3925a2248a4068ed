package cmd

import (
	"log"

	"stocksync/core/config"
	"stocksync/core/database"
	"stocksync/core/logger"
	"stocksync/feature/stock"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd creates the sync-owned tables and seeds the meta row. The
// inventory catalog table is provisioned elsewhere and only verified here.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create sync tables and seed the meta row",
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

		if err := stock.Migrate(db); err != nil {
			logg.Error("Migration failed", zap.Error(err))
			return err
		}
		logg.Info("Migration complete")

		missing, err := database.VerifyTables(db, stock.RequiredTables)
		if err != nil {
			logg.Error("Schema verification failed", zap.Error(err))
			return err
		}
		if len(missing) > 0 {
			logg.Warn("Tables still missing; the inventory catalog is provisioned externally",
				zap.Strings("missing", missing))
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
