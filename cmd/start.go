package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"stocksync/core/archive"
	"stocksync/core/config"
	"stocksync/core/database"
	"stocksync/core/logger"
	"stocksync/core/middleware/auth"
	"stocksync/core/middleware/rayid"
	"stocksync/feature/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the stocksync webhook server",
	Long:  `Starts the HTTP server exposing the sync trigger, status and watermark endpoints.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Database connection failed", zap.Error(err))
		}
		logg.Info("Connected to database", zap.String("name", cfg.Database.Name))

		// A run would fail anyway on a half-provisioned schema; surface it
		// at startup instead.
		missing, err := database.VerifyTables(db, stock.RequiredTables)
		if err != nil {
			logg.Fatal("Schema verification failed", zap.Error(err))
		}
		if len(missing) > 0 {
			logg.Fatal("Missing required tables; run `stocksync migrate` and provision the catalog",
				zap.Strings("missing", missing))
		}

		// 4. Optional run archive
		var archiver *archive.Archiver
		if cfg.Archive.Enabled {
			client, err := archive.NewClient(cfg.Archive)
			if err != nil {
				logg.Fatal("Failed to create archive client", zap.Error(err))
			}
			archiver = archive.NewArchiver(client, cfg.Archive, logg)
			logg.Info("Run archiving enabled", zap.String("bucket", cfg.Archive.Bucket))
		}

		// 5. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We log our own startup message
		})

		service := stock.NewService(db, cfg.Sync, archiver, logg)
		handler := stock.NewHandler(service, logg)

		// Middleware Registration
		// RayID first so everything downstream is traceable.
		app.Use(rayid.New())

		// Request logging with Zap + RayID
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Health stays public; everything else sits behind the API key.
		app.Get("/health", handler.HandleHealth)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))
		handler.RegisterRoutes(app)

		// 6. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 7. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
