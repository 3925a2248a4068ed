// Package config provides configuration management for stocksync.
//
// It utilizes Viper for loading configuration from environment variables and
// a local .env file (via godotenv).
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings,
// divided into subsections:
//   - Server: HTTP server settings (port, API key)
//   - Database: Postgres connection details
//   - Log: Logging level and format
//   - Archive: S3/MinIO credentials for run artifact retention
//   - Sync: reconciliation policy (negative balance handling)
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
