// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to
// properly configure Postgres connections based on the application's
// configuration.
//
// # Connect
//
// The Connect function establishes a pooled connection to the database and
// verifies it with a ping. Statement timeouts are set at the DSN level so a
// runaway aggregation is cancelled by the store rather than hanging the job.
//
// # Schema Inspection
//
// The package includes tools to inspect the database schema. The sync
// feature uses VerifyTables to confirm that the ledger tables and the
// external inventory catalog exist before a run is attempted.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.VerifyTables(db, []string{"stock", "ledger"})
package database
