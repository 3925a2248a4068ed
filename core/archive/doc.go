// Package archive provides optional object-storage retention for sync runs.
//
// After a successful reconciliation run commits, the run summary and the
// ledger rows it wrote can be uploaded as a JSON artifact to an S3-compatible
// bucket (Minio, S3). This gives auditors an immutable copy of every run
// without granting them database access.
//
// # Guarantees
//
// Archiving happens outside the reconciliation transaction. The engine never
// performs network calls; the service layer invokes the archiver only after
// commit, and upload failures are logged rather than surfaced as run
// failures.
//
// # Usage
//
//	client, _ := archive.NewClient(cfg.Archive)
//	arch := archive.NewArchiver(client, cfg.Archive, log)
//	_ = arch.Store(ctx, "runs/2024-05-01/abc.json", result)
package archive
