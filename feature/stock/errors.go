package stock

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValidationError reports malformed input or a reference to an unknown
// inventory item. The run aborts before any mutation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// ConflictError reports a concurrent run or a unique-key collision during
// commit. The run aborts with state unchanged.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// InvariantError reports a violated stock invariant, currently a negative
// on-hand balance under a strict policy.
type InvariantError struct {
	Items []string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation: negative on-hand balance for %d item(s): %v", len(e.Items), e.Items)
}

// TransientError wraps store-level failures (connection loss, timeout,
// deadlock). The whole run was rolled back and may be safely retried:
// watermarks make reprocessing idempotent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient store error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// classifyStoreErr maps a raw store error onto the run error taxonomy.
// Unique-key violations become conflicts; everything else is transient.
func classifyStoreErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &ConflictError{Reason: "unique key violation: " + pgErr.ConstraintName}
	}
	return &TransientError{Err: err}
}
