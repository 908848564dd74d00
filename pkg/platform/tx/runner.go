package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "salegate/pkg/domain-errors"
)

// Runner is the engine-wide transaction boundary. Every public mutating
// operation runs inside Runner.RunInTx so a call either fully commits its
// state changes or leaves no observable side effects.
//
// The source runtime serialized all transactions globally; a service
// reimplementation must reintroduce an equivalent. SingleWriter does it with
// one writer per logical ledger; SQLRunner does it with a database
// transaction carried in the context.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// defaultTxTimeout bounds how long a mutating call may hold the writer.
const defaultTxTimeout = 5 * time.Second

// SingleWriter serializes all mutating operations behind one mutex. The
// aggregate counters (total locked, raised so far) span every account, so a
// coarse lock is the correct granularity here; sharding by account would
// break the "never promise more than is held" invariant.
type SingleWriter struct {
	mu      sync.Mutex
	timeout time.Duration
}

// NewSingleWriter constructs the in-memory transaction boundary.
func NewSingleWriter() *SingleWriter {
	return &SingleWriter{timeout: defaultTxTimeout}
}

func (w *SingleWriter) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

// SQLRunner wraps each operation in a serializable database transaction and
// injects it into the context so stores pick it up via From.
type SQLRunner struct {
	db *sql.DB
}

// NewSQLRunner constructs a database-backed transaction boundary.
func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		// Rollback error is secondary; the operation already failed.
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}
