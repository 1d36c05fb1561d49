package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "hirelane/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

// Runner executes fn atomically. Postgres-backed runners open a transaction
// and place it in the context via WithTx; stores then pick it up through
// their execer. In-memory runners serialize callers instead.
//
// Runners are reentrant: a RunInTx call made while already inside one joins
// the ambient transaction instead of opening a second. Cross-service calls
// (interview -> application) rely on this to stay a single logical
// transaction.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner runs fn inside a database/sql transaction.
type SQLRunner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLRunner wraps db. A zero timeout falls back to the package default;
// callers with their own deadline keep it.
func NewSQLRunner(db *sql.DB, timeout time.Duration) *SQLRunner {
	return &SQLRunner{db: db, timeout: timeout}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	// Already inside a transaction: join it. Commit and rollback stay with
	// the outermost caller.
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeDownstreamUnavailable, "begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeDownstreamUnavailable, "commit transaction")
	}
	return nil
}

// MemoryRunner serializes logical transactions with a mutex. It provides the
// mutual exclusion unit tests need; atomic rollback stays a property of the
// SQL runner.
type MemoryRunner struct {
	mu sync.Mutex
}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

type memTxKey struct{}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	// Nested call: the mutex is not reentrant, so join the ambient
	// transaction instead of deadlocking on it.
	if inside, _ := ctx.Value(memTxKey{}).(bool); inside {
		return fn(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(context.WithValue(ctx, memTxKey{}, true))
}
