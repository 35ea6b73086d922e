// Package query executes parameterized statements over a connection source
// and reports every failure as a typed apperr error.
//
// Each call acquires exactly one session and releases it before returning,
// whatever the outcome. The returned error is the primary failure signal.
// LastError mirrors it as a string for callers that poll the executor.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/DjordjeVuckovic/sqlconnector/internal/apperr"
	"github.com/DjordjeVuckovic/sqlconnector/internal/async"
	"github.com/DjordjeVuckovic/sqlconnector/internal/metrics"
	"github.com/DjordjeVuckovic/sqlconnector/internal/param"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage"
	"github.com/DjordjeVuckovic/sqlconnector/internal/table"
	"github.com/google/uuid"
)

// Source hands out a session together with the func that releases it.
// *connection.Factory opens a new session per call; *connection.Held
// reuses one the caller owns.
type Source interface {
	Acquire(ctx context.Context) (storage.Conn, func(), error)
}

type namedSource interface {
	DriverName() string
}

// Executor runs statements against a Source.
//
// The error returned by each call is safe to use concurrently. LastError is
// not: it holds whatever the most recent call on this instance left there,
// so concurrent calls on one Executor overwrite each other's value. Use one
// Executor per logical call when LastError matters.
type Executor struct {
	src     Source
	driver  string
	timeout time.Duration
	metrics *metrics.Collector

	lastErr atomic.Value
}

type Option func(*Executor)

// WithTimeout bounds every call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.timeout = d
	}
}

func WithExecOptions(opts *storage.ExecOptions) Option {
	return WithTimeout(opts.Timeout())
}

func WithMetrics(c *metrics.Collector) Option {
	return func(e *Executor) {
		e.metrics = c
	}
}

func New(src Source, opts ...Option) *Executor {
	e := &Executor{src: src, driver: "unknown"}
	if n, ok := src.(namedSource); ok {
		e.driver = n.DriverName()
	}
	for _, opt := range opts {
		opt(e)
	}
	e.lastErr.Store("")
	return e
}

// LastError returns the failure message of the most recent call, or "" if
// it succeeded. See the Executor doc for its concurrency caveat.
func (e *Executor) LastError() string {
	return e.lastErr.Load().(string)
}

// ExecuteQuery runs a read statement and returns its fully materialized
// result. On failure the table is empty, never nil, and err is one of
// *apperr.ConnectionError, *apperr.DatabaseError or *apperr.UnknownError.
func (e *Executor) ExecuteQuery(ctx context.Context, text string, set param.Set) (*table.Table, error) {
	var result *table.Table
	err := e.run(ctx, apperr.OpQuery, text, set, func(ctx context.Context, conn storage.Conn, params []param.Param) error {
		t, err := conn.Query(ctx, text, params)
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil || result == nil {
		return table.Empty(), err
	}
	return result, nil
}

// ExecuteNonQuery runs a write statement. Zero affected rows is a success.
func (e *Executor) ExecuteNonQuery(ctx context.Context, text string, set param.Set) (ExecResult, error) {
	var affected int64
	err := e.run(ctx, apperr.OpExecute, text, set, func(ctx context.Context, conn storage.Conn, params []param.Param) error {
		n, err := conn.Exec(ctx, text, params)
		if err != nil {
			return err
		}
		affected = n
		return nil
	})
	if err != nil {
		return ExecResult{}, err
	}
	return ExecResult{RowsAffected: affected}, nil
}

// ExecuteQueryAsync runs ExecuteQuery on its own goroutine.
func (e *Executor) ExecuteQueryAsync(ctx context.Context, text string, set param.Set) *async.Future[*table.Table] {
	return async.Go(func() (*table.Table, error) {
		return e.ExecuteQuery(ctx, text, set)
	})
}

// ExecuteNonQueryAsync runs ExecuteNonQuery on its own goroutine.
func (e *Executor) ExecuteNonQueryAsync(ctx context.Context, text string, set param.Set) *async.Future[ExecResult] {
	return async.Go(func() (ExecResult, error) {
		return e.ExecuteNonQuery(ctx, text, set)
	})
}

type execIDKey struct{}

// WithExecutionID tags calls made with ctx with id in their log lines.
func WithExecutionID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, execIDKey{}, id)
}

// ExecutionID returns the id set by WithExecutionID, or a new random one.
func ExecutionID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(execIDKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.New()
}

type stepFunc func(ctx context.Context, conn storage.Conn, params []param.Param) error

func (e *Executor) run(ctx context.Context, op apperr.Op, text string, set param.Set, step stepFunc) (err error) {
	e.lastErr.Store("")

	execID := ExecutionID(ctx)
	start := time.Now()
	log := slog.With("execution_id", execID.String(), "driver", e.driver, "op", string(op))

	defer func() {
		if r := recover(); r != nil {
			err = apperr.NewUnknownWrap(fmt.Sprintf("panic: %v", r), nil)
		}
		e.finish(log, op, time.Since(start), err)
	}()

	params, err := param.Bind(set)
	if err != nil {
		return err
	}

	callCtx, cancel := e.callCtx(ctx)
	defer cancel()

	conn, release, err := e.src.Acquire(callCtx)
	if err != nil {
		return apperr.Classify(apperr.OpOpen, err)
	}
	defer release()

	if err := step(callCtx, conn, params); err != nil {
		return apperr.Classify(op, err)
	}
	return nil
}

func (e *Executor) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return ctx, func() {
		// no-op
	}
}

func (e *Executor) finish(log *slog.Logger, op apperr.Op, elapsed time.Duration, err error) {
	if err == nil {
		e.metrics.RecordExecution(string(op), metrics.OutcomeSuccess)
		log.Debug("Statement executed", "elapsed", elapsed)
		return
	}

	e.lastErr.Store(FailureMessage(op, err))
	e.metrics.RecordExecution(string(op), outcomeOf(err))
	log.Error("Statement failed", "elapsed", elapsed, "error", err)
}

func outcomeOf(err error) string {
	switch {
	case apperr.IsConnection(err):
		return metrics.OutcomeConnection
	case apperr.IsDatabase(err):
		return metrics.OutcomeDatabase
	default:
		return metrics.OutcomeUnknown
	}
}
