package storage

import (
	"context"
	"time"

	"github.com/DjordjeVuckovic/sqlconnector/internal/param"
	"github.com/DjordjeVuckovic/sqlconnector/internal/table"
)

type ExecOptions struct {
	TimeoutSeconds int
}

func (o *ExecOptions) Timeout() time.Duration {
	if o == nil || o.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// Conn is one open database session.
type Conn interface {
	// Query runs a read statement and materializes the whole result set.
	// Params are bound by name; see param.Param.
	Query(ctx context.Context, query string, params []param.Param) (*table.Table, error)
	// Exec runs a write statement and returns the affected-row count.
	Exec(ctx context.Context, query string, params []param.Param) (int64, error)
	Ping(ctx context.Context) error
	// Close releases the session. Calling it on a closed Conn is a no-op.
	Close(ctx context.Context) error
	Closed() bool
}

// Driver opens sessions from a driver-specific DSN.
type Driver interface {
	Name() string
	Open(ctx context.Context, dsn string) (Conn, error)
}
