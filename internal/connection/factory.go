// Package connection opens and closes database sessions.
//
// A Factory pairs a storage.Driver with a Descriptor. Every successful Open
// must be matched by exactly one Close; Acquire returns a release func that
// does this for the caller.
package connection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/sqlconnector/internal/apperr"
	"github.com/DjordjeVuckovic/sqlconnector/internal/async"
	"github.com/DjordjeVuckovic/sqlconnector/internal/metrics"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage"
)

const CloseTimeout = 5 * time.Second

type Factory struct {
	driver  storage.Driver
	desc    Descriptor
	metrics *metrics.Collector
}

type Option func(*Factory)

func WithMetrics(c *metrics.Collector) Option {
	return func(f *Factory) {
		f.metrics = c
	}
}

func New(driver storage.Driver, desc Descriptor, opts ...Option) *Factory {
	f := &Factory{driver: driver, desc: desc}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) DriverName() string {
	return f.driver.Name()
}

func (f *Factory) Descriptor() Descriptor {
	return f.desc
}

// Open blocks until the session is established or fails. A panicking driver
// surfaces as an *apperr.UnknownError.
func (f *Factory) Open(ctx context.Context) (conn storage.Conn, err error) {
	defer func() {
		if r := recover(); r != nil {
			conn = nil
			err = apperr.NewUnknownWrap(fmt.Sprintf("panic: %v", r), nil)
			f.metrics.RecordOpen(err)
			slog.Error("Driver panicked while opening connection", "driver", f.driver.Name(), "panic", r)
		}
	}()

	dsn, err := f.desc.Resolve(f.driver)
	if err != nil {
		f.metrics.RecordOpen(err)
		return nil, apperr.NewConnectionWrap("malformed connection descriptor: "+err.Error(), err)
	}

	conn, err = f.driver.Open(ctx, dsn)
	f.metrics.RecordOpen(err)
	if err != nil {
		slog.Error("Failed to open connection",
			"driver", f.driver.Name(),
			"descriptor", f.desc.Redacted(),
			"error", err)
		return nil, apperr.Classify(apperr.OpOpen, err)
	}

	slog.Debug("Connection opened", "driver", f.driver.Name())
	return conn, nil
}

// OpenAsync starts Open on its own goroutine and returns immediately. If the
// caller stops awaiting the future, the session it eventually yields is
// closed.
func (f *Factory) OpenAsync(ctx context.Context) *async.Future[storage.Conn] {
	return async.GoWithCleanup(func() (storage.Conn, error) {
		return f.Open(ctx)
	}, func(conn storage.Conn) {
		slog.Debug("Closing connection nobody awaited", "driver", f.driver.Name())
		_ = f.Close(conn)
	})
}

// Close releases conn. It does nothing for a nil or already closed conn.
// It does not take the caller's context: a cancelled call must still
// release its session.
func (f *Factory) Close(conn storage.Conn) error {
	if conn == nil || conn.Closed() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), CloseTimeout)
	defer cancel()

	if err := conn.Close(ctx); err != nil {
		slog.Warn("Failed to close connection", "driver", f.driver.Name(), "error", err)
		return err
	}
	f.metrics.RecordClose()
	slog.Debug("Connection closed", "driver", f.driver.Name())
	return nil
}

// Acquire opens a session and returns a func that closes it.
func (f *Factory) Acquire(ctx context.Context) (storage.Conn, func(), error) {
	conn, err := f.Open(ctx)
	if err != nil {
		return nil, func() {}, err
	}
	return conn, func() { _ = f.Close(conn) }, nil
}

// Ping opens a session, pings it and closes it again.
func (f *Factory) Ping(ctx context.Context) error {
	conn, release, err := f.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return conn.Ping(ctx)
}

// Held wraps a session the caller already owns. Acquire hands it out and
// leaves closing it to the caller.
type Held struct {
	conn storage.Conn
}

func NewHeld(conn storage.Conn) *Held {
	return &Held{conn: conn}
}

func (h *Held) Acquire(ctx context.Context) (storage.Conn, func(), error) {
	if h.conn == nil || h.conn.Closed() {
		return nil, func() {}, apperr.NewConnection("connection is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, func() {}, apperr.NewConnectionWrap("", err)
	}
	return h.conn, func() {}, nil
}

func (h *Held) DriverName() string {
	return "held"
}
