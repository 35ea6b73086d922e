// Package storagetest provides an in-memory storage.Driver that records
// every session it opens, for tests.
package storagetest

import (
	"context"
	"sort"
	"sync"

	"github.com/DjordjeVuckovic/sqlconnector/internal/param"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage"
	"github.com/DjordjeVuckovic/sqlconnector/internal/table"
)

// Driver is a scripted storage.Driver. Configure the exported fields before
// handing it to a factory; read results through the accessor methods.
type Driver struct {
	// OpenErr, QueryErr and ExecErr are returned by the matching call.
	OpenErr  error
	QueryErr error
	ExecErr  error
	// PanicOn makes Open, Query or Exec panic when set to "open", "query"
	// or "execute".
	PanicOn string
	// Result is returned by Query; nil yields an empty table.
	Result *table.Table
	// RowsAffected is returned by Exec.
	RowsAffected int64
	// EchoParams makes Query return the bound params as a name/value table.
	EchoParams bool
	// Block, when non-nil, makes Query and Exec wait for it or for ctx.
	Block chan struct{}
	// OpenBlock, when non-nil, makes Open wait for it regardless of ctx,
	// like a handshake already on the wire.
	OpenBlock chan struct{}

	mu         sync.Mutex
	opens      int
	closes     int
	lastDSN    string
	lastQuery  string
	lastParams []param.Param
}

func NewDriver() *Driver {
	return &Driver{}
}

func (d *Driver) Name() string { return "mock" }

func (d *Driver) Open(ctx context.Context, dsn string) (storage.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.OpenBlock != nil {
		<-d.OpenBlock
	}
	if d.PanicOn == "open" {
		panic("mock: open panic")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastDSN = dsn
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.opens++
	return &Conn{d: d}, nil
}

// Counts returns how many sessions were opened and closed.
func (d *Driver) Counts() (opens, closes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens, d.closes
}

func (d *Driver) LastDSN() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastDSN
}

func (d *Driver) LastQuery() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastQuery
}

func (d *Driver) LastParams() []param.Param {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]param.Param(nil), d.lastParams...)
}

func (d *Driver) record(query string, params []param.Param) {
	d.mu.Lock()
	d.lastQuery = query
	d.lastParams = append([]param.Param(nil), params...)
	d.mu.Unlock()
}

func (d *Driver) wait(ctx context.Context) error {
	if d.Block == nil {
		return nil
	}
	select {
	case <-d.Block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Conn struct {
	d      *Driver
	closed bool
}

func (c *Conn) Query(ctx context.Context, query string, params []param.Param) (*table.Table, error) {
	c.d.record(query, params)
	if err := c.d.wait(ctx); err != nil {
		return nil, err
	}
	if c.d.PanicOn == "query" {
		panic("mock: query panic")
	}
	if c.d.QueryErr != nil {
		return nil, c.d.QueryErr
	}
	if c.d.EchoParams {
		return echo(params), nil
	}
	if c.d.Result == nil {
		return table.Empty(), nil
	}
	return c.d.Result, nil
}

func (c *Conn) Exec(ctx context.Context, query string, params []param.Param) (int64, error) {
	c.d.record(query, params)
	if err := c.d.wait(ctx); err != nil {
		return 0, err
	}
	if c.d.PanicOn == "execute" {
		panic("mock: exec panic")
	}
	if c.d.ExecErr != nil {
		return 0, c.d.ExecErr
	}
	return c.d.RowsAffected, nil
}

func (c *Conn) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (c *Conn) Close(_ context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.d.mu.Lock()
	c.d.closes++
	c.d.mu.Unlock()
	return nil
}

func (c *Conn) Closed() bool {
	return c.closed
}

func echo(params []param.Param) *table.Table {
	t := table.New([]table.Column{{Name: "name", Type: "TEXT"}, {Name: "value", Type: "ANY"}})
	sorted := append([]param.Param(nil), params...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, p := range sorted {
		_ = t.Append(p.Name, p.Value)
	}
	return t
}

var _ storage.Driver = (*Driver)(nil)
var _ storage.Conn = (*Conn)(nil)
