// Package sqldb adapts database/sql drivers to storage.Driver. Each Open
// creates a dedicated *sql.DB capped at one connection and checks out that
// connection, so one storage.Conn maps to exactly one server session.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/DjordjeVuckovic/sqlconnector/internal/apperr"
	"github.com/DjordjeVuckovic/sqlconnector/internal/connection"
	"github.com/DjordjeVuckovic/sqlconnector/internal/param"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage"
	"github.com/DjordjeVuckovic/sqlconnector/internal/table"
)

// Dialect describes how one database/sql driver is wired.
type Dialect struct {
	// Name is what configuration refers to, e.g. "sqlserver".
	Name string
	// DriverName is the name registered with database/sql.
	DriverName string
	// FormatDSN builds a DSN from discrete fields. Nil means the SQL Server
	// template is used.
	FormatDSN func(f connection.Fields) (string, error)
	// Args turns bound params into driver arguments, rewriting the query
	// when the driver has no named-parameter support.
	Args func(query string, params []param.Param) (string, []any)
	// ErrorCode extracts the engine code and message from a driver error.
	ErrorCode func(err error) (code, msg string, ok bool)
	// ParseDSN checks a DSN before any network work. Nil skips the check.
	ParseDSN func(dsn string) error
}

type Driver struct {
	dialect Dialect
}

func New(d Dialect) *Driver {
	if d.Args == nil {
		d.Args = namedArgs
	}
	return &Driver{dialect: d}
}

func (d *Driver) Name() string {
	return d.dialect.Name
}

func (d *Driver) FormatDSN(f connection.Fields) (string, error) {
	if d.dialect.FormatDSN == nil {
		return f.Template(), nil
	}
	return d.dialect.FormatDSN(f)
}

func (d *Driver) Open(ctx context.Context, dsn string) (storage.Conn, error) {
	if d.dialect.ParseDSN != nil {
		if err := d.dialect.ParseDSN(dsn); err != nil {
			return nil, apperr.NewConnectionWrap("malformed connection descriptor: "+err.Error(), err)
		}
	}

	db, err := sql.Open(d.dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.dialect.Name, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, d.openErr(err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, d.openErr(err)
	}

	return &Conn{db: db, conn: conn, dialect: d.dialect}, nil
}

func (d *Driver) openErr(err error) error {
	if d.dialect.ErrorCode != nil {
		if _, msg, ok := d.dialect.ErrorCode(err); ok {
			return apperr.NewConnectionWrap(msg, err)
		}
	}
	return err
}

type Conn struct {
	db      *sql.DB
	conn    *sql.Conn
	dialect Dialect
	closed  bool
}

func (c *Conn) Query(ctx context.Context, query string, params []param.Param) (*table.Table, error) {
	q, args := c.dialect.Args(query, params)

	rows, err := c.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, c.wrapErr(apperr.OpQuery, err)
	}
	defer rows.Close()

	result, err := materialize(rows)
	if err != nil {
		return nil, c.wrapErr(apperr.OpQuery, err)
	}
	return result, nil
}

func (c *Conn) Exec(ctx context.Context, query string, params []param.Param) (int64, error) {
	q, args := c.dialect.Args(query, params)

	res, err := c.conn.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, c.wrapErr(apperr.OpExecute, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, c.wrapErr(apperr.OpExecute, err)
	}
	return n, nil
}

func (c *Conn) Ping(ctx context.Context) error {
	return c.conn.PingContext(ctx)
}

func (c *Conn) Close(_ context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	connErr := c.conn.Close()
	dbErr := c.db.Close()
	if connErr != nil {
		return connErr
	}
	return dbErr
}

func (c *Conn) Closed() bool {
	return c.closed
}

func (c *Conn) wrapErr(op apperr.Op, err error) error {
	if c.dialect.ErrorCode != nil {
		if code, msg, ok := c.dialect.ErrorCode(err); ok {
			return apperr.NewDatabase(op, code, msg, err)
		}
	}
	return apperr.NewDatabase(op, "", "", err)
}

func materialize(rows *sql.Rows) (*table.Table, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	columns := make([]table.Column, len(colTypes))
	binary := make([]bool, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = table.Column{Name: ct.Name(), Type: ct.DatabaseTypeName()}
		binary[i] = isBinaryType(ct.DatabaseTypeName())
	}

	result := table.New(columns)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok && !binary[i] {
				values[i] = string(b)
			}
		}
		if err := result.Append(values...); err != nil {
			return nil, err
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func isBinaryType(name string) bool {
	name = strings.ToUpper(name)
	for _, marker := range []string{"BLOB", "BINARY", "IMAGE", "BYTEA"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// namedArgs passes params through sql.Named, for drivers that resolve
// @name placeholders themselves.
func namedArgs(query string, params []param.Param) (string, []any) {
	args := make([]any, 0, len(params))
	for _, p := range params {
		args = append(args, sql.Named(p.BareName(), p.Native()))
	}
	return query, args
}

var (
	_ storage.Driver          = (*Driver)(nil)
	_ storage.Conn            = (*Conn)(nil)
	_ connection.DSNFormatter = (*Driver)(nil)
)
