package pg

import (
	"context"
	"errors"

	"github.com/DjordjeVuckovic/sqlconnector/internal/apperr"
	"github.com/DjordjeVuckovic/sqlconnector/internal/param"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage"
	"github.com/DjordjeVuckovic/sqlconnector/internal/table"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Conn struct {
	conn *pgx.Conn
}

func NewConn(conn *pgx.Conn) *Conn {
	return &Conn{conn: conn}
}

func (c *Conn) Query(ctx context.Context, query string, params []param.Param) (*table.Table, error) {
	rows, err := c.conn.Query(ctx, query, namedArgs(params)...)
	if err != nil {
		return nil, wrapErr(apperr.OpQuery, err)
	}
	defer rows.Close()

	result := table.New(c.columns(rows.FieldDescriptions()))
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, wrapErr(apperr.OpQuery, err)
		}
		if err := result.Append(values...); err != nil {
			return nil, err
		}
	}

	if err := rows.Err(); err != nil {
		return nil, wrapErr(apperr.OpQuery, err)
	}

	return result, nil
}

func (c *Conn) Exec(ctx context.Context, query string, params []param.Param) (int64, error) {
	tag, err := c.conn.Exec(ctx, query, namedArgs(params)...)
	if err != nil {
		return 0, wrapErr(apperr.OpExecute, err)
	}
	return tag.RowsAffected(), nil
}

func (c *Conn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *Conn) Close(ctx context.Context) error {
	if c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close(ctx)
}

func (c *Conn) Closed() bool {
	return c.conn.IsClosed()
}

func (c *Conn) columns(fds []pgconn.FieldDescription) []table.Column {
	cols := make([]table.Column, 0, len(fds))
	for _, fd := range fds {
		typeName := "unknown"
		if t, ok := c.conn.TypeMap().TypeForOID(fd.DataTypeOID); ok {
			typeName = t.Name
		}
		cols = append(cols, table.Column{Name: fd.Name, Type: typeName})
	}
	return cols
}

// namedArgs returns no arguments at all for an empty param list so that
// statements without placeholders go through the simple path.
func namedArgs(params []param.Param) []any {
	if len(params) == 0 {
		return nil
	}
	args := make(pgx.NamedArgs, len(params))
	for _, p := range params {
		args[p.BareName()] = p.Native()
	}
	return []any{args}
}

func wrapErr(op apperr.Op, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return apperr.NewDatabase(op, pgErr.Code, pgErr.Message, err)
	}
	return apperr.NewDatabase(op, "", "", err)
}

var _ storage.Conn = (*Conn)(nil)
