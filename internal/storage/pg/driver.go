package pg

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/sqlconnector/internal/connection"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage"
	"github.com/jackc/pgx/v5"
)

const DefaultPort = 5432

// Driver opens single pgx sessions. Queries use pgx named arguments, so
// placeholders are written as @name.
type Driver struct {
	SSLMode string
}

func NewDriver() *Driver {
	return &Driver{SSLMode: "disable"}
}

func (d *Driver) Name() string {
	return "postgres"
}

func (d *Driver) Open(ctx context.Context, dsn string) (storage.Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Conn{conn: conn}, nil
}

// FormatDSN builds a postgres:// URL; url encoding escapes every field.
func (d *Driver) FormatDSN(f connection.Fields) (string, error) {
	if strings.TrimSpace(f.Database) == "" {
		return "", fmt.Errorf("database is required")
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(f.User, f.Password),
		Host:     net.JoinHostPort(f.Host, strconv.Itoa(f.PortOr(DefaultPort))),
		Path:     "/" + f.Database,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

var (
	_ storage.Driver          = (*Driver)(nil)
	_ connection.DSNFormatter = (*Driver)(nil)
)
