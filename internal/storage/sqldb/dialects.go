package sqldb

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/sqlconnector/internal/connection"
	"github.com/go-sql-driver/mysql"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
	"modernc.org/sqlite"
)

const (
	DefaultSQLServerPort = 1433
	DefaultMySQLPort     = 3306
)

// SQLServer uses go-mssqldb. Raw descriptors may be either ADO strings
// (Server=host,port;Database=...;) or sqlserver:// URLs; Fields become a URL.
func SQLServer() *Driver {
	return New(Dialect{
		Name:       "sqlserver",
		DriverName: "sqlserver",
		FormatDSN:  sqlServerDSN,
		ErrorCode:  sqlServerErrorCode,
		ParseDSN:   parseSQLServerDSN,
	})
}

// MySQL uses go-sql-driver/mysql. The driver only knows positional '?'
// markers, so bound @name placeholders are rewritten; see rebindNamed.
func MySQL() *Driver {
	return New(Dialect{
		Name:       "mysql",
		DriverName: "mysql",
		FormatDSN:  mySQLDSN,
		Args:       rebindNamed,
		ErrorCode:  mySQLErrorCode,
		ParseDSN:   parseMySQLDSN,
	})
}

// SQLite uses modernc.org/sqlite. The DSN is the database file path.
func SQLite() *Driver {
	return New(Dialect{
		Name:       "sqlite",
		DriverName: "sqlite",
		FormatDSN:  sqliteDSN,
		ErrorCode:  sqliteErrorCode,
	})
}

func sqlServerDSN(f connection.Fields) (string, error) {
	q := url.Values{}
	if f.Database != "" {
		q.Set("database", f.Database)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(f.User, f.Password),
		Host:     net.JoinHostPort(f.Host, strconv.Itoa(f.PortOr(DefaultSQLServerPort))),
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

// parseSQLServerDSN accepts the ADO, URL and odbc: forms go-mssqldb reads.
func parseSQLServerDSN(dsn string) error {
	_, err := msdsn.Parse(dsn)
	return err
}

func parseMySQLDSN(dsn string) error {
	_, err := mysql.ParseDSN(dsn)
	return err
}

func mySQLDSN(f connection.Fields) (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = f.User
	cfg.Passwd = f.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(f.Host, strconv.Itoa(f.PortOr(DefaultMySQLPort)))
	cfg.DBName = f.Database
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func sqliteDSN(f connection.Fields) (string, error) {
	if strings.TrimSpace(f.Database) == "" {
		return "", errors.New("sqlite database path is required")
	}
	return f.Database, nil
}

func sqlServerErrorCode(err error) (string, string, bool) {
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return strconv.Itoa(int(msErr.Number)), msErr.Message, true
	}
	return "", "", false
}

func mySQLErrorCode(err error) (string, string, bool) {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return strconv.Itoa(int(myErr.Number)), myErr.Message, true
	}
	return "", "", false
}

func sqliteErrorCode(err error) (string, string, bool) {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return strconv.Itoa(liteErr.Code()), liteErr.Error(), true
	}
	return "", "", false
}
