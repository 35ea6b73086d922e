package storage

// Type names a supported database engine, as written in DB_DRIVER.
type Type string

const (
	SQLServer Type = "sqlserver"
	Postgres  Type = "postgres"
	MySQL     Type = "mysql"
	SQLite    Type = "sqlite"
)

var Types = []Type{SQLServer, Postgres, MySQL, SQLite}

func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

type DriverError string

const (
	ErrUnsupportedDriver DriverError = "unsupported driver type: %s"
)

func (e DriverError) Error() string {
	return string(e)
}
