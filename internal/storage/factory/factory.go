package factory

import (
	"fmt"

	"github.com/DjordjeVuckovic/sqlconnector/internal/connection"
	"github.com/DjordjeVuckovic/sqlconnector/internal/metrics"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage/pg"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage/sqldb"
)

// NewDriver returns the storage.Driver for the given engine.
func NewDriver(driverType storage.Type) (storage.Driver, error) {
	switch driverType {
	case storage.SQLServer:
		return sqldb.SQLServer(), nil
	case storage.Postgres:
		return pg.NewDriver(), nil
	case storage.MySQL:
		return sqldb.MySQL(), nil
	case storage.SQLite:
		return sqldb.SQLite(), nil
	default:
		return nil, fmt.Errorf(string(storage.ErrUnsupportedDriver), driverType)
	}
}

// NewConnectionFactory wires the configured driver and descriptor into a
// connection.Factory.
func NewConnectionFactory(cfg *StorageConfig, collector *metrics.Collector) (*connection.Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is nil")
	}
	driver, err := NewDriver(cfg.Type)
	if err != nil {
		return nil, err
	}
	return connection.New(driver, cfg.Descriptor, connection.WithMetrics(collector)), nil
}
