package factory

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/DjordjeVuckovic/sqlconnector/internal/connection"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage"
	"github.com/DjordjeVuckovic/sqlconnector/pkg/config/env"
)

type StorageConfig struct {
	storage.Type
	Descriptor connection.Descriptor
	Exec       storage.ExecOptions
}

// LoadEnv reads the DB_* variables. DB_CONNECTION_STRING wins over the
// discrete DB_HOST/DB_PORT/DB_NAME/DB_USER/DB_PASSWORD fields.
func LoadEnv() (*StorageConfig, error) {
	driverType := storage.Type(strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER"))))
	if driverType == "" {
		slog.Error("DB_DRIVER environment variable is not set")
		return nil, fmt.Errorf("DB_DRIVER environment variable is not set")
	}
	if !driverType.Valid() {
		slog.Error("Invalid DB_DRIVER environment variable value", "value", driverType)
		return nil, fmt.Errorf(
			"invalid DB_DRIVER environment variable value: %s, expected one of %v",
			driverType,
			storage.Types)
	}

	desc, err := loadDescriptor()
	if err != nil {
		return nil, err
	}

	timeout, err := env.NonNegativeInt("DB_TIMEOUT_SECONDS", 0)
	if err != nil {
		slog.Error("Invalid DB_TIMEOUT_SECONDS environment variable value", "error", err)
		return nil, err
	}

	return &StorageConfig{
		Type:       driverType,
		Descriptor: desc,
		Exec:       storage.ExecOptions{TimeoutSeconds: timeout},
	}, nil
}

func loadDescriptor() (connection.Descriptor, error) {
	if raw := os.Getenv("DB_CONNECTION_STRING"); raw != "" {
		return connection.FromString(raw), nil
	}

	fields := connection.Fields{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		Database: os.Getenv("DB_NAME"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
	}
	if fields.Host == "" {
		slog.Error("Database connection is not configured, set DB_CONNECTION_STRING or DB_HOST")
		return connection.Descriptor{}, fmt.Errorf("database connection is not configured")
	}

	desc, err := connection.FromFields(fields)
	if err != nil {
		slog.Error("Invalid database connection fields", "error", err)
		return connection.Descriptor{}, err
	}
	return desc, nil
}
