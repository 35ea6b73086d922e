package main

import (
	"log/slog"
	"os"

	"github.com/DjordjeVuckovic/sqlconnector/internal/storage/factory"
	"github.com/DjordjeVuckovic/sqlconnector/pkg/config/env"
)

const dotEnvPath = "cmd/sqlgateway/.env"

type AppConfig struct {
	ENV string
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		ENV: os.Getenv("ENV"),
	}
}

type GatewayConfig struct {
	StorageConfig factory.StorageConfig
}

func (as *AppConfig) Load() (*GatewayConfig, error) {
	err := env.LoadDotEnv(as.ENV, dotEnvPath)
	if err != nil {
		slog.Info("Failed to .env load environment variables, continuing with existing environment variables", "error", err)
	}

	storageCfg, err := factory.LoadEnv()
	if err != nil {
		slog.Error("Failed to load storage configuration from environment", "error", err)
		return nil, err
	}

	return &GatewayConfig{
		StorageConfig: *storageCfg,
	}, nil
}
