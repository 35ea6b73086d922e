// Command sqlgateway exposes parameterized query and non-query execution
// over HTTP.
package main

import (
	"log/slog"
	"os"

	"github.com/DjordjeVuckovic/sqlconnector/internal/connection"
	"github.com/DjordjeVuckovic/sqlconnector/internal/metrics"
	"github.com/DjordjeVuckovic/sqlconnector/internal/router"
	"github.com/DjordjeVuckovic/sqlconnector/internal/server"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage/factory"
	"github.com/labstack/echo/v4"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelDebug)

	appSettings := NewAppConfig()
	cfg, err := appSettings.Load()
	if err != nil {
		slog.Error("Failed to load app configuration", "error", err)
		os.Exit(1)
		return
	}

	sCfg, err := server.LoadConfig(dotEnvPath)
	if err != nil {
		slog.Error("Failed to load server config", "error", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector(string(cfg.StorageConfig.Type))
	connFactory, err := factory.NewConnectionFactory(&cfg.StorageConfig, collector)
	if err != nil {
		slog.Error("Failed to create connection factory", "error", err)
		os.Exit(1)
		return
	}

	s := server.New(sCfg, connection.NewHealthChecker(connFactory)).
		SetupMiddlewares().
		SetupErrorHandler().
		SetupHealthChecks("/health").
		SetupMetrics("/metrics", collector)

	s.Echo.GET("/", func(c echo.Context) error {
		return c.String(200, "SQL gateway is running")
	})

	queryRouter := router.NewQueryRouter(s.Echo, connFactory,
		router.WithExecOptions(&cfg.StorageConfig.Exec),
		router.WithMetrics(collector))
	queryRouter.Bind()

	slog.Info("Gateway configured",
		"driver", connFactory.DriverName(),
		"descriptor", connFactory.Descriptor().Redacted(),
		"timeoutSeconds", cfg.StorageConfig.Exec.TimeoutSeconds)

	go func() {
		<-s.ShutdownSignal()
		slog.Info("Shutdown started, cleaning up resources...")
	}()

	err = s.Start()
	if err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
