package server

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/DjordjeVuckovic/sqlconnector/pkg/config/env"
	"github.com/DjordjeVuckovic/sqlconnector/pkg/stringsutil"
)

const DefaultPort = "8080"

type Config struct {
	Port        string
	UseHttp2    bool
	CorsOrigins []string
}

// LoadConfig reads PORT, USE_HTTP2 and CORS_ORIGINS, loading dotEnvPath
// first when it exists.
func LoadConfig(dotEnvPath string) (*Config, error) {
	err := env.LoadDotEnv(os.Getenv("ENV"), dotEnvPath)
	if err != nil {
		slog.Info("Skipping .env ...", "error", err)
	}

	useHttp2 := env.Bool("USE_HTTP2")
	port := env.StringOr("PORT", DefaultPort)

	if err := validatePort(port); err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}

	origins := stringsutil.SplitTrim(os.Getenv("CORS_ORIGINS"), ",")

	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Config{
		Port:        port,
		UseHttp2:    useHttp2,
		CorsOrigins: origins,
	}, nil
}

func validatePort(port string) error {
	portNum, err := strconv.Atoi(port)

	if err != nil {
		return errors.New("port must be a number")
	}

	if portNum < 1 || portNum > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	return nil
}
