package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DjordjeVuckovic/sqlconnector/internal/apperr"
	mw "github.com/DjordjeVuckovic/sqlconnector/pkg/middleware"
	pkgserver "github.com/DjordjeVuckovic/sqlconnector/pkg/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	GracefulShutdownTimeout = 10 * time.Second
)

type Server struct {
	Echo *echo.Echo

	cfg           *Config
	healthChecker pkgserver.HealthChecker
	quietPaths    []string

	ctx      context.Context
	stop     context.CancelFunc
	shutdown chan struct{}
}

// New builds a server whose health endpoint passes only when every checker
// does.
func New(cfg *Config, checkers ...pkgserver.HealthChecker) *Server {
	e := echo.New()
	e.HideBanner = true
	e.DisableHTTP2 = !cfg.UseHttp2

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &Server{
		Echo:          e,
		cfg:           cfg,
		healthChecker: pkgserver.All(checkers...),
		quietPaths:    []string{"/health", "/metrics"},
		ctx:           ctx,
		stop:          stop,
		shutdown:      make(chan struct{}),
	}
}

// Context is cancelled when the process receives an interrupt.
func (s *Server) Context() context.Context {
	return s.ctx
}

// ShutdownSignal is closed once graceful shutdown begins.
func (s *Server) ShutdownSignal() <-chan struct{} {
	return s.shutdown
}

func (s *Server) SetupMiddlewares() *Server {
	s.Echo.Use(mw.Logger(mw.WithSkipPaths(s.quietPaths...)))
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.cfg.CorsOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete},
	}))
	return s
}

func (s *Server) SetupErrorHandler() *Server {
	s.Echo.HTTPErrorHandler = apperr.GlobalErrorHandler()
	return s
}

func (s *Server) SetupHealthChecks(path string) *Server {
	s.Echo.GET(path, func(c echo.Context) error {
		if !s.healthChecker.Healthy(c.Request().Context()) {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	return s
}

// SetupMetrics registers collectors on a dedicated registry and serves it at
// path.
func (s *Server) SetupMetrics(path string, collectors ...prometheus.Collector) *Server {
	reg := prometheus.NewRegistry()
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			slog.Error("Failed to register metrics collector", "error", err)
		}
	}
	s.Echo.GET(path, echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	return s
}

func (s *Server) Start() error {
	defer s.stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", s.cfg.Port)
		if err := s.Echo.Start(":" + s.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-s.ctx.Done():
	case err := <-errCh:
		close(s.shutdown)
		return err
	}

	close(s.shutdown)

	ctx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
	defer cancel()

	if err := s.Echo.Shutdown(ctx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
		return err
	}
	slog.Info("Server stopped")
	return nil
}
