package bootstrap

import (
	"log/slog"
	"net/http"

	"github.com/profilegate/screener/config"
	httpx "github.com/profilegate/screener/internal/http"
)

// NewHTTPServer builds the API server from the service container.
func NewHTTPServer(cfg config.HTTPConfig, services *ServiceContainer, logger *slog.Logger) *http.Server {
	router := httpx.NewRouter(httpx.RouterOptions{
		Gate: services.Gate,
		Jobs: services.Jobs,
	})

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}
