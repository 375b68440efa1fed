package bootstrap

import (
	"log/slog"
	"net/http"

	"github.com/arkline/erp-api/config"
	httpx "github.com/arkline/erp-api/internal/http"
)

// NewHTTPServer builds the API server around the routed handler. Cookie
// security is relaxed in dev mode so local plain-HTTP logins work.
func NewHTTPServer(cfg *config.AppConfig, services ServiceContainer, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}

	cookieSecure := cfg.HTTP.CookieSecure
	if cfg.IsDev {
		cookieSecure = false
	}

	handler := httpx.NewRouter(httpx.RouterServices{
		Auth:         services.Auth,
		Checker:      services.Checker,
		Invoices:     services.Invoices,
		Clients:      services.Clients,
		CookieDomain: cfg.HTTP.CookieDomain,
		CookieSecure: cookieSecure,
		Logger:       logger,
	})

	addr := cfg.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
}
