package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/arkline/erp-api/config"
	"github.com/arkline/erp-api/internal/adapters/devauth"
	"github.com/arkline/erp-api/internal/adapters/gotrue"
	"github.com/arkline/erp-api/internal/ports"
)

// IdentityBundle is the provider pair the services layer consumes. Admin is
// nil when no privileged credential is configured; repair paths then surface
// configuration errors instead of silently skipping.
type IdentityBundle struct {
	Provider ports.IdentityProvider
	Admin    ports.IdentityAdmin
}

// BuildIdentity selects and constructs the identity provider for the
// configured auth mode.
func BuildIdentity(cfg config.AuthConfig, logger *slog.Logger) (IdentityBundle, error) {
	log := logger
	if log == nil {
		log = slog.Default()
	}

	switch cfg.Mode {
	case config.AuthModeDev:
		provider := devauth.NewProvider()
		log.Warn("using in-memory dev auth provider; principals are not persisted")
		return IdentityBundle{Provider: provider, Admin: provider.Admin()}, nil

	case config.AuthModeGoTrue:
		provider, err := gotrue.NewProvider(gotrue.Config{
			BaseURL:    cfg.Provider.BaseURL,
			APIKey:     cfg.Provider.APIKey,
			ServiceKey: cfg.Provider.ServiceKey,
			Timeout:    cfg.Provider.Timeout,
		})
		if err != nil {
			return IdentityBundle{}, fmt.Errorf("build auth provider: %w", err)
		}
		admin := provider.Admin()
		if admin == nil {
			log.Warn("auth provider service key not set; login-time repairs are disabled")
		}
		return IdentityBundle{Provider: provider, Admin: admin}, nil

	default:
		return IdentityBundle{}, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}
