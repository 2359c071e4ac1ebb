package bootstrap

import (
	"net/http"
	"time"

	"github.com/wolfman30/telemedicine-client/internal/cache"
	appconfig "github.com/wolfman30/telemedicine-client/internal/config"
	"github.com/wolfman30/telemedicine-client/internal/drconsulta"
	"github.com/wolfman30/telemedicine-client/internal/fleury"
	"github.com/wolfman30/telemedicine-client/internal/manager"
	"github.com/wolfman30/telemedicine-client/internal/observability/metrics"
	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
	"github.com/wolfman30/telemedicine-client/pkg/logging"
)

// ProviderDeps are the shared collaborators handed to every adapter.
type ProviderDeps struct {
	Store      cache.Store
	Location   *time.Location
	HTTPClient *http.Client
	Logger     *logging.Logger
	Metrics    *metrics.ProviderMetrics
	Now        func() time.Time
}

// BuildManager registers a factory for every provider enabled in cfg.
// Credentials are validated when a provider is first resolved.
func BuildManager(cfg *appconfig.Config, deps ProviderDeps) *manager.Manager {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	m := manager.New(manager.WithLogger(deps.Logger), manager.WithMetrics(deps.Metrics))
	for _, slug := range cfg.Providers {
		factory, ok := providerFactory(slug, cfg, deps)
		if !ok {
			deps.Logger.Warn("ignoring unknown provider", "slug", slug)
			continue
		}
		m.Register(slug, factory)
	}
	return m
}

func providerFactory(slug string, cfg *appconfig.Config, deps ProviderDeps) (manager.Factory, bool) {
	logger := deps.Logger.With("provider", slug)
	withCache := func(p telemedicine.Provider) telemedicine.Provider {
		if expiry := cfg.CacheExpiry(deps.Now()); !expiry.IsZero() && deps.Store != nil {
			return p.CacheUntil(expiry)
		}
		return p.WithoutCache()
	}

	switch slug {
	case fleury.Slug:
		return func() (telemedicine.Provider, error) {
			p, err := fleury.New(fleury.Config{
				BaseURL:      cfg.FleuryBaseURL,
				APIKey:       cfg.FleuryAPIKey,
				ClientID:     cfg.FleuryClientID,
				WebhookToken: cfg.FleuryWebhookToken,
				Location:     deps.Location,
				HTTPClient:   deps.HTTPClient,
				Cache:        deps.Store,
				Logger:       logger,
				Metrics:      deps.Metrics,
				Now:          deps.Now,
			})
			if err != nil {
				return nil, err
			}
			return withCache(p), nil
		}, true
	case drconsulta.Slug, drconsulta.LegacySlug:
		dcfg := drconsulta.Config{
			MarketplaceBaseURL:       cfg.DrConsultaMarketplaceBaseURL,
			HealthPlanBaseURL:        cfg.DrConsultaHealthPlanBaseURL,
			ClientID:                 cfg.DrConsultaClientID,
			Secret:                   cfg.DrConsultaSecret,
			MarketplaceDefaultUnitID: cfg.DrConsultaMarketplaceDefaultUnitID,
			HealthPlanContractID:     cfg.DrConsultaHealthPlanContractID,
			Location:                 deps.Location,
			HTTPClient:               deps.HTTPClient,
			Cache:                    deps.Store,
			Logger:                   logger,
			Metrics:                  deps.Metrics,
			Now:                      deps.Now,
		}
		if slug == drconsulta.LegacySlug {
			return func() (telemedicine.Provider, error) {
				p, err := drconsulta.NewLegacy(dcfg)
				if err != nil {
					return nil, err
				}
				return withCache(p), nil
			}, true
		}
		return func() (telemedicine.Provider, error) {
			p, err := drconsulta.New(dcfg)
			if err != nil {
				return nil, err
			}
			return withCache(p), nil
		}, true
	}
	return nil, false
}
