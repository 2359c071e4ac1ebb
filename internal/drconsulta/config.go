package drconsulta

import (
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/telemedicine-client/internal/cache"
	"github.com/wolfman30/telemedicine-client/internal/observability/metrics"
	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
	"github.com/wolfman30/telemedicine-client/pkg/logging"
)

const (
	// Slug identifies the current API generation.
	Slug = "dr-consulta"
	// LegacySlug identifies the first API generation.
	LegacySlug = "dr-consulta-v1"

	DefaultMarketplaceBaseURL = "https://b2bmarketplaceapihomolog.drconsulta.com"
	DefaultHealthPlanBaseURL  = "https://b2bconveniosapihomolog.drconsulta.com"
)

// Config holds DrConsulta credentials for both the marketplace (slots,
// appointments) and the health plan (patient subscription) APIs.
type Config struct {
	MarketplaceBaseURL       string
	HealthPlanBaseURL        string
	ClientID                 string
	Secret                   string
	MarketplaceDefaultUnitID int
	HealthPlanContractID     string

	Location   *time.Location
	HTTPClient *http.Client
	Cache      cache.Store
	Logger     *logging.Logger
	Metrics    *metrics.ProviderMetrics
	Now        func() time.Time
}

// Validate checks everything the current generation needs.
func (c Config) Validate() error {
	if err := c.validateMarketplace(); err != nil {
		return err
	}
	if strings.TrimSpace(c.HealthPlanContractID) == "" {
		return telemedicine.MissingSetting("DR_CONSULTA_HEALTH_PLAN_CONTRACT_ID", "health plan contract id")
	}
	return nil
}

func (c Config) validateMarketplace() error {
	if c.MarketplaceDefaultUnitID <= 0 {
		return telemedicine.MissingSetting("DR_CONSULTA_MARKETPLACE_DEFAULT_UNIT_ID", "marketplace default unit id")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return telemedicine.MissingSetting("DR_CONSULTA_CLIENT_ID", "client id")
	}
	if strings.TrimSpace(c.Secret) == "" {
		return telemedicine.MissingSetting("DR_CONSULTA_SECRET", "secret")
	}
	return nil
}

func (c Config) marketplaceBaseURL() string {
	if strings.TrimSpace(c.MarketplaceBaseURL) == "" {
		return DefaultMarketplaceBaseURL
	}
	return c.MarketplaceBaseURL
}

func (c Config) healthPlanBaseURL() string {
	if strings.TrimSpace(c.HealthPlanBaseURL) == "" {
		return DefaultHealthPlanBaseURL
	}
	return c.HealthPlanBaseURL
}

func (c Config) withDefaults() Config {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = logging.Default()
	}
	return c
}
