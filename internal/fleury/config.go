package fleury

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
	// Slug identifies the adapter in the manager.
	Slug = "fleury"

	// DefaultBaseURL is the homologation environment.
	DefaultBaseURL = "https://api-hml.grupofleury.com.br"
)

// Config holds the Fleury connection settings and collaborators.
type Config struct {
	BaseURL      string
	APIKey       string
	ClientID     string
	WebhookToken string

	// Location is the application time zone slot times are converted to.
	Location   *time.Location
	HTTPClient *http.Client
	Cache      cache.Store
	Logger     *logging.Logger
	Metrics    *metrics.ProviderMetrics
	Now        func() time.Time
}

// Validate fails fast on missing required settings.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return telemedicine.MissingSetting("FLEURY_API_KEY", "api key")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return telemedicine.MissingSetting("FLEURY_CLIENT_ID", "client id")
	}
	return nil
}

func (c Config) baseURL() string {
	if strings.TrimSpace(c.BaseURL) == "" {
		return DefaultBaseURL
	}
	return c.BaseURL
}
