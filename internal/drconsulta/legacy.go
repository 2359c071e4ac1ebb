package drconsulta

import (
	"time"

	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
)

// LegacyProvider is the first DrConsulta generation. It only lists doctors
// and slots; the listing is flat, with professional fields next to the slots.
type LegacyProvider struct {
	*catalog
}

var _ telemedicine.Provider = (*LegacyProvider)(nil)

// NewLegacy builds the read-only adapter. The health plan settings are not
// required.
func NewLegacy(cfg Config) (*LegacyProvider, error) {
	if err := cfg.validateMarketplace(); err != nil {
		return nil, err
	}
	c, err := newCatalog(LegacySlug, cfg.withDefaults(), decodeLegacySchedule)
	if err != nil {
		return nil, err
	}
	return &LegacyProvider{catalog: c}, nil
}

func (p *LegacyProvider) Slug() string { return LegacySlug }

func (p *LegacyProvider) CacheUntil(expiry time.Time) telemedicine.Provider {
	p.cache.CacheUntil(expiry)
	return p
}

func (p *LegacyProvider) WithoutCache() telemedicine.Provider {
	p.cache.WithoutCache()
	return p
}
