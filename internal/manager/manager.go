// Package manager resolves telemedicine providers by slug.
package manager

import (
	"sort"
	"sync"

	"github.com/wolfman30/telemedicine-client/internal/fakeprovider"
	"github.com/wolfman30/telemedicine-client/internal/observability/metrics"
	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
	"github.com/wolfman30/telemedicine-client/pkg/logging"
)

// Factory builds a provider. It runs at most once per slug until it succeeds
// or the resolved instances are cleared.
type Factory func() (telemedicine.Provider, error)

// Manager holds one provider instance per slug. Instances are built lazily on
// first Resolve and can be replaced with Swap or Fake.
type Manager struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]telemedicine.Provider
	logger    *logging.Logger
	metrics   *metrics.ProviderMetrics
}

type Option func(*Manager)

func WithLogger(logger *logging.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMetrics(pm *metrics.ProviderMetrics) Option {
	return func(m *Manager) {
		m.metrics = pm
	}
}

func New(opts ...Option) *Manager {
	m := &Manager{
		factories: map[string]Factory{},
		instances: map[string]telemedicine.Provider{},
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register binds slug to factory, replacing any previous binding. An
// instance already resolved for slug is kept until cleared.
func (m *Manager) Register(slug string, factory Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[slug] = factory
}

// Resolve returns the instance for slug, building it on first use.
func (m *Manager) Resolve(slug string) (telemedicine.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.instances[slug]; ok {
		return p, nil
	}
	factory, ok := m.factories[slug]
	if !ok {
		err := telemedicine.NewConfigError("provider", "unable to resolve provider identified by %q", slug)
		m.metrics.ObserveResolution(slug, err)
		return nil, err
	}

	p, err := factory()
	m.metrics.ObserveResolution(slug, err)
	if err != nil {
		m.logger.Warn("provider resolution failed", "slug", slug, "error", err)
		return nil, err
	}
	m.instances[slug] = p
	m.logger.Debug("provider resolved", "slug", slug, "capabilities", telemedicine.CapabilitiesOf(p).String())
	return p, nil
}

// Swap makes Resolve return p for slug. The slug need not be registered.
func (m *Manager) Swap(slug string, p telemedicine.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[slug] = p
}

// Fake swaps a fresh in-memory provider in for slug and returns it.
func (m *Manager) Fake(slug string) *fakeprovider.Provider {
	fake := fakeprovider.New(fakeprovider.WithSlug(slug))
	m.Swap(slug, fake)
	return fake
}

// ClearResolvedInstances drops every resolved or swapped instance. Factories
// stay registered.
func (m *Manager) ClearResolvedInstances() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances = map[string]telemedicine.Provider{}
}

// Slugs lists every slug that Resolve can currently serve, sorted.
func (m *Manager) Slugs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := map[string]bool{}
	var out []string
	for slug := range m.factories {
		seen[slug] = true
		out = append(out, slug)
	}
	for slug := range m.instances {
		if !seen[slug] {
			out = append(out, slug)
		}
	}
	sort.Strings(out)
	return out
}
