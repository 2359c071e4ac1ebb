package manager

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/telemedicine-client/internal/fakeprovider"
	"github.com/wolfman30/telemedicine-client/internal/observability/metrics"
	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
	"github.com/wolfman30/telemedicine-client/pkg/logging"
)

func newManager(t *testing.T) (*Manager, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(WithLogger(logging.Discard()), WithMetrics(metrics.NewProviderMetrics(reg))), reg
}

func countingFactory(slug string, calls *int32) Factory {
	return func() (telemedicine.Provider, error) {
		atomic.AddInt32(calls, 1)
		return fakeprovider.New(fakeprovider.WithSlug(slug)), nil
	}
}

func TestResolveIsLazyAndMemoized(t *testing.T) {
	m, _ := newManager(t)
	var calls int32
	m.Register("fleury", countingFactory("fleury", &calls))
	assert.Zero(t, atomic.LoadInt32(&calls))

	first, err := m.Resolve("fleury")
	require.NoError(t, err)
	second, err := m.Resolve("fleury")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "fleury", first.Slug())
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestConcurrentResolveBuildsOnce(t *testing.T) {
	m, _ := newManager(t)
	var calls int32
	m.Register("dr-consulta", countingFactory("dr-consulta", &calls))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Resolve("dr-consulta")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestResolveUnknownSlug(t *testing.T) {
	m, reg := newManager(t)

	_, err := m.Resolve("acme")
	var cfgErr *telemedicine.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), `unable to resolve provider identified by "acme"`)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "telemedicine_manager_resolutions_total" {
			found = true
			require.Len(t, f.GetMetric(), 1)
			assert.Equal(t, 1.0, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

func TestFactoryErrorsAreNotMemoized(t *testing.T) {
	m, _ := newManager(t)
	fail := true
	m.Register("fleury", func() (telemedicine.Provider, error) {
		if fail {
			return nil, telemedicine.MissingSetting("FLEURY_API_KEY", "api key")
		}
		return fakeprovider.New(), nil
	})

	_, err := m.Resolve("fleury")
	assert.True(t, telemedicine.IsConfigError(err))

	fail = false
	p, err := m.Resolve("fleury")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestSwapIsolatesSlugs(t *testing.T) {
	m, _ := newManager(t)
	var calls int32
	m.Register("fleury", countingFactory("fleury", &calls))
	m.Register("dr-consulta", countingFactory("dr-consulta", &calls))

	replacement := fakeprovider.New(fakeprovider.WithSlug("replacement"))
	m.Swap("fleury", replacement)

	got, err := m.Resolve("fleury")
	require.NoError(t, err)
	assert.Same(t, replacement, got)

	other, err := m.Resolve("dr-consulta")
	require.NoError(t, err)
	assert.Equal(t, "dr-consulta", other.Slug())
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFakeAndClear(t *testing.T) {
	m, _ := newManager(t)
	var calls int32
	m.Register("fleury", countingFactory("fleury", &calls))

	fake := m.Fake("fleury")
	got, err := m.Resolve("fleury")
	require.NoError(t, err)
	assert.Same(t, fake, got)
	assert.Equal(t, "fleury", fake.Slug())
	assert.Zero(t, atomic.LoadInt32(&calls))

	m.ClearResolvedInstances()
	got, err = m.Resolve("fleury")
	require.NoError(t, err)
	assert.NotSame(t, fake, got)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSwapWithoutRegistration(t *testing.T) {
	m, _ := newManager(t)
	m.Register("fleury", countingFactory("fleury", new(int32)))
	m.Fake("sandbox")

	assert.Equal(t, []string{"fleury", "sandbox"}, m.Slugs())

	m.ClearResolvedInstances()
	_, err := m.Resolve("sandbox")
	assert.True(t, telemedicine.IsConfigError(err))
	assert.Equal(t, []string{"fleury"}, m.Slugs())
}

func TestRegisterReplacesFactory(t *testing.T) {
	m := New()
	m.Register("x", func() (telemedicine.Provider, error) { return nil, errors.New("old") })
	m.Register("x", func() (telemedicine.Provider, error) { return fakeprovider.New(), nil })
	_, err := m.Resolve("x")
	assert.NoError(t, err)
}
