package drconsulta

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/telemedicine-client/internal/cache"
	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
	"github.com/wolfman30/telemedicine-client/pkg/logging"
)

var brt = time.FixedZone("BRT", -3*60*60)

const (
	loginRoute        = "POST /v1/login/auth"
	listingRoute      = "GET /v1/profissional/slotsAtivos"
	appointmentRoute  = "POST /v1/agendamento"
	subscriptionRoute = "POST /v1/subscription"
)

// fakeAPI serves one DrConsulta API (marketplace or health plan).
type fakeAPI struct {
	t        *testing.T
	mu       sync.Mutex
	hits     map[string]int
	requests map[string]*http.Request
	bodies   map[string][]byte
	handlers map[string]http.HandlerFunc
}

func newFakeAPI(t *testing.T, token string) *fakeAPI {
	f := &fakeAPI{
		t:        t,
		hits:     map[string]int{},
		requests: map[string]*http.Request{},
		bodies:   map[string][]byte{},
		handlers: map[string]http.HandlerFunc{},
	}
	f.respond(loginRoute, http.StatusOK, `{"access_token":"`+token+`","expires_in":3600}`)
	return f
}

func (f *fakeAPI) fixture(route, name string) {
	f.handlers[route] = func(w http.ResponseWriter, r *http.Request) {
		data, err := os.ReadFile(filepath.Join("testdata", name))
		assert.NoError(f.t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}
}

func (f *fakeAPI) respond(route string, status int, body string) {
	f.handlers[route] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.hits[route]++
	f.requests[route] = r
	f.bodies[route] = body
	h, ok := f.handlers[route]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (f *fakeAPI) lastRequest(route string) *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[route]
}

func (f *fakeAPI) lastBody(route string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[route]
}

func (f *fakeAPI) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type harness struct {
	marketplace *fakeAPI
	healthPlan  *fakeAPI
	clock       *clock
	cfg         Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		marketplace: newFakeAPI(t, "marketplace-token"),
		healthPlan:  newFakeAPI(t, "health-plan-token"),
		clock:       &clock{now: time.Date(2023, 2, 16, 12, 0, 0, 0, time.UTC)},
	}
	h.marketplace.fixture(listingRoute, "schedule.json")

	mts := httptest.NewServer(h.marketplace)
	t.Cleanup(mts.Close)
	hts := httptest.NewServer(h.healthPlan)
	t.Cleanup(hts.Close)

	h.cfg = Config{
		MarketplaceBaseURL:       mts.URL,
		HealthPlanBaseURL:        hts.URL,
		ClientID:                 "client-id",
		Secret:                   "secret",
		MarketplaceDefaultUnitID: 10,
		HealthPlanContractID:     "contract-77",
		Location:                 brt,
		Logger:                   logging.Discard(),
		Now:                      h.clock.Now,
	}
	return h
}

func (h *harness) provider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(h.cfg)
	require.NoError(t, err)
	return p
}

func patientData() telemedicine.PatientData {
	return telemedicine.PatientData{
		Name:      "Maria Silva",
		Document:  "12345678909",
		BirthDate: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		Gender:    telemedicine.GenderFemale,
		Email:     "maria@example.com",
		Phone:     "11987654321",
	}
}

func slotIDs(slots telemedicine.SlotCollection) []string {
	var ids []string
	slots.Each(func(_ int, s telemedicine.AppointmentSlot) { ids = append(ids, s.ID) })
	return ids
}

func doctorNames(doctors telemedicine.DoctorCollection) []string {
	var names []string
	doctors.Each(func(_ int, d telemedicine.Doctor) { names = append(names, d.Name) })
	return names
}

func TestNewValidatesConfig(t *testing.T) {
	valid := Config{ClientID: "c", Secret: "s", MarketplaceDefaultUnitID: 1, HealthPlanContractID: "k"}
	tests := []struct {
		name    string
		mutate  func(*Config)
		setting string
	}{
		{"missing unit", func(c *Config) { c.MarketplaceDefaultUnitID = 0 }, "DR_CONSULTA_MARKETPLACE_DEFAULT_UNIT_ID"},
		{"missing client id", func(c *Config) { c.ClientID = " " }, "DR_CONSULTA_CLIENT_ID"},
		{"missing secret", func(c *Config) { c.Secret = "" }, "DR_CONSULTA_SECRET"},
		{"missing contract", func(c *Config) { c.HealthPlanContractID = "" }, "DR_CONSULTA_HEALTH_PLAN_CONTRACT_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := New(cfg)
			var cfgErr *telemedicine.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.setting, cfgErr.Setting)
		})
	}

	p, err := New(valid)
	require.NoError(t, err)
	assert.Equal(t, DefaultMarketplaceBaseURL+"/", p.client.BaseURL())
	assert.Equal(t, DefaultHealthPlanBaseURL+"/", p.healthPlan.BaseURL())
}

func TestCapabilities(t *testing.T) {
	p := newHarness(t).provider(t)
	caps := telemedicine.CapabilitiesOf(p)
	assert.Equal(t, []string{"finds_doctors", "registers_patients", "schedules"}, caps.List())
}

func TestGetDoctorsNormalizesListing(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t)

	doctors, err := p.GetDoctors(context.Background(), telemedicine.DoctorQuery{})
	require.NoError(t, err)
	require.Equal(t, 2, doctors.Len())

	first, _ := doctors.At(0)
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "Doctor 1", first.Name)
	assert.Equal(t, telemedicine.GenderFemale, first.Gender)
	require.NotNil(t, first.Rating)
	assert.Equal(t, 9.4, first.Rating.Value())
	assert.Equal(t, "CRM-SP 12345", first.RegistrationNumber)
	assert.Equal(t, "https://cdn.drconsulta.com/profissionais/1-small.jpg", first.PhotoURL)
	assert.False(t, first.HasSlots())

	second, _ := doctors.At(1)
	assert.Equal(t, "2", second.ID)
	assert.Equal(t, telemedicine.GenderMale, second.Gender)
	assert.Equal(t, 9.8, second.Rating.Value())
	assert.Empty(t, second.PhotoURL)

	req := h.marketplace.lastRequest(listingRoute)
	require.NotNil(t, req)
	assert.Equal(t, "Bearer marketplace-token", req.Header.Get("Authorization"))
	assert.Equal(t, "10", req.URL.Query().Get("idUnidade"))
	assert.False(t, req.URL.Query().Has("idProduto"))

	var login map[string]string
	require.NoError(t, json.Unmarshal(h.marketplace.lastBody(loginRoute), &login))
	assert.Equal(t, map[string]string{"client_id": "client-id", "secret": "secret"}, login)
}

func TestGetDoctorsFiltersByNameAndSpecialty(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t)

	doctors, err := p.GetDoctors(context.Background(), telemedicine.DoctorQuery{Specialty: "31", Name: "doctor 2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Doctor 2"}, doctorNames(doctors))
	assert.Equal(t, "31", h.marketplace.lastRequest(listingRoute).URL.Query().Get("idProduto"))
}

func TestGetSlotsForDoctor(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t)
	ctx := context.Background()

	slots, err := p.GetSlotsForDoctor(ctx, "2", telemedicine.SlotQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4"}, slotIDs(slots))

	slots.Each(func(_ int, s telemedicine.AppointmentSlot) {
		require.NotNil(t, s.Price)
		assert.Equal(t, int64(6500), s.Price.Cents())
	})
	first, _ := slots.First()
	assert.True(t, first.DateTime.Equal(time.Date(2023, 2, 18, 16, 0, 0, 0, brt)))
	assert.Equal(t, brt, first.DateTime.Location())

	_, err = p.GetSlotsForDoctor(ctx, "1", telemedicine.SlotQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, h.marketplace.count(loginRoute))
	assert.Equal(t, 2, h.marketplace.count(listingRoute))

	unknown, err := p.GetSlotsForDoctor(ctx, "99", telemedicine.SlotQuery{})
	require.NoError(t, err)
	assert.True(t, unknown.IsEmpty())
}

func TestGetSlotsForDoctorAppliesUntilAndLimit(t *testing.T) {
	p := newHarness(t).provider(t)
	ctx := context.Background()

	slots, err := p.GetSlotsForDoctor(ctx, "1", telemedicine.SlotQuery{
		Until: telemedicine.EndOfDay(time.Date(2023, 2, 17, 0, 0, 0, 0, brt)),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, slotIDs(slots))

	slots, err = p.GetSlotsForDoctor(ctx, "2", telemedicine.SlotQuery{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, slotIDs(slots))
}

func TestGetDoctorsWithSlots(t *testing.T) {
	p := newHarness(t).provider(t)
	ctx := context.Background()

	doctors, err := p.GetDoctorsWithSlots(ctx, telemedicine.SlotQuery{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Doctor 1", "Doctor 2"}, doctorNames(doctors))
	doctors.Each(func(_ int, d telemedicine.Doctor) {
		slots, ok := d.Slots()
		require.True(t, ok)
		assert.Equal(t, 1, slots.Len())
	})

	doctors, err = p.GetDoctorsWithSlots(ctx, telemedicine.SlotQuery{
		Until: telemedicine.EndOfDay(time.Date(2023, 2, 17, 0, 0, 0, 0, brt)),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Doctor 1"}, doctorNames(doctors))

	doctors, err = p.GetDoctorsWithSlots(ctx, telemedicine.SlotQuery{DoctorID: "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Doctor 2"}, doctorNames(doctors))
}

func TestGetDoctorSlot(t *testing.T) {
	p := newHarness(t).provider(t)
	ctx := context.Background()

	slot, err := p.GetDoctorSlot(ctx, "1", "2")
	require.NoError(t, err)
	require.NotNil(t, slot.Price)
	assert.Equal(t, "50.01", slot.Price.String())

	_, err = p.GetDoctorSlot(ctx, "99", "1")
	assert.ErrorIs(t, err, telemedicine.ErrDoctorNotFound)

	_, err = p.GetDoctorSlot(ctx, "1", "3")
	assert.ErrorIs(t, err, telemedicine.ErrSlotNotFound)
	assert.Contains(t, err.Error(), "slot with ID 3 not found for doctor 1")
}

func TestGetDoctor(t *testing.T) {
	p := newHarness(t).provider(t)
	ctx := context.Background()

	doctor, err := p.GetDoctor(ctx, "1", false)
	require.NoError(t, err)
	assert.Equal(t, "Doctor 1", doctor.Name)
	assert.False(t, doctor.HasSlots())

	doctor, err = p.GetDoctor(ctx, "1", true)
	require.NoError(t, err)
	slots, ok := doctor.Slots()
	require.True(t, ok)
	assert.Equal(t, []string{"1", "2"}, slotIDs(slots))

	_, err = p.GetDoctor(ctx, "42", false)
	assert.True(t, telemedicine.IsNotFound(err))
}

func TestUpstreamErrorsAreNormalized(t *testing.T) {
	h := newHarness(t)
	h.marketplace.respond(listingRoute, http.StatusBadRequest, `{"mensagem":"Unidade inexistente"}`)
	p := h.provider(t)

	_, err := p.GetDoctors(context.Background(), telemedicine.DoctorQuery{})
	var reqErr *telemedicine.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusBadRequest, reqErr.StatusCode)
	assert.Equal(t, telemedicine.RequestErrorMessage("Unidade inexistente"), reqErr.Message)
}

func TestLoginFailureIsARequestError(t *testing.T) {
	h := newHarness(t)
	h.marketplace.respond(loginRoute, http.StatusUnauthorized, `{"message":"invalid credentials"}`)
	p := h.provider(t)

	_, err := p.GetDoctors(context.Background(), telemedicine.DoctorQuery{})
	require.True(t, telemedicine.IsRequestError(err))
	assert.Contains(t, err.Error(), "invalid credentials")
	assert.Zero(t, h.marketplace.count(listingRoute))
}

func TestTokenLifetimeFallsBackToJWTExpiry(t *testing.T) {
	h := newHarness(t)
	exp := h.clock.now.Add(30 * time.Minute)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	h.marketplace.respond(loginRoute, http.StatusOK, `{"access_token":"`+raw+`"}`)
	p := h.provider(t)
	ctx := context.Background()

	_, err = p.GetDoctors(ctx, telemedicine.DoctorQuery{})
	require.NoError(t, err)
	tok := p.session.Current()
	require.NotNil(t, tok)
	assert.Equal(t, exp.Add(-telemedicine.TokenSafetyThreshold), tok.ExpiresAt())

	h.clock.now = h.clock.now.Add(29 * time.Minute)
	_, err = p.GetDoctors(ctx, telemedicine.DoctorQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, h.marketplace.count(loginRoute))
}

func TestTokenFromLoginDefaultsToOneHour(t *testing.T) {
	issued := time.Date(2023, 2, 16, 12, 0, 0, 0, time.UTC)
	tok, err := tokenFromLogin(loginResponse{AccessToken: "opaque"}, issued)
	require.NoError(t, err)
	assert.Equal(t, issued.Add(time.Hour-time.Minute), tok.ExpiresAt())

	_, err = tokenFromLogin(loginResponse{}, issued)
	assert.Error(t, err)
}

func TestUpdateOrCreatePatient(t *testing.T) {
	h := newHarness(t)
	h.healthPlan.fixture(subscriptionRoute, "subscription.json")
	p := h.provider(t)

	patient, err := p.UpdateOrCreatePatient(context.Background(), patientData())
	require.NoError(t, err)
	assert.Equal(t, "98765", patient.ID)
	assert.Equal(t, "Maria Silva", patient.Name)

	req := h.healthPlan.lastRequest(subscriptionRoute)
	require.NotNil(t, req)
	assert.Equal(t, "Bearer health-plan-token", req.Header.Get("Authorization"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(h.healthPlan.lastBody(subscriptionRoute), &body))
	assert.Equal(t, map[string]string{
		"cpf":             "12345678909",
		"nome":            "Maria Silva",
		"mail":            "maria@example.com",
		"matricula":       "12345678909",
		"sexo":            "F",
		"nasc":            "1990-05-17",
		"codigo_parceiro": "contract-77",
	}, body)
	assert.Zero(t, h.marketplace.count(loginRoute))
}

func TestUpdateOrCreatePatientValidatesFirst(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t)
	data := patientData()
	data.Email = "not-an-email"

	_, err := p.UpdateOrCreatePatient(context.Background(), data)
	assert.True(t, telemedicine.IsValidationError(err))
	assert.Zero(t, h.healthPlan.count(loginRoute))
	assert.Zero(t, h.healthPlan.count(subscriptionRoute))
}

func TestSchedule(t *testing.T) {
	h := newHarness(t)
	h.marketplace.fixture(appointmentRoute, "appointment.json")
	p := h.provider(t)

	appt, err := p.Schedule(context.Background(), telemedicine.ScheduleRequest{
		Specialty: "31",
		DoctorID:  "1",
		SlotID:    "2",
		PatientID: "98765",
	})
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4e5", appt.ID)
	assert.True(t, appt.DateTime.Equal(time.Date(2023, 2, 18, 15, 0, 0, 0, brt)))
	require.NotNil(t, appt.Status)
	assert.Equal(t, telemedicine.StatusScheduled, *appt.Status)

	var body map[string]any
	require.NoError(t, json.Unmarshal(h.marketplace.lastBody(appointmentRoute), &body))
	assert.Equal(t, map[string]any{
		"idPaciente": "98765",
		"idUnidade":  float64(10),
		"idProduto":  "31",
		"idSlot":     "2",
	}, body)
	assert.Equal(t, 1, h.marketplace.count(loginRoute))
}

func TestScheduleFallsBackToNumericID(t *testing.T) {
	h := newHarness(t)
	h.marketplace.respond(appointmentRoute, http.StatusCreated, `{"id": 5551}`)
	p := h.provider(t)

	appt, err := p.Schedule(context.Background(), telemedicine.ScheduleRequest{DoctorID: "2", SlotID: "4", PatientID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "5551", appt.ID)
}

func TestScheduleRejectsUnknownSlot(t *testing.T) {
	h := newHarness(t)
	h.marketplace.fixture(appointmentRoute, "appointment.json")
	p := h.provider(t)
	ctx := context.Background()

	_, err := p.Schedule(ctx, telemedicine.ScheduleRequest{DoctorID: "1", SlotID: "4", PatientID: "1"})
	assert.ErrorIs(t, err, telemedicine.ErrSlotNotFound)

	_, err = p.Schedule(ctx, telemedicine.ScheduleRequest{DoctorID: "1", SlotID: "1"})
	assert.True(t, telemedicine.IsValidationError(err))
	assert.Zero(t, h.marketplace.count(appointmentRoute))
}

func TestListingIsCachedUntilExpiry(t *testing.T) {
	h := newHarness(t)
	h.cfg.Cache = cache.New(cache.NewMemoryBackend(), cache.WithLogger(logging.Discard()))
	p := h.provider(t)
	p.CacheUntil(time.Now().Add(time.Hour))
	ctx := context.Background()

	_, err := p.GetDoctors(ctx, telemedicine.DoctorQuery{})
	require.NoError(t, err)
	_, err = p.GetSlotsForDoctor(ctx, "1", telemedicine.SlotQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, h.marketplace.count(listingRoute))

	_, err = p.GetDoctors(ctx, telemedicine.DoctorQuery{Specialty: "31"})
	require.NoError(t, err)
	assert.Equal(t, 2, h.marketplace.count(listingRoute))

	p.WithoutCache()
	_, err = p.GetDoctors(ctx, telemedicine.DoctorQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, h.marketplace.count(listingRoute))
}

func TestInvalidRatingFailsNormalization(t *testing.T) {
	h := newHarness(t)
	h.marketplace.respond(listingRoute, http.StatusOK,
		`[{"profissional":{"id_profissional":1,"nome":"X","nota":11},"horarios":[]}]`)
	p := h.provider(t)

	_, err := p.GetDoctors(context.Background(), telemedicine.DoctorQuery{})
	assert.True(t, telemedicine.IsValidationError(err))
	assert.Contains(t, err.Error(), "the rating value must be between 0 and 10")
}
