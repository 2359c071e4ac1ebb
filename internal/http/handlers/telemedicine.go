package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/wolfman30/telemedicine-client/internal/http/middleware"
	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
	"github.com/wolfman30/telemedicine-client/pkg/logging"
)

// ProviderResolver is the part of the manager the gateway needs.
type ProviderResolver interface {
	Resolve(slug string) (telemedicine.Provider, error)
	Slugs() []string
}

type TelemedicineConfig struct {
	Resolver ProviderResolver
	Logger   *logging.Logger
	// CacheTTL is applied to every request; zero leaves the provider's cache
	// policy untouched.
	CacheTTL time.Duration
	Location *time.Location
	Now      func() time.Time
}

// TelemedicineHandler exposes the provider interface over HTTP. Adapters keep
// per-instance state (sessions, cache policy), so calls against one slug are
// serialized.
type TelemedicineHandler struct {
	resolver ProviderResolver
	logger   *logging.Logger
	cacheTTL time.Duration
	location *time.Location
	now      func() time.Time
	validate *validator.Validate

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTelemedicineHandler(cfg TelemedicineConfig) *TelemedicineHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TelemedicineHandler{
		resolver: cfg.Resolver,
		logger:   cfg.Logger,
		cacheTTL: cfg.CacheTTL,
		location: cfg.Location,
		now:      cfg.Now,
		validate: validator.New(),
		locks:    map[string]*sync.Mutex{},
	}
}

// Routes mounts under /v1/providers.
func (h *TelemedicineHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListProviders)
	r.Route("/{slug}", func(r chi.Router) {
		r.Get("/doctors", h.ListDoctors)
		r.Get("/doctors/slots", h.ListDoctorsWithSlots)
		r.Get("/doctors/{doctorID}", h.GetDoctor)
		r.Get("/doctors/{doctorID}/slots", h.ListDoctorSlots)
		r.Get("/doctors/{doctorID}/slots/{slotID}", h.GetDoctorSlot)
		r.Post("/session", h.CreateSession)
		r.Post("/patients", h.RegisterPatient)
		r.Post("/appointments", h.CreateAppointment)
		r.Get("/appointments/{appointmentID}", h.GetAppointment)
		r.Get("/appointments/{appointmentID}/link", h.GetAppointmentLink)
		r.Post("/appointments/{appointmentID}/cancel", h.CancelAppointment)
	})
	return r
}

type providerInfo struct {
	Slug         string   `json:"slug"`
	Capabilities []string `json:"capabilities"`
	Error        string   `json:"error,omitempty"`
}

// ListProviders reports each slug with its capabilities. Slugs that fail to
// resolve are listed with the error instead.
func (h *TelemedicineHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	out := make([]providerInfo, 0)
	for _, slug := range h.resolver.Slugs() {
		info := providerInfo{Slug: slug, Capabilities: []string{}}
		p, err := h.resolver.Resolve(slug)
		if err != nil {
			info.Error = err.Error()
		} else {
			info.Capabilities = telemedicine.CapabilitiesOf(p).List()
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func (h *TelemedicineHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	q := telemedicine.DoctorQuery{
		Specialty: r.URL.Query().Get("specialty"),
		Name:      r.URL.Query().Get("name"),
	}
	h.withProvider(w, r, func(ctx context.Context, p telemedicine.Provider) (int, any, error) {
		doctors, err := p.GetDoctors(ctx, q)
		return http.StatusOK, map[string]any{"doctors": doctors.Items()}, err
	})
}

func (h *TelemedicineHandler) ListDoctorsWithSlots(w http.ResponseWriter, r *http.Request) {
	q, err := h.slotQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q.DoctorID = r.URL.Query().Get("doctor_id")
	h.withProvider(w, r, func(ctx context.Context, p telemedicine.Provider) (int, any, error) {
		doctors, err := p.GetDoctorsWithSlots(ctx, q)
		return http.StatusOK, map[string]any{"doctors": doctors.Items()}, err
	})
}

func (h *TelemedicineHandler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	withSlots, _ := strconv.ParseBool(r.URL.Query().Get("with_slots"))
	h.withProvider(w, r, func(ctx context.Context, p telemedicine.Provider) (int, any, error) {
		finder, ok := p.(telemedicine.DoctorFinder)
		if !ok {
			return 0, nil, telemedicine.ErrNotSupported
		}
		doctor, err := finder.GetDoctor(ctx, doctorID, withSlots)
		return http.StatusOK, doctor, err
	})
}

func (h *TelemedicineHandler) ListDoctorSlots(w http.ResponseWriter, r *http.Request) {
	q, err := h.slotQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	doctorID := chi.URLParam(r, "doctorID")
	h.withProvider(w, r, func(ctx context.Context, p telemedicine.Provider) (int, any, error) {
		slots, err := p.GetSlotsForDoctor(ctx, doctorID, q)
		return http.StatusOK, map[string]any{"slots": slots.Items()}, err
	})
}

func (h *TelemedicineHandler) GetDoctorSlot(w http.ResponseWriter, r *http.Request) {
	doctorID, slotID := chi.URLParam(r, "doctorID"), chi.URLParam(r, "slotID")
	h.withProvider(w, r, func(ctx context.Context, p telemedicine.Provider) (int, any, error) {
		slot, err := p.GetDoctorSlot(ctx, doctorID, slotID)
		return http.StatusOK, slot, err
	})
}

type patientRequest struct {
	Name      string `json:"name" validate:"required"`
	Document  string `json:"document" validate:"required"`
	BirthDate string `json:"birth_date" validate:"required"`
	Gender    string `json:"gender" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
}

func (req patientRequest) build() (telemedicine.PatientData, error) {
	gender, err := telemedicine.ParseGender(req.Gender)
	if err != nil {
		return telemedicine.PatientData{}, err
	}
	return telemedicine.NewPatientBuilder().
		WithName(req.Name).
		WithDocument(req.Document).
		WithBirthDateString(req.BirthDate).
		WithGender(gender).
		WithEmail(req.Email).
		WithPhone(req.Phone).
		Build()
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CreateSession binds the patient to a patient-authenticated provider and
// authenticates right away.
func (h *TelemedicineHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := req.build()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withProvider(w, r, func(ctx context.Context, p telemedicine.Provider) (int, any, error) {
		auth, ok := p.(telemedicine.PatientDataAuthenticator)
		if !ok {
			return 0, nil, telemedicine.ErrNotSupported
		}
		auth.SetPatientDataForAuthentication(data)
		token, err := auth.Authenticate(ctx)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, tokenResponse{AccessToken: token.AccessToken(), ExpiresAt: token.ExpiresAt()}, nil
	})
}

func (h *TelemedicineHandler) RegisterPatient(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := req.build()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withProvider(w, r, func(ctx context.Context, p telemedicine.Provider) (int, any, error) {
		registrar, ok := p.(telemedicine.PatientRegistrar)
		if !ok {
			return 0, nil, telemedicine.ErrNotSupported
		}
		patient, err := registrar.UpdateOrCreatePatient(ctx, data)
		return http.StatusOK, map[string]string{"id": patient.ID}, err
	})
}

type appointmentRequest struct {
	Specialty string          `json:"specialty"`
	DoctorID  string          `json:"doctor_id"`
	SlotID    string          `json:"slot_id" validate:"required"`
	PatientID string          `json:"patient_id"`
	Patient   *patientRequest `json:"patient"`
}

// CreateAppointment books with inline patient data when given and the
// provider supports it, otherwise with a registered patient id.
func (h *TelemedicineHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	var data *telemedicine.PatientData
	if req.Patient != nil {
		built, err := req.Patient.build()
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		data = &built
	}

	h.withProvider(w, r, func(ctx context.Context, p telemedicine.Provider) (int, any, error) {
		if scheduler, ok := p.(telemedicine.PatientDataScheduler); ok && data != nil {
			appt, err := scheduler.ScheduleUsingPatientData(ctx, req.Specialty, req.SlotID, *data)
			return http.StatusCreated, appt, err
		}
		scheduler, ok := p.(telemedicine.Scheduler)
		if !ok {
			return 0, nil, telemedicine.ErrNotSupported
		}
		appt, err := scheduler.Schedule(ctx, telemedicine.ScheduleRequest{
			Specialty: req.Specialty,
			DoctorID:  req.DoctorID,
			SlotID:    req.SlotID,
			PatientID: req.PatientID,
		})
		return http.StatusCreated, appt, err
	})
}

func (h *TelemedicineHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "appointmentID")
	h.withAppointments(w, r, func(ctx context.Context, m telemedicine.AppointmentManager) (int, any, error) {
		appt, err := m.GetAppointment(ctx, id)
		return http.StatusOK, appt, err
	})
}

func (h *TelemedicineHandler) GetAppointmentLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "appointmentID")
	h.withAppointments(w, r, func(ctx context.Context, m telemedicine.AppointmentManager) (int, any, error) {
		link, err := m.GetAppointmentLink(ctx, id)
		return http.StatusOK, map[string]string{"link": link}, err
	})
}

func (h *TelemedicineHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "appointmentID")
	h.withAppointments(w, r, func(ctx context.Context, m telemedicine.AppointmentManager) (int, any, error) {
		if err := m.CancelAppointment(ctx, id); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, map[string]string{"id": id, "status": string(telemedicine.StatusCanceled)}, nil
	})
}

type providerCall func(ctx context.Context, p telemedicine.Provider) (int, any, error)

// withProvider resolves the slug, holds its lock for the call and renders the
// result or the mapped error.
func (h *TelemedicineHandler) withProvider(w http.ResponseWriter, r *http.Request, call providerCall) {
	slug := chi.URLParam(r, "slug")
	p, err := h.resolver.Resolve(slug)
	if err != nil {
		if telemedicine.IsConfigError(err) && !h.known(slug) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		h.writeError(w, r, err)
		return
	}

	status, body, err := h.call(r.Context(), slug, p, call)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, body)
}

func (h *TelemedicineHandler) call(ctx context.Context, slug string, p telemedicine.Provider, call providerCall) (int, any, error) {
	lock := h.lockFor(slug)
	lock.Lock()
	defer lock.Unlock()

	if h.cacheTTL > 0 {
		p.CacheUntil(h.now().Add(h.cacheTTL))
	}
	return call(ctx, p)
}

func (h *TelemedicineHandler) withAppointments(w http.ResponseWriter, r *http.Request, call func(context.Context, telemedicine.AppointmentManager) (int, any, error)) {
	h.withProvider(w, r, func(ctx context.Context, p telemedicine.Provider) (int, any, error) {
		m, ok := p.(telemedicine.AppointmentManager)
		if !ok {
			return 0, nil, telemedicine.ErrNotSupported
		}
		return call(ctx, m)
	})
}

func (h *TelemedicineHandler) known(slug string) bool {
	for _, s := range h.resolver.Slugs() {
		if s == slug {
			return true
		}
	}
	return false
}

func (h *TelemedicineHandler) lockFor(slug string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.locks[slug]
	if !ok {
		l = &sync.Mutex{}
		h.locks[slug] = l
	}
	return l
}

// slotQuery parses specialty, until and limit. A date-only until means the
// end of that day in the application location.
func (h *TelemedicineHandler) slotQuery(r *http.Request) (telemedicine.SlotQuery, error) {
	values := r.URL.Query()
	q := telemedicine.SlotQuery{Specialty: values.Get("specialty")}
	if raw := strings.TrimSpace(values.Get("until")); raw != "" {
		if day, err := time.ParseInLocation(time.DateOnly, raw, h.location); err == nil {
			q.Until = telemedicine.EndOfDay(day)
		} else if at, err := time.Parse(time.RFC3339, raw); err == nil {
			q.Until = at.In(h.location)
		} else {
			return q, telemedicine.NewValidationError("until", "expected YYYY-MM-DD or RFC 3339, got %q", raw)
		}
	}
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return q, telemedicine.NewValidationError("limit", "expected a non-negative integer, got %q", raw)
		}
		q.Limit = limit
	}
	return q, nil
}

func (h *TelemedicineHandler) decode(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return telemedicine.NewValidationError("body", "invalid JSON: %v", err)
	}
	if err := h.validate.Struct(out); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return telemedicine.NewValidationError(strings.ToLower(fe.Field()), "failed on the %q rule", fe.Tag())
	}
	return telemedicine.NewValidationError("", "%v", err)
}

// statusFor maps library errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, telemedicine.ErrNotSupported):
		return http.StatusNotImplemented
	case telemedicine.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, telemedicine.ErrAppointmentAlreadyCanceled):
		return http.StatusConflict
	case telemedicine.IsValidationError(err):
		return http.StatusUnprocessableEntity
	case telemedicine.IsConfigError(err):
		return http.StatusBadRequest
	case telemedicine.IsRequestError(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *TelemedicineHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := h.logger
	if client, ok := middleware.ClientFromContext(r.Context()); ok {
		logger = logger.With("client", client)
	}
	if status >= http.StatusInternalServerError {
		logger.Error("telemedicine request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		logger.Debug("telemedicine request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	jsonError(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Health is a liveness probe.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
