package fleury

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wolfman30/telemedicine-client/internal/cache"
	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
	"github.com/wolfman30/telemedicine-client/internal/upstream"
	"github.com/wolfman30/telemedicine-client/pkg/logging"
)

const (
	maxSlotsPerProfessional = 50

	doctorsCachePrefix          = "scheduled.telemedicine.providers:fleury:doctors"
	doctorsWithSlotsCachePrefix = "scheduled.telemedicine.providers:fleury:doctors-with-slots"

	authHeader = "x-authorization-token"
)

// Provider talks to the Fleury "cuidado digital" API. Its session is bound to
// one patient: SetPatientDataForAuthentication must be called before any
// operation that reaches the network.
type Provider struct {
	client       *upstream.Client
	session      *upstream.Session
	cache        cache.Policy
	apiKey       string
	clientID     string
	webhookToken string
	location     *time.Location
	now          func() time.Time
	logger       *logging.Logger

	patient *telemedicine.PatientData
}

var (
	_ telemedicine.Provider                 = (*Provider)(nil)
	_ telemedicine.PatientDataAuthenticator = (*Provider)(nil)
	_ telemedicine.PatientDataScheduler     = (*Provider)(nil)
	_ telemedicine.AppointmentManager       = (*Provider)(nil)
)

// New validates cfg and builds the adapter. No network call is made.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	client, err := upstream.NewClient(upstream.Config{
		Provider:   Slug,
		BaseURL:    cfg.baseURL(),
		HTTPClient: cfg.HTTPClient,
		Logger:     logger,
		Metrics:    cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("fleury: %w", err)
	}

	p := &Provider{
		client:       client,
		cache:        cache.NewPolicy(cfg.Cache),
		apiKey:       cfg.APIKey,
		clientID:     cfg.ClientID,
		webhookToken: cfg.WebhookToken,
		location:     cfg.Location,
		now:          cfg.Now,
		logger:       logger,
	}
	if p.location == nil {
		p.location = time.UTC
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.session = upstream.NewSession(Slug, "patient", p.authenticate,
		upstream.WithSessionClock(p.now),
		upstream.WithSessionLogger(logger),
		upstream.WithSessionMetrics(cfg.Metrics),
	)
	return p, nil
}

func (p *Provider) Slug() string { return Slug }

func (p *Provider) CacheUntil(expiry time.Time) telemedicine.Provider {
	p.cache.CacheUntil(expiry)
	return p
}

func (p *Provider) WithoutCache() telemedicine.Provider {
	p.cache.WithoutCache()
	return p
}

// SetPatientDataForAuthentication scopes the session to a patient. Any token
// issued for a previous patient is dropped.
func (p *Provider) SetPatientDataForAuthentication(data telemedicine.PatientData) {
	p.patient = &data
	p.session.Invalidate()
}

// Authenticate obtains a new token for the configured patient.
func (p *Provider) Authenticate(ctx context.Context) (*telemedicine.Token, error) {
	return p.session.Authenticate(ctx)
}

// VerifyWebhookToken compares an inbound webhook token with the configured one.
func (p *Provider) VerifyWebhookToken(token string) bool {
	if p.webhookToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(p.webhookToken), []byte(token)) == 1
}

func (p *Provider) authenticate(ctx context.Context) (*telemedicine.Token, error) {
	if p.patient == nil {
		return nil, telemedicine.NewConfigError("patient", "the patient data is not set")
	}
	data := p.patient

	var resp authResponse
	err := p.client.DoJSON(ctx, upstream.Request{
		Operation: "authenticate",
		Method:    http.MethodPost,
		Path:      apiPrefix + "autenticate",
		Body: authRequest{
			APIKey:         p.apiKey,
			Client:         p.clientID,
			Name:           data.Name,
			DocumentNumber: data.Document,
			Gender:         string(data.Gender),
			Birth:          data.BirthDateString(),
			Phone:          data.Phone,
			Email:          data.Email,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return telemedicine.NewToken(resp.AccessToken, p.now(), time.Duration(resp.ExpiresIn)*time.Second)
}

func (p *Provider) authorized(ctx context.Context) (upstream.AuthFunc, error) {
	token, err := p.session.Token(ctx)
	if err != nil {
		return nil, err
	}
	return upstream.HeaderAuth(authHeader, token.AccessToken()), nil
}

func (p *Provider) fetch(ctx context.Context, operation, prefix, path string, params map[string]string) ([]byte, error) {
	return p.cache.Fetch(ctx, prefix, params, func(ctx context.Context) ([]byte, error) {
		auth, err := p.authorized(ctx)
		if err != nil {
			return nil, err
		}
		query := url.Values{}
		for k, v := range params {
			query.Set(k, v)
		}
		return p.client.Do(ctx, upstream.Request{
			Operation: operation,
			Path:      apiPrefix + path,
			Query:     query,
			Auth:      auth,
		})
	})
}

func (p *Provider) GetDoctors(ctx context.Context, q telemedicine.DoctorQuery) (telemedicine.DoctorCollection, error) {
	params := map[string]string{}
	if q.Specialty != "" {
		params["speciality"] = q.Specialty
	}
	if q.Name != "" {
		params["name"] = q.Name
	}

	raw, err := p.fetch(ctx, "get_doctors", doctorsCachePrefix, "profissionais", params)
	if err != nil {
		return telemedicine.DoctorCollection{}, err
	}
	var items []professional
	if err := upstream.Decode(Slug, raw, &items); err != nil {
		return telemedicine.DoctorCollection{}, err
	}

	doctors := make([]telemedicine.Doctor, 0, len(items))
	for _, item := range items {
		doctors = append(doctors, toDoctor(item))
	}
	return telemedicine.NewCollection(doctors...), nil
}

func (p *Provider) GetDoctorsWithSlots(ctx context.Context, q telemedicine.SlotQuery) (telemedicine.DoctorCollection, error) {
	limit := maxSlotsPerProfessional
	if q.Limit > 0 && q.Limit < limit {
		limit = q.Limit
	}
	params := map[string]string{
		"date_init":            upstream.FormatISO(telemedicine.StartOfDay(p.now().In(p.location))),
		"type":                 "REMOTE",
		"appointment_type":     "DOCTOR_FAMILY",
		"limitForProfessional": strconv.Itoa(limit),
	}
	if q.Specialty != "" {
		params["speciality"] = q.Specialty
	}
	if q.DoctorID != "" {
		params["professional_id"] = q.DoctorID
	}
	// date_end is day-granular upstream; the exact bound is applied locally.
	if !q.Until.IsZero() {
		params["date_end"] = upstream.FormatISO(telemedicine.EndOfDay(q.Until.In(p.location)))
	}

	raw, err := p.fetch(ctx, "get_doctors_with_slots", doctorsWithSlotsCachePrefix, "horarios-por-profissional", params)
	if err != nil {
		return telemedicine.DoctorCollection{}, err
	}
	var items []professionalSlots
	if err := upstream.Decode(Slug, raw, &items); err != nil {
		return telemedicine.DoctorCollection{}, err
	}

	var doctors []telemedicine.Doctor
	for _, item := range items {
		if len(item.Slots) == 0 {
			continue
		}
		slots := make([]telemedicine.AppointmentSlot, 0, len(item.Slots))
		for _, s := range item.Slots {
			at, err := upstream.ParseTime(s.Date, time.UTC, p.location)
			if err != nil {
				return telemedicine.DoctorCollection{}, fmt.Errorf("fleury: slot %s: %w", s.ID, err)
			}
			slots = append(slots, telemedicine.AppointmentSlot{ID: s.ID.String(), DateTime: at})
		}
		doctors = append(doctors, toDoctor(item.Professional).WithSlots(telemedicine.NewCollection(slots...)))
	}

	kept := telemedicine.KeepDoctorsWithSlots(telemedicine.NewCollection(doctors...), q.Until, limit)
	return telemedicine.SortByDoctorSlot(kept)
}

func (p *Provider) GetSlotsForDoctor(ctx context.Context, doctorID string, q telemedicine.SlotQuery) (telemedicine.SlotCollection, error) {
	q.DoctorID = doctorID
	doctors, err := p.GetDoctorsWithSlots(ctx, q)
	if err != nil {
		return telemedicine.SlotCollection{}, err
	}
	doctor, ok := telemedicine.FindDoctor(doctors, doctorID)
	if !ok {
		return telemedicine.SlotCollection{}, nil
	}
	slots, _ := doctor.Slots()
	return slots, nil
}

func (p *Provider) GetDoctorSlot(ctx context.Context, doctorID, slotID string) (telemedicine.AppointmentSlot, error) {
	doctors, err := p.GetDoctorsWithSlots(ctx, telemedicine.SlotQuery{DoctorID: doctorID})
	if err != nil {
		return telemedicine.AppointmentSlot{}, err
	}
	doctor, ok := telemedicine.FindDoctor(doctors, doctorID)
	if !ok {
		return telemedicine.AppointmentSlot{}, telemedicine.DoctorNotFound(doctorID)
	}
	slots, _ := doctor.Slots()
	slot, ok := telemedicine.FindSlot(slots, slotID)
	if !ok {
		return telemedicine.AppointmentSlot{}, telemedicine.SlotNotFound(doctorID, slotID)
	}
	return slot, nil
}

// ScheduleUsingPatientData books slotID for the given patient. Specialty is
// implied by the slot on this API and only validated for presence upstream.
func (p *Provider) ScheduleUsingPatientData(ctx context.Context, specialty, slotID string, data telemedicine.PatientData) (telemedicine.Appointment, error) {
	if err := data.Validate(); err != nil {
		return telemedicine.Appointment{}, err
	}
	auth, err := p.authorized(ctx)
	if err != nil {
		return telemedicine.Appointment{}, err
	}

	var resp appointment
	err = p.client.DoJSON(ctx, upstream.Request{
		Operation: "schedule",
		Method:    http.MethodPost,
		Path:      apiPrefix + "consultas",
		Body: scheduleRequest{
			SlotID: slotID,
			Patient: schedulePatient{
				Name:       data.Name,
				NationalID: data.Document,
				Gender:     string(data.Gender),
				DOB:        data.BirthDateString(),
				Cellphone:  data.Phone,
				Email:      data.Email,
			},
		},
		Auth: auth,
	}, &resp)
	if err != nil {
		return telemedicine.Appointment{}, err
	}
	p.logger.Info("fleury appointment scheduled", "appointment_id", resp.ID.String(), "slot_id", slotID, "specialty", specialty)
	return p.toAppointment(resp)
}

func (p *Provider) GetAppointment(ctx context.Context, appointmentID string) (telemedicine.Appointment, error) {
	resp, err := p.getAppointment(ctx, appointmentID)
	if err != nil {
		return telemedicine.Appointment{}, err
	}
	return p.toAppointment(resp)
}

// GetAppointmentLink returns the patient-facing video call URL.
func (p *Provider) GetAppointmentLink(ctx context.Context, appointmentID string) (string, error) {
	resp, err := p.getAppointment(ctx, appointmentID)
	if err != nil {
		return "", err
	}
	if resp.AttendanceLink == "" {
		return "", telemedicine.NewValidationError("attendance_link", "appointment %s has no attendance link", appointmentID)
	}
	return resp.AttendanceLink, nil
}

func (p *Provider) CancelAppointment(ctx context.Context, appointmentID string) error {
	auth, err := p.authorized(ctx)
	if err != nil {
		return err
	}
	_, err = p.client.Do(ctx, upstream.Request{
		Operation: "cancel_appointment",
		Method:    http.MethodPatch,
		Path:      apiPrefix + "consultas/" + url.PathEscape(appointmentID) + "/cancel",
		Auth:      auth,
	})
	return err
}

func (p *Provider) getAppointment(ctx context.Context, appointmentID string) (appointment, error) {
	auth, err := p.authorized(ctx)
	if err != nil {
		return appointment{}, err
	}
	var resp appointment
	err = p.client.DoJSON(ctx, upstream.Request{
		Operation: "get_appointment",
		Path:      apiPrefix + "consultas/" + url.PathEscape(appointmentID),
		Auth:      auth,
	}, &resp)
	return resp, err
}
