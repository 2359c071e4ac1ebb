package drconsulta

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
	"github.com/wolfman30/telemedicine-client/internal/upstream"
	"github.com/wolfman30/telemedicine-client/pkg/logging"
)

// Provider is the current DrConsulta generation. Listing and booking go to
// the marketplace API; patients are subscribed through the health plan API.
// Each API has its own bearer session.
type Provider struct {
	*catalog

	healthPlan        *upstream.Client
	healthPlanSession *upstream.Session
	contractID        string
	logger            *logging.Logger
}

var (
	_ telemedicine.Provider         = (*Provider)(nil)
	_ telemedicine.DoctorFinder     = (*Provider)(nil)
	_ telemedicine.PatientRegistrar = (*Provider)(nil)
	_ telemedicine.Scheduler        = (*Provider)(nil)
)

// New validates cfg and builds the adapter. No network call is made.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	c, err := newCatalog(Slug, cfg, decodeSchedule)
	if err != nil {
		return nil, err
	}
	healthPlan, err := upstream.NewClient(upstream.Config{
		Provider:      Slug,
		BaseURL:       cfg.healthPlanBaseURL(),
		MessageFields: errorMessageFields,
		HTTPClient:    cfg.HTTPClient,
		Logger:        cfg.Logger,
		Metrics:       cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("drconsulta: %w", err)
	}
	return &Provider{
		catalog:           c,
		healthPlan:        healthPlan,
		healthPlanSession: newLoginSession(Slug, "health_plan", healthPlan, cfg),
		contractID:        cfg.HealthPlanContractID,
		logger:            cfg.Logger,
	}, nil
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

// GetDoctor looks a doctor up in the active listing.
func (p *Provider) GetDoctor(ctx context.Context, doctorID string, withSlots bool) (telemedicine.Doctor, error) {
	entries, err := p.entries(ctx, "")
	if err != nil {
		return telemedicine.Doctor{}, err
	}
	e, ok := findEntry(entries, doctorID)
	if !ok {
		return telemedicine.Doctor{}, telemedicine.DoctorNotFound(doctorID)
	}
	if !withSlots {
		return e.doctor, nil
	}
	return e.doctor.WithSlots(telemedicine.NewCollection(e.slots...)), nil
}

// UpdateOrCreatePatient subscribes the patient to the health plan contract.
// The upstream upserts by CPF, so repeated calls return the same id.
func (p *Provider) UpdateOrCreatePatient(ctx context.Context, data telemedicine.PatientData) (telemedicine.Patient, error) {
	if err := data.Validate(); err != nil {
		return telemedicine.Patient{}, err
	}
	token, err := p.healthPlanSession.Token(ctx)
	if err != nil {
		return telemedicine.Patient{}, err
	}

	var resp subscriptionResponse
	err = p.healthPlan.DoJSON(ctx, upstream.Request{
		Operation: "subscribe_patient",
		Method:    http.MethodPost,
		Path:      "v1/subscription",
		Body: subscriptionRequest{
			CPF:             data.Document,
			Name:            data.Name,
			Email:           data.Email,
			Registration:    data.Document,
			Gender:          string(data.Gender),
			BirthDate:       data.BirthDateString(),
			PartnerContract: p.contractID,
		},
		Auth: upstream.BearerAuth(token.AccessToken()),
	}, &resp)
	if err != nil {
		return telemedicine.Patient{}, err
	}
	if resp.PatientID == "" {
		return telemedicine.Patient{}, telemedicine.NewValidationError("id_paciente", "the subscription response has no patient id")
	}
	return telemedicine.Patient{ID: resp.PatientID.String(), PatientData: data}, nil
}

// Schedule books a slot for a registered patient. The slot is checked against
// the active listing first, which also gives the appointment its date.
func (p *Provider) Schedule(ctx context.Context, req telemedicine.ScheduleRequest) (telemedicine.Appointment, error) {
	if req.PatientID == "" {
		return telemedicine.Appointment{}, telemedicine.NewValidationError("patient_id", "the patient id is required")
	}
	slot, err := p.GetDoctorSlot(ctx, req.DoctorID, req.SlotID)
	if err != nil {
		return telemedicine.Appointment{}, err
	}
	auth, err := p.authorized(ctx)
	if err != nil {
		return telemedicine.Appointment{}, err
	}

	var resp appointmentResponse
	err = p.client.DoJSON(ctx, upstream.Request{
		Operation: "schedule",
		Method:    http.MethodPost,
		Path:      "v1/agendamento",
		Body: appointmentRequest{
			PatientID: req.PatientID,
			UnitID:    p.unitID,
			ProductID: req.Specialty,
			SlotID:    req.SlotID,
		},
		Auth: auth,
	}, &resp)
	if err != nil {
		return telemedicine.Appointment{}, err
	}

	id := resp.Hash
	if id == "" {
		id = resp.ID.String()
	}
	if id == "" {
		return telemedicine.Appointment{}, telemedicine.NewValidationError("hash", "the scheduling response has no appointment id")
	}
	p.logger.Info("dr consulta appointment scheduled", "appointment_id", id, "doctor_id", req.DoctorID, "slot_id", req.SlotID)
	return telemedicine.Appointment{
		ID:       id,
		DateTime: slot.DateTime,
		Status:   telemedicine.StatusPtr(telemedicine.StatusScheduled),
	}, nil
}
