// Package fakeprovider is an in-memory telemedicine provider for tests. It
// implements every capability and records what callers did so tests can
// assert on it.
package fakeprovider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
)

// DefaultSlug is used when no slug is given.
const DefaultSlug = "fake"

const tokenLifetime = time.Hour

type slotGroup struct {
	specialty string
	slots     []telemedicine.AppointmentSlot
}

type doctorGroup struct {
	specialty string
	doctors   []telemedicine.Doctor
}

// Provider is safe for concurrent use.
type Provider struct {
	mu    sync.Mutex
	slug  string
	faker *gofakeit.Faker
	now   func() time.Time

	doctors      []doctorGroup
	slots        map[string][]slotGroup
	patients     []telemedicine.Patient
	appointments []telemedicine.Appointment

	authPatient *telemedicine.PatientData
	cacheExpiry time.Time
}

var (
	_ telemedicine.Provider                 = (*Provider)(nil)
	_ telemedicine.PatientDataAuthenticator = (*Provider)(nil)
	_ telemedicine.PatientDataScheduler     = (*Provider)(nil)
	_ telemedicine.Scheduler                = (*Provider)(nil)
	_ telemedicine.PatientRegistrar         = (*Provider)(nil)
	_ telemedicine.AppointmentManager       = (*Provider)(nil)
	_ telemedicine.DoctorFinder             = (*Provider)(nil)
)

type Option func(*Provider)

func WithSlug(slug string) Option {
	return func(p *Provider) {
		if slug != "" {
			p.slug = slug
		}
	}
}

// WithFaker makes generated data reproducible.
func WithFaker(f *gofakeit.Faker) Option {
	return func(p *Provider) {
		if f != nil {
			p.faker = f
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

func New(opts ...Option) *Provider {
	p := &Provider{
		slug:  DefaultSlug,
		faker: gofakeit.New(0),
		now:   time.Now,
		slots: map[string][]slotGroup{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Slug() string { return p.slug }

// CacheUntil records expiry; the fake never caches.
func (p *Provider) CacheUntil(expiry time.Time) telemedicine.Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cacheExpiry = expiry
	return p
}

func (p *Provider) WithoutCache() telemedicine.Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cacheExpiry = time.Time{}
	return p
}

// CacheExpiry returns the last expiry passed to CacheUntil.
func (p *Provider) CacheExpiry() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cacheExpiry
}

func (p *Provider) GetDoctors(_ context.Context, q telemedicine.DoctorQuery) (telemedicine.DoctorCollection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := strings.ToLower(q.Name)
	var out []telemedicine.Doctor
	for _, d := range p.doctorsFor(q.Specialty) {
		if name != "" && !strings.Contains(strings.ToLower(d.Name), name) {
			continue
		}
		out = append(out, d)
	}
	return telemedicine.NewCollection(out...), nil
}

func (p *Provider) GetSlotsForDoctor(_ context.Context, doctorID string, q telemedicine.SlotQuery) (telemedicine.SlotCollection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return telemedicine.FilterSlots(p.slotsFor(doctorID, q.Specialty), q.Until, q.Limit), nil
}

func (p *Provider) GetDoctorsWithSlots(_ context.Context, q telemedicine.SlotQuery) (telemedicine.DoctorCollection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []telemedicine.Doctor
	for _, d := range p.doctorsFor(q.Specialty) {
		if q.DoctorID != "" && d.ID != q.DoctorID {
			continue
		}
		out = append(out, d.WithSlots(p.slotsFor(d.ID, q.Specialty)))
	}
	return telemedicine.KeepDoctorsWithSlots(telemedicine.NewCollection(out...), q.Until, q.Limit), nil
}

func (p *Provider) GetDoctorSlot(_ context.Context, doctorID, slotID string) (telemedicine.AppointmentSlot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doctorSlot(doctorID, slotID)
}

func (p *Provider) GetDoctor(_ context.Context, doctorID string, withSlots bool) (telemedicine.Doctor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, ok := p.findDoctor(doctorID)
	if !ok {
		return telemedicine.Doctor{}, telemedicine.DoctorNotFound(doctorID)
	}
	if withSlots {
		return d.WithSlots(p.slotsFor(doctorID, "")), nil
	}
	return d, nil
}

func (p *Provider) SetPatientDataForAuthentication(data telemedicine.PatientData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authPatient = &data
}

func (p *Provider) Authenticate(context.Context) (*telemedicine.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.authPatient == nil {
		return nil, telemedicine.NewConfigError("patient", "the patient data is not set")
	}
	return telemedicine.NewToken("fake-"+uuid.NewString(), p.now(), tokenLifetime)
}

// UpdateOrCreatePatient keeps one patient per document.
func (p *Provider) UpdateOrCreatePatient(_ context.Context, data telemedicine.PatientData) (telemedicine.Patient, error) {
	if err := data.Validate(); err != nil {
		return telemedicine.Patient{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.upsertPatient(data), nil
}

func (p *Provider) Schedule(_ context.Context, req telemedicine.ScheduleRequest) (telemedicine.Appointment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.findPatient(req.PatientID); !ok {
		return telemedicine.Appointment{}, telemedicine.NewValidationError("patient_id", "the patient id is not valid")
	}
	return p.book(req.DoctorID, req.SlotID)
}

func (p *Provider) ScheduleUsingPatientData(_ context.Context, _ string, slotID string, data telemedicine.PatientData) (telemedicine.Appointment, error) {
	if err := data.Validate(); err != nil {
		return telemedicine.Appointment{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.upsertPatient(data)
	return p.book("", slotID)
}

func (p *Provider) GetAppointment(_ context.Context, appointmentID string) (telemedicine.Appointment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.appointmentIndex(appointmentID)
	if i < 0 {
		return telemedicine.Appointment{}, telemedicine.AppointmentNotFound(appointmentID)
	}
	return p.appointments[i], nil
}

func (p *Provider) GetAppointmentLink(_ context.Context, appointmentID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.appointmentIndex(appointmentID) < 0 {
		return "", telemedicine.AppointmentNotFound(appointmentID)
	}
	return "https://meet.fake.invalid/" + appointmentID, nil
}

// CancelAppointment leaves state untouched when it fails.
func (p *Provider) CancelAppointment(_ context.Context, appointmentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.appointmentIndex(appointmentID)
	if i < 0 {
		return telemedicine.AppointmentNotFound(appointmentID)
	}
	if p.appointments[i].IsCanceled() {
		return fmt.Errorf("%w: %s", telemedicine.ErrAppointmentAlreadyCanceled, appointmentID)
	}
	p.appointments[i].Status = telemedicine.StatusPtr(telemedicine.StatusCanceled)
	return nil
}

// Patients returns every known patient, mocked or created.
func (p *Provider) Patients() []telemedicine.Patient {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]telemedicine.Patient(nil), p.patients...)
}

// Appointments returns every known appointment in booking order.
func (p *Provider) Appointments() []telemedicine.Appointment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]telemedicine.Appointment(nil), p.appointments...)
}

func (p *Provider) book(doctorID, slotID string) (telemedicine.Appointment, error) {
	var (
		doctor telemedicine.Doctor
		slot   telemedicine.AppointmentSlot
		err    error
	)
	if doctorID != "" {
		slot, err = p.doctorSlot(doctorID, slotID)
		if err != nil {
			return telemedicine.Appointment{}, err
		}
		doctor, _ = p.findDoctor(doctorID)
	} else {
		var ok bool
		doctor, slot, ok = p.findSlot(slotID)
		if !ok {
			return telemedicine.Appointment{}, telemedicine.NewValidationError("slot_id", "the slot id is not valid")
		}
	}

	appt := telemedicine.Appointment{
		ID:         uuid.NewString(),
		DateTime:   slot.DateTime,
		Status:     telemedicine.StatusPtr(telemedicine.StatusScheduled),
		DoctorName: telemedicine.StringPtr(doctor.Name),
	}
	p.appointments = append(p.appointments, appt)
	return appt, nil
}

func (p *Provider) upsertPatient(data telemedicine.PatientData) telemedicine.Patient {
	for i, existing := range p.patients {
		if existing.Document == data.Document {
			p.patients[i] = telemedicine.Patient{ID: existing.ID, PatientData: data}
			return p.patients[i]
		}
	}
	patient := telemedicine.Patient{ID: uuid.NewString(), PatientData: data}
	p.patients = append(p.patients, patient)
	return patient
}

// doctorsFor returns doctors of specialty, or every doctor once when specialty is empty.
func (p *Provider) doctorsFor(specialty string) []telemedicine.Doctor {
	seen := map[string]bool{}
	var out []telemedicine.Doctor
	for _, g := range p.doctors {
		if specialty != "" && g.specialty != specialty {
			continue
		}
		for _, d := range g.doctors {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			out = append(out, d)
		}
	}
	return out
}

func (p *Provider) slotsFor(doctorID, specialty string) telemedicine.SlotCollection {
	var out []telemedicine.AppointmentSlot
	for _, g := range p.slots[doctorID] {
		if specialty != "" && g.specialty != specialty {
			continue
		}
		out = append(out, g.slots...)
	}
	return telemedicine.NewCollection(out...)
}

// doctorSlot treats a doctor without visible slots as missing.
func (p *Provider) doctorSlot(doctorID, slotID string) (telemedicine.AppointmentSlot, error) {
	if _, ok := p.findDoctor(doctorID); !ok {
		return telemedicine.AppointmentSlot{}, telemedicine.DoctorNotFound(doctorID)
	}
	slots := p.slotsFor(doctorID, "")
	if slots.IsEmpty() {
		return telemedicine.AppointmentSlot{}, telemedicine.DoctorNotFound(doctorID)
	}
	slot, ok := telemedicine.FindSlot(slots, slotID)
	if !ok {
		return telemedicine.AppointmentSlot{}, telemedicine.SlotNotFound(doctorID, slotID)
	}
	return slot, nil
}

func (p *Provider) findDoctor(doctorID string) (telemedicine.Doctor, bool) {
	for _, d := range p.doctorsFor("") {
		if d.ID == doctorID {
			return d, true
		}
	}
	return telemedicine.Doctor{}, false
}

func (p *Provider) findSlot(slotID string) (telemedicine.Doctor, telemedicine.AppointmentSlot, bool) {
	for _, d := range p.doctorsFor("") {
		if slot, ok := telemedicine.FindSlot(p.slotsFor(d.ID, ""), slotID); ok {
			return d, slot, true
		}
	}
	return telemedicine.Doctor{}, telemedicine.AppointmentSlot{}, false
}

func (p *Provider) findPatient(id string) (telemedicine.Patient, bool) {
	for _, patient := range p.patients {
		if patient.ID == id {
			return patient, true
		}
	}
	return telemedicine.Patient{}, false
}

func (p *Provider) appointmentIndex(id string) int {
	for i, a := range p.appointments {
		if a.ID == id {
			return i
		}
	}
	return -1
}
