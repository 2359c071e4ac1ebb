package telemedicine

import (
	"context"
	"sort"
	"strings"
	"time"
)

// DoctorQuery narrows GetDoctors.
type DoctorQuery struct {
	Specialty string
	Name      string
}

// SlotQuery narrows slot lookups. Until is inclusive; zero means unbounded.
// Limit caps slots per doctor; zero means the provider default.
type SlotQuery struct {
	Specialty string
	DoctorID  string
	Until     time.Time
	Limit     int
}

// ScheduleRequest binds a registered patient to a doctor slot.
type ScheduleRequest struct {
	Specialty string
	DoctorID  string
	SlotID    string
	PatientID string
}

// Provider is the contract every telemedicine vendor adapter satisfies.
type Provider interface {
	Slug() string
	GetDoctors(ctx context.Context, q DoctorQuery) (DoctorCollection, error)
	GetSlotsForDoctor(ctx context.Context, doctorID string, q SlotQuery) (SlotCollection, error)
	GetDoctorsWithSlots(ctx context.Context, q SlotQuery) (DoctorCollection, error)
	GetDoctorSlot(ctx context.Context, doctorID, slotID string) (AppointmentSlot, error)

	// CacheUntil and WithoutCache change the receiver's cache policy for later
	// reads and return the receiver.
	CacheUntil(expiry time.Time) Provider
	WithoutCache() Provider
}

// PatientDataAuthenticator is implemented by providers whose session is scoped
// to one patient rather than a service account.
type PatientDataAuthenticator interface {
	SetPatientDataForAuthentication(data PatientData)
	Authenticate(ctx context.Context) (*Token, error)
}

// PatientDataScheduler books a slot with inline patient data.
type PatientDataScheduler interface {
	ScheduleUsingPatientData(ctx context.Context, specialty, slotID string, data PatientData) (Appointment, error)
}

// Scheduler books a slot for a patient previously registered with the provider.
type Scheduler interface {
	Schedule(ctx context.Context, req ScheduleRequest) (Appointment, error)
}

// PatientRegistrar creates or updates patients upstream.
type PatientRegistrar interface {
	UpdateOrCreatePatient(ctx context.Context, data PatientData) (Patient, error)
}

// AppointmentManager inspects and cancels booked appointments.
type AppointmentManager interface {
	GetAppointment(ctx context.Context, appointmentID string) (Appointment, error)
	GetAppointmentLink(ctx context.Context, appointmentID string) (string, error)
	CancelAppointment(ctx context.Context, appointmentID string) error
}

// DoctorFinder fetches one doctor by id.
type DoctorFinder interface {
	GetDoctor(ctx context.Context, doctorID string, withSlots bool) (Doctor, error)
}

// Capability names an optional trait.
type Capability string

const (
	CapAuthenticatesUsingPatientData Capability = "authenticates_using_patient_data"
	CapSchedulesUsingPatientData     Capability = "schedules_using_patient_data"
	CapSchedules                     Capability = "schedules"
	CapRegistersPatients             Capability = "registers_patients"
	CapManagesAppointments           Capability = "manages_appointments"
	CapFindsDoctors                  Capability = "finds_doctors"
)

// Capabilities is the set of optional traits a provider implements.
type Capabilities map[Capability]bool

// CapabilitiesOf inspects p for every known trait.
func CapabilitiesOf(p Provider) Capabilities {
	caps := Capabilities{}
	if _, ok := p.(PatientDataAuthenticator); ok {
		caps[CapAuthenticatesUsingPatientData] = true
	}
	if _, ok := p.(PatientDataScheduler); ok {
		caps[CapSchedulesUsingPatientData] = true
	}
	if _, ok := p.(Scheduler); ok {
		caps[CapSchedules] = true
	}
	if _, ok := p.(PatientRegistrar); ok {
		caps[CapRegistersPatients] = true
	}
	if _, ok := p.(AppointmentManager); ok {
		caps[CapManagesAppointments] = true
	}
	if _, ok := p.(DoctorFinder); ok {
		caps[CapFindsDoctors] = true
	}
	return caps
}

// Has reports whether c includes cap.
func (c Capabilities) Has(cap Capability) bool {
	return c[cap]
}

// List returns the capability names sorted.
func (c Capabilities) List() []string {
	out := make([]string, 0, len(c))
	for cap, ok := range c {
		if ok {
			out = append(out, string(cap))
		}
	}
	sort.Strings(out)
	return out
}

func (c Capabilities) String() string {
	return strings.Join(c.List(), ",")
}
