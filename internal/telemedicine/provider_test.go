package telemedicine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type readOnlyProvider struct{}

func (readOnlyProvider) Slug() string { return "read-only" }
func (readOnlyProvider) GetDoctors(context.Context, DoctorQuery) (DoctorCollection, error) {
	return DoctorCollection{}, nil
}
func (readOnlyProvider) GetSlotsForDoctor(context.Context, string, SlotQuery) (SlotCollection, error) {
	return SlotCollection{}, nil
}
func (readOnlyProvider) GetDoctorsWithSlots(context.Context, SlotQuery) (DoctorCollection, error) {
	return DoctorCollection{}, nil
}
func (readOnlyProvider) GetDoctorSlot(context.Context, string, string) (AppointmentSlot, error) {
	return AppointmentSlot{}, ErrSlotNotFound
}
func (p readOnlyProvider) CacheUntil(time.Time) Provider { return p }
func (p readOnlyProvider) WithoutCache() Provider         { return p }

type schedulingProvider struct{ readOnlyProvider }

func (schedulingProvider) Schedule(context.Context, ScheduleRequest) (Appointment, error) {
	return Appointment{ID: "a1", Status: StatusPtr(StatusScheduled)}, nil
}

func (schedulingProvider) UpdateOrCreatePatient(_ context.Context, data PatientData) (Patient, error) {
	return Patient{ID: "p1", PatientData: data}, nil
}

func TestCapabilitiesOf(t *testing.T) {
	assert.Empty(t, CapabilitiesOf(readOnlyProvider{}).List())

	caps := CapabilitiesOf(schedulingProvider{})
	assert.True(t, caps.Has(CapSchedules))
	assert.True(t, caps.Has(CapRegistersPatients))
	assert.False(t, caps.Has(CapManagesAppointments))
	assert.Equal(t, "registers_patients,schedules", caps.String())
}

func TestAppointmentIsCanceled(t *testing.T) {
	assert.False(t, Appointment{ID: "1"}.IsCanceled())
	assert.False(t, Appointment{ID: "1", Status: StatusPtr(StatusScheduled)}.IsCanceled())
	assert.True(t, Appointment{ID: "1", Status: StatusPtr(StatusCanceled)}.IsCanceled())
}
