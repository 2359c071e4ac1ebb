package fakeprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
)

// AssertPatientCreated fails t unless a patient exists, or one matches any
// of the given predicates.
func (p *Provider) AssertPatientCreated(t testing.TB, match ...func(telemedicine.Patient) bool) bool {
	t.Helper()
	patients := p.Patients()
	if len(match) == 0 {
		return assert.NotEmpty(t, patients, "No patients were created.")
	}
	return assert.True(t, anyMatch(patients, match), "The patient was not created.")
}

func (p *Provider) AssertPatientNotCreated(t testing.TB, match ...func(telemedicine.Patient) bool) bool {
	t.Helper()
	patients := p.Patients()
	if len(match) == 0 {
		return assert.Empty(t, patients, "Some patients were created.")
	}
	return assert.False(t, anyMatch(patients, match), "The patient was created.")
}

func (p *Provider) AssertAppointmentCreated(t testing.TB, match ...func(telemedicine.Appointment) bool) bool {
	t.Helper()
	appts := p.Appointments()
	if len(match) == 0 {
		return assert.NotEmpty(t, appts, "No appointments were created.")
	}
	return assert.True(t, anyMatch(appts, match), "The appointment was not created.")
}

func (p *Provider) AssertAppointmentNotCreated(t testing.TB, match ...func(telemedicine.Appointment) bool) bool {
	t.Helper()
	appts := p.Appointments()
	if len(match) == 0 {
		return assert.Empty(t, appts, "Some appointments were created.")
	}
	return assert.False(t, anyMatch(appts, match), "The appointment was created.")
}

// AssertAppointmentCanceled considers canceled appointments only.
func (p *Provider) AssertAppointmentCanceled(t testing.TB, match ...func(telemedicine.Appointment) bool) bool {
	t.Helper()
	canceled := p.canceledAppointments()
	if len(match) == 0 {
		return assert.NotEmpty(t, canceled, "No appointments were canceled.")
	}
	return assert.True(t, anyMatch(canceled, match), "The appointment was not canceled.")
}

func (p *Provider) AssertAppointmentNotCanceled(t testing.TB, match ...func(telemedicine.Appointment) bool) bool {
	t.Helper()
	canceled := p.canceledAppointments()
	if len(match) == 0 {
		return assert.Empty(t, canceled, "Some appointments were canceled.")
	}
	return assert.False(t, anyMatch(canceled, match), "The appointment was canceled.")
}

func (p *Provider) canceledAppointments() []telemedicine.Appointment {
	var out []telemedicine.Appointment
	for _, a := range p.Appointments() {
		if a.IsCanceled() {
			out = append(out, a)
		}
	}
	return out
}

// anyMatch reports whether some item satisfies any predicate.
func anyMatch[T any](items []T, match []func(T) bool) bool {
	for _, item := range items {
		for _, fn := range match {
			if fn(item) {
				return true
			}
		}
	}
	return false
}
