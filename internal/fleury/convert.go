package fleury

import (
	"time"

	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
	"github.com/wolfman30/telemedicine-client/internal/upstream"
)

func toDoctor(p professional) telemedicine.Doctor {
	d := telemedicine.Doctor{
		ID:                 p.ID.String(),
		Name:               p.Name,
		RegistrationNumber: p.Council,
	}
	if p.Avatar != nil {
		d.PhotoURL = *p.Avatar
	}
	return d
}

// toStatus maps Fleury statuses onto the canonical set.
func toStatus(raw string) (telemedicine.AppointmentStatus, error) {
	switch raw {
	case "SCHEDULED":
		return telemedicine.StatusScheduled, nil
	case "CANCELED":
		return telemedicine.StatusCanceled, nil
	}
	return "", telemedicine.NewValidationError("status", "invalid status value: '%s'", raw)
}

func (p *Provider) toAppointment(a appointment) (telemedicine.Appointment, error) {
	at, err := upstream.ParseTime(a.Date, time.UTC, p.location)
	if err != nil {
		return telemedicine.Appointment{}, telemedicine.NewValidationError("date", "%v", err)
	}
	status, err := toStatus(a.Status)
	if err != nil {
		return telemedicine.Appointment{}, err
	}
	return telemedicine.Appointment{
		ID:         a.ID.String(),
		DateTime:   at,
		Status:     telemedicine.StatusPtr(status),
		DoctorName: telemedicine.StringPtr(a.Professional.Name),
	}, nil
}
