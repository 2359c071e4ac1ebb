package fakeprovider

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
)

// NewDoctor generates a doctor with a fresh id.
func (p *Provider) NewDoctor() telemedicine.Doctor {
	p.mu.Lock()
	defer p.mu.Unlock()

	rating, _ := telemedicine.NewRating(10)
	return telemedicine.Doctor{
		ID:                 uuid.NewString(),
		Name:               p.faker.FirstName() + " " + p.faker.LastName(),
		Gender:             telemedicine.Gender(p.faker.RandomString([]string{"M", "F"})),
		Rating:             &rating,
		RegistrationNumber: "CRM-SP " + p.faker.Numerify("#####"),
	}
}

// NewSlot generates a slot at the start of the next hour priced at 100.00.
func (p *Provider) NewSlot() telemedicine.AppointmentSlot {
	price := telemedicine.Money(10000)
	return telemedicine.AppointmentSlot{
		ID:       uuid.NewString(),
		DateTime: p.now().Add(time.Hour).Truncate(time.Hour),
		Price:    &price,
	}
}

// NewPatientData generates data that passes validation.
func (p *Provider) NewPatientData() telemedicine.PatientData {
	p.mu.Lock()
	defer p.mu.Unlock()

	first, last := p.faker.FirstName(), p.faker.LastName()
	return telemedicine.PatientData{
		Name:      first + " " + last,
		Document:  p.faker.Numerify("###########"),
		BirthDate: time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
		Gender:    telemedicine.Gender(p.faker.RandomString([]string{"M", "F"})),
		Email:     strings.ToLower(first+"."+last) + "@example.com",
		Phone:     p.faker.Numerify("26#########"),
	}
}

// MockExistingDoctor lists doctor under specialty.
func (p *Provider) MockExistingDoctor(specialty string, doctor telemedicine.Doctor) telemedicine.Doctor {
	p.mu.Lock()
	defer p.mu.Unlock()

	if doctor.ID == "" {
		doctor.ID = uuid.NewString()
	}
	doctor = doctor.WithoutSlots()
	for i := range p.doctors {
		if p.doctors[i].specialty != specialty {
			continue
		}
		for j, d := range p.doctors[i].doctors {
			if d.ID == doctor.ID {
				p.doctors[i].doctors[j] = doctor
				return doctor
			}
		}
		p.doctors[i].doctors = append(p.doctors[i].doctors, doctor)
		return doctor
	}
	p.doctors = append(p.doctors, doctorGroup{specialty: specialty, doctors: []telemedicine.Doctor{doctor}})
	return doctor
}

// MockExistingSlot opens slot for a doctor already mocked under specialty.
func (p *Provider) MockExistingSlot(doctorID, specialty string, slot telemedicine.AppointmentSlot) (telemedicine.AppointmentSlot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasDoctor(specialty, doctorID) {
		return telemedicine.AppointmentSlot{}, telemedicine.DoctorNotFound(doctorID)
	}
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	groups := p.slots[doctorID]
	for i := range groups {
		if groups[i].specialty == specialty {
			groups[i].slots = append(groups[i].slots, slot)
			return slot, nil
		}
	}
	p.slots[doctorID] = append(groups, slotGroup{specialty: specialty, slots: []telemedicine.AppointmentSlot{slot}})
	return slot, nil
}

func (p *Provider) MockExistingPatient(patient telemedicine.Patient) telemedicine.Patient {
	p.mu.Lock()
	defer p.mu.Unlock()

	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	for i, existing := range p.patients {
		if existing.ID == patient.ID {
			p.patients[i] = patient
			return patient
		}
	}
	p.patients = append(p.patients, patient)
	return patient
}

// MockExistingAppointment stores appt as booked. A missing status means scheduled.
func (p *Provider) MockExistingAppointment(appt telemedicine.Appointment) telemedicine.Appointment {
	p.mu.Lock()
	defer p.mu.Unlock()

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.Status == nil {
		appt.Status = telemedicine.StatusPtr(telemedicine.StatusScheduled)
	}
	if i := p.appointmentIndex(appt.ID); i >= 0 {
		p.appointments[i] = appt
		return appt
	}
	p.appointments = append(p.appointments, appt)
	return appt
}

func (p *Provider) hasDoctor(specialty, doctorID string) bool {
	for _, g := range p.doctors {
		if g.specialty != specialty {
			continue
		}
		for _, d := range g.doctors {
			if d.ID == doctorID {
				return true
			}
		}
	}
	return false
}
