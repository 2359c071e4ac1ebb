package telemedicine

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Gender as reported by providers and supplied for patients.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// ParseGender accepts the single-letter codes and the spelled-out forms upstreams use.
func ParseGender(raw string) (Gender, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "M", "MALE", "MASCULINO":
		return GenderMale, nil
	case "F", "FEMALE", "FEMININO":
		return GenderFemale, nil
	case "":
		return "", nil
	}
	return "", NewValidationError("gender", "unknown gender %q", raw)
}

// Doctor is a normalized practitioner. Slots are nil when they were not loaded.
type Doctor struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Gender             Gender  `json:"gender,omitempty"`
	Rating             *Rating `json:"rating,omitempty"`
	RegistrationNumber string  `json:"registration_number"`
	PhotoURL           string  `json:"photo_url,omitempty"`

	slots *SlotCollection
}

// WithSlots returns a copy of d carrying slots.
func (d Doctor) WithSlots(slots SlotCollection) Doctor {
	d.slots = &slots
	return d
}

// WithoutSlots returns a copy of d with slots unloaded.
func (d Doctor) WithoutSlots() Doctor {
	d.slots = nil
	return d
}

// Slots returns the loaded slots and whether they were loaded at all.
func (d Doctor) Slots() (SlotCollection, bool) {
	if d.slots == nil {
		return SlotCollection{}, false
	}
	return *d.slots, true
}

// HasSlots reports whether slots were loaded, even if empty.
func (d Doctor) HasSlots() bool {
	return d.slots != nil
}

// EarliestSlot returns the chronologically first slot.
func (d Doctor) EarliestSlot() (AppointmentSlot, bool) {
	if d.slots == nil || d.slots.IsEmpty() {
		return AppointmentSlot{}, false
	}
	earliest, _ := d.slots.First()
	for _, s := range d.slots.items {
		if s.DateTime.Before(earliest.DateTime) {
			earliest = s
		}
	}
	return earliest, true
}

// AppointmentSlot is a bookable window for one doctor.
type AppointmentSlot struct {
	ID       string    `json:"id"`
	DateTime time.Time `json:"date_time"`
	Price    *Money    `json:"price,omitempty"`
}

// AppointmentStatus is the canonical status set.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCanceled  AppointmentStatus = "canceled"
)

// Appointment is a booked consultation. Optional fields are nil when the provider
// generation does not report them.
type Appointment struct {
	ID           string             `json:"id"`
	DateTime     time.Time          `json:"date_time,omitempty"`
	Status       *AppointmentStatus `json:"status,omitempty"`
	DoctorName   *string            `json:"doctor_name,omitempty"`
	Observations *string            `json:"observations,omitempty"`
}

// IsCanceled reports whether the appointment carries a canceled status.
func (a Appointment) IsCanceled() bool {
	return a.Status != nil && *a.Status == StatusCanceled
}

// StatusPtr is a helper for building appointments.
func StatusPtr(s AppointmentStatus) *AppointmentStatus {
	return &s
}

// StringPtr returns nil for empty strings.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// MarshalJSON includes slots only when they were loaded.
func (d Doctor) MarshalJSON() ([]byte, error) {
	type plain Doctor
	var slots *[]AppointmentSlot
	if d.slots != nil {
		items := d.slots.Items()
		slots = &items
	}
	return json.Marshal(struct {
		plain
		Slots *[]AppointmentSlot `json:"slots,omitempty"`
	}{plain: plain(d), Slots: slots})
}
