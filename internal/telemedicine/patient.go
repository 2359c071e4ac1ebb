package telemedicine

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func patientValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// PatientData is the caller supplied identity used to authenticate against
// patient-scoped providers and to create patients.
type PatientData struct {
	Name      string    `json:"name" validate:"required"`
	Document  string    `json:"document" validate:"required,numeric,len=11"`
	BirthDate time.Time `json:"birth_date" validate:"required"`
	Gender    Gender    `json:"gender" validate:"required,oneof=M F"`
	Email     string    `json:"email" validate:"required,email"`
	Phone     string    `json:"phone" validate:"required,numeric,min=10,max=13"`
}

// Validate checks every field and reports the first failing one.
func (p PatientData) Validate() error {
	err := patientValidator().Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return NewValidationError(strings.ToLower(fe.Field()), "failed %q check", fe.Tag())
	}
	return NewValidationError("patient", "%v", err)
}

// BirthDateString renders the birth date as YYYY-MM-DD.
func (p PatientData) BirthDateString() string {
	return p.BirthDate.Format(time.DateOnly)
}

// Patient is a patient persisted by a provider.
type Patient struct {
	ID string `json:"id"`
	PatientData
}

// PatientBuilder assembles PatientData fluently.
type PatientBuilder struct {
	data PatientData
	errs []error
}

// NewPatientBuilder starts an empty builder.
func NewPatientBuilder() *PatientBuilder {
	return &PatientBuilder{}
}

func (b *PatientBuilder) WithName(name string) *PatientBuilder {
	b.data.Name = strings.TrimSpace(name)
	return b
}

// WithDocument strips formatting characters from a CPF.
func (b *PatientBuilder) WithDocument(document string) *PatientBuilder {
	b.data.Document = digitsOnly(document)
	return b
}

func (b *PatientBuilder) WithBirthDate(birthDate time.Time) *PatientBuilder {
	b.data.BirthDate = birthDate
	return b
}

// WithBirthDateString parses YYYY-MM-DD.
func (b *PatientBuilder) WithBirthDateString(raw string) *PatientBuilder {
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		b.errs = append(b.errs, NewValidationError("birthdate", "expected YYYY-MM-DD, got %q", raw))
		return b
	}
	b.data.BirthDate = t
	return b
}

func (b *PatientBuilder) WithGender(gender Gender) *PatientBuilder {
	b.data.Gender = gender
	return b
}

func (b *PatientBuilder) WithEmail(email string) *PatientBuilder {
	b.data.Email = strings.TrimSpace(email)
	return b
}

func (b *PatientBuilder) WithPhone(phone string) *PatientBuilder {
	b.data.Phone = digitsOnly(phone)
	return b
}

// Build validates and returns the assembled data.
func (b *PatientBuilder) Build() (PatientData, error) {
	if len(b.errs) > 0 {
		return PatientData{}, b.errs[0]
	}
	if err := b.data.Validate(); err != nil {
		return PatientData{}, err
	}
	return b.data, nil
}

func digitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
