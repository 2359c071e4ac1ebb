package telemedicine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDoctorNotFound is returned when a doctor id has no match in the current upstream snapshot.
	ErrDoctorNotFound = errors.New("telemedicine: doctor not found")
	// ErrSlotNotFound is returned when a doctor exists but none of its slots match.
	ErrSlotNotFound = errors.New("telemedicine: slot not found")
	// ErrAppointmentNotFound is returned when an appointment id is unknown.
	ErrAppointmentNotFound = errors.New("telemedicine: appointment not found")
	// ErrAppointmentAlreadyCanceled is returned when canceling a canceled appointment.
	ErrAppointmentAlreadyCanceled = errors.New("telemedicine: appointment already canceled")
	// ErrNotSupported is returned when a provider lacks the capability an operation needs.
	ErrNotSupported = errors.New("telemedicine: operation not supported by provider")
)

// ConfigError reports a missing or invalid setting. It is raised before any network call.
type ConfigError struct {
	Setting string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Setting == "" {
		return "telemedicine: " + e.Message
	}
	return fmt.Sprintf("telemedicine: %s: %s", e.Setting, e.Message)
}

// NewConfigError builds a ConfigError for a setting.
func NewConfigError(setting, format string, args ...any) *ConfigError {
	return &ConfigError{Setting: setting, Message: fmt.Sprintf(format, args...)}
}

// MissingSetting reports a required setting with no default.
func MissingSetting(setting, description string) *ConfigError {
	return &ConfigError{Setting: setting, Message: "unable to resolve " + description}
}

// RequestError is the normalized form of any failed upstream call.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	Body       []byte
	Err        error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// UpstreamMessage returns the vendor supplied message, if the body carried one.
func (e *RequestError) UpstreamMessage() string {
	return upstreamMessage(e.Message)
}

const (
	upstreamMessagePrefix = "the service responded with an error: "
	// UnexpectedErrorMessage is used when the upstream body has no readable message.
	UnexpectedErrorMessage = "an unexpected error occurred while processing the request"
)

// RequestErrorMessage formats the caller facing message for an upstream failure.
func RequestErrorMessage(upstream string) string {
	if upstream == "" {
		return UnexpectedErrorMessage
	}
	return upstreamMessagePrefix + upstream
}

func upstreamMessage(msg string) string {
	if rest, ok := strings.CutPrefix(msg, upstreamMessagePrefix); ok {
		return rest
	}
	return ""
}

// ValidationError is raised when a value fails construction or parsing rules.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "telemedicine: " + e.Message
	}
	return fmt.Sprintf("telemedicine: invalid %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err wraps a ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsRequestError reports whether err wraps a RequestError.
func IsRequestError(err error) bool {
	var target *RequestError
	return errors.As(err, &target)
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is one of the domain lookup errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDoctorNotFound) ||
		errors.Is(err, ErrSlotNotFound) ||
		errors.Is(err, ErrAppointmentNotFound)
}

// DoctorNotFound wraps ErrDoctorNotFound with the id.
func DoctorNotFound(doctorID string) error {
	return fmt.Errorf("%w: doctor %s", ErrDoctorNotFound, doctorID)
}

// SlotNotFound wraps ErrSlotNotFound with the ids.
func SlotNotFound(doctorID, slotID string) error {
	return fmt.Errorf("%w: slot with ID %s not found for doctor %s", ErrSlotNotFound, slotID, doctorID)
}

// AppointmentNotFound wraps ErrAppointmentNotFound with the id.
func AppointmentNotFound(appointmentID string) error {
	return fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointmentID)
}
