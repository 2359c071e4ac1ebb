package fleury

import "github.com/wolfman30/telemedicine-client/internal/upstream"

const apiPrefix = "integration/cuidado-digital/v1/"

type authRequest struct {
	APIKey         string `json:"apiKey"`
	Client         string `json:"client"`
	Name           string `json:"name"`
	DocumentNumber string `json:"documentNumber"`
	Gender         string `json:"gender"`
	Birth          string `json:"birth"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type professional struct {
	ID      upstream.ID `json:"id"`
	Name    string      `json:"name"`
	Council string      `json:"council"`
	Avatar  *string     `json:"avatar"`
}

type slot struct {
	ID   upstream.ID `json:"id"`
	Date string      `json:"date"`
}

type professionalSlots struct {
	Professional professional `json:"professional"`
	Slots        []slot       `json:"slots"`
}

type schedulePatient struct {
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
	Gender     string `json:"gender"`
	DOB        string `json:"dob"`
	Cellphone  string `json:"cellphone"`
	Email      string `json:"email"`
}

type scheduleRequest struct {
	SlotID  string          `json:"slot_id"`
	Patient schedulePatient `json:"patient"`
}

type appointment struct {
	ID             upstream.ID `json:"id"`
	Date           string      `json:"date"`
	Status         string      `json:"status"`
	AttendanceLink string      `json:"attendance_link"`
	Professional   struct {
		Name string `json:"name"`
	} `json:"professional"`
}
