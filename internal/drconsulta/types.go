package drconsulta

import "github.com/wolfman30/telemedicine-client/internal/upstream"

type loginRequest struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type professional struct {
	ID                 upstream.ID     `json:"id_profissional"`
	Name               string          `json:"nome"`
	Gender             string          `json:"sexo"`
	Rating             *upstream.Float `json:"nota"`
	RegistrationNumber string          `json:"nrp"`
	Photos             struct {
		Small string `json:"small"`
	} `json:"fotos"`
}

type slot struct {
	ID       upstream.ID     `json:"id_slot"`
	DateTime string          `json:"horario"`
	Price    *upstream.Float `json:"preco"`
}

// scheduleItem is the nested listing shape of the current generation.
type scheduleItem struct {
	Professional professional `json:"profissional"`
	Slots        []slot       `json:"horarios"`
}

// legacyScheduleItem is the flat listing shape of the first generation.
type legacyScheduleItem struct {
	professional
	Slots []slot `json:"horarios"`
}

type subscriptionRequest struct {
	CPF             string `json:"cpf"`
	Name            string `json:"nome"`
	Email           string `json:"mail"`
	Registration    string `json:"matricula"`
	Gender          string `json:"sexo"`
	BirthDate       string `json:"nasc"`
	PartnerContract string `json:"codigo_parceiro"`
}

type subscriptionResponse struct {
	PatientID upstream.ID `json:"id_paciente"`
}

type appointmentRequest struct {
	PatientID string `json:"idPaciente"`
	UnitID    int    `json:"idUnidade"`
	ProductID string `json:"idProduto"`
	SlotID    string `json:"idSlot"`
}

type appointmentResponse struct {
	Hash string      `json:"hash"`
	ID   upstream.ID `json:"id"`
}
