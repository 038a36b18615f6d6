package model

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationNotification 新報名通知，交給佇列與各個 sink
type RegistrationNotification struct {
	ID             uuid.UUID `json:"id"`
	RegistrationID int       `json:"registration_id"`
	EventID        int       `json:"event_id"`
	EventTitle     string    `json:"event_title"`
	ContactName    string    `json:"contact_name"`
	ContactEmail   string    `json:"contact_email"`
	CompanyName    *string   `json:"company_name,omitempty"`
	RegisteredAt   time.Time `json:"registered_at"`
}

func NewRegistrationNotification(event *Event, reg *Registration) *RegistrationNotification {
	return &RegistrationNotification{
		ID:             uuid.New(),
		RegistrationID: reg.ID,
		EventID:        event.ID,
		EventTitle:     event.Title,
		ContactName:    reg.ContactName,
		ContactEmail:   reg.ContactEmail,
		CompanyName:    reg.CompanyName,
		RegisteredAt:   reg.RegisteredAt,
	}
}
