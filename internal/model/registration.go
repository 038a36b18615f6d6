package model

import (
	"time"

	apperrors "cluster-registration/pkg/app_errors"
)

// RegistrationStatus 報名狀態類型
type RegistrationStatus string

const (
	RegistrationStatusPending   RegistrationStatus = "pending"
	RegistrationStatusConfirmed RegistrationStatus = "confirmed"
	RegistrationStatusRejected  RegistrationStatus = "rejected"
)

// IsValid 驗證狀態是否有效
func (s RegistrationStatus) IsValid() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusConfirmed, RegistrationStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo 只有 pending 可以被審核為 confirmed 或 rejected
func (s RegistrationStatus) CanTransitionTo(target RegistrationStatus) bool {
	transitions := map[RegistrationStatus][]RegistrationStatus{
		RegistrationStatusPending:   {RegistrationStatusConfirmed, RegistrationStatusRejected},
		RegistrationStatusConfirmed: {},
		RegistrationStatusRejected:  {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// Registration 報名紀錄
type Registration struct {
	ID           int                `json:"id" db:"id"`
	EventID      int                `json:"event_id" db:"event_id"`
	CompanyID    *int64             `json:"company_id,omitempty" db:"company_id"`
	UserID       *int64             `json:"user_id,omitempty" db:"user_id"`
	ContactName  string             `json:"contact_name" db:"contact_name"`
	ContactEmail string             `json:"contact_email" db:"contact_email"`
	ContactPhone *string            `json:"contact_phone,omitempty" db:"contact_phone"`
	CompanyName  *string            `json:"company_name,omitempty" db:"company_name"`
	Comments     *string            `json:"comments,omitempty" db:"comments"`
	Status       RegistrationStatus `json:"status" db:"status"`
	RegisteredAt time.Time          `json:"registered_at" db:"registered_at"`
	UpdatedAt    time.Time          `json:"updated_at" db:"updated_at"`
}

// RegisterInput 報名輸入。json tag 即對外欄位名稱，驗證錯誤訊息會用到
type RegisterInput struct {
	EventID      int     `json:"evento_id" validate:"required,gt=0"`
	ContactName  string  `json:"nombre_usuario" validate:"required"`
	ContactEmail string  `json:"email_contacto" validate:"required"`
	ContactPhone *string `json:"telefono_contacto"`
	CompanyName  *string `json:"nombre_empresa"`
	CompanyID    *int64  `json:"empresa_id"`
	UserID       *int64  `json:"usuario_id"`
	Comments     *string `json:"comentarios"`
}

// RegistrationOutcome 報名結果的分類，業務結果不以 error 表示
type RegistrationOutcome string

const (
	OutcomeOK              RegistrationOutcome = "ok"
	OutcomeExists          RegistrationOutcome = "exists"
	OutcomeFull            RegistrationOutcome = "full"
	OutcomeNotFound        RegistrationOutcome = "not_found"
	OutcomeValidationError RegistrationOutcome = "validation_error"
)

// RegistrationResult 報名結果
//
// Outcome 為 ok 時 Registration、Event、RemainingCapacity 有值；
// exists 時 Existing 為原本那筆報名；validation_error 時 Validation 有值。
type RegistrationResult struct {
	Outcome           RegistrationOutcome
	Registration      *Registration
	Event             *Event
	RemainingCapacity int
	Existing          *Registration
	Validation        *apperrors.ValidationError
}
