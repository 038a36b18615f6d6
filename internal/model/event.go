package model

import (
	"math"
	"time"
)

// MaxEventID events.id 為 SERIAL (int4)，超過的 id 不可能存在
const MaxEventID = math.MaxInt32

// EventStatus 活動狀態類型
type EventStatus string

const (
	EventStatusScheduled  EventStatus = "scheduled"
	EventStatusInProgress EventStatus = "in_progress"
	EventStatusFinished   EventStatus = "finished"
	EventStatusCancelled  EventStatus = "cancelled"
)

// IsValid 驗證狀態是否有效
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusScheduled, EventStatusInProgress, EventStatusFinished, EventStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s EventStatus) CanTransitionTo(target EventStatus) bool {
	transitions := map[EventStatus][]EventStatus{
		EventStatusScheduled:  {EventStatusInProgress, EventStatusCancelled},
		EventStatusInProgress: {EventStatusFinished, EventStatusCancelled},
		EventStatusFinished:   {},
		EventStatusCancelled:  {},
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

// Event 活動模型
type Event struct {
	ID              int         `json:"id" db:"id"`
	Title           string      `json:"title" db:"title"`
	Description     *string     `json:"description,omitempty" db:"description"`
	StartAt         time.Time   `json:"start_at" db:"start_at"`
	EndAt           time.Time   `json:"end_at" db:"end_at"`
	Location        *string     `json:"location,omitempty" db:"location"`
	CapacityMax     int         `json:"capacity_max" db:"capacity_max"`
	CapacityCurrent int         `json:"capacity_current" db:"capacity_current"`
	Status          EventStatus `json:"status" db:"status"`
	Price           float64     `json:"price" db:"price"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// IsRegistrable 只有排定中或進行中的活動可以報名
func (e *Event) IsRegistrable() bool {
	return e.Status == EventStatusScheduled || e.Status == EventStatusInProgress
}

// IsFull 檢查名額是否已滿
func (e *Event) IsFull() bool {
	return e.CapacityCurrent >= e.CapacityMax
}

// RemainingCapacity 剩餘名額，不會小於 0
func (e *Event) RemainingCapacity() int {
	if e.CapacityCurrent >= e.CapacityMax {
		return 0
	}
	return e.CapacityMax - e.CapacityCurrent
}

// CreateEventParams 建立活動參數
type CreateEventParams struct {
	Title       string    `validate:"required,max=255"`
	Description *string
	StartAt     time.Time `validate:"required"`
	EndAt       time.Time `validate:"required,gtefield=StartAt"`
	Location    *string   `validate:"omitempty,max=255"`
	CapacityMax int       `validate:"gte=0"`
	Price       float64   `validate:"gte=0"`
}
