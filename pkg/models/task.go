package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TaskRecord rappresenta l'esito aggregato di un task orchestrato
type TaskRecord struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Capability string    `json:"capability" gorm:"index;not null"`
	FanOut     string    `json:"fan_out"`
	Priority   int       `json:"priority"`

	// Status è l'aggregazione finale: all_succeeded, partial_success, all_failed
	Status    string `json:"status" gorm:"index;not null"`
	LatencyMs int64  `json:"latency_ms"`

	// Results contiene i TaskResult per-agente in JSON
	Results datatypes.JSON `json:"results"`

	Timestamp time.Time `json:"timestamp" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate hook
func (r *TaskRecord) BeforeCreate() error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	return nil
}

// TableName specifica il nome della tabella
func (TaskRecord) TableName() string {
	return "task_records"
}
