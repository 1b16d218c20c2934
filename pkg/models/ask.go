package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AskRecord rappresenta una singola domanda processata dalla
// catena di fallback, con la trail completa dei tentativi
type AskRecord struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Fingerprint string    `json:"fingerprint" gorm:"index;not null"`
	Category    string    `json:"category" gorm:"index"`

	// Question viene troncata per evitare righe enormi
	Question string `json:"question" gorm:"type:text"`

	// Outcome
	Answered   bool    `json:"answered"`
	CacheHit   bool    `json:"cache_hit"`
	Provider   string  `json:"provider" gorm:"index"`
	Confidence float64 `json:"confidence"`
	LatencyMs  int64   `json:"latency_ms"`

	// Attempts contiene la trail ordinata dei tentativi in JSON
	Attempts datatypes.JSON `json:"attempts"`

	Timestamp time.Time `json:"timestamp" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate hook
func (r *AskRecord) BeforeCreate() error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	return nil
}

// TableName specifica il nome della tabella
func (AskRecord) TableName() string {
	return "ask_records"
}
