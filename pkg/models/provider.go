package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderStats è uno snapshot dei contatori di un provider della
// catena, una riga per provider per campionamento
type ProviderStats struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Provider  string    `json:"provider" gorm:"index;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"index;not null"`

	// Contatori cumulativi al momento dello snapshot
	TotalRequests int64  `json:"total_requests"`
	SuccessCount  int64  `json:"success_count"`
	ErrorCount    int64  `json:"error_count"`
	AvgLatencyMs  int    `json:"avg_latency_ms"`
	Health        string `json:"health"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate hook
func (s *ProviderStats) BeforeCreate() error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
	return nil
}

// SuccessRate calcola il tasso di successo nella finestra
func (s *ProviderStats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.TotalRequests)
}

// TableName specifica il nome della tabella
func (ProviderStats) TableName() string {
	return "provider_stats"
}
