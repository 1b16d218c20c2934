package providers

import (
	"strings"
	"time"

	"github.com/novahq/nova/pkg/cache"
)

// PromptSpec rappresenta un prompt pronto per un provider.
// Una volta costruito è immutabile: i campi vengono letti dai
// provider ma mai modificati.
type PromptSpec struct {
	Category    string        `json:"category"`
	System      string        `json:"system"`
	Content     string        `json:"content"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
}

// Fingerprint genera l'impronta deterministica del prompt per il
// caching. Il contenuto viene normalizzato (trim + lowercase) così
// che varianti banali della stessa domanda condividano la entry.
func (s *PromptSpec) Fingerprint() string {
	normalized := strings.ToLower(strings.TrimSpace(s.Content))
	return cache.HashKey(
		normalized,
		s.Category,
		s.System,
		s.Temperature,
		s.MaxTokens,
	)
}

// RawResult rappresenta la risposta grezza di un provider
type RawResult struct {
	Text       string                 `json:"text"`
	ProviderID string                 `json:"provider_id"`
	LatencyMS  int64                  `json:"latency_ms"`
	Confidence float64                `json:"confidence"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
