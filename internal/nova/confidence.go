package nova

import (
	"strings"

	"github.com/novahq/nova/internal/providers"
)

// estimateConfidence affina la confidence del provider con
// euristiche su famiglia di modello e lunghezza della risposta,
// clampata in [0,1]
func estimateConfidence(result *providers.RawResult) float64 {
	confidence := result.Confidence
	if confidence <= 0 {
		confidence = 0.8
	}

	model := result.ProviderID
	if m, ok := result.Metadata["model"].(string); ok && m != "" {
		model = m
	}
	model = strings.ToLower(model)

	if strings.Contains(model, "gemini") {
		confidence += 0.1
	}
	if strings.Contains(model, "gpt-4") {
		confidence += 0.05
	}

	if len(result.Text) > 200 {
		confidence += 0.05
	}

	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}
