package stats

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/novahq/nova/internal/agents"
	"github.com/novahq/nova/internal/fallback"
	"github.com/novahq/nova/internal/providers"
	"github.com/novahq/nova/pkg/database"
	"github.com/novahq/nova/pkg/models"
)

// Recorder persiste gli esiti su database e aggiorna le metriche.
// La persistenza è best effort: un errore di scrittura viene loggato
// e mai propagato al percorso di risposta.
type Recorder struct {
	db       *database.DB
	exporter *Exporter
}

// NewRecorder crea un recorder. Sia db che exporter sono opzionali:
// nil disabilita il rispettivo lato.
func NewRecorder(db *database.DB, exporter *Exporter) *Recorder {
	return &Recorder{db: db, exporter: exporter}
}

// RecordAsk registra l'esito di una domanda
func (r *Recorder) RecordAsk(fingerprint, category, question string, outcome *fallback.Outcome) {
	provider := ""
	confidence := 0.0
	if outcome.Answered() {
		provider = outcome.Result.ProviderID
		confidence = outcome.Result.Confidence
	}

	if r.exporter != nil {
		r.exporter.RecordAsk(provider, category, outcome.Answered(), outcome.CacheHit, outcome.TotalLatencyMS)
		for _, a := range outcome.Attempts {
			r.exporter.RecordAttempt(a.Provider, string(a.Kind))
		}
	}

	if r.db == nil {
		return
	}

	attempts, err := json.Marshal(outcome.Attempts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal attempt trail")
		return
	}

	record := &models.AskRecord{
		Fingerprint: fingerprint,
		Category:    category,
		Question:    question,
		Answered:    outcome.Answered(),
		CacheHit:    outcome.CacheHit,
		Provider:    provider,
		Confidence:  confidence,
		LatencyMs:   outcome.TotalLatencyMS,
		Attempts:    attempts,
	}

	if err := r.db.SaveAskRecord(record); err != nil {
		log.Error().Err(err).Msg("Failed to persist ask record")
	}
}

// TaskStarted segna l'inizio dell'orchestrazione di un task
func (r *Recorder) TaskStarted() {
	if r.exporter != nil {
		r.exporter.TaskStarted()
	}
}

// TaskFinished segna la fine dell'orchestrazione di un task
func (r *Recorder) TaskFinished() {
	if r.exporter != nil {
		r.exporter.TaskFinished()
	}
}

// RecordTask registra l'esito di un task orchestrato
func (r *Recorder) RecordTask(task *agents.Task, outcome *agents.Outcome) {
	if r.exporter != nil {
		r.exporter.RecordTask(task.Capability, string(outcome.Status), outcome.TotalLatencyMS)
	}

	if r.db == nil {
		return
	}

	results, err := json.Marshal(outcome.Results)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal task results")
		return
	}

	record := &models.TaskRecord{
		ID:         outcome.TaskID,
		Capability: task.Capability,
		FanOut:     string(task.FanOut),
		Priority:   task.Priority,
		Status:     string(outcome.Status),
		LatencyMs:  outcome.TotalLatencyMS,
		Results:    results,
	}

	if err := r.db.SaveTaskRecord(record); err != nil {
		log.Error().Err(err).Msg("Failed to persist task record")
	}
}

// RecordProviderSnapshot persiste una riga di ProviderStats per ogni
// provider della catena, con i contatori cumulativi correnti
func (r *Recorder) RecordProviderSnapshot(metadata map[string]*providers.ProviderMetadata) {
	if r.db == nil {
		return
	}

	for _, meta := range metadata {
		row := &models.ProviderStats{
			Provider:      meta.Name,
			TotalRequests: int64(meta.SuccessCount + meta.ErrorCount),
			SuccessCount:  int64(meta.SuccessCount),
			ErrorCount:    int64(meta.ErrorCount),
			AvgLatencyMs:  int(meta.AvgLatency.Milliseconds()),
			Health:        string(meta.HealthCheckStatus),
		}

		if err := r.db.SaveProviderStats(row); err != nil {
			log.Error().Err(err).Str("provider", meta.Name).Msg("Failed to persist provider snapshot")
		}
	}
}
