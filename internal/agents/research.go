package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/novahq/nova/internal/classify"
	"github.com/novahq/nova/internal/fallback"
)

var (
	ErrMissingQuestion = errors.New("task payload has no question")
	ErrNoAnswer        = errors.New("no provider available to answer")
)

// ResearchAgent risponde a domande attraverso la catena di fallback.
// Gestisce le azioni answer_question e respond; la domanda viaggia
// nel payload del task.
type ResearchAgent struct {
	id      string
	builder *classify.Builder
	chain   *fallback.FallbackChain
}

// NewResearchAgent crea un research agent sulla catena data
func NewResearchAgent(chain *fallback.FallbackChain, builder *classify.Builder) *ResearchAgent {
	return &ResearchAgent{
		id:      "research-agent",
		builder: builder,
		chain:   chain,
	}
}

// ID restituisce l'identificatore dell'agente
func (a *ResearchAgent) ID() string { return a.id }

// Capabilities restituisce i tag gestiti
func (a *ResearchAgent) Capabilities() []string {
	return []string{"research"}
}

// Execute risponde alla domanda del payload. L'assenza di provider
// disponibili è un fallimento del task, non un panic.
func (a *ResearchAgent) Execute(ctx context.Context, task *Task) (map[string]interface{}, error) {
	action, _ := task.Payload["action"].(string)
	switch action {
	case "", "answer_question", "respond":
		// Stesso percorso: classifica, costruisci, chiedi
	default:
		return nil, fmt.Errorf("unknown action: %s", action)
	}

	question, _ := task.Payload["question"].(string)
	if question == "" {
		return nil, ErrMissingQuestion
	}
	extra, _ := task.Payload["context"].(string)

	category := classify.Classify(question)
	spec, err := a.builder.Build(category, question, extra)
	if err != nil {
		return nil, err
	}

	outcome := a.chain.Ask(ctx, spec)
	if !outcome.Answered() {
		return nil, ErrNoAnswer
	}

	return map[string]interface{}{
		"answer":     outcome.Result.Text,
		"model":      outcome.Result.ProviderID,
		"confidence": outcome.Result.Confidence,
		"category":   string(category),
		"cache_hit":  outcome.CacheHit,
		"attempts":   len(outcome.Attempts),
	}, nil
}
