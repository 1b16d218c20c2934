package agents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FanOut determina quanti agenti ricevono un task
type FanOut string

const (
	// FanOutFirstMatch esegue solo il primo agente che matcha
	FanOutFirstMatch FanOut = "first_match"

	// FanOutBroadcast esegue tutti gli agenti che matchano, in parallelo
	FanOutBroadcast FanOut = "broadcast"
)

// TaskStatus è lo stato finale dell'esecuzione di un singolo agente
type TaskStatus string

const (
	StatusSucceeded TaskStatus = "succeeded"
	StatusFailed    TaskStatus = "failed"
	StatusTimedOut  TaskStatus = "timed_out"
)

// OutcomeStatus aggrega gli stati dei singoli agenti
type OutcomeStatus string

const (
	AllSucceeded   OutcomeStatus = "all_succeeded"
	PartialSuccess OutcomeStatus = "partial_success"
	AllFailed      OutcomeStatus = "all_failed"
)

// Task è un'unità di lavoro indirizzata per capability
type Task struct {
	ID         uuid.UUID              `json:"id"`
	Capability string                 `json:"capability"`
	Payload    map[string]interface{} `json:"payload"`
	Priority   int                    `json:"priority"`
	Deadline   time.Duration          `json:"deadline"`
	FanOut     FanOut                 `json:"fan_out"`
}

// NewTask crea un task con ID assegnato e fan-out di default
func NewTask(capability string, payload map[string]interface{}) *Task {
	return &Task{
		ID:         uuid.New(),
		Capability: capability,
		Payload:    payload,
		FanOut:     FanOutFirstMatch,
	}
}

// TaskResult è il risultato dell'esecuzione di un singolo agente
type TaskResult struct {
	AgentID   string                 `json:"agent_id"`
	Status    TaskStatus             `json:"status"`
	Output    map[string]interface{} `json:"output,omitempty"`
	Error     string                 `json:"error,omitempty"`
	LatencyMS int64                  `json:"latency_ms"`
}

// Outcome è il risultato aggregato di un task. Results contiene un
// TaskResult per ogni agente eseguito; NotAttempted elenca gli
// agenti che matchavano ma non sono stati eseguiti (fan-out
// first_match).
type Outcome struct {
	TaskID         uuid.UUID     `json:"task_id"`
	Status         OutcomeStatus `json:"status"`
	Results        []TaskResult  `json:"results"`
	NotAttempted   []string      `json:"not_attempted,omitempty"`
	TotalLatencyMS int64         `json:"total_latency_ms"`
}

// Agent è un esecutore registrato per una o più capability
type Agent interface {
	// ID restituisce l'identificatore univoco dell'agente
	ID() string

	// Capabilities restituisce i tag di capability gestiti
	Capabilities() []string

	// Execute esegue il task. Deve rispettare la cancellazione del
	// context: oltre la deadline il risultato viene abbandonato.
	Execute(ctx context.Context, task *Task) (map[string]interface{}, error)
}
