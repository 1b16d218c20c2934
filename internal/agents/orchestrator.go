package agents

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Orchestrator esegue i task rispettando un tetto globale di
// esecuzioni concorrenti. I task oltre il tetto attendono in coda
// ordinati per priorità e, a pari priorità, per ordine di arrivo:
// backpressure, mai rifiuto.
type Orchestrator struct {
	registry *Registry
	limit    int

	mu      sync.Mutex
	running int
	waiters waiterHeap
	seq     uint64
}

// NewOrchestrator crea un orchestrator con tetto di concorrenza
// maxConcurrent. Registry vuoto o tetto non positivo sono errori
// fatali di configurazione.
func NewOrchestrator(registry *Registry, maxConcurrent int) (*Orchestrator, error) {
	if registry == nil || registry.Count() == 0 {
		return nil, ErrEmptyRegistry
	}
	if maxConcurrent < 1 {
		return nil, fmt.Errorf("max concurrent executions must be >= 1, got %d", maxConcurrent)
	}

	log.Info().
		Int("max_concurrent", maxConcurrent).
		Int("agents", registry.Count()).
		Msg("Orchestrator initialized")

	return &Orchestrator{
		registry: registry,
		limit:    maxConcurrent,
	}, nil
}

// Submit esegue un task e restituisce l'outcome aggregato. La
// chiamata è sincrona ma internamente concorrente: con fan-out
// broadcast tutti gli agenti che matchano girano in parallelo,
// ciascuno contando contro il tetto globale.
func (o *Orchestrator) Submit(ctx context.Context, task *Task) *Outcome {
	start := time.Now()

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.FanOut == "" {
		task.FanOut = FanOutFirstMatch
	}

	matches := o.registry.Resolve(task.Capability)
	if len(matches) == 0 {
		log.Warn().
			Str("task_id", task.ID.String()).
			Str("capability", task.Capability).
			Msg("No agent registered for capability")

		return &Outcome{
			TaskID: task.ID,
			Status: AllFailed,
			Results: []TaskResult{{
				Status: StatusFailed,
				Error:  fmt.Sprintf("no agent registered for capability: %s", task.Capability),
			}},
			TotalLatencyMS: time.Since(start).Milliseconds(),
		}
	}

	targets := matches
	var notAttempted []string
	if task.FanOut == FanOutFirstMatch {
		targets = matches[:1]
		for _, a := range matches[1:] {
			notAttempted = append(notAttempted, a.ID())
		}
	}

	// La deadline decorre dalla submission: copre anche l'attesa
	// in coda
	runCtx := ctx
	var cancel context.CancelFunc
	if task.Deadline > 0 {
		runCtx, cancel = context.WithTimeout(ctx, task.Deadline)
		defer cancel()
	}

	results := make([]TaskResult, len(targets))
	var wg sync.WaitGroup
	for i, agent := range targets {
		wg.Add(1)
		go func(i int, agent Agent) {
			defer wg.Done()
			results[i] = o.runAgent(runCtx, task, agent)
		}(i, agent)
	}
	wg.Wait()

	outcome := &Outcome{
		TaskID:         task.ID,
		Status:         aggregate(results),
		Results:        results,
		NotAttempted:   notAttempted,
		TotalLatencyMS: time.Since(start).Milliseconds(),
	}

	log.Debug().
		Str("task_id", task.ID.String()).
		Str("capability", task.Capability).
		Str("status", string(outcome.Status)).
		Int("agents", len(results)).
		Int64("latency_ms", outcome.TotalLatencyMS).
		Msg("Task completed")

	return outcome
}

// runAgent esegue un singolo agente: attende uno slot, poi lancia
// l'esecuzione in una goroutine con recovery. Se la deadline scade
// il risultato viene abbandonato; lo slot viene rilasciato solo
// quando l'agente ritorna davvero, così il tetto resta rispettato
// anche con agenti lenti a cancellarsi.
func (o *Orchestrator) runAgent(ctx context.Context, task *Task, agent Agent) TaskResult {
	if err := o.acquire(ctx, task.Priority); err != nil {
		return TaskResult{
			AgentID: agent.ID(),
			Status:  StatusTimedOut,
			Error:   "deadline expired while queued",
		}
	}

	start := time.Now()
	resultCh := make(chan TaskResult, 1)

	go func() {
		defer o.release()
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("agent", agent.ID()).
					Str("task_id", task.ID.String()).
					Interface("panic", r).
					Msg("Agent panicked")

				resultCh <- TaskResult{
					AgentID:   agent.ID(),
					Status:    StatusFailed,
					Error:     fmt.Sprintf("agent panic: %v", r),
					LatencyMS: time.Since(start).Milliseconds(),
				}
			}
		}()

		output, err := agent.Execute(ctx, task)
		latency := time.Since(start).Milliseconds()

		if err != nil {
			status := StatusFailed
			if ctx.Err() != nil {
				status = StatusTimedOut
			}
			resultCh <- TaskResult{
				AgentID:   agent.ID(),
				Status:    status,
				Error:     err.Error(),
				LatencyMS: latency,
			}
			return
		}

		resultCh <- TaskResult{
			AgentID:   agent.ID(),
			Status:    StatusSucceeded,
			Output:    output,
			LatencyMS: latency,
		}
	}()

	select {
	case res := <-resultCh:
		return res
	case <-ctx.Done():
		log.Warn().
			Str("agent", agent.ID()).
			Str("task_id", task.ID.String()).
			Dur("deadline", task.Deadline).
			Msg("Agent deadline expired, result abandoned")

		return TaskResult{
			AgentID:   agent.ID(),
			Status:    StatusTimedOut,
			Error:     "deadline expired",
			LatencyMS: time.Since(start).Milliseconds(),
		}
	}
}

// aggregate deriva lo stato complessivo dai soli stati dei risultati
func aggregate(results []TaskResult) OutcomeStatus {
	succeeded := 0
	for _, r := range results {
		if r.Status == StatusSucceeded {
			succeeded++
		}
	}

	switch succeeded {
	case len(results):
		return AllSucceeded
	case 0:
		return AllFailed
	default:
		return PartialSuccess
	}
}

// InFlight restituisce il numero di esecuzioni attive
func (o *Orchestrator) InFlight() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Queued restituisce il numero di esecuzioni in attesa di uno slot
func (o *Orchestrator) Queued() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.waiters.Len()
}

// waiter è un'esecuzione in attesa di uno slot
type waiter struct {
	priority int
	seq      uint64
	ready    chan struct{}
	index    int
	granted  bool
}

// acquire ottiene uno slot di esecuzione, attendendo in coda se il
// tetto è raggiunto. La coda è ordinata per priorità decrescente e,
// a pari priorità, per ordine di arrivo.
func (o *Orchestrator) acquire(ctx context.Context, priority int) error {
	o.mu.Lock()

	if o.running < o.limit && o.waiters.Len() == 0 {
		o.running++
		o.mu.Unlock()
		return nil
	}

	w := &waiter{
		priority: priority,
		seq:      o.seq,
		ready:    make(chan struct{}),
	}
	o.seq++
	heap.Push(&o.waiters, w)
	o.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		o.mu.Lock()
		if w.granted {
			// Slot concesso in corsa con la cancellazione:
			// restituiscilo
			o.running--
			o.dispatchLocked()
		} else {
			heap.Remove(&o.waiters, w.index)
		}
		o.mu.Unlock()
		return ctx.Err()
	}
}

// release libera uno slot e risveglia il prossimo in coda
func (o *Orchestrator) release() {
	o.mu.Lock()
	o.running--
	o.dispatchLocked()
	o.mu.Unlock()
}

// dispatchLocked assegna gli slot liberi ai waiter in ordine di
// priorità. Chiamare con il lock tenuto.
func (o *Orchestrator) dispatchLocked() {
	for o.running < o.limit && o.waiters.Len() > 0 {
		w := heap.Pop(&o.waiters).(*waiter)
		w.granted = true
		o.running++
		close(w.ready)
	}
}

// waiterHeap implementa heap.Interface: priorità più alta prima,
// a pari priorità vince chi è arrivato prima
type waiterHeap []*waiter

func (h waiterHeap) Len() int { return len(h) }

func (h waiterHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h waiterHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *waiterHeap) Push(x interface{}) {
	w := x.(*waiter)
	w.index = len(*h)
	*h = append(*h, w)
}

func (h *waiterHeap) Pop() interface{} {
	old := *h
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return w
}
