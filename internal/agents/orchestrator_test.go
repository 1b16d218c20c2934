package agents

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

// fakeAgent è un agente configurabile per i test
type fakeAgent struct {
	id   string
	tags []string
	fn   func(ctx context.Context, task *Task) (map[string]interface{}, error)
}

func (f *fakeAgent) ID() string             { return f.id }
func (f *fakeAgent) Capabilities() []string { return f.tags }

func (f *fakeAgent) Execute(ctx context.Context, task *Task) (map[string]interface{}, error) {
	if f.fn != nil {
		return f.fn(ctx, task)
	}
	return map[string]interface{}{"ok": true}, nil
}

func okAgent(id string, tags ...string) *fakeAgent {
	return &fakeAgent{id: id, tags: tags}
}

func newTestOrchestrator(t *testing.T, limit int, agentList ...Agent) *Orchestrator {
	t.Helper()
	registry, err := NewRegistry(agentList...)
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}
	o, err := NewOrchestrator(registry, limit)
	if err != nil {
		t.Fatalf("NewOrchestrator() failed: %v", err)
	}
	return o
}

func TestNewRegistry_Empty(t *testing.T) {
	if _, err := NewRegistry(); !errors.Is(err, ErrEmptyRegistry) {
		t.Errorf("NewRegistry() error = %v, want ErrEmptyRegistry", err)
	}
}

func TestNewRegistry_DuplicateID(t *testing.T) {
	_, err := NewRegistry(okAgent("a", "x"), okAgent("a", "y"))
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("NewRegistry() error = %v, want ErrDuplicateID", err)
	}
}

func TestRegistry_Resolve(t *testing.T) {
	registry, err := NewRegistry(
		okAgent("first", "research"),
		okAgent("second", "research", "summarize"),
		okAgent("third", "summarize"),
	)
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}

	research := registry.Resolve("research")
	if len(research) != 2 {
		t.Fatalf("Resolve(research) len = %d, want 2", len(research))
	}
	if research[0].ID() != "first" || research[1].ID() != "second" {
		t.Error("Resolve() should preserve registration order")
	}

	if got := registry.Resolve("unknown"); len(got) != 0 {
		t.Errorf("Resolve(unknown) len = %d, want 0", len(got))
	}

	tags := registry.Capabilities()
	if len(tags) != 2 || tags[0] != "research" || tags[1] != "summarize" {
		t.Errorf("Capabilities() = %v, want [research summarize]", tags)
	}
}

func TestNewOrchestrator_InvalidConfig(t *testing.T) {
	registry, _ := NewRegistry(okAgent("a", "x"))

	if _, err := NewOrchestrator(nil, 4); !errors.Is(err, ErrEmptyRegistry) {
		t.Errorf("NewOrchestrator(nil) error = %v, want ErrEmptyRegistry", err)
	}
	if _, err := NewOrchestrator(registry, 0); err == nil {
		t.Error("NewOrchestrator(limit=0) should fail")
	}
}

func TestSubmit_NoMatchingAgent(t *testing.T) {
	o := newTestOrchestrator(t, 4, okAgent("a", "research"))

	outcome := o.Submit(context.Background(), NewTask("translate", nil))

	if outcome.Status != AllFailed {
		t.Errorf("Status = %v, want AllFailed", outcome.Status)
	}
	if len(outcome.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1 synthetic result", len(outcome.Results))
	}
	if outcome.Results[0].Status != StatusFailed {
		t.Errorf("synthetic result status = %v, want failed", outcome.Results[0].Status)
	}
	if !strings.Contains(outcome.Results[0].Error, "no agent registered") {
		t.Errorf("synthetic result error = %q", outcome.Results[0].Error)
	}
}

func TestSubmit_AssignsTaskID(t *testing.T) {
	o := newTestOrchestrator(t, 4, okAgent("a", "research"))

	task := &Task{Capability: "research"}
	outcome := o.Submit(context.Background(), task)

	if outcome.TaskID == uuid.Nil {
		t.Error("Submit() should assign a task ID")
	}

	other := o.Submit(context.Background(), &Task{Capability: "research"})
	if other.TaskID == outcome.TaskID {
		t.Error("task IDs should be unique")
	}
}

func TestSubmit_FirstMatchRunsOnlyFirst(t *testing.T) {
	var firstCalls, secondCalls int32
	first := &fakeAgent{id: "first", tags: []string{"research"}, fn: func(ctx context.Context, task *Task) (map[string]interface{}, error) {
		atomic.AddInt32(&firstCalls, 1)
		return map[string]interface{}{"by": "first"}, nil
	}}
	second := &fakeAgent{id: "second", tags: []string{"research"}, fn: func(ctx context.Context, task *Task) (map[string]interface{}, error) {
		atomic.AddInt32(&secondCalls, 1)
		return nil, nil
	}}

	o := newTestOrchestrator(t, 4, first, second)
	outcome := o.Submit(context.Background(), NewTask("research", nil))

	if outcome.Status != AllSucceeded {
		t.Errorf("Status = %v, want AllSucceeded", outcome.Status)
	}
	if len(outcome.Results) != 1 || outcome.Results[0].AgentID != "first" {
		t.Error("first_match should execute only the first matching agent")
	}
	if firstCalls != 1 || secondCalls != 0 {
		t.Errorf("calls = (%d, %d), want (1, 0)", firstCalls, secondCalls)
	}
	if len(outcome.NotAttempted) != 1 || outcome.NotAttempted[0] != "second" {
		t.Errorf("NotAttempted = %v, want [second]", outcome.NotAttempted)
	}
}

func TestSubmit_BroadcastPartialSuccess(t *testing.T) {
	good := okAgent("good", "notify")
	bad := &fakeAgent{id: "bad", tags: []string{"notify"}, fn: func(ctx context.Context, task *Task) (map[string]interface{}, error) {
		return nil, errors.New("backend down")
	}}

	o := newTestOrchestrator(t, 4, good, bad)

	task := NewTask("notify", nil)
	task.FanOut = FanOutBroadcast
	outcome := o.Submit(context.Background(), task)

	if outcome.Status != PartialSuccess {
		t.Errorf("Status = %v, want PartialSuccess", outcome.Status)
	}
	if len(outcome.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(outcome.Results))
	}

	byAgent := map[string]TaskStatus{}
	for _, r := range outcome.Results {
		byAgent[r.AgentID] = r.Status
	}
	if byAgent["good"] != StatusSucceeded || byAgent["bad"] != StatusFailed {
		t.Errorf("results = %v", byAgent)
	}
}

func TestSubmit_PanicBecomesFailedResult(t *testing.T) {
	panicky := &fakeAgent{id: "panicky", tags: []string{"notify"}, fn: func(ctx context.Context, task *Task) (map[string]interface{}, error) {
		panic("boom")
	}}
	calm := okAgent("calm", "notify")

	o := newTestOrchestrator(t, 4, panicky, calm)

	task := NewTask("notify", nil)
	task.FanOut = FanOutBroadcast
	outcome := o.Submit(context.Background(), task)

	if outcome.Status != PartialSuccess {
		t.Errorf("Status = %v, want PartialSuccess", outcome.Status)
	}
	for _, r := range outcome.Results {
		if r.AgentID == "panicky" {
			if r.Status != StatusFailed {
				t.Errorf("panicky status = %v, want failed", r.Status)
			}
			if !strings.Contains(r.Error, "panic") {
				t.Errorf("panicky error = %q, should mention the panic", r.Error)
			}
		}
		if r.AgentID == "calm" && r.Status != StatusSucceeded {
			t.Error("sibling agent should not be affected by a panic")
		}
	}
}

func TestSubmit_DeadlineAbandonsHungAgent(t *testing.T) {
	hung := &fakeAgent{id: "hung", tags: []string{"research"}, fn: func(ctx context.Context, task *Task) (map[string]interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	o := newTestOrchestrator(t, 4, hung)

	task := NewTask("research", nil)
	task.Deadline = 20 * time.Millisecond

	start := time.Now()
	outcome := o.Submit(context.Background(), task)
	elapsed := time.Since(start)

	if outcome.Status != AllFailed {
		t.Errorf("Status = %v, want AllFailed", outcome.Status)
	}
	if outcome.Results[0].Status != StatusTimedOut {
		t.Errorf("result status = %v, want timed_out", outcome.Results[0].Status)
	}
	if elapsed > time.Second {
		t.Errorf("Submit() blocked for %v on a hung agent", elapsed)
	}
}

func TestSubmit_ConcurrencyCeiling(t *testing.T) {
	const limit = 2
	const tasks = 8

	var inFlight, maxInFlight int32
	slow := &fakeAgent{id: "slow", tags: []string{"work"}, fn: func(ctx context.Context, task *Task) (map[string]interface{}, error) {
		current := atomic.AddInt32(&inFlight, 1)
		for {
			observed := atomic.LoadInt32(&maxInFlight)
			if current <= observed || atomic.CompareAndSwapInt32(&maxInFlight, observed, current) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil, nil
	}}

	o := newTestOrchestrator(t, limit, slow)

	var wg sync.WaitGroup
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Submit(context.Background(), NewTask("work", nil))
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&maxInFlight); got > limit {
		t.Errorf("max in-flight executions = %d, ceiling is %d", got, limit)
	}
	if o.InFlight() != 0 || o.Queued() != 0 {
		t.Errorf("orchestrator not drained: in-flight=%d queued=%d", o.InFlight(), o.Queued())
	}
}

func TestSubmit_PriorityOrdering(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var order []int

	recorder := &fakeAgent{id: "rec", tags: []string{"work"}, fn: func(ctx context.Context, task *Task) (map[string]interface{}, error) {
		if block, _ := task.Payload["block"].(bool); block {
			<-release
			return nil, nil
		}
		mu.Lock()
		order = append(order, task.Priority)
		mu.Unlock()
		return nil, nil
	}}

	o := newTestOrchestrator(t, 1, recorder)

	var wg sync.WaitGroup

	// Occupa l'unico slot
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.Submit(context.Background(), &Task{Capability: "work", Payload: map[string]interface{}{"block": true}})
	}()

	// Attendi che il blocker sia in esecuzione
	for o.InFlight() == 0 {
		time.Sleep(time.Millisecond)
	}

	// Accoda bassa priorità, poi alta: deve uscire prima l'alta
	queued := 0
	for _, p := range []int{1, 5} {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			o.Submit(context.Background(), &Task{Capability: "work", Priority: p})
		}(p)

		queued++
		for o.Queued() < queued {
			time.Sleep(time.Millisecond)
		}
	}

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 5 || order[1] != 1 {
		t.Errorf("execution order = %v, want [5 1]", order)
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		statuses []TaskStatus
		want     OutcomeStatus
	}{
		{"all ok", []TaskStatus{StatusSucceeded, StatusSucceeded}, AllSucceeded},
		{"mixed", []TaskStatus{StatusSucceeded, StatusFailed}, PartialSuccess},
		{"all failed", []TaskStatus{StatusFailed, StatusTimedOut}, AllFailed},
		{"single timeout", []TaskStatus{StatusTimedOut}, AllFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]TaskResult, len(tt.statuses))
			for i, s := range tt.statuses {
				results[i] = TaskResult{Status: s}
			}
			if got := aggregate(results); got != tt.want {
				t.Errorf("aggregate() = %v, want %v", got, tt.want)
			}
		})
	}
}
