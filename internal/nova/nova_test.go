package nova

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/novahq/nova/internal/agents"
	"github.com/novahq/nova/internal/classify"
	"github.com/novahq/nova/internal/providers"
	"github.com/novahq/nova/pkg/config"
)

func localOnlyConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Port = 8080
	cfg.Providers.Chain = []config.ProviderConfig{
		{Name: "local", Type: "local"},
	}
	cfg.Providers.DefaultTimeout = 5 * time.Second
	cfg.Orchestrator.MaxConcurrent = 4
	cfg.Cache.Enabled = true
	cfg.Cache.TTL = time.Minute
	cfg.Cache.MaxEntries = 100
	return cfg
}

func newLocalNova(t *testing.T) *Nova {
	t.Helper()
	n, err := New(localOnlyConfig(), nil, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = n.Close() })
	return n
}

func TestNew_EmptyChainFailsFast(t *testing.T) {
	cfg := localOnlyConfig()
	cfg.Providers.Chain = nil

	if _, err := New(cfg, nil, nil); err == nil {
		t.Error("New() with empty provider chain should fail")
	}
}

func TestNew_UnknownProviderType(t *testing.T) {
	cfg := localOnlyConfig()
	cfg.Providers.Chain = []config.ProviderConfig{{Name: "x", Type: "oracle"}}

	if _, err := New(cfg, nil, nil); err == nil {
		t.Error("New() with unknown provider type should fail")
	}
}

func TestAskQuestion_LocalAnswer(t *testing.T) {
	n := newLocalNova(t)

	outcome, err := n.AskQuestion(context.Background(), "what is 2+2?", "")
	if err != nil {
		t.Fatalf("AskQuestion() error = %v", err)
	}

	if !outcome.Answered() {
		t.Fatal("local responder should always answer")
	}
	if outcome.Result.ProviderID != "local" {
		t.Errorf("ProviderID = %q, want local", outcome.Result.ProviderID)
	}
	if !strings.Contains(outcome.Result.Text, "4") {
		t.Errorf("Text = %q, should contain the answer", outcome.Result.Text)
	}
	if outcome.Result.Confidence < 0 || outcome.Result.Confidence > 1 {
		t.Errorf("Confidence = %v, out of [0,1]", outcome.Result.Confidence)
	}
}

func TestAskQuestion_EmptyText(t *testing.T) {
	n := newLocalNova(t)

	_, err := n.AskQuestion(context.Background(), "   ", "")
	if !errors.Is(err, classify.ErrEmptyPrompt) {
		t.Errorf("AskQuestion() error = %v, want ErrEmptyPrompt", err)
	}
}

func TestAskQuestion_SecondAskHitsCache(t *testing.T) {
	n := newLocalNova(t)
	ctx := context.Background()

	first, err := n.AskQuestion(ctx, "hello nova", "")
	if err != nil {
		t.Fatalf("AskQuestion() error = %v", err)
	}
	if first.CacheHit {
		t.Fatal("first ask should not hit the cache")
	}

	second, err := n.AskQuestion(ctx, "hello nova", "")
	if err != nil {
		t.Fatalf("AskQuestion() error = %v", err)
	}
	if !second.CacheHit {
		t.Error("second identical ask should hit the cache")
	}
	if len(second.Attempts) != 0 {
		t.Errorf("cache hit trail length = %d, want 0", len(second.Attempts))
	}
}

func TestSubmitTask_ResearchCapability(t *testing.T) {
	n := newLocalNova(t)

	task := agents.NewTask("research", map[string]interface{}{
		"question": "what is 2+2",
	})

	outcome := n.SubmitTask(context.Background(), task)

	if outcome.Status != agents.AllSucceeded {
		t.Fatalf("Status = %v, want AllSucceeded", outcome.Status)
	}
	if len(outcome.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(outcome.Results))
	}

	answer, _ := outcome.Results[0].Output["answer"].(string)
	if !strings.Contains(answer, "4") {
		t.Errorf("answer = %q, should contain 4", answer)
	}
}

func TestSubmitTask_UnknownCapability(t *testing.T) {
	n := newLocalNova(t)

	outcome := n.SubmitTask(context.Background(), agents.NewTask("juggling", nil))

	if outcome.Status != agents.AllFailed {
		t.Errorf("Status = %v, want AllFailed", outcome.Status)
	}
}

func TestProviderAccessors(t *testing.T) {
	n := newLocalNova(t)

	names := n.ProviderNames()
	if len(names) != 1 || names[0] != "local" {
		t.Errorf("ProviderNames() = %v, want [local]", names)
	}

	caps := n.Capabilities()
	if len(caps) != 1 || caps[0] != "research" {
		t.Errorf("Capabilities() = %v, want [research]", caps)
	}

	if errs := n.HealthCheck(context.Background()); len(errs) != 0 {
		t.Errorf("HealthCheck() errors = %v, want none", errs)
	}
}

func TestEstimateConfidence(t *testing.T) {
	tests := []struct {
		name   string
		result providers.RawResult
		want   float64
	}{
		{
			name:   "passthrough base",
			result: providers.RawResult{Text: "short", ProviderID: "openai", Confidence: 0.8},
			want:   0.8,
		},
		{
			name:   "gemini family bonus",
			result: providers.RawResult{Text: "short", ProviderID: "gemini", Confidence: 0.8},
			want:   0.9,
		},
		{
			name: "gpt-4 model bonus from metadata",
			result: providers.RawResult{
				Text: "short", ProviderID: "openai", Confidence: 0.8,
				Metadata: map[string]interface{}{"model": "gpt-4o-mini"},
			},
			want: 0.85,
		},
		{
			name:   "long answer bonus",
			result: providers.RawResult{Text: strings.Repeat("a", 250), ProviderID: "openai", Confidence: 0.8},
			want:   0.85,
		},
		{
			name:   "answer discussing errors is not penalized",
			result: providers.RawResult{Text: "an error value in Go is any type implementing Error()", ProviderID: "openai", Confidence: 0.8},
			want:   0.8,
		},
		{
			name:   "clamped at one",
			result: providers.RawResult{Text: strings.Repeat("a", 250), ProviderID: "gemini", Confidence: 0.95},
			want:   1.0,
		},
		{
			name:   "zero confidence defaults to base",
			result: providers.RawResult{Text: "short", ProviderID: "openai"},
			want:   0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := estimateConfidence(&tt.result)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("estimateConfidence() = %v, want %v", got, tt.want)
			}
		})
	}
}
