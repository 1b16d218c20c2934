package stats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novahq/nova/internal/agents"
	"github.com/novahq/nova/internal/fallback"
	"github.com/novahq/nova/internal/providers"
	"github.com/novahq/nova/pkg/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(&database.Config{
		Type:       "sqlite",
		Connection: ":memory:",
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestExporter_RecordAsk(t *testing.T) {
	e := NewExporter(prometheus.NewRegistry(), "nova")

	e.RecordAsk("gemini", "factual", true, false, 120)
	e.RecordAsk("", "general", false, false, 500)
	e.RecordAsk("gemini", "factual", true, true, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(e.asksTotal.WithLabelValues("gemini", "factual", "answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.asksTotal.WithLabelValues("none", "general", "unanswered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.cacheOpsTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.cacheOpsTotal.WithLabelValues("miss")))
}

func TestExporter_RecordAttempt(t *testing.T) {
	e := NewExporter(prometheus.NewRegistry(), "nova")

	e.RecordAttempt("openai", "rate_limited")
	e.RecordAttempt("openai", "rate_limited")
	e.RecordAttempt("openai", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(e.attemptsTotal.WithLabelValues("openai", "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.attemptsTotal.WithLabelValues("openai", "none")))
}

func TestExporter_TasksInFlight(t *testing.T) {
	e := NewExporter(prometheus.NewRegistry(), "nova")

	e.TaskStarted()
	e.TaskStarted()
	e.TaskFinished()

	assert.Equal(t, 1.0, testutil.ToFloat64(e.tasksInFlight))
}

func TestRecorder_RecordAsk(t *testing.T) {
	db := setupTestDB(t)
	e := NewExporter(prometheus.NewRegistry(), "nova")
	r := NewRecorder(db, e)

	outcome := &fallback.Outcome{
		Result: &providers.RawResult{
			Text:       "Paris",
			ProviderID: "gemini",
			Confidence: 0.9,
		},
		Attempts: []fallback.Attempt{
			{Provider: "openai", Kind: providers.FailureRateLimited, Error: "429"},
			{Provider: "gemini", Success: true, LatencyMS: 80},
		},
		TotalLatencyMS: 130,
	}

	r.RecordAsk("fp-1", "factual", "capital of France", outcome)

	records, err := db.GetRecentAsks(10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "fp-1", records[0].Fingerprint)
	assert.Equal(t, "factual", records[0].Category)
	assert.True(t, records[0].Answered)
	assert.Equal(t, "gemini", records[0].Provider)
	assert.Equal(t, 0.9, records[0].Confidence)
	assert.JSONEq(t,
		`[{"provider":"openai","success":false,"kind":"rate_limited","error":"429","latency_ms":0},
		  {"provider":"gemini","success":true,"latency_ms":80}]`,
		string(records[0].Attempts))
}

func TestRecorder_RecordAsk_Unanswered(t *testing.T) {
	db := setupTestDB(t)
	r := NewRecorder(db, nil)

	outcome := &fallback.Outcome{
		Attempts: []fallback.Attempt{
			{Provider: "openai", Kind: providers.FailureAuthError, Error: "denied"},
		},
		TotalLatencyMS: 40,
	}

	r.RecordAsk("fp-2", "general", "anything", outcome)

	records, err := db.GetRecentAsks(10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.False(t, records[0].Answered)
	assert.Empty(t, records[0].Provider)
}

func TestRecorder_RecordTask(t *testing.T) {
	db := setupTestDB(t)
	r := NewRecorder(db, NewExporter(prometheus.NewRegistry(), "nova"))

	task := agents.NewTask("research", map[string]interface{}{"question": "why"})
	task.Priority = 3
	outcome := &agents.Outcome{
		TaskID: task.ID,
		Status: agents.AllSucceeded,
		Results: []agents.TaskResult{
			{AgentID: "research-agent", Status: agents.StatusSucceeded, LatencyMS: 50},
		},
		TotalLatencyMS: 55,
	}

	r.RecordTask(task, outcome)

	records, err := db.GetRecentTasks(10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, task.ID, records[0].ID)
	assert.Equal(t, "research", records[0].Capability)
	assert.Equal(t, "first_match", records[0].FanOut)
	assert.Equal(t, 3, records[0].Priority)
	assert.Equal(t, string(agents.AllSucceeded), records[0].Status)
}

func TestRecorder_RecordProviderSnapshot(t *testing.T) {
	db := setupTestDB(t)
	r := NewRecorder(db, nil)

	r.RecordProviderSnapshot(map[string]*providers.ProviderMetadata{
		"gemini": {
			Name:              "gemini",
			SuccessCount:      8,
			ErrorCount:        2,
			AvgLatency:        150 * time.Millisecond,
			HealthCheckStatus: providers.HealthStatusHealthy,
		},
	})

	rows, err := db.GetLatestStats()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "gemini", rows[0].Provider)
	assert.Equal(t, int64(10), rows[0].TotalRequests)
	assert.Equal(t, int64(8), rows[0].SuccessCount)
	assert.Equal(t, int64(2), rows[0].ErrorCount)
	assert.Equal(t, 150, rows[0].AvgLatencyMs)
	assert.Equal(t, string(providers.HealthStatusHealthy), rows[0].Health)
	assert.InDelta(t, 0.8, rows[0].SuccessRate(), 1e-9)
}

func TestRecorder_NilSidesAreSafe(t *testing.T) {
	r := NewRecorder(nil, nil)

	r.RecordAsk("fp", "general", "q", &fallback.Outcome{})
	r.RecordTask(agents.NewTask("x", nil), &agents.Outcome{Status: agents.AllFailed})
	r.RecordProviderSnapshot(nil)
}
