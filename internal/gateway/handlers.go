package gateway

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/novahq/nova/internal/agents"
	"github.com/novahq/nova/internal/classify"
)

// AskRequest richiesta di domanda verso la catena di provider
type AskRequest struct {
	Question string `json:"question" validate:"required"`
	Context  string `json:"context"`
}

// TaskRequest richiesta di orchestrazione di un task
type TaskRequest struct {
	Capability string                 `json:"capability" validate:"required"`
	Payload    map[string]interface{} `json:"payload"`
	Priority   int                    `json:"priority"`
	DeadlineMS int64                  `json:"deadline_ms"`
	FanOut     string                 `json:"fan_out"`
}

// handleHealth endpoint di health check
func (g *Gateway) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"version":   "1.0.0",
	})
}

// handleReady endpoint di readiness check
func (g *Gateway) handleReady(c fiber.Ctx) error {
	if g.db != nil {
		sqlDB, err := g.db.DB.DB()
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"ready": false,
				"error": "database connection failed",
			})
		}

		if err := sqlDB.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"ready": false,
				"error": "database ping failed",
			})
		}
	}

	return c.JSON(fiber.Map{
		"ready":     true,
		"providers": g.nova.ProviderNames(),
		"timestamp": time.Now().Unix(),
	})
}

// handleAsk risponde a una domanda attraversando la catena di
// fallback. L'esaurimento della catena non è un errore HTTP: la
// risposta riporta answered=false con il trail dei tentativi.
func (g *Gateway) handleAsk(c fiber.Ctx) error {
	var req AskRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	outcome, err := g.nova.AskQuestion(c.Context(), req.Question, req.Context)
	if err != nil {
		if errors.Is(err, classify.ErrEmptyPrompt) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "question is required",
			})
		}
		log.Error().Err(err).Msg("ask failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to process question",
		})
	}

	if !outcome.Answered() {
		return c.JSON(fiber.Map{
			"answered":         false,
			"attempts":         outcome.Attempts,
			"total_latency_ms": outcome.TotalLatencyMS,
		})
	}

	return c.JSON(fiber.Map{
		"answered":         true,
		"answer":           outcome.Result.Text,
		"provider":         outcome.Result.ProviderID,
		"confidence":       outcome.Result.Confidence,
		"cache_hit":        outcome.CacheHit,
		"attempts":         outcome.Attempts,
		"total_latency_ms": outcome.TotalLatencyMS,
	})
}

// handleSubmitTask orchestra un task verso gli agenti registrati
func (g *Gateway) handleSubmitTask(c fiber.Ctx) error {
	var req TaskRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.Capability == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "capability is required",
		})
	}

	task := agents.NewTask(req.Capability, req.Payload)
	task.Priority = req.Priority

	if req.DeadlineMS > 0 {
		task.Deadline = time.Duration(req.DeadlineMS) * time.Millisecond
	}

	switch agents.FanOut(req.FanOut) {
	case "":
		// Default gestito da NewTask
	case agents.FanOutFirstMatch, agents.FanOutBroadcast:
		task.FanOut = agents.FanOut(req.FanOut)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid fan_out: must be first_match or broadcast",
		})
	}

	outcome := g.nova.SubmitTask(c.Context(), task)

	return c.JSON(fiber.Map{
		"task_id":          outcome.TaskID,
		"status":           outcome.Status,
		"results":          outcome.Results,
		"not_attempted":    outcome.NotAttempted,
		"total_latency_ms": outcome.TotalLatencyMS,
	})
}

// handleListProviders lista i provider in ordine di priorità con i
// loro metadata di salute
func (g *Gateway) handleListProviders(c fiber.Ctx) error {
	metadata := g.nova.ProviderMetadata()

	providerList := make([]fiber.Map, 0, len(metadata))
	for _, name := range g.nova.ProviderNames() {
		meta, ok := metadata[name]
		if !ok {
			continue
		}
		providerList = append(providerList, fiber.Map{
			"name":          meta.Name,
			"health":        meta.HealthCheckStatus,
			"success_count": meta.SuccessCount,
			"error_count":   meta.ErrorCount,
			"avg_latency":   meta.AvgLatency.String(),
		})
	}

	return c.JSON(fiber.Map{
		"providers": providerList,
	})
}

// handleListCapabilities lista le capability registrate
func (g *Gateway) handleListCapabilities(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"capabilities": g.nova.Capabilities(),
	})
}

// handleStats restituisce statistiche aggregate della catena e,
// con il database attivo, gli snapshot provider più recenti
func (g *Gateway) handleStats(c fiber.Ctx) error {
	stats := g.nova.ChainStats()

	payload := fiber.Map{
		"total_providers":   stats.TotalProviders,
		"healthy_providers": stats.HealthyProviders,
		"total_requests":    stats.TotalRequests,
		"total_errors":      stats.TotalErrors,
		"avg_latency":       stats.AvgLatency.String(),
	}

	if g.db != nil {
		snapshots, err := g.db.GetLatestStats()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load provider snapshots")
		} else {
			payload["snapshots"] = snapshots
		}
	}

	return c.JSON(payload)
}
