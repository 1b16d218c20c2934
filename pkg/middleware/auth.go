package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ContextKey tipo per le chiavi del context
type ContextKey string

const (
	// APIKeyIDKey chiave per l'identificatore della API key nel context
	APIKeyIDKey ContextKey = "api_key_id"
)

// AuthConfig configurazione del middleware di autenticazione
type AuthConfig struct {
	// Enabled abilita l'autenticazione; disabilitata, ogni richiesta passa
	Enabled bool

	// APIKeys chiavi valide
	APIKeys []string

	// RateLimit richieste al secondo per chiave (0 = nessun limite)
	RateLimit float64

	// RateBurst burst massimo per chiave
	RateBurst int
}

// limiterSweepInterval intervallo minimo tra due sweep dei bucket
const limiterSweepInterval = 5 * time.Minute

// keyRateLimiter gestisce un token bucket per API key. I bucket
// tornati pieni vengono rimossi da uno sweep opportunistico al
// passaggio successivo, senza goroutine dedicate.
type keyRateLimiter struct {
	limiters  map[string]*rate.Limiter
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

func newKeyRateLimiter(requestsPerSecond float64, burst int) *keyRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &keyRateLimiter{
		limiters:  make(map[string]*rate.Limiter),
		limit:     rate.Limit(requestsPerSecond),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (rl *keyRateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastSweep) >= limiterSweepInterval {
		rl.sweepLocked()
	}

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// sweepLocked rimuove i bucket inutilizzati. Richiede rl.mu già presa.
func (rl *keyRateLimiter) sweepLocked() {
	for key, limiter := range rl.limiters {
		if limiter.Tokens() == float64(rl.burst) {
			delete(rl.limiters, key)
		}
	}
	rl.lastSweep = time.Now()
}

// APIKeyAuth middleware di autenticazione con API key e rate limit
// per chiave. La chiave viaggia in X-API-Key o in Authorization
// Bearer.
func APIKeyAuth(config AuthConfig) fiber.Handler {
	if !config.Enabled {
		return func(c fiber.Ctx) error {
			return c.Next()
		}
	}

	allowed := make(map[string]bool, len(config.APIKeys))
	for _, k := range config.APIKeys {
		allowed[k] = true
	}

	var limiters *keyRateLimiter
	if config.RateLimit > 0 {
		limiters = newKeyRateLimiter(config.RateLimit, config.RateBurst)
	}

	return func(c fiber.Ctx) error {
		key := c.Get("X-API-Key")
		if key == "" {
			if auth := c.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing api key",
			})
		}

		if !allowed[key] {
			log.Debug().Str("key", maskKey(key)).Msg("Rejected unknown API key")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid api key",
			})
		}

		if limiters != nil && !limiters.getLimiter(key).Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}

		c.Locals(string(APIKeyIDKey), maskKey(key))
		return c.Next()
	}
}

// maskKey riduce una chiave alla sua coda per il logging
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// GetAPIKeyID estrae l'identificatore mascherato della API key
func GetAPIKeyID(c fiber.Ctx) string {
	id, _ := c.Locals(string(APIKeyIDKey)).(string)
	return id
}
