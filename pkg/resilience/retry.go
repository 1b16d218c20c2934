package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrMaxRetriesExceeded viene restituito quando si supera il numero massimo di retry
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// RetryConfig contiene la configurazione del retry
type RetryConfig struct {
	// MaxRetries numero massimo di retry oltre il primo tentativo (0 = nessun retry)
	MaxRetries int

	// InitialBackoff backoff iniziale
	InitialBackoff time.Duration

	// MaxBackoff backoff massimo
	MaxBackoff time.Duration

	// BackoffMultiplier moltiplicatore per exponential backoff
	BackoffMultiplier float64

	// Jitter abilita jitter nel backoff
	Jitter bool

	// JitterFraction frazione di jitter (0.0-1.0)
	JitterFraction float64

	// RetryableChecker funzione custom per verificare se un errore è retryable.
	// Se assente, ogni errore viene ritentato.
	RetryableChecker func(error) bool

	// OnRetry callback chiamata prima di ogni retry
	OnRetry func(attempt int, err error, backoff time.Duration)
}

// DefaultRetryConfig restituisce una configurazione di default
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
		JitterFraction:    0.1,
	}
}

// Retry implementa retry logic con exponential backoff e jitter.
// Un'istanza può servire chiamate concorrenti.
type Retry struct {
	config RetryConfig
}

// NewRetry crea un nuovo retry handler
func NewRetry(config RetryConfig) *Retry {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = DefaultRetryConfig().InitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultRetryConfig().MaxBackoff
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = DefaultRetryConfig().BackoffMultiplier
	}
	if config.JitterFraction < 0 || config.JitterFraction > 1 {
		config.JitterFraction = DefaultRetryConfig().JitterFraction
	}

	return &Retry{config: config}
}

// Execute esegue una funzione con retry logic. L'errore dell'ultimo
// tentativo viene sempre restituito al chiamante.
func (r *Retry) Execute(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		err := fn()

		if err == nil {
			return nil
		}

		lastErr = err

		if !r.isRetryable(err) {
			log.Debug().
				Err(err).
				Msg("Error is not retryable, stopping retries")
			return err
		}

		if attempt >= r.config.MaxRetries {
			log.Warn().
				Err(err).
				Int("attempts", attempt+1).
				Msg("Max retries exceeded")
			return errors.Join(ErrMaxRetriesExceeded, err)
		}

		backoff := r.calculateBackoff(attempt)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt+1, err, backoff)
		}

		log.Debug().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", r.config.MaxRetries).
			Dur("backoff", backoff).
			Msg("Retrying after error")

		select {
		case <-time.After(backoff):
			// Continua con il prossimo tentativo
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}

// calculateBackoff calcola il backoff per un tentativo
func (r *Retry) calculateBackoff(attempt int) time.Duration {
	// Exponential backoff: initial * multiplier^attempt
	backoff := float64(r.config.InitialBackoff) * math.Pow(r.config.BackoffMultiplier, float64(attempt))

	if backoff > float64(r.config.MaxBackoff) {
		backoff = float64(r.config.MaxBackoff)
	}

	if r.config.Jitter {
		backoff = r.addJitter(backoff)
	}

	return time.Duration(backoff)
}

// addJitter aggiunge jitter al backoff.
// Il generatore globale è safe per chiamate concorrenti.
func (r *Retry) addJitter(backoff float64) float64 {
	// Jitter: backoff ± (backoff * jitterFraction * random(-1, 1))
	jitter := backoff * r.config.JitterFraction * (rand.Float64()*2 - 1)
	return backoff + jitter
}

// isRetryable verifica se un errore è retryable
func (r *Retry) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if r.config.RetryableChecker != nil {
		return r.config.RetryableChecker(err)
	}

	return true
}
