package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrProviderNotFound      = errors.New("provider not found")
	ErrProviderAlreadyExists = errors.New("provider already exists")
	ErrEmptyChain            = errors.New("provider chain is empty")
)

// Entry è un provider nella catena con il suo budget di retry e
// il timeout per singola chiamata
type Entry struct {
	Provider   Provider
	MaxRetries int
	Timeout    time.Duration
}

// Chain è la catena ordinata di provider. L'ordine di priorità è
// fissato alla costruzione e non viene mai riordinato a runtime:
// le letture concorrenti della catena non richiedono lock. Solo i
// metadata di salute sono mutabili, protetti dal loro mutex.
type Chain struct {
	entries []Entry
	byName  map[string]Provider

	mu       sync.RWMutex
	metadata map[string]*ProviderMetadata
}

// ProviderMetadata contiene metadata di salute su un provider
type ProviderMetadata struct {
	Name              string
	RegisteredAt      time.Time
	LastHealthCheck   time.Time
	HealthCheckStatus HealthStatus
	ErrorCount        int
	SuccessCount      int
	AvgLatency        time.Duration
}

// HealthStatus rappresenta lo stato di salute di un provider
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// NewChain crea una catena dai provider in ordine di priorità.
// Una catena vuota è un errore fatale di configurazione.
func NewChain(entries []Entry) (*Chain, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyChain
	}

	c := &Chain{
		entries:  entries,
		byName:   make(map[string]Provider, len(entries)),
		metadata: make(map[string]*ProviderMetadata, len(entries)),
	}

	for _, e := range entries {
		name := e.Provider.Name()
		if _, exists := c.byName[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrProviderAlreadyExists, name)
		}

		c.byName[name] = e.Provider
		c.metadata[name] = &ProviderMetadata{
			Name:              name,
			RegisteredAt:      time.Now(),
			HealthCheckStatus: HealthStatusUnknown,
		}

		log.Info().
			Str("provider", name).
			Int("max_retries", e.MaxRetries).
			Dur("timeout", e.Timeout).
			Msg("Provider registered in chain")
	}

	return c, nil
}

// Entries restituisce le entry in ordine di priorità
func (c *Chain) Entries() []Entry {
	return c.entries
}

// Get restituisce un provider per nome
func (c *Chain) Get(name string) (Provider, error) {
	provider, exists := c.byName[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return provider, nil
}

// Names restituisce i nomi dei provider in ordine di priorità
func (c *Chain) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Provider.Name()
	}
	return names
}

// Count restituisce il numero di provider nella catena
func (c *Chain) Count() int {
	return len(c.entries)
}

// GetMetadata restituisce i metadata di un provider
func (c *Chain) GetMetadata(name string) (*ProviderMetadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	meta, exists := c.metadata[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}

	// Return a copy to prevent modifications
	metaCopy := *meta
	return &metaCopy, nil
}

// GetAllMetadata restituisce i metadata di tutti i provider
func (c *Chain) GetAllMetadata() map[string]*ProviderMetadata {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*ProviderMetadata, len(c.metadata))
	for name, meta := range c.metadata {
		metaCopy := *meta
		result[name] = &metaCopy
	}
	return result
}

// HealthCheck esegue health check concorrenti su tutti i provider
func (c *Chain) HealthCheck(ctx context.Context) map[string]error {
	results := make(map[string]error)
	var resultsMu sync.Mutex
	var wg sync.WaitGroup

	for _, e := range c.entries {
		wg.Add(1)
		go func(provider Provider) {
			defer wg.Done()

			name := provider.Name()
			start := time.Now()
			err := provider.HealthCheck(ctx)
			latency := time.Since(start)

			c.mu.Lock()
			meta := c.metadata[name]
			meta.LastHealthCheck = time.Now()

			if err != nil {
				meta.ErrorCount++
				meta.HealthCheckStatus = HealthStatusUnhealthy

				log.Warn().
					Err(err).
					Str("provider", name).
					Msg("Provider health check failed")
			} else {
				meta.SuccessCount++
				meta.HealthCheckStatus = HealthStatusHealthy
				meta.AvgLatency = (meta.AvgLatency + latency) / 2

				log.Debug().
					Str("provider", name).
					Dur("latency", latency).
					Msg("Provider health check succeeded")
			}
			c.mu.Unlock()

			if err != nil {
				resultsMu.Lock()
				results[name] = err
				resultsMu.Unlock()
			}
		}(e.Provider)
	}

	wg.Wait()
	return results
}

// RecordSuccess registra un'operazione riuscita
func (c *Chain) RecordSuccess(name string, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if meta, exists := c.metadata[name]; exists {
		meta.SuccessCount++
		if meta.AvgLatency == 0 {
			meta.AvgLatency = latency
		} else {
			meta.AvgLatency = (meta.AvgLatency + latency) / 2
		}
	}
}

// RecordError registra un errore
func (c *Chain) RecordError(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if meta, exists := c.metadata[name]; exists {
		meta.ErrorCount++

		if meta.ErrorCount > 5 && meta.HealthCheckStatus != HealthStatusUnhealthy {
			meta.HealthCheckStatus = HealthStatusUnhealthy
			log.Warn().
				Str("provider", name).
				Int("error_count", meta.ErrorCount).
				Msg("Provider marked as unhealthy")
		}
	}
}

// ChainStats contiene statistiche aggregate della catena
type ChainStats struct {
	TotalProviders   int
	HealthyProviders int
	TotalRequests    int
	TotalErrors      int
	AvgLatency       time.Duration
}

// GetStats restituisce statistiche aggregate
func (c *Chain) GetStats() ChainStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := ChainStats{
		TotalProviders: len(c.entries),
	}

	var totalLatency time.Duration
	var measured int

	for _, meta := range c.metadata {
		if meta.HealthCheckStatus == HealthStatusHealthy {
			stats.HealthyProviders++
		}

		stats.TotalRequests += meta.SuccessCount + meta.ErrorCount
		stats.TotalErrors += meta.ErrorCount

		if meta.AvgLatency > 0 {
			totalLatency += meta.AvgLatency
			measured++
		}
	}

	if measured > 0 {
		stats.AvgLatency = totalLatency / time.Duration(measured)
	}

	return stats
}
