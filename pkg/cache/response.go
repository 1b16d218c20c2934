package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ResponseCache implementa caching delle risposte della catena di
// fallback, keyed sul fingerprint del prompt normalizzato
type ResponseCache struct {
	cache              Cache
	compressionMinSize int // Comprimi se > questo size (bytes)
	defaultTTL         time.Duration
	mu                 sync.RWMutex
	stats              CacheStats
	useCompression     bool
}

// ResponseCacheConfig configurazione per response cache
type ResponseCacheConfig struct {
	BaseCache          Cache
	DefaultTTL         time.Duration
	CompressionMinSize int  // Default: 1024 (1KB)
	UseCompression     bool // Default: true
}

// CachedAnswer rappresenta una risposta cachata.
// La sostituzione è sempre wholesale: Set sovrascrive l'intera
// entry, mai aggiornamenti parziali.
type CachedAnswer struct {
	Fingerprint string    `json:"fingerprint"`
	Text        string    `json:"text"`
	Provider    string    `json:"provider"`
	Category    string    `json:"category"`
	Confidence  float64   `json:"confidence"`
	LatencyMS   int64     `json:"latency_ms"`
	CachedAt    time.Time `json:"cached_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewResponseCache crea un nuovo response cache
func NewResponseCache(config *ResponseCacheConfig) (*ResponseCache, error) {
	if config == nil || config.BaseCache == nil {
		return nil, ErrInvalidConfig
	}

	if config.DefaultTTL == 0 {
		config.DefaultTTL = 30 * time.Minute
	}

	if config.CompressionMinSize == 0 {
		config.CompressionMinSize = 1024 // 1KB
	}

	rc := &ResponseCache{
		cache:              config.BaseCache,
		compressionMinSize: config.CompressionMinSize,
		defaultTTL:         config.DefaultTTL,
		useCompression:     config.UseCompression,
	}

	log.Info().
		Dur("ttl", config.DefaultTTL).
		Bool("use_compression", config.UseCompression).
		Msg("Response cache initialized")

	return rc, nil
}

// Get recupera una risposta dal cache. Le entry scadute sono
// invisibili: restituisce ErrCacheMiss anche se il layer
// sottostante non le ha ancora espulse.
func (r *ResponseCache) Get(ctx context.Context, fingerprint string) (*CachedAnswer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.cache.Get(ctx, fingerprint)
	if err != nil {
		r.stats.Misses++
		return nil, ErrCacheMiss
	}

	answer, err := r.deserialize(data)
	if err != nil {
		r.stats.Misses++
		return nil, err
	}

	if time.Now().After(answer.ExpiresAt) {
		r.stats.Misses++
		return nil, ErrCacheMiss
	}

	r.stats.Hits++
	log.Debug().
		Str("fingerprint", fingerprint).
		Str("provider", answer.Provider).
		Msg("Response cache hit")

	return answer, nil
}

// Set salva una risposta nel cache, sostituendo l'eventuale
// entry esistente
func (r *ResponseCache) Set(ctx context.Context, answer *CachedAnswer, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ttl == 0 {
		ttl = r.defaultTTL
	}

	now := time.Now()
	answer.CachedAt = now
	answer.ExpiresAt = now.Add(ttl)

	data, err := r.serialize(answer)
	if err != nil {
		return err
	}

	if err := r.cache.Set(ctx, answer.Fingerprint, data, ttl); err != nil {
		return err
	}

	r.stats.Sets++

	log.Debug().
		Str("fingerprint", answer.Fingerprint).
		Str("provider", answer.Provider).
		Dur("ttl", ttl).
		Msg("Response cached")

	return nil
}

// Delete rimuove una risposta dal cache
func (r *ResponseCache) Delete(ctx context.Context, fingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Deletes++
	return r.cache.Delete(ctx, fingerprint)
}

// Clear svuota il cache
func (r *ResponseCache) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cache.Clear(ctx)
}

// Stats restituisce le statistiche
func (r *ResponseCache) Stats() CacheStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// serialize serializza e comprime una risposta
func (r *ResponseCache) serialize(answer *CachedAnswer) ([]byte, error) {
	data, err := json.Marshal(answer)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cached answer: %w", err)
	}

	if r.useCompression && len(data) > r.compressionMinSize {
		compressed, err := compress(data)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to compress answer, storing uncompressed")
			return data, nil
		}
		return compressed, nil
	}

	return data, nil
}

// deserialize deserializza e decomprime una risposta
func (r *ResponseCache) deserialize(data []byte) (*CachedAnswer, error) {
	var answer CachedAnswer
	err := json.Unmarshal(data, &answer)

	// Se fallisce, prova decompressione
	if err != nil {
		decompressed, derr := decompress(data)
		if derr != nil {
			return nil, fmt.Errorf("failed to deserialize answer: %w", err)
		}

		if err := json.Unmarshal(decompressed, &answer); err != nil {
			return nil, fmt.Errorf("failed to unmarshal decompressed answer: %w", err)
		}
	}

	return &answer, nil
}

// compress comprime i dati usando gzip
func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// decompress decomprime i dati gzip
func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
