package fallback

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/novahq/nova/internal/providers"
	"github.com/novahq/nova/pkg/cache"
	"github.com/novahq/nova/pkg/resilience"
)

// Attempt è un singolo tentativo verso un provider, registrato
// nell'ordine in cui è avvenuto
type Attempt struct {
	Provider  string                `json:"provider"`
	Success   bool                  `json:"success"`
	Kind      providers.FailureKind `json:"kind,omitempty"`
	Error     string                `json:"error,omitempty"`
	LatencyMS int64                 `json:"latency_ms"`
}

// Outcome è il risultato di una richiesta attraverso la catena.
// Result è nil quando tutti i provider sono esauriti: l'assenza di
// risposta è un dato, non un errore. Attempts contiene ogni
// tentativo effettuato, retry inclusi; è vuoto su cache hit.
type Outcome struct {
	Result         *providers.RawResult `json:"result,omitempty"`
	Attempts       []Attempt            `json:"attempts"`
	CacheHit       bool                 `json:"cache_hit"`
	TotalLatencyMS int64                `json:"total_latency_ms"`
}

// Answered indica se la catena ha prodotto una risposta
func (o *Outcome) Answered() bool {
	return o.Result != nil
}

// Config controlla timeout e backoff della catena di fallback
type Config struct {
	// CacheTTL durata delle risposte nel cache
	CacheTTL time.Duration

	// DefaultTimeout timeout per chiamata quando né l'entry né lo
	// spec ne specificano uno
	DefaultTimeout time.Duration

	// InitialBackoff backoff iniziale tra retry sullo stesso provider
	InitialBackoff time.Duration

	// MaxBackoff backoff massimo
	MaxBackoff time.Duration

	// BackoffMultiplier moltiplicatore per exponential backoff
	BackoffMultiplier float64
}

// DefaultConfig restituisce una configurazione di default
func DefaultConfig() Config {
	return Config{
		CacheTTL:          30 * time.Minute,
		DefaultTimeout:    30 * time.Second,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// FallbackChain attraversa i provider in ordine di priorità fisso.
// Ogni provider ha il suo budget di retry con exponential backoff,
// speso solo su fallimenti retriable; i fallimenti non retriable
// passano subito al provider successivo. Tutti i retry sono guidati
// dalla catena, mai dal trasporto, così ogni tentativo compare nel
// trail.
type FallbackChain struct {
	chain    *providers.Chain
	cache    *cache.ResponseCache
	config   Config
	retryers []*resilience.Retry
}

// New crea una catena di fallback. Il response cache è opzionale:
// nil disabilita il fast path.
func New(chain *providers.Chain, respCache *cache.ResponseCache, config Config) (*FallbackChain, error) {
	if chain == nil || chain.Count() == 0 {
		return nil, providers.ErrEmptyChain
	}

	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultConfig().CacheTTL
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = DefaultConfig().InitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultConfig().MaxBackoff
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = DefaultConfig().BackoffMultiplier
	}

	f := &FallbackChain{
		chain:  chain,
		cache:  respCache,
		config: config,
	}

	// Un retry handler per entry, con il budget dell'entry
	for _, e := range chain.Entries() {
		f.retryers = append(f.retryers, resilience.NewRetry(resilience.RetryConfig{
			MaxRetries:        e.MaxRetries,
			InitialBackoff:    config.InitialBackoff,
			MaxBackoff:        config.MaxBackoff,
			BackoffMultiplier: config.BackoffMultiplier,
			Jitter:            true,
			JitterFraction:    0.1,
			RetryableChecker:  isRetriableFailure,
		}))
	}

	log.Info().
		Strs("providers", chain.Names()).
		Dur("cache_ttl", config.CacheTTL).
		Msg("Fallback chain initialized")

	return f, nil
}

// isRetriableFailure decide se un errore merita un retry sullo
// stesso provider. Solo i failure classificati retriable lo sono.
func isRetriableFailure(err error) bool {
	if f, ok := providers.AsFailure(err); ok {
		return f.Retriable
	}
	return false
}

// Ask attraversa la catena per lo spec dato. Controlla prima il
// cache: su hit restituisce subito con trail vuoto. Altrimenti prova
// ogni provider in ordine, ritentando i fallimenti retriable entro
// il budget, e registra ogni tentativo nel trail. Se tutti i
// provider sono esauriti, Outcome.Result è nil e il trail è completo.
func (f *FallbackChain) Ask(ctx context.Context, spec *providers.PromptSpec) *Outcome {
	start := time.Now()

	if answer, ok := f.lookupCache(ctx, spec); ok {
		return &Outcome{
			Result: &providers.RawResult{
				Text:       answer.Text,
				ProviderID: answer.Provider,
				LatencyMS:  answer.LatencyMS,
				Confidence: answer.Confidence,
			},
			CacheHit:       true,
			TotalLatencyMS: time.Since(start).Milliseconds(),
		}
	}

	outcome := &Outcome{}

	for i, entry := range f.chain.Entries() {
		name := entry.Provider.Name()

		result, err := f.tryProvider(ctx, i, entry, spec, outcome)
		if err == nil {
			f.chain.RecordSuccess(name, time.Duration(result.LatencyMS)*time.Millisecond)
			outcome.Result = result
			outcome.TotalLatencyMS = time.Since(start).Milliseconds()

			f.storeCache(ctx, spec, result)

			log.Debug().
				Str("provider", name).
				Int("attempts", len(outcome.Attempts)).
				Int64("latency_ms", outcome.TotalLatencyMS).
				Msg("Fallback chain answered")

			return outcome
		}

		f.chain.RecordError(name)

		log.Warn().
			Err(err).
			Str("provider", name).
			Msg("Provider exhausted, falling back to next")

		// Context cancellato: inutile proseguire lungo la catena
		if ctx.Err() != nil {
			break
		}
	}

	outcome.TotalLatencyMS = time.Since(start).Milliseconds()

	log.Warn().
		Int("attempts", len(outcome.Attempts)).
		Int("providers", f.chain.Count()).
		Msg("All providers exhausted, no answer available")

	return outcome
}

// tryProvider esegue un provider con il suo budget di retry,
// registrando ogni tentativo nel trail dell'outcome
func (f *FallbackChain) tryProvider(ctx context.Context, idx int, entry providers.Entry, spec *providers.PromptSpec, outcome *Outcome) (*providers.RawResult, error) {
	name := entry.Provider.Name()

	var result *providers.RawResult

	fn := func() error {
		callCtx, cancel := context.WithTimeout(ctx, f.callTimeout(entry, spec))
		defer cancel()

		attemptStart := time.Now()
		res, err := entry.Provider.Generate(callCtx, spec)
		latency := time.Since(attemptStart).Milliseconds()

		if err != nil {
			failure := providers.ClassifyError(name, err)
			outcome.Attempts = append(outcome.Attempts, Attempt{
				Provider:  name,
				Kind:      failure.Kind,
				Error:     failure.Message,
				LatencyMS: latency,
			})
			return failure
		}

		if res.LatencyMS == 0 {
			res.LatencyMS = latency
		}

		outcome.Attempts = append(outcome.Attempts, Attempt{
			Provider:  name,
			Success:   true,
			LatencyMS: latency,
		})

		result = res
		return nil
	}

	if err := f.retryers[idx].Execute(ctx, fn); err != nil {
		return nil, err
	}

	return result, nil
}

// callTimeout determina il timeout per una singola chiamata:
// entry, poi spec, poi il default della catena
func (f *FallbackChain) callTimeout(entry providers.Entry, spec *providers.PromptSpec) time.Duration {
	if entry.Timeout > 0 {
		return entry.Timeout
	}
	if spec.Timeout > 0 {
		return spec.Timeout
	}
	return f.config.DefaultTimeout
}

// lookupCache controlla il fast path del cache
func (f *FallbackChain) lookupCache(ctx context.Context, spec *providers.PromptSpec) (*cache.CachedAnswer, bool) {
	if f.cache == nil {
		return nil, false
	}

	answer, err := f.cache.Get(ctx, spec.Fingerprint())
	if err != nil {
		return nil, false
	}

	log.Debug().
		Str("fingerprint", answer.Fingerprint).
		Str("provider", answer.Provider).
		Msg("Answer served from cache")

	return answer, true
}

// storeCache salva una risposta riuscita nel cache. Gli errori di
// scrittura non bloccano la risposta
func (f *FallbackChain) storeCache(ctx context.Context, spec *providers.PromptSpec, result *providers.RawResult) {
	if f.cache == nil {
		return
	}

	err := f.cache.Set(ctx, &cache.CachedAnswer{
		Fingerprint: spec.Fingerprint(),
		Text:        result.Text,
		Provider:    result.ProviderID,
		Category:    spec.Category,
		Confidence:  result.Confidence,
		LatencyMS:   result.LatencyMS,
	}, f.config.CacheTTL)

	if err != nil {
		log.Warn().Err(err).Msg("Failed to cache answer")
	}
}
