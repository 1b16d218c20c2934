package nova

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/novahq/nova/internal/agents"
	"github.com/novahq/nova/internal/classify"
	"github.com/novahq/nova/internal/fallback"
	"github.com/novahq/nova/internal/providers"
	"github.com/novahq/nova/internal/providers/anthropic"
	"github.com/novahq/nova/internal/providers/gemini"
	"github.com/novahq/nova/internal/providers/local"
	"github.com/novahq/nova/internal/providers/openai"
	"github.com/novahq/nova/internal/stats"
	"github.com/novahq/nova/pkg/cache"
	"github.com/novahq/nova/pkg/config"
	"github.com/novahq/nova/pkg/database"
)

// Nova è la facade del servizio: catena di fallback per le domande,
// orchestrator per i task. Tutte le dipendenze sono iniettate alla
// costruzione, nessun singleton di package.
type Nova struct {
	config       *config.Config
	chain        *providers.Chain
	fb           *fallback.FallbackChain
	builder      *classify.Builder
	registry     *agents.Registry
	orchestrator *agents.Orchestrator
	recorder     *stats.Recorder
	baseCache    *cache.MultiLayerCache

	stopSnapshots chan struct{}
}

// New costruisce il servizio dalla configurazione. Catena di
// provider vuota o registry vuoto fanno fallire subito la
// costruzione. db e exporter sono opzionali.
func New(cfg *config.Config, db *database.DB, exporter *stats.Exporter) (*Nova, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	chain, err := buildChain(cfg)
	if err != nil {
		return nil, err
	}

	n := &Nova{
		config:   cfg,
		chain:    chain,
		builder:  classify.NewBuilder(classify.DefaultBuilderConfig()),
		recorder: stats.NewRecorder(db, exporter),
	}

	respCache, err := n.buildResponseCache(cfg)
	if err != nil {
		return nil, err
	}

	n.fb, err = fallback.New(chain, respCache, fallback.Config{
		CacheTTL:       cfg.Cache.TTL,
		DefaultTimeout: cfg.Providers.DefaultTimeout,
	})
	if err != nil {
		return nil, err
	}

	n.registry, err = agents.NewRegistry(
		agents.NewResearchAgent(n.fb, n.builder),
	)
	if err != nil {
		return nil, err
	}

	n.orchestrator, err = agents.NewOrchestrator(n.registry, cfg.Orchestrator.MaxConcurrent)
	if err != nil {
		return nil, err
	}

	if db != nil && cfg.Providers.HealthCheckInterval > 0 {
		n.stopSnapshots = make(chan struct{})
		go n.snapshotLoop(cfg.Providers.HealthCheckInterval)
	}

	log.Info().
		Strs("providers", chain.Names()).
		Bool("cache", respCache != nil).
		Bool("database", db != nil).
		Msg("Nova initialized")

	return n, nil
}

// snapshotLoop campiona periodicamente i contatori dei provider
// verso il database, finché Close non lo ferma
func (n *Nova) snapshotLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n.recorder.RecordProviderSnapshot(n.chain.GetAllMetadata())
		case <-n.stopSnapshots:
			return
		}
	}
}

// buildChain costruisce la catena di provider dalla configurazione,
// nell'ordine di priorità configurato
func buildChain(cfg *config.Config) (*providers.Chain, error) {
	entries := make([]providers.Entry, 0, len(cfg.Providers.Chain))
	for _, pc := range cfg.Providers.Chain {
		provider, err := buildProvider(pc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, providers.Entry{
			Provider:   provider,
			MaxRetries: pc.MaxRetries,
			Timeout:    pc.Timeout,
		})
	}
	return providers.NewChain(entries)
}

// buildProvider istanzia un provider dal suo tipo configurato.
// Il timeout configurato arriva fino al trasporto HTTP, oltre che
// alla entry della catena.
func buildProvider(pc config.ProviderConfig) (providers.Provider, error) {
	switch pc.Type {
	case "gemini":
		client := gemini.NewClient(pc.Name, pc.BaseURL, pc.APIKey, pc.Model)
		client.SetTimeout(pc.Timeout)
		return client, nil
	case "openai":
		client := openai.NewClient(pc.Name, pc.BaseURL, pc.APIKey, pc.Model)
		client.SetTimeout(pc.Timeout)
		return client, nil
	case "anthropic":
		client := anthropic.NewClient(pc.Name, pc.BaseURL, pc.APIKey, pc.Model)
		client.SetTimeout(pc.Timeout)
		return client, nil
	case "local":
		return local.NewResponder(pc.Name), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q", pc.Type)
	}
}

// buildResponseCache costruisce il response cache se abilitato
func (n *Nova) buildResponseCache(cfg *config.Config) (*cache.ResponseCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}

	base, err := cache.NewMultiLayerCache(&cache.Config{
		MemoryEnabled:    true,
		MemoryMaxEntries: cfg.Cache.MaxEntries,
		MemoryTTL:        cfg.Cache.TTL,
		RedisEnabled:     cfg.Cache.Redis.Enabled,
		RedisHost:        cfg.Cache.Redis.Host,
		RedisPassword:    cfg.Cache.Redis.Password,
		RedisDB:          cfg.Cache.Redis.DB,
		RedisTTL:         cfg.Cache.TTL,
	})
	if err != nil {
		return nil, err
	}
	n.baseCache = base

	return cache.NewResponseCache(&cache.ResponseCacheConfig{
		BaseCache:      base,
		DefaultTTL:     cfg.Cache.TTL,
		UseCompression: true,
	})
}

// AskQuestion risponde a una domanda: classifica, costruisce il
// prompt e attraversa la catena di fallback. L'assenza di risposta
// è rappresentata nell'outcome, mai come errore; gli errori sono
// solo input invalidi.
func (n *Nova) AskQuestion(ctx context.Context, text, extra string) (*fallback.Outcome, error) {
	category := classify.Classify(text)

	spec, err := n.builder.Build(category, text, extra)
	if err != nil {
		return nil, err
	}

	outcome := n.fb.Ask(ctx, spec)

	if outcome.Answered() {
		outcome.Result.Confidence = estimateConfidence(outcome.Result)
	}

	n.recorder.RecordAsk(spec.Fingerprint(), string(category), text, outcome)

	return outcome, nil
}

// SubmitTask orchestra un task verso gli agenti registrati
func (n *Nova) SubmitTask(ctx context.Context, task *agents.Task) *agents.Outcome {
	n.recorder.TaskStarted()
	defer n.recorder.TaskFinished()

	outcome := n.orchestrator.Submit(ctx, task)
	n.recorder.RecordTask(task, outcome)

	return outcome
}

// ProviderMetadata restituisce i metadata di salute dei provider
func (n *Nova) ProviderMetadata() map[string]*providers.ProviderMetadata {
	return n.chain.GetAllMetadata()
}

// ProviderNames restituisce i provider in ordine di priorità
func (n *Nova) ProviderNames() []string {
	return n.chain.Names()
}

// Capabilities restituisce le capability registrate
func (n *Nova) Capabilities() []string {
	return n.registry.Capabilities()
}

// HealthCheck verifica la salute di tutti i provider
func (n *Nova) HealthCheck(ctx context.Context) map[string]error {
	return n.chain.HealthCheck(ctx)
}

// ChainStats restituisce le statistiche aggregate della catena
func (n *Nova) ChainStats() providers.ChainStats {
	return n.chain.GetStats()
}

// Close rilascia le risorse del servizio. Prima di chiudere viene
// persistito uno snapshot finale dei contatori provider.
func (n *Nova) Close() error {
	if n.stopSnapshots != nil {
		close(n.stopSnapshots)
	}
	n.recorder.RecordProviderSnapshot(n.chain.GetAllMetadata())

	if n.baseCache != nil {
		return n.baseCache.Close()
	}
	return nil
}
