package providers

import (
	"context"
	"time"
)

// Provider è l'interfaccia base per tutti i provider AI
type Provider interface {
	// Generate esegue il prompt e restituisce la risposta grezza.
	// In caso di errore il valore restituito è un *Failure.
	Generate(ctx context.Context, spec *PromptSpec) (*RawResult, error)

	// Name restituisce il nome del provider
	Name() string

	// HealthCheck verifica lo stato di salute del provider
	HealthCheck(ctx context.Context) error
}

// BaseProvider fornisce funzionalità comuni per i provider.
// Il budget di retry non vive qui: appartiene alla entry della catena.
type BaseProvider struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
}

// NewBaseProvider crea un nuovo BaseProvider
func NewBaseProvider(name, baseURL, apiKey, model string) *BaseProvider {
	return &BaseProvider{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		timeout: 30 * time.Second,
	}
}

// Name restituisce il nome del provider
func (b *BaseProvider) Name() string {
	return b.name
}

// SetTimeout imposta il timeout delle richieste
func (b *BaseProvider) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		b.timeout = timeout
	}
}

// GetBaseURL restituisce la base URL
func (b *BaseProvider) GetBaseURL() string {
	return b.baseURL
}

// GetAPIKey restituisce la API key
func (b *BaseProvider) GetAPIKey() string {
	return b.apiKey
}

// GetModel restituisce il modello configurato
func (b *BaseProvider) GetModel() string {
	return b.model
}

// GetTimeout restituisce il timeout
func (b *BaseProvider) GetTimeout() time.Duration {
	return b.timeout
}
