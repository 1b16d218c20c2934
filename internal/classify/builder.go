package classify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/novahq/nova/internal/providers"
)

var ErrEmptyPrompt = errors.New("prompt text is empty")

const basePrompt = "You are Nova, a highly intelligent AI assistant. Provide accurate, helpful, and detailed responses."

// systemPrompts mappa categoria → istruzioni di sistema
var systemPrompts = map[Category]string{
	CategoryMathematical: basePrompt + " For mathematical questions, show your work step by step and provide clear explanations.",
	CategoryFactual:      basePrompt + " For factual questions, provide accurate information with context when helpful.",
	CategoryExplanatory:  basePrompt + " For explanatory questions, break down complex concepts into understandable parts with examples.",
	CategoryCreative:     basePrompt + " For creative tasks, be imaginative while maintaining helpfulness and appropriateness.",
	CategoryAnalytical:   basePrompt + " For analytical questions, provide structured analysis with clear reasoning and evidence.",
	CategoryGeneral:      basePrompt + " Provide thoughtful and comprehensive responses tailored to the user's needs.",
}

// BuilderConfig controlla i parametri di generazione dei prompt
type BuilderConfig struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultBuilderConfig restituisce i parametri di default
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		Temperature: 0.7,
		MaxTokens:   2048,
		Timeout:     30 * time.Second,
	}
}

// Builder costruisce PromptSpec deterministici a partire da
// categoria e testo. Stessi input producono sempre lo stesso spec.
type Builder struct {
	config BuilderConfig
}

// NewBuilder crea un nuovo builder
func NewBuilder(config BuilderConfig) *Builder {
	if config.Temperature < 0 || config.Temperature > 2 {
		config.Temperature = 0.7
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 2048
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Builder{config: config}
}

// Build costruisce il PromptSpec per la categoria data. Il contesto,
// se presente, viene accodato al contenuto senza mai sostituire la
// domanda dell'utente. Testo vuoto è un errore di input.
func (b *Builder) Build(category Category, text, context string) (*providers.PromptSpec, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyPrompt
	}

	system, ok := systemPrompts[category]
	if !ok {
		system = systemPrompts[CategoryGeneral]
		category = CategoryGeneral
	}

	content := text
	if context != "" {
		content = fmt.Sprintf("%s\n\nContext: %s", text, context)
	}

	return &providers.PromptSpec{
		Category:    string(category),
		System:      system,
		Content:     content,
		Temperature: b.config.Temperature,
		MaxTokens:   b.config.MaxTokens,
		Timeout:     b.config.Timeout,
	}, nil
}
