package openai

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/novahq/nova/internal/providers"
	"github.com/rs/zerolog/log"
)

// Client implementa un provider OpenAI-compatible
type Client struct {
	*providers.BaseProvider
	httpClient *resty.Client
}

// NewClient crea un nuovo client OpenAI
func NewClient(name, baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	client := &Client{
		BaseProvider: providers.NewBaseProvider(name, baseURL, apiKey, model),
		httpClient:   resty.New(),
	}

	client.configureHTTPClient()
	return client
}

// configureHTTPClient configura il client HTTP.
// I retry sono guidati dalla catena di fallback, non dal
// trasporto: ogni tentativo deve comparire nella attempt trail.
func (c *Client) configureHTTPClient() {
	c.httpClient.
		SetBaseURL(c.GetBaseURL()).
		SetTimeout(c.GetTimeout()).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if c.GetAPIKey() != "" {
		c.httpClient.SetHeader("Authorization", "Bearer "+c.GetAPIKey())
	}

	c.httpClient.OnBeforeRequest(func(client *resty.Client, req *resty.Request) error {
		log.Debug().
			Str("provider", c.Name()).
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("OpenAI API request")
		return nil
	})

	c.httpClient.OnAfterResponse(func(client *resty.Client, resp *resty.Response) error {
		log.Debug().
			Str("provider", c.Name()).
			Int("status", resp.StatusCode()).
			Dur("duration", resp.Time()).
			Msg("OpenAI API response")
		return nil
	})
}

// SetTimeout propaga il timeout configurato anche al client HTTP
func (c *Client) SetTimeout(timeout time.Duration) {
	c.BaseProvider.SetTimeout(timeout)
	c.httpClient.SetTimeout(c.GetTimeout())
}

// Generate esegue il prompt contro l'endpoint chat completions
func (c *Client) Generate(ctx context.Context, spec *providers.PromptSpec) (*providers.RawResult, error) {
	req := &ChatCompletionRequest{
		Model: c.GetModel(),
		Messages: []ChatMessage{
			{Role: "system", Content: spec.System},
			{Role: "user", Content: spec.Content},
		},
		Temperature: spec.Temperature,
		MaxTokens:   spec.MaxTokens,
	}

	var result ChatCompletionResponse
	var errResp ErrorResponse

	start := time.Now()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&errResp).
		Post("/v1/chat/completions")
	latency := time.Since(start)

	if err != nil {
		return nil, providers.ClassifyError(c.Name(), err)
	}

	if resp.IsError() {
		return nil, providers.ClassifyHTTPStatus(c.Name(), resp.StatusCode(), errResp.Error.Message)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return nil, providers.NewFailure(c.Name(), providers.FailureInvalidResponse, "empty completion")
	}

	return &providers.RawResult{
		Text:       result.Choices[0].Message.Content,
		ProviderID: c.Name(),
		LatencyMS:  latency.Milliseconds(),
		Confidence: 0.8,
		Metadata: map[string]interface{}{
			"model":             result.Model,
			"prompt_tokens":     result.Usage.PromptTokens,
			"completion_tokens": result.Usage.CompletionTokens,
			"finish_reason":     result.Choices[0].FinishReason,
		},
	}, nil
}

// HealthCheck verifica lo stato del provider
func (c *Client) HealthCheck(ctx context.Context) error {
	var errResp ErrorResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetError(&errResp).
		Get("/v1/models")

	if err != nil {
		return providers.ClassifyError(c.Name(), err)
	}

	if resp.IsError() {
		return providers.ClassifyHTTPStatus(c.Name(), resp.StatusCode(), errResp.Error.Message)
	}

	return nil
}
