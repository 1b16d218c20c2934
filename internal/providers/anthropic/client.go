package anthropic

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/novahq/nova/internal/providers"
	"github.com/rs/zerolog/log"
)

const apiVersion = "2023-06-01"

// Client implementa il provider Anthropic (Messages API)
type Client struct {
	*providers.BaseProvider
	httpClient *resty.Client
}

// NewClient crea un nuovo client Anthropic
func NewClient(name, baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	client := &Client{
		BaseProvider: providers.NewBaseProvider(name, baseURL, apiKey, model),
		httpClient:   resty.New(),
	}

	client.configureHTTPClient()
	return client
}

func (c *Client) configureHTTPClient() {
	c.httpClient.
		SetBaseURL(c.GetBaseURL()).
		SetTimeout(c.GetTimeout()).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("anthropic-version", apiVersion)

	if c.GetAPIKey() != "" {
		c.httpClient.SetHeader("x-api-key", c.GetAPIKey())
	}

	c.httpClient.OnAfterResponse(func(client *resty.Client, resp *resty.Response) error {
		log.Debug().
			Str("provider", c.Name()).
			Int("status", resp.StatusCode()).
			Dur("duration", resp.Time()).
			Msg("Anthropic API response")
		return nil
	})
}

// SetTimeout propaga il timeout configurato anche al client HTTP
func (c *Client) SetTimeout(timeout time.Duration) {
	c.BaseProvider.SetTimeout(timeout)
	c.httpClient.SetTimeout(c.GetTimeout())
}

// Generate esegue il prompt contro la Messages API
func (c *Client) Generate(ctx context.Context, spec *providers.PromptSpec) (*providers.RawResult, error) {
	req := &MessagesRequest{
		Model:       c.GetModel(),
		System:      spec.System,
		MaxTokens:   spec.MaxTokens,
		Temperature: spec.Temperature,
		Messages: []Message{
			{Role: "user", Content: spec.Content},
		},
	}

	var result MessagesResponse
	var errResp ErrorResponse

	start := time.Now()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&errResp).
		Post("/v1/messages")
	latency := time.Since(start)

	if err != nil {
		return nil, providers.ClassifyError(c.Name(), err)
	}

	if resp.IsError() {
		return nil, providers.ClassifyHTTPStatus(c.Name(), resp.StatusCode(), errResp.Error.Message)
	}

	text := result.Text()
	if text == "" {
		return nil, providers.NewFailure(c.Name(), providers.FailureInvalidResponse, "empty message content")
	}

	return &providers.RawResult{
		Text:       text,
		ProviderID: c.Name(),
		LatencyMS:  latency.Milliseconds(),
		Confidence: 0.8,
		Metadata: map[string]interface{}{
			"model":         result.Model,
			"stop_reason":   result.StopReason,
			"input_tokens":  result.Usage.InputTokens,
			"output_tokens": result.Usage.OutputTokens,
		},
	}, nil
}

// HealthCheck verifica lo stato del provider con una richiesta minima
func (c *Client) HealthCheck(ctx context.Context) error {
	req := &MessagesRequest{
		Model:     c.GetModel(),
		MaxTokens: 1,
		Messages: []Message{
			{Role: "user", Content: "ping"},
		},
	}

	var errResp ErrorResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetError(&errResp).
		Post("/v1/messages")

	if err != nil {
		return providers.ClassifyError(c.Name(), err)
	}

	if resp.IsError() {
		return providers.ClassifyHTTPStatus(c.Name(), resp.StatusCode(), errResp.Error.Message)
	}

	return nil
}
