package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/novahq/nova/internal/providers"
	"github.com/rs/zerolog/log"
)

// Client implementa il provider Google Gemini (generateContent API)
type Client struct {
	*providers.BaseProvider
	httpClient *resty.Client
}

// NewClient crea un nuovo client Gemini
func NewClient(name, baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	if model == "" {
		model = "gemini-1.5-flash"
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
		SetHeader("Content-Type", "application/json")

	c.httpClient.OnAfterResponse(func(client *resty.Client, resp *resty.Response) error {
		log.Debug().
			Str("provider", c.Name()).
			Int("status", resp.StatusCode()).
			Dur("duration", resp.Time()).
			Msg("Gemini API response")
		return nil
	})
}

// SetTimeout propaga il timeout configurato anche al client HTTP
func (c *Client) SetTimeout(timeout time.Duration) {
	c.BaseProvider.SetTimeout(timeout)
	c.httpClient.SetTimeout(c.GetTimeout())
}

// Generate esegue il prompt contro l'endpoint generateContent.
// Gemini non ha un system role separato: le istruzioni vengono
// passate come systemInstruction.
func (c *Client) Generate(ctx context.Context, spec *providers.PromptSpec) (*providers.RawResult, error) {
	req := &GenerateContentRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: spec.Content}}},
		},
		GenerationConfig: &GenerationConfig{
			Temperature:     spec.Temperature,
			MaxOutputTokens: spec.MaxTokens,
		},
	}

	if spec.System != "" {
		req.SystemInstruction = &Content{Parts: []Part{{Text: spec.System}}}
	}

	var result GenerateContentResponse
	var errResp ErrorResponse

	start := time.Now()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("key", c.GetAPIKey()).
		SetBody(req).
		SetResult(&result).
		SetError(&errResp).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.GetModel()))
	latency := time.Since(start)

	if err != nil {
		return nil, providers.ClassifyError(c.Name(), err)
	}

	if resp.IsError() {
		return nil, providers.ClassifyHTTPStatus(c.Name(), resp.StatusCode(), errResp.Error.Message)
	}

	text := result.Text()
	if text == "" {
		return nil, providers.NewFailure(c.Name(), providers.FailureInvalidResponse, "no candidates in response")
	}

	return &providers.RawResult{
		Text:       text,
		ProviderID: c.Name(),
		LatencyMS:  latency.Milliseconds(),
		Confidence: 0.8,
		Metadata: map[string]interface{}{
			"model":         c.GetModel(),
			"finish_reason": result.FinishReason(),
		},
	}, nil
}

// HealthCheck verifica lo stato del provider
func (c *Client) HealthCheck(ctx context.Context) error {
	var errResp ErrorResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("key", c.GetAPIKey()).
		SetError(&errResp).
		Get(fmt.Sprintf("/v1beta/models/%s", c.GetModel()))

	if err != nil {
		return providers.ClassifyError(c.Name(), err)
	}

	if resp.IsError() {
		return providers.ClassifyHTTPStatus(c.Name(), resp.StatusCode(), errResp.Error.Message)
	}

	return nil
}
