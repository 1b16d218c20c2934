package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/novahq/nova/internal/nova"
	"github.com/novahq/nova/pkg/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8080
	cfg.Providers.Chain = []config.ProviderConfig{
		{Name: "local", Type: "local", MaxRetries: 0, Timeout: 5 * time.Second},
	}
	cfg.Providers.DefaultTimeout = 5 * time.Second
	cfg.Orchestrator.MaxConcurrent = 4
	cfg.Cache.Enabled = true
	cfg.Cache.TTL = time.Minute
	cfg.Cache.MaxEntries = 100
	return cfg
}

func newTestGateway(t *testing.T, cfg *config.Config) *Gateway {
	t.Helper()

	svc, err := nova.New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("nova.New() failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	gw, err := New(cfg, svc, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return gw
}

func doJSON(t *testing.T, gw *Gateway, method, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := gw.App().Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("Test(%s %s) failed: %v", method, path, err)
	}

	var parsed map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			t.Fatalf("failed to parse response %q: %v", raw, err)
		}
	}
	return resp, parsed
}

func TestNew_RequiresService(t *testing.T) {
	if _, err := New(testConfig(), nil, nil); err == nil {
		t.Error("New() with nil service should fail")
	}
	if _, err := New(nil, nil, nil); err == nil {
		t.Error("New() with nil config should fail")
	}
}

func TestHealth(t *testing.T) {
	gw := newTestGateway(t, testConfig())

	resp, body := doJSON(t, gw, "GET", "/health", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
}

func TestReady_WithoutDatabase(t *testing.T) {
	gw := newTestGateway(t, testConfig())

	resp, body := doJSON(t, gw, "GET", "/ready", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["ready"] != true {
		t.Errorf("ready = %v, want true", body["ready"])
	}
}

func TestAsk_Answered(t *testing.T) {
	gw := newTestGateway(t, testConfig())

	resp, body := doJSON(t, gw, "POST", "/v1/ask", `{"question": "what is 2+2?"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["answered"] != true {
		t.Fatalf("answered = %v, want true", body["answered"])
	}
	if body["provider"] != "local" {
		t.Errorf("provider = %v, want local", body["provider"])
	}
	answer, _ := body["answer"].(string)
	if !strings.Contains(answer, "4") {
		t.Errorf("answer = %q, want it to contain 4", answer)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	gw := newTestGateway(t, testConfig())

	resp, _ := doJSON(t, gw, "POST", "/v1/ask", `{"question": ""}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAsk_InvalidBody(t *testing.T) {
	gw := newTestGateway(t, testConfig())

	resp, _ := doJSON(t, gw, "POST", "/v1/ask", `{not json`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSubmitTask_Research(t *testing.T) {
	gw := newTestGateway(t, testConfig())

	resp, body := doJSON(t, gw, "POST", "/v1/tasks",
		`{"capability": "research", "payload": {"question": "what is 2+2?"}}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "all_succeeded" {
		t.Errorf("status = %v, want all_succeeded", body["status"])
	}
	if body["task_id"] == "" || body["task_id"] == nil {
		t.Error("task_id should be assigned")
	}
}

func TestSubmitTask_UnknownCapability(t *testing.T) {
	gw := newTestGateway(t, testConfig())

	resp, body := doJSON(t, gw, "POST", "/v1/tasks", `{"capability": "translate"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "all_failed" {
		t.Errorf("status = %v, want all_failed", body["status"])
	}
}

func TestSubmitTask_Validation(t *testing.T) {
	gw := newTestGateway(t, testConfig())

	tests := []struct {
		name string
		body string
	}{
		{"missing capability", `{"payload": {}}`},
		{"invalid fan_out", `{"capability": "research", "fan_out": "scatter"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, gw, "POST", "/v1/tasks", tt.body)
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestListProviders(t *testing.T) {
	gw := newTestGateway(t, testConfig())

	resp, body := doJSON(t, gw, "GET", "/v1/providers", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	providerList, ok := body["providers"].([]interface{})
	if !ok || len(providerList) != 1 {
		t.Fatalf("providers = %v, want one entry", body["providers"])
	}
	first, _ := providerList[0].(map[string]interface{})
	if first["name"] != "local" {
		t.Errorf("provider name = %v, want local", first["name"])
	}
}

func TestListCapabilities(t *testing.T) {
	gw := newTestGateway(t, testConfig())

	resp, body := doJSON(t, gw, "GET", "/v1/capabilities", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	caps, _ := body["capabilities"].([]interface{})
	if len(caps) != 1 || caps[0] != "research" {
		t.Errorf("capabilities = %v, want [research]", body["capabilities"])
	}
}

func TestStats(t *testing.T) {
	gw := newTestGateway(t, testConfig())

	resp, body := doJSON(t, gw, "GET", "/v1/stats", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["total_providers"] != float64(1) {
		t.Errorf("total_providers = %v, want 1", body["total_providers"])
	}
}

func TestAuth_ProtectsAPIRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"secret-key-0001"}
	gw := newTestGateway(t, cfg)

	// Senza chiave: respinto
	resp, _ := doJSON(t, gw, "GET", "/v1/providers", "")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", resp.StatusCode)
	}

	// Health resta pubblico
	resp, _ = doJSON(t, gw, "GET", "/health", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}

	// Con chiave valida: accettato
	req := httptest.NewRequest("GET", "/v1/providers", nil)
	req.Header.Set("X-API-Key", "secret-key-0001")
	authResp, err := gw.App().Test(req)
	if err != nil {
		t.Fatalf("Test() failed: %v", err)
	}
	if authResp.StatusCode != fiber.StatusOK {
		t.Errorf("status with key = %d, want 200", authResp.StatusCode)
	}
}

func TestUnknownRoute(t *testing.T) {
	gw := newTestGateway(t, testConfig())

	resp, body := doJSON(t, gw, "GET", "/nope", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if body["error"] == nil {
		t.Error("error handler should produce a JSON error body")
	}
}
