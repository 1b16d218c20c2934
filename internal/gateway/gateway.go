package gateway

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/novahq/nova/internal/nova"
	"github.com/novahq/nova/pkg/config"
	"github.com/novahq/nova/pkg/database"
	"github.com/novahq/nova/pkg/middleware"
)

// Gateway espone il servizio via HTTP
type Gateway struct {
	config *config.Config
	nova   *nova.Nova
	db     *database.DB
	app    *fiber.App
}

// New crea una nuova istanza del gateway. db è opzionale: senza
// database il readiness check verifica solo il servizio.
func New(cfg *config.Config, svc *nova.Nova, db *database.DB) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("nova service is required")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Nova Gateway",
		ServerHeader: "Nova/1.0",
		ErrorHandler: customErrorHandler,
	})

	gw := &Gateway{
		config: cfg,
		nova:   svc,
		db:     db,
		app:    app,
	}

	gw.setupMiddlewares()
	gw.setupRoutes()

	return gw, nil
}

// customErrorHandler gestisce gli errori globali
func customErrorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	requestID := middleware.GetRequestID(c)

	return c.Status(code).JSON(fiber.Map{
		"error":      message,
		"request_id": requestID,
	})
}

// setupMiddlewares configura i middleware globali
func (g *Gateway) setupMiddlewares() {
	// Recovery middleware (primo, per catturare tutti i panic)
	g.app.Use(middleware.Recovery())

	// Request ID middleware
	g.app.Use(middleware.RequestID())

	// CORS middleware
	g.app.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// Logging middleware
	g.app.Use(middleware.Logging(middleware.LoggingConfig{
		SkipPaths: []string{"/health", "/ready", "/metrics"},
	}))
}

// setupRoutes configura le route HTTP
func (g *Gateway) setupRoutes() {
	// Public endpoints (no auth)
	g.app.Get("/health", g.handleHealth)
	g.app.Get("/ready", g.handleReady)

	// Metrics (Prometheus)
	if g.config.Monitoring.Prometheus.Enabled {
		g.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	// API v1
	api := g.app.Group("/v1", middleware.APIKeyAuth(middleware.AuthConfig{
		Enabled:   g.config.Auth.Enabled,
		APIKeys:   g.config.Auth.APIKeys,
		RateLimit: g.config.Auth.RateLimit,
		RateBurst: g.config.Auth.RateBurst,
	}))

	api.Post("/ask", g.handleAsk)
	api.Post("/tasks", g.handleSubmitTask)
	api.Get("/providers", g.handleListProviders)
	api.Get("/capabilities", g.handleListCapabilities)
	api.Get("/stats", g.handleStats)
}

// Start avvia il gateway
func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)

	log.Info().Str("addr", addr).Msg("Gateway listening")

	if g.config.Server.TLS.Enabled {
		return g.app.Listen(addr, fiber.ListenConfig{
			CertFile:    g.config.Server.TLS.Cert,
			CertKeyFile: g.config.Server.TLS.Key,
		})
	}
	return g.app.Listen(addr)
}

// Shutdown esegue lo shutdown graceful del gateway
func (g *Gateway) Shutdown(ctx context.Context) error {
	if err := g.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	log.Info().Msg("Gateway shutdown completed")
	return nil
}

// App restituisce la fiber app, usato nei test
func (g *Gateway) App() *fiber.App {
	return g.app
}
