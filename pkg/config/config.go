package config

import (
	"fmt"
	"os"
	"time"

	"github.com/novahq/nova/pkg/database"
	"github.com/spf13/viper"
)

// Config rappresenta la configurazione completa dell'applicazione
type Config struct {
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Database     database.Config    `yaml:"database" mapstructure:"database"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Providers    ProvidersConfig    `yaml:"providers" mapstructure:"providers"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	Auth         AuthConfig         `yaml:"auth" mapstructure:"auth"`
	Monitoring   MonitoringConfig   `yaml:"monitoring" mapstructure:"monitoring"`
}

// ServerConfig configurazione del server HTTP
type ServerConfig struct {
	Port int    `yaml:"port" mapstructure:"port"`
	Host string `yaml:"host" mapstructure:"host"`
	TLS  struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Cert    string `yaml:"cert" mapstructure:"cert"`
		Key     string `yaml:"key" mapstructure:"key"`
	} `yaml:"tls" mapstructure:"tls"`
}

// CacheConfig configurazione della response cache
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries"`
	Redis      struct {
		Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
		Host     string `yaml:"host" mapstructure:"host"`
		Password string `yaml:"password" mapstructure:"password"`
		DB       int    `yaml:"db" mapstructure:"db"`
	} `yaml:"redis" mapstructure:"redis"`
}

// ProviderConfig configurazione di un singolo provider nella catena
type ProviderConfig struct {
	Name       string        `yaml:"name" mapstructure:"name"`
	Type       string        `yaml:"type" mapstructure:"type"` // "gemini", "openai", "anthropic", "local"
	APIKey     string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"`
	Model      string        `yaml:"model" mapstructure:"model"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// ProvidersConfig configurazione della catena di provider.
// Chain definisce l'ordine di priorità: il primo provider viene
// sempre tentato per primo, l'ordine non cambia mai a runtime.
type ProvidersConfig struct {
	Chain               []ProviderConfig `yaml:"chain" mapstructure:"chain"`
	DefaultTimeout      time.Duration    `yaml:"default_timeout" mapstructure:"default_timeout"`
	DefaultMaxRetries   int              `yaml:"default_max_retries" mapstructure:"default_max_retries"`
	HealthCheckInterval time.Duration    `yaml:"health_check_interval" mapstructure:"health_check_interval"`
}

// OrchestratorConfig configurazione del task orchestrator
type OrchestratorConfig struct {
	MaxConcurrent  int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	DefaultTimeout time.Duration `yaml:"default_timeout" mapstructure:"default_timeout"`
}

// AuthConfig configurazione autenticazione API
type AuthConfig struct {
	Enabled    bool     `yaml:"enabled" mapstructure:"enabled"`
	APIKeys    []string `yaml:"api_keys" mapstructure:"api_keys"`
	RateLimit  float64  `yaml:"rate_limit" mapstructure:"rate_limit"`   // richieste/secondo per chiave
	RateBurst  int      `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// MonitoringConfig configurazione monitoring
type MonitoringConfig struct {
	Prometheus struct {
		Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	} `yaml:"prometheus" mapstructure:"prometheus"`
	Logging struct {
		Level  string `yaml:"level" mapstructure:"level"`
		Format string `yaml:"format" mapstructure:"format"`
	} `yaml:"logging" mapstructure:"logging"`
}

// Load carica la configurazione da file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Read environment variables
	v.SetEnvPrefix("NOVA")
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyProviderDefaults()

	return &cfg, nil
}

// setDefaults imposta i valori di default
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.tls.enabled", false)

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.connection", "./data/nova.db")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.log_level", "warn")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.host", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)

	// Providers defaults
	v.SetDefault("providers.default_timeout", "30s")
	v.SetDefault("providers.default_max_retries", 2)
	v.SetDefault("providers.health_check_interval", "5m")

	// Orchestrator defaults
	v.SetDefault("orchestrator.max_concurrent", 8)
	v.SetDefault("orchestrator.default_timeout", "60s")

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.rate_limit", 10.0)
	v.SetDefault("auth.rate_burst", 20)

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.logging.level", "info")
	v.SetDefault("monitoring.logging.format", "json")
}

// applyProviderDefaults propaga timeout e retry di default
// ai provider della catena che non li specificano
func (c *Config) applyProviderDefaults() {
	for i := range c.Providers.Chain {
		p := &c.Providers.Chain[i]
		if p.Timeout <= 0 {
			p.Timeout = c.Providers.DefaultTimeout
		}
		if p.MaxRetries < 0 {
			p.MaxRetries = c.Providers.DefaultMaxRetries
		}
		if p.Name == "" {
			p.Name = p.Type
		}
	}
}

// Validate valida la configurazione
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.TLS.Enabled {
		if _, err := os.Stat(c.Server.TLS.Cert); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate not found: %s", c.Server.TLS.Cert)
		}
		if _, err := os.Stat(c.Server.TLS.Key); os.IsNotExist(err) {
			return fmt.Errorf("TLS key not found: %s", c.Server.TLS.Key)
		}
	}

	if len(c.Providers.Chain) == 0 {
		return fmt.Errorf("provider chain is empty: at least one provider is required")
	}

	seen := make(map[string]bool)
	for _, p := range c.Providers.Chain {
		switch p.Type {
		case "gemini", "openai", "anthropic", "local":
		default:
			return fmt.Errorf("unknown provider type: %q", p.Type)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider name: %q", p.Name)
		}
		seen[p.Name] = true
	}

	if c.Orchestrator.MaxConcurrent < 1 {
		return fmt.Errorf("orchestrator.max_concurrent must be >= 1, got %d", c.Orchestrator.MaxConcurrent)
	}

	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("auth enabled but no API keys configured")
	}

	return nil
}
