package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultConfigPath = "config.yaml"
	MinJWTSecretBytes = 32
)

// MCPServerConfig holds how to reach a single MCP server: the transport it
// speaks, its address, and auth material supplied from the environment.
type MCPServerConfig struct {
	Transport         string   `yaml:"transport"` // stdio, websocket, http
	Command           string   `yaml:"command"`
	Args              []string `yaml:"args"`
	URL               string   `yaml:"url"`
	Token             string   `yaml:"-"` // from env
	AuthHeader        string   `yaml:"auth_header"`
	HeartbeatInterval int      `yaml:"heartbeat_interval_seconds"`
	AllowedTools      []string `yaml:"allowed_tools"`
}

// PoolConfig tunes internal/mcp/pool's reconnect and expiry policy.
type PoolConfig struct {
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
	ConnectionTTL     time.Duration `yaml:"connection_ttl"`
	HealthCheckEvery  time.Duration `yaml:"health_check_interval"`
}

// RateLimitConfig feeds internal/resilience's token bucket.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

// LLMConfig points the review nodes at an OpenAI-compatible chat
// completions endpoint. APIKey is sourced only from the environment.
type LLMConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"-"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Config holds the engine's configuration: ambient (log, server identity,
// JWT, rate limit) plus domain (MCP servers, pool policy).
type Config struct {
	Log struct {
		Level  string `yaml:"level"`  // debug, info, warn, error
		Format string `yaml:"format"` // text, json
		Output string `yaml:"output"` // stdout, stderr, /path/to/file
	} `yaml:"log"`

	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	// JWTSecret validates/signs bearer tokens for a caller that fronts this
	// engine with an HTTP surface; the engine itself never listens on a
	// socket. Sourced only from the environment — never from YAML.
	JWTSecret string `yaml:"-"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// DatabaseURL is validated for shape only; no driver is opened here.
	// Persistence is an external collaborator the embedding application
	// wires up.
	DatabaseURL string `yaml:"database_url"`

	// TracingEndpoint, if set, is validated as a URL but never dialed here.
	TracingEndpoint string `yaml:"tracing_endpoint"`

	Pool PoolConfig `yaml:"pool"`

	LLM LLMConfig `yaml:"llm"`

	MCPServers map[string]MCPServerConfig `yaml:"mcp_servers"`
}

// GetLogLevel returns the slog.Level for Log.Level, defaulting to Info for
// anything unrecognized.
func (c *Config) GetLogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads configuration from a YAML file (CONFIG_PATH, default
// config.yaml) and overlays environment variables for anything secret or
// deployment-specific. A missing file is not an error; defaults apply.
func Load() (*Config, error) {
	// Best-effort: a .env file is a local-dev convenience, never required.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Log.Output = "stdout"
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.RateLimit.PerMinute = 60
	cfg.RateLimit.Burst = 10
	cfg.Pool.ConnectionTimeout = 10 * time.Second
	cfg.Pool.ConnectionTTL = 30 * time.Minute
	cfg.Pool.HealthCheckEvery = time.Minute
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.Timeout = 2 * time.Minute

	configPath := getEnv("CONFIG_PATH", DefaultConfigPath)
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
		}
		slog.Info("config loaded", "path", configPath)
	case os.IsNotExist(err):
		slog.Info("config file not found, using defaults", "path", configPath)
	default:
		return nil, fmt.Errorf("config: read %s: %w", configPath, err)
	}

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	if envPort := getEnvInt("PORT", 0); envPort != 0 {
		cfg.Server.Port = envPort
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("TRACING_ENDPOINT"); v != "" {
		cfg.TracingEndpoint = v
	}

	for name, server := range cfg.MCPServers {
		server.Token = getEnv(strings.ToUpper(name)+"_MCP_TOKEN", server.Token)
		cfg.MCPServers[name] = server
	}

	return cfg, nil
}

// Validate checks every field SPEC_FULL.md's configuration section
// requires, joining every violation found rather than stopping at the
// first so an operator sees the whole list at once.
func (c *Config) Validate() error {
	var errs []string

	if len(c.JWTSecret) < MinJWTSecretBytes {
		errs = append(errs, fmt.Sprintf("JWT_SECRET must be at least %d bytes", MinJWTSecretBytes))
	}
	if c.Server.Host == "" {
		errs = append(errs, "server.host must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid server port: %d", c.Server.Port))
	}
	if c.RateLimit.PerMinute <= 0 {
		errs = append(errs, "rate_limit.per_minute must be positive")
	}
	if c.RateLimit.Burst <= 0 {
		errs = append(errs, "rate_limit.burst must be positive")
	}
	if c.DatabaseURL != "" {
		if _, err := url.Parse(c.DatabaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("database_url is not a valid URL: %v", err))
		}
	}
	if c.TracingEndpoint != "" {
		if u, err := url.Parse(c.TracingEndpoint); err != nil || u.Scheme == "" {
			errs = append(errs, "tracing_endpoint must be a valid absolute URL")
		}
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s", c.Log.Level))
	}
	if c.Pool.ConnectionTimeout <= 0 {
		errs = append(errs, "pool.connection_timeout must be positive")
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, "LLM_API_KEY must be set")
	}

	for name, server := range c.MCPServers {
		switch server.Transport {
		case "stdio":
			if server.Command == "" {
				errs = append(errs, fmt.Sprintf("mcp server %q: stdio transport requires a command", name))
			}
		case "websocket", "http":
			if server.URL == "" {
				errs = append(errs, fmt.Sprintf("mcp server %q: %s transport requires a url", name, server.Transport))
			}
		default:
			errs = append(errs, fmt.Sprintf("mcp server %q: unknown transport %q", name, server.Transport))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return fallback
}
