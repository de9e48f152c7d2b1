package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("CONFIG_PATH")
	os.Unsetenv("JWT_SECRET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.RateLimit.PerMinute != 60 {
		t.Errorf("expected 60 rpm default, got %d", cfg.RateLimit.PerMinute)
	}
	if cfg.Pool.ConnectionTimeout <= 0 {
		t.Errorf("expected a positive default connection timeout")
	}
}

func TestLoadMCPTokenFromEnv(t *testing.T) {
	yamlContent := `
mcp_servers:
  bitbucket:
    transport: http
    url: http://localhost:9001
`
	tmpfile, err := os.CreateTemp("", "config*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())
	if _, err := tmpfile.WriteString(yamlContent); err != nil {
		t.Fatal(err)
	}
	tmpfile.Close()

	os.Setenv("CONFIG_PATH", tmpfile.Name())
	os.Setenv("BITBUCKET_MCP_TOKEN", "bb-token")
	defer func() {
		os.Unsetenv("CONFIG_PATH")
		os.Unsetenv("BITBUCKET_MCP_TOKEN")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.MCPServers["bitbucket"].Token; got != "bb-token" {
		t.Errorf("expected bitbucket token from env, got %q", got)
	}
}

func TestValidateRejectsShortJWTSecret(t *testing.T) {
	cfg := &Config{JWTSecret: "too-short"}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.RateLimit.PerMinute = 1
	cfg.RateLimit.Burst = 1
	cfg.Log.Level = "info"
	cfg.Pool.ConnectionTimeout = 1
	cfg.LLM.APIKey = "test-key"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for short JWT secret")
	}
}

func TestValidateRejectsUnknownMCPTransport(t *testing.T) {
	cfg := &Config{JWTSecret: "0123456789abcdef0123456789abcdef"}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.RateLimit.PerMinute = 1
	cfg.RateLimit.Burst = 1
	cfg.Log.Level = "info"
	cfg.Pool.ConnectionTimeout = 1
	cfg.LLM.APIKey = "test-key"
	cfg.MCPServers = map[string]MCPServerConfig{
		"weird": {Transport: "carrier-pigeon"},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown transport")
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := &Config{JWTSecret: "0123456789abcdef0123456789abcdef"}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.RateLimit.PerMinute = 60
	cfg.RateLimit.Burst = 10
	cfg.Log.Level = "info"
	cfg.Pool.ConnectionTimeout = 1
	cfg.LLM.APIKey = "test-key"
	cfg.MCPServers = map[string]MCPServerConfig{
		"bitbucket": {Transport: "stdio", Command: "mcp-bitbucket"},
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
