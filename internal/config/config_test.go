package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var overrideVars = []string{
	"ENV_NAME", "JWT_SECRET", "DATABASE_URL", "STORE_BACKEND", "CACHE_BACKEND",
	"MEMCACHED_ADDRS", "AMQP_URL", "API_URL", "SERVER_PORT", "LOG_LEVEL",
}

// unsetOverrides clears every variable Load reads, restoring them after the test.
func unsetOverrides(t *testing.T) {
	t.Helper()
	for _, k := range overrideVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeEnvFile(t *testing.T, dir, content string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "config", "dev.yaml"), content)
}

func writeSecretsFile(t *testing.T, dir, content string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "config", "secrets.yaml"), content)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

const minimalEnvYAML = `
server:
  port: "8080"
`

// TestLoad_Defaults verifies the defaults applied to a minimal file.
func TestLoad_Defaults(t *testing.T) {
	unsetOverrides(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML)

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	checks := []struct {
		name      string
		got, want interface{}
	}{
		{"ServerPort", cfg.ServerPort, "8080"},
		{"LogLevel", cfg.LogLevel, "INFO"},
		{"StoreBackend", cfg.StoreBackend, "memory"},
		{"CacheBackend", cfg.CacheBackend, "in_memory"},
		{"JWTExpiry", cfg.JWTExpiry, 24 * time.Hour},
		{"BcryptCost", cfg.BcryptCost, 10},
		{"InsightsCity", cfg.InsightsCity, "Alvorada - TO"},
		{"RecomputeInterval", cfg.RecomputeInterval, time.Hour},
		{"PokeAPIURL", cfg.PokeAPIURL, "https://pokeapi.co/api/v2"},
		{"PokeAPICacheTTL", cfg.PokeAPICacheTTL, 10 * time.Minute},
		{"PokeAPITotalCount", cfg.PokeAPITotalCount, 1302},
		{"PokeAPIPageSize", cfg.PokeAPIPageSize, 20},
		{"RetryAttempts", cfg.RetryAttempts, 3},
		{"BreakerThreshold", cfg.BreakerThreshold, 5},
		{"RateLimitRPS", cfg.RateLimitRPS, 100},
		{"RateLimitBurst", cfg.RateLimitBurst, 250},
		{"QueueName", cfg.QueueName, "weather_queue"},
		{"ProducerInterval", cfg.ProducerInterval, 60 * time.Minute},
		{"ProducerCity", cfg.ProducerCity, "Alvorada - TO"},
		{"WorkerAPIURL", cfg.WorkerAPIURL, "http://localhost:8080"},
		{"ShutdownTimeout", cfg.ShutdownTimeout, 30 * time.Second},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if cfg.RequestTimeout <= cfg.PokeAPITimeout {
		t.Errorf("RequestTimeout %v should exceed PokeAPITimeout %v", cfg.RequestTimeout, cfg.PokeAPITimeout)
	}
	if err := cfg.RequireJWTSecret(); err == nil {
		t.Error("RequireJWTSecret() error = nil with no secret configured")
	}
}

// TestLoad_EnvFileNotFound verifies the error for a missing ENV_NAME file.
func TestLoad_EnvFileNotFound(t *testing.T) {
	unsetOverrides(t)
	t.Setenv("ENV_NAME", "nonexistent")

	cfg, err := LoadFrom(t.TempDir())
	if err == nil || cfg != nil {
		t.Fatalf("LoadFrom() = %v, %v; want nil config and error", cfg, err)
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("error = %v, want config file not found", err)
	}
}

// TestLoad_SecretsFile verifies that secrets are read from config/secrets.yaml.
func TestLoad_SecretsFile(t *testing.T) {
	unsetOverrides(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, "store:\n  backend: postgres\n")
	writeSecretsFile(t, dir, "jwt_secret: secret-from-file-123\ndatabase_url: postgres://file\n")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.JWTSecret != "secret-from-file-123" || cfg.DatabaseURL != "postgres://file" {
		t.Errorf("secrets = %q %q", cfg.JWTSecret, cfg.DatabaseURL)
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		t.Errorf("RequireJWTSecret() error = %v", err)
	}
}

// TestLoad_EnvOverrides verifies that environment variables win over files.
func TestLoad_EnvOverrides(t *testing.T) {
	unsetOverrides(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, `
server:
  port: "8080"
cache:
  backend: in_memory
worker:
  api_url: http://from-file
`)
	writeSecretsFile(t, dir, "jwt_secret: secret-from-file-123\n")
	t.Setenv("JWT_SECRET", "secret-from-env-4567")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CACHE_BACKEND", "MEMCACHED")
	t.Setenv("MEMCACHED_ADDRS", "mc:11211")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("AMQP_URL", "amqp://env")
	t.Setenv("API_URL", "http://api:3000/")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.JWTSecret != "secret-from-env-4567" || cfg.ServerPort != "9090" || cfg.CacheBackend != "memcached" ||
		cfg.MemcachedAddrs != "mc:11211" || cfg.StoreBackend != "postgres" || cfg.DatabaseURL != "postgres://env" ||
		cfg.QueueURL != "amqp://env" || cfg.WorkerAPIURL != "http://api:3000" || cfg.LogLevel != "DEBUG" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

// TestLoad_DotEnv verifies that .env populates unset variables.
func TestLoad_DotEnv(t *testing.T) {
	unsetOverrides(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML)
	writeFile(t, filepath.Join(dir, ".env"), "JWT_SECRET=secret-from-dotenv-89\nSERVER_PORT=7070\n")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.JWTSecret != "secret-from-dotenv-89" || cfg.ServerPort != "7070" {
		t.Errorf("JWTSecret = %q, ServerPort = %q", cfg.JWTSecret, cfg.ServerPort)
	}
}

// TestLoad_DurationFallbacks verifies that empty and invalid durations use defaults.
func TestLoad_DurationFallbacks(t *testing.T) {
	unsetOverrides(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, `
pokeapi:
  timeout: ""
  cache_ttl: "invalid"
insights:
  recompute_interval: "-5m"
`)

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.PokeAPITimeout != 5*time.Second {
		t.Errorf("PokeAPITimeout = %v, want 5s", cfg.PokeAPITimeout)
	}
	if cfg.PokeAPICacheTTL != 10*time.Minute {
		t.Errorf("PokeAPICacheTTL = %v, want 10m", cfg.PokeAPICacheTTL)
	}
	if cfg.RecomputeInterval != time.Hour {
		t.Errorf("RecomputeInterval = %v, want 1h", cfg.RecomputeInterval)
	}
}

// TestLoad_ValidationFailures verifies the rejected configurations.
func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{"unknown cache backend", "cache:\n  backend: redis\n", nil, "cache.backend"},
		{"unknown store backend", "store:\n  backend: mongo\n", nil, "store.backend"},
		{"postgres without dsn", "store:\n  backend: postgres\n", nil, "DATABASE_URL"},
		{"zero pokeapi timeout", "pokeapi:\n  timeout: 0s\n", nil, "pokeapi.timeout"},
		{"short jwt secret", minimalEnvYAML, map[string]string{"JWT_SECRET": "short"}, "jwt_secret"},
		{"bad coordinates", "producer:\n  latitude: 123\n", nil, "coordinates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetOverrides(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			writeEnvFile(t, dir, tt.yaml)

			_, err := LoadFrom(dir)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFrom() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

// TestParseDuration verifies fallback rules for duration strings.
func TestParseDuration(t *testing.T) {
	def := 3 * time.Second
	tests := map[string]time.Duration{
		"":      def,
		"bogus": def,
		"0s":    def,
		"-1s":   def,
		"250ms": 250 * time.Millisecond,
	}
	for in, want := range tests {
		if got := parseDuration(in, def); got != want {
			t.Errorf("parseDuration(%q) = %v, want %v", in, got, want)
		}
	}
	if got := parseDurationOrZero("0s", def); got != 0 {
		t.Errorf("parseDurationOrZero(0s) = %v, want 0", got)
	}
}
