package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ORS_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ors", cfg.Routing.Provider)
	assert.Equal(t, "https://api.openrouteservice.org", cfg.Routing.BaseURL)
	assert.Equal(t, "driving-car", cfg.Routing.Profile)
	assert.Equal(t, 4, cfg.Routing.Workers)
	assert.Equal(t, 1, cfg.Routing.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Routing.RequestTimeout)
	assert.Equal(t, 40, cfg.Routing.RequestsPerMinute)
	assert.True(t, cfg.Routing.FetchLongestRoute)
	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, "data/cache.db", cfg.Cache.Path)
	assert.Equal(t, 10000, cfg.Cache.LRUSize)
	assert.Equal(t, "GEOID20", cfg.Inputs.Population.IDField)
	assert.Equal(t, "POP20", cfg.Inputs.Population.PopulationField)
	assert.True(t, cfg.Inputs.Population.SkipUnpopulated)
	assert.Equal(t, "EPSG:4326", cfg.Inputs.TargetCRS)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
routing:
  provider: osrm
  workers: 2
  batch_size: 25
  request_timeout: 5s
inputs:
  population:
    path: data/blocks.shp
  destinations: data/clinics.csv
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "osrm", cfg.Routing.Provider)
	assert.Equal(t, "https://router.project-osrm.org", cfg.Routing.BaseURL)
	assert.Equal(t, "driving", cfg.Routing.Profile)
	assert.Equal(t, 2, cfg.Routing.Workers)
	assert.Equal(t, 25, cfg.Routing.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Routing.RequestTimeout)
	assert.Equal(t, "data/blocks.shp", cfg.Inputs.Population.Path)
	assert.Equal(t, "data/clinics.csv", cfg.Inputs.Destinations)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 40, cfg.Routing.RequestsPerMinute)

	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
cache:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("DRIVETIME_CACHE_DRIVER", "redis")
	t.Setenv("DRIVETIME_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadReadsORSKeyFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ORS_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Routing.APIKey)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DRIVETIME_SERVER_PORT=3000\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("DRIVETIME_SERVER_PORT") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func validConfig() *Config {
	return &Config{
		Routing: RoutingConfig{
			Provider:       "ors",
			APIKey:         "k",
			Workers:        4,
			BatchSize:      1,
			RequestTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{Driver: "sqlite", Path: "data/cache.db"},
		Inputs: InputsConfig{
			Population:   PopulationConfig{Path: "blocks.shp"},
			Destinations: "dest.csv",
			TargetCRS:    "EPSG:4326",
		},
		Server: ServerConfig{Port: 8080},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown provider", func(c *Config) { c.Routing.Provider = "google" }, "routing.provider"},
		{"ors without key", func(c *Config) { c.Routing.APIKey = "" }, "routing.api_key"},
		{"osrm without key", func(c *Config) { c.Routing.Provider = "osrm"; c.Routing.APIKey = "" }, ""},
		{"zero workers", func(c *Config) { c.Routing.Workers = 0 }, "routing.workers"},
		{"zero batch", func(c *Config) { c.Routing.BatchSize = 0 }, "routing.batch_size"},
		{"workers outrun rate limit", func(c *Config) { c.Routing.Workers = 20; c.Routing.RequestsPerMinute = 40 }, "routing.workers must be <= 11"},
		{"workers within rate limit", func(c *Config) { c.Routing.Workers = 11; c.Routing.RequestsPerMinute = 40 }, ""},
		{"unlimited rate", func(c *Config) { c.Routing.Workers = 64; c.Routing.RequestsPerMinute = 0 }, ""},
		{"unknown cache", func(c *Config) { c.Cache.Driver = "mongo" }, "cache.driver"},
		{"postgres without url", func(c *Config) { c.Cache.Driver = "postgres" }, "cache.database_url"},
		{"redis without url", func(c *Config) { c.Cache.Driver = "redis" }, "cache.redis_url"},
		{"missing population", func(c *Config) { c.Inputs.Population.Path = "" }, "inputs.population.path"},
		{"missing destinations", func(c *Config) { c.Inputs.Destinations = "" }, "inputs.destinations"},
		{"projected target", func(c *Config) { c.Inputs.TargetCRS = "EPSG:3857" }, "inputs.target_crs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateServe(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.ValidateServe())

	cfg.Server.Port = 70000
	assert.Error(t, cfg.ValidateServe())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func TestYAMLRedactsSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Routing.APIKey = "secret-key"
	cfg.Cache.DatabaseURL = "postgres://app:hunter2@db:5432/drivetime"

	out, err := cfg.YAML()
	require.NoError(t, err)

	text := string(out)
	assert.NotContains(t, text, "secret-key")
	assert.NotContains(t, text, "hunter2")
	assert.Contains(t, text, "request_timeout: 30s")

	var back Config
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "ors", back.Routing.Provider)
	assert.Equal(t, "xxxxx", back.Routing.APIKey)
	assert.Equal(t, "postgres://app:xxxxx@db:5432/drivetime", back.Cache.DatabaseURL)
	assert.Equal(t, 30*time.Second, back.Routing.RequestTimeout)

	assert.Equal(t, "secret-key", cfg.Routing.APIKey)
}

func TestMaxWorkers(t *testing.T) {
	rc := RoutingConfig{RequestsPerMinute: 40, RequestTimeout: 30 * time.Second}
	assert.Equal(t, 11, rc.MaxWorkers())

	rc.RequestsPerMinute = 600
	assert.Equal(t, 151, rc.MaxWorkers())

	rc.RequestsPerMinute = 0
	assert.Zero(t, rc.MaxWorkers())
}
