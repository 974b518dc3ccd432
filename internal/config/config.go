package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Routing RoutingConfig `yaml:"routing" mapstructure:"routing"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Inputs  InputsConfig  `yaml:"inputs" mapstructure:"inputs"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// RoutingConfig selects and tunes the routing service.
type RoutingConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"`
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey            string        `yaml:"api_key" mapstructure:"api_key"`
	Profile           string        `yaml:"profile" mapstructure:"profile"`
	Workers           int           `yaml:"workers" mapstructure:"workers"`
	BatchSize         int           `yaml:"batch_size" mapstructure:"batch_size"`
	RequestTimeout    time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	FetchLongestRoute bool          `yaml:"fetch_longest_route" mapstructure:"fetch_longest_route"`
}

// CacheConfig configures the travel-time cache. Driver "none" disables it.
type CacheConfig struct {
	Driver      string        `yaml:"driver" mapstructure:"driver"`
	Path        string        `yaml:"path" mapstructure:"path"`
	DatabaseURL string        `yaml:"database_url" mapstructure:"database_url"`
	RedisURL    string        `yaml:"redis_url" mapstructure:"redis_url"`
	TTL         time.Duration `yaml:"ttl" mapstructure:"ttl"`
	LRUSize     int           `yaml:"lru_size" mapstructure:"lru_size"`
}

// InputsConfig locates the input files.
type InputsConfig struct {
	Population   PopulationConfig `yaml:"population" mapstructure:"population"`
	Boundary     BoundaryConfig   `yaml:"boundary" mapstructure:"boundary"`
	Destinations string           `yaml:"destinations" mapstructure:"destinations"`
	TargetCRS    string           `yaml:"target_crs" mapstructure:"target_crs"`
}

type PopulationConfig struct {
	Path            string `yaml:"path" mapstructure:"path"`
	IDField         string `yaml:"id_field" mapstructure:"id_field"`
	PopulationField string `yaml:"population_field" mapstructure:"population_field"`
	CRS             string `yaml:"crs" mapstructure:"crs"`
	SkipUnpopulated bool   `yaml:"skip_unpopulated" mapstructure:"skip_unpopulated"`
}

type BoundaryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
	CRS  string `yaml:"crs" mapstructure:"crs"`
}

type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Per-provider defaults applied when base_url or profile is unset.
var providerDefaults = map[string]struct{ baseURL, profile string }{
	"ors":  {"https://api.openrouteservice.org", "driving-car"},
	"osrm": {"https://router.project-osrm.org", "driving"},
}

// Load reads configuration from an optional .env file, an optional
// config.yaml in the working directory and DRIVETIME_* environment variables.
func Load() (*Config, error) {
	// .env is optional; real environment variables take precedence over it.
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("no .env file loaded", zap.Error(err))
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DRIVETIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("routing.api_key", "DRIVETIME_ROUTING_API_KEY", "ORS_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	// Defaults
	v.SetDefault("routing.provider", "ors")
	v.SetDefault("routing.base_url", "")
	v.SetDefault("routing.profile", "")
	v.SetDefault("routing.workers", 4)
	v.SetDefault("routing.batch_size", 1)
	v.SetDefault("routing.request_timeout", "30s")
	v.SetDefault("routing.requests_per_minute", 40)
	v.SetDefault("routing.fetch_longest_route", true)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "data/cache.db")
	v.SetDefault("cache.database_url", "")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "0s")
	v.SetDefault("cache.lru_size", 10000)
	v.SetDefault("inputs.population.path", "")
	v.SetDefault("inputs.population.id_field", "GEOID20")
	v.SetDefault("inputs.population.population_field", "POP20")
	v.SetDefault("inputs.population.crs", "")
	v.SetDefault("inputs.population.skip_unpopulated", true)
	v.SetDefault("inputs.boundary.path", "")
	v.SetDefault("inputs.boundary.crs", "EPSG:4326")
	v.SetDefault("inputs.destinations", "")
	v.SetDefault("inputs.target_crs", "EPSG:4326")
	v.SetDefault("output.dir", "out")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	cfg.Routing.Provider = strings.ToLower(strings.TrimSpace(cfg.Routing.Provider))
	if d, ok := providerDefaults[cfg.Routing.Provider]; ok {
		if cfg.Routing.BaseURL == "" {
			cfg.Routing.BaseURL = d.baseURL
		}
		if cfg.Routing.Profile == "" {
			cfg.Routing.Profile = d.profile
		}
	}

	return &cfg, nil
}

// MaxWorkers is the largest worker count whose rate-limiter queue still leaves
// half of the request timeout for the request itself. Workers queue for the
// limiter inside their request deadline, one token every 60/requests_per_minute
// seconds. Zero means no bound (no rate limit or no timeout).
func (rc RoutingConfig) MaxWorkers() int {
	if rc.RequestsPerMinute <= 0 || rc.RequestTimeout <= 0 {
		return 0
	}
	return 1 + int(rc.RequestTimeout.Seconds()*float64(rc.RequestsPerMinute)/120)
}

// Validate checks the settings needed by a pipeline run.
func (c *Config) Validate() error {
	var errs []string

	if _, ok := providerDefaults[c.Routing.Provider]; !ok {
		errs = append(errs, "routing.provider must be one of ors, osrm")
	}
	if c.Routing.Provider == "ors" && strings.TrimSpace(c.Routing.APIKey) == "" {
		errs = append(errs, "routing.api_key (or ORS_API_KEY) is required for ors")
	}
	if c.Routing.Workers < 1 {
		errs = append(errs, "routing.workers must be >= 1")
	}
	if c.Routing.BatchSize < 1 {
		errs = append(errs, "routing.batch_size must be >= 1")
	}
	if c.Routing.RequestTimeout <= 0 {
		errs = append(errs, "routing.request_timeout must be positive")
	}
	if c.Routing.RequestsPerMinute < 0 {
		errs = append(errs, "routing.requests_per_minute must be >= 0")
	}
	if limit := c.Routing.MaxWorkers(); limit > 0 && c.Routing.Workers > limit {
		errs = append(errs, fmt.Sprintf(
			"routing.workers must be <= %d at %d requests per minute with a %s request timeout",
			limit, c.Routing.RequestsPerMinute, c.Routing.RequestTimeout))
	}

	switch c.Cache.Driver {
	case "none", "sqlite", "postgres", "redis":
	default:
		errs = append(errs, "cache.driver must be one of none, sqlite, postgres, redis")
	}
	if c.Cache.Driver == "postgres" && c.Cache.DatabaseURL == "" {
		errs = append(errs, "cache.database_url is required for postgres")
	}
	if c.Cache.Driver == "redis" && c.Cache.RedisURL == "" {
		errs = append(errs, "cache.redis_url is required for redis")
	}

	if c.Inputs.Population.Path == "" {
		errs = append(errs, "inputs.population.path is required")
	}
	if c.Inputs.Destinations == "" {
		errs = append(errs, "inputs.destinations is required")
	}
	if !strings.EqualFold(strings.TrimSpace(c.Inputs.TargetCRS), "EPSG:4326") {
		errs = append(errs, "inputs.target_crs must be EPSG:4326")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ValidateServe checks the settings needed to serve a report.
func (c *Config) ValidateServe() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return eris.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	return nil
}

// Redacted returns a copy with the API key and connection-string passwords masked.
func (c Config) Redacted() Config {
	if c.Routing.APIKey != "" {
		c.Routing.APIKey = "xxxxx"
	}
	c.Cache.DatabaseURL = redactURL(c.Cache.DatabaseURL)
	c.Cache.RedisURL = redactURL(c.Cache.RedisURL)
	return c
}

// YAML renders the redacted configuration in config.yaml layout.
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, eris.Wrap(err, "config: marshal yaml")
	}
	return out, nil
}

func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "xxxxx"
	}
	return u.Redacted()
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
