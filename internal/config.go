package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	CachePolicyTTL        = "ttl"
	CachePolicyInvalidate = "invalidate"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server" envconfig:"HTTP_SERVER"`
	Database      DatabaseConfig      `mapstructure:"database" envconfig:"DATABASE"`
	Redis         RedisConfig         `mapstructure:"redis" envconfig:"REDIS"`
	Security      SecurityConfig      `mapstructure:"security" envconfig:"SECURITY"`
	Access        AccessConfig        `mapstructure:"access" envconfig:"ACCESS"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	Observability ObservabilityConfig `mapstructure:"observability" envconfig:"OBSERVABILITY"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" envconfig:"PORT"`
	BaseURL           string        `mapstructure:"base_url" envconfig:"BASE_URL"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" envconfig:"READ_HEADER_TIMEOUT"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" envconfig:"READ_TIMEOUT"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	SSLRedirect       bool          `mapstructure:"ssl_redirect" envconfig:"SSL_REDIRECT"`
}

type DatabaseConfig struct {
	Source          string        `mapstructure:"source" envconfig:"SOURCE"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" envconfig:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" envconfig:"CONN_MAX_IDLE_TIME"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" envconfig:"ADDR"`
	Password string `mapstructure:"password" envconfig:"PASSWORD"`
	DB       int    `mapstructure:"db" envconfig:"DB"`
}

type SecurityConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret" envconfig:"JWT_SECRET"`
	TokenExpiry time.Duration `mapstructure:"token_expiry" envconfig:"TOKEN_EXPIRY"`
	BCryptCost  int           `mapstructure:"bcrypt_cost" envconfig:"BCRYPT_COST"`
}

// AccessConfig tunes the module directory and the permission gates.
type AccessConfig struct {
	CacheTTL           time.Duration `mapstructure:"cache_ttl" envconfig:"CACHE_TTL"`
	CacheBackend       string        `mapstructure:"cache_backend" envconfig:"CACHE_BACKEND"`
	CacheSize          int           `mapstructure:"cache_size" envconfig:"CACHE_SIZE"`
	CachePolicy        string        `mapstructure:"cache_policy" envconfig:"CACHE_POLICY"`
	ExposeDenialReason bool          `mapstructure:"expose_denial_reason" envconfig:"EXPOSE_DENIAL_REASON"`
}

type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled" envconfig:"ENABLED"`
	LoginRequests int           `mapstructure:"login_requests" envconfig:"LOGIN_REQUESTS"`
	LoginWindow   time.Duration `mapstructure:"login_window" envconfig:"LOGIN_WINDOW"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics" envconfig:"METRICS"`
	Tracing TracingConfig `mapstructure:"tracing" envconfig:"TRACING"`
	Logging LoggingConfig `mapstructure:"logging" envconfig:"LOGGING"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" envconfig:"ENABLED"`
	Path    string `mapstructure:"path" envconfig:"PATH"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled" envconfig:"ENABLED"`
	ServiceName  string  `mapstructure:"service_name" envconfig:"SERVICE_NAME"`
	Endpoint     string  `mapstructure:"endpoint" envconfig:"ENDPOINT"`
	Insecure     bool    `mapstructure:"insecure" envconfig:"INSECURE"`
	SamplingRate float64 `mapstructure:"sampling_rate" envconfig:"SAMPLING_RATE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" envconfig:"LEVEL"`
	Format string `mapstructure:"format" envconfig:"FORMAT"`
}

// LoadConfigFromEnv reads APP_* variables, e.g. APP_SECURITY_JWT_SECRET.
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("APP", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values left by the file or environment loaders.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Database.ConnMaxIdleTime == 0 {
		c.Database.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.Security.TokenExpiry == 0 {
		c.Security.TokenExpiry = 30 * 24 * time.Hour
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 12
	}
	if c.Access.CacheTTL == 0 {
		c.Access.CacheTTL = 5 * time.Minute
	}
	if c.Access.CacheBackend == "" {
		c.Access.CacheBackend = CacheBackendMemory
	}
	if c.Access.CacheSize == 0 {
		c.Access.CacheSize = 512
	}
	if c.Access.CachePolicy == "" {
		c.Access.CachePolicy = CachePolicyTTL
	}
	if c.RateLimit.LoginRequests == 0 {
		c.RateLimit.LoginRequests = 10
	}
	if c.RateLimit.LoginWindow == 0 {
		c.RateLimit.LoginWindow = time.Minute
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Tracing.ServiceName == "" {
		c.Observability.Tracing.ServiceName = "marketplace"
	}
	if c.Observability.Tracing.SamplingRate == 0 {
		c.Observability.Tracing.SamplingRate = 1
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Access.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("access config: %v", err))
	}

	if c.Access.CacheBackend == CacheBackendRedis && c.Redis.Addr == "" {
		errs = append(errs, "redis config: addr is required for the redis cache backend")
	}

	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("observability config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 characters")
	}
	if c.TokenExpiry <= 0 {
		return errors.New("token_expiry must be positive")
	}
	if c.BCryptCost < 4 || c.BCryptCost > 15 {
		return errors.New("bcrypt_cost must be between 4 and 15")
	}
	return nil
}

func (c *AccessConfig) Validate() error {
	if c.CacheTTL <= 0 {
		return errors.New("cache_ttl must be positive")
	}
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown cache_backend %q", c.CacheBackend)
	}
	switch c.CachePolicy {
	case CachePolicyTTL, CachePolicyInvalidate:
	default:
		return fmt.Errorf("unknown cache_policy %q", c.CachePolicy)
	}
	if c.CacheSize <= 0 {
		return errors.New("cache_size must be positive")
	}
	return nil
}

func (c *ObservabilityConfig) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return errors.New("tracing endpoint is required when tracing is enabled")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return errors.New("tracing sampling_rate must be within [0,1]")
	}
	return nil
}
