package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	StoreDriver    string        `mapstructure:"STORE_DRIVER"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL    string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience   string        `mapstructure:"AUTH_AUDIENCE"`
	JWTSigningKey  string        `mapstructure:"JWT_SIGNING_KEY"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	SlotCacheSize  int           `mapstructure:"SLOT_CACHE_SIZE"`
	Location       string        `mapstructure:"LOCATION"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "STORE_DRIVER",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "JWT_SIGNING_KEY", "CORS_ORIGINS",
	"SLOT_CACHE_SIZE", "LOCATION", "BODY_LIMIT", "REQUEST_TIMEOUT",
}

// Load reads configuration from the environment and an optional .env file,
// then validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SLOT_CACHE_SIZE", 256)
	v.SetDefault("LOCATION", "UTC")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UseMemoryStore reports whether appointments live in process memory
// instead of PostgreSQL.
func (c *Config) UseMemoryStore() bool {
	return c.StoreDriver == StoreDriverMemory
}

// LoadLocation resolves LOCATION, the calendar used for day boundaries and
// working hours.
func (c *Config) LoadLocation() (*time.Location, error) {
	name := c.Location
	if name == "" {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("LOCATION %q: %w", name, err)
	}
	return loc, nil
}

// Validate checks that the configuration is safe to run. Outside development
// some token verification source must be configured.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", StoreDriverPostgres)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver)
	}

	if !c.IsDev() && c.AuthIssuer == "" && c.AuthJWKSURL == "" && c.JWTSigningKey == "" {
		return fmt.Errorf(
			"one of AUTH_ISSUER, AUTH_JWKS_URL or JWT_SIGNING_KEY must be set when ENV=%q. "+
				"Refusing to start without authentication configuration", c.Env)
	}

	if c.SlotCacheSize < 0 {
		return fmt.Errorf("SLOT_CACHE_SIZE must not be negative, got %d", c.SlotCacheSize)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative, got %s", c.RequestTimeout)
	}
	if _, err := c.LoadLocation(); err != nil {
		return err
	}
	return nil
}
