package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema        string        `mapstructure:"DB_SCHEMA"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	AuthSigningKey  string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer      string        `mapstructure:"AUTH_ISSUER"`
	WizardTTL       time.Duration `mapstructure:"WIZARD_SESSION_TTL"`
	WizardSweep     time.Duration `mapstructure:"WIZARD_SWEEP_INTERVAL"`
	CommitTimeout   time.Duration `mapstructure:"COMMIT_TIMEOUT"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	SummaryCacheTTL time.Duration `mapstructure:"SUMMARY_CACHE_TTL"`
	BodyLimit       string        `mapstructure:"BODY_LIMIT"`
	AssistantRPS    float64       `mapstructure:"ASSISTANT_RATE_LIMIT_RPS"`
	AssistantBurst  int           `mapstructure:"ASSISTANT_RATE_LIMIT_BURST"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA",
	"REDIS_URL", "CORS_ORIGINS",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER",
	"WIZARD_SESSION_TTL", "WIZARD_SWEEP_INTERVAL", "COMMIT_TIMEOUT", "REQUEST_TIMEOUT",
	"SUMMARY_CACHE_TTL", "BODY_LIMIT",
	"ASSISTANT_RATE_LIMIT_RPS", "ASSISTANT_RATE_LIMIT_BURST",
}

// Load reads configuration from the environment and an optional .env file in the
// working directory.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUTH_ISSUER", "clinicdesk")
	v.SetDefault("WIZARD_SESSION_TTL", 30*time.Minute)
	v.SetDefault("WIZARD_SWEEP_INTERVAL", time.Minute)
	v.SetDefault("COMMIT_TIMEOUT", 15*time.Second)
	v.SetDefault("REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("SUMMARY_CACHE_TTL", 10*time.Minute)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("ASSISTANT_RATE_LIMIT_RPS", 1)
	v.SetDefault("ASSISTANT_RATE_LIMIT_BURST", 5)

	// Bind explicitly so Unmarshal sees variables that have no default.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitOrigins(cfg.CORSOrigins)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// splitOrigins accepts origins given as one comma separated value.
func splitOrigins(in []string) []string {
	var out []string
	for _, s := range in {
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development a
// signing key is mandatory so every request carries a verified identity.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	durations := map[string]time.Duration{
		"WIZARD_SESSION_TTL":    c.WizardTTL,
		"WIZARD_SWEEP_INTERVAL": c.WizardSweep,
		"COMMIT_TIMEOUT":        c.CommitTimeout,
		"REQUEST_TIMEOUT":       c.RequestTimeout,
		"SUMMARY_CACHE_TTL":     c.SummaryCacheTTL,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.AssistantRPS <= 0 || c.AssistantBurst < 1 {
		return fmt.Errorf("assistant rate limit must be positive")
	}
	return nil
}
