// Package config loads storefront settings from an optional .env file, an
// optional YAML file named by CONFIG_FILE, and SMOOTHY_* environment
// variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string `yaml:"env"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	Backend   BackendConfig   `yaml:"backend"`
	Session   SessionConfig   `yaml:"session"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Elastic   ElasticConfig   `yaml:"elasticsearch"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	// Storage is one of memory, redis or mongo.
	Storage       string        `yaml:"storage"`
	Secret        string        `yaml:"secret"`
	CookieName    string        `yaml:"cookie_name"`
	TTL           time.Duration `yaml:"ttl"`
	RedisURL      string        `yaml:"redis_url"`
	MongoURI      string        `yaml:"mongo_uri"`
	MongoDatabase string        `yaml:"mongo_database"`
}

type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	LogTopic   string   `yaml:"log_topic"`
	EventTopic string   `yaml:"event_topic"`
}

type TelemetryConfig struct {
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

type StripeConfig struct {
	SecretKey string `yaml:"secret_key"`
	Currency  string `yaml:"currency"`
}

type PricingConfig struct {
	LegacyMinorUnitHeuristic bool `yaml:"legacy_minor_unit_heuristic"`
}

type ElasticConfig struct {
	Addresses []string `yaml:"addresses"`
	Index     string   `yaml:"index"`
}

func Default() *Config {
	return &Config{
		Env:      "development",
		Port:     "8080",
		LogLevel: "info",
		Backend: BackendConfig{
			BaseURL: "http://localhost:8081",
			Timeout: 15 * time.Second,
		},
		Session: SessionConfig{
			Storage:       "memory",
			CookieName:    "smoothy_session",
			TTL:           7 * 24 * time.Hour,
			MongoDatabase: "storefront",
		},
		Kafka: KafkaConfig{
			LogTopic:   "storefront-logs",
			EventTopic: "storefront-events",
		},
		Telemetry: TelemetryConfig{ServiceName: "mrsmoothy-storefront"},
		Stripe:    StripeConfig{Currency: "usd"},
		Elastic:   ElasticConfig{Index: "storefront-logs"},
	}
}

// Load builds and validates the storefront configuration. A missing .env
// file is not an error.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read builds the configuration without validating it, for tools that need
// only part of it.
func Read() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) LoadFromEnv() error {
	setString(&c.Env, "SMOOTHY_ENV")
	setString(&c.Port, "PORT")
	setString(&c.Port, "SMOOTHY_PORT")
	setString(&c.LogLevel, "SMOOTHY_LOG_LEVEL")

	setString(&c.Backend.BaseURL, "SMOOTHY_BACKEND_URL")
	if err := setDuration(&c.Backend.Timeout, "SMOOTHY_BACKEND_TIMEOUT"); err != nil {
		return err
	}

	setString(&c.Session.Storage, "SMOOTHY_SESSION_STORAGE")
	setString(&c.Session.Secret, "SMOOTHY_SESSION_SECRET")
	setString(&c.Session.CookieName, "SMOOTHY_SESSION_COOKIE")
	if err := setDuration(&c.Session.TTL, "SMOOTHY_SESSION_TTL"); err != nil {
		return err
	}
	setString(&c.Session.RedisURL, "REDIS_URL")
	setString(&c.Session.RedisURL, "SMOOTHY_REDIS_URL")
	setString(&c.Session.MongoURI, "SMOOTHY_MONGO_URI")
	setString(&c.Session.MongoDatabase, "SMOOTHY_MONGO_DATABASE")

	setList(&c.Kafka.Brokers, "SMOOTHY_KAFKA_BROKERS")
	setString(&c.Kafka.LogTopic, "SMOOTHY_KAFKA_LOG_TOPIC")
	setString(&c.Kafka.EventTopic, "SMOOTHY_KAFKA_EVENT_TOPIC")

	setString(&c.Telemetry.ServiceName, "OTEL_SERVICE_NAME")
	setString(&c.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	setString(&c.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	setString(&c.Stripe.Currency, "SMOOTHY_STRIPE_CURRENCY")

	if v := os.Getenv("SMOOTHY_LEGACY_MINOR_UNIT_HEURISTIC"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SMOOTHY_LEGACY_MINOR_UNIT_HEURISTIC: %w", err)
		}
		c.Pricing.LegacyMinorUnitHeuristic = b
	}

	setList(&c.Elastic.Addresses, "SMOOTHY_ELASTIC_ADDRESSES")
	setString(&c.Elastic.Index, "SMOOTHY_ELASTIC_INDEX")
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend base URL is required"))
	}
	if c.Session.Secret == "" {
		errs = append(errs, errors.New("session secret is required"))
	}
	switch c.Session.Storage {
	case "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			errs = append(errs, errors.New("redis session storage needs a redis URL"))
		}
	case "mongo":
		if c.Session.MongoURI == "" {
			errs = append(errs, errors.New("mongo session storage needs a mongo URI"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session storage %q", c.Session.Storage))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session TTL must be positive"))
	}
	return errors.Join(errs...)
}

// KafkaEnabled reports whether any Kafka brokers are configured.
func (c *Config) KafkaEnabled() bool { return len(c.Kafka.Brokers) > 0 }

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
