package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidDriver        = errors.New("DB_DRIVER must be postgres or mysql")
	ErrMissingDSN           = errors.New("DB_DSN is required")
	ErrInvalidSource        = errors.New("PROMOTIONS_SOURCE must be http or db")
	ErrMissingPromotionsURL = errors.New("PROMOTIONS_URL is required for the http promotions source")
	ErrInvalidDuration      = errors.New("invalid duration")
	ErrInvalidPosition      = errors.New("SYMBOL_POSITION must be prefix or suffix")
	ErrMissingKafkaTopic    = errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
)

type Config struct {
	HTTPPort string `yaml:"http_port"`

	DBDriver string `yaml:"db_driver"`
	DBDSN    string `yaml:"db_dsn"`

	PromotionsSource          string        `yaml:"promotions_source"`
	PromotionsURL             string        `yaml:"promotions_url"`
	PromotionsTimeout         time.Duration `yaml:"promotions_timeout"`
	PromotionsRefreshInterval time.Duration `yaml:"promotions_refresh_interval"`

	Locale         string `yaml:"locale"`
	Currency       string `yaml:"currency"`
	SymbolPosition string `yaml:"symbol_position"`

	RedisAddr string        `yaml:"redis_addr"`
	RedisTTL  time.Duration `yaml:"redis_ttl"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
	KafkaGroupID string   `yaml:"kafka_group_id"`

	JaegerEndpoint string `yaml:"jaeger_endpoint"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func Defaults() Config {
	return Config{
		HTTPPort:          "8080",
		DBDriver:          "postgres",
		PromotionsSource:  "http",
		PromotionsTimeout: 5 * time.Second,
		Locale:            "en-US",
		Currency:          "USD",
		SymbolPosition:    "prefix",
		RedisTTL:          time.Minute,
		KafkaGroupID:      "storefront-pricing",
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// Load reads .env when present, then the YAML file named by CONFIG_FILE,
// then the environment. Later sources win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("decoding config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.HTTPPort, "HTTP_PORT")
	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.DBDSN, "DB_DSN")
	setString(&c.PromotionsSource, "PROMOTIONS_SOURCE")
	setString(&c.PromotionsURL, "PROMOTIONS_URL")
	setString(&c.Locale, "LOCALE")
	setString(&c.Currency, "CURRENCY")
	setString(&c.SymbolPosition, "SYMBOL_POSITION")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.KafkaTopic, "KAFKA_TOPIC")
	setString(&c.KafkaGroupID, "KAFKA_GROUP_ID")
	setString(&c.JaegerEndpoint, "JAEGER_ENDPOINT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")

	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		c.KafkaBrokers = splitList(v)
	}

	for key, dst := range map[string]*time.Duration{
		"PROMOTIONS_TIMEOUT":          &c.PromotionsTimeout,
		"PROMOTIONS_REFRESH_INTERVAL": &c.PromotionsRefreshInterval,
		"REDIS_TTL":                   &c.RedisTTL,
	} {
		if err := setDuration(dst, key); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidDriver, c.DBDriver)
	}
	if c.DBDSN == "" {
		return ErrMissingDSN
	}
	switch c.PromotionsSource {
	case "http":
		if c.PromotionsURL == "" {
			return ErrMissingPromotionsURL
		}
	case "db":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidSource, c.PromotionsSource)
	}
	switch c.SymbolPosition {
	case "prefix", "suffix":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidPosition, c.SymbolPosition)
	}
	if c.PromotionsTimeout <= 0 {
		return fmt.Errorf("%w: PROMOTIONS_TIMEOUT must be positive", ErrInvalidDuration)
	}
	if c.PromotionsRefreshInterval < 0 || c.RedisTTL < 0 {
		return fmt.Errorf("%w: negative interval", ErrInvalidDuration)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return ErrMissingKafkaTopic
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidDuration, key, v)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
