// Package config loads process settings from the environment and the backend
// selection from a watched JSON file.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// BackendsFile is the JSON file holding backend selection and model
	// parameters. It is watched; edits trigger a reconcile.
	BackendsFile string `env:"BACKENDS_FILE" envDefault:"./backends.json"`

	MQTTBrokerURL string `env:"MQTT_BROKER_URL"`
	MQTTTopics    string `env:"MQTT_TOPICS" envDefault:"stt-bridge/#"`
	MQTTClientID  string `env:"MQTT_CLIENT_ID" envDefault:"stt-bridge"`
	MQTTUsername  string `env:"MQTT_USERNAME"`
	MQTTPassword  string `env:"MQTT_PASSWORD"`
	ReplyTopic    string `env:"REPLY_TOPIC" envDefault:"stt-bridge/transcript"`

	Workers   int `env:"WORKERS" envDefault:"1"`
	QueueSize int `env:"QUEUE_SIZE" envDefault:"32"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"300s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	MaxUploadMB  int           `env:"HTTP_MAX_UPLOAD_MB" envDefault:"32"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile      string
	BackendsFile string
	HTTPAddr     string
	LogLevel     string
	MQTTBroker   string
}

// Load reads configuration from .env file, environment variables, and CLI
// overrides. Priority: CLI flags > environment variables > .env file >
// struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.BackendsFile != "" {
		cfg.BackendsFile = overrides.BackendsFile
	}
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.MQTTBroker != "" {
		cfg.MQTTBrokerURL = overrides.MQTTBroker
	}

	return cfg, nil
}
