package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Overrides{EnvFile: filepath.Join(t.TempDir(), "no-such.env")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.BackendsFile != "./backends.json" {
		t.Errorf("BackendsFile = %q", cfg.BackendsFile)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.Workers != 1 {
		t.Errorf("Workers = %d", cfg.Workers)
	}
	if cfg.QueueSize != 32 {
		t.Errorf("QueueSize = %d", cfg.QueueSize)
	}
	if cfg.ReplyTopic != "stt-bridge/transcript" {
		t.Errorf("ReplyTopic = %q", cfg.ReplyTopic)
	}
	if cfg.MQTTBrokerURL != "" {
		t.Errorf("MQTTBrokerURL = %q, want empty (mqtt disabled by default)", cfg.MQTTBrokerURL)
	}
	if cfg.WriteTimeout != 300*time.Second {
		t.Errorf("WriteTimeout = %v", cfg.WriteTimeout)
	}
	if cfg.MaxUploadMB != 32 {
		t.Errorf("MaxUploadMB = %d", cfg.MaxUploadMB)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadEnvVars(t *testing.T) {
	t.Setenv("WORKERS", "4")
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("MQTT_BROKER_URL", "tcp://broker:1883")

	cfg, err := Load(Overrides{EnvFile: filepath.Join(t.TempDir(), "no-such.env")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.MQTTBrokerURL != "tcp://broker:1883" {
		t.Errorf("MQTTBrokerURL = %q", cfg.MQTTBrokerURL)
	}
}

func TestLoadOverridesBeatEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(Overrides{
		EnvFile:      filepath.Join(t.TempDir(), "no-such.env"),
		HTTPAddr:     ":7777",
		LogLevel:     "debug",
		BackendsFile: "/etc/stt/backends.json",
		MQTTBroker:   "tcp://cli:1883",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":7777" {
		t.Errorf("HTTPAddr = %q, want flag value", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want flag value", cfg.LogLevel)
	}
	if cfg.BackendsFile != "/etc/stt/backends.json" {
		t.Errorf("BackendsFile = %q", cfg.BackendsFile)
	}
	if cfg.MQTTBrokerURL != "tcp://cli:1883" {
		t.Errorf("MQTTBrokerURL = %q", cfg.MQTTBrokerURL)
	}
}

func TestLoadEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("QUEUE_SIZE=64\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv sets real process env vars.
	t.Cleanup(func() { os.Unsetenv("QUEUE_SIZE") })

	cfg, err := Load(Overrides{EnvFile: envFile})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.QueueSize != 64 {
		t.Errorf("QueueSize = %d, want 64 from env file", cfg.QueueSize)
	}
}
