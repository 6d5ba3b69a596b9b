package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/snarg/stt-bridge/internal/api"
	"github.com/snarg/stt-bridge/internal/backend"
	"github.com/snarg/stt-bridge/internal/config"
	"github.com/snarg/stt-bridge/internal/ingest"
	"github.com/snarg/stt-bridge/internal/metrics"
	"github.com/snarg/stt-bridge/internal/mqttclient"
	"github.com/snarg/stt-bridge/internal/transcribe"
)

var version = "dev"

func main() {
	startTime := time.Now()

	// Flags take priority over env vars.
	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file (default .env)")
	flag.StringVar(&overrides.BackendsFile, "backends", "", "path to backends.json")
	flag.StringVar(&overrides.HTTPAddr, "http-addr", "", "http listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flag.StringVar(&overrides.MQTTBroker, "mqtt-broker", "", "mqtt broker url")
	flag.Parse()

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().
		Str("version", version).
		Strs("backends", kindsToStrings(backend.Supported())).
		Msg("stt-bridge starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Backend manager and initial reconcile. A bad backends file at startup is
	// logged, not fatal: the service comes up degraded and recovers on the
	// next valid edit.
	manager := backend.NewManager(log)
	defer manager.Shutdown()

	if bcfg, err := config.LoadBackends(cfg.BackendsFile); err != nil {
		log.Error().Err(err).Str("path", cfg.BackendsFile).Msg("backends file unusable, starting without a backend")
	} else if err := manager.Reconcile(bcfg); err != nil {
		log.Error().Err(err).Msg("initial backend reconcile failed")
	}

	// Watch the backends file for edits.
	watcher := config.NewWatcher(cfg.BackendsFile, func(bcfg backend.Config) {
		if err := manager.Reconcile(bcfg); err != nil {
			log.Error().Err(err).Msg("backend reconcile failed")
		}
	}, log)
	if err := watcher.Start(); err != nil {
		log.Error().Err(err).Msg("failed to watch backends file, hot reload disabled")
	} else {
		defer watcher.Stop()
	}

	// Transcription service and worker pool
	service := transcribe.NewService(manager, log)
	pool := transcribe.NewWorkerPool(transcribe.WorkerPoolOptions{
		Transcriber: service,
		Workers:     cfg.Workers,
		QueueSize:   cfg.QueueSize,
		Log:         log,
	})
	pool.Start()
	defer pool.Stop()

	prometheus.MustRegister(metrics.NewCollector(pool, manager))

	// MQTT ingest (optional)
	var mqtt *mqttclient.Client
	if cfg.MQTTBrokerURL != "" {
		mqttLog := log.With().Str("component", "mqtt").Logger()
		mqtt, err = mqttclient.Connect(mqttclient.Options{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Topics:    cfg.MQTTTopics,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			Log:       mqttLog,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer mqtt.Close()

		pipeline := ingest.NewPipeline(ingest.PipelineOptions{
			Pool:       pool,
			Publisher:  mqtt,
			ReplyTopic: cfg.ReplyTopic,
			Log:        log,
		})
		mqtt.SetMessageHandler(pipeline.HandleMessage)
		pipeline.Start()
		defer pipeline.Stop()
	} else {
		log.Info().Msg("no mqtt broker configured, http only")
	}

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, api.Deps{
		Health:     api.NewHealthHandler(manager, mqttStatus(mqtt), pool, version, startTime),
		Transcribe: api.NewTranscribeHandler(service, int64(cfg.MaxUploadMB), httpLog),
	}, httpLog)

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("stt-bridge stopped")
}

// mqttStatus avoids handing the health handler a typed nil when MQTT ingest
// is disabled.
func mqttStatus(c *mqttclient.Client) api.MQTTStatus {
	if c == nil {
		return nil
	}
	return c
}

func kindsToStrings(kinds []backend.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
