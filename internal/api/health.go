package api

import (
	"net/http"
	"time"

	"github.com/snarg/stt-bridge/internal/backend"
	"github.com/snarg/stt-bridge/internal/transcode"
	"github.com/snarg/stt-bridge/internal/transcribe"
)

type HealthResponse struct {
	Status        string               `json:"status"`
	Version       string               `json:"version"`
	UptimeSeconds int64                `json:"uptime_seconds"`
	Checks        map[string]string    `json:"checks"`
	Backend       backend.Status       `json:"backend"`
	Queue         transcribe.QueueStats `json:"queue"`
}

// MQTTStatus reports broker connectivity. Nil-safe wrapper interface so the
// handler works when MQTT ingest is not configured.
type MQTTStatus interface {
	IsConnected() bool
}

type QueueSource interface {
	Stats() transcribe.QueueStats
}

type HealthHandler struct {
	manager   *backend.Manager
	mqtt      MQTTStatus
	queue     QueueSource
	version   string
	startTime time.Time
}

func NewHealthHandler(manager *backend.Manager, mqtt MQTTStatus, queue QueueSource, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		manager:   manager,
		mqtt:      mqtt,
		queue:     queue,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"

	// Backend check. No loaded model means requests fail, but the service
	// itself is up and a config fix recovers it, so report degraded.
	bs := h.manager.Status()
	if bs.Backend != "" {
		checks["backend"] = "ok"
	} else {
		checks["backend"] = "no_backend"
		status = "degraded"
	}

	// Decoder check
	if transcode.CheckFFmpeg() {
		checks["ffmpeg"] = "ok"
	} else {
		checks["ffmpeg"] = "not_found"
		status = "degraded"
	}

	// MQTT check
	if h.mqtt != nil {
		if h.mqtt.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	resp := HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
		Backend:       bs,
	}
	if h.queue != nil {
		resp.Queue = h.queue.Stats()
	}

	WriteJSON(w, http.StatusOK, resp)
}
