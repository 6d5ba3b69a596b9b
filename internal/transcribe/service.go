// Package transcribe turns compressed audio payloads into text using the
// currently loaded backend model.
package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/stt-bridge/internal/backend"
	"github.com/snarg/stt-bridge/internal/metrics"
	"github.com/snarg/stt-bridge/internal/transcode"
)

// Service runs the transcription pipeline: acquire the active model, decode
// the payload to PCM, and drive the backend-specific driver.
type Service struct {
	manager *backend.Manager
	log     zerolog.Logger
}

// NewService creates a transcription service bound to a backend manager.
func NewService(manager *backend.Manager, log zerolog.Logger) *Service {
	return &Service{
		manager: manager,
		log:     log.With().Str("component", "transcribe").Logger(),
	}
}

// Transcribe converts an audio payload to text. The backend is acquired
// before any decode work is spent; the model handle stays valid for the whole
// call even if a reconcile swaps backends concurrently.
//
// Failures are per-request: the typed errors from the transcode and backend
// packages pass through for the caller to map, and inference errors are
// wrapped with the backend kind. None of them are transient — callers should
// not retry.
func (s *Service) Transcribe(ctx context.Context, data []byte, mimeType string) (string, error) {
	model, release, err := s.manager.Acquire()
	if err != nil {
		return "", err
	}
	defer release()

	kind := string(model.Kind())
	start := time.Now()

	text, err := s.run(ctx, model, data, mimeType)

	elapsed := time.Since(start)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.TranscriptionsTotal.WithLabelValues(kind, outcome).Inc()
	metrics.TranscriptionDuration.WithLabelValues(kind).Observe(elapsed.Seconds())

	if err != nil {
		s.log.Error().Err(err).
			Str("backend", kind).
			Str("mime_type", mimeType).
			Int("bytes", len(data)).
			Msg("transcription failed")
		return "", err
	}

	s.log.Debug().
		Str("backend", kind).
		Str("mime_type", mimeType).
		Int("bytes", len(data)).
		Dur("duration_ms", elapsed).
		Msg("transcription complete")
	return text, nil
}

func (s *Service) run(ctx context.Context, model backend.Model, data []byte, mimeType string) (string, error) {
	stream, err := transcode.Start(ctx, data, mimeType, s.log)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	switch m := model.(type) {
	case backend.WhisperModel:
		return runWhisper(ctx, m, stream)
	case backend.VoskModel:
		return runVosk(ctx, m, stream, s.log)
	default:
		return "", fmt.Errorf("model kind %q has no driver", model.Kind())
	}
}
