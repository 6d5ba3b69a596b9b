//go:build whisper

package backend

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"
)

func init() {
	registerLoader(KindWhisper, loadWhisper)
}

// whisperModel wraps a whisper.cpp model. Inference is serialized: whisper
// contexts share model memory and concurrent Process calls on one model are
// not safe.
type whisperModel struct {
	model whisper.Model
	name  string

	mu        sync.Mutex
	language  string
	translate bool
}

func loadWhisper(cfg Config, log zerolog.Logger) (Model, error) {
	path := filepath.Join(cfg.Whisper.BaseDir, "ggml-"+cfg.Whisper.ModelName+".bin")
	log.Debug().Str("path", path).Msg("loading whisper model")

	model, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("whisper.New(%q): %w", path, err)
	}

	return &whisperModel{
		model:     model,
		name:      cfg.Whisper.ModelName,
		language:  cfg.Whisper.Language,
		translate: cfg.Whisper.Translate,
	}, nil
}

func (w *whisperModel) Kind() Kind       { return KindWhisper }
func (w *whisperModel) Describe() string { return w.name }

func (w *whisperModel) applyParams(cfg WhisperConfig) {
	w.mu.Lock()
	w.language = cfg.Language
	w.translate = cfg.Translate
	w.mu.Unlock()
}

func (w *whisperModel) Process(samples []float32) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper context: %w", err)
	}

	ctx.SetTranslate(w.translate)
	if w.language != "" {
		if err := ctx.SetLanguage(w.language); err != nil {
			return "", fmt.Errorf("set language %q: %w", w.language, err)
		}
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}

	var sb strings.Builder
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper segment: %w", err)
		}
		sb.WriteString(seg.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

func (w *whisperModel) Close() error {
	return w.model.Close()
}
