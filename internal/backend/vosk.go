//go:build vosk

package backend

import (
	"fmt"

	vosk "github.com/alphacep/vosk-api/go"
	"github.com/rs/zerolog"
)

func init() {
	registerLoader(KindVosk, loadVosk)
}

type voskModel struct {
	model *vosk.VoskModel
	path  string
}

func loadVosk(cfg Config, log zerolog.Logger) (Model, error) {
	log.Debug().Str("path", cfg.Vosk.ModelPath).Msg("loading vosk model")

	model, err := vosk.NewModel(cfg.Vosk.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("vosk.NewModel(%q): %w", cfg.Vosk.ModelPath, err)
	}
	return &voskModel{model: model, path: cfg.Vosk.ModelPath}, nil
}

func (v *voskModel) Kind() Kind       { return KindVosk }
func (v *voskModel) Describe() string { return v.path }

func (v *voskModel) NewSession() (VoskSession, error) {
	rec, err := vosk.NewRecognizer(v.model, float64(SampleRate))
	if err != nil {
		return nil, fmt.Errorf("vosk recognizer: %w", err)
	}
	return &voskSession{rec: rec}, nil
}

func (v *voskModel) Close() error {
	v.model.Free()
	return nil
}

type voskSession struct {
	rec *vosk.VoskRecognizer
}

func (s *voskSession) FeedChunk(pcm []byte) (string, bool, error) {
	if s.rec.AcceptWaveform(pcm) != 0 {
		return s.rec.Result(), true, nil
	}
	return "", false, nil
}

func (s *voskSession) Finalize() (string, error) {
	return s.rec.FinalResult(), nil
}

func (s *voskSession) Free() {
	s.rec.Free()
}
