// Package backend manages the lifecycle of speech-to-text models.
//
// Supported backends:
//   - whisper: whisper.cpp via Go bindings (build tag "whisper")
//   - vosk: Vosk/Kaldi streaming recognizer (build tag "vosk")
//
// Each backend links against a native library, so support is compiled in
// per build tag. A backend whose tag is absent is reported as unavailable
// at reconcile time rather than failing the build.
package backend

import (
	"sort"

	"github.com/rs/zerolog"
)

// Kind identifies a transcription backend.
type Kind string

const (
	KindWhisper Kind = "whisper"
	KindVosk    Kind = "vosk"
)

// SampleRate is the PCM sample rate every model consumes, in Hz.
const SampleRate = 16000

// Config is a snapshot of the backend section of the service configuration.
// Exactly one backend is active at a time, selected by Backend.
type Config struct {
	Backend Kind          `json:"backend"`
	Whisper WhisperConfig `json:"whisper"`
	Vosk    VoskConfig    `json:"vosk"`
}

// WhisperConfig configures the whisper backend. ModelName and BaseDir
// identify the model file ({base_dir}/ggml-{model_name}.bin) and force a
// reload when changed; Language and Translate are applied to the live
// model on every reconcile without reloading.
type WhisperConfig struct {
	ModelName string `json:"model_name"`
	BaseDir   string `json:"base_dir"`
	Language  string `json:"language"`
	Translate bool   `json:"translate"`
}

// VoskConfig configures the vosk backend. ModelPath must be an existing
// model directory; changing it forces a reload.
type VoskConfig struct {
	ModelPath string `json:"model_path"`
}

// Model is a loaded transcription model. Implementations own native
// resources and must release them in Close.
type Model interface {
	Kind() Kind
	// Describe returns the model identifier (name or path) for logs and health.
	Describe() string
	Close() error
}

// WhisperModel is a batch model: one call on the full sample buffer.
type WhisperModel interface {
	Model
	// Process transcribes mono 16kHz float32 samples in one blocking call.
	Process(samples []float32) (string, error)
}

// VoskModel is a streaming model: each request gets its own recognizer
// session, fed PCM chunks in order.
type VoskModel interface {
	Model
	NewSession() (VoskSession, error)
}

// VoskSession is a stateful recognizer bound to one request. Chunks must be
// fed sequentially; the session is not safe for concurrent use.
type VoskSession interface {
	// FeedChunk pushes raw s16le PCM into the recognizer. When the recognizer
	// finalizes a segment mid-stream it is returned with ok=true; segments are
	// informational — the recognizer accumulates the full result internally.
	FeedChunk(pcm []byte) (segment string, ok bool, err error)
	// Finalize flushes the recognizer and returns its raw JSON result.
	Finalize() (string, error)
	Free()
}

// loadFunc constructs a model from a config snapshot.
type loadFunc func(cfg Config, log zerolog.Logger) (Model, error)

// loaders holds the compiled-in backends, populated by init functions in
// the build-tagged driver files.
var loaders = map[Kind]loadFunc{}

func registerLoader(k Kind, fn loadFunc) {
	loaders[k] = fn
}

// Supported returns the backends compiled into this binary, sorted.
func Supported() []Kind {
	kinds := make([]Kind, 0, len(loaders))
	for k := range loaders {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
