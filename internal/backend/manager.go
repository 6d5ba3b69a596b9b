package backend

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/snarg/stt-bridge/internal/metrics"
)

// whisperParams is implemented by whisper models that accept cheap
// per-reconcile parameter updates without a reload.
type whisperParams interface {
	applyParams(cfg WhisperConfig)
}

// Manager owns the active model. Reconcile is the single writer; the
// transcription path reads through Acquire. At most one model is live at any
// time: the old model is fully released (waiting for in-flight work) before
// a replacement is constructed, so peak memory is bounded by one model.
type Manager struct {
	log     zerolog.Logger
	loaders map[Kind]loadFunc

	// mu serializes Reconcile and Shutdown.
	mu sync.Mutex

	// hmu guards current/active for readers. Held only for pointer swaps,
	// never across a model load or retire.
	hmu     sync.Mutex
	current Kind // "" while no backend is active
	active  *handle

	lastWhisperModel string
	lastVoskPath     string
}

// NewManager creates a manager with the compiled-in backends.
func NewManager(log zerolog.Logger) *Manager {
	m := &Manager{
		log:     log.With().Str("component", "backend").Logger(),
		loaders: make(map[Kind]loadFunc, len(loaders)),
	}
	for k, fn := range loaders {
		m.loaders[k] = fn
	}
	return m
}

// Reconcile brings the loaded model in line with cfg. It must be called on
// every configuration update, including the first. Calling it repeatedly
// with an unchanged config is a no-op (no reload).
//
// Failures degrade rather than crash: an unavailable backend leaves any
// working model in place; a load failure or bad model path leaves the
// manager with no active backend until a corrected config arrives.
func (m *Manager) Reconcile(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch cfg.Backend {
	case KindWhisper:
		return m.reconcileWhisper(cfg)
	case KindVosk:
		return m.reconcileVosk(cfg)
	default:
		return fmt.Errorf("unknown backend %q (supported: whisper, vosk)", cfg.Backend)
	}
}

func (m *Manager) reconcileWhisper(cfg Config) error {
	load, ok := m.loaders[KindWhisper]
	if !ok {
		err := &UnavailableError{Kind: KindWhisper}
		m.log.Error().Msg("backend is set to whisper, but whisper support is not compiled in")
		return err
	}

	if m.currentKind() != KindWhisper || m.lastWhisperModel != cfg.Whisper.ModelName {
		m.releaseActive()

		model, err := load(cfg, m.log)
		if err != nil {
			m.log.Error().Err(err).Str("model", cfg.Whisper.ModelName).Msg("whisper model load failed")
			return &LoadError{Kind: KindWhisper, Err: err}
		}

		m.install(KindWhisper, model)
		m.lastWhisperModel = cfg.Whisper.ModelName
		metrics.ModelReloadsTotal.WithLabelValues(string(KindWhisper)).Inc()
		m.log.Info().Str("model", cfg.Whisper.ModelName).Msg("whisper model loaded")
	}

	// Language and translate are mutable per reconcile, no reload needed.
	m.hmu.Lock()
	h := m.active
	m.hmu.Unlock()
	if h != nil {
		if p, ok := h.model.(whisperParams); ok {
			p.applyParams(cfg.Whisper)
		}
	}
	return nil
}

func (m *Manager) reconcileVosk(cfg Config) error {
	load, ok := m.loaders[KindVosk]
	if !ok {
		err := &UnavailableError{Kind: KindVosk}
		m.log.Error().Msg("backend is set to vosk, but vosk support is not compiled in")
		return err
	}

	if m.currentKind() != KindVosk || m.lastVoskPath != cfg.Vosk.ModelPath {
		m.releaseActive()

		// Vosk aborts the process on a bad path in some builds, so verify the
		// directory before handing it to the native loader.
		if fi, err := os.Stat(cfg.Vosk.ModelPath); err != nil || !fi.IsDir() {
			perr := &PathError{Path: cfg.Vosk.ModelPath}
			m.log.Error().Str("path", cfg.Vosk.ModelPath).Msg("vosk model path not found")
			return perr
		}

		model, err := load(cfg, m.log)
		if err != nil {
			m.log.Error().Err(err).Str("path", cfg.Vosk.ModelPath).Msg("vosk model load failed")
			return &LoadError{Kind: KindVosk, Err: err}
		}

		m.install(KindVosk, model)
		m.lastVoskPath = cfg.Vosk.ModelPath
		metrics.ModelReloadsTotal.WithLabelValues(string(KindVosk)).Inc()
		m.log.Info().Str("path", cfg.Vosk.ModelPath).Msg("vosk model loaded")
	}
	return nil
}

// Acquire returns the active model and a release func. The model stays valid
// until release is called, even if a reconcile swaps backends meanwhile.
func (m *Manager) Acquire() (Model, func(), error) {
	m.hmu.Lock()
	h := m.active
	m.hmu.Unlock()

	if h == nil || !h.acquire() {
		return nil, nil, ErrNoBackend
	}

	var once sync.Once
	release := func() { once.Do(h.release) }
	return h.model, release, nil
}

// Status describes the manager for health reporting.
type Status struct {
	Backend   Kind   `json:"backend,omitempty"`
	Model     string `json:"model,omitempty"`
	Supported []Kind `json:"supported"`
}

// Status returns the current backend state.
func (m *Manager) Status() Status {
	m.hmu.Lock()
	defer m.hmu.Unlock()

	s := Status{Supported: Supported()}
	if m.active != nil {
		s.Backend = m.current
		s.Model = m.active.model.Describe()
	}
	return s
}

// BackendLoaded reports whether a model is active (metrics collector hook).
func (m *Manager) BackendLoaded() bool {
	m.hmu.Lock()
	defer m.hmu.Unlock()
	return m.active != nil
}

// Shutdown releases the loaded model and resets state. Idempotent.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseActive()
	m.lastWhisperModel = ""
	m.lastVoskPath = ""
}

func (m *Manager) currentKind() Kind {
	m.hmu.Lock()
	defer m.hmu.Unlock()
	return m.current
}

// releaseActive detaches the active handle so readers see "no backend",
// then waits for in-flight transcriptions and closes the model. The caller
// holds m.mu.
func (m *Manager) releaseActive() {
	m.hmu.Lock()
	h := m.active
	kind := m.current
	m.active = nil
	m.current = ""
	m.hmu.Unlock()

	if h == nil {
		return
	}
	if err := h.retire(); err != nil {
		m.log.Warn().Err(err).Str("backend", string(kind)).Msg("error closing model")
	} else {
		m.log.Debug().Str("backend", string(kind)).Msg("model released")
	}
}

func (m *Manager) install(k Kind, model Model) {
	m.hmu.Lock()
	m.current = k
	m.active = newHandle(model)
	m.hmu.Unlock()
}
