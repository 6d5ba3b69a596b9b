package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/snarg/stt-bridge/internal/backend"
)

// debounceDelay coalesces the Create+Write event bursts editors and
// atomic-rename writers produce for a single save.
const debounceDelay = 500 * time.Millisecond

// Watcher monitors the backends file and invokes onUpdate with each freshly
// parsed config. A file that fails to parse is logged and skipped — the last
// good configuration stays in effect.
type Watcher struct {
	path     string
	onUpdate func(backend.Config)
	log      zerolog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}

	// debounceMu also serializes reload against Stop: once Stop returns,
	// onUpdate will not fire again.
	debounceMu    sync.Mutex
	debounceTimer *time.Timer
	stopped       bool
}

// NewWatcher creates a watcher for the given backends file.
func NewWatcher(path string, onUpdate func(backend.Config), log zerolog.Logger) *Watcher {
	return &Watcher{
		path:     path,
		onUpdate: onUpdate,
		log:      log.With().Str("component", "watcher").Logger(),
		done:     make(chan struct{}),
	}
}

// Start begins watching. The parent directory is watched rather than the
// file itself so atomic replace (write temp + rename) keeps working.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fw

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return err
	}

	go w.loop()
	w.log.Info().Str("path", w.path).Msg("watching backends file")
	return nil
}

// Stop ends the watch loop, cancels any pending debounced reload, and
// releases the fsnotify watcher. A reload already running blocks Stop until
// it finishes; after Stop returns, onUpdate will not be called again.
func (w *Watcher) Stop() {
	w.debounceMu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.done)
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceMu.Unlock()

	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.matches(event) {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) matches(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	target, err := filepath.Abs(w.path)
	if err != nil {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return name == target
}

func (w *Watcher) scheduleReload() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.stopped {
		return
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(debounceDelay, w.reload)
}

// reload holds debounceMu across the parse and the callback so Stop can
// guarantee no onUpdate call survives it.
func (w *Watcher) reload() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.stopped {
		return
	}

	cfg, err := LoadBackends(w.path)
	if err != nil {
		w.log.Error().Err(err).Msg("backends file reload failed, keeping previous config")
		return
	}
	w.log.Info().Str("backend", string(cfg.Backend)).Msg("backends file changed")
	w.onUpdate(cfg)
}
