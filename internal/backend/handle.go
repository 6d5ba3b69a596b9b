package backend

import "sync"

// handle wraps a Model with a reference count so the manager can swap models
// while transcriptions are in flight. A retired handle rejects new acquires;
// the underlying model is closed only once the last reference is released.
type handle struct {
	model Model

	mu      sync.Mutex
	cond    *sync.Cond
	refs    int
	retired bool
}

func newHandle(m Model) *handle {
	h := &handle{model: m}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// acquire takes a reference. It returns false if the handle has been retired.
func (h *handle) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.retired {
		return false
	}
	h.refs++
	return true
}

// release drops a reference taken by acquire.
func (h *handle) release() {
	h.mu.Lock()
	h.refs--
	if h.refs == 0 && h.retired {
		h.cond.Broadcast()
	}
	h.mu.Unlock()
}

// retire marks the handle unusable, waits for in-flight references to drain,
// and closes the model. Blocks until the model is released. Idempotent.
func (h *handle) retire() error {
	h.mu.Lock()
	if h.retired {
		// Another retire already closed (or is closing) the model.
		for h.refs > 0 {
			h.cond.Wait()
		}
		h.mu.Unlock()
		return nil
	}
	h.retired = true
	for h.refs > 0 {
		h.cond.Wait()
	}
	h.mu.Unlock()
	return h.model.Close()
}
