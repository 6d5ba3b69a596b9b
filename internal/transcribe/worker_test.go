package transcribe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, data []byte, mimeType string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.text, f.err
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestWorkerPoolProcessesJobs(t *testing.T) {
	tr := &fakeTranscriber{text: "hello"}
	pool := NewWorkerPool(WorkerPoolOptions{
		Transcriber: tr,
		Workers:     2,
		QueueSize:   8,
		Log:         zerolog.Nop(),
	})
	pool.Start()

	results := make(chan string, 4)
	for i := 0; i < 4; i++ {
		ok := pool.Enqueue(Job{
			ID:       "job",
			Data:     []byte{1, 2, 3},
			MimeType: "audio/ogg",
			OnResult: func(_ Job, text string, err error) {
				if err != nil {
					t.Errorf("unexpected job error: %v", err)
				}
				results <- text
			},
		})
		if !ok {
			t.Fatalf("enqueue %d rejected", i)
		}
	}

	for i := 0; i < 4; i++ {
		select {
		case text := <-results:
			if text != "hello" {
				t.Errorf("result = %q, want hello", text)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for results")
		}
	}

	pool.Stop()
	stats := pool.Stats()
	if stats.Completed != 4 || stats.Failed != 0 || stats.Pending != 0 {
		t.Errorf("stats = %+v, want 4 completed", stats)
	}
	if tr.callCount() != 4 {
		t.Errorf("transcriber called %d times, want 4", tr.callCount())
	}
}

func TestWorkerPoolFailuresCounted(t *testing.T) {
	tr := &fakeTranscriber{err: errors.New("no backend loaded")}
	pool := NewWorkerPool(WorkerPoolOptions{
		Transcriber: tr,
		Workers:     1,
		QueueSize:   4,
		Log:         zerolog.Nop(),
	})
	pool.Start()

	done := make(chan error, 1)
	pool.Enqueue(Job{ID: "bad", Data: []byte{1}, MimeType: "audio/ogg",
		OnResult: func(_ Job, _ string, err error) { done <- err }})

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected job error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}

	pool.Stop()
	if stats := pool.Stats(); stats.Failed != 1 || stats.Completed != 0 {
		t.Errorf("stats = %+v, want 1 failed", stats)
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	// No workers started, so the queue never drains.
	pool := NewWorkerPool(WorkerPoolOptions{
		Transcriber: &fakeTranscriber{},
		Workers:     0,
		QueueSize:   1,
		Log:         zerolog.Nop(),
	})

	if !pool.Enqueue(Job{ID: "a"}) {
		t.Fatal("first enqueue rejected")
	}
	if pool.Enqueue(Job{ID: "b"}) {
		t.Error("enqueue into a full queue accepted")
	}
	if pool.PendingJobs() != 1 {
		t.Errorf("pending = %d, want 1", pool.PendingJobs())
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolOptions{
		Transcriber: &fakeTranscriber{},
		Workers:     1,
		QueueSize:   4,
		Log:         zerolog.Nop(),
	})
	pool.Start()
	pool.Stop()
	pool.Stop() // idempotent

	if pool.Enqueue(Job{ID: "late"}) {
		t.Error("enqueue after stop accepted")
	}
}

func TestEnqueueConcurrentWithStop(t *testing.T) {
	tr := &fakeTranscriber{text: "x"}
	pool := NewWorkerPool(WorkerPoolOptions{
		Transcriber: tr,
		Workers:     1,
		QueueSize:   1,
		Log:         zerolog.Nop(),
	})
	pool.Start()

	// Hammer Enqueue from several goroutines while Stop closes the queue.
	// A send racing the close would panic and fail the test.
	quit := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-quit:
					return
				default:
					pool.Enqueue(Job{ID: "race", Data: []byte{1}, MimeType: "audio/ogg"})
				}
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	pool.Stop()
	close(quit)
	wg.Wait()

	if pool.Enqueue(Job{ID: "late"}) {
		t.Error("enqueue after stop accepted")
	}
}

func TestStopDrainsQueue(t *testing.T) {
	tr := &fakeTranscriber{text: "x"}
	pool := NewWorkerPool(WorkerPoolOptions{
		Transcriber: tr,
		Workers:     1,
		QueueSize:   8,
		Log:         zerolog.Nop(),
	})
	pool.Start()

	for i := 0; i < 5; i++ {
		pool.Enqueue(Job{ID: "drain", Data: []byte{1}, MimeType: "audio/ogg"})
	}
	pool.Stop()

	if stats := pool.Stats(); stats.Completed != 5 {
		t.Errorf("completed = %d, want 5 (stop must drain the queue)", stats.Completed)
	}
}
