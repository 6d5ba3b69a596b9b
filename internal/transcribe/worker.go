package transcribe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Transcriber is the pipeline entry point the pool dispatches jobs to.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Job is a transcription request enqueued by an ingest source.
type Job struct {
	ID       string
	Data     []byte
	MimeType string

	// OnResult, when set, is called from the worker goroutine with the
	// transcript or error. err != nil means no transcript was produced.
	OnResult func(job Job, text string, err error)
}

// QueueStats reports the current state of the transcription queue.
type QueueStats struct {
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// WorkerPoolOptions configures the transcription worker pool.
type WorkerPoolOptions struct {
	Transcriber Transcriber
	Workers     int
	QueueSize   int
	Log         zerolog.Logger
}

// WorkerPool runs transcriptions off the ingest path so slow inference never
// blocks acceptance of new messages or configuration reconciles.
type WorkerPool struct {
	jobs        chan Job
	transcriber Transcriber
	opts        WorkerPoolOptions
	log         zerolog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	// mu makes Enqueue's send atomic with Stop's close of the jobs channel.
	mu      sync.Mutex
	stopped bool

	completed atomic.Int64
	failed    atomic.Int64
}

// NewWorkerPool creates a new transcription worker pool.
func NewWorkerPool(opts WorkerPoolOptions) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobs:        make(chan Job, opts.QueueSize),
		transcriber: opts.Transcriber,
		opts:        opts,
		log:         opts.Log.With().Str("component", "pool").Logger(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.log.Info().Int("workers", wp.opts.Workers).Int("queue_size", wp.opts.QueueSize).Msg("transcription worker pool started")
}

// Stop signals workers to drain and waits for completion.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobs)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.cancel()
	wp.log.Info().
		Int64("completed", wp.completed.Load()).
		Int64("failed", wp.failed.Load()).
		Msg("transcription worker pool stopped")
}

// Enqueue adds a job to the queue. Returns false if the queue is full or the
// pool has been stopped.
func (wp *WorkerPool) Enqueue(j Job) bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		return false
	}
	select {
	case wp.jobs <- j:
		return true
	default:
		return false
	}
}

// Stats returns current queue statistics.
func (wp *WorkerPool) Stats() QueueStats {
	return QueueStats{
		Pending:   len(wp.jobs),
		Completed: wp.completed.Load(),
		Failed:    wp.failed.Load(),
	}
}

// PendingJobs returns the queue depth (metrics collector hook).
func (wp *WorkerPool) PendingJobs() int { return len(wp.jobs) }

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int { return wp.opts.Workers }

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.With().Int("worker", id).Logger()

	for job := range wp.jobs {
		text, err := wp.transcriber.Transcribe(wp.ctx, job.Data, job.MimeType)
		if err != nil {
			wp.failed.Add(1)
			log.Warn().Err(err).
				Str("job_id", job.ID).
				Str("mime_type", job.MimeType).
				Int("bytes", len(job.Data)).
				Msg("job failed")
		} else {
			wp.completed.Add(1)
			log.Debug().Str("job_id", job.ID).Msg("job complete")
		}
		if job.OnResult != nil {
			job.OnResult(job, text, err)
		}
	}
}
