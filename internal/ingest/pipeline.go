// Package ingest receives audio message events over MQTT, feeds them to the
// transcription worker pool, and publishes transcript replies.
package ingest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/stt-bridge/internal/metrics"
	"github.com/snarg/stt-bridge/internal/transcribe"
)

// Enqueuer is the worker pool surface the pipeline needs.
type Enqueuer interface {
	Enqueue(j transcribe.Job) bool
}

// Publisher delivers transcript replies.
type Publisher interface {
	Publish(topic string, payload []byte)
}

// Pipeline processes incoming MQTT messages.
type Pipeline struct {
	pool       Enqueuer
	publisher  Publisher
	replyTopic string
	log        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	msgCount     atomic.Int64
	audioCount   atomic.Int64
	droppedCount atomic.Int64
}

type PipelineOptions struct {
	Pool       Enqueuer
	Publisher  Publisher
	ReplyTopic string
	Log        zerolog.Logger
}

func NewPipeline(opts PipelineOptions) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		pool:       opts.Pool,
		publisher:  opts.Publisher,
		replyTopic: opts.ReplyTopic,
		log:        opts.Log.With().Str("component", "ingest").Logger(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins periodic stats logging.
func (p *Pipeline) Start() {
	go p.statsLoop()
	p.log.Info().Msg("ingest pipeline started")
}

// Stop cancels the stats loop.
func (p *Pipeline) Stop() {
	p.log.Info().Int64("total_messages", p.msgCount.Load()).Msg("ingest pipeline stopping")
	p.cancel()
}

// statsLoop logs message counts every 60 seconds.
func (p *Pipeline) statsLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	var lastTotal int64
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			total := p.msgCount.Load()
			delta := total - lastTotal
			lastTotal = total

			p.log.Info().
				Int64("total", total).
				Int64("last_60s", delta).
				Int64("audio", p.audioCount.Load()).
				Int64("dropped", p.droppedCount.Load()).
				Msg("stats")
		}
	}
}

// HandleMessage is the entry point called by the MQTT client for each message.
func (p *Pipeline) HandleMessage(topic string, payload []byte) {
	p.msgCount.Add(1)
	metrics.MQTTMessagesTotal.Inc()

	route := ParseTopic(topic)
	if route == nil {
		p.log.Debug().Str("topic", topic).Msg("unrouted topic, skipping")
		return
	}

	switch route.Handler {
	case "audio":
		p.handleAudio(topic, payload)
	}
}

func (p *Pipeline) handleAudio(topic string, payload []byte) {
	var msg AudioMsg
	if err := json.Unmarshal(payload, &msg); err != nil {
		p.log.Error().Err(err).Str("topic", topic).Msg("malformed audio envelope")
		return
	}

	data, err := base64.StdEncoding.DecodeString(msg.AudioBase64)
	if err != nil {
		p.log.Error().Err(err).Str("id", msg.ID).Msg("failed to decode audio base64")
		return
	}
	if len(data) == 0 {
		p.log.Warn().Str("id", msg.ID).Msg("empty audio payload, skipping")
		return
	}

	p.audioCount.Add(1)
	p.log.Debug().
		Str("id", msg.ID).
		Str("mime_type", msg.MimeType).
		Int("bytes", len(data)).
		Msg("audio message received")

	replyTopic := msg.ReplyTopic
	if replyTopic == "" {
		replyTopic = p.replyTopic
	}

	ok := p.pool.Enqueue(transcribe.Job{
		ID:       msg.ID,
		Data:     data,
		MimeType: msg.MimeType,
		OnResult: func(job transcribe.Job, text string, err error) {
			// A request that cannot be transcribed yields silence, not a
			// crash or an error reply. The pool already logged the failure.
			if err != nil {
				return
			}
			p.publishReply(replyTopic, job.ID, text)
		},
	})
	if !ok {
		p.droppedCount.Add(1)
		p.log.Warn().Str("id", msg.ID).Msg("transcription queue full, message dropped")
	}
}

func (p *Pipeline) publishReply(topic, id, text string) {
	out, err := json.Marshal(TranscriptMsg{ID: id, Text: text})
	if err != nil {
		p.log.Error().Err(err).Str("id", id).Msg("failed to marshal transcript reply")
		return
	}
	p.publisher.Publish(topic, out)
	p.log.Debug().Str("id", id).Str("topic", topic).Msg("transcript published")
}

// MsgCount returns the total number of MQTT messages handled.
func (p *Pipeline) MsgCount() int64 { return p.msgCount.Load() }
