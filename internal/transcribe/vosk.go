package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/snarg/stt-bridge/internal/backend"
)

// voskChunkSize is 10 seconds of audio: 16000 samples/s * 2 bytes/sample * 10 s.
const voskChunkSize = backend.SampleRate * 2 * 10

// ProtocolError reports a malformed structured result from a backend. Raw
// carries the payload for diagnosis.
type ProtocolError struct {
	Kind backend.Kind
	Raw  string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s returned malformed result: %v", e.Kind, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// runVosk drives the streaming backend: fixed-size chunks are read from the
// PCM stream and fed to a per-request recognizer strictly in order (the
// recognizer is a stateful automaton). After the stream is exhausted the
// recognizer is finalized and its JSON result parsed for the transcript.
func runVosk(ctx context.Context, model backend.VoskModel, pcm io.Reader, log zerolog.Logger) (string, error) {
	sess, err := model.NewSession()
	if err != nil {
		return "", fmt.Errorf("vosk: %w", err)
	}
	defer sess.Free()

	buf := make([]byte, voskChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		// ReadFull mirrors a blocking read(chunkSize): short reads from the
		// decoder pipe are coalesced so only the final chunk is partial.
		n, rerr := io.ReadFull(pcm, buf)
		if n > 0 {
			segment, ok, ferr := sess.FeedChunk(buf[:n])
			if ferr != nil {
				return "", fmt.Errorf("vosk: %w", ferr)
			}
			if ok {
				log.Debug().Str("segment", segment).Msg("vosk interim result")
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return "", fmt.Errorf("read pcm: %w", rerr)
		}
	}

	raw, err := sess.Finalize()
	if err != nil {
		return "", fmt.Errorf("vosk: %w", err)
	}
	log.Debug().Str("result", raw).Msg("vosk final result")

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return "", &ProtocolError{Kind: backend.KindVosk, Raw: raw, Err: err}
	}
	return result.Text, nil
}
