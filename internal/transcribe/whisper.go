package transcribe

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/snarg/stt-bridge/internal/backend"
)

// runWhisper drives the batch backend: the full PCM buffer is converted to
// float32 samples and handed to the model in a single blocking call.
func runWhisper(ctx context.Context, model backend.WhisperModel, pcm io.Reader) (string, error) {
	raw, err := io.ReadAll(pcm)
	if err != nil {
		return "", fmt.Errorf("read pcm: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := model.Process(pcmToFloat32(raw))
	if err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}
	return text, nil
}

// pcmToFloat32 reinterprets s16le bytes as float32 samples in [-1.0, 1.0).
// A trailing odd byte is ignored.
func pcmToFloat32(raw []byte) []float32 {
	n := len(raw) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		samples[i] = float32(s) / 32768.0
	}
	return samples
}
