package transcribe

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/snarg/stt-bridge/internal/backend"
)

type fakeWhisperModel struct {
	samples []float32
	text    string
}

func (f *fakeWhisperModel) Kind() backend.Kind { return backend.KindWhisper }
func (f *fakeWhisperModel) Describe() string   { return "fake-whisper" }
func (f *fakeWhisperModel) Close() error       { return nil }
func (f *fakeWhisperModel) Process(samples []float32) (string, error) {
	f.samples = samples
	return f.text, nil
}

func TestPCMToFloat32(t *testing.T) {
	// s16le: 0, -32768, 32767
	raw := []byte{0x00, 0x00, 0x00, 0x80, 0xFF, 0x7F}
	samples := pcmToFloat32(raw)
	if len(samples) != 3 {
		t.Fatalf("len = %d, want 3", len(samples))
	}
	if samples[0] != 0 {
		t.Errorf("samples[0] = %v, want 0", samples[0])
	}
	if samples[1] != -1.0 {
		t.Errorf("samples[1] = %v, want -1.0", samples[1])
	}
	if math.Abs(float64(samples[2])-32767.0/32768.0) > 1e-6 {
		t.Errorf("samples[2] = %v, want %v", samples[2], 32767.0/32768.0)
	}
}

func TestPCMToFloat32OddTail(t *testing.T) {
	// A trailing odd byte is dropped, not misread.
	samples := pcmToFloat32([]byte{0x00, 0x00, 0xFF})
	if len(samples) != 1 {
		t.Fatalf("len = %d, want 1", len(samples))
	}
}

func TestPCMToFloat32Empty(t *testing.T) {
	if got := pcmToFloat32(nil); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestRunWhisper(t *testing.T) {
	model := &fakeWhisperModel{text: "the transcript"}
	pcm := []byte{0x00, 0x00, 0x00, 0x80} // two samples

	text, err := runWhisper(context.Background(), model, bytes.NewReader(pcm))
	if err != nil {
		t.Fatalf("runWhisper: %v", err)
	}
	if text != "the transcript" {
		t.Errorf("text = %q, want %q", text, "the transcript")
	}
	if len(model.samples) != 2 {
		t.Errorf("model saw %d samples, want 2", len(model.samples))
	}
}
