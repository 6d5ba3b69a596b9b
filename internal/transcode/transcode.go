// Package transcode converts compressed audio into the canonical PCM stream
// the transcription backends consume: mono, 16 kHz, signed 16-bit
// little-endian. Decoding is delegated to an external ffmpeg process.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// SampleRate is the output PCM sample rate in Hz.
const SampleRate = 16000

// ErrDecoderUnavailable means ffmpeg was not found in PATH.
var ErrDecoderUnavailable = errors.New("ffmpeg not found in PATH")

// UnsupportedFormatError reports a MIME type outside the supported table.
// No subprocess is spawned for unsupported input.
type UnsupportedFormatError struct {
	MimeType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported audio format %q", e.MimeType)
}

// mimeFormats maps MIME types to ffmpeg input container names.
var mimeFormats = map[string]string{
	"audio/ogg":     "ogg",
	"audio/mpeg":    "mp3",
	"audio/vnd.wav": "wav",
	"audio/mp4":     "mp4",
}

// FormatForMIME resolves a MIME type to an ffmpeg container name. Any
// parameter suffix (";codecs=opus" and the like) is ignored.
func FormatForMIME(mimeType string) (string, error) {
	base := mimeType
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(base)

	format, ok := mimeFormats[base]
	if !ok {
		return "", &UnsupportedFormatError{MimeType: mimeType}
	}
	return format, nil
}

// ffmpegAvailable caches whether ffmpeg is in PATH (checked once at startup).
var ffmpegAvailable *bool

// CheckFFmpeg checks if ffmpeg is available in PATH. Call once at startup.
func CheckFFmpeg() bool {
	if ffmpegAvailable != nil {
		return *ffmpegAvailable
	}
	_, err := exec.LookPath("ffmpeg")
	avail := err == nil
	ffmpegAvailable = &avail
	return avail
}

// ffmpegArgs builds the fixed decode invocation: read the given container
// from stdin, downmix to mono, resample, write raw s16le to stdout.
func ffmpegArgs(format string) []string {
	return []string{
		"-f", format,
		"-i", "-",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-f", "s16le",
		"-",
	}
}

// Stream is a running decode. Read returns the PCM output; Close reaps the
// process. ffmpeg's stderr is drained concurrently (a full pipe buffer would
// deadlock the decoder) and logged on Close — it is diagnostic only.
type Stream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	wg     sync.WaitGroup
	log    zerolog.Logger

	closeOnce sync.Once
}

// Start launches ffmpeg decoding data and returns the PCM stream. The input
// payload is written and the stderr pipe drained on background goroutines,
// concurrently with the caller reading PCM. Cancelling ctx kills the process.
func Start(ctx context.Context, data []byte, mimeType string, log zerolog.Logger) (*Stream, error) {
	format, err := FormatForMIME(mimeType)
	if err != nil {
		return nil, err
	}
	if !CheckFFmpeg() {
		return nil, ErrDecoderUnavailable
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", ffmpegArgs(format)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	s := &Stream{
		cmd:    cmd,
		stdout: stdout,
		log:    log.With().Str("component", "transcode").Str("format", format).Logger(),
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if _, err := stdin.Write(data); err != nil {
			// Reader side closed early (short input, decode error); ffmpeg's
			// exit status tells the real story at Close.
			s.log.Debug().Err(err).Msg("short write to decoder")
		}
		stdin.Close()
	}()
	go func() {
		defer s.wg.Done()
		io.Copy(&s.stderr, stderr)
	}()

	return s, nil
}

// Read returns decoded PCM bytes.
func (s *Stream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Close reaps the decoder process. Safe to call more than once. A non-zero
// exit is logged, not returned: the PCM already read remains valid, and the
// stderr text is diagnostic rather than structured.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.stdout.Close()
		s.wg.Wait()
		err := s.cmd.Wait()
		if diag := strings.TrimSpace(s.stderr.String()); diag != "" {
			s.log.Debug().Msg(diag)
		}
		if err != nil {
			s.log.Warn().Err(err).Msg("ffmpeg exited with error")
		}
	})
	return nil
}
