package transcode

import (
	"errors"
	"testing"
)

func TestFormatForMIME(t *testing.T) {
	tests := []struct {
		mime   string
		format string
	}{
		{"audio/ogg", "ogg"},
		{"audio/ogg;codecs=opus", "ogg"},
		{"audio/ogg; codecs=opus", "ogg"},
		{"audio/mpeg", "mp3"},
		{"audio/vnd.wav", "wav"},
		{"audio/mp4", "mp4"},
	}
	for _, tt := range tests {
		format, err := FormatForMIME(tt.mime)
		if err != nil {
			t.Errorf("FormatForMIME(%q): %v", tt.mime, err)
			continue
		}
		if format != tt.format {
			t.Errorf("FormatForMIME(%q) = %q, want %q", tt.mime, format, tt.format)
		}
	}
}

func TestFormatForMIMEUnsupported(t *testing.T) {
	for _, mime := range []string{"video/mp4", "audio/flac", "text/plain", ""} {
		_, err := FormatForMIME(mime)
		var unsupported *UnsupportedFormatError
		if !errors.As(err, &unsupported) {
			t.Errorf("FormatForMIME(%q) err = %v, want UnsupportedFormatError", mime, err)
			continue
		}
		if unsupported.MimeType != mime {
			t.Errorf("error mime = %q, want %q", unsupported.MimeType, mime)
		}
	}
}

func TestFFmpegArgs(t *testing.T) {
	args := ffmpegArgs("ogg")
	want := []string{"-f", "ogg", "-i", "-", "-ac", "1", "-c:a", "pcm_s16le", "-ar", "16000", "-f", "s16le", "-"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args = %v, want %v", args, want)
		}
	}
}
