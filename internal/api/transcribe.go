package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/snarg/stt-bridge/internal/backend"
	"github.com/snarg/stt-bridge/internal/transcode"
)

// Transcriber is the synchronous transcription surface exposed over HTTP.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, mimeType string) (string, error)
}

type TranscribeResponse struct {
	Text string `json:"text"`
}

// TranscribeHandler handles POST /api/v1/transcribe. It accepts either a
// multipart form with an "audio" file (plus optional "mime_type" field) or a
// raw audio body with a Content-Type header.
type TranscribeHandler struct {
	service     Transcriber
	maxUploadMB int64
	log         zerolog.Logger
}

func NewTranscribeHandler(service Transcriber, maxUploadMB int64, log zerolog.Logger) *TranscribeHandler {
	return &TranscribeHandler{
		service:     service,
		maxUploadMB: maxUploadMB,
		log:         log.With().Str("handler", "transcribe").Logger(),
	}
}

func (h *TranscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, mimeType, err := h.readAudio(w, r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) == 0 {
		WriteError(w, http.StatusBadRequest, "empty audio payload")
		return
	}

	text, err := h.service.Transcribe(r.Context(), data, mimeType)
	if err != nil {
		h.writeTranscribeError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, TranscribeResponse{Text: text})
}

func (h *TranscribeHandler) readAudio(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadMB<<20)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(ct, "multipart/") {
		if err := r.ParseMultipartForm(h.maxUploadMB << 20); err != nil {
			return nil, "", errors.New("invalid multipart form: " + err.Error())
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("audio")
		if err != nil {
			return nil, "", errors.New(`missing "audio" file field`)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", errors.New("failed to read audio file")
		}

		mimeType := r.FormValue("mime_type")
		if mimeType == "" {
			mimeType = header.Header.Get("Content-Type")
		}
		if mimeType == "" || mimeType == "application/octet-stream" {
			// Fall back to the filename extension.
			if ext := filepath.Ext(header.Filename); ext != "" {
				mimeType = mime.TypeByExtension(ext)
			}
		}
		return data, mimeType, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", errors.New("failed to read request body")
	}
	return data, r.Header.Get("Content-Type"), nil
}

func (h *TranscribeHandler) writeTranscribeError(w http.ResponseWriter, err error) {
	var unsupported *transcode.UnsupportedFormatError
	switch {
	case errors.As(err, &unsupported):
		WriteError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, backend.ErrNoBackend):
		WriteError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, transcode.ErrDecoderUnavailable):
		WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
