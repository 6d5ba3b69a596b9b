package ingest

// AudioMsg is the transcription request envelope published to .../audio.
type AudioMsg struct {
	ID          string `json:"id"`
	MimeType    string `json:"mime_type"`
	AudioBase64 string `json:"audio_base64"`
	// ReplyTopic overrides the configured transcript topic for this message.
	ReplyTopic string `json:"reply_topic,omitempty"`
}

// TranscriptMsg is the reply envelope published when transcription succeeds.
// Failed requests produce no reply, only logs.
type TranscriptMsg struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
