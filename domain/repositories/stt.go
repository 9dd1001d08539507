package repositories

import "context"

// SpeechToText abstracts speech recognition services. The collaboration
// core only ever sees the resulting transcript string.
type SpeechToText interface {
	// TranscribeAudio converts audio data to text
	TranscribeAudio(ctx context.Context, audioData []byte, config AudioConfig) (string, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}
