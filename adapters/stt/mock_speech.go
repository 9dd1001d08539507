package stt

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/voiceflowhq/collab/domain/repositories"
)

// MockSpeechToText is a placeholder implementation for local development
// without Google Cloud credentials.
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{
		logger: logger,
	}
}

// TranscribeAudio implements repositories.SpeechToText
func (s *MockSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	s.logger.Info("Processing speech-to-text",
		zap.Int("audioSize", len(audioData)),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding))

	if len(audioData) == 0 {
		return "", fmt.Errorf("no audio data received")
	}

	// Mock transcription based on audio size
	switch {
	case len(audioData) > 10000:
		return "show me the latest blog drafts", nil
	case len(audioData) > 5000:
		return "create new blog post", nil
	case len(audioData) > 1000:
		return "navigate to blog room", nil
	default:
		return "help", nil
	}
}
