package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/voiceflowhq/collab/domain/entities"
)

func TestNewElevenLabsCues(t *testing.T) {
	logger := zaptest.NewLogger(t)

	// Test without API key
	os.Unsetenv("ELEVEN_LABS_API_KEY")
	config := NewElevenLabsConfigFromEnv()
	_, err := NewElevenLabsCues(config, nil, logger)
	if err == nil {
		t.Error("Expected error when API key is not set")
	}

	// Test with API key
	os.Setenv("ELEVEN_LABS_API_KEY", "test-api-key")
	defer os.Unsetenv("ELEVEN_LABS_API_KEY")

	config = NewElevenLabsConfigFromEnv()
	cues, err := NewElevenLabsCues(config, nil, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsCues: %v", err)
	}

	if cues.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", cues.apiKey)
	}

	if cues.voiceID != defaultVoiceID {
		t.Errorf("Expected default voice ID '%s', got '%s'", defaultVoiceID, cues.voiceID)
	}
}

func TestElevenLabsCues_SetVoiceSettings(t *testing.T) {
	logger := zaptest.NewLogger(t)

	cues, err := NewElevenLabsCues(ElevenLabsConfig{APIKey: "test-api-key"}, nil, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsCues: %v", err)
	}

	cues.SetVoiceSettings(0.8, 0.9)

	if cues.stability != 0.8 {
		t.Errorf("Expected stability 0.8, got %f", cues.stability)
	}

	if cues.clarity != 0.9 {
		t.Errorf("Expected clarity 0.9, got %f", cues.clarity)
	}

	cues.SetVoiceID("new-voice-id")
	if cues.voiceID != "new-voice-id" {
		t.Errorf("Expected voice ID 'new-voice-id', got '%s'", cues.voiceID)
	}
}

func TestElevenLabsCues_SpeakEmptyMessage(t *testing.T) {
	logger := zaptest.NewLogger(t)

	cues, err := NewElevenLabsCues(ElevenLabsConfig{APIKey: "test-api-key"}, nil, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsCues: %v", err)
	}

	ctx := context.Background()
	if err := cues.Speak(ctx, "", entities.Position{}); err == nil {
		t.Error("Expected error for empty message")
	}
	if err := cues.Speak(ctx, "   ", entities.Position{}); err == nil {
		t.Error("Expected error for whitespace-only message")
	}
}

func TestElevenLabsCues_SpeakDeliversToSink(t *testing.T) {
	logger := zaptest.NewLogger(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-api-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("fake-pcm-audio"))
	}))
	defer server.Close()

	var gotAudio []byte
	var gotPosition entities.Position
	sink := func(position entities.Position, audio []byte) error {
		gotPosition = position
		gotAudio = audio
		return nil
	}

	cues, err := NewElevenLabsCues(ElevenLabsConfig{
		APIKey:     "test-api-key",
		APIBaseURL: server.URL,
	}, sink, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsCues: %v", err)
	}

	position := entities.Position{X: 1, Y: 0, Z: -2}
	if err := cues.Speak(context.Background(), "Command not recognized", position); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	if string(gotAudio) != "fake-pcm-audio" {
		t.Errorf("Sink received %q, want fake-pcm-audio", gotAudio)
	}
	if gotPosition != position {
		t.Errorf("Sink position = %+v, want %+v", gotPosition, position)
	}
}

func TestElevenLabsCues_SpeakAPIError(t *testing.T) {
	logger := zaptest.NewLogger(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail": "quota exceeded"}`))
	}))
	defer server.Close()

	cues, err := NewElevenLabsCues(ElevenLabsConfig{
		APIKey:     "test-api-key",
		APIBaseURL: server.URL,
	}, nil, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsCues: %v", err)
	}

	if err := cues.Speak(context.Background(), "hello", entities.Position{}); err == nil {
		t.Error("Expected error from API failure")
	}
}
