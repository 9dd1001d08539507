// Package tts adapts the Eleven Labs API to the AudioCueProvider
// interface: short spoken feedback cues ("Command not recognized",
// "Entering blog room") rendered at a position in the workspace.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voiceflowhq/collab/domain/entities"
	"github.com/voiceflowhq/collab/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM"   // Rachel voice
	defaultOutputFormat = "pcm_24000"              // PCM format for real-time applications
	defaultModelID      = "eleven_multilingual_v2" // Default model ID
	defaultStability    = 0.5                      // Default voice stability
	defaultClarity      = 0.75                     // Default voice clarity/similarity_boost
)

// AudioSink receives the synthesized cue audio together with the
// position it should be rendered at. The sink owns spatialization;
// this adapter only produces the samples.
type AudioSink func(position entities.Position, audio []byte) error

// ElevenLabsConfig holds configuration for the ElevenLabsCues adapter.
// APIKey is required; every other field has a default.
type ElevenLabsConfig struct {
	APIKey       string  // Required: Your Eleven Labs API key
	APIBaseURL   string  // Optional: The base URL for the Eleven Labs API
	VoiceID      string  // Optional: The voice ID to use
	ModelID      string  // Optional: The model ID to use
	OutputFormat string  // Optional: The output format
	Stability    float64 // Optional: Voice stability value between 0 and 1
	Clarity      float64 // Optional: Voice clarity/similarity boost value between 0 and 1
}

// ElevenLabsCues implements AudioCueProvider using the Eleven Labs API
type ElevenLabsCues struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	modelID      string
	outputFormat string
	stability    float64
	clarity      float64
	sink         AudioSink
	client       *http.Client
	logger       *zap.Logger
}

// Ensure ElevenLabsCues implements the AudioCueProvider interface
var _ repositories.AudioCueProvider = (*ElevenLabsCues)(nil)

// ElevenLabsVoiceSettings represents voice settings for Eleven Labs API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings ElevenLabsVoiceSettings `json:"voice_settings"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}

	// Validate stability is in the valid range
	if config.Stability != 0 && (config.Stability < 0 || config.Stability > 1) {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}

	// Validate clarity is in the valid range
	if config.Clarity != 0 && (config.Clarity < 0 || config.Clarity > 1) {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}

	return nil
}

// NewElevenLabsCues creates a new Eleven Labs cue provider. The sink
// receives every synthesized cue; a nil sink drops the audio, which
// keeps cue synthesis usable in headless tests.
func NewElevenLabsCues(config ElevenLabsConfig, sink AudioSink, logger *zap.Logger) (*ElevenLabsCues, error) {
	// Validate required configuration
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	// Apply defaults where needed
	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}

	voiceID := config.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
	}

	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
	}

	outputFormat := config.OutputFormat
	if outputFormat == "" {
		outputFormat = defaultOutputFormat
	}

	stability := config.Stability
	if stability == 0 {
		stability = defaultStability
	}

	clarity := config.Clarity
	if clarity == 0 {
		clarity = defaultClarity
	}

	return &ElevenLabsCues{
		apiKey:       config.APIKey,
		apiBaseURL:   apiBaseURL,
		voiceID:      voiceID,
		modelID:      modelID,
		outputFormat: outputFormat,
		stability:    stability,
		clarity:      clarity,
		sink:         sink,
		client:       &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}, nil
}

// Speak synthesizes a short spoken cue and hands it to the sink with the
// position it should appear to come from.
func (e *ElevenLabsCues) Speak(ctx context.Context, message string, position entities.Position) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("message cannot be empty")
	}

	e.logger.Info("Synthesizing audio cue",
		zap.String("message", message),
		zap.String("voiceID", e.voiceID))

	request := ElevenLabsRequest{
		Text:    message,
		ModelID: e.modelID,
		VoiceSettings: ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s&enable_logging=false",
		e.apiBaseURL, e.voiceID, e.outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	// Note: PCM format requires audio/pcm accept header
	acceptHeader := "audio/mpeg"
	if strings.HasPrefix(e.outputFormat, "pcm") {
		acceptHeader = "audio/pcm"
	}
	httpReq.Header.Set("Accept", acceptHeader)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("eleven labs API returned %d: %s", resp.StatusCode, string(errorBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read audio response: %w", err)
	}

	e.logger.Debug("Audio cue synthesized",
		zap.Int("bytes", len(audio)))

	if e.sink == nil {
		return nil
	}
	return e.sink(position, audio)
}

// SetVoiceSettings allows customization of voice parameters
func (e *ElevenLabsCues) SetVoiceSettings(stability, clarity float64) {
	e.stability = stability
	e.clarity = clarity
	e.logger.Info("Updated voice settings",
		zap.Float64("stability", stability),
		zap.Float64("clarity", clarity))
}

// SetVoiceID allows changing the voice used for cues
func (e *ElevenLabsCues) SetVoiceID(voiceID string) {
	e.voiceID = voiceID
	e.logger.Info("Updated voice ID", zap.String("voiceID", voiceID))
}

// NewElevenLabsConfigFromEnv creates a new ElevenLabsConfig from environment variables
func NewElevenLabsConfigFromEnv() ElevenLabsConfig {
	config := ElevenLabsConfig{
		APIKey:       os.Getenv("ELEVEN_LABS_API_KEY"),
		APIBaseURL:   os.Getenv("ELEVEN_LABS_API_BASE_URL"),
		VoiceID:      os.Getenv("ELEVEN_LABS_VOICE_ID"),
		ModelID:      os.Getenv("ELEVEN_LABS_MODEL_ID"),
		OutputFormat: os.Getenv("ELEVEN_LABS_OUTPUT_FORMAT"),
	}

	if stabilityStr := os.Getenv("ELEVEN_LABS_STABILITY"); stabilityStr != "" {
		if stability, err := strconv.ParseFloat(stabilityStr, 64); err == nil && stability >= 0 && stability <= 1 {
			config.Stability = stability
		}
	}

	if clarityStr := os.Getenv("ELEVEN_LABS_CLARITY"); clarityStr != "" {
		if clarity, err := strconv.ParseFloat(clarityStr, 64); err == nil && clarity >= 0 && clarity <= 1 {
			config.Clarity = clarity
		}
	}

	return config
}
