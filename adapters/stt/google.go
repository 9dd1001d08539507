// Package stt adapts Google Cloud Speech-to-Text to the SpeechToText
// interface. Voice commands are short utterances, so this uses the
// synchronous Recognize API rather than a streaming session.
package stt

import (
	"context"
	"fmt"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/voiceflowhq/collab/domain/repositories"
)

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct{}

// NewGoogleSpeechToText creates the adapter. Credentials come from the
// ambient GOOGLE_APPLICATION_CREDENTIALS environment.
func NewGoogleSpeechToText() *GoogleSpeechToText {
	return &GoogleSpeechToText{}
}

// TranscribeAudio converts one utterance to text
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("no audio data received")
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create speech client: %w", err)
	}
	defer client.Close()

	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return "", err
	}

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: int32(config.SampleRate),
			LanguageCode:    config.Language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to recognize audio: %w", err)
	}

	// Take the best alternative of the first result
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			return result.Alternatives[0].Transcript, nil
		}
	}
	return "", fmt.Errorf("no speech detected in audio")
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
