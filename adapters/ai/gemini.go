// Package ai adapts Google's Gemini API to the CommandInterpreter
// interface: free-form transcripts that the local pattern table cannot
// classify get one shot at model interpretation.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/voiceflowhq/collab/domain/repositories"
)

const (
	defaultModel          = "gemini-2.0-flash"
	defaultTimeoutSeconds = 10
)

// systemPrompt constrains the model to the command vocabulary. The
// dispatcher still validates the returned action, so a misbehaving model
// degrades to the pattern fallback instead of executing anything novel.
const systemPrompt = `You interpret spoken commands for a voice-controlled CMS.
Respond with a single JSON object and nothing else:
{"action": "<action>", "parameters": {...}}
Allowed actions: navigate, create-content, help, settings, calibrate-audio, search.
For navigate, set parameters.target to one of: lobby, blog-room, pages-wing, draft-corner, archive-basement.
For create-content, set parameters.type to blog or page.
For search, set parameters.query to the search terms.
If the transcript is not a command, respond with {"action": "none"}.`

// GeminiInterpreter implements CommandInterpreter using Google's Gemini API
type GeminiInterpreter struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// NewGeminiInterpreter creates a new Gemini interpreter instance
func NewGeminiInterpreter(logger *zap.Logger) (*GeminiInterpreter, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiInterpreter{
		client: client,
		logger: logger,
		model:  defaultModel,
	}, nil
}

// Interpret implements repositories.CommandInterpreter
func (g *GeminiInterpreter) Interpret(ctx context.Context, transcript string) (*repositories.CommandInterpretation, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(systemPrompt, genai.RoleUser),
		genai.NewContentFromText(transcript, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.1)),
		MaxOutputTokens:  256,
		ResponseMIMEType: "application/json",
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeoutSeconds*time.Second)
	defer cancel()

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}

		g.logger.Warn("Failed to generate interpretation, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < 2 {
			time.Sleep(time.Duration(attempt+1) * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to interpret transcript: %w", err)
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no interpretation generated")
	}

	var responseText string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			responseText += part.Text
		}
	}

	return parseInterpretation(responseText)
}

// parseInterpretation decodes the model's JSON reply. Code-fence
// wrappers are stripped because models add them despite instructions.
func parseInterpretation(text string) (*repositories.CommandInterpretation, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var interpretation repositories.CommandInterpretation
	if err := json.Unmarshal([]byte(text), &interpretation); err != nil {
		return nil, fmt.Errorf("malformed interpretation %q: %w", text, err)
	}
	if interpretation.Action == "" || interpretation.Action == "none" {
		return nil, nil
	}
	return &interpretation, nil
}
