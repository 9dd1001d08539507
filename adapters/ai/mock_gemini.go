package ai

import (
	"context"
	"strings"

	"github.com/voiceflowhq/collab/domain/repositories"
)

// MockInterpreter is a placeholder interpreter for local development
// without a Gemini API key.
type MockInterpreter struct{}

// NewMockInterpreter creates a new mock interpreter
func NewMockInterpreter() repositories.CommandInterpreter {
	return &MockInterpreter{}
}

// Interpret implements repositories.CommandInterpreter with a few
// canned phrasings the pattern table would miss.
func (m *MockInterpreter) Interpret(ctx context.Context, transcript string) (*repositories.CommandInterpretation, error) {
	lower := strings.ToLower(transcript)

	switch {
	case strings.Contains(lower, "take me") && strings.Contains(lower, "blog"):
		return &repositories.CommandInterpretation{
			Action:     "navigate",
			Parameters: map[string]string{"target": "blog-room"},
		}, nil
	case strings.Contains(lower, "pull up") || strings.Contains(lower, "look for"):
		return &repositories.CommandInterpretation{
			Action:     "search",
			Parameters: map[string]string{"query": lower},
		}, nil
	default:
		return nil, nil
	}
}
