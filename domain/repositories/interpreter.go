package repositories

import "context"

// CommandInterpretation is a model-produced reading of a transcript.
// Action must name one of the dispatcher's known actions or the result
// is discarded in favor of local pattern matching.
type CommandInterpretation struct {
	Action     string            `json:"action"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// CommandInterpreter abstracts an AI service that maps free-form
// transcripts to actions. Implementations may fail or return nonsense;
// callers always keep a deterministic local fallback.
type CommandInterpreter interface {
	Interpret(ctx context.Context, transcript string) (*CommandInterpretation, error)
}
