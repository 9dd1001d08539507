package ai

import (
	"context"
	"testing"
)

func TestParseInterpretation(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantAction string
		wantNil    bool
		wantErr    bool
	}{
		{
			name:       "plain json",
			text:       `{"action": "navigate", "parameters": {"target": "blog-room"}}`,
			wantAction: "navigate",
		},
		{
			name:       "code fenced",
			text:       "```json\n{\"action\": \"search\", \"parameters\": {\"query\": \"drafts\"}}\n```",
			wantAction: "search",
		},
		{
			name:    "not a command",
			text:    `{"action": "none"}`,
			wantNil: true,
		},
		{
			name:    "empty action",
			text:    `{"action": ""}`,
			wantNil: true,
		},
		{
			name:    "malformed",
			text:    "sorry, I cannot help with that",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseInterpretation(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseInterpretation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.wantNil {
				if got != nil {
					t.Fatalf("Expected nil interpretation, got %+v", got)
				}
				return
			}
			if got == nil || got.Action != tt.wantAction {
				t.Errorf("Action = %+v, want %s", got, tt.wantAction)
			}
		})
	}
}

func TestMockInterpreter(t *testing.T) {
	m := NewMockInterpreter()

	got, err := m.Interpret(context.Background(), "take me to the blog please")
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if got == nil || got.Action != "navigate" || got.Parameters["target"] != "blog-room" {
		t.Errorf("Interpretation = %+v, want navigate/blog-room", got)
	}

	got, err = m.Interpret(context.Background(), "what a lovely day")
	if err != nil || got != nil {
		t.Errorf("Expected nil interpretation for non-command, got %+v, %v", got, err)
	}
}
