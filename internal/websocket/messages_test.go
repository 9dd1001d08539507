package websocket

import (
	"testing"

	"github.com/voiceflowhq/collab/domain/entities"
)

func TestMessageValidator_ValidateMessage(t *testing.T) {
	validator := NewMessageValidator()

	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{
			name: "valid spatial update",
			message: `{
				"type": "spatial_update",
				"room": "blog-room",
				"position": {"x": 1.5, "y": 0, "z": -2}
			}`,
			wantErr: false,
		},
		{
			name: "spatial update missing room",
			message: `{
				"type": "spatial_update",
				"position": {"x": 1, "y": 0, "z": 0}
			}`,
			wantErr: true,
		},
		{
			name: "spatial update missing position",
			message: `{
				"type": "spatial_update",
				"room": "lobby"
			}`,
			wantErr: true,
		},
		{
			name: "valid voice command",
			message: `{
				"type": "voice_command",
				"command": "navigate to blog room"
			}`,
			wantErr: false,
		},
		{
			name:    "voice command missing command",
			message: `{"type": "voice_command"}`,
			wantErr: true,
		},
		{
			name: "valid content collaboration",
			message: `{
				"type": "content_collaboration",
				"content_id": "post-42",
				"operation": "insert",
				"payload": {"text": "hello"}
			}`,
			wantErr: false,
		},
		{
			name:    "content collaboration missing content_id",
			message: `{"type": "content_collaboration", "operation": "insert"}`,
			wantErr: true,
		},
		{
			name: "valid voice stream",
			message: `{
				"type": "voice_stream",
				"audio_data": "SGVsbG8gV29ybGQ=",
				"sample_rate": 48000
			}`,
			wantErr: false,
		},
		{
			name:    "voice stream missing audio",
			message: `{"type": "voice_stream"}`,
			wantErr: true,
		},
		{
			name:    "server-only type rejected inbound",
			message: `{"type": "user_moved", "room": "lobby"}`,
			wantErr: true,
		},
		{
			name:    "unknown type",
			message: `{"type": "teleport"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			message: `{not json}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.ValidateMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMessageTypes(t *testing.T) {
	validator := NewMessageValidator()

	result, err := validator.ValidateMessage([]byte(`{
		"type": "spatial_update",
		"user_id": "u-1",
		"room": "pages-wing",
		"position": {"x": 3, "y": 0, "z": 4}
	}`))
	if err != nil {
		t.Fatalf("ValidateMessage failed: %v", err)
	}

	msg, ok := result.(*SpatialUpdateMessage)
	if !ok {
		t.Fatalf("Expected *SpatialUpdateMessage, got %T", result)
	}
	if msg.Room != "pages-wing" {
		t.Errorf("Room = %q, want pages-wing", msg.Room)
	}
	if msg.Position.X != 3 || msg.Position.Z != 4 {
		t.Errorf("Position = %+v, want {3 0 4}", msg.Position)
	}
	if msg.Timestamp == "" {
		t.Error("Expected timestamp to be filled in")
	}
}

func TestValidateMessageKeepsClientTimestamp(t *testing.T) {
	validator := NewMessageValidator()

	result, err := validator.ValidateMessage([]byte(`{
		"type": "voice_command",
		"command": "read this aloud",
		"timestamp": "2026-01-02T03:04:05Z"
	}`))
	if err != nil {
		t.Fatalf("ValidateMessage failed: %v", err)
	}

	msg, ok := result.(*VoiceCommandMessage)
	if !ok {
		t.Fatalf("Expected *VoiceCommandMessage, got %T", result)
	}
	if msg.Timestamp != "2026-01-02T03:04:05Z" {
		t.Errorf("Timestamp = %q, want the client's value preserved", msg.Timestamp)
	}
}

func TestCreateUserMovedMessage(t *testing.T) {
	p := &entities.Participant{
		UserID: "u-1",
		Location: entities.Location{
			Room:     "lobby",
			Position: entities.Position{X: 1, Y: 0, Z: 2},
		},
		Seq: 7,
	}

	msg := CreateUserMovedMessage("ws-1", p)

	if msg.Type != MessageTypeUserMoved {
		t.Errorf("Type = %q, want user_moved", msg.Type)
	}
	if msg.UserID != "u-1" || msg.WorkspaceID != "ws-1" {
		t.Errorf("Identity fields wrong: %+v", msg.BaseMessage)
	}
	if msg.Seq != 7 {
		t.Errorf("Seq = %d, want 7", msg.Seq)
	}
}
