package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/voiceflowhq/collab/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types. The first group travels client-to-server, the
// second is fanned out by the hub.
const (
	MessageTypeVoiceStream          MessageType = "voice_stream"
	MessageTypeSpatialUpdate        MessageType = "spatial_update"
	MessageTypeVoiceCommand         MessageType = "voice_command"
	MessageTypeContentCollaboration MessageType = "content_collaboration"

	MessageTypeError                MessageType = "error"
	MessageTypeUserJoined           MessageType = "user_joined"
	MessageTypeUserLeft             MessageType = "user_left"
	MessageTypeUserMoved            MessageType = "user_moved"
	MessageTypeVoiceCommandExecuted MessageType = "voice_command_executed"
	MessageTypeContentUpdated       MessageType = "content_updated"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type        MessageType `json:"type" validate:"required"`
	UserID      string      `json:"user_id,omitempty"`
	WorkspaceID string      `json:"workspace_id,omitempty"`
	Timestamp   string      `json:"timestamp"`
}

// VoiceStreamMessage carries a base64 audio chunk for spatial relay
type VoiceStreamMessage struct {
	BaseMessage
	AudioData  string `json:"audio_data" validate:"required"` // base64 encoded
	SampleRate int    `json:"sample_rate,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
}

// SpatialUpdateMessage reports a participant's new room and position
type SpatialUpdateMessage struct {
	BaseMessage
	Room     string             `json:"room" validate:"required"`
	Position *entities.Position `json:"position" validate:"required"`
}

// VoiceCommandMessage carries a speech transcript for dispatch
type VoiceCommandMessage struct {
	BaseMessage
	Command string `json:"command" validate:"required"`
}

// ContentCollaborationMessage carries a content edit to relay
type ContentCollaborationMessage struct {
	BaseMessage
	ContentID string          `json:"content_id" validate:"required"`
	Operation string          `json:"operation,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// UserJoinedMessage announces a new participant to the workspace
type UserJoinedMessage struct {
	BaseMessage
	Name     string            `json:"name"`
	Room     string            `json:"room"`
	Position entities.Position `json:"position"`
}

// UserLeftMessage announces a departed participant
type UserLeftMessage struct {
	BaseMessage
}

// UserMovedMessage announces a participant's movement
type UserMovedMessage struct {
	BaseMessage
	Room     string            `json:"room"`
	Position entities.Position `json:"position"`
	Seq      uint64            `json:"seq"`
}

// VoiceCommandExecutedMessage reports a dispatched command's outcome
type VoiceCommandExecutedMessage struct {
	BaseMessage
	Command string            `json:"command"`
	Matched bool              `json:"matched"`
	Action  string            `json:"action,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
}

// ContentUpdatedMessage relays a content change to other participants
type ContentUpdatedMessage struct {
	BaseMessage
	ContentID string          `json:"content_id"`
	Operation string          `json:"operation,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ErrorMessage reports a rejected inbound message back to its sender
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses an inbound client message into its typed form.
// Only client-to-server types are accepted here; hub fan-out types on an
// inbound frame are a protocol violation.
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	// First parse as base message to get type
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeVoiceStream:
		var msg VoiceStreamMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid voice stream message: %w", err)
		}
		if msg.AudioData == "" {
			return nil, fmt.Errorf("audio_data is required")
		}
		stampMessage(&msg.BaseMessage)
		return &msg, nil

	case MessageTypeSpatialUpdate:
		var msg SpatialUpdateMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid spatial update message: %w", err)
		}
		if msg.Room == "" {
			return nil, fmt.Errorf("room is required")
		}
		if msg.Position == nil {
			return nil, fmt.Errorf("position is required")
		}
		stampMessage(&msg.BaseMessage)
		return &msg, nil

	case MessageTypeVoiceCommand:
		var msg VoiceCommandMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid voice command message: %w", err)
		}
		if msg.Command == "" {
			return nil, fmt.Errorf("command is required")
		}
		stampMessage(&msg.BaseMessage)
		return &msg, nil

	case MessageTypeContentCollaboration:
		var msg ContentCollaborationMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid content collaboration message: %w", err)
		}
		if msg.ContentID == "" {
			return nil, fmt.Errorf("content_id is required")
		}
		stampMessage(&msg.BaseMessage)
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// stampMessage fills in a receive-side timestamp when the client sent none.
func stampMessage(b *BaseMessage) {
	if b.Timestamp == "" {
		b.Timestamp = time.Now().Format(time.RFC3339)
	}
}

func baseMessage(msgType MessageType, userID, workspaceID string) BaseMessage {
	return BaseMessage{
		Type:        msgType,
		UserID:      userID,
		WorkspaceID: workspaceID,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeError,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Code:    code,
		Message: message,
	}
}

// CreateUserJoinedMessage builds the join announcement for a participant.
func CreateUserJoinedMessage(workspaceID string, p *entities.Participant) *UserJoinedMessage {
	return &UserJoinedMessage{
		BaseMessage: baseMessage(MessageTypeUserJoined, p.UserID, workspaceID),
		Name:        p.Name,
		Room:        p.Location.Room,
		Position:    p.Location.Position,
	}
}

// CreateUserLeftMessage builds the departure announcement.
func CreateUserLeftMessage(workspaceID, userID string) *UserLeftMessage {
	return &UserLeftMessage{
		BaseMessage: baseMessage(MessageTypeUserLeft, userID, workspaceID),
	}
}

// CreateUserMovedMessage builds the movement announcement.
func CreateUserMovedMessage(workspaceID string, p *entities.Participant) *UserMovedMessage {
	return &UserMovedMessage{
		BaseMessage: baseMessage(MessageTypeUserMoved, p.UserID, workspaceID),
		Room:        p.Location.Room,
		Position:    p.Location.Position,
		Seq:         p.Seq,
	}
}

// CreateVoiceCommandExecutedMessage reports a dispatch outcome to the room.
func CreateVoiceCommandExecutedMessage(workspaceID, userID, command string, matched bool, action string, params map[string]string) *VoiceCommandExecutedMessage {
	return &VoiceCommandExecutedMessage{
		BaseMessage: baseMessage(MessageTypeVoiceCommandExecuted, userID, workspaceID),
		Command:     command,
		Matched:     matched,
		Action:      action,
		Params:      params,
	}
}

// CreateContentUpdatedMessage relays a content edit.
func CreateContentUpdatedMessage(workspaceID, userID string, src *ContentCollaborationMessage) *ContentUpdatedMessage {
	return &ContentUpdatedMessage{
		BaseMessage: baseMessage(MessageTypeContentUpdated, userID, workspaceID),
		ContentID:   src.ContentID,
		Operation:   src.Operation,
		Payload:     src.Payload,
	}
}
