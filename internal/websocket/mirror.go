package websocket

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/voiceflowhq/collab/internal/presence"
)

// ContentNotifier receives content_updated events. The registry is never
// touched for these; content state lives outside the presence model.
type ContentNotifier func(msg *ContentUpdatedMessage)

// MirrorPresence binds the standard inbound message table of a client
// manager to a local registry replica: user_joined applies a join,
// user_left a leave, user_moved a location update, and
// voice_command_executed an activity record. Malformed payloads and
// stale updates are logged and dropped; they never tear the connection
// down.
func MirrorPresence(m *Manager, registry *presence.Registry, notify ContentNotifier, logger *zap.Logger) {
	m.OnMessage(MessageTypeUserJoined, func(payload []byte) {
		var msg UserJoinedMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Warn("Discarding malformed user_joined", zap.Error(err))
			return
		}
		if _, err := registry.Join(msg.UserID, msg.Name); err != nil {
			// A rejoin announcement for someone already mirrored is noise,
			// not an error worth surfacing.
			if !errors.Is(err, presence.ErrAlreadyJoined) {
				logger.Warn("Failed to mirror join",
					zap.String("userID", msg.UserID),
					zap.Error(err))
			}
		}
	})

	m.OnMessage(MessageTypeUserLeft, func(payload []byte) {
		var msg UserLeftMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Warn("Discarding malformed user_left", zap.Error(err))
			return
		}
		registry.Leave(msg.UserID)
	})

	m.OnMessage(MessageTypeUserMoved, func(payload []byte) {
		var msg UserMovedMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Warn("Discarding malformed user_moved", zap.Error(err))
			return
		}
		err := registry.UpdateLocation(msg.UserID, msg.Room, msg.Position.X, msg.Position.Y, msg.Position.Z)
		if err != nil {
			logger.Warn("Failed to mirror move",
				zap.String("userID", msg.UserID),
				zap.String("room", msg.Room),
				zap.Error(err))
		}
	})

	m.OnMessage(MessageTypeVoiceCommandExecuted, func(payload []byte) {
		var msg VoiceCommandExecutedMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Warn("Discarding malformed voice_command_executed", zap.Error(err))
			return
		}
		if err := registry.RecordCommand(msg.UserID, msg.Command); err != nil {
			logger.Warn("Failed to mirror command",
				zap.String("userID", msg.UserID),
				zap.Error(err))
		}
	})

	m.OnMessage(MessageTypeContentUpdated, func(payload []byte) {
		var msg ContentUpdatedMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Warn("Discarding malformed content_updated", zap.Error(err))
			return
		}
		if notify != nil {
			notify(&msg)
		}
	})
}
