package repositories

import (
	"context"

	"github.com/voiceflowhq/collab/domain/entities"
)

// AudioCueProvider abstracts a text-to-speech service that renders a
// spoken cue anchored at a spatial position. The core hands it a message
// and a position and expects nothing back.
type AudioCueProvider interface {
	Speak(ctx context.Context, message string, position entities.Position) error
}
