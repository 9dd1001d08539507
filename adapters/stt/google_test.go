package stt_test

import (
	"github.com/voiceflowhq/collab/adapters/stt"
	"github.com/voiceflowhq/collab/domain/repositories"
)

var _ repositories.SpeechToText = &stt.GoogleSpeechToText{}
