// Package voice is the asynchronous boundary to speech transcription.
//
// A capture is started for an option key with a token; its outcome comes
// back later as a Transcript on the capturer's channel carrying the same key
// and token. Consumers decide whether the result is still wanted.
package voice

import (
	"context"
	"errors"

	"github.com/tbxark/intakeform/types"
)

// ErrNoSpeech marks a capture that finished without recognizable speech.
var ErrNoSpeech = errors.New("no speech detected")

// Transcript is the outcome of one capture.
type Transcript struct {
	Key   types.OptionKey `json:"key"`
	Token string          `json:"token"`
	Text  string          `json:"text"`
	Err   error           `json:"-"`
}

// Capturer starts and stops captures. At most one capture runs per key:
// starting a key that is already capturing replaces the earlier capture.
type Capturer interface {
	StartCapture(ctx context.Context, key types.OptionKey, token string) error
	StopCapture(key types.OptionKey)
	Transcripts() <-chan Transcript
}
