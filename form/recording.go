package form

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbxark/intakeform/types"
	"github.com/tbxark/intakeform/voice"
)

const (
	VoiceFailedMessage      = "Voice recognition failed. Please try again."
	VoiceUnavailableMessage = "Failed to start voice recognition. Please check your microphone permissions."
)

// StartRecording begins a capture for key, replacing any capture already
// running for it, and returns the capture token. Without a capturer the key
// is only marked as recording.
func (e *Engine) StartRecording(ctx context.Context, key types.OptionKey) (string, error) {
	if e.frozen(key.BlockID, "record") {
		return "", fmt.Errorf("%w: %s", ErrTerminal, key.BlockID)
	}
	if _, ok := e.recording[key]; ok {
		e.StopRecording(key)
	}
	token := e.newToken()
	e.recording[key] = token
	if e.capturer == nil {
		return token, nil
	}
	if err := e.capturer.StartCapture(ctx, key, token); err != nil {
		delete(e.recording, key)
		e.reporter.ReportError(VoiceUnavailableMessage)
		return "", fmt.Errorf("failed to start capture for %s: %w", key, err)
	}
	e.logger.Debug("recording started", "key", key.String())
	return token, nil
}

// ToggleRecording stops an active capture for key or starts a new one. It
// reports whether key is recording afterwards.
func (e *Engine) ToggleRecording(ctx context.Context, key types.OptionKey) (bool, error) {
	if e.IsRecording(key) {
		e.StopRecording(key)
		return false, nil
	}
	if _, err := e.StartRecording(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

// StopRecording cancels the capture for key; its result, if it still
// arrives, is dropped.
func (e *Engine) StopRecording(key types.OptionKey) {
	if _, ok := e.recording[key]; !ok {
		return
	}
	delete(e.recording, key)
	if e.capturer != nil {
		e.capturer.StopCapture(key)
	}
	e.logger.Debug("recording stopped", "key", key.String())
}

func (e *Engine) IsRecording(key types.OptionKey) bool {
	_, ok := e.recording[key]
	return ok
}

// RecordingToken returns the token of key's active capture.
func (e *Engine) RecordingToken(key types.OptionKey) (string, bool) {
	token, ok := e.recording[key]
	return token, ok
}

// RecordingKeys lists the keys with an active capture.
func (e *Engine) RecordingKeys() []types.OptionKey {
	keys := make([]types.OptionKey, 0, len(e.recording))
	for k := range e.recording {
		keys = append(keys, k)
	}
	return keys
}

// StopAll cancels every active capture.
func (e *Engine) StopAll() {
	for key := range e.recording {
		e.StopRecording(key)
	}
}

func (e *Engine) stopBlockRecordings(blockID string) {
	for key := range e.recording {
		if key.BlockID == blockID {
			e.StopRecording(key)
		}
	}
}

// ApplyTranscript merges a capture result into the option's draft and
// opens its panel. The result is dropped unless it belongs to the key's
// current capture, the block is live and unsubmitted, and a question
// option is still selected. It reports whether the draft changed.
func (e *Engine) ApplyTranscript(t voice.Transcript) bool {
	token, ok := e.recording[t.Key]
	if !ok || token != t.Token {
		e.logger.Debug("dropping stale transcript", "key", t.Key.String())
		return false
	}
	delete(e.recording, t.Key)

	if t.Err != nil {
		if !errors.Is(t.Err, voice.ErrNoSpeech) {
			e.reporter.ReportError(VoiceFailedMessage)
		}
		return false
	}
	if _, live := e.index[t.Key.BlockID]; !live || e.submitted[t.Key.BlockID] {
		e.logger.Debug("dropping transcript for inactive block", "key", t.Key.String())
		return false
	}
	if t.Key.QuestionID != "" && !e.IsSelected(t.Key) {
		e.logger.Debug("dropping transcript for deselected option", "key", t.Key.String())
		return false
	}
	text := strings.TrimSpace(t.Text)
	if text == "" {
		return false
	}

	exp := e.expansions[t.Key]
	if exp.Text != "" {
		exp.Text = exp.Text + " " + text
	} else {
		exp.Text = text
	}
	exp.Expanded = true
	e.expansions[t.Key] = exp
	return true
}
