package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tbxark/intakeform/logger"
	"github.com/tbxark/intakeform/types"
)

var ErrNotRecording = errors.New("no capture is waiting for audio")

// FileSource reads a pre-recorded utterance named after the key, for
// example "round_1.topics.Sleep.wav" or "next.call.wav" for NextSteps
// options. A missing file counts as silence.
type FileSource struct {
	Dir string
	Ext string
}

func (s FileSource) Path(key types.OptionKey) string {
	parts := []string{key.BlockID}
	if key.QuestionID != "" {
		parts = append(parts, key.QuestionID)
	}
	parts = append(parts, key.OptionID)
	ext := s.Ext
	if ext == "" {
		ext = ".wav"
	}
	return filepath.Join(s.Dir, strings.Join(parts, ".")+ext)
}

func (s FileSource) Record(ctx context.Context, key types.OptionKey, _ string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	audio, err := os.ReadFile(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSpeech
	}
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}
	return audio, nil
}

// Uploads is an AudioSource fed by clients: Record waits until Put hands in
// audio for the same key. Each key has at most one slot, owned by the
// capture token that opened it.
type Uploads struct {
	mu      sync.Mutex
	waiting map[types.OptionKey]*uploadSlot
}

type uploadSlot struct {
	token string
	audio chan []byte
}

func NewUploads() *Uploads {
	return &Uploads{waiting: make(map[types.OptionKey]*uploadSlot)}
}

// Expect opens the slot for a capture ahead of Record, so an upload that
// races the capture goroutine is not refused. It replaces any older slot.
func (u *Uploads) Expect(key types.OptionKey, token string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.waiting[key] = &uploadSlot{token: token, audio: make(chan []byte, 1)}
}

func (u *Uploads) Record(ctx context.Context, key types.OptionKey, token string) ([]byte, error) {
	u.mu.Lock()
	slot, ok := u.waiting[key]
	switch {
	case !ok:
		slot = &uploadSlot{token: token, audio: make(chan []byte, 1)}
		u.waiting[key] = slot
	case slot.token != token:
		u.mu.Unlock()
		return nil, fmt.Errorf("%w: %s was restarted", ErrNotRecording, key)
	}
	u.mu.Unlock()
	defer func() {
		u.mu.Lock()
		if u.waiting[key] == slot {
			delete(u.waiting, key)
		}
		u.mu.Unlock()
	}()

	select {
	case audio := <-slot.audio:
		return audio, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put delivers audio to the capture recording key.
func (u *Uploads) Put(key types.OptionKey, audio []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	slot, ok := u.waiting[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRecording, key)
	}
	select {
	case slot.audio <- audio:
		return nil
	default:
		return fmt.Errorf("%w: %s already has audio", ErrNotRecording, key)
	}
}

// UploadCapturer transcribes audio that clients upload for their active
// captures.
type UploadCapturer struct {
	*SpeechCapturer
	uploads *Uploads
}

var _ Capturer = (*UploadCapturer)(nil)

func NewUploadCapturer(transcriber Transcriber, log *logger.Logger) *UploadCapturer {
	uploads := NewUploads()
	return &UploadCapturer{
		SpeechCapturer: NewSpeechCapturer(uploads, transcriber, log),
		uploads:        uploads,
	}
}

func (c *UploadCapturer) StartCapture(ctx context.Context, key types.OptionKey, token string) error {
	c.uploads.Expect(key, token)
	return c.SpeechCapturer.StartCapture(ctx, key, token)
}

func (c *UploadCapturer) Upload(ctx context.Context, key types.OptionKey, audio []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.uploads.Put(key, audio)
}
