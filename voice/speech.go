package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tbxark/intakeform/logger"
	"github.com/tbxark/intakeform/types"
)

var ErrClosed = errors.New("capturer closed")

// AudioSource records one utterance for the capture identified by key and
// token. Record returns when the utterance ends or ctx is cancelled.
type AudioSource interface {
	Record(ctx context.Context, key types.OptionKey, token string) ([]byte, error)
}

type AudioSourceFunc func(ctx context.Context, key types.OptionKey, token string) ([]byte, error)

func (f AudioSourceFunc) Record(ctx context.Context, key types.OptionKey, token string) ([]byte, error) {
	return f(ctx, key, token)
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type TranscriberFunc func(ctx context.Context, audio []byte) (string, error)

func (f TranscriberFunc) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return f(ctx, audio)
}

type capture struct {
	token  string
	cancel context.CancelFunc
}

// SpeechCapturer records with an AudioSource and transcribes with a
// Transcriber, one goroutine per active capture.
type SpeechCapturer struct {
	source      AudioSource
	transcriber Transcriber
	logger      *logger.Logger
	out         chan Transcript

	mu     sync.Mutex
	active map[types.OptionKey]*capture
	closed bool
	wg     sync.WaitGroup
}

var _ Capturer = (*SpeechCapturer)(nil)

func NewSpeechCapturer(source AudioSource, transcriber Transcriber, log *logger.Logger) *SpeechCapturer {
	return &SpeechCapturer{
		source:      source,
		transcriber: transcriber,
		logger:      logger.OrNop(log).With("component", "voice.SpeechCapturer"),
		out:         make(chan Transcript, 16),
		active:      make(map[types.OptionKey]*capture),
	}
}

func (c *SpeechCapturer) Transcripts() <-chan Transcript {
	return c.out
}

// StartCapture runs in the background; ctx only contributes its values, the
// capture lives until it finishes, is stopped, or is replaced.
func (c *SpeechCapturer) StartCapture(ctx context.Context, key types.OptionKey, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if prev, ok := c.active[key]; ok {
		prev.cancel()
	}
	cctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.active[key] = &capture{token: token, cancel: cancel}
	c.wg.Add(1)
	go c.run(cctx, key, token)
	c.logger.Debug("capture started", "key", key.String())
	return nil
}

func (c *SpeechCapturer) StopCapture(key types.OptionKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.active[key]; ok {
		cur.cancel()
		delete(c.active, key)
		c.logger.Debug("capture stopped", "key", key.String())
	}
}

// Close stops every capture, waits for them and closes the transcript
// channel.
func (c *SpeechCapturer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for key, cur := range c.active {
		cur.cancel()
		delete(c.active, key)
	}
	c.mu.Unlock()
	c.wg.Wait()
	close(c.out)
}

func (c *SpeechCapturer) run(ctx context.Context, key types.OptionKey, token string) {
	defer c.wg.Done()
	defer c.finish(key, token)

	text, err := c.transcribe(ctx, key, token)
	if ctx.Err() != nil {
		// stopped or replaced
		return
	}
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrNoSpeech
	}
	if err != nil && !errors.Is(err, ErrNoSpeech) {
		c.logger.Warn("capture failed", "key", key.String(), "error", err)
	}
	select {
	case c.out <- Transcript{Key: key, Token: token, Text: strings.TrimSpace(text), Err: err}:
	case <-ctx.Done():
	}
}

func (c *SpeechCapturer) transcribe(ctx context.Context, key types.OptionKey, token string) (string, error) {
	audio, err := c.source.Record(ctx, key, token)
	if err != nil {
		return "", fmt.Errorf("record audio: %w", err)
	}
	if len(audio) == 0 {
		return "", ErrNoSpeech
	}
	text, err := c.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return text, nil
}

func (c *SpeechCapturer) finish(key types.OptionKey, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.active[key]; ok && cur.token == token {
		cur.cancel()
		delete(c.active, key)
	}
}

// Relay is a Capturer for clients that recognize speech themselves, such
// as a browser: captures are bookkeeping only and results are handed in
// through Deliver.
type Relay struct {
	out     chan Transcript
	done    chan struct{}
	sending sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

var _ Capturer = (*Relay)(nil)

func NewRelay() *Relay {
	return &Relay{out: make(chan Transcript, 16), done: make(chan struct{})}
}

func (r *Relay) StartCapture(ctx context.Context, key types.OptionKey, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}

func (r *Relay) StopCapture(types.OptionKey) {}

func (r *Relay) Transcripts() <-chan Transcript {
	return r.out
}

// Deliver publishes a transcript produced outside the process. It blocks
// while the transcript queue is full, until ctx ends or the relay closes.
func (r *Relay) Deliver(ctx context.Context, t Transcript) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.sending.Add(1)
	r.mu.Unlock()
	defer r.sending.Done()

	select {
	case r.out <- t:
		return nil
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Relay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()
	r.sending.Wait()
	close(r.out)
}
