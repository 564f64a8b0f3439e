// Package session owns the form engine of one conversation thread and
// serializes every action, dispatch and transcript on a single goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbxark/intakeform/block"
	"github.com/tbxark/intakeform/dialogue"
	"github.com/tbxark/intakeform/form"
	"github.com/tbxark/intakeform/logger"
	"github.com/tbxark/intakeform/store"
	"github.com/tbxark/intakeform/types"
	"github.com/tbxark/intakeform/voice"
)

var (
	ErrClosed    = errors.New("session closed")
	ErrNotFound  = errors.New("session not found")
	ErrNoTurn    = errors.New("session has no turn yet")
	ErrNoRelay   = errors.New("session does not accept external transcripts")
	ErrNoUpload  = errors.New("session does not accept audio uploads")
	ErrNoStarter = errors.New("dialogue engine cannot open a conversation")
)

// Snapshot is what a session persists after every action.
type Snapshot struct {
	ThreadID  string        `json:"threadId"`
	TurnID    string        `json:"turnId"`
	Raw       string        `json:"raw"`
	State     form.Snapshot `json:"state"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type event struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

type Session struct {
	id              string
	dialogue        dialogue.Engine
	capturer        voice.Capturer
	snapshots       store.Store[Snapshot]
	formOptions     []form.Option
	dispatchTimeout time.Duration
	log             *logger.Logger

	events    chan *event
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	// owned by the loop goroutine
	turnID  string
	raw     string
	result  block.Result
	engine  *form.Engine
	reports []string
}

func newSession(id string, engine dialogue.Engine, capturer voice.Capturer, o options) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:              id,
		dialogue:        engine,
		capturer:        capturer,
		snapshots:       store.New(o.cache, "session:snapshot"),
		formOptions:     o.formOptions,
		dispatchTimeout: o.dispatchTimeout,
		log:             o.log.With("thread", id),
		events:          make(chan *event, o.queueSize),
		ctx:             ctx,
		cancel:          cancel,
	}
	s.wg.Add(1)
	go s.loop()
	if capturer != nil {
		s.wg.Add(1)
		go s.pump(capturer.Transcripts())
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			ctx, cancel := context.WithCancel(ev.ctx)
			stop := context.AfterFunc(s.ctx, cancel)
			err := ev.fn(ctx)
			stop()
			cancel()
			if ev.done != nil {
				ev.done <- err
			}
		}
	}
}

// pump forwards capture results into the loop. A full queue drops the
// transcript, which the engine treats like any other stale result.
func (s *Session) pump(in <-chan voice.Transcript) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case t, ok := <-in:
			if !ok {
				return
			}
			ev := &event{ctx: store.WithThread(s.ctx, s.id), fn: func(ctx context.Context) error {
				return s.applyTranscript(ctx, t)
			}}
			select {
			case s.events <- ev:
			default:
				s.log.Warn("queue full, dropping transcript", "key", t.Key.String())
			}
		}
	}
}

// call runs fn on the loop and waits for its result.
func (s *Session) call(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case <-s.ctx.Done():
		return ErrClosed
	default:
	}
	ev := &event{ctx: store.WithThread(ctx, s.id), fn: fn, done: make(chan error, 1)}
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ev.done:
		return err
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start asks the dialogue engine for the opening turn.
func (s *Session) Start(ctx context.Context) (View, error) {
	var view View
	err := s.call(ctx, func(ctx context.Context) error {
		starter, ok := s.dialogue.(dialogue.Starter)
		if !ok {
			return ErrNoStarter
		}
		raw, err := starter.Start(ctx)
		if err != nil {
			return fmt.Errorf("start conversation: %w", err)
		}
		s.replaceTurn(raw, uuid.NewString())
		s.save(ctx)
		view = s.view()
		return nil
	})
	return view, err
}

// NewTurn replaces the rendered message. Results of captures started for the
// previous turn are dropped.
func (s *Session) NewTurn(ctx context.Context, raw string) (View, error) {
	var view View
	err := s.call(ctx, func(ctx context.Context) error {
		s.replaceTurn(raw, uuid.NewString())
		s.save(ctx)
		view = s.view()
		return nil
	})
	return view, err
}

// Do runs fn against the current engine on the loop.
func (s *Session) Do(ctx context.Context, fn func(ctx context.Context, e *form.Engine) error) (View, error) {
	var view View
	err := s.call(ctx, func(ctx context.Context) error {
		if s.engine == nil {
			return ErrNoTurn
		}
		fnErr := fn(ctx, s.engine)
		s.save(ctx)
		view = s.view()
		return fnErr
	})
	return view, err
}

// Submit continues a batch block and, when the dialogue engine replies,
// advances to the reply.
func (s *Session) Submit(ctx context.Context, blockID string) (View, error) {
	return s.dispatch(ctx, func(ctx context.Context, e *form.Engine) (string, error) {
		return e.Submit(ctx, blockID)
	})
}

// Choose sends a NextSteps selection and advances to the reply.
func (s *Session) Choose(ctx context.Context, blockID, optionID string) (View, error) {
	return s.dispatch(ctx, func(ctx context.Context, e *form.Engine) (string, error) {
		return e.Choose(ctx, blockID, optionID)
	})
}

func (s *Session) dispatch(ctx context.Context, send func(ctx context.Context, e *form.Engine) (string, error)) (View, error) {
	var view View
	err := s.call(ctx, func(ctx context.Context) error {
		if s.engine == nil {
			return ErrNoTurn
		}
		dctx := ctx
		if s.dispatchTimeout > 0 {
			var cancel context.CancelFunc
			dctx, cancel = context.WithTimeout(ctx, s.dispatchTimeout)
			defer cancel()
		}
		reply, err := send(dctx, s.engine)
		if err != nil {
			s.save(ctx)
			view = s.view()
			return err
		}
		s.replaceTurn(reply, uuid.NewString())
		s.save(ctx)
		view = s.view()
		return nil
	})
	return view, err
}

// View returns the render state and drains pending error reports.
func (s *Session) View(ctx context.Context) (View, error) {
	var view View
	err := s.call(ctx, func(ctx context.Context) error {
		view = s.view()
		return nil
	})
	return view, err
}

// HasTurn reports whether the session renders a message.
func (s *Session) HasTurn(ctx context.Context) (bool, error) {
	var ok bool
	err := s.call(ctx, func(ctx context.Context) error {
		ok = s.engine != nil
		return nil
	})
	return ok, err
}

// Deliver hands in a transcript recognized outside the process. It only
// works when the session's capturer is a relay.
func (s *Session) Deliver(ctx context.Context, t voice.Transcript) error {
	relay, ok := s.capturer.(interface {
		Deliver(ctx context.Context, t voice.Transcript) error
	})
	if !ok {
		return ErrNoRelay
	}
	return relay.Deliver(ctx, t)
}

// Upload hands in audio for an active capture when the session's capturer
// transcribes uploads.
func (s *Session) Upload(ctx context.Context, key types.OptionKey, audio []byte) error {
	up, ok := s.capturer.(interface {
		Upload(ctx context.Context, key types.OptionKey, audio []byte) error
	})
	if !ok {
		return ErrNoUpload
	}
	return up.Upload(ctx, key, audio)
}

// Close stops the loop, cancels captures and releases the capturer.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		if s.engine != nil {
			s.engine.StopAll()
		}
		if c, ok := s.capturer.(interface{ Close() }); ok {
			c.Close()
		}
		s.log.Debug("session closed")
	})
}

func (s *Session) restore(ctx context.Context, snap Snapshot) error {
	return s.call(ctx, func(ctx context.Context) error {
		s.replaceTurn(snap.Raw, snap.TurnID)
		s.engine.Restore(snap.State)
		return nil
	})
}

func (s *Session) replaceTurn(raw, turnID string) {
	if s.engine != nil {
		s.engine.StopAll()
	}
	s.raw = raw
	s.turnID = turnID
	s.result = block.Parse(raw)
	opts := []form.Option{
		form.WithReporter(form.ReporterFunc(func(msg string) {
			s.reports = append(s.reports, msg)
		})),
		form.WithDispatcher(s.dialogue),
		form.WithLogger(s.log),
	}
	if s.capturer != nil {
		opts = append(opts, form.WithCapturer(s.capturer))
	}
	opts = append(opts, s.formOptions...)
	s.engine = form.New(s.result.Blocks, opts...)
	s.log.Debug("turn replaced", "turn", turnID, "blocks", len(s.result.Blocks))
}

func (s *Session) applyTranscript(ctx context.Context, t voice.Transcript) error {
	if s.engine == nil {
		return nil
	}
	if s.engine.ApplyTranscript(t) {
		s.save(ctx)
	}
	return nil
}

func (s *Session) save(ctx context.Context) {
	if s.engine == nil {
		return
	}
	snap := Snapshot{
		ThreadID:  s.id,
		TurnID:    s.turnID,
		Raw:       s.raw,
		State:     s.engine.Snapshot(),
		UpdatedAt: time.Now(),
	}
	if err := s.snapshots.Set(ctx, snap); err != nil {
		s.log.Warn("failed to save snapshot", "error", err)
	}
}
