package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tbxark/intakeform/dialogue"
	"github.com/tbxark/intakeform/form"
	"github.com/tbxark/intakeform/logger"
	"github.com/tbxark/intakeform/store"
	"github.com/tbxark/intakeform/voice"
)

const defaultQueueSize = 64

type options struct {
	capturer        func(threadID string) voice.Capturer
	cache           store.Cache[Snapshot]
	formOptions     []form.Option
	queueSize       int
	dispatchTimeout time.Duration
	log             *logger.Logger
}

type Option func(*options)

// WithCapturerFactory gives every session its own capturer. The session
// closes it when it closes.
func WithCapturerFactory(f func(threadID string) voice.Capturer) Option {
	return func(o *options) { o.capturer = f }
}

func WithSnapshotCache(c store.Cache[Snapshot]) Option {
	return func(o *options) { o.cache = c }
}

// WithFormOptions adds engine options, such as completion rules, to every
// turn.
func WithFormOptions(opts ...form.Option) Option {
	return func(o *options) { o.formOptions = append(o.formOptions, opts...) }
}

func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

func WithDispatchTimeout(d time.Duration) Option {
	return func(o *options) { o.dispatchTimeout = d }
}

func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = logger.OrNop(l) }
}

// Manager keeps one Session per thread.
type Manager struct {
	engine dialogue.Engine
	opts   options

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
	opening  singleflight.Group
}

func NewManager(engine dialogue.Engine, opts ...Option) *Manager {
	o := options{
		queueSize: defaultQueueSize,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cache == nil {
		o.cache = store.NewMemoryCache[Snapshot]()
	}
	if o.queueSize <= 0 {
		o.queueSize = defaultQueueSize
	}
	return &Manager{
		engine:   engine,
		opts:     o,
		sessions: make(map[string]*Session),
	}
}

// Open returns the live session of a thread, or creates one and restores
// its last snapshot. The bool reports whether the session has a turn.
func (m *Manager) Open(ctx context.Context, threadID string) (*Session, bool, error) {
	s, err := m.live(threadID)
	if err != nil {
		return nil, false, err
	}
	if s == nil {
		v, err, _ := m.opening.Do(threadID, func() (any, error) {
			return m.create(ctx, threadID)
		})
		if err != nil {
			return nil, false, err
		}
		s = v.(*Session)
	}
	hasTurn, err := s.HasTurn(ctx)
	if err != nil {
		return nil, false, err
	}
	return s, hasTurn, nil
}

func (m *Manager) live(threadID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.sessions[threadID], nil
}

// create builds a session and loads its snapshot outside the lock.
func (m *Manager) create(ctx context.Context, threadID string) (*Session, error) {
	if s, err := m.live(threadID); err != nil || s != nil {
		return s, err
	}

	var capturer voice.Capturer
	if m.opts.capturer != nil {
		capturer = m.opts.capturer(threadID)
	}
	s := newSession(threadID, m.engine, capturer, m.opts)

	snap, found, err := s.snapshots.Get(store.WithThread(ctx, threadID))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if found {
		if err := s.restore(ctx, snap); err != nil {
			s.Close()
			return nil, fmt.Errorf("restore snapshot: %w", err)
		}
		m.opts.log.Debug("session restored", "thread", threadID, "turn", snap.TurnID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		s.Close()
		return nil, ErrClosed
	}
	if existing, ok := m.sessions[threadID]; ok {
		s.Close()
		return existing, nil
	}
	m.sessions[threadID] = s
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(threadID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close stops the session of a thread. Its snapshot stays in the cache.
func (m *Manager) Close(threadID string) error {
	m.mu.Lock()
	s, ok := m.sessions[threadID]
	delete(m.sessions, threadID)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	return nil
}

func (m *Manager) Threads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Shutdown closes every session and rejects further Opens.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
