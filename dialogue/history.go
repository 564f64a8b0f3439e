package dialogue

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/intakeform/store"
)

type Trimmer interface {
	Trim(history []*schema.Message) []*schema.Message
}

// KeepSystemLastNTrimmer keeps all system messages and the last N others.
// When N <= 0 only system messages survive.
type KeepSystemLastNTrimmer struct {
	N int
}

func (t KeepSystemLastNTrimmer) Trim(history []*schema.Message) []*schema.Message {
	if len(history) == 0 {
		return history
	}
	others := 0
	for _, m := range history {
		if m != nil && m.Role != schema.System {
			others++
		}
	}
	drop := others - max(t.N, 0)
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		if m == nil {
			continue
		}
		if m.Role != schema.System && drop > 0 {
			drop--
			continue
		}
		out = append(out, m)
	}
	return out
}

// HistoryStore keeps one message history per thread.
type HistoryStore struct {
	store   store.Store[[]*schema.Message]
	trimmer Trimmer
}

func NewHistoryStore(core store.Cache[[]*schema.Message], trimmer Trimmer) *HistoryStore {
	return &HistoryStore{
		store:   store.New(core, "dialogue:history"),
		trimmer: trimmer,
	}
}

func NewMemoryHistoryStore(trimmer Trimmer) *HistoryStore {
	return NewHistoryStore(store.NewMemoryCache[[]*schema.Message](), trimmer)
}

func (s *HistoryStore) Load(ctx context.Context) ([]*schema.Message, error) {
	hist, ok, err := s.store.Get(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return hist, nil
}

func (s *HistoryStore) Clear(ctx context.Context) error {
	return s.store.Del(ctx)
}

// Append adds msgs, skipping a message identical to the one before it,
// trims and saves.
func (s *HistoryStore) Append(ctx context.Context, msgs ...*schema.Message) ([]*schema.Message, error) {
	hist, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if n := len(hist); n > 0 && hist[n-1].Role == msg.Role && hist[n-1].Content == msg.Content {
			continue
		}
		hist = append(hist, msg)
	}
	if s.trimmer != nil {
		hist = s.trimmer.Trim(hist)
	}
	if err := s.store.Set(ctx, hist); err != nil {
		return nil, err
	}
	return hist, nil
}
