package store

import (
	"context"
	"errors"
)

var ErrNoThread = errors.New("no thread key in context")

type threadKeyContext struct{}

// WithThread routes store access in ctx to the given conversation thread.
func WithThread(ctx context.Context, threadID string) context.Context {
	return context.WithValue(ctx, threadKeyContext{}, threadID)
}

func ThreadFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(threadKeyContext{}).(string)
	return key, ok && key != ""
}

// Store is a namespaced view of a Cache keyed by the thread in the
// context.
type Store[S any] struct {
	core      Cache[S]
	namespace string
}

func New[S any](core Cache[S], namespace string) Store[S] {
	return Store[S]{core: core, namespace: namespace}
}

func (s Store[S]) key(ctx context.Context) (string, error) {
	thread, ok := ThreadFromContext(ctx)
	if !ok {
		return "", ErrNoThread
	}
	return s.namespace + ":" + thread, nil
}

func (s Store[S]) Set(ctx context.Context, val S) error {
	key, err := s.key(ctx)
	if err != nil {
		return err
	}
	return s.core.Set(ctx, key, val)
}

func (s Store[S]) Get(ctx context.Context) (S, bool, error) {
	key, err := s.key(ctx)
	if err != nil {
		var zero S
		return zero, false, err
	}
	return s.core.Get(ctx, key)
}

func (s Store[S]) Del(ctx context.Context) error {
	key, err := s.key(ctx)
	if err != nil {
		return err
	}
	return s.core.Del(ctx, key)
}

func (s Store[S]) Exists(ctx context.Context) (bool, error) {
	key, err := s.key(ctx)
	if err != nil {
		return false, err
	}
	return s.core.Exists(ctx, key)
}
