package dialogue

import (
	"context"
	"errors"
	"fmt"

	"github.com/tbxark/intakeform/logger"
	"github.com/tbxark/intakeform/types"
)

var ErrNoEngine = errors.New("no dialogue engine configured")

// Failback tries each engine in order and returns the first success.
type Failback struct {
	engines []Engine
	log     *logger.Logger
}

func NewFailback(log *logger.Logger, engines ...Engine) *Failback {
	return &Failback{engines: engines, log: logger.OrNop(log)}
}

func (f *Failback) Start(ctx context.Context) (string, error) {
	return try(f, func(e Engine) (string, error) {
		s, ok := e.(Starter)
		if !ok {
			return "", fmt.Errorf("%T cannot start a conversation", e)
		}
		return s.Start(ctx)
	})
}

func (f *Failback) SubmitAnswers(ctx context.Context, sub types.BatchSubmission) (string, error) {
	return try(f, func(e Engine) (string, error) {
		return e.SubmitAnswers(ctx, sub)
	})
}

func (f *Failback) SelectOption(ctx context.Context, sel types.OptionSelection) (string, error) {
	return try(f, func(e Engine) (string, error) {
		return e.SelectOption(ctx, sel)
	})
}

func try(f *Failback, call func(Engine) (string, error)) (string, error) {
	if len(f.engines) == 0 {
		return "", ErrNoEngine
	}
	var lastErr error
	for i, e := range f.engines {
		reply, err := call(e)
		if err == nil {
			return reply, nil
		}
		f.log.Warn("dialogue engine failed", "index", i, "engine", fmt.Sprintf("%T", e), "error", err)
		lastErr = err
	}
	return "", fmt.Errorf("all dialogue engines failed: %w", lastErr)
}
