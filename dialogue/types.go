// Package dialogue holds the dialogue engines a form session dispatches
// to. Every engine returns the raw text of the next turn, blocks included.
package dialogue

import (
	"context"

	"github.com/tbxark/intakeform/store"
	"github.com/tbxark/intakeform/types"
)

// DefaultThread is used when the context carries no thread.
const DefaultThread = "default"

type Engine interface {
	SubmitAnswers(ctx context.Context, sub types.BatchSubmission) (string, error)
	SelectOption(ctx context.Context, sel types.OptionSelection) (string, error)
}

// Starter produces the opening turn of a thread.
type Starter interface {
	Start(ctx context.Context) (string, error)
}

func withThread(ctx context.Context) context.Context {
	if _, ok := store.ThreadFromContext(ctx); ok {
		return ctx
	}
	return store.WithThread(ctx, DefaultThread)
}
