package form

import (
	"context"

	"github.com/google/uuid"

	"github.com/tbxark/intakeform/logger"
	"github.com/tbxark/intakeform/types"
	"github.com/tbxark/intakeform/voice"
)

// Reporter receives user-correctable validation messages.
type Reporter interface {
	ReportError(message string)
}

type ReporterFunc func(message string)

func (f ReporterFunc) ReportError(message string) { f(message) }

// Dispatcher forwards dispatch payloads to the dialogue engine and returns
// its reply text.
type Dispatcher interface {
	SubmitAnswers(ctx context.Context, sub types.BatchSubmission) (string, error)
	SelectOption(ctx context.Context, sel types.OptionSelection) (string, error)
}

// Rule is an extra completion check for one block kind, run after the
// required-answers check. A non-nil error makes the block incomplete and
// its message is what gets reported.
type Rule func(b types.Block, answers map[string]types.Answer) error

type Option func(*Engine)

func WithReporter(r Reporter) Option {
	return func(e *Engine) { e.reporter = r }
}

func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) { e.dispatcher = d }
}

func WithCapturer(c voice.Capturer) Option {
	return func(e *Engine) { e.capturer = c }
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.logger = logger.OrNop(l) }
}

func WithCompletionRule(kind types.Kind, rule Rule) Option {
	return func(e *Engine) { e.rules[kind] = append(e.rules[kind], rule) }
}

// WithTokenSource replaces the capture token generator.
func WithTokenSource(next func() string) Option {
	return func(e *Engine) { e.newToken = next }
}

func newToken() string {
	return uuid.NewString()
}
