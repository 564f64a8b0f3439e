package dialogue

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/intakeform/block"
	"github.com/tbxark/intakeform/logger"
	"github.com/tbxark/intakeform/types"
)

// DefaultSystemPromptTemplate is formatted with the reply language and the
// JSON schema of a block body.
const DefaultSystemPromptTemplate = `You are a warm intake assistant. You guide the user through a short, multi-step intake conversation.

Every reply is one short paragraph of prose followed by zero or more interactive blocks. A block is written as
<BLOCK type="...">{json body}</BLOCK>
and its body must follow this JSON schema:
%s

Rules:
- Use deep_intake_round blocks for rounds of 2-4 choice questions, numbering rounds with roundNumber and totalRounds.
- Use collect_info for basic details such as name or age range; text questions may carry a placeholder.
- Use question_bundle for a set of single-choice questions that must all be answered.
- Use next_steps when the user should pick what happens next; give each option a short label.
- Never put more than one question in a single plain choice block.
- The user's answers arrive as a table keyed by question id; acknowledge them briefly before moving on.
- Reply in %s.
`

const (
	defaultLang    = "English"
	startMessage   = "# Start the intake conversation."
	defaultHistory = 24
)

type engineOptions struct {
	lang         string
	systemPrompt string
	template     string
	history      *HistoryStore
	log          *logger.Logger
}

type Option func(*engineOptions)

func WithLang(lang string) Option {
	return func(o *engineOptions) { o.lang = lang }
}

// WithSystemPrompt replaces the generated system prompt verbatim.
func WithSystemPrompt(prompt string) Option {
	return func(o *engineOptions) { o.systemPrompt = prompt }
}

// WithSystemPromptTemplate replaces the template. It receives the block
// schema and the language, in that order.
func WithSystemPromptTemplate(tpl string) Option {
	return func(o *engineOptions) { o.template = tpl }
}

func WithHistory(h *HistoryStore) Option {
	return func(o *engineOptions) { o.history = h }
}

func WithLogger(l *logger.Logger) Option {
	return func(o *engineOptions) { o.log = logger.OrNop(l) }
}

func newEngineOptions(opts []Option) engineOptions {
	o := engineOptions{
		lang:     defaultLang,
		template: DefaultSystemPromptTemplate,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.lang == "" {
		o.lang = defaultLang
	}
	if o.history == nil {
		o.history = NewMemoryHistoryStore(KeepSystemLastNTrimmer{N: defaultHistory})
	}
	return o
}

func (o engineOptions) buildSystemPrompt() (string, error) {
	if o.systemPrompt != "" {
		return o.systemPrompt, nil
	}
	if !strings.Contains(o.template, "%s") {
		return o.template, nil
	}
	payloadSchema, err := block.PayloadSchema()
	if err != nil {
		return "", fmt.Errorf("build block schema: %w", err)
	}
	return fmt.Sprintf(o.template, payloadSchema, o.lang), nil
}

func submissionMessage(sub types.BatchSubmission) *schema.Message {
	return schema.UserMessage(types.FormatSubmission(sub))
}

func selectionMessage(sel types.OptionSelection) *schema.Message {
	return schema.UserMessage(types.FormatSelection(sel))
}
