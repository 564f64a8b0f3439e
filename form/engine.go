// Package form holds the answer, expansion and recording state of the
// blocks rendered for one turn, and dispatches completed blocks.
//
// An Engine is not safe for concurrent use; its owner serializes access.
package form

import (
	"errors"
	"strings"

	"github.com/tbxark/intakeform/logger"
	"github.com/tbxark/intakeform/types"
	"github.com/tbxark/intakeform/voice"
)

const IncompleteMessage = "Please answer all required questions"

var (
	ErrIncomplete   = errors.New("required questions are unanswered")
	ErrWrongMode    = errors.New("block does not support this dispatch")
	ErrUnknownBlock = errors.New("unknown block")
	ErrTerminal     = errors.New("block already submitted")
	ErrNoDispatcher = errors.New("no dispatcher configured")
)

type Engine struct {
	blocks     []types.Block
	index      map[string]types.Block
	answers    map[types.AnswerKey]types.Answer
	expansions map[types.OptionKey]types.Expansion
	recording  map[types.OptionKey]string
	submitted  map[string]bool
	chosen     map[string][]string

	rules      map[types.Kind][]Rule
	reporter   Reporter
	dispatcher Dispatcher
	capturer   voice.Capturer
	logger     *logger.Logger
	newToken   func() string
}

func New(blocks []types.Block, opts ...Option) *Engine {
	e := &Engine{
		blocks:     blocks,
		index:      make(map[string]types.Block, len(blocks)),
		answers:    make(map[types.AnswerKey]types.Answer),
		expansions: make(map[types.OptionKey]types.Expansion),
		recording:  make(map[types.OptionKey]string),
		submitted:  make(map[string]bool),
		chosen:     make(map[string][]string),
		rules:      make(map[types.Kind][]Rule),
		reporter:   ReporterFunc(func(string) {}),
		logger:     logger.Nop(),
		newToken:   newToken,
	}
	for _, b := range blocks {
		if _, ok := e.index[b.BlockID()]; !ok {
			e.index[b.BlockID()] = b
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Blocks() []types.Block {
	return e.blocks
}

func (e *Engine) Block(blockID string) (types.Block, bool) {
	b, ok := e.index[blockID]
	return b, ok
}

// frozen reports whether blockID names a submitted block.
func (e *Engine) frozen(blockID, op string) bool {
	if e.submitted[blockID] {
		e.logger.Debug("ignoring mutation of submitted block", "block", blockID, "op", op)
		return true
	}
	return false
}

// SelectSingle stores optionID as the answer, replacing any previous one.
func (e *Engine) SelectSingle(blockID, questionID, optionID string) {
	if e.frozen(blockID, "select") {
		return
	}
	e.answers[types.NewAnswerKey(blockID, questionID)] = types.TextAnswer(optionID)
}

// ToggleMultiple removes optionID from the answer list or appends it.
func (e *Engine) ToggleMultiple(blockID, questionID, optionID string) {
	if e.frozen(blockID, "toggle") {
		return
	}
	key := types.NewAnswerKey(blockID, questionID)
	e.answers[key] = e.answers[key].Toggle(optionID)
}

// SetText stores value verbatim. An empty value is kept as an explicit
// answer.
func (e *Engine) SetText(blockID, questionID, value string) {
	if e.frozen(blockID, "text") {
		return
	}
	e.answers[types.NewAnswerKey(blockID, questionID)] = types.TextAnswer(value)
}

// ToggleExpansion opens or closes the elaboration panel of an option. The
// draft is kept either way.
func (e *Engine) ToggleExpansion(key types.OptionKey) {
	if e.frozen(key.BlockID, "expand") {
		return
	}
	exp := e.expansions[key]
	exp.Expanded = !exp.Expanded
	e.expansions[key] = exp
}

func (e *Engine) SetExpansionText(key types.OptionKey, text string) {
	if e.frozen(key.BlockID, "draft") {
		return
	}
	exp := e.expansions[key]
	exp.Text = text
	e.expansions[key] = exp
}

func (e *Engine) Answer(blockID, questionID string) (types.Answer, bool) {
	a, ok := e.answers[types.NewAnswerKey(blockID, questionID)]
	return a, ok
}

func (e *Engine) Expansion(key types.OptionKey) types.Expansion {
	return e.expansions[key]
}

// IsSelected reports whether a question option is part of its question's
// answer. NextSteps options have no selection state.
func (e *Engine) IsSelected(key types.OptionKey) bool {
	if key.QuestionID == "" {
		return false
	}
	a, ok := e.answers[key.Answer()]
	return ok && a.Contains(key.OptionID)
}

// IsBlockComplete reports whether every required question has a non-empty
// answer and the block's completion rules pass. Blocks without questions
// are complete.
func (e *Engine) IsBlockComplete(b types.Block) bool {
	return e.check(b) == nil
}

func (e *Engine) check(b types.Block) error {
	if len(e.MissingRequired(b)) > 0 {
		return ErrIncomplete
	}
	rules := e.rules[b.Kind()]
	if len(rules) == 0 {
		return nil
	}
	answers := e.BuildSubmission(b)
	for _, rule := range rules {
		if err := rule(b, answers); err != nil {
			return err
		}
	}
	return nil
}

// MissingRequired lists the required questions without a usable answer.
func (e *Engine) MissingRequired(b types.Block) []types.FieldInfo {
	var missing []types.FieldInfo
	for _, q := range types.QuestionsOf(b) {
		if !q.Required {
			continue
		}
		key := types.NewAnswerKey(b.BlockID(), q.ID)
		if a, ok := e.answers[key]; ok && !a.Empty() {
			continue
		}
		missing = append(missing, types.FieldInfo{
			Key:         key,
			DisplayName: q.Label,
			Description: questionHint(q),
			Required:    true,
		})
	}
	return missing
}

func questionHint(q types.Question) string {
	switch q.Type {
	case types.Text:
		if q.Placeholder != "" {
			return q.Placeholder
		}
		return "free text"
	case types.MultipleChoice:
		return "pick one or more"
	default:
		return "pick one"
	}
}

// BuildSubmission projects the answered questions of b into a payload keyed
// by question id.
func (e *Engine) BuildSubmission(b types.Block) map[string]types.Answer {
	out := make(map[string]types.Answer)
	_, bundle := b.(*types.QuestionBundle)
	for _, q := range types.QuestionsOf(b) {
		a, ok := e.answers[types.NewAnswerKey(b.BlockID(), q.ID)]
		if !ok {
			continue
		}
		if bundle && a.IsList() {
			a = types.TextAnswer(a.First())
		}
		out[q.ID] = a
	}
	return out
}

// Phase reports the dispatch state of a block, or "" for unknown ids.
func (e *Engine) Phase(blockID string) types.Phase {
	b, ok := e.index[blockID]
	if !ok {
		return ""
	}
	switch types.ModeOf(b) {
	case types.ModeImmediateSelect:
		if len(e.chosen[blockID]) > 0 {
			return types.PhaseSelected
		}
		return types.PhaseIdle
	default:
		if e.submitted[blockID] {
			return types.PhaseSubmitted
		}
		if e.IsBlockComplete(b) {
			return types.PhaseReady
		}
		return types.PhaseEditing
	}
}

// Chosen lists the NextSteps options dispatched so far, in click order.
func (e *Engine) Chosen(blockID string) []string {
	return append([]string(nil), e.chosen[blockID]...)
}

func (e *Engine) elaboration(key types.OptionKey) string {
	exp, ok := e.expansions[key]
	if !ok || !exp.Expanded {
		return ""
	}
	if strings.TrimSpace(exp.Text) == "" {
		return ""
	}
	return exp.Text
}
