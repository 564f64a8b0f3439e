package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tbxark/intakeform/types"
)

// LocalParser understands the indexed console grammar plus a few keyword
// aliases.
type LocalParser struct {
	QuitKeywords   []string
	SubmitKeywords []string
	HelpKeywords   []string
	ShowKeywords   []string
}

func NewLocalParser() *LocalParser {
	return &LocalParser{
		QuitKeywords:   []string{"quit", "exit", "bye", "cancel", "q"},
		SubmitKeywords: []string{"submit", "continue", "done", "next", "ok"},
		HelpKeywords:   []string{"help", "?", "h"},
		ShowKeywords:   []string{"show", "ls", "list"},
	}
}

func (p *LocalParser) ParseCommand(ctx context.Context, input string, blocks []types.Block) (Command, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Command{Verb: None}, nil
	}
	head := strings.ToLower(fields[0])
	args := fields[1:]

	switch {
	case len(args) == 0 && contains(p.QuitKeywords, head):
		return Command{Verb: Quit}, nil
	case len(args) == 0 && contains(p.HelpKeywords, head):
		return Command{Verb: Help}, nil
	case len(args) == 0 && contains(p.ShowKeywords, head):
		return Command{Verb: Show}, nil
	case len(args) == 0 && contains(p.SubmitKeywords, head):
		for _, b := range blocks {
			if b.Kind() != types.KindNextSteps {
				return Command{Verb: Submit, BlockID: b.BlockID()}, nil
			}
		}
		return Command{}, fmt.Errorf("%w: nothing to submit", ErrUsage)
	}

	r := resolver{blocks: blocks, args: args}
	switch Verb(head) {
	case Pick, Toggle:
		return r.questionOption(Verb(head))
	case Text:
		b, q, err := r.question()
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: Text, BlockID: b.BlockID(), QuestionID: q.ID, Text: r.rest()}, nil
	case Expand, Record:
		return r.anyOption(Verb(head))
	case Note:
		cmd, err := r.anyOption(Note)
		if err != nil {
			return Command{}, err
		}
		cmd.Text = r.rest()
		return cmd, nil
	case Submit:
		b, err := r.block()
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: Submit, BlockID: b.BlockID()}, nil
	case Choose:
		b, err := r.block()
		if err != nil {
			return Command{}, err
		}
		ns, ok := b.(*types.NextSteps)
		if !ok {
			return Command{}, fmt.Errorf("%w: block %s has no next steps", ErrUsage, b.BlockID())
		}
		o, err := r.option(ns.Options)
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: Choose, BlockID: ns.ID, OptionID: o.ID}, nil
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnrecognized, input)
}

type resolver struct {
	blocks []types.Block
	args   []string
	pos    int
}

func (r *resolver) index(what string, n int) (int, error) {
	if r.pos >= len(r.args) {
		return 0, fmt.Errorf("%w: missing %s number", ErrUsage, what)
	}
	i, err := strconv.Atoi(r.args[r.pos])
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("%w: %s must be between 1 and %d", ErrUsage, what, n)
	}
	r.pos++
	return i - 1, nil
}

func (r *resolver) rest() string {
	if r.pos >= len(r.args) {
		return ""
	}
	return strings.Join(r.args[r.pos:], " ")
}

func (r *resolver) block() (types.Block, error) {
	i, err := r.index("block", len(r.blocks))
	if err != nil {
		return nil, err
	}
	return r.blocks[i], nil
}

func (r *resolver) question() (types.Block, types.Question, error) {
	b, err := r.block()
	if err != nil {
		return nil, types.Question{}, err
	}
	qs := types.QuestionsOf(b)
	if len(qs) == 0 {
		return nil, types.Question{}, fmt.Errorf("%w: block %s has no questions", ErrUsage, b.BlockID())
	}
	i, err := r.index("question", len(qs))
	if err != nil {
		return nil, types.Question{}, err
	}
	return b, qs[i], nil
}

func (r *resolver) option(opts []types.Option) (types.Option, error) {
	if len(opts) == 0 {
		return types.Option{}, fmt.Errorf("%w: no options", ErrUsage)
	}
	i, err := r.index("option", len(opts))
	if err != nil {
		return types.Option{}, err
	}
	return opts[i], nil
}

func (r *resolver) questionOption(verb Verb) (Command, error) {
	b, q, err := r.question()
	if err != nil {
		return Command{}, err
	}
	o, err := r.option(q.Options)
	if err != nil {
		return Command{}, err
	}
	return Command{Verb: verb, BlockID: b.BlockID(), QuestionID: q.ID, OptionID: o.ID}, nil
}

// anyOption resolves "<block> <option>" for NextSteps and
// "<block> <question> <option>" otherwise.
func (r *resolver) anyOption(verb Verb) (Command, error) {
	start := r.pos
	b, err := r.block()
	if err != nil {
		return Command{}, err
	}
	if ns, ok := b.(*types.NextSteps); ok {
		o, err := r.option(ns.Options)
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: verb, BlockID: ns.ID, OptionID: o.ID}, nil
	}
	r.pos = start
	return r.questionOption(verb)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
