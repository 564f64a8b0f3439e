// Package command turns console input into form actions.
package command

import (
	"context"
	"errors"

	"github.com/tbxark/intakeform/types"
)

type Verb string

const (
	Pick   Verb = "pick"
	Toggle Verb = "toggle"
	Text   Verb = "text"
	Expand Verb = "expand"
	Note   Verb = "note"
	Record Verb = "record"
	Submit Verb = "submit"
	Choose Verb = "choose"
	Show   Verb = "show"
	Help   Verb = "help"
	Quit   Verb = "quit"
	None   Verb = "none"
)

var (
	ErrUnrecognized = errors.New("unrecognized command")
	ErrUsage        = errors.New("invalid command arguments")
)

// Command is a resolved action. Ids refer to the blocks the command was
// parsed against; QuestionID is empty for NextSteps options.
type Command struct {
	Verb       Verb   `json:"verb"`
	BlockID    string `json:"block_id,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
	OptionID   string `json:"option_id,omitempty"`
	Text       string `json:"text,omitempty"`
}

func (c Command) OptionKey() types.OptionKey {
	return types.NewOptionKey(c.BlockID, c.QuestionID, c.OptionID)
}

type Parser interface {
	ParseCommand(ctx context.Context, input string, blocks []types.Block) (Command, error)
}

// Usage is the help text for the console grammar. Indices are 1-based and
// NextSteps blocks take no question index.
const Usage = `commands:
  pick <block> <question> <option>      select a single-choice option
  toggle <block> <question> <option>    toggle a multiple-choice option
  text <block> <question> <words...>    answer a text question
  expand <block> [question] <option>    open or close an option's details
  note <block> [question] <option> <words...>
                                        write an option's details
  record <block> [question] <option>    start or stop voice input
  submit <block>                        continue a question block
  choose <block> <option>               pick a next step
  show | help | quit`
