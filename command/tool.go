package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/intakeform/block"
	"github.com/tbxark/intakeform/structured"
	"github.com/tbxark/intakeform/types"
)

const (
	parseCommandToolName        = "parse_form_action"
	parseCommandToolDescription = "Map the user's message to one action on the interactive blocks."
)

type toolInput struct {
	Input  string
	Blocks []types.Block
}

type toolCommand struct {
	Verb       Verb   `json:"verb" jsonschema:"required,enum=pick,enum=toggle,enum=text,enum=expand,enum=note,enum=record,enum=submit,enum=choose,enum=show,enum=help,enum=quit,enum=none,description=The action to perform"`
	BlockID    string `json:"block_id,omitempty" jsonschema:"description=Id of the block the action targets"`
	QuestionID string `json:"question_id,omitempty" jsonschema:"description=Question id; empty for next_steps options"`
	OptionID   string `json:"option_id,omitempty" jsonschema:"description=Option id"`
	Text       string `json:"text,omitempty" jsonschema:"description=Free text for text answers and option notes"`
}

// ToolParser asks a chat model to map natural language onto a Command.
type ToolParser struct {
	chain *structured.Chain[toolInput, toolCommand]
}

func NewToolParser(chatModel model.ToolCallingChatModel) (*ToolParser, error) {
	chain, err := structured.NewChain[toolInput, toolCommand](
		chatModel,
		buildParseCommandPrompt,
		parseCommandToolName,
		parseCommandToolDescription,
		structured.WithValidator[toolInput, toolCommand](func(c *toolCommand) error {
			if c.Verb == "" {
				return errors.New("empty verb")
			}
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return &ToolParser{chain: chain}, nil
}

func (p *ToolParser) ParseCommand(ctx context.Context, input string, blocks []types.Block) (Command, error) {
	out, err := p.chain.Invoke(ctx, toolInput{Input: input, Blocks: blocks})
	if err != nil {
		return Command{Verb: None}, err
	}
	cmd := Command(*out)
	if err := checkIDs(cmd, blocks); err != nil {
		return Command{Verb: None}, err
	}
	return cmd, nil
}

// checkIDs rejects ids the model made up.
func checkIDs(cmd Command, blocks []types.Block) error {
	if cmd.BlockID == "" {
		return nil
	}
	for _, b := range blocks {
		if b.BlockID() != cmd.BlockID {
			continue
		}
		if ns, ok := b.(*types.NextSteps); ok {
			if cmd.OptionID != "" {
				if _, found := ns.Option(cmd.OptionID); !found {
					return fmt.Errorf("%w: unknown option %q", ErrUsage, cmd.OptionID)
				}
			}
			return nil
		}
		if cmd.QuestionID == "" {
			return nil
		}
		for _, q := range types.QuestionsOf(b) {
			if q.ID == cmd.QuestionID {
				if cmd.OptionID != "" && !q.HasOption(cmd.OptionID) {
					return fmt.Errorf("%w: unknown option %q", ErrUsage, cmd.OptionID)
				}
				return nil
			}
		}
		return fmt.Errorf("%w: unknown question %q", ErrUsage, cmd.QuestionID)
	}
	return fmt.Errorf("%w: unknown block %q", ErrUsage, cmd.BlockID)
}

func buildParseCommandPrompt(ctx context.Context, in toolInput) ([]*schema.Message, error) {
	systemPrompt := fmt.Sprintf(`You help a user fill in interactive form blocks from a chat box.

The blocks currently on screen are listed below in their tagged form, with every block, question and option id:
%s

Pick the single action that matches the user's message:
- pick: select one option of a single-choice question.
- toggle: add or remove one option of a multiple-choice question.
- text: answer a text question; put the answer in text.
- expand: open or close the details panel of an option.
- note: write details for an option; put them in text.
- record: start or stop voice input for an option's details.
- submit: continue a question block once it is answered.
- choose: pick an option of a next_steps block.
- show, help, quit: console controls.
- none: small talk or anything that is not an action.

Only use ids that appear above. Call the '%s' tool with the result.`, block.Encode(in.Blocks), parseCommandToolName)

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(in.Input),
	}, nil
}

// Failback tries each parser in order and returns the first success.
type Failback struct {
	parsers []Parser
}

func NewFailback(parsers ...Parser) *Failback {
	return &Failback{parsers: parsers}
}

func (p *Failback) ParseCommand(ctx context.Context, input string, blocks []types.Block) (Command, error) {
	lastErr := ErrUnrecognized
	for _, parser := range p.parsers {
		cmd, err := parser.ParseCommand(ctx, input, blocks)
		if err == nil {
			return cmd, nil
		}
		lastErr = err
	}
	return Command{Verb: None}, lastErr
}
