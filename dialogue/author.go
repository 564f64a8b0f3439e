package dialogue

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

// AuthoredTurn is the tool call a BlockAuthor forces the model to make.
type AuthoredTurn struct {
	Message string          `json:"message" jsonschema:"required,description=Short conversational text shown before the blocks"`
	Blocks  []block.Payload `json:"blocks,omitempty" jsonschema:"description=Interactive blocks rendered after the message"`
}

const (
	authorToolName = "write_turn"
	authorToolDesc = "Write the next turn of the intake conversation as a message plus interactive blocks"
)

// BlockAuthor produces turns through a forced tool call and encodes them in
// the block protocol, so malformed blocks never reach the parser as raw
// model text.
type BlockAuthor struct {
	chain        *structured.Chain[[]*schema.Message, AuthoredTurn]
	systemPrompt string
	opts         engineOptions
}

func NewBlockAuthor(chatModel model.ToolCallingChatModel, opts ...Option) (*BlockAuthor, error) {
	o := newEngineOptions(opts)
	prompt, err := o.buildSystemPrompt()
	if err != nil {
		return nil, err
	}
	chain, err := structured.NewChain[[]*schema.Message, AuthoredTurn](
		chatModel,
		func(ctx context.Context, messages []*schema.Message) ([]*schema.Message, error) {
			return messages, nil
		},
		authorToolName,
		authorToolDesc,
		structured.WithValidator[[]*schema.Message, AuthoredTurn](validateTurn),
	)
	if err != nil {
		return nil, err
	}
	return &BlockAuthor{chain: chain, systemPrompt: prompt, opts: o}, nil
}

func validateTurn(turn *AuthoredTurn) error {
	if turn.Message == "" && len(turn.Blocks) == 0 {
		return errors.New("turn has neither message nor blocks")
	}
	for i, b := range turn.Blocks {
		if b.Type == "" {
			return fmt.Errorf("block %d has no type", i)
		}
	}
	return nil
}

func (a *BlockAuthor) Start(ctx context.Context) (string, error) {
	ctx = withThread(ctx)
	if err := a.opts.history.Clear(ctx); err != nil {
		return "", fmt.Errorf("clear history: %w", err)
	}
	return a.reply(ctx, schema.UserMessage(startMessage))
}

func (a *BlockAuthor) SubmitAnswers(ctx context.Context, sub types.BatchSubmission) (string, error) {
	return a.reply(withThread(ctx), submissionMessage(sub))
}

func (a *BlockAuthor) SelectOption(ctx context.Context, sel types.OptionSelection) (string, error) {
	return a.reply(withThread(ctx), selectionMessage(sel))
}

func (a *BlockAuthor) reply(ctx context.Context, user *schema.Message) (string, error) {
	history, err := a.opts.history.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(a.systemPrompt))
	messages = append(messages, history...)
	messages = append(messages, user)

	turn, err := a.chain.Invoke(ctx, messages)
	if err != nil {
		return "", err
	}
	text := block.EncodePayloads(turn.Message, turn.Blocks)
	if _, err := a.opts.history.Append(ctx, user, schema.AssistantMessage(text, nil)); err != nil {
		return "", fmt.Errorf("save history: %w", err)
	}
	a.opts.log.Debug("authored turn", "blocks", len(turn.Blocks))
	return text, nil
}
