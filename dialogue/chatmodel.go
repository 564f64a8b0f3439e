package dialogue

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/intakeform/types"
)

// ChatModelEngine asks a chat model to write the next turn directly in the
// block protocol.
type ChatModelEngine struct {
	chatModel    model.BaseChatModel
	systemPrompt string
	opts         engineOptions
}

func NewChatModelEngine(chatModel model.BaseChatModel, opts ...Option) (*ChatModelEngine, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	o := newEngineOptions(opts)
	prompt, err := o.buildSystemPrompt()
	if err != nil {
		return nil, err
	}
	return &ChatModelEngine{chatModel: chatModel, systemPrompt: prompt, opts: o}, nil
}

func (e *ChatModelEngine) Start(ctx context.Context) (string, error) {
	ctx = withThread(ctx)
	if err := e.opts.history.Clear(ctx); err != nil {
		return "", fmt.Errorf("clear history: %w", err)
	}
	return e.reply(ctx, schema.UserMessage(startMessage))
}

func (e *ChatModelEngine) SubmitAnswers(ctx context.Context, sub types.BatchSubmission) (string, error) {
	return e.reply(withThread(ctx), submissionMessage(sub))
}

func (e *ChatModelEngine) SelectOption(ctx context.Context, sel types.OptionSelection) (string, error) {
	return e.reply(withThread(ctx), selectionMessage(sel))
}

func (e *ChatModelEngine) reply(ctx context.Context, user *schema.Message) (string, error) {
	history, err := e.opts.history.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(e.systemPrompt))
	messages = append(messages, history...)
	messages = append(messages, user)

	response, err := e.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	if _, err := e.opts.history.Append(ctx, user, schema.AssistantMessage(response.Content, nil)); err != nil {
		return "", fmt.Errorf("save history: %w", err)
	}
	e.opts.log.Debug("chat model turn", "input", user.Content, "reply_len", len(response.Content))
	return response.Content, nil
}
