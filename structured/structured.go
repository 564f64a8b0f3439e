// Package structured turns a tool-calling chat model into a typed function
// by forcing a single tool call whose arguments decode into TOutput.
package structured

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

var ErrNoToolCall = errors.New("no tool call in model response")

type PromptBuilder[TInput any] func(ctx context.Context, input TInput) ([]*schema.Message, error)

// Validator rejects decoded output that is structurally valid JSON but
// unusable for the caller.
type Validator[TOutput any] func(out *TOutput) error

type Chain[TInput, TOutput any] struct {
	prompt    PromptBuilder[TInput]
	chatModel model.ToolCallingChatModel
	toolInfo  *schema.ToolInfo
	validate  Validator[TOutput]
	extra     []model.Option
}

type ChainOption[TInput, TOutput any] func(*Chain[TInput, TOutput])

func WithValidator[TInput, TOutput any](v Validator[TOutput]) ChainOption[TInput, TOutput] {
	return func(c *Chain[TInput, TOutput]) {
		c.validate = v
	}
}

func WithModelOptions[TInput, TOutput any](opts ...model.Option) ChainOption[TInput, TOutput] {
	return func(c *Chain[TInput, TOutput]) {
		c.extra = append(c.extra, opts...)
	}
}

func NewChain[TInput, TOutput any](
	chatModel model.ToolCallingChatModel,
	prompt PromptBuilder[TInput],
	toolName string,
	toolDesc string,
	opts ...ChainOption[TInput, TOutput],
) (*Chain[TInput, TOutput], error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if prompt == nil {
		return nil, errors.New("prompt builder is required")
	}
	toolInfo, err := utils.GoStruct2ToolInfo[TOutput](toolName, toolDesc)
	if err != nil {
		return nil, fmt.Errorf("convert tool info failed: %w", err)
	}
	c := &Chain[TInput, TOutput]{
		prompt:    prompt,
		chatModel: chatModel,
		toolInfo:  toolInfo,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Chain[TInput, TOutput]) ToolInfo() *schema.ToolInfo {
	return c.toolInfo
}

func (c *Chain[TInput, TOutput]) options() []model.Option {
	opts := []model.Option{
		model.WithTools([]*schema.ToolInfo{c.toolInfo}),
		model.WithToolChoice(schema.ToolChoiceForced, c.toolInfo.Name),
	}
	return append(opts, c.extra...)
}

func (c *Chain[TInput, TOutput]) Invoke(ctx context.Context, input TInput) (*TOutput, error) {
	messages, err := c.prompt(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("build prompt failed: %w", err)
	}
	response, err := c.chatModel.Generate(ctx, messages, c.options()...)
	if err != nil {
		return nil, fmt.Errorf("call model failed: %w", err)
	}
	return c.decode(response)
}

// InvokeStream streams the model response and decodes the tool call once
// the stream is complete. Argument fragments are concatenated in order.
func (c *Chain[TInput, TOutput]) InvokeStream(ctx context.Context, input TInput) (*TOutput, error) {
	messages, err := c.prompt(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("build prompt failed: %w", err)
	}
	stream, err := c.chatModel.Stream(ctx, messages, c.options()...)
	if err != nil {
		return nil, fmt.Errorf("call model failed: %w", err)
	}
	defer stream.Close()

	var chunks []*schema.Message
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read model stream failed: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if len(chunks) == 0 {
		return nil, ErrNoToolCall
	}
	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, fmt.Errorf("concat model stream failed: %w", err)
	}
	return c.decode(response)
}

func (c *Chain[TInput, TOutput]) decode(response *schema.Message) (*TOutput, error) {
	if response == nil || len(response.ToolCalls) == 0 {
		content := ""
		if response != nil {
			content = response.Content
		}
		return nil, fmt.Errorf("%w: %s", ErrNoToolCall, content)
	}
	var result TOutput
	if err := sonic.UnmarshalString(response.ToolCalls[0].Function.Arguments, &result); err != nil {
		return nil, fmt.Errorf("parse tool call arguments failed: %w", err)
	}
	if c.validate != nil {
		if err := c.validate(&result); err != nil {
			return nil, fmt.Errorf("invalid tool call arguments: %w", err)
		}
	}
	return &result, nil
}
