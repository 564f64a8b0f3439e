// Package structuredtest provides a scripted tool-calling chat model for
// tests that must not reach a live LLM.
package structuredtest

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var ErrExhausted = errors.New("scripted model has no more responses")

// Call is one recorded request.
type Call struct {
	Messages []*schema.Message
	Tools    []*schema.ToolInfo
}

// ChatModel replays scripted responses in order and records every call.
// A response with a non-nil Err is returned as an error.
type ChatModel struct {
	mu        sync.Mutex
	responses []Response
	calls     []Call
}

type Response struct {
	Message *schema.Message
	Err     error
}

var _ model.ToolCallingChatModel = (*ChatModel)(nil)

func New(responses ...Response) *ChatModel {
	return &ChatModel{responses: responses}
}

// ToolCall scripts a response carrying a single tool call.
func ToolCall(name, arguments string) Response {
	return Response{Message: &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:       "call_" + name,
			Function: schema.FunctionCall{Name: name, Arguments: arguments},
		}},
	}}
}

// Text scripts a plain assistant reply.
func Text(content string) Response {
	return Response{Message: schema.AssistantMessage(content, nil)}
}

func Fail(err error) Response {
	return Response{Err: err}
}

func (m *ChatModel) next(input []*schema.Message, opts []model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	common := model.GetCommonOptions(&model.Options{}, opts...)
	m.calls = append(m.calls, Call{Messages: input, Tools: common.Tools})
	if len(m.responses) == 0 {
		return nil, ErrExhausted
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	return r.Message, r.Err
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return m.next(input, opts)
}

// Stream splits tool call arguments into two chunks so callers exercise
// concatenation.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.next(input, opts)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray(split(msg)), nil
}

func (m *ChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// Calls returns the recorded requests.
func (m *ChatModel) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func split(msg *schema.Message) []*schema.Message {
	if len(msg.ToolCalls) == 0 {
		return []*schema.Message{msg}
	}
	tc := msg.ToolCalls[0]
	args := tc.Function.Arguments
	half := len(args) / 2
	idx := 0
	first := &schema.Message{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{
		Index:    &idx,
		ID:       tc.ID,
		Function: schema.FunctionCall{Name: tc.Function.Name, Arguments: args[:half]},
	}}}
	second := &schema.Message{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{
		Index:    &idx,
		Function: schema.FunctionCall{Arguments: args[half:]},
	}}}
	return []*schema.Message{first, second}
}
