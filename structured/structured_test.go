package structured

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/intakeform/structured/structuredtest"
)

type greeting struct {
	Message string   `json:"message" jsonschema:"description=reply to the user"`
	Tags    []string `json:"tags,omitempty"`
}

func userPrompt(ctx context.Context, input string) ([]*schema.Message, error) {
	return []*schema.Message{schema.UserMessage(input)}, nil
}

func TestChainInvoke(t *testing.T) {
	m := structuredtest.New(structuredtest.ToolCall("reply", `{"message":"hello","tags":["a"]}`))
	chain, err := NewChain[string, greeting](m, userPrompt, "reply", "reply to the user")
	require.NoError(t, err)

	out, err := chain.Invoke(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, greeting{Message: "hello", Tags: []string{"a"}}, *out)

	calls := m.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Tools, 1)
	assert.Equal(t, "reply", calls[0].Tools[0].Name)
	assert.Equal(t, "hi", calls[0].Messages[0].Content)
}

func TestChainInvokeStream(t *testing.T) {
	m := structuredtest.New(structuredtest.ToolCall("reply", `{"message":"streamed"}`))
	chain, err := NewChain[string, greeting](m, userPrompt, "reply", "reply to the user")
	require.NoError(t, err)

	out, err := chain.InvokeStream(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "streamed", out.Message)
}

func TestChainErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		response structuredtest.Response
		check    func(t *testing.T, err error)
	}{
		{
			name:     "no tool call",
			response: structuredtest.Text("plain text"),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoToolCall)
			},
		},
		{
			name:     "model failure",
			response: structuredtest.Fail(boom),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, boom)
			},
		},
		{
			name:     "bad arguments",
			response: structuredtest.ToolCall("reply", `{"message":`),
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "parse tool call arguments")
			},
		},
		{
			name:     "rejected by validator",
			response: structuredtest.ToolCall("reply", `{"message":""}`),
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "message is empty")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := structuredtest.New(tt.response)
			chain, err := NewChain[string, greeting](m, userPrompt, "reply", "reply",
				WithValidator[string, greeting](func(out *greeting) error {
					if out.Message == "" {
						return errors.New("message is empty")
					}
					return nil
				}))
			require.NoError(t, err)
			_, err = chain.Invoke(context.Background(), "hi")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNewChainRequiresModel(t *testing.T) {
	_, err := NewChain[string, greeting](nil, userPrompt, "reply", "reply")
	assert.Error(t, err)
}
