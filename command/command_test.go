package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/intakeform/block"
	"github.com/tbxark/intakeform/structured/structuredtest"
	"github.com/tbxark/intakeform/types"
)

const screen = `Tell me more.
<BLOCK id="r1" type="deep_intake_round">{"questions":[
 {"id":"mood","label":"Mood","options":["Low","OK","Good"]},
 {"id":"areas","label":"Areas","type":"multiple_choice","options":[{"id":"sleep","label":"Sleep"},{"id":"work","label":"Work"}]},
 {"id":"notes","label":"Notes","type":"text","required":false}
]}</BLOCK>
<BLOCK id="ns" type="next_steps">{"options":[{"id":"call","label":"Book a call"},{"id":"read","label":"Read more"}]}</BLOCK>`

func screenBlocks(t *testing.T) []types.Block {
	t.Helper()
	blocks := block.Parse(screen).Blocks
	require.Len(t, blocks, 2)
	return blocks
}

func TestLocalParser(t *testing.T) {
	blocks := screenBlocks(t)
	tests := []struct {
		input string
		want  Command
	}{
		{"", Command{Verb: None}},
		{"quit", Command{Verb: Quit}},
		{"  HELP ", Command{Verb: Help}},
		{"ls", Command{Verb: Show}},
		{"done", Command{Verb: Submit, BlockID: "r1"}},
		{"pick 1 1 3", Command{Verb: Pick, BlockID: "r1", QuestionID: "mood", OptionID: "Good"}},
		{"toggle 1 2 1", Command{Verb: Toggle, BlockID: "r1", QuestionID: "areas", OptionID: "sleep"}},
		{"text 1 3 mostly at   night", Command{Verb: Text, BlockID: "r1", QuestionID: "notes", Text: "mostly at night"}},
		{"expand 1 2 2", Command{Verb: Expand, BlockID: "r1", QuestionID: "areas", OptionID: "work"}},
		{"expand 2 1", Command{Verb: Expand, BlockID: "ns", OptionID: "call"}},
		{"note 2 1 after six please", Command{Verb: Note, BlockID: "ns", OptionID: "call", Text: "after six please"}},
		{"record 1 2 1", Command{Verb: Record, BlockID: "r1", QuestionID: "areas", OptionID: "sleep"}},
		{"submit 1", Command{Verb: Submit, BlockID: "r1"}},
		{"choose 2 2", Command{Verb: Choose, BlockID: "ns", OptionID: "read"}},
	}
	p := NewLocalParser()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := p.ParseCommand(context.Background(), tt.input, blocks)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalParserErrors(t *testing.T) {
	blocks := screenBlocks(t)
	tests := []struct {
		input string
		want  error
	}{
		{"pick 3 1 1", ErrUsage},
		{"pick 1", ErrUsage},
		{"pick one two three", ErrUsage},
		{"choose 1 1", ErrUsage},
		{"pick 2 1 1", ErrUsage},
		{"I think I sleep badly", ErrUnrecognized},
	}
	p := NewLocalParser()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := p.ParseCommand(context.Background(), tt.input, blocks)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := p.ParseCommand(context.Background(), "done", blocks[1:])
	assert.ErrorIs(t, err, ErrUsage)
}

func TestFailbackFallsThroughToModel(t *testing.T) {
	blocks := screenBlocks(t)
	m := structuredtest.New(structuredtest.ToolCall(parseCommandToolName, `{"verb":"toggle","block_id":"r1","question_id":"areas","option_id":"sleep"}`))
	tool, err := NewToolParser(m)
	require.NoError(t, err)
	p := NewFailback(NewLocalParser(), tool)

	got, err := p.ParseCommand(context.Background(), "I think I sleep badly", blocks)
	require.NoError(t, err)
	assert.Equal(t, Command{Verb: Toggle, BlockID: "r1", QuestionID: "areas", OptionID: "sleep"}, got)

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Messages[0].Content, `"id":"areas"`)
	assert.Equal(t, "I think I sleep badly", calls[0].Messages[1].Content)
}

func TestToolParserRejectsUnknownIDs(t *testing.T) {
	blocks := screenBlocks(t)
	tests := []string{
		`{"verb":"pick","block_id":"nope"}`,
		`{"verb":"pick","block_id":"r1","question_id":"mood","option_id":"Great"}`,
		`{"verb":"choose","block_id":"ns","option_id":"later"}`,
		`{"verb":"text","block_id":"r1","question_id":"age"}`,
	}
	for _, args := range tests {
		t.Run(args, func(t *testing.T) {
			tool, err := NewToolParser(structuredtest.New(structuredtest.ToolCall(parseCommandToolName, args)))
			require.NoError(t, err)
			_, err = tool.ParseCommand(context.Background(), "whatever", blocks)
			assert.ErrorIs(t, err, ErrUsage)
		})
	}
}
