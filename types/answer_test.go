package types

import (
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerToggle(t *testing.T) {
	a := ListAnswer("a", "b", "c")

	a = a.Toggle("b")
	assert.Equal(t, []string{"a", "c"}, a.Items())

	a = a.Toggle("d")
	assert.Equal(t, []string{"a", "c", "d"}, a.Items())

	start := ListAnswer("x", "y")
	assert.True(t, start.Toggle("z").Toggle("z").Equal(start))
	assert.True(t, start.Toggle("x").Toggle("x").Equal(ListAnswer("y", "x")))
}

func TestAnswerTogglePromotesText(t *testing.T) {
	a := TextAnswer("a").Toggle("b")
	assert.True(t, a.IsList())
	assert.Equal(t, []string{"a", "b"}, a.Items())

	empty := TextAnswer("").Toggle("b")
	assert.Equal(t, []string{"b"}, empty.Items())
}

func TestListAnswerDropsDuplicates(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ListAnswer("a", "b", "a").Items())
}

func TestAnswerEmpty(t *testing.T) {
	tests := []struct {
		name   string
		answer Answer
		want   bool
	}{
		{name: "blank text", answer: TextAnswer("   "), want: true},
		{name: "empty text", answer: TextAnswer(""), want: true},
		{name: "text", answer: TextAnswer("yes"), want: false},
		{name: "empty list", answer: ListAnswer(), want: true},
		{name: "list", answer: ListAnswer("a"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.answer.Empty())
		})
	}
}

func TestAnswerJSONShape(t *testing.T) {
	sub := BatchSubmission{
		BlockID: "B",
		Answers: map[string]Answer{
			"q1": TextAnswer("yes"),
			"q2": ListAnswer("a", "b"),
		},
	}
	data, err := sonic.Marshal(sub)
	require.NoError(t, err)
	assert.JSONEq(t, `{"blockId":"B","answers":{"q1":"yes","q2":["a","b"]}}`, string(data))

	var back BatchSubmission
	require.NoError(t, sonic.Unmarshal(data, &back))
	assert.True(t, back.Answers["q1"].Equal(TextAnswer("yes")))
	assert.True(t, back.Answers["q2"].Equal(ListAnswer("a", "b")))
}

func TestOptionSelectionOmitsEmptyElaboration(t *testing.T) {
	data, err := sonic.Marshal(OptionSelection{BlockID: "ns1", OptionID: "o1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"optionId":"o1"}`, string(data))
}

func TestFormatBlocks(t *testing.T) {
	blocks := []Block{
		&CollectInfo{ID: "c1", Questions: []Question{
			{ID: "name", Label: "Your name", Required: true, Type: Text},
		}},
		&NextSteps{ID: "ns1", Options: []Option{{ID: "o1", Label: "Retry"}}},
		&GenericChoice{ID: "g1", Question: "Pick", Options: []string{"A", "B"}, Mode: ChoiceSingle},
	}
	out := FormatBlocks(blocks)
	for _, want := range []string{"c1", "Your name", "ns1", "Retry (o1)", "g1", "A / B"} {
		assert.True(t, strings.Contains(out, want), "missing %q in\n%s", want, out)
	}
}

func TestKeysString(t *testing.T) {
	k := NewAnswerKey("b", "q")
	assert.Equal(t, "b:q", k.String())
	assert.Equal(t, "b:q:o", k.Option("o").String())
	assert.Equal(t, "ns:o", NewOptionKey("ns", "", "o").String())
	assert.Equal(t, k, k.Option("o").Answer())
}
