package profile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/intakeform/types"
)

func TestAcceptAndChoose(t *testing.T) {
	p := New()
	p, err := p.Accept(types.BatchSubmission{BlockID: "round_1", Answers: map[string]types.Answer{
		"q1": types.TextAnswer("yes"),
		"q2": types.ListAnswer("a", "c"),
	}})
	require.NoError(t, err)

	p, err = p.Accept(types.BatchSubmission{BlockID: "round_1", Answers: map[string]types.Answer{
		"q1": types.TextAnswer("no"),
	}})
	require.NoError(t, err)

	p, err = p.Choose(types.OptionSelection{BlockID: "ns1", OptionID: "o1", Elaboration: "worse at night"})
	require.NoError(t, err)

	want := Profile{
		Answers: map[string]map[string]types.Answer{
			"round_1": {
				"q1": types.TextAnswer("no"),
				"q2": types.ListAnswer("a", "c"),
			},
		},
		Selections: []Selection{{BlockID: "ns1", OptionID: "o1", Elaboration: "worse at night"}},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestAcceptEmptySubmissionIsNoop(t *testing.T) {
	p, err := New().Accept(types.BatchSubmission{BlockID: "b"})
	require.NoError(t, err)
	assert.True(t, p.Empty())
}

func TestBlockIDsAreEscaped(t *testing.T) {
	p, err := New().Accept(types.BatchSubmission{BlockID: "a/b~c", Answers: map[string]types.Answer{
		"q": types.TextAnswer("v"),
	}})
	require.NoError(t, err)
	got, ok := p.Answer("a/b~c", "q")
	require.True(t, ok)
	assert.Equal(t, "v", got.Text())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		ops     []Operation
		wantErr bool
	}{
		{name: "answer", ops: []Operation{{Op: OperationReplace, Path: "/answers/b/q"}}},
		{name: "block", ops: []Operation{{Op: OperationAdd, Path: "/answers/b"}}},
		{name: "append selection", ops: []Operation{{Op: OperationAdd, Path: "/selections/-"}}},
		{name: "too deep", ops: []Operation{{Op: OperationAdd, Path: "/answers/b/q/x"}}, wantErr: true},
		{name: "unknown root", ops: []Operation{{Op: OperationAdd, Path: "/secrets"}}, wantErr: true},
		{name: "unsupported op", ops: []Operation{{Op: "move", Path: "/answers/b"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.ops, AllowedPaths)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyRejectsDisallowedPath(t *testing.T) {
	p := New()
	_, err := Apply(p, []Operation{{Op: OperationAdd, Path: "/admin", Value: true}})
	assert.Error(t, err)
}

func TestFixOperations(t *testing.T) {
	current := []byte(`{"answers":{"b":{"q":"x"}},"selections":[]}`)
	ops := FixOperations(current, []Operation{
		{Op: OperationReplace, Path: "/answers/b/q", Value: "y"},
		{Op: OperationReplace, Path: "/answers/b/r", Value: "z"},
		{Op: OperationRemove, Path: "/answers/c"},
	})
	assert.Equal(t, []Operation{
		{Op: OperationReplace, Path: "/answers/b/q", Value: "y"},
		{Op: OperationAdd, Path: "/answers/b/r", Value: "z"},
	}, ops)
}

func TestSeed(t *testing.T) {
	initial := Profile{
		Answers: map[string]map[string]types.Answer{
			"identity": {"name": types.TextAnswer("Asha"), "city": types.TextAnswer("")},
		},
		Selections: []Selection{{BlockID: "ns", OptionID: "start"}},
	}
	p, err := Seed(initial)
	require.NoError(t, err)

	name, ok := p.Answer("identity", "name")
	require.True(t, ok)
	assert.Equal(t, "Asha", name.Text())
	_, ok = p.Answer("identity", "city")
	assert.False(t, ok)
	assert.Equal(t, []Selection{{BlockID: "ns", OptionID: "start"}}, p.Selections)

	assert.Empty(t, Diff(p, initial))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Nothing recorded yet.", New().Summary())

	p, err := New().Accept(types.BatchSubmission{BlockID: "b", Answers: map[string]types.Answer{
		"z": types.TextAnswer("last"),
		"a": types.ListAnswer("x", "y"),
	}})
	require.NoError(t, err)
	p, err = p.Choose(types.OptionSelection{OptionID: "o1", Elaboration: "soon"})
	require.NoError(t, err)
	assert.Equal(t, "- a: x, y\n- z: last\n- chose o1 (soon)", p.Summary())
}
