package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/intakeform/command"
	"github.com/tbxark/intakeform/dialogue"
	"github.com/tbxark/intakeform/form"
	"github.com/tbxark/intakeform/session"
)

const message = `Let's start.
<BLOCK type="collect_info">{"id":"about","title":"About you","questions":[{"id":"name","label":"Name","required":true,"type":"text"}]}</BLOCK>`

func runParseWith(t *testing.T, input string, asJSON bool) string {
	t.Helper()
	old := parseJSON
	parseJSON = asJSON
	t.Cleanup(func() { parseJSON = old })

	var out bytes.Buffer
	parseCmd.SetIn(strings.NewReader(input))
	parseCmd.SetOut(&out)
	require.NoError(t, runParse(parseCmd, nil))
	return out.String()
}

func TestParsePrintsBlocks(t *testing.T) {
	out := runParseWith(t, message, false)
	assert.True(t, strings.HasPrefix(out, "Let's start.\n"))
	assert.Contains(t, out, "about")
	assert.Contains(t, out, "collect_info")

	out = runParseWith(t, "just prose", false)
	assert.Contains(t, out, "(no blocks)")
}

func TestParseJSON(t *testing.T) {
	out := runParseWith(t, message, true)
	var got struct {
		Preface string `json:"preface"`
		Blocks  []struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		} `json:"blocks"`
	}
	require.NoError(t, sonic.UnmarshalString(out, &got))
	assert.Equal(t, "Let's start.", got.Preface)
	require.Len(t, got.Blocks, 1)
	assert.Equal(t, "collect_info", got.Blocks[0].Type)
	assert.Equal(t, "about", got.Blocks[0].ID)
}

func TestChatStep(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(dialogue.NewLocal())
	defer m.Shutdown()
	s, _, err := m.Open(ctx, "console")
	require.NoError(t, err)
	_, err = s.Start(ctx)
	require.NoError(t, err)
	parser := command.NewLocalParser()

	var out bytes.Buffer
	quit, err := chatStep(ctx, parser, s, &out, "text 1 1 Asha")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Contains(t, out.String(), "name = Asha")
	assert.Contains(t, out.String(), "Missing required answers")

	out.Reset()
	_, err = chatStep(ctx, parser, s, &out, "submit 1")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "! "+form.IncompleteMessage)

	out.Reset()
	_, err = chatStep(ctx, parser, s, &out, "help")
	require.NoError(t, err)
	assert.Equal(t, command.Usage+"\n", out.String())

	_, err = chatStep(ctx, parser, s, &out, "pick 9 1 1")
	assert.ErrorIs(t, err, command.ErrUsage)

	quit, err = chatStep(ctx, parser, s, &out, "quit")
	require.NoError(t, err)
	assert.True(t, quit)
}
