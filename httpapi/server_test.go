package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tbxark/intakeform/block"
	"github.com/tbxark/intakeform/command"
	"github.com/tbxark/intakeform/dialogue"
	"github.com/tbxark/intakeform/form"
	"github.com/tbxark/intakeform/session"
	"github.com/tbxark/intakeform/types"
	"github.com/tbxark/intakeform/voice"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

type testBlock struct {
	ID         string                `json:"id"`
	Phase      types.Phase           `json:"phase"`
	Complete   bool                  `json:"complete"`
	Answers    map[string]any        `json:"answers"`
	Expansions []form.ExpansionEntry `json:"expansions"`
	Recording  []session.Recording   `json:"recording"`
}

type testView struct {
	ThreadID string      `json:"threadId"`
	TurnID   string      `json:"turnId"`
	Preface  string      `json:"preface"`
	Blocks   []testBlock `json:"blocks"`
	Errors   []string    `json:"errors"`
}

func (v testView) block(id string) (testBlock, bool) {
	for _, b := range v.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return testBlock{}, false
}

type testResponse struct {
	View  *testView `json:"view"`
	Error *APIError `json:"error"`
}

func newHandler(t *testing.T, manager []session.Option, opts ...Option) http.Handler {
	t.Helper()
	m := session.NewManager(dialogue.NewLocal(), manager...)
	t.Cleanup(m.Shutdown)
	return NewServer(m, opts...).Routes()
}

func call(t *testing.T, h http.Handler, method, path string, body any) (int, testResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		data, err := sonic.Marshal(body)
		require.NoError(t, err)
		buf.Write(data)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp testResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec.Code, resp
}

func TestIntakeWalk(t *testing.T) {
	h := newHandler(t, nil)

	code, resp := call(t, h, http.MethodPost, "/threads/t1/turns", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, resp.View)
	first := resp.View.TurnID
	b, ok := resp.View.block("about_you")
	require.True(t, ok)
	assert.Equal(t, types.PhaseEditing, b.Phase)

	code, _ = call(t, h, http.MethodPost, "/threads/t1/answers/text", gin.H{"block": "about_you", "question": "name", "text": "Asha"})
	require.Equal(t, http.StatusOK, code)
	code, resp = call(t, h, http.MethodPost, "/threads/t1/answers/select", gin.H{"block": "about_you", "question": "age_range", "option": "30-44"})
	require.Equal(t, http.StatusOK, code)
	b, _ = resp.View.block("about_you")
	assert.True(t, b.Complete)
	assert.Equal(t, "Asha", b.Answers["name"])

	code, resp = call(t, h, http.MethodPost, "/threads/t1/blocks/about_you/submit", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEqual(t, first, resp.View.TurnID)
	_, ok = resp.View.block("round_1")
	assert.True(t, ok)

	code, resp = call(t, h, http.MethodPost, "/threads/t1/answers/toggle", gin.H{"block": "round_1", "question": "topics", "option": "Sleep"})
	require.Equal(t, http.StatusOK, code)
	b, _ = resp.View.block("round_1")
	assert.Equal(t, []any{"Sleep"}, b.Answers["topics"])
}

func TestIncompleteSubmit(t *testing.T) {
	h := newHandler(t, nil)
	code, _ := call(t, h, http.MethodPost, "/threads/t1/turns", nil)
	require.Equal(t, http.StatusOK, code)

	code, resp := call(t, h, http.MethodPost, "/threads/t1/blocks/about_you/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "incomplete", resp.Error.Code)
	require.NotNil(t, resp.View)
	assert.Equal(t, []string{form.IncompleteMessage}, resp.View.Errors)

	_, resp = call(t, h, http.MethodGet, "/threads/t1", nil)
	assert.Empty(t, resp.View.Errors)
}

func TestErrorResponses(t *testing.T) {
	h := newHandler(t, nil)

	code, resp := call(t, h, http.MethodPost, "/threads/t1/answers/select", gin.H{"block": "about_you", "question": "q", "option": "o"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "no_turn", resp.Error.Code)

	code, _ = call(t, h, http.MethodPost, "/threads/t1/turns", nil)
	require.Equal(t, http.StatusOK, code)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown block", "/threads/t1/answers/select", gin.H{"block": "nope", "question": "q", "option": "o"}, http.StatusNotFound, "unknown_block"},
		{"missing block", "/threads/t1/answers/text", gin.H{"question": "q"}, http.StatusBadRequest, "invalid_json"},
		{"submit unknown", "/threads/t1/blocks/nope/submit", nil, http.StatusNotFound, "unknown_block"},
		{"choose on batch block", "/threads/t1/blocks/about_you/choose", gin.H{"option": "x"}, http.StatusConflict, "wrong_mode"},
		{"bad record action", "/threads/t1/options/record", gin.H{"block": "about_you", "question": "age_range", "option": "60+", "action": "pause"}, http.StatusBadRequest, "bad_request"},
		{"transcript without relay", "/threads/t1/options/transcript", gin.H{"block": "about_you", "token": "x"}, http.StatusConflict, "no_relay"},
		{"commands disabled", "/threads/t1/commands", gin.H{"input": "help"}, http.StatusNotImplemented, "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := call(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestRecordAndTranscript(t *testing.T) {
	h := newHandler(t, []session.Option{
		session.WithCapturerFactory(func(string) voice.Capturer { return voice.NewRelay() }),
	})
	raw := block.EncodeMessage("What next?", []types.Block{
		&types.NextSteps{ID: "ns", Title: "Next", Options: []types.Option{{ID: "call", Label: "Book a call"}}},
	})
	code, _ := call(t, h, http.MethodPost, "/threads/t1/turns", gin.H{"raw": raw})
	require.Equal(t, http.StatusOK, code)

	code, resp := call(t, h, http.MethodPost, "/threads/t1/options/record", gin.H{"block": "ns", "option": "call", "action": "start"})
	require.Equal(t, http.StatusOK, code)
	b, _ := resp.View.block("ns")
	require.Len(t, b.Recording, 1)
	token := b.Recording[0].Token
	require.NotEmpty(t, token)

	code, _ = call(t, h, http.MethodPost, "/threads/t1/options/transcript", gin.H{"block": "ns", "option": "call", "token": token, "text": "after six"})
	require.Equal(t, http.StatusAccepted, code)

	require.Eventually(t, func() bool {
		_, resp := call(t, h, http.MethodGet, "/threads/t1", nil)
		b, _ := resp.View.block("ns")
		return len(b.Expansions) == 1 && b.Expansions[0].State.Text == "after six"
	}, time.Second, 10*time.Millisecond)
}

func TestCommandRoute(t *testing.T) {
	h := newHandler(t, nil, WithParser(command.NewLocalParser()))
	code, _ := call(t, h, http.MethodPost, "/threads/t1/turns", nil)
	require.Equal(t, http.StatusOK, code)

	code, resp := call(t, h, http.MethodPost, "/threads/t1/commands", gin.H{"input": "text 1 1 Asha"})
	require.Equal(t, http.StatusOK, code)
	b, _ := resp.View.block("about_you")
	assert.Equal(t, "Asha", b.Answers["name"])

	code, resp = call(t, h, http.MethodPost, "/threads/t1/commands", gin.H{"input": "dance"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "bad_command", resp.Error.Code)
}

func TestCloseThread(t *testing.T) {
	h := newHandler(t, nil)
	code, _ := call(t, h, http.MethodPost, "/threads/t1/turns", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = call(t, h, http.MethodDelete, "/threads/t1", nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, resp := call(t, h, http.MethodDelete, "/threads/t1", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", resp.Error.Code)

	// the snapshot outlives the session
	code, resp = call(t, h, http.MethodGet, "/threads/t1", nil)
	require.Equal(t, http.StatusOK, code)
	_, ok := resp.View.block("about_you")
	assert.True(t, ok)
}

func TestAudioUpload(t *testing.T) {
	h := newHandler(t, []session.Option{
		session.WithCapturerFactory(func(string) voice.Capturer {
			return voice.NewUploadCapturer(voice.TranscriberFunc(func(ctx context.Context, audio []byte) (string, error) {
				return "heard " + string(audio), nil
			}), nil)
		}),
	})
	code, _ := call(t, h, http.MethodPost, "/threads/t1/turns", nil)
	require.Equal(t, http.StatusOK, code)

	upload := func() int {
		req := httptest.NewRequest(http.MethodPost, "/threads/t1/options/audio?block=about_you&question=age_range&option=60%2B", bytes.NewBufferString("pcm"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusConflict, upload())

	code, _ = call(t, h, http.MethodPost, "/threads/t1/answers/select", gin.H{"block": "about_you", "question": "age_range", "option": "60+"})
	require.Equal(t, http.StatusOK, code)
	code, _ = call(t, h, http.MethodPost, "/threads/t1/options/record", gin.H{"block": "about_you", "question": "age_range", "option": "60+"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, http.StatusAccepted, upload())

	require.Eventually(t, func() bool {
		_, resp := call(t, h, http.MethodGet, "/threads/t1", nil)
		b, _ := resp.View.block("about_you")
		return len(b.Expansions) == 1 && b.Expansions[0].State.Text == "heard pcm"
	}, time.Second, 10*time.Millisecond)
}

func TestAudioUploadTooLarge(t *testing.T) {
	h := newHandler(t, nil, WithMaxAudioBytes(4))

	req := httptest.NewRequest(http.MethodPost, "/threads/t1/options/audio?block=about_you&question=age_range&option=60%2B", bytes.NewBufferString("way too much audio"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var resp testResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "too_large", resp.Error.Code)
}
