package form

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tbxark/intakeform/types"
	"github.com/tbxark/intakeform/voice"
)

type fakeCapturer struct {
	started []string
	stopped []types.OptionKey
	err     error
	out     chan voice.Transcript
}

func (c *fakeCapturer) StartCapture(ctx context.Context, key types.OptionKey, token string) error {
	if c.err != nil {
		return c.err
	}
	c.started = append(c.started, token)
	return nil
}

func (c *fakeCapturer) StopCapture(key types.OptionKey) {
	c.stopped = append(c.stopped, key)
}

func (c *fakeCapturer) Transcripts() <-chan voice.Transcript {
	return c.out
}

func sequentialTokens() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("tok-%d", n)
	}
}

func recordingEngine(c voice.Capturer, opts ...Option) *Engine {
	opts = append([]Option{WithCapturer(c), WithTokenSource(sequentialTokens()), WithDispatcher(&fakeDispatcher{})}, opts...)
	return New([]types.Block{multiBlock(), nextSteps()}, opts...)
}

func TestStartRecordingReplacesPreviousCapture(t *testing.T) {
	c := &fakeCapturer{}
	e := recordingEngine(c)
	key := types.NewOptionKey("ns1", "", "o1")

	first, err := e.StartRecording(context.Background(), key)
	require.NoError(t, err)
	second, err := e.StartRecording(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, []string{"tok-1", "tok-2"}, c.started)
	assert.Equal(t, []types.OptionKey{key}, c.stopped)
	assert.True(t, e.IsRecording(key))

	assert.False(t, e.ApplyTranscript(voice.Transcript{Key: key, Token: first, Text: "old"}))
	assert.True(t, e.ApplyTranscript(voice.Transcript{Key: key, Token: second, Text: "new"}))
	assert.Equal(t, "new", e.Expansion(key).Text)
	assert.False(t, e.IsRecording(key))
}

func TestRecordingsForDifferentKeysAreIndependent(t *testing.T) {
	c := &fakeCapturer{}
	e := recordingEngine(c)
	k1 := types.NewOptionKey("ns1", "", "o1")
	k2 := types.NewOptionKey("ns1", "", "o2")

	t1, err := e.StartRecording(context.Background(), k1)
	require.NoError(t, err)
	t2, err := e.StartRecording(context.Background(), k2)
	require.NoError(t, err)
	assert.Empty(t, c.stopped)

	assert.True(t, e.ApplyTranscript(voice.Transcript{Key: k2, Token: t2, Text: "two"}))
	assert.True(t, e.ApplyTranscript(voice.Transcript{Key: k1, Token: t1, Text: "one"}))
	assert.Equal(t, "one", e.Expansion(k1).Text)
	assert.Equal(t, "two", e.Expansion(k2).Text)
}

func TestToggleRecording(t *testing.T) {
	c := &fakeCapturer{}
	e := recordingEngine(c)
	key := types.NewOptionKey("ns1", "", "o1")

	on, err := e.ToggleRecording(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = e.ToggleRecording(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, e.IsRecording(key))
	assert.Equal(t, []types.OptionKey{key}, c.stopped)

	assert.False(t, e.ApplyTranscript(voice.Transcript{Key: key, Token: "tok-1", Text: "late"}))
	assert.Empty(t, e.Expansion(key).Text)
}

func TestApplyTranscriptAppendsAndOpensPanel(t *testing.T) {
	e := recordingEngine(&fakeCapturer{})
	key := types.NewOptionKey("B", "q2", "a")
	e.ToggleMultiple("B", "q2", "a")
	e.SetExpansionText(key, "started Monday")

	token, err := e.StartRecording(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, e.ApplyTranscript(voice.Transcript{Key: key, Token: token, Text: " worse at night "}))

	assert.Equal(t, types.Expansion{Expanded: true, Text: "started Monday worse at night"}, e.Expansion(key))
}

func TestApplyTranscriptDropsDeselectedOption(t *testing.T) {
	e := recordingEngine(&fakeCapturer{})
	key := types.NewOptionKey("B", "q2", "a")
	e.ToggleMultiple("B", "q2", "a")

	token, err := e.StartRecording(context.Background(), key)
	require.NoError(t, err)
	e.ToggleMultiple("B", "q2", "a")

	assert.False(t, e.ApplyTranscript(voice.Transcript{Key: key, Token: token, Text: "hello"}))
	assert.Equal(t, types.Expansion{}, e.Expansion(key))
}

func TestApplyTranscriptDropsSubmittedBlock(t *testing.T) {
	c := &fakeCapturer{}
	e := recordingEngine(c)
	key := types.NewOptionKey("B", "q2", "a")
	e.SelectSingle("B", "q1", "yes")
	e.ToggleMultiple("B", "q2", "a")

	token, err := e.StartRecording(context.Background(), key)
	require.NoError(t, err)
	_, err = e.Submit(context.Background(), "B")
	require.NoError(t, err)

	assert.Contains(t, c.stopped, key)
	assert.False(t, e.ApplyTranscript(voice.Transcript{Key: key, Token: token, Text: "hello"}))
	_, err = e.StartRecording(context.Background(), key)
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestApplyTranscriptDropsReplacedTurn(t *testing.T) {
	old := recordingEngine(&fakeCapturer{})
	key := types.NewOptionKey("ns1", "", "o1")
	token, err := old.StartRecording(context.Background(), key)
	require.NoError(t, err)

	next := recordingEngine(&fakeCapturer{})
	assert.False(t, next.ApplyTranscript(voice.Transcript{Key: key, Token: token, Text: "hello"}))
	assert.Empty(t, next.Expansion(key).Text)
}

func TestApplyTranscriptErrors(t *testing.T) {
	r := &reports{}
	e := recordingEngine(&fakeCapturer{}, WithReporter(r))
	key := types.NewOptionKey("ns1", "", "o1")

	token, err := e.StartRecording(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, e.ApplyTranscript(voice.Transcript{Key: key, Token: token, Err: voice.ErrNoSpeech}))
	assert.Empty(t, r.messages)
	assert.False(t, e.IsRecording(key))

	token, err = e.StartRecording(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, e.ApplyTranscript(voice.Transcript{Key: key, Token: token, Err: errors.New("network")}))
	assert.Equal(t, []string{VoiceFailedMessage}, r.messages)
}

func TestStartRecordingFailure(t *testing.T) {
	r := &reports{}
	c := &fakeCapturer{err: errors.New("no microphone")}
	e := recordingEngine(c, WithReporter(r))
	key := types.NewOptionKey("ns1", "", "o1")

	_, err := e.StartRecording(context.Background(), key)
	assert.Error(t, err)
	assert.False(t, e.IsRecording(key))
	assert.Equal(t, []string{VoiceUnavailableMessage}, r.messages)
}

func TestTranscriptRaceOverChannel(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	src := voice.AudioSourceFunc(func(ctx context.Context, key types.OptionKey, token string) ([]byte, error) {
		select {
		case <-release:
			return []byte("pcm"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	tr := voice.TranscriberFunc(func(ctx context.Context, audio []byte) (string, error) {
		return "from the mic", nil
	})
	c := voice.NewSpeechCapturer(src, tr, nil)
	defer c.Close()

	e := New([]types.Block{nextSteps()}, WithCapturer(c))
	kept := types.NewOptionKey("ns1", "", "o1")
	stopped := types.NewOptionKey("ns1", "", "o2")

	_, err := e.StartRecording(context.Background(), kept)
	require.NoError(t, err)
	_, err = e.StartRecording(context.Background(), stopped)
	require.NoError(t, err)
	e.StopRecording(stopped)
	close(release)

	select {
	case got := <-c.Transcripts():
		assert.Equal(t, kept, got.Key)
		assert.True(t, e.ApplyTranscript(got))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transcript")
	}
	assert.Equal(t, "from the mic", e.Expansion(kept).Text)
	assert.Empty(t, e.Expansion(stopped).Text)
}
