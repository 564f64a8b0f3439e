package voice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tbxark/intakeform/types"
)

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	src := FileSource{Dir: dir}
	assert.Equal(t, filepath.Join(dir, "b1.q1.o1.wav"), src.Path(key))
	assert.Equal(t, filepath.Join(dir, "ns.call.flac"), FileSource{Dir: dir, Ext: ".flac"}.Path(types.NewOptionKey("ns", "", "call")))

	_, err := src.Record(context.Background(), key, "tok-1")
	assert.ErrorIs(t, err, ErrNoSpeech)

	require.NoError(t, os.WriteFile(src.Path(key), []byte("pcm"), 0o600))
	audio, err := src.Record(context.Background(), key, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("pcm"), audio)
}

func TestUploadsPutWithoutRecord(t *testing.T) {
	u := NewUploads()
	assert.ErrorIs(t, u.Put(key, []byte("pcm")), ErrNotRecording)
}

func TestUploadCapturerTranscribesUpload(t *testing.T) {
	defer goleak.VerifyNone(t)
	var got []byte
	c := NewUploadCapturer(TranscriberFunc(func(ctx context.Context, audio []byte) (string, error) {
		got = audio
		return "tuesday works", nil
	}), nil)
	defer c.Close()

	require.NoError(t, c.StartCapture(context.Background(), key, "tok-1"))
	require.NoError(t, c.Upload(context.Background(), key, []byte("pcm")))

	tr := waitTranscript(t, c.Transcripts())
	assert.Equal(t, "tok-1", tr.Token)
	assert.Equal(t, "tuesday works", tr.Text)
	assert.Equal(t, []byte("pcm"), got)

	assert.ErrorIs(t, c.Upload(context.Background(), key, []byte("late")), ErrNotRecording)
}

func TestUploadCapturerStopDropsSlot(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewUploadCapturer(echoTranscriber("x"), nil)
	defer c.Close()

	require.NoError(t, c.StartCapture(context.Background(), key, "tok-1"))
	c.StopCapture(key)
	assertNoTranscript(t, c.Transcripts())
}

func TestUploadsRestartKeepsNewSlot(t *testing.T) {
	ctx := context.Background()
	u := NewUploads()
	u.Expect(key, "tok-1")
	u.Expect(key, "tok-2")

	_, err := u.Record(ctx, key, "tok-1")
	assert.ErrorIs(t, err, ErrNotRecording)

	require.NoError(t, u.Put(key, []byte("pcm")))
	audio, err := u.Record(ctx, key, "tok-2")
	require.NoError(t, err)
	assert.Equal(t, []byte("pcm"), audio)
}

func TestUploadsCancelledRecordLeavesNewSlot(t *testing.T) {
	defer goleak.VerifyNone(t)
	u := NewUploads()
	u.Expect(key, "tok-1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := u.Record(ctx, key, "tok-1")
		done <- err
	}()
	// the old Record is waiting, or has not started and will find the new slot
	u.Expect(key, "tok-2")
	cancel()
	err := <-done
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, ErrNotRecording), "got %v", err)

	require.NoError(t, u.Put(key, []byte("pcm")))
}
