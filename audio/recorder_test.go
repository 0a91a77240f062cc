package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCollectsChunks(t *testing.T) {
	r := NewRecorder()
	assert.ErrorIs(t, r.Write([]byte("x")), ErrNotRecording)

	r.Start("")
	assert.True(t, r.Recording())
	require.NoError(t, r.Write([]byte("ab")))
	require.NoError(t, r.Write(nil))
	require.NoError(t, r.Write([]byte("cd")))

	rec, err := r.Stop()
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), rec.Data)
	assert.Equal(t, 2, rec.Chunks)
	assert.Equal(t, "audio/wav", rec.MimeType)
	assert.False(t, r.Recording())

	_, err = r.Stop()
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestRecorderStartDiscardsPrevious(t *testing.T) {
	r := NewRecorder()
	r.Start("audio/webm")
	require.NoError(t, r.Write([]byte("old")))
	r.Start("audio/webm")
	require.NoError(t, r.Write([]byte("new")))

	rec, err := r.Stop()
	require.NoError(t, err)
	assert.Equal(t, "new", string(rec.Data))
	assert.Equal(t, "audio/webm", rec.MimeType)
}

func TestNormalizeMimeType(t *testing.T) {
	assert.Equal(t, "audio/wav", NormalizeMimeType("audio/wave"))
	assert.Equal(t, "audio/wav", NormalizeMimeType(""))
	assert.Equal(t, "audio/mpeg", NormalizeMimeType("audio/mpeg"))
}
