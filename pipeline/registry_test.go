package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsingh-rishi/whisper-llama/types"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Has("fake"))

	var got map[string]string
	r.Register("fake", func(settings map[string]string) (Loader, error) {
		got = settings
		return nil, errors.New("not really")
	})
	r.Register("alpha", func(map[string]string) (Loader, error) { return nil, nil })

	assert.True(t, r.Has("fake"))
	assert.Equal(t, []string{"alpha", "fake"}, r.List())

	_, err := r.Create("fake", map[string]string{"k": "v"})
	require.EqualError(t, err, "not really")
	assert.Equal(t, "v", got["k"])

	_, err = r.Create("missing", nil)
	assert.EqualError(t, err, `unknown inference backend "missing"`)
}

func TestOptionsReport(t *testing.T) {
	done := types.DownloadProgress{Status: types.StatusDone, Progress: 100}
	assert.NotPanics(t, func() { Options{}.Report(done) })

	var got []types.DownloadProgress
	Options{Progress: func(p types.DownloadProgress) { got = append(got, p) }}.Report(done)
	assert.Equal(t, []types.DownloadProgress{done}, got)
}
