package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsingh-rishi/whisper-llama/types"
)

func TestFetchDownloadsAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/org/model/resolve/main/onnx/model.onnx", r.URL.Path)
		w.Header().Set("Content-Length", "3000")
		_, _ = w.Write([]byte(strings.Repeat("x", 3000)))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewFetcher(srv.URL+"/", dir, srv.Client(), nil)

	var events []types.DownloadProgress
	record := func(p types.DownloadProgress) { events = append(events, p) }

	require.NoError(t, f.Fetch(context.Background(), "org/model", []string{"onnx/model.onnx"}, record))

	data, err := os.ReadFile(filepath.Join(dir, "org", "model", "onnx", "model.onnx"))
	require.NoError(t, err)
	assert.Len(t, data, 3000)

	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, types.StatusInitializing, events[0].Status)
	last := events[len(events)-1]
	assert.Equal(t, types.StatusDone, last.Status)
	assert.Equal(t, int64(3000), last.Total)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Progress, events[i-1].Progress)
	}

	events = nil
	require.NoError(t, f.Fetch(context.Background(), "org/model", []string{"onnx/model.onnx"}, record))
	assert.Equal(t, int32(1), hits.Load())
	require.Len(t, events, 2)
	assert.Equal(t, types.StatusDone, events[1].Status)
	assert.Equal(t, 100.0, events[1].Progress)
}

func TestFetchFailureLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewFetcher(srv.URL, dir, nil, nil)
	err := f.Fetch(context.Background(), "org/model", []string{"config.json"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "org/model/config.json")

	_, statErr := os.Stat(filepath.Join(f.Dir("org/model"), "config.json"))
	assert.True(t, os.IsNotExist(statErr))
}
