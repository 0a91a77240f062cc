package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchReportsProgress(t *testing.T) {
	body := strings.Repeat("a", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wave")
		w.Header().Set("Content-Length", "4096")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	var seen []float64
	data, mime, err := Fetch(context.Background(), srv.Client(), srv.URL, 0, func(f float64) {
		seen = append(seen, f)
	})
	require.NoError(t, err)

	assert.Equal(t, body, string(data))
	assert.Equal(t, "audio/wav", mime)
	require.NotEmpty(t, seen)
	assert.Equal(t, 1.0, seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := Fetch(context.Background(), nil, srv.URL, 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchRejectsDeclaredOversize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "2048")
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	_, _, err := Fetch(context.Background(), srv.Client(), srv.URL, 1024, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestFetchRejectsUndeclaredOversize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// flushing first forces a chunked response without a content length
		w.(http.Flusher).Flush()
		for i := 0; i < 4; i++ {
			_, _ = w.Write(make([]byte, 512))
		}
	}))
	defer srv.Close()

	_, _, err := Fetch(context.Background(), srv.Client(), srv.URL, 1024, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))

	data, _, err := Fetch(context.Background(), srv.Client(), srv.URL, 4096, nil)
	require.NoError(t, err)
	assert.Len(t, data, 2048)
}
