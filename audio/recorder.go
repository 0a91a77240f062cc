package audio

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/whisper-llama/queue"
)

// ErrNotRecording is returned when chunks arrive outside a recording.
var ErrNotRecording = errors.New("not recording")

// Recording is a finished capture as an encoded blob.
type Recording struct {
	Data     []byte
	MimeType string
	Chunks   int
}

// Recorder collects audio chunks streamed by a client between Start and Stop.
type Recorder struct {
	mu        sync.Mutex
	recording bool
	mimeType  string
	chunks    *queue.Queue[[]byte]
}

func NewRecorder() *Recorder {
	return &Recorder{chunks: queue.New[[]byte]()}
}

// Start begins a new recording, discarding anything collected before.
func (r *Recorder) Start(mimeType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks.Drain()
	r.recording = true
	r.mimeType = NormalizeMimeType(mimeType)
}

// Write appends a chunk to the current recording.
func (r *Recorder) Write(chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return ErrNotRecording
	}
	if len(chunk) == 0 {
		return nil
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)
	r.chunks.Enqueue(c)
	return nil
}

// Stop ends the recording and returns the concatenated blob.
func (r *Recorder) Stop() (Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return Recording{}, ErrNotRecording
	}
	r.recording = false
	n := r.chunks.Len()
	return Recording{
		Chunks:   n,
		Data:     bytes.Join(r.chunks.Drain(), nil),
		MimeType: r.mimeType,
	}, nil
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// NormalizeMimeType defaults missing or "audio/wave" types to "audio/wav".
func NormalizeMimeType(mimeType string) string {
	if mimeType == "" || mimeType == "audio/wave" {
		return "audio/wav"
	}
	return mimeType
}
