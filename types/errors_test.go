package types

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  error
		kind error
		msg  string
	}{
		{"model load", ModelLoadError(cause), ErrModelLoad, "Failed to load model"},
		{"inference", InferenceError(cause), ErrInference, "Failed to run inference"},
		{"decode", DecodeError(cause), ErrDecode, "Failed to decode audio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.kind))
			assert.True(t, errors.Is(tt.err, cause))
			assert.Equal(t, tt.msg, UserMessage(tt.err))
		})
	}
}

func TestErrorKindSurvivesWrapping(t *testing.T) {
	err := errors.Wrap(ModelLoadError(errors.New("404")), "load whisper")
	assert.True(t, errors.Is(err, ErrModelLoad))
	assert.False(t, errors.Is(err, ErrInference))
	assert.Equal(t, "Failed to load model", UserMessage(err))
}

func TestUserMessageFallsBackToErrorText(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
}

func TestTaskValid(t *testing.T) {
	assert.True(t, TaskTranscribe.Valid())
	assert.True(t, TaskTranslate.Valid())
	assert.False(t, Task("summarize").Valid())
}
