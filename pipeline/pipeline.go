// Package pipeline is the boundary to the inference runtime: it constructs
// ready-to-run speech recognition and text generation models.
package pipeline

import (
	"context"

	"github.com/mrsingh-rishi/whisper-llama/audio"
	"github.com/mrsingh-rishi/whisper-llama/types"
)

//go:generate mockgen -destination=pipelinemock/pipeline.go -package=pipelinemock . Loader,SpeechRecognizer,TextGenerator

// Kind is the task a pipeline is built for.
type Kind string

const (
	KindSpeechRecognition Kind = "automatic-speech-recognition"
	KindTextGeneration    Kind = "text-generation"
)

// Device selects where the runtime executes the model.
type Device string

const (
	DeviceGPU Device = "gpu"
	DeviceCPU Device = "cpu"
)

// ProgressFunc receives artifact download progress while a model loads.
type ProgressFunc func(types.DownloadProgress)

// Options configure model construction.
type Options struct {
	Device   Device
	Progress ProgressFunc
}

// Report calls the progress callback if one is set.
func (o Options) Report(p types.DownloadProgress) {
	if o.Progress != nil {
		o.Progress(p)
	}
}

// RecognizeOptions configure one recognition call. Empty Language means
// detect; empty Task means transcribe.
type RecognizeOptions struct {
	Language         string
	Task             types.Task
	ReturnTimestamps bool
	ChunkLengthSec   int
	StrideLengthSec  int
}

// Message is one entry of a structured chat prompt.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// GenerateOptions are the sampling parameters for text generation.
type GenerateOptions struct {
	MaxNewTokens      int
	Temperature       float32
	TopP              float32
	RepetitionPenalty float32
	DoSample          bool
}

// SpeechRecognizer turns audio into a timestamped transcript.
type SpeechRecognizer interface {
	Recognize(ctx context.Context, buf *audio.Buffer, opts RecognizeOptions) (types.TranscriptionResult, error)
}

// TextGenerator produces the assistant reply for a structured prompt.
type TextGenerator interface {
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error)
}

// Loader constructs models. Load calls may download artifacts and report
// progress through Options.Progress.
type Loader interface {
	LoadRecognizer(ctx context.Context, modelID string, opts Options) (SpeechRecognizer, error)
	LoadGenerator(ctx context.Context, modelID string, opts Options) (TextGenerator, error)
}
