// Package openai implements the pipeline backends on top of an
// OpenAI-compatible endpoint, such as a local whisper.cpp or llama.cpp server.
package openai

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/mrsingh-rishi/whisper-llama/audio"
	"github.com/mrsingh-rishi/whisper-llama/hub"
	"github.com/mrsingh-rishi/whisper-llama/model"
	"github.com/mrsingh-rishi/whisper-llama/pipeline"
	"github.com/mrsingh-rishi/whisper-llama/types"
)

func init() {
	pipeline.Backends.Register("openai", func(settings map[string]string) (pipeline.Loader, error) {
		cfg := Config{
			APIKey:  settings["api_key"],
			BaseURL: settings["base_url"],
		}
		if settings["prefetch"] == "true" {
			cfg.Fetcher = hub.NewFetcher(settings["hub_url"], settings["cache_dir"], nil, nil)
		}
		return New(cfg), nil
	})
}

// Config configures the backend. A nil Fetcher skips artifact prefetching.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Fetcher    *hub.Fetcher
	Logger     *slog.Logger
}

// Loader builds recognizers and generators that share one API client.
type Loader struct {
	client  *goopenai.Client
	fetcher *hub.Fetcher
	log     *slog.Logger
}

func New(cfg Config) *Loader {
	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Loader{
		client:  goopenai.NewClientWithConfig(oc),
		fetcher: cfg.Fetcher,
		log:     log.With(slog.String("backend", "openai")),
	}
}

func (l *Loader) LoadRecognizer(ctx context.Context, modelID string, opts pipeline.Options) (pipeline.SpeechRecognizer, error) {
	if err := l.prepare(ctx, modelID, opts); err != nil {
		return nil, err
	}
	l.log.Info("🎙️ speech recognizer ready", slog.String("model", modelID), slog.String("device", string(opts.Device)))
	return &Recognizer{client: l.client, model: modelID}, nil
}

func (l *Loader) LoadGenerator(ctx context.Context, modelID string, opts pipeline.Options) (pipeline.TextGenerator, error) {
	if err := l.prepare(ctx, modelID, opts); err != nil {
		return nil, err
	}
	l.log.Info("🦙 text generator ready", slog.String("model", modelID), slog.String("device", string(opts.Device)))
	return &Generator{client: l.client, model: modelID}, nil
}

// prepare mirrors the model artifacts locally when a fetcher is configured.
func (l *Loader) prepare(ctx context.Context, modelID string, opts pipeline.Options) error {
	if modelID == "" {
		return types.ModelLoadError(errors.New("model id is required"))
	}
	files := model.Files(modelID)
	if l.fetcher == nil || len(files) == 0 {
		opts.Report(types.DownloadProgress{Status: types.StatusInitializing, File: modelID})
		opts.Report(types.DownloadProgress{Status: types.StatusDone, File: modelID, Progress: 100})
		return nil
	}
	if err := l.fetcher.Fetch(ctx, modelID, files, opts.Progress); err != nil {
		return types.ModelLoadError(err)
	}
	dir, _ := l.ModelDir(modelID)
	l.log.Info("📦 model files cached; point the inference server at this directory",
		slog.String("model", modelID), slog.String("dir", dir))
	return nil
}

// ModelDir returns the local directory prefetched artifacts of modelID are
// written to. The inference server behind the endpoint has to load the model
// from there; ok is false when prefetching is off.
func (l *Loader) ModelDir(modelID string) (dir string, ok bool) {
	if l.fetcher == nil {
		return "", false
	}
	return l.fetcher.Dir(modelID), true
}

// Recognizer transcribes through the audio transcription and translation APIs.
type Recognizer struct {
	client *goopenai.Client
	model  string
}

func (r *Recognizer) Recognize(ctx context.Context, buf *audio.Buffer, opts pipeline.RecognizeOptions) (types.TranscriptionResult, error) {
	if buf.Empty() {
		return types.TranscriptionResult{}, types.InferenceError(errors.New("empty audio buffer"))
	}

	f, err := os.CreateTemp("", "whisper-llama-*.wav")
	if err != nil {
		return types.TranscriptionResult{}, types.InferenceError(errors.Wrap(err, "create temp file"))
	}
	defer os.Remove(f.Name())
	if err := audio.EncodeWAV(f, buf); err != nil {
		f.Close()
		return types.TranscriptionResult{}, types.InferenceError(err)
	}
	if err := f.Close(); err != nil {
		return types.TranscriptionResult{}, types.InferenceError(errors.Wrap(err, "close temp file"))
	}

	req := goopenai.AudioRequest{
		Model:    r.model,
		FilePath: f.Name(),
		Format:   goopenai.AudioResponseFormatVerboseJSON,
		Language: opts.Language,
	}
	if opts.ReturnTimestamps {
		req.TimestampGranularities = []goopenai.TranscriptionTimestampGranularity{
			goopenai.TranscriptionTimestampGranularitySegment,
		}
	}

	var resp goopenai.AudioResponse
	if opts.Task == types.TaskTranslate {
		resp, err = r.client.CreateTranslation(ctx, req)
	} else {
		resp, err = r.client.CreateTranscription(ctx, req)
	}
	if err != nil {
		return types.TranscriptionResult{}, types.InferenceError(errors.Wrap(err, "recognize speech"))
	}

	result := types.TranscriptionResult{Text: strings.TrimSpace(resp.Text)}
	for _, seg := range resp.Segments {
		result.Chunks = append(result.Chunks, types.Chunk{Text: seg.Text, Start: seg.Start, End: seg.End})
	}
	return result, nil
}

// Generator produces replies with chat completions.
type Generator struct {
	client *goopenai.Client
	model  string
}

func (g *Generator) Generate(ctx context.Context, messages []pipeline.Message, opts pipeline.GenerateOptions) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    make([]goopenai.ChatCompletionMessage, 0, len(messages)),
		MaxTokens:   opts.MaxNewTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	// chat completions have no multiplicative repetition penalty; 1.0 means none
	if opts.RepetitionPenalty > 1 {
		req.FrequencyPenalty = opts.RepetitionPenalty - 1
	}
	if !opts.DoSample {
		// zero is dropped from the request, so use the smallest positive value
		req.Temperature = math.SmallestNonzeroFloat32
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", types.InferenceError(errors.Wrap(err, "generate"))
	}
	if len(resp.Choices) == 0 {
		return "", types.InferenceError(errors.New("generate: no choices returned"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
