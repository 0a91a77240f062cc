// Package llm owns the text generation model and the conversation history.
package llm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/mrsingh-rishi/whisper-llama/events"
	"github.com/mrsingh-rishi/whisper-llama/model"
	"github.com/mrsingh-rishi/whisper-llama/pipeline"
	"github.com/mrsingh-rishi/whisper-llama/store"
	"github.com/mrsingh-rishi/whisper-llama/types"
)

const (
	source = "llm"

	msgLoadFailed     = "Failed to load model"
	msgGenerateFailed = "Failed to generate response"
)

// DefaultSampling returns the generation parameters used when none are
// configured.
func DefaultSampling() pipeline.GenerateOptions {
	return pipeline.GenerateOptions{
		MaxNewTokens:      512,
		Temperature:       0.7,
		TopP:              0.95,
		RepetitionPenalty: 1.1,
		DoSample:          true,
	}
}

// State is a point-in-time copy of the session.
type State struct {
	IsLoading      bool                    `json:"isLoading"`
	IsModelLoading bool                    `json:"isModelLoading"`
	Progress       *types.DownloadProgress `json:"downloadProgress,omitempty"`
	History        []types.ChatMessage     `json:"history"`
	Error          string                  `json:"error,omitempty"`
}

type Config struct {
	Loader       pipeline.Loader
	Device       pipeline.Device
	ModelID      string
	SystemPrompt string
	Sampling     pipeline.GenerateOptions
	Bus          *events.Bus
	Store        *store.Store
	Logger       *slog.Logger
}

// Session is the generation session. Only one generation runs at a time and
// an issued generation is never cancelled.
type Session struct {
	loader   pipeline.Loader
	device   pipeline.Device
	modelID  string
	system   string
	sampling pipeline.GenerateOptions
	emit     events.Emitter
	store    *store.Store
	log      *slog.Logger

	slot  sync.Mutex
	loads singleflight.Group

	mu           sync.RWMutex
	generator    pipeline.TextGenerator
	loading      bool
	modelLoading bool
	progress     *types.DownloadProgress
	files        map[string]types.DownloadProgress
	history      []types.ChatMessage
	errMsg       string
}

func NewSession(cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.ModelID == "" {
		cfg.ModelID = model.DefaultGeneration
	}
	if cfg.Sampling == (pipeline.GenerateOptions{}) {
		cfg.Sampling = DefaultSampling()
	}
	return &Session{
		loader:   cfg.Loader,
		device:   cfg.Device,
		modelID:  cfg.ModelID,
		system:   cfg.SystemPrompt,
		sampling: cfg.Sampling,
		emit:     cfg.Bus.For(source),
		store:    cfg.Store,
		log:      log.With(slog.String("component", source), slog.String("model", cfg.ModelID)),
	}
}

// InitModel returns the generator, loading it on first use. Concurrent
// callers share a single load; a failed load is retried by the next call.
func (s *Session) InitModel(ctx context.Context) (pipeline.TextGenerator, error) {
	s.mu.RLock()
	gen := s.generator
	s.mu.RUnlock()
	if gen != nil {
		return gen, nil
	}

	v, err, _ := s.loads.Do(s.modelID, func() (any, error) {
		s.mu.Lock()
		if s.generator != nil {
			gen := s.generator
			s.mu.Unlock()
			return gen, nil
		}
		s.modelLoading = true
		s.files = make(map[string]types.DownloadProgress)
		s.progress = &types.DownloadProgress{Status: types.StatusInitializing}
		s.mu.Unlock()

		s.log.Info("🦙 loading generation model", slog.String("device", string(s.device)))
		gen, err := s.loader.LoadGenerator(ctx, s.modelID, pipeline.Options{Device: s.device, Progress: s.onProgress})

		s.mu.Lock()
		s.modelLoading = false
		s.progress = nil
		s.files = nil
		if err == nil {
			s.generator = gen
		} else {
			s.errMsg = msgLoadFailed
		}
		s.mu.Unlock()

		if err != nil {
			if !errors.Is(err, types.ErrModelLoad) {
				err = types.ModelLoadError(err)
			}
			s.log.Error("❌ generation model failed to load", slog.Any("error", err))
			s.emit.Emit(events.GenerationFailed, events.ErrorData{Error: msgLoadFailed})
			return nil, err
		}
		s.log.Info("✅ generation model ready")
		s.store.MarkModelReady(ctx, s.modelID)
		s.emit.Emit(events.ModelReady, events.ModelReadyData{ModelID: s.modelID})
		return gen, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(pipeline.TextGenerator), nil
}

// onProgress folds per-file progress into one value for the whole load.
// The percentage never moves backwards within a load.
func (s *Session) onProgress(p types.DownloadProgress) {
	s.mu.Lock()
	if s.files == nil {
		s.mu.Unlock()
		return
	}
	s.files[p.File] = p

	agg := aggregate(s.files)
	if s.progress != nil && agg.Progress < s.progress.Progress {
		agg.Progress = s.progress.Progress
	}
	agg.File = p.File
	s.progress = &agg
	s.mu.Unlock()

	s.store.RecordProgress(context.Background(), s.modelID, agg.Progress)
	s.emit.Emit(events.GenerationProgress, agg)
}

func aggregate(files map[string]types.DownloadProgress) types.DownloadProgress {
	var agg types.DownloadProgress
	var sum float64
	done := 0
	downloading := false
	for _, f := range files {
		agg.Loaded += f.Loaded
		agg.Total += f.Total
		sum += f.Progress
		switch f.Status {
		case types.StatusDone:
			done++
		case types.StatusDownloading:
			downloading = true
		}
	}
	switch {
	case agg.Total > 0:
		agg.Progress = float64(agg.Loaded) * 100 / float64(agg.Total)
	case len(files) > 0:
		agg.Progress = sum / float64(len(files))
	}
	switch {
	case len(files) > 0 && done == len(files):
		agg.Status = types.StatusDone
	case downloading || done > 0:
		agg.Status = types.StatusDownloading
	default:
		agg.Status = types.StatusInitializing
	}
	return agg
}

// GenerateResponse appends prompt as a user message and generates the
// assistant reply. It returns types.ErrBusy, leaving the history untouched,
// when another generation is running. The user message is recorded before
// the model is loaded or invoked; on failure no assistant message is added.
func (s *Session) GenerateResponse(ctx context.Context, prompt string) error {
	_, err := s.Reply(ctx, prompt)
	return err
}

// Reply is GenerateResponse returning the assistant message it appended.
func (s *Session) Reply(ctx context.Context, prompt string) (types.ChatMessage, error) {
	if !s.slot.TryLock() {
		return types.ChatMessage{}, types.ErrBusy
	}
	defer s.slot.Unlock()
	ctx = context.WithoutCancel(ctx)

	user := newMessage(types.RoleUser, prompt)
	s.mu.Lock()
	prior := append([]types.ChatMessage(nil), s.history...)
	s.history = append(s.history, user)
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
	s.emit.Emit(events.HistoryAppended, user)
	s.emit.Emit(events.GenerationStarted, user)

	gen, err := s.InitModel(ctx)
	if err != nil {
		// InitModel already published the load failure
		s.mu.Lock()
		s.loading = false
		s.errMsg = msgLoadFailed
		s.mu.Unlock()
		return types.ChatMessage{}, err
	}

	messages := s.buildMessages(prior, user)
	start := time.Now()
	reply, err := gen.Generate(ctx, messages, s.sampling)
	if err != nil {
		s.log.Error("❌ generation failed", slog.Any("error", err))
		s.fail(msgGenerateFailed)
		if !errors.Is(err, types.ErrInference) {
			err = types.InferenceError(err)
		}
		return types.ChatMessage{}, err
	}

	assistant := newMessage(types.RoleAssistant, reply)
	s.mu.Lock()
	s.history = append(s.history, assistant)
	s.loading = false
	s.mu.Unlock()

	s.log.Info("💬 response generated", slog.Duration("took", time.Since(start)), slog.Int("chars", len(reply)))
	s.emit.Emit(events.HistoryAppended, assistant)
	s.emit.Emit(events.GenerationCompleted, assistant)
	return assistant, nil
}

func (s *Session) fail(msg string) {
	s.mu.Lock()
	s.loading = false
	s.errMsg = msg
	s.mu.Unlock()
	s.emit.Emit(events.GenerationFailed, events.ErrorData{Error: msg})
}

// buildMessages lays out the prompt: system instruction, prior turns, then
// the new user turn.
func (s *Session) buildMessages(prior []types.ChatMessage, user types.ChatMessage) []pipeline.Message {
	messages := make([]pipeline.Message, 0, len(prior)+2)
	if s.system != "" {
		messages = append(messages, pipeline.Message{Role: pipeline.RoleSystem, Content: s.system})
	}
	for _, m := range prior {
		messages = append(messages, pipeline.Message{Role: string(m.Role), Content: m.Content})
	}
	return append(messages, pipeline.Message{Role: pipeline.RoleUser, Content: user.Content})
}

func newMessage(role types.Role, content string) types.ChatMessage {
	return types.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// History returns a copy of the conversation so far.
func (s *Session) History() []types.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.ChatMessage(nil), s.history...)
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		IsLoading:      s.loading,
		IsModelLoading: s.modelLoading,
		History:        append([]types.ChatMessage{}, s.history...),
		Error:          s.errMsg,
	}
	if s.progress != nil {
		p := *s.progress
		st.Progress = &p
	}
	return st
}
