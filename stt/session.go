// Package stt owns the speech recognition model and runs one transcription
// at a time.
package stt

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/mrsingh-rishi/whisper-llama/audio"
	"github.com/mrsingh-rishi/whisper-llama/events"
	"github.com/mrsingh-rishi/whisper-llama/model"
	"github.com/mrsingh-rishi/whisper-llama/pipeline"
	"github.com/mrsingh-rishi/whisper-llama/store"
	"github.com/mrsingh-rishi/whisper-llama/types"
)

const source = "stt"

// State is a point-in-time copy of the session.
type State struct {
	Settings       types.Settings             `json:"settings"`
	IsBusy         bool                       `json:"isBusy"`
	IsModelLoading bool                       `json:"isModelLoading"`
	Progress       []types.DownloadProgress   `json:"progressItems"`
	Output         *types.TranscriptionResult `json:"output,omitempty"`
	Error          string                     `json:"error,omitempty"`
}

type Config struct {
	Loader   pipeline.Loader
	Device   pipeline.Device
	Settings types.Settings
	Bus      *events.Bus
	Store    *store.Store
	Logger   *slog.Logger
}

// Session is the transcription session. Settings changes apply to the next
// Start; a run in progress keeps the settings it started with.
type Session struct {
	loader pipeline.Loader
	device pipeline.Device
	emit   events.Emitter
	store  *store.Store
	log    *slog.Logger

	busy  atomic.Bool
	loads singleflight.Group

	mu           sync.RWMutex
	settings     types.Settings
	models       map[string]pipeline.SpeechRecognizer
	modelLoading bool
	progress     []types.DownloadProgress
	output       *types.TranscriptionResult
	errMsg       string
}

func NewSession(cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	settings := cfg.Settings
	switch e, ok := model.Lookup(settings.ModelID); {
	case settings.ModelID == "":
		settings.ModelID = model.ResolveID(model.DefaultTranscription, settings.Multilingual)
	case ok:
		// catalog ids follow the multilingual switch like the settings panel
		settings.ModelID = model.ResolveID(e.Key, settings.Multilingual)
	}
	if settings.Language == "" {
		settings.Language = "en"
	}
	if settings.Task == "" {
		settings.Task = types.TaskTranscribe
	}
	return &Session{
		loader:   cfg.Loader,
		device:   cfg.Device,
		emit:     cfg.Bus.For(source),
		store:    cfg.Store,
		log:      log.With(slog.String("component", source)),
		settings: settings,
		models:   make(map[string]pipeline.SpeechRecognizer),
	}
}

func (s *Session) SetModel(id string) {
	s.updateSettings(func(st *types.Settings) { st.ModelID = id })
}

func (s *Session) SetMultilingual(on bool) {
	s.updateSettings(func(st *types.Settings) { st.Multilingual = on })
}

// SetLanguage accepts a known language code or model.AutoLanguage.
func (s *Session) SetLanguage(code string) error {
	if !model.KnownLanguage(code) {
		return errors.Errorf("unknown language %q", code)
	}
	s.updateSettings(func(st *types.Settings) { st.Language = code })
	return nil
}

func (s *Session) SetTask(task types.Task) error {
	if !task.Valid() {
		return errors.Errorf("unknown task %q", task)
	}
	s.updateSettings(func(st *types.Settings) { st.Task = task })
	return nil
}

func (s *Session) updateSettings(fn func(*types.Settings)) {
	s.mu.Lock()
	fn(&s.settings)
	settings := s.settings
	s.mu.Unlock()
	s.emit.Emit(events.SettingsChanged, settings)
}

func (s *Session) Settings() types.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Start launches a transcription of buf in the background. It returns false
// without doing anything when buf is nil or a transcription is running.
// The run is detached from ctx cancellation.
func (s *Session) Start(ctx context.Context, buf *audio.Buffer) bool {
	if buf == nil || !s.busy.CompareAndSwap(false, true) {
		return false
	}
	settings := s.Settings()
	id := s.begin()
	go func() {
		defer s.busy.Store(false)
		_, _ = s.run(context.WithoutCancel(ctx), id, buf, settings)
	}()
	return true
}

// Transcribe runs a transcription and waits for it.
func (s *Session) Transcribe(ctx context.Context, buf *audio.Buffer) (types.TranscriptionResult, error) {
	if buf == nil {
		return types.TranscriptionResult{}, types.DecodeError(errors.New("no audio"))
	}
	if !s.busy.CompareAndSwap(false, true) {
		return types.TranscriptionResult{}, types.ErrBusy
	}
	defer s.busy.Store(false)
	settings := s.Settings()
	return s.run(ctx, s.begin(), buf, settings)
}

// begin resets the output to an in-progress result and returns its id.
func (s *Session) begin() string {
	placeholder := types.TranscriptionResult{ID: uuid.NewString(), IsBusy: true}
	s.mu.Lock()
	s.output = &placeholder
	s.errMsg = ""
	s.mu.Unlock()
	s.emit.Emit(events.TranscriptionStarted, placeholder)
	return placeholder.ID
}

func (s *Session) run(ctx context.Context, id string, buf *audio.Buffer, settings types.Settings) (types.TranscriptionResult, error) {
	log := s.log.With(slog.String("transcription", id), slog.String("model", settings.ModelID))
	log.Info("🎙️ transcription started", slog.Duration("audio", buf.Duration()))

	res, err := s.recognize(ctx, buf, settings)
	if err != nil {
		msg := types.UserMessage(err)
		s.mu.Lock()
		s.output = nil
		s.errMsg = msg
		s.mu.Unlock()
		log.Error("❌ transcription failed", slog.Any("error", err))
		s.emit.Emit(events.TranscriptionFailed, events.ErrorData{Error: msg})
		return types.TranscriptionResult{}, err
	}

	res.ID = id
	res.IsBusy = false
	s.mu.Lock()
	s.output = &res
	s.mu.Unlock()
	log.Info("📝 transcription complete", slog.Int("chunks", len(res.Chunks)))
	s.emit.Emit(events.TranscriptionCompleted, res)
	return res, nil
}

func (s *Session) recognize(ctx context.Context, buf *audio.Buffer, settings types.Settings) (types.TranscriptionResult, error) {
	rec, err := s.recognizer(ctx, settings.ModelID)
	if err != nil {
		return types.TranscriptionResult{}, err
	}
	res, err := rec.Recognize(ctx, buf, RecognizeOptions(settings))
	if err != nil {
		if !errors.Is(err, types.ErrInference) {
			err = types.InferenceError(err)
		}
		return types.TranscriptionResult{}, err
	}
	return res, nil
}

// Preload constructs the recognizer for the current model.
func (s *Session) Preload(ctx context.Context) error {
	_, err := s.recognizer(ctx, s.Settings().ModelID)
	return err
}

// recognizer returns the cached handle for id, loading it at most once even
// under concurrent callers.
func (s *Session) recognizer(ctx context.Context, id string) (pipeline.SpeechRecognizer, error) {
	s.mu.RLock()
	rec, ok := s.models[id]
	s.mu.RUnlock()
	if ok {
		return rec, nil
	}

	v, err, _ := s.loads.Do(id, func() (any, error) {
		s.mu.Lock()
		if rec, ok := s.models[id]; ok {
			s.mu.Unlock()
			return rec, nil
		}
		s.modelLoading = true
		s.progress = nil
		s.mu.Unlock()

		s.log.Info("⏳ loading speech model", slog.String("model", id))
		rec, err := s.loader.LoadRecognizer(ctx, id, pipeline.Options{
			Device:   s.device,
			Progress: func(p types.DownloadProgress) { s.onProgress(id, p) },
		})

		s.mu.Lock()
		s.modelLoading = false
		s.progress = nil
		if err == nil {
			s.models[id] = rec
		}
		s.mu.Unlock()

		if err != nil {
			if !errors.Is(err, types.ErrModelLoad) {
				err = types.ModelLoadError(err)
			}
			return nil, err
		}
		s.store.MarkModelReady(ctx, id)
		s.emit.Emit(events.ModelReady, events.ModelReadyData{ModelID: id})
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(pipeline.SpeechRecognizer), nil
}

// onProgress keeps one item per file and drops a file once it is done.
func (s *Session) onProgress(modelID string, p types.DownloadProgress) {
	s.mu.Lock()
	idx := -1
	for i, item := range s.progress {
		if item.File == p.File {
			idx = i
			break
		}
	}
	switch {
	case p.Status == types.StatusDone && idx >= 0:
		s.progress = append(s.progress[:idx], s.progress[idx+1:]...)
	case p.Status == types.StatusDone:
	case idx >= 0:
		s.progress[idx] = p
	default:
		s.progress = append(s.progress, p)
	}
	items := make([]types.DownloadProgress, len(s.progress))
	copy(items, s.progress)
	s.mu.Unlock()

	s.store.RecordProgress(context.Background(), modelID, p.Progress)
	s.emit.Emit(events.TranscriptionProgress, items)
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		Settings:       s.settings,
		IsBusy:         s.busy.Load(),
		IsModelLoading: s.modelLoading,
		Error:          s.errMsg,
	}
	if len(s.progress) > 0 {
		st.Progress = make([]types.DownloadProgress, len(s.progress))
		copy(st.Progress, s.progress)
	}
	if s.output != nil {
		out := *s.output
		out.Chunks = append([]types.Chunk(nil), s.output.Chunks...)
		st.Output = &out
	}
	return st
}

// RecognizeOptions derives the recognition parameters for settings. Language
// and task only apply to multilingual models.
func RecognizeOptions(settings types.Settings) pipeline.RecognizeOptions {
	opts := pipeline.RecognizeOptions{
		ReturnTimestamps: true,
		ChunkLengthSec:   30,
		StrideLengthSec:  5,
	}
	if model.IsDistil(settings.ModelID) {
		opts.ChunkLengthSec = 20
		opts.StrideLengthSec = 3
	}
	if settings.Multilingual {
		if settings.Language != model.AutoLanguage {
			opts.Language = settings.Language
		}
		opts.Task = settings.Task
	}
	return opts
}
