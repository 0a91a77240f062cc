// Package app wires the sessions, the orchestrator and their collaborators
// into one running service.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/whisper-llama/audio"
	"github.com/mrsingh-rishi/whisper-llama/config"
	"github.com/mrsingh-rishi/whisper-llama/events"
	"github.com/mrsingh-rishi/whisper-llama/llm"
	"github.com/mrsingh-rishi/whisper-llama/pipeline"
	"github.com/mrsingh-rishi/whisper-llama/store"
	"github.com/mrsingh-rishi/whisper-llama/stt"
	"github.com/mrsingh-rishi/whisper-llama/types"
	"github.com/mrsingh-rishi/whisper-llama/view"
	"github.com/mrsingh-rishi/whisper-llama/workers"
)

const source = "app"

// MaxAudioSize caps uploaded and downloaded audio files.
const MaxAudioSize = 64 << 20

// ErrNoAudio is returned when a transcription is requested before any audio
// was loaded.
var ErrNoAudio = errors.New("no audio loaded")

// App owns every long-lived component of the service.
type App struct {
	cfg *config.Config
	log *slog.Logger

	Bus          *events.Bus
	Store        *store.Store
	Transcriber  *stt.Session
	Responder    *llm.Session
	Orchestrator *workers.Orchestrator
	HTTPClient   *http.Client

	emit    events.Emitter
	granted atomic.Bool

	mu      sync.RWMutex
	audio   *audio.Buffer
	audioIn events.AudioReadyData
}

// New builds the service with the configured inference backend.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	loader, err := pipeline.Backends.Create(cfg.Backend, cfg.BackendSettings())
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	st, err := store.Open(cfg.StorePath, log)
	if err != nil {
		// the store only holds hints; run without it
		log.Warn("store unavailable, flags will not persist", slog.Any("error", err))
		st = nil
	}
	return NewWithLoader(cfg, log, loader, st)
}

// NewWithLoader builds the service around an existing loader and store. A
// nil store disables persistence.
func NewWithLoader(cfg *config.Config, log *slog.Logger, loader pipeline.Loader, st *store.Store) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if loader == nil {
		return nil, errors.New("loader is required")
	}
	if log == nil {
		log = slog.Default()
	}
	bus := events.NewBus(log)
	device := pipeline.Device(cfg.Device)

	transcriber := stt.NewSession(stt.Config{
		Loader: loader,
		Device: device,
		Settings: types.Settings{
			ModelID:      cfg.TranscriptionModel,
			Multilingual: cfg.Multilingual,
			Task:         types.TaskTranscribe,
		},
		Bus:    bus,
		Store:  st,
		Logger: log,
	})
	responder := llm.NewSession(llm.Config{
		Loader:       loader,
		Device:       device,
		ModelID:      cfg.GenerationModel,
		SystemPrompt: cfg.SystemPrompt,
		Sampling: pipeline.GenerateOptions{
			MaxNewTokens:      cfg.MaxNewTokens,
			Temperature:       cfg.Temperature,
			TopP:              cfg.TopP,
			RepetitionPenalty: cfg.RepetitionPenalty,
			DoSample:          cfg.DoSample,
		},
		Bus:    bus,
		Store:  st,
		Logger: log,
	})
	a := &App{
		cfg:         cfg,
		log:         log,
		Bus:         bus,
		Store:       st,
		Transcriber: transcriber,
		Responder:   responder,
		HTTPClient:  &http.Client{Timeout: 5 * time.Minute},
		emit:        bus.For(source),
	}
	orch, err := workers.NewOrchestrator(workers.OrchestratorConfig{
		Transcriber:     transcriber,
		Responder:       responder,
		Consent:         a,
		ConsentRequired: cfg.ConsentRequired,
		Bus:             bus,
		Logger:          log,
	})
	if err != nil {
		return nil, err
	}
	a.Orchestrator = orch
	return a, nil
}

// Start runs the orchestrator and, when consent is already on record, loads
// the models in the background.
func (a *App) Start(ctx context.Context) {
	a.Orchestrator.Start()
	if !a.NeedsConsent(ctx) {
		go a.Orchestrator.Mount(context.WithoutCancel(ctx))
	}
}

func (a *App) Close() error {
	a.Orchestrator.Stop()
	return a.Store.Close()
}

// ConsentGranted reports whether consent was given in this process or is on
// record in the store.
func (a *App) ConsentGranted(ctx context.Context) bool {
	return a.granted.Load() || a.Store.ConsentGranted(ctx)
}

// NeedsConsent reports whether the consent dialog must still be shown.
func (a *App) NeedsConsent(ctx context.Context) bool {
	return a.cfg.ConsentRequired && !a.ConsentGranted(ctx)
}

// GrantConsent records consent and starts loading the models.
func (a *App) GrantConsent(ctx context.Context) {
	a.granted.Store(true)
	a.Store.GrantConsent(ctx)
	a.log.Info("✅ consent granted")
	a.emit.Emit(events.ConsentGranted, nil)
	go a.Orchestrator.Mount(context.WithoutCancel(ctx))
}

// State renders the current page.
func (a *App) State(ctx context.Context) view.Page {
	return view.Render(a.Responder.Snapshot(), a.Transcriber.Snapshot(), a.NeedsConsent(ctx))
}

// SettingsUpdate is a partial settings change. Nil fields are left alone.
type SettingsUpdate struct {
	Model        *string `json:"model,omitempty"`
	Multilingual *bool   `json:"multilingual,omitempty"`
	Language     *string `json:"language,omitempty"`
	Task         *string `json:"task,omitempty"`
}

// UpdateSettings applies u to the transcription session. Flipping
// multilingual resets the model unless u also names one.
func (a *App) UpdateSettings(u SettingsUpdate) error {
	if u.Language != nil {
		if err := a.Transcriber.SetLanguage(*u.Language); err != nil {
			return err
		}
	}
	if u.Task != nil {
		if err := a.Transcriber.SetTask(types.Task(*u.Task)); err != nil {
			return err
		}
	}
	if u.Multilingual != nil && *u.Multilingual != a.Transcriber.Settings().Multilingual {
		next := view.ToggleMultilingual(a.Transcriber.Settings(), *u.Multilingual)
		a.Transcriber.SetModel(next.ModelID)
		a.Transcriber.SetMultilingual(next.Multilingual)
	}
	if u.Model != nil {
		a.Transcriber.SetModel(*u.Model)
	}
	return nil
}

// LoadRecording decodes a finished recording and makes it the current audio.
func (a *App) LoadRecording(rec audio.Recording) error {
	return a.setAudio(rec.Data, rec.MimeType, "recording")
}

// LoadURL downloads audio, publishing progress, and makes it the current
// audio.
func (a *App) LoadURL(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("url is required")
	}
	a.emit.Emit(events.AudioProgress, events.AudioProgressData{Fraction: 0})
	data, mime, err := audio.Fetch(ctx, a.HTTPClient, url, MaxAudioSize, func(f float64) {
		a.emit.Emit(events.AudioProgress, events.AudioProgressData{Fraction: f})
	})
	if err != nil {
		a.log.Warn("audio download failed", slog.String("url", url), slog.Any("error", err))
		return err
	}
	return a.setAudio(data, mime, "url")
}

func (a *App) setAudio(data []byte, mime, from string) error {
	buf, err := audio.DecodeBytes(data)
	if err != nil {
		return err
	}
	ready := events.AudioReadyData{
		Source:   from,
		MimeType: audio.NormalizeMimeType(mime),
		Seconds:  buf.Duration().Seconds(),
	}
	a.mu.Lock()
	a.audio = buf
	a.audioIn = ready
	a.mu.Unlock()
	a.log.Info("🔊 audio loaded", slog.String("source", from), slog.Float64("seconds", ready.Seconds))
	a.emit.Emit(events.AudioReady, ready)
	return nil
}

// Audio returns the current audio buffer, if any.
func (a *App) Audio() (*audio.Buffer, events.AudioReadyData) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.audio, a.audioIn
}

// Transcribe starts transcribing the current audio in the background.
func (a *App) Transcribe(ctx context.Context) (bool, error) {
	buf, _ := a.Audio()
	if buf == nil {
		return false, ErrNoAudio
	}
	return a.Transcriber.Start(ctx, buf), nil
}

// Chat sends a typed prompt and waits for the reply.
func (a *App) Chat(ctx context.Context, prompt string) (types.ChatMessage, error) {
	if strings.TrimSpace(prompt) == "" {
		return types.ChatMessage{}, errors.New("prompt is required")
	}
	return a.Responder.Reply(ctx, prompt)
}

// Ask transcribes buf and answers the transcript, waiting for both. It is
// meant for one-shot use without Start, which would answer the transcript a
// second time.
func (a *App) Ask(ctx context.Context, buf *audio.Buffer) (types.TranscriptionResult, types.ChatMessage, error) {
	res, err := a.Transcriber.Transcribe(ctx, buf)
	if err != nil {
		return res, types.ChatMessage{}, err
	}
	if strings.TrimSpace(res.Text) == "" {
		return res, types.ChatMessage{}, errors.New("nothing was said")
	}
	reply, err := a.Chat(ctx, strings.TrimSpace(res.Text))
	return res, reply, err
}
