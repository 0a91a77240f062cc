package workers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mrsingh-rishi/whisper-llama/events"
	"github.com/mrsingh-rishi/whisper-llama/pipeline"
	"github.com/mrsingh-rishi/whisper-llama/types"
)

// Transcriber is the part of the transcription session the orchestrator uses.
type Transcriber interface {
	Preload(ctx context.Context) error
}

// Responder is the part of the generation session the orchestrator uses.
type Responder interface {
	InitModel(ctx context.Context) (pipeline.TextGenerator, error)
	GenerateResponse(ctx context.Context, prompt string) error
}

// ConsentChecker reports whether the user agreed to download models.
type ConsentChecker interface {
	ConsentGranted(ctx context.Context) bool
}

type OrchestratorConfig struct {
	Transcriber     Transcriber
	Responder       Responder
	Consent         ConsentChecker
	ConsentRequired bool
	Bus             *events.Bus
	Logger          *slog.Logger
}

// Orchestrator forwards each finished transcript to the generation session.
type Orchestrator struct {
	ctx    context.Context
	cancel context.CancelFunc

	transcriber     Transcriber
	responder       Responder
	consent         ConsentChecker
	consentRequired bool
	bus             *events.Bus
	log             *slog.Logger

	mu       sync.Mutex
	lastID   string
	loopDone chan struct{}
	running  sync.WaitGroup
}

func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}
	if cfg.Responder == nil {
		return nil, fmt.Errorf("responder is required")
	}
	if cfg.ConsentRequired && cfg.Consent == nil {
		return nil, fmt.Errorf("consent checker is required when consent is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		ctx:             ctx,
		cancel:          cancel,
		transcriber:     cfg.Transcriber,
		responder:       cfg.Responder,
		consent:         cfg.Consent,
		consentRequired: cfg.ConsentRequired,
		bus:             cfg.Bus,
		log:             log.With(slog.String("component", "orchestrator")),
	}, nil
}

// Mount loads both models in parallel once consent is given. Load failures
// are logged and otherwise ignored; the sessions retry on next use.
func (o *Orchestrator) Mount(ctx context.Context) bool {
	if o.consentRequired && !o.consent.ConsentGranted(ctx) {
		o.log.Info("⏸️ waiting for consent before loading models")
		return false
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := o.transcriber.Preload(ctx); err != nil {
			o.log.Warn("speech model preload failed", slog.Any("error", err))
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := o.responder.InitModel(ctx); err != nil {
			o.log.Warn("generation model preload failed", slog.Any("error", err))
		}
	}()
	wg.Wait()
	o.log.Info("🚀 models mounted")
	return true
}

// Start consumes transcription results from the bus until Stop.
func (o *Orchestrator) Start() {
	if o.bus == nil {
		return
	}
	o.mu.Lock()
	if o.loopDone != nil {
		o.mu.Unlock()
		return
	}
	done := make(chan struct{})
	o.loopDone = done
	o.mu.Unlock()

	const subscriber = "orchestrator"
	results := o.bus.Subscribe(subscriber, 0)
	go func() {
		defer close(done)
		defer o.bus.Unsubscribe(subscriber)
		for {
			select {
			case <-o.ctx.Done():
				return
			case env, ok := <-results:
				if !ok {
					return
				}
				if env.Type != events.TranscriptionCompleted {
					continue
				}
				if res, ok := env.Data.(types.TranscriptionResult); ok {
					o.HandleTranscript(o.ctx, res)
				}
			}
		}
	}()
}

// HandleTranscript starts a generation for res unless it is still busy, has
// no text or was already handled. It reports whether a generation started.
func (o *Orchestrator) HandleTranscript(ctx context.Context, res types.TranscriptionResult) bool {
	text := strings.TrimSpace(res.Text)
	if res.IsBusy || text == "" {
		return false
	}
	o.mu.Lock()
	if res.ID != "" && res.ID == o.lastID {
		o.mu.Unlock()
		return false
	}
	o.lastID = res.ID
	o.mu.Unlock()

	o.log.Info("🎯 transcript received, generating response", slog.String("transcription", res.ID))
	o.running.Add(1)
	go func() {
		defer o.running.Done()
		if err := o.responder.GenerateResponse(ctx, text); err != nil {
			o.log.Warn("response not generated", slog.String("transcription", res.ID), slog.Any("error", err))
		}
	}()
	return true
}

// Stop ends the bus loop and waits for it and for the generations it
// started.
func (o *Orchestrator) Stop() {
	o.cancel()
	o.mu.Lock()
	done := o.loopDone
	o.mu.Unlock()
	if done != nil {
		<-done
	}
	o.running.Wait()
}
