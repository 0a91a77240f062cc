// Package server exposes the service over HTTP and a WebSocket event stream.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/whisper-llama/app"
	"github.com/mrsingh-rishi/whisper-llama/audio"
	"github.com/mrsingh-rishi/whisper-llama/events"
	"github.com/mrsingh-rishi/whisper-llama/output"
	"github.com/mrsingh-rishi/whisper-llama/types"
	"github.com/mrsingh-rishi/whisper-llama/view"
)

const source = "server"

type Server struct {
	app *fiber.App
	svc *app.App
	log *slog.Logger
}

func New(svc *app.App, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "whisper-llama",
			BodyLimit:             app.MaxAudioSize,
			DisableStartupMessage: true,
			ErrorHandler:          errorHandler,
		}),
		svc: svc,
		log: log.With(slog.String("component", source)),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/state", s.getState)
	api.Get("/settings/options", s.getSettings)
	api.Put("/settings", s.putSettings)
	api.Post("/consent", s.postConsent)
	api.Post("/recording", s.postRecording)
	api.Post("/audio/url", s.postAudioURL)
	api.Post("/transcribe", s.postTranscribe)
	api.Post("/chat", s.postChat)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.handleSocket))
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.Info("🌐 listening", slog.String("addr", addr))
	return s.app.Listen(addr)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func jsonError(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

// statusFor maps a session error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrBusy), errors.Is(err, app.ErrNoAudio):
		return fiber.StatusConflict
	case errors.Is(err, types.ErrDecode):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, types.ErrModelLoad), errors.Is(err, types.ErrInference):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusBadRequest
	}
}

func (s *Server) getState(c *fiber.Ctx) error {
	return c.JSON(s.svc.State(c.UserContext()))
}

func (s *Server) getSettings(c *fiber.Ctx) error {
	return c.JSON(view.SettingsPanel(s.svc.Transcriber.Settings()))
}

func (s *Server) putSettings(c *fiber.Ctx) error {
	var u app.SettingsUpdate
	if err := c.BodyParser(&u); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid JSON")
	}
	if err := s.svc.UpdateSettings(u); err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(view.SettingsPanel(s.svc.Transcriber.Settings()))
}

func (s *Server) postConsent(c *fiber.Ctx) error {
	s.svc.GrantConsent(c.UserContext())
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"consentRequired": false})
}

func (s *Server) postRecording(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "empty recording")
	}
	rec := audio.Recording{
		Data:     append([]byte(nil), body...),
		MimeType: audio.NormalizeMimeType(c.Get(fiber.HeaderContentType)),
	}
	if err := s.svc.LoadRecording(rec); err != nil {
		return jsonError(c, statusFor(err), types.UserMessage(err))
	}
	_, info := s.svc.Audio()
	return c.JSON(info)
}

type audioURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) postAudioURL(c *fiber.Ctx) error {
	var req audioURLRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid JSON")
	}
	if req.URL == "" {
		return jsonError(c, fiber.StatusBadRequest, "`url` field is required")
	}
	if err := s.svc.LoadURL(c.UserContext(), req.URL); err != nil {
		if errors.Is(err, types.ErrDecode) {
			return jsonError(c, fiber.StatusUnprocessableEntity, types.UserMessage(err))
		}
		if errors.Is(err, audio.ErrTooLarge) {
			return jsonError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		}
		return jsonError(c, fiber.StatusBadGateway, err.Error())
	}
	_, info := s.svc.Audio()
	return c.JSON(info)
}

func (s *Server) postTranscribe(c *fiber.Ctx) error {
	started, err := s.svc.Transcribe(c.UserContext())
	if err != nil {
		return jsonError(c, statusFor(err), err.Error())
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"started": started})
}

type chatRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) postChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid JSON")
	}
	msg, err := s.svc.Chat(c.UserContext(), req.Prompt)
	if err != nil {
		return jsonError(c, statusFor(err), types.UserMessage(err))
	}
	return c.JSON(msg)
}

// clientEvent is a control message sent by the client as a text frame.
// Audio chunks arrive as binary frames between "start" and "stop".
type clientEvent struct {
	Event    string `json:"event"` // "start", "stop", "transcribe"
	MimeType string `json:"mimeType,omitempty"`
}

func (s *Server) handleSocket(ws *websocket.Conn) {
	id := uuid.NewString()
	log := s.log.With(slog.String("client", id))
	log.Info("🔌 websocket connected")
	defer log.Info("websocket closed")

	evs := s.svc.Bus.Subscribe(id, 0)
	defer s.svc.Bus.Unsubscribe(id)

	out, err := output.NewSocketOutput(ws, evs, log)
	if err != nil {
		log.Error("socket output", slog.Any("error", err))
		return
	}
	ctx := context.Background()
	if err := out.Send(events.Envelope{
		ID:        uuid.NewString(),
		Type:      events.StateSnapshot,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      s.svc.State(ctx),
	}); err != nil {
		log.Warn("initial state not sent", slog.Any("error", err))
		return
	}
	out.Start()
	defer out.Stop()

	emit := s.svc.Bus.For(source)
	rec := audio.NewRecorder()
	for {
		mt, msg, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("websocket read error", slog.Any("error", err))
			}
			return
		}

		switch mt {
		case websocket.BinaryMessage:
			if err := rec.Write(msg); err != nil {
				log.Debug("audio chunk ignored", slog.Any("error", err))
			}
		case websocket.TextMessage:
			var ev clientEvent
			if err := json.Unmarshal(msg, &ev); err != nil {
				log.Warn("json unmarshal error", slog.Any("error", err))
				continue
			}
			switch ev.Event {
			case "start":
				rec.Start(ev.MimeType)
				log.Info("🎤 recording started")
			case "stop":
				recording, err := rec.Stop()
				if err != nil {
					log.Warn("stop without start")
					continue
				}
				log.Info("⏹️ recording stopped", slog.Int("chunks", recording.Chunks), slog.Int("bytes", len(recording.Data)))
				if err := s.svc.LoadRecording(recording); err != nil {
					emit.Emit(events.AudioFailed, events.ErrorData{Error: types.UserMessage(err)})
				}
			case "transcribe":
				if _, err := s.svc.Transcribe(ctx); err != nil {
					emit.Emit(events.TranscriptionFailed, events.ErrorData{Error: err.Error()})
				}
			default:
				log.Warn("unknown event", slog.String("event", ev.Event))
			}
		}
	}
}
