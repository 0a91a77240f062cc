package events

import "time"

// EventType identifies what happened.
type EventType string

const (
	TranscriptionStarted   EventType = "transcription.started"
	TranscriptionProgress  EventType = "transcription.progress"
	TranscriptionCompleted EventType = "transcription.completed"
	TranscriptionFailed    EventType = "transcription.failed"

	GenerationProgress  EventType = "generation.progress"
	GenerationStarted   EventType = "generation.started"
	GenerationCompleted EventType = "generation.completed"
	GenerationFailed    EventType = "generation.failed"
	HistoryAppended     EventType = "history.appended"

	ModelReady EventType = "model.ready"

	SettingsChanged EventType = "settings.changed"
	ConsentGranted  EventType = "consent.granted"
	AudioReady      EventType = "audio.ready"
	AudioProgress   EventType = "audio.progress"
	AudioFailed     EventType = "audio.failed"

	// StateSnapshot carries the full render state; sent once per connection.
	StateSnapshot EventType = "state"
)

// Envelope wraps every event sent over the bus.
type Envelope struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// ModelReadyData is sent once a model handle has been constructed.
type ModelReadyData struct {
	ModelID string `json:"model"`
}

// ErrorData carries a user-readable failure.
type ErrorData struct {
	Error string `json:"error"`
}

// AudioReadyData describes a decoded audio buffer.
type AudioReadyData struct {
	Source   string  `json:"source"`
	MimeType string  `json:"mimeType"`
	Seconds  float64 `json:"seconds"`
}

// AudioProgressData reports an audio download in [0, 1].
type AudioProgressData struct {
	Fraction float64 `json:"fraction"`
}
