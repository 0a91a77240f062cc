package types

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of the conversation history.
type ChatMessage struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// Chunk is a transcript fragment with its time range in seconds.
type Chunk struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscriptionResult is the output of a single transcription call.
// Each call produces a new result with a new ID.
type TranscriptionResult struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Chunks []Chunk `json:"chunks"`
	IsBusy bool    `json:"isBusy"`
}

type ProgressStatus string

const (
	StatusInitializing ProgressStatus = "initializing"
	StatusDownloading  ProgressStatus = "downloading"
	StatusDone         ProgressStatus = "done"
)

// DownloadProgress reports model artifact loading.
type DownloadProgress struct {
	Status   ProgressStatus `json:"status"`
	File     string         `json:"file,omitempty"`
	Loaded   int64          `json:"loaded"`
	Total    int64          `json:"total"`
	Progress float64        `json:"progress"` // percent, 0..100
}

// Task selects between transcription and translation to English.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// Valid reports whether t is a known task.
func (t Task) Valid() bool {
	return t == TaskTranscribe || t == TaskTranslate
}

// Settings are the user-editable transcription settings.
type Settings struct {
	ModelID      string `json:"model"`
	Multilingual bool   `json:"multilingual"`
	Language     string `json:"language"`
	Task         Task   `json:"task"`
}
