// Package view turns session snapshots into the render state the client
// displays: which AI panel is shown, the transcript lines and the settings
// panel.
package view

import (
	"fmt"

	"github.com/mrsingh-rishi/whisper-llama/llm"
	"github.com/mrsingh-rishi/whisper-llama/model"
	"github.com/mrsingh-rishi/whisper-llama/stt"
	"github.com/mrsingh-rishi/whisper-llama/types"
)

// PanelKind is the single thing the AI panel shows.
type PanelKind string

const (
	PanelNone     PanelKind = "none"
	PanelProgress PanelKind = "progress"
	PanelLoading  PanelKind = "loading"
	PanelError    PanelKind = "error"
	PanelResponse PanelKind = "response"
)

type ProgressView struct {
	Status  string  `json:"status"`
	File    string  `json:"file,omitempty"`
	Percent float64 `json:"percent"`
	Label   string  `json:"label"`
}

type AIPanel struct {
	Kind     PanelKind           `json:"kind"`
	Progress *ProgressView       `json:"progress,omitempty"`
	Error    string              `json:"error,omitempty"`
	Response string              `json:"response,omitempty"`
	History  []types.ChatMessage `json:"history"`
}

type TranscriptLine struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
	Busy      bool   `json:"busy"`
}

type TranscriptPanel struct {
	Lines          []TranscriptLine `json:"lines"`
	IsBusy         bool             `json:"isBusy"`
	IsModelLoading bool             `json:"isModelLoading"`
	Progress       []ProgressView   `json:"progress,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// Page is everything the client renders.
type Page struct {
	AI              AIPanel         `json:"ai"`
	Transcript      TranscriptPanel `json:"transcript"`
	Settings        Settings        `json:"settings"`
	ConsentRequired bool            `json:"consentRequired"`
}

// Render builds the page. needConsent is true while the consent dialog must
// be shown.
func Render(ai llm.State, tr stt.State, needConsent bool) Page {
	return Page{
		AI:              RenderAI(ai),
		Transcript:      RenderTranscript(tr),
		Settings:        SettingsPanel(tr.Settings),
		ConsentRequired: needConsent,
	}
}

// RenderAI picks the panel by priority: download progress, then the loading
// spinner, then an error, then the latest response.
func RenderAI(st llm.State) AIPanel {
	p := AIPanel{Kind: PanelNone, History: st.History}
	if p.History == nil {
		p.History = []types.ChatMessage{}
	}
	switch {
	case st.Progress != nil:
		p.Kind = PanelProgress
		pv := Progress(*st.Progress)
		p.Progress = &pv
	case st.IsLoading:
		p.Kind = PanelLoading
	case st.Error != "":
		p.Kind = PanelError
		p.Error = st.Error
	default:
		if reply, ok := lastAssistant(st.History); ok {
			p.Kind = PanelResponse
			p.Response = reply
		}
	}
	return p
}

func lastAssistant(history []types.ChatMessage) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == types.RoleAssistant {
			return history[i].Content, true
		}
	}
	return "", false
}

func RenderTranscript(st stt.State) TranscriptPanel {
	p := TranscriptPanel{
		IsBusy:         st.IsBusy,
		IsModelLoading: st.IsModelLoading,
		Error:          st.Error,
		Lines:          []TranscriptLine{},
	}
	for _, item := range st.Progress {
		p.Progress = append(p.Progress, Progress(item))
	}
	if st.Output != nil {
		for _, c := range st.Output.Chunks {
			p.Lines = append(p.Lines, TranscriptLine{
				Timestamp: FormatTimestamp(c.Start),
				Text:      c.Text,
				Busy:      st.Output.IsBusy,
			})
		}
	}
	return p
}

// Progress formats a download as "<loaded>MB / <total>MB (<pct>%)".
func Progress(p types.DownloadProgress) ProgressView {
	const mb = 1024 * 1024
	return ProgressView{
		Status:  model.TitleCase(string(p.Status)),
		File:    p.File,
		Percent: p.Progress,
		Label: fmt.Sprintf("%.2fMB / %.2fMB (%d%%)",
			float64(p.Loaded)/mb, float64(p.Total)/mb, int(p.Progress)),
	}
}

// FormatTimestamp renders seconds as mm:ss, or hh:mm:ss past the hour.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, total%3600/60, total%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
