package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsingh-rishi/whisper-llama/llm"
	"github.com/mrsingh-rishi/whisper-llama/stt"
	"github.com/mrsingh-rishi/whisper-llama/types"
)

func TestRenderAIPriority(t *testing.T) {
	progress := &types.DownloadProgress{Status: types.StatusDownloading, Loaded: 1 << 20, Total: 4 << 20, Progress: 25}
	history := []types.ChatMessage{
		{Role: types.RoleUser, Content: "hi"},
		{Role: types.RoleAssistant, Content: "hello"},
	}

	tests := []struct {
		name  string
		state llm.State
		want  PanelKind
	}{
		{"nothing", llm.State{}, PanelNone},
		{"user turn only", llm.State{History: history[:1]}, PanelNone},
		{"response", llm.State{History: history}, PanelResponse},
		{"error beats response", llm.State{History: history, Error: "Failed to generate response"}, PanelError},
		{"loading beats error", llm.State{History: history, Error: "x", IsLoading: true}, PanelLoading},
		{"progress beats everything", llm.State{History: history, Error: "x", IsLoading: true, Progress: progress}, PanelProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderAI(tt.state).Kind)
		})
	}

	p := RenderAI(llm.State{History: history})
	assert.Equal(t, "hello", p.Response)
	assert.Len(t, p.History, 2)

	p = RenderAI(llm.State{Progress: progress})
	require.NotNil(t, p.Progress)
	assert.Equal(t, "1.00MB / 4.00MB (25%)", p.Progress.Label)
	assert.Equal(t, "Downloading", p.Progress.Status)

	assert.NotNil(t, RenderAI(llm.State{}).History)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00", FormatTimestamp(0))
	assert.Equal(t, "00:07", FormatTimestamp(7.9))
	assert.Equal(t, "02:05", FormatTimestamp(125))
	assert.Equal(t, "01:01:01", FormatTimestamp(3661))
	assert.Equal(t, "00:00", FormatTimestamp(-3))
}

func TestRenderTranscript(t *testing.T) {
	st := stt.State{
		IsBusy: true,
		Output: &types.TranscriptionResult{
			IsBusy: true,
			Chunks: []types.Chunk{{Text: " hello", Start: 0, End: 1}, {Text: " world", Start: 61.2, End: 62}},
		},
		Progress: []types.DownloadProgress{{Status: types.StatusInitializing, File: "config.json"}},
	}
	p := RenderTranscript(st)
	require.Len(t, p.Lines, 2)
	assert.Equal(t, TranscriptLine{Timestamp: "01:01", Text: " world", Busy: true}, p.Lines[1])
	require.Len(t, p.Progress, 1)
	assert.Equal(t, "config.json", p.Progress[0].File)
	assert.True(t, p.IsBusy)

	assert.Empty(t, RenderTranscript(stt.State{}).Lines)
}

func TestRenderPage(t *testing.T) {
	page := Render(llm.State{}, stt.State{Settings: types.Settings{ModelID: "onnx-community/whisper-tiny.en"}}, true)
	assert.True(t, page.ConsentRequired)
	assert.Equal(t, PanelNone, page.AI.Kind)
	assert.Len(t, page.Settings.Models, 5)
}
