package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsingh-rishi/whisper-llama/types"
)

func TestSettingsPanelEnglishOnly(t *testing.T) {
	panel := SettingsPanel(types.Settings{ModelID: "onnx-community/whisper-base.en"})

	require.Len(t, panel.Models, 5)
	assert.Equal(t, "onnx-community/whisper-tiny.en", panel.Models[0].ID)
	assert.Equal(t, "onnx-community/whisper-tiny.en (120MB)", panel.Models[0].Label)
	assert.True(t, panel.Models[1].Selected)
	assert.Equal(t, "onnx-community/distil-small.en", panel.Models[4].ID)
	assert.Empty(t, panel.Languages)
	assert.Empty(t, panel.Tasks)
}

func TestSettingsPanelMultilingual(t *testing.T) {
	panel := SettingsPanel(types.Settings{
		ModelID: "onnx-community/whisper-small", Multilingual: true, Language: "fr", Task: types.TaskTranslate,
	})

	require.Len(t, panel.Models, 4, "distil hidden")
	for _, m := range panel.Models {
		assert.NotContains(t, m.ID, ".en")
	}
	assert.Greater(t, len(panel.Languages), 90)

	var french LanguageOption
	for _, l := range panel.Languages {
		if l.Code == "fr" {
			french = l
		}
	}
	assert.Equal(t, LanguageOption{Code: "fr", Name: "French", Selected: true}, french)

	require.Len(t, panel.Tasks, 2)
	assert.Equal(t, "Translate to English", panel.Tasks[1].Label)
	assert.True(t, panel.Tasks[1].Selected)
}

func TestToggleMultilingualResetsModel(t *testing.T) {
	s := types.Settings{ModelID: "onnx-community/whisper-small.en", Language: "en", Task: types.TaskTranscribe}

	on := ToggleMultilingual(s, true)
	assert.True(t, on.Multilingual)
	assert.Equal(t, "onnx-community/whisper-tiny", on.ModelID)
	assert.Equal(t, "en", on.Language)

	off := ToggleMultilingual(on, false)
	assert.False(t, off.Multilingual)
	assert.Equal(t, "onnx-community/whisper-tiny.en", off.ModelID)
}
