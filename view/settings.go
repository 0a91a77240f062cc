package view

import (
	"fmt"

	"github.com/mrsingh-rishi/whisper-llama/model"
	"github.com/mrsingh-rishi/whisper-llama/types"
)

type ModelOption struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	SizeMB   int    `json:"size"`
	Selected bool   `json:"selected"`
}

type LanguageOption struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

type TaskOption struct {
	Value    types.Task `json:"value"`
	Label    string     `json:"label"`
	Selected bool       `json:"selected"`
}

// Settings is the settings dialog. Language and task are only offered for
// multilingual models.
type Settings struct {
	Models       []ModelOption    `json:"models"`
	Multilingual bool             `json:"multilingual"`
	Languages    []LanguageOption `json:"languages,omitempty"`
	Tasks        []TaskOption     `json:"tasks,omitempty"`
}

func SettingsPanel(s types.Settings) Settings {
	panel := Settings{Multilingual: s.Multilingual}
	for _, opt := range model.Options(s.Multilingual) {
		panel.Models = append(panel.Models, ModelOption{
			ID:       opt.ID,
			Label:    fmt.Sprintf("%s (%dMB)", opt.ID, opt.SizeMB),
			SizeMB:   opt.SizeMB,
			Selected: opt.ID == s.ModelID,
		})
	}
	if !s.Multilingual {
		return panel
	}
	for _, lang := range model.Languages() {
		panel.Languages = append(panel.Languages, LanguageOption{
			Code:     lang.Code,
			Name:     lang.Name,
			Selected: lang.Code == s.Language,
		})
	}
	panel.Tasks = []TaskOption{
		{Value: types.TaskTranscribe, Label: "Transcribe", Selected: s.Task == types.TaskTranscribe},
		{Value: types.TaskTranslate, Label: "Translate to English", Selected: s.Task == types.TaskTranslate},
	}
	return panel
}

// ToggleMultilingual returns the settings after flipping the multilingual
// switch. The model resets to the default, English-only when turning off.
func ToggleMultilingual(s types.Settings, on bool) types.Settings {
	s.Multilingual = on
	s.ModelID = model.ResolveID(model.DefaultTranscription, on)
	return s
}
