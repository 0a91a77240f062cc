// Package model holds the fixed speech model catalog and language table.
package model

import (
	"sort"
	"strings"
)

const (
	// DefaultTranscription is the model selected on first start.
	DefaultTranscription = "onnx-community/whisper-tiny"
	// DefaultGeneration is the text generation model.
	DefaultGeneration = "onnx-community/Llama-3.2-1B-Instruct-q4f16"

	englishSuffix = ".en"
)

// Entry is a catalog model with its approximate download size.
type Entry struct {
	Key    string
	SizeMB int
	Files  []string
}

var whisperFiles = []string{
	"config.json",
	"generation_config.json",
	"preprocessor_config.json",
	"tokenizer.json",
	"tokenizer_config.json",
	"onnx/encoder_model_fp16.onnx",
	"onnx/decoder_model_merged_q4.onnx",
}

var catalog = []Entry{
	{Key: "onnx-community/whisper-tiny", SizeMB: 120, Files: whisperFiles},
	{Key: "onnx-community/whisper-base", SizeMB: 206, Files: whisperFiles},
	{Key: "onnx-community/whisper-small", SizeMB: 586, Files: whisperFiles},
	{Key: "onnx-community/whisper-large-v3-turbo", SizeMB: 1604, Files: whisperFiles},
	{Key: "onnx-community/distil-small.en", SizeMB: 538, Files: whisperFiles},
}

var generationFiles = map[string][]string{
	DefaultGeneration: {
		"config.json",
		"generation_config.json",
		"tokenizer.json",
		"tokenizer_config.json",
		"onnx/model_q4f16.onnx",
	},
}

// Option is a model as offered in the settings panel.
type Option struct {
	Key    string `json:"key"`
	ID     string `json:"id"`
	SizeMB int    `json:"size"`
}

// IsDistil reports whether id names an English-only distil checkpoint.
func IsDistil(id string) bool {
	return strings.Contains(id, "/distil-")
}

// ResolveID returns the id to load for a catalog key. English-only
// checkpoints get the ".en" suffix unless multilingual is on.
func ResolveID(key string, multilingual bool) string {
	if multilingual || IsDistil(key) || strings.HasSuffix(key, englishSuffix) {
		return key
	}
	return key + englishSuffix
}

// Options lists the models selectable under the given multilingual setting.
// Distil models are English-only and are hidden when multilingual is on.
func Options(multilingual bool) []Option {
	var out []Option
	for _, e := range catalog {
		if multilingual && IsDistil(e.Key) {
			continue
		}
		out = append(out, Option{Key: e.Key, ID: ResolveID(e.Key, multilingual), SizeMB: e.SizeMB})
	}
	return out
}

// Lookup finds the catalog entry for a resolved id.
func Lookup(id string) (Entry, bool) {
	for _, e := range catalog {
		if e.Key == id || ResolveID(e.Key, false) == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Files returns the artifacts to prefetch for a model id, transcription or
// generation. Unknown ids have no files.
func Files(id string) []string {
	if e, ok := Lookup(id); ok {
		return e.Files
	}
	return generationFiles[id]
}

// IsEnglishOnly reports whether id can only transcribe English.
func IsEnglishOnly(id string) bool {
	return IsDistil(id) || strings.HasSuffix(id, englishSuffix)
}

func sortedCodes() []string {
	codes := make([]string, 0, len(languages))
	for code := range languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
