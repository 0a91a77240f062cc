package model

import (
	"strings"
	"unicode"
)

// AutoLanguage lets the recognizer detect the spoken language.
const AutoLanguage = "auto"

// languages maps whisper language codes to their names.
var languages = map[string]string{
	"en": "english", "zh": "chinese", "de": "german", "es": "spanish/castilian",
	"ru": "russian", "ko": "korean", "fr": "french", "ja": "japanese",
	"pt": "portuguese", "tr": "turkish", "pl": "polish", "ca": "catalan/valencian",
	"nl": "dutch/flemish", "ar": "arabic", "sv": "swedish", "it": "italian",
	"id": "indonesian", "hi": "hindi", "fi": "finnish", "vi": "vietnamese",
	"he": "hebrew", "uk": "ukrainian", "el": "greek", "ms": "malay",
	"cs": "czech", "ro": "romanian/moldavian/moldovan", "da": "danish", "hu": "hungarian",
	"ta": "tamil", "no": "norwegian", "th": "thai", "ur": "urdu",
	"hr": "croatian", "bg": "bulgarian", "lt": "lithuanian", "la": "latin",
	"mi": "maori", "ml": "malayalam", "cy": "welsh", "sk": "slovak",
	"te": "telugu", "fa": "persian", "lv": "latvian", "bn": "bengali",
	"sr": "serbian", "az": "azerbaijani", "sl": "slovenian", "kn": "kannada",
	"et": "estonian", "mk": "macedonian", "br": "breton", "eu": "basque",
	"is": "icelandic", "hy": "armenian", "ne": "nepali", "mn": "mongolian",
	"bs": "bosnian", "kk": "kazakh", "sq": "albanian", "sw": "swahili",
	"gl": "galician", "mr": "marathi", "pa": "punjabi/panjabi", "si": "sinhala/sinhalese",
	"km": "khmer", "sn": "shona", "yo": "yoruba", "so": "somali",
	"af": "afrikaans", "oc": "occitan", "ka": "georgian", "be": "belarusian",
	"tg": "tajik", "sd": "sindhi", "gu": "gujarati", "am": "amharic",
	"yi": "yiddish", "lo": "lao", "uz": "uzbek", "fo": "faroese",
	"ht": "haitian creole/haitian", "ps": "pashto/pushto", "tk": "turkmen", "nn": "nynorsk",
	"mt": "maltese", "sa": "sanskrit", "lb": "luxembourgish/letzeburgesch", "my": "myanmar/burmese",
	"bo": "tibetan", "tl": "tagalog", "mg": "malagasy", "as": "assamese",
	"tt": "tatar", "haw": "hawaiian", "ln": "lingala", "ha": "hausa",
	"ba": "bashkir", "jw": "javanese", "su": "sundanese",
}

// Language is a selectable language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// KnownLanguage reports whether code is in the table or is AutoLanguage.
func KnownLanguage(code string) bool {
	if code == AutoLanguage {
		return true
	}
	_, ok := languages[code]
	return ok
}

// Languages returns the table sorted by code with title-cased names.
func Languages() []Language {
	codes := sortedCodes()
	out := make([]Language, 0, len(codes))
	for _, code := range codes {
		out = append(out, Language{Code: code, Name: TitleCase(languages[code])})
	}
	return out
}

// TitleCase upper-cases the first letter of every word, where words are
// separated by anything that is not a letter or digit ("spanish/castilian"
// becomes "Spanish/Castilian").
func TitleCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range strings.ToLower(s) {
		if upper && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
		}
		b.WriteRune(r)
	}
	return b.String()
}
