package voice

import "strings"

const DefaultLanguage = "en-US"

var recognitionLanguages = map[string]string{
	"en": "en-US",
	"hi": "hi-IN",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"pt": "pt-BR",
	"ar": "ar-SA",
	"zh": "zh-CN",
	"ja": "ja-JP",
	"ru": "ru-RU",
	"bn": "bn-BD",
	"ta": "ta-IN",
}

// RecognitionLanguage maps a short UI language code to the BCP-47 tag used
// for recognition. Full tags pass through; unknown codes fall back to en-US.
func RecognitionLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if strings.Contains(lang, "-") {
		return lang
	}
	if tag, ok := recognitionLanguages[strings.ToLower(lang)]; ok {
		return tag
	}
	return DefaultLanguage
}
