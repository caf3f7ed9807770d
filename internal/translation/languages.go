package translation

import "sort"

type LanguageOption struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Native string `json:"native,omitempty"`
}

type languageLabel struct {
	english string
	native  string
}

var translationLanguageLabels = map[string]languageLabel{
	"ar": {english: "Arabic", native: "العربية"},
	"de": {english: "German", native: "Deutsch"},
	"en": {english: "English", native: "English"},
	"es": {english: "Spanish", native: "Español"},
	"fr": {english: "French", native: "Français"},
	"id": {english: "Indonesian", native: "Bahasa Indonesia"},
	"it": {english: "Italian", native: "Italiano"},
	"ja": {english: "Japanese", native: "日本語"},
	"ko": {english: "Korean", native: "한국어"},
	"pl": {english: "Polish", native: "Polski"},
	"pt": {english: "Portuguese", native: "Português"},
	"ru": {english: "Russian", native: "Русский"},
	"th": {english: "Thai", native: "ไทย"},
	"tr": {english: "Turkish", native: "Türkçe"},
	"uk": {english: "Ukrainian", native: "Українська"},
	"vi": {english: "Vietnamese", native: "Tiếng Việt"},
	"zh": {english: "Chinese", native: "中文"},
}

// TranslationLanguageOptions lists the suggested target languages, sorted by code.
// Providers accept other codes too; the list only feeds language pickers.
func TranslationLanguageOptions() []LanguageOption {
	codes := make([]string, 0, len(translationLanguageLabels))
	for code := range translationLanguageLabels {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	options := make([]LanguageOption, 0, len(codes))
	for _, code := range codes {
		labels := translationLanguageLabels[code]
		options = append(options, LanguageOption{
			Code:   code,
			Label:  labels.english,
			Native: labels.native,
		})
	}
	return options
}
