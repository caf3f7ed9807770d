package langdetect

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	lingua "github.com/pemistahl/lingua-go"
)

// maxSampleBytes caps how much of a chapter is fed to the detector.
const maxSampleBytes = 4096

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectISO6391 returns the lowercase ISO 639-1 code of text, or "" when the
// sample is too short or the detector is unsure. Language models load on first use.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if len(sample) > maxSampleBytes {
		sample = trimToRuneBoundary(sample, maxSampleBytes)
	}
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 6 {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithLowAccuracyMode().
			Build()
	})
	return detector
}

func trimToRuneBoundary(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
