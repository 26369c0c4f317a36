package classifier

import (
	"strings"

	"golang.org/x/text/language"
)

// languageSynonyms maps spelled-out language names to ISO 639-1 codes so
// that "english" matches "English (US)" and the like.
var languageSynonyms = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"castilian":  "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"russian":    "ru",
	"ukrainian":  "uk",
	"chinese":    "zh",
	"mandarin":   "zh",
	"japanese":   "ja",
	"korean":     "ko",
	"arabic":     "ar",
	"dutch":      "nl",
	"polish":     "pl",
	"turkish":    "tr",
	"hindi":      "hi",
}

// NormalizeLanguage reduces a human or BCP 47 language designation to a
// lowercase ISO 639-1 base code. Unknown inputs come back lowercased with
// any region decoration stripped, which still allows prefix matching.
func NormalizeLanguage(designation string) string {
	cleaned := strings.ToLower(strings.TrimSpace(designation))
	if cleaned == "" {
		return ""
	}

	if idx := strings.IndexAny(cleaned, " ("); idx > 0 {
		cleaned = cleaned[:idx]
	}

	if code, ok := languageSynonyms[cleaned]; ok {
		return code
	}

	if tag, err := language.Parse(cleaned); err == nil {
		if base, conf := tag.Base(); conf != language.No {
			return base.String()
		}
	}

	return cleaned
}

// SameLanguage reports whether two language designations refer to the same
// language, tolerating name-versus-code and regional variants.
func SameLanguage(a, b string) bool {
	na, nb := NormalizeLanguage(a), NormalizeLanguage(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	return strings.HasPrefix(na, nb) || strings.HasPrefix(nb, na)
}
