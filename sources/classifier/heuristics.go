package classifier

import (
	"strings"
	"unicode"
)

// Closed-class function words per language. Small on purpose: they only
// have to separate the reference language from its common confusables, not
// identify arbitrary languages.
var functionWords = map[string]map[string]bool{
	"en": wordset("the a an is are was were be been and or but if of to in on at for with from this that these those it its as by not what which who will would can could should have has had do does did you your i we they he she my me so than then there here when where how why all some any"),
	"es": wordset("el la los las un una unos unas es son era eran y o pero si de a en con por para que este esta estos estas lo su sus como no se te yo tú nosotros ellos ella muy más cuando dónde está estás soy eres"),
	"fr": wordset("le la les un une des est sont était je tu il elle nous vous ils elles et ou mais si de du dans sur avec pour que ce cette ces mon ma mes son sa ses comme ne pas suis es très quand aujourd'hui où"),
	"de": wordset("der die das ein eine ist sind war waren und oder aber wenn von zu in auf mit für dass dieser diese es sein ihr als durch nicht was welche wer wird würde kann ich du wir sie er mein so dann dort hier wann wo wie warum"),
	"it": wordset("il lo la i gli le un una uno e sono era erano o ma se di a in su con per che questo questa questi queste suo sua come non io tu noi loro lui lei molto quando dove è sei"),
	"pt": wordset("o a os as um uma uns umas e são era eram ou mas se de em com por para que este esta isso seu sua como não eu você nós eles ela muito quando onde estou és"),
}

func wordset(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}

// latinScriptLanguages normally write without any non-Latin script; a
// dominant foreign script is a high-confidence DIFFERENT signal for them.
var latinScriptLanguages = map[string]bool{
	"en": true, "es": true, "fr": true, "de": true, "it": true, "pt": true, "nl": true, "pl": true, "tr": true,
}

// accentFreeLanguages don't normally use accented Latin letters at all.
var accentFreeLanguages = map[string]bool{
	"en": true,
}

func tokenize(text string) []string {
	lowered := strings.ToLower(text)
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// functionWordRatio computes the fraction of tokens that are closed-class
// function words of the given language.
func functionWordRatio(tokens []string, lang string) float64 {
	set, known := functionWords[lang]
	if !known || len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, token := range tokens {
		if set[strings.Trim(token, "'")] || set[token] {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// distinctiveWordRatio computes the fraction of tokens that are function
// words of lang but not of the reference language. Romance languages share
// closed-class words ("la", "es"); a shared word says nothing about which
// of the two languages the text is in, so only distinctive ones count
// against the reference.
func distinctiveWordRatio(tokens []string, lang, reference string) float64 {
	set, known := functionWords[lang]
	if !known || len(tokens) == 0 {
		return 0
	}
	refSet := functionWords[reference]
	hits := 0
	for _, token := range tokens {
		trimmed := strings.Trim(token, "'")
		if !set[trimmed] && !set[token] {
			continue
		}
		if refSet[trimmed] || refSet[token] {
			continue
		}
		hits++
	}
	return float64(hits) / float64(len(tokens))
}

func looksLikeURL(text string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(text))
	return strings.Contains(trimmed, "://") ||
		strings.HasPrefix(trimmed, "www.") ||
		strings.HasPrefix(trimmed, "mailto:")
}

func mostlyNumeric(text string, threshold float64) bool {
	total, digits := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			digits++
		}
	}
	return total > 0 && float64(digits)/float64(total) >= threshold
}

type scriptCounts struct {
	letters  int
	cyrillic int
	cjk      int
	hangul   int
	arabic   int
	accented int
	emoji    int
	runes    int
}

func countScripts(text string) scriptCounts {
	var c scriptCounts
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		c.runes++
		if isEmoji(r) {
			c.emoji++
			continue
		}
		if !unicode.IsLetter(r) {
			continue
		}
		c.letters++
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			c.cyrillic++
		case unicode.Is(unicode.Han, r), unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
			c.cjk++
		case unicode.Is(unicode.Hangul, r):
			c.hangul++
		case unicode.Is(unicode.Arabic, r):
			c.arabic++
		case unicode.Is(unicode.Latin, r) && r > 0x7F:
			c.accented++
		}
	}
	return c
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r == 0xFE0F || r == 0x200D:
		return true
	}
	return false
}

func (c scriptCounts) foreignScript() int {
	return c.cyrillic + c.cjk + c.hangul + c.arabic
}
