package termcount

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var (
	referenceRe = regexp.MustCompile(`\[\d+(?:[,\s\-–]+\d+)*\]`)
	urlRe       = regexp.MustCompile(`https?://\S+|www\.\S+`)
	doiRe       = regexp.MustCompile(`(?i)\bdoi:\s*\S+|\b10\.\d{4,9}/\S+`)
)

// Clean strips markup, removes citation markers like [1] or [2, 3], links
// and DOIs, and collapses whitespace. Case is preserved.
func Clean(text string) string {
	text = StripMarkup(text)
	text = referenceRe.ReplaceAllString(text, " ")
	text = urlRe.ReplaceAllString(text, " ")
	text = doiRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// Tokenize splits text into case-folded word tokens. Letters, digits and
// hyphens form words; everything else separates them.
func Tokenize(text string) []string {
	fold := cases.Fold()
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := cleanToken(current.String()); word != "" {
			tokens = append(tokens, fold.String(word))
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

// cleanToken strips leading and trailing hyphens and collapses runs of them.
func cleanToken(token string) string {
	token = strings.Trim(token, "-")
	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}
	return token
}
