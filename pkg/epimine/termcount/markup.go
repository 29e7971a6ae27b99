package termcount

import (
	"strings"

	"golang.org/x/net/html"
)

// StripMarkup removes HTML/XML tags from raw paper text, keeping their text
// content; script and style bodies are dropped. Text is only treated as
// markup when it holds a closing tag, a self-closing tag or a comment, so
// inequalities such as "A<B" survive untouched.
func StripMarkup(text string) string {
	if !hasMarkup(text) {
		return text
	}

	z := html.NewTokenizer(strings.NewReader(text))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if isRawTextTag(name) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if isRawTextTag(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

func hasMarkup(text string) bool {
	return strings.Contains(text, "</") || strings.Contains(text, "/>") || strings.Contains(text, "<!--")
}

func isRawTextTag(name []byte) bool {
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}
