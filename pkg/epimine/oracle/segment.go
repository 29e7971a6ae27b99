package oracle

import "strings"

var defaultAbbreviations = []string{
	"e.g", "i.e", "al", "fig", "figs", "dr", "vs", "cf", "approx", "ref", "refs", "eq", "no", "vol", "pp", "ca",
}

// Segmenter splits text into sentences.
type Segmenter struct {
	abbreviations map[string]struct{}
}

// NewSegmenter creates a segmenter that does not break after common
// scholarly abbreviations ("e.g.", "et al.", "Fig.").
func NewSegmenter(extraAbbreviations ...string) *Segmenter {
	s := &Segmenter{abbreviations: make(map[string]struct{})}
	for _, a := range defaultAbbreviations {
		s.abbreviations[a] = struct{}{}
	}
	for _, a := range extraAbbreviations {
		s.abbreviations[strings.ToLower(strings.TrimSuffix(a, "."))] = struct{}{}
	}
	return s
}

// Split collapses whitespace and breaks the text after
// '.', '!' or '?' when followed by whitespace or the end of the text.
// Trailing text without terminal punctuation is kept as a final sentence.
func (s *Segmenter) Split(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		end := i + 1
		for end < len(text) && strings.IndexByte(".!?\"')]", text[end]) >= 0 {
			end++
		}
		if end < len(text) && text[end] != ' ' {
			i = end - 1
			continue
		}
		if c == '.' && s.endsWithAbbreviation(text[start:i]) {
			i = end - 1
			continue
		}
		if sentence := strings.TrimSpace(text[start:end]); sentence != "" {
			out = append(out, sentence)
		}
		start = end
		i = end - 1
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func (s *Segmenter) endsWithAbbreviation(prefix string) bool {
	idx := strings.LastIndexByte(prefix, ' ')
	last := strings.ToLower(prefix[idx+1:])
	_, ok := s.abbreviations[last]
	return ok
}
