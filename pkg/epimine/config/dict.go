package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/cognicore/epimine/pkg/epimine/termcount"
)

// LoadSynonyms reads a synonym dictionary.
// Format: canonical|variant1|variant2, one entry per line, '#' comments.
func LoadSynonyms(path string) ([]termcount.Synonym, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []termcount.Synonym
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		parts := strings.Split(text, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if parts[0] == "" {
			return nil, fmt.Errorf("%s:%d: missing canonical term", path, line)
		}

		s := termcount.Synonym{Canonical: parts[0]}
		for _, v := range parts[1:] {
			if v != "" {
				s.Variants = append(s.Variants, v)
			}
		}
		out = append(out, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}
