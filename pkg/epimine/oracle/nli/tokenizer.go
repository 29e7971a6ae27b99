package nli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// vocab is a WordPiece vocabulary; the line number of a token is its ID.
type vocab struct {
	ids map[string]int64

	padID int64
	unkID int64
	clsID int64
	sepID int64
}

func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read error: %w", err)
	}
	return newVocab(lines)
}

func newVocab(tokens []string) (*vocab, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("vocab: empty")
	}
	v := &vocab{ids: make(map[string]int64, len(tokens))}
	for i, tok := range tokens {
		if _, dup := v.ids[tok]; !dup {
			v.ids[tok] = int64(i)
		}
	}

	specials := []struct {
		name string
		dest *int64
	}{
		{"[PAD]", &v.padID},
		{"[UNK]", &v.unkID},
		{"[CLS]", &v.clsID},
		{"[SEP]", &v.sepID},
	}
	for _, s := range specials {
		id, ok := v.ids[s.name]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", s.name)
		}
		*s.dest = id
	}
	return v, nil
}

func (v *vocab) lookup(tok string) int64 {
	if id, ok := v.ids[tok]; ok {
		return id
	}
	return v.unkID
}

func (v *vocab) contains(tok string) bool {
	_, ok := v.ids[tok]
	return ok
}

// batch holds flat [size * seqLen] tensors for a set of premise/hypothesis
// pairs, padded to the longest pair.
type batch struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	size          int64
	seqLen        int64
}

// tokenizer performs BERT-style WordPiece tokenization of sentence pairs.
type tokenizer struct {
	vocab     *vocab
	maxSeqLen int
	lowercase bool
}

func (t *tokenizer) encode(text string) []int64 {
	words := basicTokenize(text, t.lowercase)
	ids := make([]int64, 0, len(words))
	for _, w := range words {
		for _, piece := range t.wordpiece(w) {
			ids = append(ids, t.vocab.lookup(piece))
		}
	}
	return ids
}

// encodePair builds "[CLS] a [SEP] b [SEP]" with segment IDs 0 for a and 1
// for b, trimming the longer side first until it fits maxSeqLen.
func (t *tokenizer) encodePair(a, b []int64) (ids, types []int64) {
	budget := t.maxSeqLen - 3
	if budget < 0 {
		budget = 0
	}
	for len(a)+len(b) > budget {
		if len(a) >= len(b) {
			a = a[:len(a)-1]
		} else {
			b = b[:len(b)-1]
		}
	}

	ids = make([]int64, 0, len(a)+len(b)+3)
	types = make([]int64, 0, cap(ids))

	ids = append(ids, t.vocab.clsID)
	ids = append(ids, a...)
	ids = append(ids, t.vocab.sepID)
	for len(types) < len(ids) {
		types = append(types, 0)
	}
	ids = append(ids, b...)
	ids = append(ids, t.vocab.sepID)
	for len(types) < len(ids) {
		types = append(types, 1)
	}
	return ids, types
}

// pairs tokenizes premise against every hypothesis and packs the result.
func (t *tokenizer) pairs(premise string, hypotheses []string) batch {
	if len(hypotheses) == 0 {
		return batch{}
	}
	p := t.encode(premise)

	seqs := make([][2][]int64, len(hypotheses))
	maxLen := 0
	for i, h := range hypotheses {
		ids, types := t.encodePair(p, t.encode(h))
		seqs[i] = [2][]int64{ids, types}
		if len(ids) > maxLen {
			maxLen = len(ids)
		}
	}

	n := int64(len(hypotheses))
	seqLen := int64(maxLen)
	out := batch{
		inputIDs:      make([]int64, n*seqLen),
		attentionMask: make([]int64, n*seqLen),
		tokenTypeIDs:  make([]int64, n*seqLen),
		size:          n,
		seqLen:        seqLen,
	}
	for i, s := range seqs {
		off := int64(i) * seqLen
		for j := range s[0] {
			out.inputIDs[off+int64(j)] = s[0][j]
			out.tokenTypeIDs[off+int64(j)] = s[1][j]
			out.attentionMask[off+int64(j)] = 1
		}
		for j := int64(len(s[0])); j < seqLen; j++ {
			out.inputIDs[off+j] = t.vocab.padID
		}
	}
	return out
}

func (t *tokenizer) wordpiece(word string) []string {
	runes := []rune(word)
	if len(runes) > 100 {
		return []string{"[UNK]"}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		var match string
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if t.vocab.contains(sub) {
				match = sub
				break
			}
			end--
		}
		if match == "" {
			return []string{"[UNK]"}
		}
		pieces = append(pieces, match)
		start = end
	}
	return pieces
}

// basicTokenize drops control characters, optionally lowercases and strips
// accents, then splits on whitespace and punctuation.
func basicTokenize(text string, lowercase bool) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar:
		case r == '\t' || r == '\n' || r == '\r' || unicode.Is(unicode.Zs, r):
			b.WriteRune(' ')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	text = b.String()
	if lowercase {
		text = stripAccents(strings.ToLower(text))
	}

	var tokens []string
	for _, word := range strings.Fields(text) {
		var cur strings.Builder
		for _, r := range word {
			if isPunctuation(r) {
				if cur.Len() > 0 {
					tokens = append(tokens, cur.String())
					cur.Reset()
				}
				tokens = append(tokens, string(r))
				continue
			}
			cur.WriteRune(r)
		}
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
		}
	}
	return tokens
}

func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(text) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
