package nli

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTokens = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]",
	"this", "example", "is", "about", "anxiety", "stress", "rose", ".", "dna", "methyl", "##ation", "cafe",
}

func testTokenizer(t *testing.T, maxSeqLen int) *tokenizer {
	t.Helper()
	v, err := newVocab(testTokens)
	require.NoError(t, err)
	return &tokenizer{vocab: v, maxSeqLen: maxSeqLen, lowercase: true}
}

func TestVocabRequiresSpecials(t *testing.T) {
	_, err := newVocab([]string{"[PAD]", "[UNK]", "[CLS]"})
	assert.Error(t, err)

	_, err = newVocab(nil)
	assert.Error(t, err)
}

func TestLoadVocab(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(testTokens, "\n")+"\n"), 0o644))

	v, err := loadVocab(path)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v.clsID)
	assert.EqualValues(t, 3, v.sepID)
	assert.EqualValues(t, 8, v.lookup("anxiety"))
	assert.EqualValues(t, 1, v.lookup("unseen"))

	_, err = loadVocab(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestEncodeWordpiece(t *testing.T) {
	tok := testTokenizer(t, 64)

	assert.Equal(t, []int64{12, 13, 14}, tok.encode("DNA Methylation"))
	assert.Equal(t, []int64{15}, tok.encode("Café"), "accents are stripped")
	assert.Equal(t, []int64{1, 11}, tok.encode("xyz."))
}

func TestPairsLayout(t *testing.T) {
	tok := testTokenizer(t, 64)

	b := tok.pairs("Stress rose.", []string{"anxiety", "dna methylation"})
	require.EqualValues(t, 2, b.size)
	// [CLS] stress rose . [SEP] dna methyl ##ation [SEP]
	require.EqualValues(t, 9, b.seqLen)

	first := b.inputIDs[:9]
	assert.Equal(t, []int64{2, 9, 10, 11, 3, 8, 3, 0, 0}, first)
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 1, 1, 0, 0}, b.attentionMask[:9])
	assert.Equal(t, []int64{0, 0, 0, 0, 0, 1, 1, 0, 0}, b.tokenTypeIDs[:9])

	second := b.inputIDs[9:]
	assert.Equal(t, []int64{2, 9, 10, 11, 3, 12, 13, 14, 3}, second)
}

func TestEncodePairTruncatesLongestFirst(t *testing.T) {
	tok := testTokenizer(t, 8)

	ids, types := tok.encodePair([]int64{10, 10, 10, 10, 10, 10}, []int64{8})
	assert.Len(t, ids, 8)
	assert.Equal(t, []int64{2, 10, 10, 10, 10, 3, 8, 3}, ids)
	assert.Equal(t, []int64{0, 0, 0, 0, 0, 0, 1, 1}, types)
}

func TestEntailment(t *testing.T) {
	assert.InDelta(t, 0.5, entailment([]float32{1, 0, 1}, 2, 0), 1e-9)
	assert.InDelta(t, 1/(1+math.Exp(-4)), entailment([]float32{-2, 5, 2}, 2, 0), 1e-6)
	assert.Less(t, entailment([]float32{3, 0, -3}, 2, 0), 0.01)
	assert.Greater(t, entailment([]float32{-500, 0, 500}, 2, 0), 0.99, "large logits stay finite")
}

func TestHypothesis(t *testing.T) {
	assert.Equal(t, "This example is about PTSD.", hypothesis(DefaultHypothesis, "PTSD"))
}

func TestValidateConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, validateConfig(cfg), "paths are required")

	cfg.ModelPath, cfg.VocabPath = "model.onnx", "vocab.txt"
	assert.NoError(t, validateConfig(cfg))

	bad := cfg
	bad.Hypothesis = "about labels"
	assert.Error(t, validateConfig(bad))

	bad = cfg
	bad.EntailmentIndex = bad.ContradictionIndex
	assert.Error(t, validateConfig(bad))

	bad = cfg
	bad.MaxSeqLen = 4
	assert.Error(t, validateConfig(bad))
}

func TestNewRejectsMissingVocab(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "model.onnx"
	cfg.VocabPath = filepath.Join(t.TempDir(), "missing.txt")

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestScoreWithoutLabelsSkipsInference(t *testing.T) {
	o := &Oracle{}
	scores, err := o.Score(context.Background(), "text", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}
