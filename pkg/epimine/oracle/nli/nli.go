// Package nli is a local zero-shot oracle backed by a natural language
// inference model exported to ONNX (BERT-style WordPiece, e.g. an MNLI
// fine-tune). Each candidate label becomes the hypothesis "This example is
// about <label>." and its score is the entailment probability against
// contradiction, matching multi-label zero-shot classification.
package nli

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/cognicore/epimine/pkg/epimine/oracle"
)

// DefaultHypothesis is the hypothesis template; "{}" is replaced by the label.
const DefaultHypothesis = "This example is about {}."

// Config locates the model files and describes its label layout.
type Config struct {
	ModelPath   string
	VocabPath   string
	LibraryPath string // onnxruntime shared library

	Hypothesis         string
	EntailmentIndex    int
	ContradictionIndex int
	MaxSeqLen          int
	Lowercase          bool
	IntraOpThreads     int
}

// DefaultConfig returns the MNLI label layout (contradiction, neutral,
// entailment).
func DefaultConfig() Config {
	return Config{
		Hypothesis:         DefaultHypothesis,
		EntailmentIndex:    2,
		ContradictionIndex: 0,
		MaxSeqLen:          256,
		Lowercase:          true,
		IntraOpThreads:     1,
	}
}

var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Oracle implements oracle.Oracle with a local ONNX session. Build one per
// worker through Factory.
type Oracle struct {
	cfg        Config
	session    *ort.DynamicAdvancedSession
	inputNames []string
	numLabels  int64
	tok        *tokenizer
}

// Factory returns an oracle.Factory loading a fresh session per call.
func Factory(cfg Config) oracle.Factory {
	return func() (oracle.Oracle, error) {
		return New(cfg)
	}
}

// New loads the vocabulary and model.
func New(cfg Config) (*Oracle, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	v, err := loadVocab(cfg.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("nli: %w", err)
	}

	if err := initORT(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("nli: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("nli: failed to read model info: %w", err)
	}
	inputNames, err := selectInputs(inputs)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("nli: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 2 || dims[1] <= 0 {
		return nil, fmt.Errorf("nli: expected [batch, labels] logits, got %v", dims)
	}
	numLabels := dims[1]
	if int64(cfg.EntailmentIndex) >= numLabels || int64(cfg.ContradictionIndex) >= numLabels {
		return nil, fmt.Errorf("nli: label indices out of range for %d logits", numLabels)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("nli: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if cfg.IntraOpThreads > 0 {
		opts.SetIntraOpNumThreads(cfg.IntraOpThreads)
	}
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("nli: failed to create session: %w", err)
	}

	return &Oracle{
		cfg:        cfg,
		session:    session,
		inputNames: inputNames,
		numLabels:  numLabels,
		tok:        &tokenizer{vocab: v, maxSeqLen: cfg.MaxSeqLen, lowercase: cfg.Lowercase},
	}, nil
}

func validateConfig(cfg Config) error {
	if cfg.ModelPath == "" || cfg.VocabPath == "" {
		return fmt.Errorf("nli: model and vocab paths required")
	}
	if !strings.Contains(cfg.Hypothesis, "{}") {
		return fmt.Errorf("nli: hypothesis template %q has no {} placeholder", cfg.Hypothesis)
	}
	if cfg.EntailmentIndex < 0 || cfg.ContradictionIndex < 0 || cfg.EntailmentIndex == cfg.ContradictionIndex {
		return fmt.Errorf("nli: invalid entailment/contradiction indices %d/%d", cfg.EntailmentIndex, cfg.ContradictionIndex)
	}
	if cfg.MaxSeqLen < 8 {
		return fmt.Errorf("nli: max sequence length %d too small", cfg.MaxSeqLen)
	}
	return nil
}

// selectInputs requires input_ids and attention_mask; token_type_ids is
// passed when the model declares it.
func selectInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	has := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		has[in.Name] = true
	}
	for _, name := range []string{"input_ids", "attention_mask"} {
		if !has[name] {
			return nil, fmt.Errorf("nli: model missing required input %q", name)
		}
	}
	names := []string{"input_ids", "attention_mask"}
	if has["token_type_ids"] {
		names = append(names, "token_type_ids")
	}
	return names, nil
}

// Score implements oracle.Oracle.
func (o *Oracle) Score(ctx context.Context, chunk string, labels []string) ([]oracle.Score, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hyps := make([]string, len(labels))
	for i, label := range labels {
		hyps[i] = hypothesis(o.cfg.Hypothesis, label)
	}
	b := o.tok.pairs(chunk, hyps)

	logits, err := o.infer(b)
	if err != nil {
		return nil, err
	}

	scores := make([]oracle.Score, len(labels))
	for i, label := range labels {
		row := logits[int64(i)*o.numLabels : int64(i+1)*o.numLabels]
		scores[i] = oracle.Score{
			Label:      label,
			Confidence: entailment(row, o.cfg.EntailmentIndex, o.cfg.ContradictionIndex),
		}
	}
	return scores, nil
}

func (o *Oracle) infer(b batch) ([]float32, error) {
	shape := ort.NewShape(b.size, b.seqLen)

	data := map[string][]int64{
		"input_ids":      b.inputIDs,
		"attention_mask": b.attentionMask,
		"token_type_ids": b.tokenTypeIDs,
	}
	inputs := make([]ort.Value, 0, len(o.inputNames))
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()
	for _, name := range o.inputNames {
		t, err := ort.NewTensor(shape, data[name])
		if err != nil {
			return nil, fmt.Errorf("nli: failed to create %s tensor: %w", name, err)
		}
		inputs = append(inputs, t)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(b.size, o.numLabels))
	if err != nil {
		return nil, fmt.Errorf("nli: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := o.session.Run(inputs, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("nli: inference failed: %w", err)
	}

	src := out.GetData()
	logits := make([]float32, len(src))
	copy(logits, src)
	return logits, nil
}

// Close releases the session.
func (o *Oracle) Close() error {
	return o.session.Destroy()
}

func hypothesis(template, label string) string {
	return strings.ReplaceAll(template, "{}", label)
}

// entailment is the softmax probability of the entailment logit against the
// contradiction logit.
func entailment(row []float32, entail, contra int) float64 {
	e := float64(row[entail])
	c := float64(row[contra])
	m := math.Max(e, c)
	pe := math.Exp(e - m)
	pc := math.Exp(c - m)
	return pe / (pe + pc)
}
