// Package process turns one document into its categorized term counts.
package process

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/epimine/pkg/epimine/classify"
	"github.com/cognicore/epimine/pkg/epimine/internalerr"
	"github.com/cognicore/epimine/pkg/epimine/oracle"
	"github.com/cognicore/epimine/pkg/epimine/taxonomy"
)

// ErrSkipped marks a document that failed a precondition (no term counts or
// blank text). It is not a processing failure.
var ErrSkipped = internalerr.ErrSkipped

// Document is one paper ready for processing. TermCounts is keyed by raw
// category (e.g. "mental health terms"). Err carries a decoding failure of
// the upstream record; such a document fails without being processed.
type Document struct {
	Name       string
	Text       string
	TermCounts map[string]classify.Counts
	Err        error
}

// Categorized maps a top-level category to its subcategory buckets.
type Categorized map[string]classify.Buckets

// Record is the categorized output for one document.
type Record struct {
	DocumentID  int         `json:"paper_id"`
	Categorized Categorized `json:"categorized_counts"`
}

// LabelInferer supplies oracle label counts for a document's text.
type LabelInferer interface {
	InferLabels(ctx context.Context, text string, labels []string) oracle.Labels
}

// Processor categorizes documents against a taxonomy. It holds no mutable
// state and may be shared by concurrent workers.
type Processor struct {
	tax    *taxonomy.Taxonomy
	vocab  []string
	logger *zap.Logger
}

// New creates a Processor. The oracle is asked about every term of tax.
func New(tax *taxonomy.Taxonomy, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{tax: tax, vocab: tax.Vocabulary(), logger: logger}
}

// Vocabulary returns the candidate labels handed to the oracle.
func (p *Processor) Vocabulary() []string {
	out := make([]string, len(p.vocab))
	copy(out, p.vocab)
	return out
}

// Process categorizes doc under the given 1-based index. Documents without
// term counts or with blank text return an error wrapping ErrSkipped before
// the oracle is consulted.
func (p *Processor) Process(ctx context.Context, labels LabelInferer, index int, doc Document) (Record, error) {
	log := p.logger.With(zap.Int("paper_id", index), zap.String("paper", doc.Name))

	if doc.Err != nil {
		return Record{}, fmt.Errorf("paper %q: %w", doc.Name, doc.Err)
	}
	if len(doc.TermCounts) == 0 {
		log.Warn("no term counts, skipping")
		return Record{}, fmt.Errorf("paper %q: no term counts: %w", doc.Name, ErrSkipped)
	}
	if strings.TrimSpace(doc.Text) == "" {
		log.Warn("empty cleaned text, skipping")
		return Record{}, fmt.Errorf("paper %q: empty text: %w", doc.Name, ErrSkipped)
	}

	log.Info("processing paper")
	extra := classify.Counts(labels.InferLabels(ctx, doc.Text, p.vocab))
	log.Debug("oracle labels", zap.Any("labels", extra))

	out := make(Categorized, len(p.tax.Categories()))
	for _, cat := range p.tax.Categories() {
		merged := classify.Merge(doc.TermCounts[cat.RawKey], extra)
		buckets, err := classify.Classify(merged, cat.Node)
		if err != nil {
			return Record{}, fmt.Errorf("paper %q: category %q: %w", doc.Name, cat.Name, err)
		}
		out[cat.Name] = buckets
	}

	log.Debug("categorized paper", zap.Any("categorized_counts", out))
	return Record{DocumentID: index, Categorized: out}, nil
}
