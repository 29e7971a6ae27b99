// Package oracle adapts a zero-shot multi-label classifier into label counts.
//
// The text of a document is segmented into sentences, every sentence is
// scored against the full candidate label set, and each label scoring above
// the threshold is counted once per sentence. A failing sentence contributes
// nothing; the remaining sentences are still scored.
package oracle

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultThreshold is the confidence a label must exceed to be counted.
const DefaultThreshold = 0.3

// Score is one label's confidence for a chunk of text.
type Score struct {
	Label      string
	Confidence float64
}

// Oracle scores a chunk against candidate labels with multi-label
// semantics: each label is scored independently.
type Oracle interface {
	Score(ctx context.Context, chunk string, labels []string) ([]Score, error)
	Close() error
}

// Factory builds an Oracle. Aggregation calls it once per worker so that an
// expensive model is loaded once and reused for every document the worker
// handles.
type Factory func() (Oracle, error)

// Shared returns a Factory that hands out the same Oracle to every worker.
// Closing it is left to the caller. Use it for oracles that are safe for
// concurrent use, such as HTTP clients.
func Shared(o Oracle) Factory {
	return func() (Oracle, error) { return nopCloser{o}, nil }
}

type nopCloser struct{ Oracle }

func (nopCloser) Close() error { return nil }

// Labels is a multiset of labels: label -> number of qualifying chunks.
type Labels map[string]int

// ChunkResult is the outcome of scoring one chunk. Err is set on failure,
// Labels holds the qualifying labels otherwise.
type ChunkResult struct {
	Index  int
	Chunk  string
	Labels []string
	Err    error
}

// OK reports whether the chunk was scored.
func (r ChunkResult) OK() bool { return r.Err == nil }

// Fold counts the labels of every successful chunk. Failed chunks are
// skipped.
func Fold(results []ChunkResult) Labels {
	out := make(Labels)
	for _, r := range results {
		if !r.OK() {
			continue
		}
		for _, label := range r.Labels {
			out[label]++
		}
	}
	return out
}

// Adapter turns document text into label counts using an Oracle.
type Adapter struct {
	oracle    Oracle
	segmenter *Segmenter
	threshold float64
	logger    *zap.Logger
	onFailure func(err error)
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(th float64) Option {
	return func(a *Adapter) { a.threshold = th }
}

// WithSegmenter overrides the default sentence segmenter.
func WithSegmenter(s *Segmenter) Option {
	return func(a *Adapter) { a.segmenter = s }
}

// WithLogger sets the logger used for chunk failures.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithFailureHook registers a callback invoked for every failed chunk.
func WithFailureHook(fn func(err error)) Option {
	return func(a *Adapter) { a.onFailure = fn }
}

// NewAdapter wraps o.
func NewAdapter(o Oracle, opts ...Option) *Adapter {
	a := &Adapter{
		oracle:    o,
		segmenter: NewSegmenter(),
		threshold: DefaultThreshold,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Threshold returns the confidence threshold in use.
func (a *Adapter) Threshold() float64 { return a.threshold }

// ScoreChunks segments text and scores every sentence. When ctx is done the
// remaining sentences are not scored and only the finished results are
// returned.
func (a *Adapter) ScoreChunks(ctx context.Context, text string, labels []string) []ChunkResult {
	chunks := a.segmenter.Split(text)
	results := make([]ChunkResult, 0, len(chunks))
	start := time.Now()

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			a.logger.Warn("oracle scoring interrupted",
				zap.Int("scored", i),
				zap.Int("chunks", len(chunks)),
				zap.Error(err))
			break
		}
		results = append(results, a.scoreChunk(ctx, i, chunk, labels))
	}

	a.logger.Debug("oracle scoring finished",
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))
	return results
}

// InferLabels returns how many sentences of text each label qualified for.
func (a *Adapter) InferLabels(ctx context.Context, text string, labels []string) Labels {
	return Fold(a.ScoreChunks(ctx, text, labels))
}

func (a *Adapter) scoreChunk(ctx context.Context, idx int, chunk string, labels []string) (res ChunkResult) {
	res = ChunkResult{Index: idx, Chunk: chunk}
	defer func() {
		if r := recover(); r != nil {
			res.Labels = nil
			res.Err = &PanicError{Value: r}
		}
		if res.Err != nil {
			a.logger.Warn("oracle chunk failed",
				zap.Int("chunk", idx),
				zap.String("text", chunk),
				zap.Error(res.Err))
			if a.onFailure != nil {
				a.onFailure(res.Err)
			}
		}
	}()

	scores, err := a.oracle.Score(ctx, chunk, labels)
	if err != nil {
		res.Err = err
		return res
	}

	seen := make(map[string]struct{}, len(scores))
	for _, s := range scores {
		if s.Confidence <= a.threshold {
			continue
		}
		if _, dup := seen[s.Label]; dup {
			continue
		}
		seen[s.Label] = struct{}{}
		res.Labels = append(res.Labels, s.Label)
	}
	return res
}
