// Package aggregate fans document processing out over a fixed worker pool
// and assembles the corpus result in input order.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/epimine/pkg/epimine/metrics"
	"github.com/cognicore/epimine/pkg/epimine/oracle"
	"github.com/cognicore/epimine/pkg/epimine/process"
)

// DefaultDocumentTimeout bounds oracle work for one document.
const DefaultDocumentTimeout = 5 * time.Minute

// Processor categorizes a single document. *process.Processor implements it.
type Processor interface {
	Process(ctx context.Context, labels process.LabelInferer, index int, doc process.Document) (process.Record, error)
}

// Status is the outcome of one document.
type Status int

const (
	// Pending documents were never dispatched because the run was cancelled.
	Pending Status = iota
	Processed
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Processed:
		return metrics.StatusProcessed
	case Skipped:
		return metrics.StatusSkipped
	case Failed:
		return metrics.StatusFailed
	default:
		return "pending"
	}
}

// Outcome describes what happened to one input document.
type Outcome struct {
	Index   int
	Name    string
	Status  Status
	Err     error
	Elapsed time.Duration
}

// Result is the corpus-level result. Records are ordered by input position
// and exclude skipped and failed documents.
type Result struct {
	Records   []process.Record
	Outcomes  []Outcome
	Processed int
	Skipped   int
	Failed    int
}

// Options configures an Aggregator.
type Options struct {
	// Workers is the pool size; zero means runtime.NumCPU().
	Workers int
	// DocumentTimeout bounds oracle scoring per document. Zero means
	// DefaultDocumentTimeout, negative disables the bound.
	DocumentTimeout time.Duration
	// Threshold is the oracle confidence threshold; nil means
	// oracle.DefaultThreshold. Zero is a valid threshold.
	Threshold *float64
	Segmenter *oracle.Segmenter
	Logger    *zap.Logger
	Metrics   *metrics.Recorder
}

// Aggregator runs a Processor over a corpus.
type Aggregator struct {
	proc    Processor
	factory oracle.Factory
	opts    Options
	logger  *zap.Logger
}

// New creates an Aggregator. factory is called once per worker.
func New(proc Processor, factory oracle.Factory, opts Options) *Aggregator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.DocumentTimeout == 0 {
		opts.DocumentTimeout = DefaultDocumentTimeout
	}
	if opts.Threshold == nil {
		th := oracle.DefaultThreshold
		opts.Threshold = &th
	}
	if opts.Segmenter == nil {
		opts.Segmenter = oracle.NewSegmenter()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{proc: proc, factory: factory, opts: opts, logger: logger}
}

// Aggregate processes docs and returns their records in input order, with
// 1-based document ids taken from input position. A failing or panicking
// document is logged and excluded; the rest of the corpus is unaffected.
// When ctx is cancelled the records finished so far are returned together
// with ctx.Err().
func (a *Aggregator) Aggregate(ctx context.Context, docs []process.Document) (*Result, error) {
	workers := a.opts.Workers
	if workers > len(docs) {
		workers = len(docs)
	}

	oracles, err := a.buildOracles(workers)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, o := range oracles {
			if err := o.Close(); err != nil {
				a.logger.Warn("closing oracle", zap.Error(err))
			}
		}
	}()

	outcomes := make([]Outcome, len(docs))
	records := make([]process.Record, len(docs))
	for i, d := range docs {
		outcomes[i] = Outcome{Index: i + 1, Name: d.Name}
	}

	start := time.Now()
	a.logger.Info("aggregating corpus", zap.Int("papers", len(docs)), zap.Int("workers", workers))

	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range docs {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		adapter := oracle.NewAdapter(oracles[w],
			oracle.WithThreshold(*a.opts.Threshold),
			oracle.WithSegmenter(a.opts.Segmenter),
			oracle.WithLogger(a.logger.With(zap.Int("worker", w))),
			oracle.WithFailureHook(a.opts.Metrics.ChunkFailure),
		)
		g.Go(func() error {
			for i := range jobs {
				rec, out := a.runOne(gctx, adapter, i, docs[i])
				records[i] = rec
				outcomes[i] = out
			}
			return nil
		})
	}

	_ = g.Wait()

	res := &Result{Outcomes: outcomes, Records: make([]process.Record, 0, len(docs))}
	for i, out := range outcomes {
		switch out.Status {
		case Processed:
			res.Processed++
			res.Records = append(res.Records, records[i])
		case Skipped:
			res.Skipped++
		case Failed:
			res.Failed++
		}
	}

	a.logger.Info("aggregation finished",
		zap.Int("processed", res.Processed),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Duration("elapsed", time.Since(start)))

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func (a *Aggregator) buildOracles(n int) ([]oracle.Oracle, error) {
	oracles := make([]oracle.Oracle, 0, n)
	for i := 0; i < n; i++ {
		o, err := a.factory()
		if err != nil {
			for _, built := range oracles {
				_ = built.Close()
			}
			return nil, fmt.Errorf("create oracle for worker %d: %w", i, err)
		}
		oracles = append(oracles, o)
	}
	return oracles, nil
}

func (a *Aggregator) runOne(ctx context.Context, labels process.LabelInferer, i int, doc process.Document) (rec process.Record, out Outcome) {
	out = Outcome{Index: i + 1, Name: doc.Name}
	if err := ctx.Err(); err != nil {
		return rec, out
	}

	done := a.opts.Metrics.Begin()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			rec = process.Record{}
			out.Err = fmt.Errorf("paper %q: panic: %v", doc.Name, r)
			out.Status = Failed
		}
		out.Elapsed = time.Since(start)
		done()
		if out.Status == Failed {
			a.logger.Error("paper failed",
				zap.Int("paper_id", out.Index),
				zap.String("paper", doc.Name),
				zap.Error(out.Err))
		}
		if out.Status != Pending {
			a.opts.Metrics.Document(out.Status.String(), out.Elapsed)
		}
	}()

	docCtx := ctx
	if a.opts.DocumentTimeout > 0 {
		var cancel context.CancelFunc
		docCtx, cancel = context.WithTimeout(ctx, a.opts.DocumentTimeout)
		defer cancel()
	}

	rec, err := a.proc.Process(docCtx, labels, out.Index, doc)
	switch {
	case errors.Is(err, process.ErrSkipped):
		out.Status, out.Err = Skipped, err
	case err != nil:
		out.Status, out.Err = Failed, err
	case ctx.Err() != nil:
		// The run was cancelled mid-document; its labels are incomplete.
		out.Status, out.Err = Failed, ctx.Err()
	default:
		if docCtx.Err() != nil {
			a.logger.Warn("paper timed out, keeping labels scored so far",
				zap.Int("paper_id", out.Index),
				zap.String("paper", doc.Name))
		}
		out.Status = Processed
	}
	if out.Status != Processed {
		rec = process.Record{}
	}
	return rec, out
}
