package epimine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/epimine/pkg/epimine/aggregate"
	"github.com/cognicore/epimine/pkg/epimine/corpus"
	"github.com/cognicore/epimine/pkg/epimine/metrics"
	"github.com/cognicore/epimine/pkg/epimine/oracle"
	"github.com/cognicore/epimine/pkg/epimine/process"
	"github.com/cognicore/epimine/pkg/epimine/store"
	"github.com/cognicore/epimine/pkg/epimine/taxonomy"
)

// Epimine categorizes corpora of preprocessed papers
type Epimine struct {
	tax    *taxonomy.Taxonomy
	agg    *aggregate.Aggregator
	store  store.Store
	ids    *store.IDGenerator
	oracle string
	logger *zap.Logger
	now    func() time.Time
}

// Options configures an Epimine instance
type Options struct {
	// Taxonomy defaults to taxonomy.Default().
	Taxonomy *taxonomy.Taxonomy
	// Oracle builds one oracle per worker; nil categorizes from raw term
	// counts only.
	Oracle oracle.Factory
	// OracleName is recorded with stored runs.
	OracleName string

	Workers int
	// DocumentTimeout zero means aggregate.DefaultDocumentTimeout;
	// negative disables the bound.
	DocumentTimeout time.Duration
	// Threshold nil means oracle.DefaultThreshold.
	Threshold *float64

	// Store is optional; when set every Run is persisted.
	Store   store.Store
	Metrics *metrics.Recorder
	Logger  *zap.Logger
}

// New creates an Epimine instance with the given dependencies
func New(opts Options) *Epimine {
	tax := opts.Taxonomy
	if tax == nil {
		tax = taxonomy.Default()
	}
	factory := opts.Oracle
	name := opts.OracleName
	if factory == nil {
		factory = oracle.Shared(oracle.Null{})
		name = "none"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, d := range tax.Duplicates() {
		logger.Warn("term listed in several subcategories, first one wins",
			zap.String("category", d.Category),
			zap.String("term", d.Term),
			zap.Strings("subcategories", d.Subcategories))
	}

	proc := process.New(tax, logger)
	agg := aggregate.New(proc, factory, aggregate.Options{
		Workers:         opts.Workers,
		DocumentTimeout: opts.DocumentTimeout,
		Threshold:       opts.Threshold,
		Logger:          logger,
		Metrics:         opts.Metrics,
	})

	return &Epimine{
		tax:    tax,
		agg:    agg,
		store:  opts.Store,
		ids:    store.NewIDGenerator(),
		oracle: name,
		logger: logger,
		now:    time.Now,
	}
}

// Close releases the store, if any
func (e *Epimine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Taxonomy returns the taxonomy in use.
func (e *Epimine) Taxonomy() *taxonomy.Taxonomy { return e.tax }

// Categorize runs the aggregator over docs.
func (e *Epimine) Categorize(ctx context.Context, docs []process.Document) (*aggregate.Result, error) {
	return e.agg.Aggregate(ctx, docs)
}

// RunReport describes a finished Run.
type RunReport struct {
	Run    store.Run
	Result *aggregate.Result
}

// Run categorizes the input artifact at inPath and writes the output
// artifact to outPath. If ctx is cancelled mid-run, the records finished so
// far are still written and ctx.Err() is returned.
func (e *Epimine) Run(ctx context.Context, inPath, outPath string) (*RunReport, error) {
	in, err := corpus.Load(inPath)
	if err != nil {
		return nil, err
	}

	started := e.now()
	run := store.Run{
		ID:        e.ids.New(started),
		StartedAt: started,
		Input:     inPath,
		Output:    outPath,
		Oracle:    e.oracle,
		Total:     len(in.Papers),
	}
	log := e.logger.With(zap.String("run", run.ID))
	log.Info("run started", zap.String("input", inPath), zap.Int("papers", run.Total))

	res, aggErr := e.Categorize(ctx, in.Documents())
	if res == nil {
		return nil, aggErr
	}

	if err := corpus.WriteFile(outPath, corpus.NewOutput(res.Records)); err != nil {
		return nil, err
	}

	run.FinishedAt = e.now()
	run.Processed, run.Skipped, run.Failed = res.Processed, res.Skipped, res.Failed
	report := &RunReport{Run: run, Result: res}

	if e.store != nil {
		// Persist even a cancelled run; use a fresh context for that.
		saveCtx := context.WithoutCancel(ctx)
		if err := e.store.SaveRun(saveCtx, run, paperOutcomes(res), res.Records); err != nil {
			return report, fmt.Errorf("save run %s: %w", run.ID, err)
		}
	}

	log.Info("run finished",
		zap.String("output", outPath),
		zap.Int("processed", run.Processed),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", run.Failed),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))
	return report, aggErr
}

func paperOutcomes(res *aggregate.Result) []store.Paper {
	out := make([]store.Paper, len(res.Outcomes))
	for i, o := range res.Outcomes {
		p := store.Paper{PaperID: o.Index, Name: o.Name, Status: o.Status.String()}
		if o.Err != nil {
			p.Error = o.Err.Error()
		}
		out[i] = p
	}
	return out
}
