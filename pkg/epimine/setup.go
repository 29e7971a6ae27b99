package epimine

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cognicore/epimine/internal/llm"
	"github.com/cognicore/epimine/pkg/epimine/config"
	"github.com/cognicore/epimine/pkg/epimine/internalerr"
	"github.com/cognicore/epimine/pkg/epimine/metrics"
	"github.com/cognicore/epimine/pkg/epimine/oracle"
	"github.com/cognicore/epimine/pkg/epimine/oracle/llmoracle"
	"github.com/cognicore/epimine/pkg/epimine/oracle/nli"
	"github.com/cognicore/epimine/pkg/epimine/store"
	"github.com/cognicore/epimine/pkg/epimine/store/sqlite"
	"github.com/cognicore/epimine/pkg/epimine/taxonomy"
)

// OracleFactory builds the oracle factory selected by cfg.Provider.
func OracleFactory(cfg config.OracleConfig) (oracle.Factory, error) {
	switch cfg.Provider {
	case "", config.ProviderNone:
		return oracle.Shared(oracle.Null{}), nil
	case config.ProviderLLM:
		client := llm.Client{
			BaseURL:    cfg.LLM.BaseURL,
			APIKey:     cfg.LLM.APIKey,
			Model:      cfg.LLM.Model,
			JSONMode:   true,
			HTTPClient: &http.Client{Timeout: cfg.LLM.Timeout},
		}
		return oracle.Shared(llmoracle.NewFromClient(client)), nil
	case config.ProviderNLI:
		return nli.Factory(nli.Config{
			ModelPath:          cfg.NLI.ModelPath,
			VocabPath:          cfg.NLI.VocabPath,
			LibraryPath:        cfg.NLI.LibraryPath,
			Hypothesis:         cfg.NLI.Hypothesis,
			EntailmentIndex:    cfg.NLI.EntailmentIndex,
			ContradictionIndex: cfg.NLI.ContradictionIndex,
			MaxSeqLen:          cfg.NLI.MaxSeqLen,
			Lowercase:          cfg.NLI.Lowercase,
			IntraOpThreads:     cfg.NLI.IntraOpThreads,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown oracle provider %q", internalerr.ErrInvalidConfig, cfg.Provider)
	}
}

// NewFromConfig wires an Epimine from a validated configuration. A zero
// pipeline.document_timeout disables the per-paper bound. reg may be nil to
// disable metrics. The returned instance owns the store; call Close.
func NewFromConfig(ctx context.Context, cfg config.Config, logger *zap.Logger, reg prometheus.Registerer) (*Epimine, error) {
	tax, err := cfg.BuildTaxonomy()
	if err != nil {
		return nil, err
	}
	factory, err := OracleFactory(cfg.Oracle)
	if err != nil {
		return nil, err
	}
	return newWithFactory(ctx, cfg, tax, factory, logger, reg)
}

func newWithFactory(ctx context.Context, cfg config.Config, tax *taxonomy.Taxonomy, factory oracle.Factory, logger *zap.Logger, reg prometheus.Registerer) (*Epimine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		st  store.Store
		err error
	)
	if cfg.Store.Path != "" {
		st, err = sqlite.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		logger.Info("run store opened", zap.String("path", cfg.Store.Path))
	}

	var rec *metrics.Recorder
	if reg != nil {
		rec = metrics.NewRecorder(reg)
	}

	timeout := cfg.Pipeline.DocumentTimeout
	if timeout == 0 {
		timeout = -1
	}

	threshold := cfg.Oracle.Threshold
	provider := cfg.Oracle.Provider
	if provider == "" {
		provider = config.ProviderNone
	}

	return New(Options{
		Taxonomy:        tax,
		Oracle:          factory,
		OracleName:      provider,
		Workers:         cfg.Pipeline.Workers,
		DocumentTimeout: timeout,
		Threshold:       &threshold,
		Store:           st,
		Metrics:         rec,
		Logger:          logger,
	}), nil
}
