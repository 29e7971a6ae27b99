package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/epimine/pkg/epimine/internalerr"
)

// Oracle providers.
const (
	ProviderNone = "none"
	ProviderLLM  = "llm"
	ProviderNLI  = "nli"
)

// Config is the epimine configuration file.
type Config struct {
	// Taxonomy overrides the built-in categories when non-empty.
	Taxonomy []CategoryConfig `yaml:"taxonomy"`
	Oracle   OracleConfig     `yaml:"oracle"`
	Pipeline PipelineConfig   `yaml:"pipeline"`
	Store    StoreConfig      `yaml:"store"`
	Logging  LoggingConfig    `yaml:"logging"`
	Metrics  MetricsConfig    `yaml:"metrics"`
}

// OracleConfig selects and configures the label oracle.
type OracleConfig struct {
	Provider  string    `yaml:"provider"`
	Threshold float64   `yaml:"threshold"`
	LLM       LLMConfig `yaml:"llm"`
	NLI       NLIConfig `yaml:"nli"`
}

// LLMConfig points at an OpenAI-compatible chat endpoint.
type LLMConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// NLIConfig locates a local MNLI model.
type NLIConfig struct {
	ModelPath          string `yaml:"model_path"`
	VocabPath          string `yaml:"vocab_path"`
	LibraryPath        string `yaml:"library_path"`
	Hypothesis         string `yaml:"hypothesis"`
	EntailmentIndex    int    `yaml:"entailment_index"`
	ContradictionIndex int    `yaml:"contradiction_index"`
	MaxSeqLen          int    `yaml:"max_seq_len"`
	Lowercase          bool   `yaml:"lowercase"`
	IntraOpThreads     int    `yaml:"intra_op_threads"`
}

// PipelineConfig sizes the worker pool.
type PipelineConfig struct {
	Workers         int           `yaml:"workers"`
	DocumentTimeout time.Duration `yaml:"document_timeout"`
}

// StoreConfig enables run persistence when Path is set.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given: built-in
// taxonomy, no oracle, one worker per CPU.
func Default() Config {
	return Config{
		Oracle: OracleConfig{
			Provider:  ProviderNone,
			Threshold: 0.3,
			LLM:       LLMConfig{Timeout: 30 * time.Second},
			NLI: NLIConfig{
				Hypothesis:         "This example is about {}.",
				EntailmentIndex:    2,
				ContradictionIndex: 0,
				MaxSeqLen:          256,
				Lowercase:          true,
				IntraOpThreads:     1,
			},
		},
		Pipeline: PipelineConfig{DocumentTimeout: 5 * time.Minute},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads a YAML config file on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem found in cfg.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{internalerr.ErrInvalidConfig}, args...)...))
	}

	switch c.Oracle.Provider {
	case ProviderNone:
	case ProviderLLM:
		if c.Oracle.LLM.BaseURL == "" || c.Oracle.LLM.Model == "" {
			bad("oracle.llm needs base_url and model")
		}
	case ProviderNLI:
		if c.Oracle.NLI.ModelPath == "" || c.Oracle.NLI.VocabPath == "" {
			bad("oracle.nli needs model_path and vocab_path")
		}
	default:
		bad("unknown oracle provider %q", c.Oracle.Provider)
	}
	if c.Oracle.Threshold < 0 || c.Oracle.Threshold >= 1 {
		bad("oracle.threshold %v outside [0, 1)", c.Oracle.Threshold)
	}
	if c.Pipeline.Workers < 0 {
		bad("pipeline.workers must not be negative")
	}
	if c.Pipeline.DocumentTimeout < 0 {
		bad("pipeline.document_timeout must not be negative")
	}
	if _, err := c.BuildTaxonomy(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ApplyEnv overrides fields from EPIMINE_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("EPIMINE_ORACLE", &c.Oracle.Provider)
	if v := strings.TrimSpace(getenv("EPIMINE_THRESHOLD")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("EPIMINE_THRESHOLD: %w", err))
		} else {
			c.Oracle.Threshold = f
		}
	}
	str("EPIMINE_LLM_BASE_URL", &c.Oracle.LLM.BaseURL)
	str("EPIMINE_LLM_API_KEY", &c.Oracle.LLM.APIKey)
	str("EPIMINE_LLM_MODEL", &c.Oracle.LLM.Model)
	str("EPIMINE_NLI_MODEL_PATH", &c.Oracle.NLI.ModelPath)
	str("EPIMINE_NLI_VOCAB_PATH", &c.Oracle.NLI.VocabPath)
	str("EPIMINE_ORT_LIBRARY", &c.Oracle.NLI.LibraryPath)
	num("EPIMINE_WORKERS", &c.Pipeline.Workers)
	dur("EPIMINE_DOCUMENT_TIMEOUT", &c.Pipeline.DocumentTimeout)
	str("EPIMINE_STORE_PATH", &c.Store.Path)
	str("EPIMINE_LOG_LEVEL", &c.Logging.Level)
	str("EPIMINE_LOG_FORMAT", &c.Logging.Format)
	str("EPIMINE_METRICS_ADDR", &c.Metrics.Addr)

	return errors.Join(errs...)
}
