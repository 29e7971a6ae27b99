package main

import (
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/cognicore/epimine/internal/papers"
	"github.com/cognicore/epimine/pkg/epimine/config"
	"github.com/cognicore/epimine/pkg/epimine/corpus"
	"github.com/cognicore/epimine/pkg/epimine/logging"
	"github.com/cognicore/epimine/pkg/epimine/taxonomy"
	"github.com/cognicore/epimine/pkg/epimine/termcount"
)

func main() {
	var (
		input    = flag.String("input", "", "JSONL file or directory of .txt papers (required)")
		output   = flag.String("output", "processed_papers.json", "Preprocessed papers JSON")
		taxPath  = flag.String("taxonomy", "", "Taxonomy YAML (default: built-in)")
		dictPath = flag.String("synonyms", "", "Synonym dictionary (canonical|variant|...)")
		logLevel = flag.String("log-level", "info", "Log level")
	)
	flag.Parse()

	if *input == "" {
		log.Fatal("--input required")
	}

	logger, err := logging.New(*logLevel, "console")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	tax := taxonomy.Default()
	if *taxPath != "" {
		if tax, err = config.LoadTaxonomy(*taxPath); err != nil {
			logger.Fatal("load taxonomy", zap.Error(err))
		}
	}
	var synonyms []termcount.Synonym
	if *dictPath != "" {
		if synonyms, err = config.LoadSynonyms(*dictPath); err != nil {
			logger.Fatal("load synonyms", zap.Error(err))
		}
	}

	raw, err := papers.Load(*input, logger)
	if err != nil {
		logger.Fatal("load papers", zap.Error(err))
	}

	counter := termcount.New(tax, synonyms...)
	in := corpus.Input{Papers: make([]corpus.Paper, 0, len(raw))}
	for _, p := range raw {
		text := termcount.Clean(p.Text)
		in.Papers = append(in.Papers, corpus.Paper{
			Name:       p.Name,
			Text:       text,
			TermCounts: counter.Count(text),
		})
	}

	if err := corpus.WriteFile(*output, in); err != nil {
		logger.Fatal("write output", zap.Error(err))
	}
	fmt.Printf("Counted terms in %d papers -> %s\n", len(in.Papers), *output)
}
