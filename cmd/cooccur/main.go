package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cognicore/epimine/pkg/epimine/cooccur"
	"github.com/cognicore/epimine/pkg/epimine/corpus"
	"github.com/cognicore/epimine/pkg/epimine/process"
	"github.com/cognicore/epimine/pkg/epimine/store/sqlite"
)

func main() {
	var (
		input     = flag.String("input", "", "Categorized papers JSON")
		storePath = flag.String("store", "", "SQLite run store (instead of --input)")
		runID     = flag.String("run", "", "Run id in the store (default: latest)")
		output    = flag.String("output", "", "Write the report here (default: stdout)")
		top       = flag.Int("top", 20, "Number of pairs to report (0 = all)")
		minPapers = flag.Int("min-papers", 2, "Minimum shared papers per pair")
		sameCat   = flag.Bool("same-category", false, "Also pair terms within one category")
		epsilon   = flag.Float64("epsilon", 1.0, "PMI smoothing constant")
	)
	flag.Parse()

	if (*input == "") == (*storePath == "") {
		log.Fatal("exactly one of --input or --store required")
	}

	records, err := loadRecords(context.Background(), *input, *storePath, *runID)
	if err != nil {
		log.Fatalf("load records: %v", err)
	}

	report := cooccur.Build(records, cooccur.Options{
		Epsilon:      *epsilon,
		SameCategory: *sameCat,
		MinPapers:    *minPapers,
	})
	report.Pairs = report.TopPairs(*top, *minPapers)
	if report.Pairs == nil {
		report.Pairs = []cooccur.Pair{}
	}

	if *output == "" {
		if err := corpus.Encode(os.Stdout, report); err != nil {
			log.Fatalf("encode: %v", err)
		}
		return
	}
	if err := corpus.WriteFile(*output, report); err != nil {
		log.Fatalf("write report: %v", err)
	}
	fmt.Fprintf(os.Stderr, "%d papers, %d terms, %d pairs -> %s\n",
		report.TotalPapers, len(report.Terms), len(report.Pairs), *output)
}

func loadRecords(ctx context.Context, input, storePath, runID string) ([]process.Record, error) {
	if input != "" {
		out, err := corpus.LoadOutput(input)
		if err != nil {
			return nil, err
		}
		return out.Papers, nil
	}

	st, err := sqlite.OpenSQLite(ctx, storePath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	if runID == "" {
		runs, err := st.ListRuns(ctx, 1)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no runs in %s", storePath)
		}
		runID = runs[0].ID
	}
	return st.RunRecords(ctx, runID)
}
