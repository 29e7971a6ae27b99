package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/epimine/pkg/epimine/process"
)

// Store persists categorization runs.
type Store interface {
	Close() error

	// SaveRun stores a finished run with the outcome of every input paper
	// and the records of the processed ones.
	SaveRun(ctx context.Context, run Run, papers []Paper, records []process.Record) error
	// GetRun returns internalerr.ErrNotFound for unknown ids.
	GetRun(ctx context.Context, id string) (Run, error)
	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	// RunRecords reassembles the categorized records of a run, ordered by
	// paper id.
	RunRecords(ctx context.Context, id string) ([]process.Record, error)
	RunPapers(ctx context.Context, id string) ([]Paper, error)
}

// Run summarizes one categorization run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Input      string
	Output     string
	Oracle     string
	Total      int
	Processed  int
	Skipped    int
	Failed     int
}

// Paper is the outcome of one input paper within a run.
type Paper struct {
	PaperID int
	Name    string
	Status  string
	Error   string
}

// IDGenerator issues monotonically increasing ULIDs. It is safe for
// concurrent use.
type IDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDGenerator creates a generator seeded from crypto/rand.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns a ULID for time t.
func (g *IDGenerator) New(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}

// CloneRecord deep-copies r so stores never share maps with callers.
func CloneRecord(r process.Record) process.Record {
	out := process.Record{DocumentID: r.DocumentID, Categorized: make(process.Categorized, len(r.Categorized))}
	for cat, buckets := range r.Categorized {
		cp := make(map[string]map[string]int, len(buckets))
		for sub, terms := range buckets {
			t := make(map[string]int, len(terms))
			for term, n := range terms {
				t[term] = n
			}
			cp[sub] = t
		}
		out.Categorized[cat] = cp
	}
	return out
}
