package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/epimine/pkg/epimine/classify"
	"github.com/cognicore/epimine/pkg/epimine/internalerr"
	"github.com/cognicore/epimine/pkg/epimine/process"
	"github.com/cognicore/epimine/pkg/epimine/store"
)

// sqliteStore implements store.Store using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode and foreign keys enabled
// and creates the schema if needed.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	input TEXT,
	output TEXT,
	oracle TEXT,
	total INTEGER NOT NULL DEFAULT 0,
	processed INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS papers (
	run_id TEXT NOT NULL,
	paper_id INTEGER NOT NULL,
	paper_name TEXT,
	status TEXT NOT NULL,
	error TEXT,
	PRIMARY KEY(run_id, paper_id),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS paper_categories (
	run_id TEXT NOT NULL,
	paper_id INTEGER NOT NULL,
	category TEXT NOT NULL,
	PRIMARY KEY(run_id, paper_id, category),
	FOREIGN KEY(run_id, paper_id) REFERENCES papers(run_id, paper_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS term_counts (
	run_id TEXT NOT NULL,
	paper_id INTEGER NOT NULL,
	category TEXT NOT NULL,
	subcategory TEXT NOT NULL,
	term TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(run_id, paper_id, category, subcategory, term),
	FOREIGN KEY(run_id, paper_id, category) REFERENCES paper_categories(run_id, paper_id, category) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_term_counts_term ON term_counts(term);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveRun inserts or replaces a run together with its papers and counts.
func (s *sqliteStore) SaveRun(ctx context.Context, run store.Run, papers []store.Paper, records []process.Record) error {
	if run.ID == "" {
		return fmt.Errorf("%w: run without id", internalerr.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"term_counts", "paper_categories", "papers"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id=?`, run.ID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id=?`, run.ID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, started_at, finished_at, input, output, oracle, total, processed, skipped, failed)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Input, run.Output, run.Oracle,
		run.Total, run.Processed, run.Skipped, run.Failed,
	)
	if err != nil {
		return err
	}

	if err := insertPapers(ctx, tx, run.ID, papers, records); err != nil {
		return err
	}
	if err := insertRecords(ctx, tx, run.ID, records); err != nil {
		return err
	}
	return tx.Commit()
}

func insertPapers(ctx context.Context, tx *sql.Tx, runID string, papers []store.Paper, records []process.Record) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO papers (run_id, paper_id, paper_name, status, error) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(run_id, paper_id) DO UPDATE SET
	paper_name=excluded.paper_name,
	status=excluded.status,
	error=excluded.error`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	seen := make(map[int]struct{}, len(papers))
	for _, p := range papers {
		if _, err := stmt.ExecContext(ctx, runID, p.PaperID, p.Name, p.Status, p.Error); err != nil {
			return err
		}
		seen[p.PaperID] = struct{}{}
	}
	// Records need a paper row for the foreign key.
	for _, r := range records {
		if _, ok := seen[r.DocumentID]; ok {
			continue
		}
		if _, err := stmt.ExecContext(ctx, runID, r.DocumentID, "", "processed", ""); err != nil {
			return err
		}
	}
	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, runID string, records []process.Record) error {
	catStmt, err := tx.PrepareContext(ctx, `INSERT INTO paper_categories (run_id, paper_id, category) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer catStmt.Close()

	termStmt, err := tx.PrepareContext(ctx, `
INSERT INTO term_counts (run_id, paper_id, category, subcategory, term, count) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer termStmt.Close()

	for _, r := range records {
		for cat, buckets := range r.Categorized {
			if _, err := catStmt.ExecContext(ctx, runID, r.DocumentID, cat); err != nil {
				return err
			}
			for sub, terms := range buckets {
				for term, n := range terms {
					if _, err := termStmt.ExecContext(ctx, runID, r.DocumentID, cat, sub, term, n); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// GetRun retrieves a run by id
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, started_at, finished_at, input, output, oracle, total, processed, skipped, failed
FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return run, err
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, finished_at, input, output, oracle, total, processed, skipped, failed
FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (store.Run, error) {
	var (
		run                 store.Run
		started, finished   string
		input, output, orcl sql.NullString
	)
	err := sc.Scan(&run.ID, &started, &finished, &input, &output, &orcl,
		&run.Total, &run.Processed, &run.Skipped, &run.Failed)
	if err != nil {
		return store.Run{}, err
	}
	run.Input, run.Output, run.Oracle = input.String, output.String, orcl.String
	if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
		run.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, finished); err == nil {
		run.FinishedAt = t
	}
	return run, nil
}

// RunPapers lists every paper outcome of a run in paper order.
func (s *sqliteStore) RunPapers(ctx context.Context, id string) ([]store.Paper, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT paper_id, paper_name, status, error FROM papers WHERE run_id = ? ORDER BY paper_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var papers []store.Paper
	for rows.Next() {
		var (
			p         store.Paper
			name, msg sql.NullString
		)
		if err := rows.Scan(&p.PaperID, &name, &p.Status, &msg); err != nil {
			return nil, err
		}
		p.Name, p.Error = name.String, msg.String
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// RunRecords rebuilds the categorized records of a run.
func (s *sqliteStore) RunRecords(ctx context.Context, id string) ([]process.Record, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	byPaper := make(map[int]process.Categorized)
	var order []int

	rows, err := s.db.QueryContext(ctx, `
SELECT paper_id, category FROM paper_categories WHERE run_id = ? ORDER BY paper_id, category`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			paperID int
			cat     string
		)
		if err := rows.Scan(&paperID, &cat); err != nil {
			rows.Close()
			return nil, err
		}
		c, ok := byPaper[paperID]
		if !ok {
			c = make(process.Categorized)
			byPaper[paperID] = c
			order = append(order, paperID)
		}
		c[cat] = classify.Buckets{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
SELECT paper_id, category, subcategory, term, count FROM term_counts WHERE run_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			paperID        int
			cat, sub, term string
			n              int
		)
		if err := rows.Scan(&paperID, &cat, &sub, &term, &n); err != nil {
			return nil, err
		}
		byPaper[paperID][cat].Add(classify.Buckets{sub: {term: n}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	records := make([]process.Record, 0, len(order))
	for _, pid := range order {
		records = append(records, process.Record{DocumentID: pid, Categorized: byPaper[pid]})
	}
	return records, nil
}
