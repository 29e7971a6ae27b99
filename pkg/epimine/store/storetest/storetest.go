// Package storetest holds the behavior every store.Store must satisfy.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/epimine/pkg/epimine/classify"
	"github.com/cognicore/epimine/pkg/epimine/internalerr"
	"github.com/cognicore/epimine/pkg/epimine/process"
	"github.com/cognicore/epimine/pkg/epimine/store"
)

// Records returns two categorized records with ids 1 and 3.
func Records() []process.Record {
	return []process.Record{
		{DocumentID: 1, Categorized: process.Categorized{
			"Mental Health": {"General": {"PTSD": 2, "anxiety": 1}},
			"Epigenetic":    {"General": {"DNA methylation": 1}},
			"Socioeconomic": classify.Buckets{},
			"Ethnographic":  classify.Buckets{},
		}},
		{DocumentID: 3, Categorized: process.Categorized{
			"Mental Health": classify.Buckets{},
			"Epigenetic":    classify.Buckets{},
			"Socioeconomic": {"General": {"low-income": 2}},
			"Ethnographic": {
				"African descent": {"Black person": 1},
				"Asian descent":   {"Asian person": 4},
			},
		}},
	}
}

// Papers returns the outcomes matching Records.
func Papers() []store.Paper {
	return []store.Paper{
		{PaperID: 1, Name: "a.pdf", Status: "processed"},
		{PaperID: 2, Name: "b.pdf", Status: "skipped", Error: "no term counts"},
		{PaperID: 3, Name: "c.pdf", Status: "processed"},
	}
}

// Run exercises a fresh store returned by open.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("SaveAndGet", func(t *testing.T) { testSaveAndGet(t, open(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, open(t)) })
	t.Run("ListNewestFirst", func(t *testing.T) { testList(t, open(t)) })
	t.Run("Replace", func(t *testing.T) { testReplace(t, open(t)) })
	t.Run("RejectsEmptyID", func(t *testing.T) { testEmptyID(t, open(t)) })
}

func testSaveAndGet(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := store.Run{
		ID:         store.NewIDGenerator().New(started),
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Input:      "processed.json",
		Output:     "categorized.json",
		Oracle:     "nli",
		Total:      3,
		Processed:  2,
		Skipped:    1,
	}
	require.NoError(t, st.SaveRun(ctx, run, Papers(), Records()))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, got.StartedAt.Equal(run.StartedAt), "StartedAt = %v", got.StartedAt)
	assert.True(t, got.FinishedAt.Equal(run.FinishedAt), "FinishedAt = %v", got.FinishedAt)
	got.StartedAt, got.FinishedAt = run.StartedAt, run.FinishedAt
	assert.Equal(t, run, got)

	records, err := st.RunRecords(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, Records(), records)

	papers, err := st.RunPapers(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, Papers(), papers)

	// Mutating the returned records must not affect the store.
	records[0].Categorized["Mental Health"]["General"]["PTSD"] = 100
	again, err := st.RunRecords(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again[0].Categorized["Mental Health"]["General"]["PTSD"])
}

func testNotFound(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	_, err := st.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
	_, err = st.RunRecords(ctx, "missing")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
	_, err = st.RunPapers(ctx, "missing")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
}

func testList(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	gen := store.NewIDGenerator()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		id := gen.New(ts)
		ids = append(ids, id)
		require.NoError(t, st.SaveRun(ctx, store.Run{ID: id, StartedAt: ts, FinishedAt: ts}, nil, nil))
	}

	runs, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2], ids[1]}, runIDs(runs))

	all, err := st.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	records, err := st.RunRecords(ctx, ids[0])
	require.NoError(t, err)
	assert.Empty(t, records)
}

func testReplace(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	run := store.Run{ID: store.NewIDGenerator().New(time.Now()), Total: 3, Processed: 2}
	require.NoError(t, st.SaveRun(ctx, run, Papers(), Records()))
	run.Processed = 1
	require.NoError(t, st.SaveRun(ctx, run, Papers()[:1], Records()[:1]))

	records, err := st.RunRecords(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].DocumentID)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Processed)
}

func testEmptyID(t *testing.T, st store.Store) {
	defer st.Close()
	err := st.SaveRun(context.Background(), store.Run{}, nil, nil)
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func runIDs(runs []store.Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}
