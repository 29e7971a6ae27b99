package oracle

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedOracle returns fixed scores per chunk and fails on chunks that
// contain the word "boom".
type scriptedOracle struct {
	scores map[string][]Score
	calls  atomic.Int32
	closed bool
}

func (o *scriptedOracle) Score(_ context.Context, chunk string, _ []string) ([]Score, error) {
	o.calls.Add(1)
	if strings.Contains(chunk, "boom") {
		return nil, errors.New("model exploded")
	}
	if strings.Contains(chunk, "panic") {
		panic("unexpected tensor shape")
	}
	return o.scores[chunk], nil
}

func (o *scriptedOracle) Close() error {
	o.closed = true
	return nil
}

func TestInferLabelsCountsPerChunk(t *testing.T) {
	o := &scriptedOracle{scores: map[string][]Score{
		"Trauma raises anxiety.":  {{"anxiety", 0.9}, {"PTSD", 0.31}, {"BDNF", 0.1}},
		"Anxiety persists.":       {{"anxiety", 0.8}, {"PTSD", 0.3}},
		"Methylation was higher.": {{"DNA methylation", 0.95}},
	}}
	a := NewAdapter(o)

	got := a.InferLabels(context.Background(),
		"Trauma raises anxiety. Anxiety persists. Methylation was higher.",
		[]string{"anxiety", "PTSD", "BDNF", "DNA methylation"})

	assert.Equal(t, Labels{"anxiety": 2, "PTSD": 1, "DNA methylation": 1}, got)
	assert.EqualValues(t, 3, o.calls.Load())
}

func TestInferLabelsThresholdIsExclusive(t *testing.T) {
	o := &scriptedOracle{scores: map[string][]Score{"One.": {{"x", 0.5}, {"y", 0.51}}}}

	got := NewAdapter(o, WithThreshold(0.5)).InferLabels(context.Background(), "One.", []string{"x", "y"})

	assert.Equal(t, Labels{"y": 1}, got)
}

func TestInferLabelsCountsLabelOncePerChunk(t *testing.T) {
	o := &scriptedOracle{scores: map[string][]Score{"One.": {{"x", 0.9}, {"x", 0.8}}}}

	got := NewAdapter(o).InferLabels(context.Background(), "One.", []string{"x"})

	assert.Equal(t, Labels{"x": 1}, got)
}

func TestChunkFailureIsIsolated(t *testing.T) {
	o := &scriptedOracle{scores: map[string][]Score{
		"First chunk.": {{"anxiety", 0.9}},
		"Third chunk.": {{"anxiety", 0.7}, {"PTSD", 0.6}},
	}}
	var failures []error
	a := NewAdapter(o, WithFailureHook(func(err error) { failures = append(failures, err) }))

	results := a.ScoreChunks(context.Background(), "First chunk. Second boom chunk. Third chunk.", nil)
	require.Len(t, results, 3)
	assert.True(t, results[0].OK())
	assert.False(t, results[1].OK())
	assert.True(t, results[2].OK())
	assert.Len(t, failures, 1)

	assert.Equal(t, Labels{"anxiety": 2, "PTSD": 1}, Fold(results))
}

func TestChunkPanicIsIsolated(t *testing.T) {
	o := &scriptedOracle{scores: map[string][]Score{"Fine.": {{"x", 0.9}}}}
	a := NewAdapter(o)

	results := a.ScoreChunks(context.Background(), "Fine. This will panic. Fine.", nil)
	require.Len(t, results, 3)

	var pe *PanicError
	require.True(t, errors.As(results[1].Err, &pe))
	assert.Equal(t, Labels{"x": 2}, Fold(results))
}

func TestScoreChunksStopsWhenContextDone(t *testing.T) {
	o := &scriptedOracle{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewAdapter(o).ScoreChunks(ctx, "One. Two. Three.", nil)

	assert.Empty(t, results)
	assert.EqualValues(t, 0, o.calls.Load())
}

func TestInferLabelsEmptyText(t *testing.T) {
	o := &scriptedOracle{}
	assert.Empty(t, NewAdapter(o).InferLabels(context.Background(), "   ", []string{"x"}))
	assert.EqualValues(t, 0, o.calls.Load())
}

func TestSharedFactoryDoesNotClose(t *testing.T) {
	o := &scriptedOracle{}
	f := Shared(o)

	got, err := f()
	require.NoError(t, err)
	require.NoError(t, got.Close())
	assert.False(t, o.closed)
}
