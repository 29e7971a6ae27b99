package corpus

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/epimine/pkg/epimine/classify"
	"github.com/cognicore/epimine/pkg/epimine/internalerr"
	"github.com/cognicore/epimine/pkg/epimine/process"
)

const sampleInput = `{"papers":[
	{"paper_name":"p1","cleaned_text":"PTSD and DNA methylation are discussed.",
	 "term_counts":{"mental health terms":{"PTSD":2},"epigenetic terms":{"DNA methylation":1},"socioeconomic terms":{},"ethnographic terms":{}}},
	{"paper_name":"list","cleaned_text":"x","term_counts":["PTSD"]},
	{"paper_name":"inner","cleaned_text":"x","term_counts":{"mental health terms":["PTSD"]}},
	{"paper_name":"none","cleaned_text":"x","term_counts":null},
	{"paper_name":"negative","cleaned_text":"x","term_counts":{"mental health terms":{"PTSD":-1}}},
	"not an object"
]}`

func TestDecode(t *testing.T) {
	in, err := Decode(strings.NewReader(sampleInput))
	require.NoError(t, err)
	require.Len(t, in.Papers, 6)

	p1 := in.Papers[0]
	require.NoError(t, p1.Err())
	assert.Equal(t, "p1", p1.Name)
	assert.Equal(t, classify.Counts{"PTSD": 2}, p1.TermCounts["mental health terms"])
	assert.Equal(t, classify.Counts{}, p1.TermCounts["ethnographic terms"])

	assert.True(t, errors.Is(in.Papers[1].Err(), ErrNotMapping))
	assert.True(t, errors.Is(in.Papers[2].Err(), ErrNotMapping))
	assert.NoError(t, in.Papers[3].Err())
	assert.Nil(t, in.Papers[3].TermCounts)
	assert.True(t, errors.Is(in.Papers[4].Err(), ErrNotMapping))
	assert.True(t, errors.Is(in.Papers[5].Err(), ErrNotMapping))
}

func TestDocumentsCarryErrors(t *testing.T) {
	in, err := Decode(strings.NewReader(sampleInput))
	require.NoError(t, err)

	docs := in.Documents()
	require.Len(t, docs, 6)
	assert.Equal(t, "p1", docs[0].Name)
	assert.NoError(t, docs[0].Err)
	assert.Error(t, docs[1].Err)
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"documents": []}`))
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))

	_, err = Decode(strings.NewReader(`{"papers": {}}`))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`not json`))
	assert.Error(t, err)

	in, err := Decode(strings.NewReader(`{"papers": []}`))
	require.NoError(t, err)
	assert.Empty(t, in.Papers)
}

func TestEncodeOutputShape(t *testing.T) {
	out := NewOutput([]process.Record{{
		DocumentID: 1,
		Categorized: process.Categorized{
			"Mental Health": {"General": {"PTSD": 2}},
			"Epigenetic":    {"General": {"DNA methylation": 1}},
			"Socioeconomic": {},
			"Ethnographic":  {},
		},
	}})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, out))

	want := `{
    "papers": [
        {
            "paper_id": 1,
            "categorized_counts": {
                "Epigenetic": {
                    "General": {
                        "DNA methylation": 1
                    }
                },
                "Ethnographic": {},
                "Mental Health": {
                    "General": {
                        "PTSD": 2
                    }
                },
                "Socioeconomic": {}
            }
        }
    ]
}
`
	assert.Equal(t, want, buf.String())
}

func TestEmptyOutputIsList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, NewOutput(nil)))
	assert.JSONEq(t, `{"papers": []}`, buf.String())
}

func TestWriteAndLoadOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	out := NewOutput([]process.Record{{DocumentID: 3, Categorized: process.Categorized{
		"Ethnographic": {"African descent": {"Black person": 1}},
	}}})

	require.NoError(t, WriteFile(path, out))

	got, err := LoadOutput(path)
	require.NoError(t, err)
	assert.Equal(t, out, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is cleaned up")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadOutput(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestInputRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.json")
	in := &Input{Papers: []Paper{{
		Name:       "p",
		Text:       "text",
		TermCounts: map[string]classify.Counts{"mental health terms": {"anxiety": 1}},
	}}}
	require.NoError(t, WriteFile(path, in))

	got, err := Load(path)
	require.NoError(t, err)
	require.Len(t, got.Papers, 1)
	assert.Equal(t, in.Papers[0].TermCounts, got.Papers[0].TermCounts)
	assert.NoError(t, got.Papers[0].Err())
}

func TestWriteFileIsWorldReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "categorized.json")
	require.NoError(t, WriteFile(path, NewOutput(nil)))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), fi.Mode().Perm())
}
