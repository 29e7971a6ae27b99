// Package corpus reads the preprocessed paper artifact and writes the
// categorized result artifact.
package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cognicore/epimine/pkg/epimine/classify"
	"github.com/cognicore/epimine/pkg/epimine/internalerr"
	"github.com/cognicore/epimine/pkg/epimine/process"
)

// ErrNotMapping is returned for papers whose term counts are not a JSON
// object of objects mapping terms to integer counts.
var ErrNotMapping = internalerr.ErrNotMapping

// Input is the preprocessed artifact: {"papers": [...]}.
type Input struct {
	Papers []Paper `json:"papers"`
}

// Paper is one preprocessed paper. A paper whose fields have the wrong
// shape still decodes; Err reports the problem.
type Paper struct {
	Name       string                     `json:"paper_name"`
	Text       string                     `json:"cleaned_text"`
	TermCounts map[string]classify.Counts `json:"term_counts"`

	err error
}

// Err returns the decoding problem of this paper, if any.
func (p Paper) Err() error { return p.err }

type paperWire struct {
	Name       string          `json:"paper_name"`
	Text       string          `json:"cleaned_text"`
	TermCounts json.RawMessage `json:"term_counts"`
}

// UnmarshalJSON records shape errors on the paper instead of failing the
// whole artifact.
func (p *Paper) UnmarshalJSON(data []byte) error {
	*p = Paper{}

	var w paperWire
	if err := json.Unmarshal(data, &w); err != nil {
		p.err = fmt.Errorf("%w: %v", ErrNotMapping, err)
		return nil
	}
	p.Name = w.Name
	p.Text = w.Text

	counts, err := decodeTermCounts(w.TermCounts)
	if err != nil {
		p.err = err
		return nil
	}
	p.TermCounts = counts
	return nil
}

func decodeTermCounts(raw json.RawMessage) (map[string]classify.Counts, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var categories map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &categories); err != nil {
		return nil, fmt.Errorf("%w: term_counts: %v", ErrNotMapping, err)
	}

	out := make(map[string]classify.Counts, len(categories))
	for name, body := range categories {
		var counts classify.Counts
		if err := json.Unmarshal(body, &counts); err != nil {
			return nil, fmt.Errorf("%w: term_counts[%q]: %v", ErrNotMapping, name, err)
		}
		if counts == nil {
			counts = classify.Counts{}
		}
		for term, n := range counts {
			if n < 0 {
				return nil, fmt.Errorf("%w: term_counts[%q][%q] is negative", ErrNotMapping, name, term)
			}
		}
		out[name] = counts
	}
	return out, nil
}

// Documents converts the papers for processing, preserving order.
func (in *Input) Documents() []process.Document {
	docs := make([]process.Document, len(in.Papers))
	for i, p := range in.Papers {
		docs[i] = process.Document{
			Name:       p.Name,
			Text:       p.Text,
			TermCounts: p.TermCounts,
			Err:        p.err,
		}
	}
	return docs
}

// Output is the categorized artifact: {"papers": [...]}.
type Output struct {
	Papers []process.Record `json:"papers"`
}

// NewOutput wraps records; a nil slice becomes an empty list.
func NewOutput(records []process.Record) Output {
	if records == nil {
		records = []process.Record{}
	}
	return Output{Papers: records}
}

// Decode reads an Input artifact. Only a malformed envelope is an error;
// per-paper problems are reported through Paper.Err.
func Decode(r io.Reader) (*Input, error) {
	var env struct {
		Papers *[]Paper `json:"papers"`
	}
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	if env.Papers == nil {
		return nil, fmt.Errorf("decode corpus: %w: missing \"papers\" list", internalerr.ErrInvalidInput)
	}
	return &Input{Papers: *env.Papers}, nil
}

// Load reads an Input artifact from path.
func Load(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// DecodeOutput reads an Output artifact.
func DecodeOutput(r io.Reader) (Output, error) {
	var env struct {
		Papers *[]process.Record `json:"papers"`
	}
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return Output{}, fmt.Errorf("decode results: %w", err)
	}
	if env.Papers == nil {
		return Output{}, fmt.Errorf("decode results: %w: missing \"papers\" list", internalerr.ErrInvalidInput)
	}
	return NewOutput(*env.Papers), nil
}

// LoadOutput reads an Output artifact from path.
func LoadOutput(path string) (Output, error) {
	f, err := os.Open(path)
	if err != nil {
		return Output{}, fmt.Errorf("open results %s: %w", path, err)
	}
	defer f.Close()
	return DecodeOutput(f)
}

// Encode writes v as pretty-printed UTF-8 JSON with sorted map keys.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteFile encodes v to path through a temporary file in the same
// directory, so readers never observe a partial artifact.
func WriteFile(path string, v any) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".epimine-*.json")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, v); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	// CreateTemp uses 0600; the artifact is meant for other tools too.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
