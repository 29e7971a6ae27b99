// Package llmoracle scores text chunks against candidate labels with an
// OpenAI-compatible chat model.
package llmoracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cognicore/epimine/internal/llm"
	"github.com/cognicore/epimine/pkg/epimine/oracle"
)

const systemPrompt = "You are a zero-shot multi-label text classifier for biomedical literature. " +
	"Score every candidate label independently between 0 and 1 by how strongly the passage is about it. " +
	"Reply with JSON only: {\"scores\": {\"<label>\": <score>, ...}}."

// Chatter is the chat capability the oracle needs.
type Chatter interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Oracle implements oracle.Oracle on top of a chat endpoint. It is safe for
// concurrent use when the underlying Chatter is.
type Oracle struct {
	chat Chatter
}

// New wraps a chat client.
func New(chat Chatter) *Oracle {
	return &Oracle{chat: chat}
}

// NewFromClient builds an Oracle from an llm.Client with JSON mode enabled.
func NewFromClient(c llm.Client) *Oracle {
	c.JSONMode = true
	return New(&c)
}

type scoresPayload struct {
	Scores map[string]float64 `json:"scores"`
}

// Score implements oracle.Oracle. Scores for labels that were not asked for
// are discarded; labels the model omits score zero.
func (o *Oracle) Score(ctx context.Context, chunk string, labels []string) ([]oracle.Score, error) {
	if len(labels) == 0 {
		return nil, nil
	}

	out, err := o.chat.Chat(ctx, systemPrompt, formatPrompt(chunk, labels))
	if err != nil {
		return nil, fmt.Errorf("llmoracle: %w", err)
	}

	payload, err := parseScores(out)
	if err != nil {
		return nil, fmt.Errorf("llmoracle: %w", err)
	}

	scores := make([]oracle.Score, 0, len(labels))
	for _, label := range labels {
		scores = append(scores, oracle.Score{Label: label, Confidence: clamp(payload.Scores[label])})
	}
	return scores, nil
}

// Close implements oracle.Oracle.
func (o *Oracle) Close() error { return nil }

func formatPrompt(chunk string, labels []string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Passage:\n%s\n\nCandidate labels:\n", chunk)
	for _, label := range labels {
		fmt.Fprintf(&buf, "- %s\n", label)
	}
	return buf.String()
}

// parseScores extracts the JSON object from a model reply, tolerating code
// fences and surrounding prose.
func parseScores(reply string) (scoresPayload, error) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end < start {
		return scoresPayload{}, fmt.Errorf("no JSON object in reply %q", reply)
	}

	var payload scoresPayload
	if err := json.Unmarshal([]byte(reply[start:end+1]), &payload); err != nil {
		return scoresPayload{}, fmt.Errorf("decode scores: %w", err)
	}
	if payload.Scores == nil {
		return scoresPayload{}, fmt.Errorf("reply has no scores")
	}
	return payload, nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
