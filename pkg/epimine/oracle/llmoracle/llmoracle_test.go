package llmoracle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/epimine/internal/llm"
	"github.com/cognicore/epimine/pkg/epimine/oracle"
)

type fakeChat struct {
	reply string
	err   error
	user  string
}

func (f *fakeChat) Chat(_ context.Context, _, user string) (string, error) {
	f.user = user
	return f.reply, f.err
}

func TestScore(t *testing.T) {
	chat := &fakeChat{reply: "```json\n{\"scores\": {\"PTSD\": 0.82, \"anxiety\": 1.4, \"unrequested\": 0.9}}\n```"}
	o := New(chat)

	scores, err := o.Score(context.Background(), "Veterans with PTSD.", []string{"PTSD", "anxiety", "BDNF"})
	require.NoError(t, err)

	assert.Equal(t, []oracle.Score{
		{Label: "PTSD", Confidence: 0.82},
		{Label: "anxiety", Confidence: 1},
		{Label: "BDNF", Confidence: 0},
	}, scores)
	assert.Contains(t, chat.user, "Veterans with PTSD.")
	assert.Contains(t, chat.user, "- BDNF\n")
}

func TestScoreNoLabels(t *testing.T) {
	chat := &fakeChat{}
	scores, err := New(chat).Score(context.Background(), "text", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
	assert.Empty(t, chat.user, "no call without labels")
}

func TestScoreErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"transport", "", errors.New("timeout")},
		{"prose", "I cannot help with that", nil},
		{"broken json", "{\"scores\": {", nil},
		{"missing scores", "{\"labels\": []}", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&fakeChat{reply: tt.reply, err: tt.err}).Score(context.Background(), "x", []string{"a"})
			assert.Error(t, err)
		})
	}
}

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func TestNewFromClientWithAdapter(t *testing.T) {
	client := llm.Client{
		BaseURL: "https://api.test/v1/chat/completions",
		Model:   "gpt-test",
		HTTPClient: &http.Client{Transport: roundTrip(func(req *http.Request) *http.Response {
			body, _ := io.ReadAll(req.Body)
			assert.Contains(t, string(body), "json_object")
			content := `{\"scores\": {\"anxiety\": 0.7}}`
			if strings.Contains(string(body), "Nothing relevant") {
				content = `{\"scores\": {}}`
			}
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(strings.NewReader(`{"choices":[{"message":{"role":"assistant","content":"` + content + `"}}]}`)),
				Header:     make(http.Header),
			}
		})},
	}

	adapter := oracle.NewAdapter(NewFromClient(client))
	got := adapter.InferLabels(context.Background(), "Anxiety rose. Nothing relevant here.", []string{"anxiety"})

	assert.Equal(t, oracle.Labels{"anxiety": 1}, got)
}
