package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_ParsesDecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		raw          string
		wantRequired bool
	}{
		{
			name:         "retrieval required",
			raw:          `{"kb_required": true, "justification": "asks about own labs"}`,
			wantRequired: true,
		},
		{
			name:         "retrieval not required",
			raw:          `{"kb_required": false, "justification": "greeting"}`,
			wantRequired: false,
		},
		{
			name:         "fenced output",
			raw:          "```json\n{\"kb_required\": false, \"justification\": \"small talk\"}\n```",
			wantRequired: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewWithDecider(func(context.Context, string) (string, error) {
				return tt.raw, nil
			}, nil)

			d := c.Classify(context.Background(), "query", "")
			assert.Equal(t, tt.wantRequired, d.Required)
			assert.False(t, d.FailedOpen)
			assert.NotEmpty(t, d.Justification)
		})
	}
}

// Fail-open law: whenever the underlying call fails, Classify returns
// Required=true, regardless of query content.
func TestClassify_FailsOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		err  error
	}{
		{name: "transport error", err: errors.New("connection refused")},
		{name: "empty response", raw: ""},
		{name: "malformed JSON", raw: "definitely not json"},
		{name: "missing field", raw: `{"justification": "no boolean"}`},
		{name: "oversized response", raw: strings.Repeat("x", maxDecisionBytes+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewWithDecider(func(context.Context, string) (string, error) {
				return tt.raw, tt.err
			}, nil)

			for _, query := range []string{"Hello", "What are my latest labs?"} {
				d := c.Classify(context.Background(), query, "")
				assert.True(t, d.Required, "must fail open for query %q", query)
				assert.True(t, d.FailedOpen)
			}
		})
	}
}

func TestClassify_PromptIncludesQueryAndHistory(t *testing.T) {
	t.Parallel()

	var captured string
	c := NewWithDecider(func(_ context.Context, prompt string) (string, error) {
		captured = prompt
		return `{"kb_required": false, "justification": "x"}`, nil
	}, nil)

	c.Classify(context.Background(), "my question", "USER: earlier turn")

	assert.Contains(t, captured, "my question")
	assert.Contains(t, captured, "USER: earlier turn")
}

func TestStripCodeFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\ncontent\n```", "content"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFences(tt.in))
	}
}
