// Package intent decides, per query, whether knowledge-base retrieval
// is needed before generation.
//
// The decision comes from a structured-output LLM call. The policy on
// failure is fail-open: a broken classifier means "retrieve", because
// silently withholding relevant medical context is worse than an
// unnecessary retrieval. Callers can rely on Classify never failing.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/mymr-ai/mymr/internal/log"
)

// maxDecisionBytes limits the model response size before JSON parsing.
const maxDecisionBytes = 4 * 1024

// classifierPrompt is the fixed decision prompt. %s placeholders:
// (1) formatted conversation history, (2) user query.
const classifierPrompt = `ROLE: You are a Clinical Intent Router for a medical AI assistant.

TASK: Analyze the user's query and conversation history to determine if specific information from the patient's medical records is required.

GUIDELINES:
- kb_required is true if the user asks about:
  - Their specific lab results, vitals, or imaging reports.
  - Their medications, dosages, or medication history.
  - Specific doctor's notes or clinical assessments.
  - "My latest...", "What did the doctor say about...", "Show me my..."
  - Their diagnosis, treatment plans, or medical history.

- kb_required is false if the user is:
  - Greeting you ("Hi", "Hello", "Good morning").
  - Asking general medical questions not specific to their records ("What is hypertension?").
  - Giving a simple "Thank you" or "Okay" or "Got it".
  - Asking about the assistant's capabilities.
  - Making small talk, or asking a clarifying question about a previous response that needs no new data.

CONVERSATION HISTORY:
%s

USER QUERY: %s

Respond with ONLY a JSON object: {"kb_required": true|false, "justification": "<one sentence>"}`

// Decision is the classifier's explicit result. FailedOpen marks
// decisions forced to Required by an underlying failure; it exists for
// observability only and must never drive control flow.
type Decision struct {
	Required      bool
	Justification string
	FailedOpen    bool
}

// DecideFunc executes the underlying text-classification call and
// returns the raw model output. Injected in tests to exercise the
// fail-open branch.
type DecideFunc func(ctx context.Context, prompt string) (string, error)

// Classifier gates retrieval per query.
type Classifier struct {
	decide DecideFunc
	logger log.Logger
}

// New creates a classifier backed by a Genkit model call.
func New(g *genkit.Genkit, modelName string, logger log.Logger) *Classifier {
	decide := func(ctx context.Context, prompt string) (string, error) {
		resp, err := genkit.Generate(ctx, g,
			ai.WithModelName(modelName),
			ai.WithPrompt(prompt),
		)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return NewWithDecider(decide, logger)
}

// NewWithDecider creates a classifier with a custom decision call.
func NewWithDecider(decide DecideFunc, logger log.Logger) *Classifier {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Classifier{decide: decide, logger: logger}
}

// Classify reports whether the query needs knowledge-base retrieval.
// Any underlying failure — transport error, oversized or malformed
// output, missing field — yields Required=true with FailedOpen set.
func (c *Classifier) Classify(ctx context.Context, query, formattedHistory string) Decision {
	prompt := fmt.Sprintf(classifierPrompt, formattedHistory, query)

	raw, err := c.decide(ctx, prompt)
	if err != nil {
		c.logger.Warn("intent classification failed, defaulting to retrieval", "error", err)
		return Decision{Required: true, FailedOpen: true}
	}

	decision, err := parseDecision(raw)
	if err != nil {
		c.logger.Warn("intent classification unparseable, defaulting to retrieval",
			"error", err, "raw", truncate(raw, 200))
		return Decision{Required: true, FailedOpen: true}
	}

	c.logger.Debug("intent classified",
		"kb_required", decision.Required,
		"justification", decision.Justification,
	)
	return decision
}

// parseDecision extracts the structured decision from raw model output.
func parseDecision(raw string) (Decision, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Decision{}, fmt.Errorf("empty classification response")
	}
	if len(text) > maxDecisionBytes {
		return Decision{}, fmt.Errorf("classification response too large: %d bytes", len(text))
	}
	text = stripCodeFences(text)

	var payload struct {
		KBRequired    *bool  `json:"kb_required"`
		Justification string `json:"justification"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return Decision{}, fmt.Errorf("parsing classification: %w", err)
	}
	if payload.KBRequired == nil {
		return Decision{}, fmt.Errorf("classification missing kb_required field")
	}

	return Decision{
		Required:      *payload.KBRequired,
		Justification: payload.Justification,
	}, nil
}

// stripCodeFences removes ```json ... ``` wrapping from model output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

// truncate shortens s to at most n bytes for logging.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
