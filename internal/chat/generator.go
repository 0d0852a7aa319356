package chat

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/mymr-ai/mymr/internal/memory"
)

// Generation is the validated result of one model call. Token counts
// come from the provider and are trusted for cost accounting.
type Generation struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Generator produces a model response from the system prompt, the
// structured conversation history, and the composed user turn. The
// history is passed as structured turns, not flattened text; only the
// classifier consumes the flattened transcript.
type Generator interface {
	Generate(ctx context.Context, history []memory.Message, userTurn string) (Generation, error)
}

// GenkitGenerator is the production Generator backed by a Genkit model.
type GenkitGenerator struct {
	g           *genkit.Genkit
	modelName   string
	maxTokens   int
	temperature float64
}

// NewGenkitGenerator creates a generator for the given model.
func NewGenkitGenerator(g *genkit.Genkit, modelName string, maxTokens int, temperature float64) *GenkitGenerator {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &GenkitGenerator{
		g:           g,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Generate calls the model and validates the response shape. A response
// without usage counters is converted into a typed error here rather
// than flowing onward as zeros that silently corrupt cost accounting.
func (gg *GenkitGenerator) Generate(ctx context.Context, history []memory.Message, userTurn string) (Generation, error) {
	messages := make([]*ai.Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role == memory.RoleAssistant {
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(m.Content)))
			continue
		}
		messages = append(messages, ai.NewUserMessage(ai.NewTextPart(m.Content)))
	}
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(userTurn)))

	resp, err := genkit.Generate(ctx, gg.g,
		ai.WithModelName(gg.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithMessages(messages...),
		ai.WithConfig(&ai.GenerationCommonConfig{
			MaxOutputTokens: gg.maxTokens,
			Temperature:     gg.temperature,
		}),
	)
	if err != nil {
		return Generation{}, fmt.Errorf("model call: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return Generation{}, fmt.Errorf("model %q returned an empty response", gg.modelName)
	}
	if resp.Usage == nil {
		return Generation{}, fmt.Errorf("model %q returned no usage counters", gg.modelName)
	}

	return Generation{
		Text:         text,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
