package retrieval

import "context"

// Passage is one scored chunk returned by a knowledge-base search.
type Passage struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	URI     string  `json:"uri,omitempty"`
}

// Retriever executes a knowledge-base search. Zero results is a normal
// outcome, not an error; errors indicate genuine transport or service
// failure.
//
// Interface defined here for the orchestrator to consume; the pgvector
// Store is the production implementation.
type Retriever interface {
	Retrieve(ctx context.Context, query string, cfg SearchConfig) ([]Passage, error)
}
