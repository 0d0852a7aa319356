package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"

	"github.com/mymr-ai/mymr/internal/log"
)

// VectorDimension is the embedding width stored in the documents table.
// gemini-embedding-001 outputs 3072 dimensions by default but supports
// truncation via OutputDimensionality; the schema uses vector(768).
const VectorDimension int32 = 768

// searchTimeout bounds a single vector search, embedding included.
const searchTimeout = 10 * time.Second

// Document is a chunk of a patient record stored in the knowledge base.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
	URI      string
}

// Store is the pgvector-backed document store. It embeds content with
// the configured embedder and searches by cosine similarity, scoped by
// a JSONB metadata containment filter.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	logger   log.Logger
}

// NewStore creates a document store on the given pool and embedder.
func NewStore(pool *pgxpool.Pool, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, embedder: embedder, logger: logger}
}

// Add upserts a document chunk, embedding its content first.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if doc.ID == "" || doc.Content == "" {
		return errors.New("document id and content are required")
	}
	if doc.Metadata[MetaPatientID] == "" {
		return fmt.Errorf("document %q has no %s metadata", doc.ID, MetaPatientID)
	}

	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (id, content, embedding, metadata, uri)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content,
		    embedding = EXCLUDED.embedding,
		    metadata = EXCLUDED.metadata,
		    uri = EXCLUDED.uri`,
		doc.ID, doc.Content, embedding, metadataJSON, doc.URI,
	)
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// Retrieve fetches cfg.NumResults candidates by cosine similarity under
// the config's filter, then runs the reranking stage to cut the result
// down to cfg.Rerank.NumResults. Zero results is not an error.
func (s *Store) Retrieve(ctx context.Context, query string, cfg SearchConfig) ([]Passage, error) {
	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	queryEmbedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	if cfg.Filter == nil {
		// Unfiltered search would cross patient boundaries.
		return nil, errors.New("search config has no filter")
	}
	filterJSON, err := json.Marshal(cfg.Filter.Flatten())
	if err != nil {
		return nil, fmt.Errorf("marshaling filter: %w", err)
	}

	rows, err := s.pool.Query(queryCtx, `
		SELECT content, COALESCE(uri, ''), 1 - (embedding <=> $1) AS similarity
		FROM documents
		WHERE metadata @> $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		queryEmbedding, filterJSON, cfg.NumResults,
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var passages []Passage
	for rows.Next() {
		var p Passage
		if err := rows.Scan(&p.Content, &p.URI, &p.Score); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}

	reranked := Rerank(query, passages, cfg.Rerank.NumResults)
	s.logger.Debug("retrieved passages",
		"fetched", len(passages),
		"kept", len(reranked),
		"rerank_model", cfg.Rerank.ModelID,
	)
	return reranked, nil
}

// embed generates the embedding vector for one text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	dim := VectorDimension
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("embedder returned empty embedding")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}
