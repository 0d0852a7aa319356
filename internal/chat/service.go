// Package chat composes the per-request pipeline: read history,
// classify intent, optionally retrieve patient context, generate a
// response, account cost, and persist the exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/mymr-ai/mymr/internal/intent"
	"github.com/mymr-ai/mymr/internal/log"
	"github.com/mymr-ai/mymr/internal/memory"
	"github.com/mymr-ai/mymr/internal/retrieval"
)

// FallbackResponse is the fixed user-safe text the boundary returns
// when the pipeline fails.
const FallbackResponse = "I apologize, but I was unable to process your request right now. Please try again in a moment."

// Request is one inbound chat query.
type Request struct {
	PatientID    string
	Query        string
	DocumentType string
}

// Exchange is the structured result of one completed request.
type Exchange struct {
	ModelName    string  `json:"model_name"`
	Response     string  `json:"response"`
	Latency      float64 `json:"latency"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalCost    float64 `json:"total_cost"`
	KBFetched    bool    `json:"kb_fetched"`
}

// Classifier gates retrieval per query. Satisfied by *intent.Classifier.
type Classifier interface {
	Classify(ctx context.Context, query, formattedHistory string) intent.Decision
}

// Config contains all required parameters for the chat Service.
type Config struct {
	Memory     *memory.Store
	Classifier Classifier
	Retriever  retrieval.Retriever
	Configs    *retrieval.ConfigBuilder
	Generator  Generator
	Logger     log.Logger

	ModelName string
	Pricing   Pricing

	// Resilience (zero values use defaults)
	RetryConfig RetryConfig
	RateLimiter *rate.Limiter
}

// validate checks that all required collaborators are present.
func (cfg Config) validate() error {
	if cfg.Memory == nil {
		return errors.New("memory store is required")
	}
	if cfg.Classifier == nil {
		return errors.New("classifier is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.Configs == nil {
		return errors.New("retrieval config builder is required")
	}
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Service is the chat orchestrator. One instance serves all requests;
// per-request state lives on the stack, and the only shared mutable
// state is the injected memory store.
type Service struct {
	memory     *memory.Store
	classifier Classifier
	retriever  retrieval.Retriever
	configs    *retrieval.ConfigBuilder
	generator  Generator
	logger     log.Logger

	modelName string
	pricing   Pricing

	retryConfig RetryConfig
	rateLimiter *rate.Limiter
}

// New creates a chat Service.
func New(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	// Default: 10 generations/sec sustained, burst of 30.
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	return &Service{
		memory:      cfg.Memory,
		classifier:  cfg.Classifier,
		retriever:   cfg.Retriever,
		configs:     cfg.Configs,
		generator:   cfg.Generator,
		logger:      cfg.Logger,
		modelName:   cfg.ModelName,
		pricing:     cfg.Pricing,
		retryConfig: retryConfig,
		rateLimiter: rl,
	}, nil
}

// Answer runs the full pipeline for one request.
//
// Memory is written only after generation succeeds, so a failed request
// never leaves a half-recorded exchange behind. Errors propagate to the
// boundary, which owns the user-facing fallback.
func (s *Service) Answer(ctx context.Context, req Request) (*Exchange, error) {
	history := s.memory.History(req.PatientID)
	formatted := s.memory.Formatted(req.PatientID)

	decision := s.classifier.Classify(ctx, req.Query, formatted)

	userTurn := composeUserTurn(req.Query, nil)
	if decision.Required {
		searchCfg := s.configs.Build(req.PatientID, req.DocumentType)
		passages, err := s.retriever.Retrieve(ctx, req.Query, searchCfg)
		if err != nil {
			return nil, fmt.Errorf("retrieving patient context: %w", err)
		}
		userTurn = composeUserTurn(req.Query, passages)
		s.logger.Debug("retrieved context",
			"patient_id", req.PatientID,
			"passages", len(passages),
			"fail_open", decision.FailedOpen,
		)
	}

	start := time.Now()
	gen, err := s.generateWithRetry(ctx, history, userTurn)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	cost := s.pricing.Cost(gen.InputTokens, gen.OutputTokens)

	// User first, assistant second: History must replay in turn order.
	s.memory.Append(req.PatientID, memory.RoleUser, req.Query)
	s.memory.Append(req.PatientID, memory.RoleAssistant, gen.Text)

	s.logger.Info("chat exchange completed",
		"patient_id", req.PatientID,
		"kb_fetched", decision.Required,
		"latency", elapsed,
		"input_tokens", gen.InputTokens,
		"output_tokens", gen.OutputTokens,
	)

	return &Exchange{
		ModelName:    s.modelName,
		Response:     gen.Text,
		Latency:      elapsed.Seconds(),
		InputTokens:  gen.InputTokens,
		OutputTokens: gen.OutputTokens,
		TotalCost:    cost,
		KBFetched:    decision.Required,
	}, nil
}

// Retrieve exposes a retrieval-only search for the given patient,
// bypassing classification and generation. Used by the debug endpoint.
func (s *Service) Retrieve(ctx context.Context, req Request) ([]retrieval.Passage, error) {
	searchCfg := s.configs.Build(req.PatientID, req.DocumentType)
	passages, err := s.retriever.Retrieve(ctx, req.Query, searchCfg)
	if err != nil {
		return nil, fmt.Errorf("retrieving patient context: %w", err)
	}
	return passages, nil
}

// Fallback returns the fixed boundary response for a failed request:
// apology text, zero usage and cost, retrieval flag false.
func (s *Service) Fallback() *Exchange {
	return &Exchange{
		ModelName: s.modelName,
		Response:  FallbackResponse,
	}
}
