package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mymr-ai/mymr/internal/intent"
	"github.com/mymr-ai/mymr/internal/memory"
)

func TestRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("429 Too Many Requests"), true},
		{"quota", errors.New("Quota Exceeded for model"), true},
		{"server error", errors.New("503 service unavailable"), true},
		{"network", errors.New("read: connection reset by peer"), true},
		{"timeout", errors.New("context deadline exceeded: timeout"), true},
		{"bad request", errors.New("400 invalid argument"), false},
		{"auth", errors.New("401 unauthorized"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, retryableError(tt.err))
		})
	}
}

// flakyGenerator fails with a transient error until succeedAt calls.
type flakyGenerator struct {
	calls     int
	succeedAt int
}

func (g *flakyGenerator) Generate(context.Context, []memory.Message, string) (Generation, error) {
	g.calls++
	if g.calls < g.succeedAt {
		return Generation{}, errors.New("503 service unavailable")
	}
	return Generation{Text: "recovered", InputTokens: 1, OutputTokens: 1}, nil
}

func TestGenerateWithRetry_RecoversFromTransientError(t *testing.T) {
	t.Parallel()

	gen := &flakyGenerator{succeedAt: 3}
	store := memory.NewStore(6)
	svc := newTestService(t,
		fixedClassifier{intent.Decision{Required: false}},
		&fakeRetriever{}, gen, store)
	svc.retryConfig = RetryConfig{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}

	exchange, err := svc.Answer(context.Background(), Request{PatientID: "p1", Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, "recovered", exchange.Response)
}

func TestGenerateWithRetry_NonRetryableFailsFast(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{err: errors.New("400 invalid request")}
	svc := newTestService(t,
		fixedClassifier{intent.Decision{Required: false}},
		&fakeRetriever{}, gen, memory.NewStore(6))

	_, err := svc.Answer(context.Background(), Request{PatientID: "p1", Query: "q"})
	require.Error(t, err)
	assert.Equal(t, 1, gen.calls, "non-retryable errors must not be retried")
}

func TestGenerateWithRetry_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{err: errors.New("503 service unavailable")}
	svc := newTestService(t,
		fixedClassifier{intent.Decision{Required: false}},
		&fakeRetriever{}, gen, memory.NewStore(6))

	_, err := svc.Answer(context.Background(), Request{PatientID: "p1", Query: "q"})
	require.Error(t, err)
	assert.Equal(t, 2, gen.calls) // initial attempt + MaxRetries(1)
}

func TestGenerateWithRetry_ContextCanceled(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{err: errors.New("503 service unavailable")}
	svc := newTestService(t,
		fixedClassifier{intent.Decision{Required: false}},
		&fakeRetriever{}, gen, memory.NewStore(6))
	svc.retryConfig = RetryConfig{
		MaxRetries:      5,
		InitialInterval: time.Hour, // force the cancellation branch
		MaxInterval:     time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Answer(ctx, Request{PatientID: "p1", Query: "q"})
	require.Error(t, err)
}
