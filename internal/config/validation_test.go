package config

import (
	"errors"
	"testing"
)

// validBaseConfig returns a Config with all required fields set.
func validBaseConfig() *Config {
	return &Config{
		ModelName:          "googleai/gemini-2.5-flash",
		Temperature:        0.2,
		MaxTokens:          1024,
		PriceInputPerMTok:  3.00,
		PriceOutputPerMTok: 15.00,
		EmbedderModel:      "gemini-embedding-001",
		ChunksToFetch:      20,
		RerankResults:      5,
		RerankModelID:      "lexical-overlap-v1",
		MaxExchanges:       6,
		ListenAddr:         ":8080",
		PostgresHost:       "localhost",
		PostgresPort:       5432,
		PostgresPassword:   "test_password",
		PostgresDBName:     "mymr",
		PostgresSSLMode:    "disable",
	}
}

func TestValidateSuccess(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-api-key")

	cfg := validBaseConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateMissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg := validBaseConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Validate() = %v, want ErrMissingAPIKey", err)
	}
}

func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Fatalf("Validate() = %v, want ErrConfigNil", err)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-api-key")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "temperature negative",
			mutate:  func(c *Config) { c.Temperature = -0.1 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "zero max tokens",
			mutate:  func(c *Config) { c.MaxTokens = 0 },
			wantErr: ErrInvalidMaxTokens,
		},
		{
			name:    "negative input price",
			mutate:  func(c *Config) { c.PriceInputPerMTok = -1 },
			wantErr: ErrInvalidPricing,
		},
		{
			name:    "negative output price",
			mutate:  func(c *Config) { c.PriceOutputPerMTok = -0.01 },
			wantErr: ErrInvalidPricing,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "zero chunks to fetch",
			mutate:  func(c *Config) { c.ChunksToFetch = 0 },
			wantErr: ErrInvalidChunksToFetch,
		},
		{
			name:    "zero rerank results",
			mutate:  func(c *Config) { c.RerankResults = 0 },
			wantErr: ErrInvalidRerankResults,
		},
		{
			name: "rerank results exceed fetch depth",
			mutate: func(c *Config) {
				c.ChunksToFetch = 5
				c.RerankResults = 20
			},
			wantErr: ErrInvalidRerankResults,
		},
		{
			name:    "zero max exchanges",
			mutate:  func(c *Config) { c.MaxExchanges = 0 },
			wantErr: ErrInvalidMaxExchanges,
		},
		{
			name:    "empty listen addr",
			mutate:  func(c *Config) { c.ListenAddr = "" },
			wantErr: ErrInvalidListenAddr,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "postgres port out of range",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty postgres db name",
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
		{
			name:    "short postgres password",
			mutate:  func(c *Config) { c.PostgresPassword = "short" },
			wantErr: ErrInvalidPostgresPassword,
		},
		{
			name:    "deprecated ssl mode",
			mutate:  func(c *Config) { c.PostgresSSLMode = "prefer" },
			wantErr: ErrInvalidPostgresSSLMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// Equal rerank and fetch depths are the boundary case and must pass.
func TestValidateRerankEqualsFetch(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-api-key")

	cfg := validBaseConfig()
	cfg.ChunksToFetch = 5
	cfg.RerankResults = 5
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}
