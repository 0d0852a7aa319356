package config

// TracingConfig holds OTLP tracing configuration.
//
// Spans are exported over OTLP/HTTP to a local collector agent.
// See internal/observability/tracing.go for detailed setup instructions.
type TracingConfig struct {
	// Enabled turns span export on. When false, a no-op tracer is installed.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// AgentHost is the OTLP/HTTP collector endpoint (default: localhost:4318)
	AgentHost string `mapstructure:"agent_host" json:"agent_host"`
	// Environment is the deployment environment tag (default: dev)
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the service name attached to exported spans (default: mymr)
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
