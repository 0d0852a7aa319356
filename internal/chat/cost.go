package chat

// tokensPerMillion is the denominator for per-million-token rates.
const tokensPerMillion = 1_000_000

// Pricing holds the per-million-token USD rates for one model.
// Input and output rates are distinct.
type Pricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost computes the USD cost of one exchange:
// inputTokens/1M × rateIn + outputTokens/1M × rateOut.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/tokensPerMillion*p.InputPerMTok +
		float64(outputTokens)/tokensPerMillion*p.OutputPerMTok
}

// defaultRates lists known per-million-token rates. Config overrides
// take precedence; unknown models fall back to the configured rates.
var defaultRates = map[string]Pricing{
	"claude-3-5-sonnet":         {InputPerMTok: 3.00, OutputPerMTok: 15.00},
	"claude-3-5-haiku":          {InputPerMTok: 0.80, OutputPerMTok: 4.00},
	"gemini-2.5-flash":          {InputPerMTok: 0.30, OutputPerMTok: 2.50},
	"gemini-2.5-pro":            {InputPerMTok: 1.25, OutputPerMTok: 10.00},
	"googleai/gemini-2.5-flash": {InputPerMTok: 0.30, OutputPerMTok: 2.50},
	"googleai/gemini-2.5-pro":   {InputPerMTok: 1.25, OutputPerMTok: 10.00},
}

// PricingFor returns the known rates for modelName, or ok=false when
// the model is not in the table.
func PricingFor(modelName string) (Pricing, bool) {
	p, ok := defaultRates[modelName]
	return p, ok
}
