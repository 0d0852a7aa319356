// Package retrieval builds and executes knowledge-base searches over a
// patient's document chunks.
//
// Every search is scoped by a metadata filter that always includes a
// patient_id equality. That filter is the access-control boundary
// preventing cross-patient leakage at retrieval time; no code path may
// build a search without it.
package retrieval

// Metadata keys recognized by the document store.
const (
	MetaPatientID    = "patient_id"
	MetaDocumentType = "document_type"
)

// Filter is a boolean predicate over document metadata.
//
// The tree has two node kinds: Equals leaves and AndAll conjunctions.
// Flatten collapses the tree into the equality pairs it requires, which
// is what the JSONB containment query consumes.
type Filter interface {
	Flatten() map[string]string
}

// Equals requires a metadata key to equal a value exactly.
type Equals struct {
	Key   string
	Value string
}

// Flatten returns the single equality pair.
func (e Equals) Flatten() map[string]string {
	return map[string]string{e.Key: e.Value}
}

// AndAll is the conjunction of its child filters.
type AndAll []Filter

// Flatten merges the equality pairs of every child.
func (a AndAll) Flatten() map[string]string {
	merged := make(map[string]string)
	for _, f := range a {
		for k, v := range f.Flatten() {
			merged[k] = v
		}
	}
	return merged
}

// RerankConfig describes the secondary scoring pass over initially
// retrieved candidates.
type RerankConfig struct {
	// ModelID identifies the reranking model for observability.
	ModelID string

	// NumResults is the number of passages kept after reranking.
	NumResults int
}

// SearchConfig is the full retrieval request configuration. Built fresh
// per request by ConfigBuilder; never persisted.
type SearchConfig struct {
	// NumResults is the number of candidate chunks fetched before
	// reranking.
	NumResults int

	// Filter scopes the search. Always present.
	Filter Filter

	// Rerank configures the secondary scoring stage. The caller is
	// responsible for configuring Rerank.NumResults <= NumResults; the
	// builder does not clamp.
	Rerank RerankConfig
}

// ConfigBuilder translates (patientID, optional documentType) into a
// SearchConfig. The tuning parameters are fixed at construction from
// process configuration; Build is a pure function of its inputs.
type ConfigBuilder struct {
	numResults    int
	rerankModelID string
	rerankResults int
}

// NewConfigBuilder creates a builder with the given retrieval tuning.
func NewConfigBuilder(numResults, rerankResults int, rerankModelID string) *ConfigBuilder {
	return &ConfigBuilder{
		numResults:    numResults,
		rerankModelID: rerankModelID,
		rerankResults: rerankResults,
	}
}

// Build returns the search configuration for one request. The filter is
// patient_id equality alone, or its conjunction with document_type
// equality when documentType is non-empty.
func (b *ConfigBuilder) Build(patientID, documentType string) SearchConfig {
	var filter Filter = Equals{Key: MetaPatientID, Value: patientID}
	if documentType != "" {
		filter = AndAll{
			Equals{Key: MetaPatientID, Value: patientID},
			Equals{Key: MetaDocumentType, Value: documentType},
		}
	}

	return SearchConfig{
		NumResults: b.numResults,
		Filter:     filter,
		Rerank: RerankConfig{
			ModelID:    b.rerankModelID,
			NumResults: b.rerankResults,
		},
	}
}
