package chat

import (
	"strings"

	"github.com/mymr-ai/mymr/internal/retrieval"
)

// systemPrompt is the fixed generation instruction. The model answers
// from retrieved record passages only and must say so when the records
// do not contain the requested data.
const systemPrompt = `You are a Clinical Intelligence Analyst. Provide precise, evidence-based answers to user inquiries using ONLY the provided search results from medical documentation.

Primary directives:
1. Absolute fidelity: answer using only the provided context. If the search results do not contain the specific data required, state: "The provided medical records do not contain this information."
2. Fact validation: do not assume a user's assertion is true. Verify every claim against the search data before answering.
3. Clinical precision: maintain exact numerical values, units (mg/dL, mmHg, mEq/L), and medical terminology. Never round numbers or simplify clinical findings.

Response guidelines:
- Cite the source document or section for every clinical fact provided.
- If records show conflicting information, report both and note the timestamps or sources.
- Maintain a professional, objective, and clinical tone.`

// composeUserTurn builds the user-turn prompt. With passages it leads
// with the retrieved context block; without, it is the bare question —
// the model still sees prior turns via the structured history.
func composeUserTurn(query string, passages []retrieval.Passage) string {
	if len(passages) == 0 {
		return "USER QUESTION: " + query
	}

	var b strings.Builder
	b.WriteString("NEWLY RETRIEVED MEDICAL RECORDS:\n")
	for _, p := range passages {
		b.WriteString("- ")
		b.WriteString(p.Content)
		b.WriteString("\n")
	}
	b.WriteString("\nUSER QUESTION: ")
	b.WriteString(query)
	return b.String()
}
