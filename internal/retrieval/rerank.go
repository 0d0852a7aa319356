package retrieval

import (
	"sort"
	"strings"
	"unicode"
)

// rerankLexicalWeight blends lexical overlap into the vector score.
// Vector similarity stays dominant; overlap breaks near-ties in favor
// of passages that mention the query's terms literally, which matters
// for lab names, drug names, and dosages.
const rerankLexicalWeight = 0.3

// Rerank runs the secondary scoring pass over the fetched candidates
// and keeps the top `keep` passages. The input order (by vector
// similarity) is the tiebreaker. keep <= 0 disables the cut.
func Rerank(query string, passages []Passage, keep int) []Passage {
	if len(passages) == 0 {
		return passages
	}

	queryTerms := tokenize(query)

	type scored struct {
		Passage
		combined float64
		rank     int
	}
	candidates := make([]scored, len(passages))
	for i, p := range passages {
		overlap := termOverlap(queryTerms, tokenize(p.Content))
		candidates[i] = scored{
			Passage:  p,
			combined: p.Score + rerankLexicalWeight*overlap,
			rank:     i,
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].combined != candidates[j].combined {
			return candidates[i].combined > candidates[j].combined
		}
		return candidates[i].rank < candidates[j].rank
	})

	if keep <= 0 || keep > len(candidates) {
		keep = len(candidates)
	}
	result := make([]Passage, keep)
	for i := range result {
		result[i] = candidates[i].Passage
		result[i].Score = candidates[i].combined
	}
	return result
}

// termOverlap returns the fraction of query terms present in the
// passage terms, in [0, 1].
func termOverlap(query, passage []string) float64 {
	if len(query) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(passage))
	for _, t := range passage {
		seen[t] = struct{}{}
	}
	matched := 0
	for _, t := range query {
		if _, ok := seen[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
