package knowledge

import (
	"context"
	"sort"
	"strings"
)

// Compile-time interface check.
var _ Searcher = (*MemSearcher)(nil)

// MemSearcher is an in-memory [Searcher] that ranks documents by keyword
// overlap with the query. It backs deployments without a database; production
// uses [PostgresStore].
type MemSearcher struct {
	docs []Document
}

// NewMemSearcher creates a searcher over the given documents.
func NewMemSearcher(docs ...Document) *MemSearcher {
	d := make([]Document, len(docs))
	copy(d, docs)
	return &MemSearcher{docs: d}
}

// NewSeededMemSearcher creates a searcher over [SeedDocuments].
func NewSeededMemSearcher() *MemSearcher {
	return NewMemSearcher(SeedDocuments...)
}

// Search implements [Searcher]. A document scores one point per distinct
// query word it contains; zero-score documents are excluded.
func (m *MemSearcher) Search(_ context.Context, query string, topN int) ([]string, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	words := strings.Fields(strings.ToLower(query))
	type scored struct {
		text  string
		score int
	}
	var hits []scored
	for _, doc := range m.docs {
		text := strings.ToLower(doc.Text)
		score := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{text: doc.Text, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if len(hits) > topN {
		hits = hits[:topN]
	}
	passages := make([]string, len(hits))
	for i, h := range hits {
		passages[i] = h.text
	}
	return passages, nil
}
