// Package knowledge provides the semantic knowledge base behind the agent's
// search tool: documents embedded with Gemini embeddings and stored in
// PostgreSQL with a pgvector index.
//
// The Searcher interface is what the tool dispatcher consumes; the pgvector
// store is the production implementation and tests substitute stubs.
package knowledge

import "context"

// DefaultTopN is how many passages a search returns when the caller does not
// say otherwise.
const DefaultTopN = 2

// Document is one knowledge-base passage.
type Document struct {
	ID   string
	Text string
}

// Searcher finds the passages most relevant to a free-text query.
// Implementations must be safe for concurrent use by simultaneous calls.
type Searcher interface {
	// Search returns up to topN passage texts ordered most-relevant first.
	// An empty slice means nothing relevant was found; that is not an error.
	Search(ctx context.Context, query string, topN int) ([]string, error)
}

// Embedder produces the vector embedding for a text. Implementations must be
// safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SeedDocuments is the initial dataset indexed into an empty knowledge base.
var SeedDocuments = []Document{
	{
		ID:   "vrf_warranty",
		Text: "The Samsung VRF System usually comes with a 1-year comprehensive warranty and 5 years on the compressor. AMC options are available.",
	},
	{
		ID:   "return_policy",
		Text: "Yexis Electronics allows returns for defective items within 7 days of delivery. Original packaging is required.",
	},
	{
		ID:   "support_hours",
		Text: "Our support team is available Mon-Sat from 9 AM to 6 PM IST. Emergency support is available for contract customers.",
	},
}
