package knowledge_test

import (
	"context"
	"strings"
	"testing"

	"github.com/yexis-labs/riobridge/internal/knowledge"
)

func TestMemSearcher_RanksByKeywordOverlap(t *testing.T) {
	t.Parallel()

	s := knowledge.NewMemSearcher(
		knowledge.Document{ID: "a", Text: "Warranty covers the compressor for five years."},
		knowledge.Document{ID: "b", Text: "Returns are accepted within seven days."},
		knowledge.Document{ID: "c", Text: "Warranty claims and returns go through support."},
	)

	passages, err := s.Search(context.Background(), "warranty returns", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("passages = %d, want 2", len(passages))
	}
	if !strings.Contains(passages[0], "claims") {
		t.Errorf("top passage = %q, want the two-keyword document first", passages[0])
	}
}

func TestMemSearcher_NoMatchReturnsEmpty(t *testing.T) {
	t.Parallel()

	s := knowledge.NewSeededMemSearcher()
	passages, err := s.Search(context.Background(), "zzzzqqqq", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(passages) != 0 {
		t.Errorf("passages = %v, want none", passages)
	}
}
