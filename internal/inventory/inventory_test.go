package inventory_test

import (
	"testing"

	"github.com/yexis-labs/riobridge/internal/inventory"
)

func TestLookup_SubstringContainmentEitherDirection(t *testing.T) {
	t.Parallel()

	c := inventory.DefaultCatalog()

	cases := []struct {
		name        string
		description string
		wantKey     string
	}{
		{"description inside key", "tv", "samsung 55 tv"},
		{"key inside description", "do you have the samsung 55 tv in stock", "samsung 55 tv"},
		{"case insensitive", "Samsung Galaxy S24", "samsung galaxy s24"},
		{"whitespace trimmed", "  smart monitor  ", "samsung smart monitor"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			key, item, ok := c.Lookup(tc.description)
			if !ok {
				t.Fatalf("Lookup(%q): no match", tc.description)
			}
			if key != tc.wantKey {
				t.Fatalf("Lookup(%q): want key %q, got %q", tc.description, tc.wantKey, key)
			}
			if item.Stock <= 0 {
				t.Fatalf("Lookup(%q): zero stock in seeded catalog", tc.description)
			}
		})
	}
}

func TestLookup_MissReturnsNoMatch(t *testing.T) {
	t.Parallel()

	c := inventory.DefaultCatalog()
	if _, _, ok := c.Lookup("xyz123"); ok {
		t.Fatal("Lookup(xyz123): want miss, got match")
	}
	if _, _, ok := c.Lookup(""); ok {
		t.Fatal("Lookup(empty): want miss, got match")
	}
}

func TestLookup_FirstMatchInSortedKeyOrder(t *testing.T) {
	t.Parallel()

	c := inventory.NewCatalog(map[string]inventory.Item{
		"zz widget": {Stock: 1, Price: "1"},
		"aa widget": {Stock: 2, Price: "2"},
	})
	key, _, ok := c.Lookup("widget")
	if !ok || key != "aa widget" {
		t.Fatalf("Lookup(widget): want deterministic first match aa widget, got %q (ok=%v)", key, ok)
	}
}

func TestKeys_SortedAndComplete(t *testing.T) {
	t.Parallel()

	c := inventory.DefaultCatalog()
	keys := c.Keys()
	if len(keys) == 0 {
		t.Fatal("Keys: empty")
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("Keys not sorted: %v", keys)
		}
	}
	found := false
	for _, k := range keys {
		if k == "samsung 55 tv" {
			found = true
		}
	}
	if !found {
		t.Fatal("Keys missing seeded samsung 55 tv entry")
	}
}
