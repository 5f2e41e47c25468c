// Package inventory holds the product catalog consulted by the agent's
// inventory lookup tool. The catalog is a small in-process table: stock and
// pricing for the distribution lines Yexis carries.
package inventory

import (
	"sort"
	"strings"
	"sync"
)

// Item is one catalog entry.
type Item struct {
	Stock int
	Price string
}

// Catalog is a product table with case-insensitive substring matching.
// Safe for concurrent use across simultaneous calls.
type Catalog struct {
	mu    sync.RWMutex
	items map[string]Item
}

// NewCatalog creates a catalog with the given entries. Keys are stored
// lower-cased; pass nil to start empty.
func NewCatalog(items map[string]Item) *Catalog {
	c := &Catalog{items: make(map[string]Item, len(items))}
	for k, v := range items {
		c.items[strings.ToLower(k)] = v
	}
	return c
}

// DefaultCatalog returns the seeded Yexis Electronics catalog.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[string]Item{
		"samsung 55 tv":          {Stock: 12, Price: "₹52,000"},
		"samsung galaxy s24":     {Stock: 40, Price: "₹74,999"},
		"samsung smart monitor":  {Stock: 25, Price: "₹28,500"},
		"samsung vrf dvm system": {Stock: 3, Price: "on request"},
		"samsung galaxy tab s9":  {Stock: 18, Price: "₹69,999"},
		"interactive display":    {Stock: 7, Price: "₹1,85,000"},
	})
}

// Lookup finds the first catalog entry whose key contains the description or
// whose key is contained in the description, case-insensitively. Iteration is
// in sorted key order so the "first match" is deterministic. There is no
// ranking; the first containment match wins.
func (c *Catalog) Lookup(description string) (key string, item Item, ok bool) {
	desc := strings.ToLower(strings.TrimSpace(description))
	if desc == "" {
		return "", Item{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range c.sortedKeysLocked() {
		if strings.Contains(k, desc) || strings.Contains(desc, k) {
			return k, c.items[k], true
		}
	}
	return "", Item{}, false
}

// Keys returns all catalog keys in sorted order. Used to tell the agent what
// the catalog does carry after a failed lookup.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedKeysLocked()
}

func (c *Catalog) sortedKeysLocked() []string {
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
