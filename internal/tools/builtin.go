package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yexis-labs/riobridge/internal/crm"
	"github.com/yexis-labs/riobridge/internal/inventory"
	"github.com/yexis-labs/riobridge/internal/knowledge"
)

// Built-in tool names as declared to the model.
const (
	ToolLookupInventory = "lookup_inventory"
	ToolSearchKnowledge = "search_knowledge"
	ToolUpdateLead      = "update_lead"
)

// RegisterBuiltins registers the three production tools against their
// collaborators. clock supplies the timestamp used to attribute lead-note
// annotations; pass time.Now outside tests.
func RegisterBuiltins(r *Registry, catalog *inventory.Catalog, searcher knowledge.Searcher, store crm.Store, clock func() time.Time) error {
	if clock == nil {
		clock = time.Now
	}
	for _, def := range []Definition{
		NewInventoryTool(catalog),
		NewKnowledgeTool(searcher, knowledge.DefaultTopN),
		NewLeadUpdateTool(store, clock),
	} {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// NewInventoryTool builds the catalog lookup tool. Matching is
// case-insensitive substring containment in either direction; a miss returns
// the full list of known catalog keys so the agent can steer the customer.
func NewInventoryTool(catalog *inventory.Catalog) Definition {
	return Definition{
		Name:        ToolLookupInventory,
		Description: "Check stock and price for a product the customer asks about.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"product": map[string]any{
					"type":        "string",
					"description": "Product name or description as the customer said it.",
				},
			},
			"required": []any{"product"},
		},
		Handler: func(_ context.Context, args map[string]any) (map[string]any, error) {
			product, _ := args["product"].(string)
			key, item, ok := catalog.Lookup(product)
			if !ok {
				return map[string]any{
					"found":   false,
					"message": fmt.Sprintf("no catalog entry matches %q", product),
					"catalog": catalog.Keys(),
				}, nil
			}
			return map[string]any{
				"found":   true,
				"product": key,
				"stock":   item.Stock,
				"price":   item.Price,
			}, nil
		},
	}
}

// NewKnowledgeTool builds the semantic search tool over the knowledge base.
func NewKnowledgeTool(searcher knowledge.Searcher, topN int) Definition {
	return Definition{
		Name:        ToolSearchKnowledge,
		Description: "Search company knowledge (warranties, policies, support) for the customer's question.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Free-text question to search for.",
				},
			},
			"required": []any{"query"},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			query, _ := args["query"].(string)
			passages, err := searcher.Search(ctx, query, topN)
			if err != nil {
				return nil, fmt.Errorf("knowledge search failed: %w", err)
			}
			if len(passages) == 0 {
				return map[string]any{
					"found":   false,
					"message": "no relevant information found",
				}, nil
			}
			items := make([]any, len(passages))
			for i, p := range passages {
				items[i] = p
			}
			return map[string]any{
				"found":    true,
				"passages": items,
			}, nil
		},
	}
}

// NewLeadUpdateTool builds the caller-record update tool. The lead is looked
// up by exact phone match; notes are appended as a timestamped, attributed
// annotation, and the status changes only when a new status is supplied.
// An unknown phone number is reported as not-found — no record is ever
// created on an update miss.
func NewLeadUpdateTool(store crm.Store, clock func() time.Time) Definition {
	return Definition{
		Name:        ToolUpdateLead,
		Description: "Record new information learned about the caller in the CRM.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": map[string]any{
					"type":        "string",
					"description": "Caller's phone number, exactly as known in the CRM.",
				},
				"notes": map[string]any{
					"type":        "string",
					"description": "New information to append to the lead's notes.",
				},
				"status": map[string]any{
					"type":        "string",
					"description": "Optional new lead status (e.g. Follow-up, Qualified).",
				},
			},
			"required": []any{"phone", "notes"},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			phone, _ := args["phone"].(string)
			notes, _ := args["notes"].(string)
			status, _ := args["status"].(string)

			annotation := fmt.Sprintf("[%s Rio] %s", clock().UTC().Format("2006-01-02 15:04 MST"), notes)
			lead, err := store.AppendNote(ctx, phone, annotation, status)
			if errors.Is(err, crm.ErrNotFound) {
				return map[string]any{
					"found":   false,
					"message": fmt.Sprintf("no lead found with phone %q", phone),
				}, nil
			}
			if err != nil {
				return nil, fmt.Errorf("lead update failed: %w", err)
			}
			return map[string]any{
				"found":   true,
				"message": fmt.Sprintf("updated record for %s", lead.Name),
				"status":  lead.Status,
			}, nil
		},
	}
}
