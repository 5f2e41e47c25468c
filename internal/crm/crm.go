// Package crm defines the lead store consumed by the tool dispatcher and the
// call orchestrator: sales leads keyed by phone number plus a per-lead
// interaction log.
//
// Two implementations exist: a PostgreSQL store (production) and an in-memory
// store (tests and DSN-less runs). Both are safe for concurrent use by
// multiple simultaneous calls.
package crm

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no lead matches the requested phone number.
// Lookups never create records on a miss.
var ErrNotFound = errors.New("crm: lead not found")

// Lead is one sales contact.
type Lead struct {
	ID        int64
	Name      string
	Phone     string
	Email     string
	Status    string
	Notes     string
	CreatedAt time.Time
}

// Interaction is one logged touchpoint with a lead.
type Interaction struct {
	ID        int64
	LeadID    int64
	Kind      string // "call" or "sms"
	Content   string
	Timestamp time.Time
}

// Store is the lead store interface. Phone matching is always exact.
type Store interface {
	// FindByPhone returns the lead with exactly the given phone number, or
	// ErrNotFound.
	FindByPhone(ctx context.Context, phone string) (*Lead, error)

	// AppendNote appends annotation to the lead's notes (never overwriting
	// existing notes) and, when status is non-empty, updates the status. It
	// returns the updated lead, or ErrNotFound without mutating anything when
	// the phone number is unknown.
	AppendNote(ctx context.Context, phone, annotation, status string) (*Lead, error)

	// Create inserts a new lead and returns it with its assigned ID.
	Create(ctx context.Context, lead Lead) (*Lead, error)

	// RecordInteraction appends one interaction to the lead's log.
	RecordInteraction(ctx context.Context, leadID int64, kind, content string) error
}

// SeedLeads is the initial dataset inserted into an empty store.
var SeedLeads = []Lead{
	{Name: "Alice Johnson", Phone: "+15550101", Email: "alice@example.com", Status: "New", Notes: "Interested in 55 TV"},
	{Name: "Bob Smith", Phone: "+15550102", Email: "bob@example.com", Status: "Follow-up", Notes: "Budget $500"},
	{Name: "Charlie Brown", Phone: "+918148749703", Email: "charlie@example.com", Status: "New", Notes: "Test Lead"},
}

// joinNotes appends annotation to existing notes on a new line, handling the
// empty-notes case without a leading newline.
func joinNotes(existing, annotation string) string {
	if existing == "" {
		return annotation
	}
	return existing + "\n" + annotation
}
