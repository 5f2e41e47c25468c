package crm

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-memory [Store] used by tests and by DSN-less runs where
// no PostgreSQL instance is configured. Safe for concurrent use.
type MemStore struct {
	mu           sync.Mutex
	nextLeadID   int64
	nextInterID  int64
	leads        []Lead
	interactions []Interaction
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{nextLeadID: 1, nextInterID: 1}
}

// NewSeededMemStore creates a MemStore pre-populated with [SeedLeads].
func NewSeededMemStore() *MemStore {
	s := NewMemStore()
	for _, lead := range SeedLeads {
		_, _ = s.Create(context.Background(), lead)
	}
	return s
}

// FindByPhone implements [Store].
func (s *MemStore) FindByPhone(_ context.Context, phone string) (*Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leads {
		if s.leads[i].Phone == phone {
			lead := s.leads[i]
			return &lead, nil
		}
	}
	return nil, ErrNotFound
}

// AppendNote implements [Store].
func (s *MemStore) AppendNote(_ context.Context, phone, annotation, status string) (*Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leads {
		if s.leads[i].Phone != phone {
			continue
		}
		s.leads[i].Notes = joinNotes(s.leads[i].Notes, annotation)
		if status != "" {
			s.leads[i].Status = status
		}
		lead := s.leads[i]
		return &lead, nil
	}
	return nil, ErrNotFound
}

// Create implements [Store].
func (s *MemStore) Create(_ context.Context, lead Lead) (*Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead.Status == "" {
		lead.Status = "New"
	}
	lead.ID = s.nextLeadID
	s.nextLeadID++
	lead.CreatedAt = time.Now().UTC()
	s.leads = append(s.leads, lead)
	created := lead
	return &created, nil
}

// RecordInteraction implements [Store].
func (s *MemStore) RecordInteraction(_ context.Context, leadID int64, kind, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions = append(s.interactions, Interaction{
		ID:        s.nextInterID,
		LeadID:    leadID,
		Kind:      kind,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	s.nextInterID++
	return nil
}

// Interactions returns the recorded interactions for leadID, or all of them
// when leadID is 0. Test helper.
func (s *MemStore) Interactions(leadID int64) []Interaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Interaction
	for _, in := range s.interactions {
		if leadID == 0 || in.LeadID == leadID {
			out = append(out, in)
		}
	}
	return out
}
