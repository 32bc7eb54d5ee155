package proposals

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dvloznov/pfm-ledger/internal/domain"
)

// MemoryStore is an in-memory implementation of Store. Proposals are lost on
// restart; callers then re-submit the confirmed payload.
type MemoryStore struct {
	mu        sync.RWMutex
	proposals map[string]*Proposal
	now       func() time.Time
}

// NewMemoryStore creates an empty store. now is used for expiry checks; nil
// means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		proposals: make(map[string]*Proposal),
		now:       now,
	}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, p *Proposal) error {
	if p.ID == "" {
		return fmt.Errorf("Save: %w: proposal ID is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.proposals[p.ID] = p.clone()
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.proposals[id]
	if !ok || s.expired(p) {
		return nil, fmt.Errorf("Get: %w: %s", domain.ErrProposalNotFound, id)
	}
	return p.clone(), nil
}

// Take implements Store.
func (s *MemoryStore) Take(ctx context.Context, id string) (*Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[id]
	if !ok {
		return nil, fmt.Errorf("Take: %w: %s", domain.ErrProposalNotFound, id)
	}
	delete(s.proposals, id)
	if s.expired(p) {
		return nil, fmt.Errorf("Take: %w: %s expired at %s", domain.ErrProposalNotFound, id, p.ExpiresAt.Format(time.RFC3339))
	}
	return p, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[id]
	if !ok {
		return fmt.Errorf("Delete: %w: %s", domain.ErrProposalNotFound, id)
	}
	delete(s.proposals, id)
	if s.expired(p) {
		return fmt.Errorf("Delete: %w: %s", domain.ErrProposalNotFound, id)
	}
	return nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Proposal
	for _, p := range s.proposals {
		if s.expired(p) {
			continue
		}
		if filter.Source != "" && p.Source != filter.Source {
			continue
		}
		result = append(result, p.clone())
	}
	slices.SortFunc(result, func(a, b *Proposal) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Purge drops expired proposals and returns how many were removed.
func (s *MemoryStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, p := range s.proposals {
		if s.expired(p) {
			delete(s.proposals, id)
			n++
		}
	}
	return n
}

func (s *MemoryStore) expired(p *Proposal) bool {
	return !p.ExpiresAt.IsZero() && !s.now().Before(p.ExpiresAt)
}

// Ensure MemoryStore implements Store interface.
var _ Store = (*MemoryStore)(nil)
