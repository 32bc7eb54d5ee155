package proposals

import (
	"context"
	"time"

	"github.com/dvloznov/pfm-ledger/internal/domain"
)

// Proposal is a validated set of records waiting for explicit confirmation.
type Proposal struct {
	// ID is the unique identifier handed back to the caller.
	ID string `json:"proposal_id"`

	// Source is the provenance the records get when committed.
	Source domain.Source `json:"source"`

	// Records is the preview. IDs are assigned only on commit.
	Records []domain.Transaction `json:"records"`

	// Warnings lists human readable notes, e.g. concepts that fell back to
	// the "other" category.
	Warnings []string `json:"warnings,omitempty"`

	// CreatedAt is when the proposal was stored.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when the proposal stops being committable.
	ExpiresAt time.Time `json:"expires_at"`
}

// NeedsReview reports whether any proposed record is flagged.
func (p *Proposal) NeedsReview() bool {
	for _, tx := range p.Records {
		if tx.NeedsReview {
			return true
		}
	}
	return false
}

func (p *Proposal) clone() *Proposal {
	c := *p
	c.Records = append([]domain.Transaction(nil), p.Records...)
	c.Warnings = append([]string(nil), p.Warnings...)
	return &c
}

// Store keeps pending proposals between propose and commit.
type Store interface {
	// Save stores or replaces a proposal.
	Save(ctx context.Context, p *Proposal) error

	// Get returns a live proposal.
	Get(ctx context.Context, id string) (*Proposal, error)

	// Take removes and returns a live proposal, so only one caller can
	// commit it.
	Take(ctx context.Context, id string) (*Proposal, error)

	// Delete drops a proposal.
	Delete(ctx context.Context, id string) error

	// List returns live proposals, oldest first.
	List(ctx context.Context, filter Filter) ([]*Proposal, error)
}

// Filter defines filtering criteria for listing proposals.
type Filter struct {
	// Source filters proposals by provenance.
	Source domain.Source

	// Limit limits the number of results.
	Limit int
}
