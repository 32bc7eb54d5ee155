package handlers

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/ledger"
	"github.com/dvloznov/pfm-ledger/internal/normalize"
	"github.com/dvloznov/pfm-ledger/internal/pipeline"
	"github.com/dvloznov/pfm-ledger/internal/query"
)

type totalsRequest struct {
	Year     *int   `json:"year"`
	Month    *int   `json:"month"`
	Category string `json:"category"`
}

type listRequest struct {
	Category    string `json:"category"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Type        string `json:"type"`
	Year        *int   `json:"year"`
	Month       *int   `json:"month"`
	Text        string `json:"text"`
	NeedsReview *bool  `json:"needs_review"`
	Limit       *int   `json:"limit"`
}

func (r listRequest) filter() (query.ListFilter, error) {
	f := query.ListFilter{
		Category:    r.Category,
		Year:        r.Year,
		Month:       r.Month,
		Text:        r.Text,
		NeedsReview: r.NeedsReview,
	}
	if t := strings.TrimSpace(r.Type); t != "" {
		typ, err := normalize.NormalizeType(t)
		if err != nil {
			return f, err
		}
		f.Type = typ
	}
	var err error
	if f.StartDate, err = optionalDate("start_date", r.StartDate); err != nil {
		return f, err
	}
	if f.EndDate, err = optionalDate("end_date", r.EndDate); err != nil {
		return f, err
	}
	return f, nil
}

func optionalDate(field, raw string) (*civil.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := normalize.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &d, nil
}

type batchRequest struct {
	Transactions []ledger.Input `json:"transactions"`
}

type updateRequest struct {
	ID      int64        `json:"id"`
	Changes ledger.Patch `json:"changes"`
}

type idRequest struct {
	ID int64 `json:"id"`
}

func (r idRequest) validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("%w: id must be a positive integer", domain.ErrInvalidInput)
	}
	return nil
}

type periodRequest struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
}

type byMonthRequest struct {
	Category string `json:"category"`
	Year     int    `json:"year"`
}

type yearRequest struct {
	Year int `json:"year"`
}

type receiptRequest struct {
	ImageURI string            `json:"image_uri"`
	Image    []byte            `json:"image"`
	MIMEType string            `json:"mime_type"`
	Receipt  *pipeline.Receipt `json:"receipt"`
	Date     string            `json:"date"`
}

func (r receiptRequest) state() *pipeline.PipelineState {
	return &pipeline.PipelineState{
		ImageURI: r.ImageURI,
		Image:    r.Image,
		MIMEType: r.MIMEType,
		Receipt:  r.Receipt,
		Date:     r.Date,
	}
}

type listProposalsRequest struct {
	Source string `json:"source"`
	Limit  int    `json:"limit"`
}

type proposalRequest struct {
	ProposalID string `json:"proposal_id"`
}

func (r proposalRequest) validate() error {
	if strings.TrimSpace(r.ProposalID) == "" {
		return fmt.Errorf("%w: proposal_id is required", domain.ErrInvalidInput)
	}
	return nil
}
