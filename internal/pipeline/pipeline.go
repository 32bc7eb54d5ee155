package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/pfm-ledger/internal/logger"
	"github.com/dvloznov/pfm-ledger/internal/proposals"
)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially and stops at the first
// failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			log.Warn().Err(err).Int("step", i+1).Str("step_type", fmt.Sprintf("%T", step)).Msg("Receipt pipeline stopped")
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Deps are the collaborators of the receipt pipeline. Fetcher and Extractor
// are only needed when receipts arrive as images.
type Deps struct {
	Fetcher         ObjectFetcher
	Extractor       Extractor
	Proposer        Proposer
	DefaultCurrency string
}

// NewReceiptPipeline creates the standard 8-step pipeline that turns a
// receipt into a pending proposal.
func NewReceiptPipeline(deps Deps) *Pipeline {
	return NewPipeline(
		&FetchReceiptStep{Fetcher: deps.Fetcher},
		&ExtractReceiptStep{Extractor: deps.Extractor},
		&ExtractRowsStep{},
		&ClassifyStep{},
		&DeduplicateStep{},
		&MapConceptsStep{DefaultCurrency: deps.DefaultCurrency},
		&ResolveDateStep{},
		&ProposeStep{Proposer: deps.Proposer},
	)
}

// ProposeReceipt runs the pipeline over state and returns the proposal it
// produced.
func (p *Pipeline) ProposeReceipt(ctx context.Context, state *PipelineState) (*proposals.Proposal, error) {
	if err := p.Execute(ctx, state); err != nil {
		return nil, err
	}
	if state.Proposal == nil {
		return nil, fmt.Errorf("ProposeReceipt: pipeline finished without a proposal")
	}
	logger.FromContext(ctx).Info().Str("proposal_id", state.Proposal.ID).
		Int("rows", len(state.Rows)).Int("records", len(state.Records)).Msg("Receipt proposed")
	return state.Proposal, nil
}
