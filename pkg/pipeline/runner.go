package pipeline

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/influence/pkg/logger"
	"github.com/OFFIS-RIT/influence/pkg/staging"
)

// Datasets a Runner can ingest.
const (
	DatasetInterests = "interests"
	DatasetFunding   = "funding"
)

// Datasets lists all datasets in ingestion order.
var Datasets = []string{DatasetInterests, DatasetFunding}

// Runner loads a dataset from staging and hands it to its builder.
type Runner struct {
	source    staging.Source
	interests *InterestsBuilder
	funding   *FundingBuilder
}

func NewRunner(source staging.Source, interests *InterestsBuilder, funding *FundingBuilder) *Runner {
	return &Runner{source: source, interests: interests, funding: funding}
}

// Run ingests one dataset.
func (r *Runner) Run(ctx context.Context, dataset string) (Summary, error) {
	logger.Info("[Pipeline] Starting run", "dataset", dataset)

	switch dataset {
	case DatasetInterests:
		docs, err := r.source.InterestsDocuments(ctx)
		if err != nil {
			return Summary{}, fmt.Errorf("load register: %w", err)
		}
		return r.interests.Run(ctx, docs)
	case DatasetFunding:
		recs, err := r.source.FundingRecords(ctx)
		if err != nil {
			return Summary{}, fmt.Errorf("load donations: %w", err)
		}
		return r.funding.Run(ctx, recs)
	default:
		return Summary{}, fmt.Errorf("unknown dataset %q", dataset)
	}
}
