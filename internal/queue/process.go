package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/influence/internal/util"
	"github.com/OFFIS-RIT/influence/pkg/logger"
	"github.com/OFFIS-RIT/influence/pkg/pipeline"
	"github.com/OFFIS-RIT/influence/pkg/runlock"
)

// DatasetRunner ingests one dataset.
type DatasetRunner interface {
	Run(ctx context.Context, dataset string) (pipeline.Summary, error)
}

// RunRecorder persists run outcomes.
type RunRecorder interface {
	Start(ctx context.Context, correlationID, dataset string) (int64, error)
	Finish(ctx context.Context, id int64, sum pipeline.Summary, runErr error) error
}

// DatasetLocker serializes runs of the same dataset.
type DatasetLocker interface {
	Do(ctx context.Context, dataset string, opts runlock.Options, fn func(ctx context.Context) error) error
}

// Processor executes ingest jobs. Recorder and Locker are optional.
type Processor struct {
	runner   DatasetRunner
	recorder RunRecorder
	locker   DatasetLocker
	lockOpts runlock.Options
}

type NewProcessorParams struct {
	Runner      DatasetRunner
	Recorder    RunRecorder
	Locker      DatasetLocker
	LockOptions runlock.Options
}

func NewProcessor(params NewProcessorParams) *Processor {
	return &Processor{
		runner:   params.Runner,
		recorder: params.Recorder,
		locker:   params.Locker,
		lockOpts: params.LockOptions,
	}
}

// ProcessIngestMessage runs a queued ingest job.
func (p *Processor) ProcessIngestMessage(ctx context.Context, body []byte) error {
	job, err := DecodeIngestJob(body)
	if err != nil {
		return err
	}
	_, err = p.RunJob(ctx, job)
	return err
}

// RunJob ingests the datasets of job in order and stops at the first
// failing dataset. A dataset locked by another worker is skipped.
func (p *Processor) RunJob(ctx context.Context, job IngestJobMsg) (map[string]pipeline.Summary, error) {
	results := make(map[string]pipeline.Summary, len(job.Datasets))
	for _, dataset := range job.Datasets {
		logger.Info("[Queue] Ingesting dataset", "dataset", dataset, "correlation_id", job.CorrelationID)

		var sum pipeline.Summary
		run := func(ctx context.Context) error {
			var err error
			sum, err = p.runRecorded(ctx, job.CorrelationID, dataset)
			return err
		}

		var err error
		if p.locker != nil {
			err = p.locker.Do(ctx, dataset, p.lockOpts, run)
		} else {
			err = run(ctx)
		}

		if errors.Is(err, runlock.ErrBusy) {
			logger.Warn("[Queue] Dataset is being ingested by another worker, skipping", "dataset", dataset)
			continue
		}
		if err != nil {
			return results, fmt.Errorf("ingest %s: %w", dataset, err)
		}
		results[dataset] = sum
	}
	return results, nil
}

func (p *Processor) runRecorded(ctx context.Context, correlationID, dataset string) (pipeline.Summary, error) {
	var runID int64
	if p.recorder != nil {
		id, err := p.recorder.Start(ctx, correlationID, dataset)
		if err != nil {
			logger.Warn("[Queue] Failed to record run start", "dataset", dataset, "err", err)
		}
		runID = id
	}

	sum, runErr := p.runner.Run(ctx, dataset)

	if p.recorder != nil && runID != 0 {
		// The run context may already be cancelled.
		err := util.RetryErrWithContext(context.WithoutCancel(ctx), 3, func(ctx context.Context) error {
			return p.recorder.Finish(ctx, runID, sum, runErr)
		})
		if err != nil {
			logger.Warn("[Queue] Failed to record run result", "dataset", dataset, "err", err)
		}
	}
	return sum, runErr
}
