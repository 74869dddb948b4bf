// Package runs persists the outcome of ingestion runs so operators can see
// when a dataset was last ingested and how long a run usually takes.
package runs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/influence/pkg/pipeline"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// ErrNotFound is returned when a dataset has never been run.
var ErrNotFound = errors.New("run not found")

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Run is one persisted ingestion run.
type Run struct {
	ID            int64      `json:"id"`
	CorrelationID string     `json:"correlation_id"`
	Dataset       string     `json:"dataset"`
	Status        string     `json:"status"`
	Processed     int        `json:"processed"`
	Skipped       int        `json:"skipped"`
	Failed        int        `json:"failed"`
	DurationMs    int64      `json:"duration_ms"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

type Recorder struct {
	db dbConn
}

func New(db dbConn) *Recorder {
	return &Recorder{db: db}
}

// Start records a running run and returns its id.
func (r *Recorder) Start(ctx context.Context, correlationID, dataset string) (int64, error) {
	var id int64
	if err := r.db.QueryRow(ctx, startRunSQL, correlationID, dataset, StatusRunning).Scan(&id); err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// Finish stores the summary of run id. A non-nil runErr marks it failed.
func (r *Recorder) Finish(ctx context.Context, id int64, sum pipeline.Summary, runErr error) error {
	status, msg := StatusFinished, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	_, err := r.db.Exec(ctx, finishRunSQL,
		id,
		status,
		int32(sum.Processed),
		int32(sum.Skipped),
		int32(sum.Failed),
		sum.Duration.Milliseconds(),
		msg,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Latest returns the most recent run of dataset.
func (r *Recorder) Latest(ctx context.Context, dataset string) (Run, error) {
	var (
		run                        Run
		processed, skipped, failed int32
	)
	err := r.db.QueryRow(ctx, latestRunSQL, dataset).Scan(
		&run.ID,
		&run.CorrelationID,
		&run.Dataset,
		&run.Status,
		&processed,
		&skipped,
		&failed,
		&run.DurationMs,
		&run.Error,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	run.Processed, run.Skipped, run.Failed = int(processed), int(skipped), int(failed)
	return run, nil
}

// PredictDuration estimates the duration of the next run of dataset from
// the finished runs. Zero means no history.
func (r *Recorder) PredictDuration(ctx context.Context, dataset string) (time.Duration, error) {
	var ms int64
	if err := r.db.QueryRow(ctx, predictDurationSQL, dataset, StatusFinished).Scan(&ms); err != nil {
		return 0, fmt.Errorf("predict duration: %w", err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

const startRunSQL = `
INSERT INTO ingest_runs (correlation_id, dataset, status, started_at)
VALUES ($1, $2, $3, now())
RETURNING id;
`

const finishRunSQL = `
UPDATE ingest_runs
SET status      = $2,
    processed   = $3,
    skipped     = $4,
    failed      = $5,
    duration_ms = $6,
    error       = $7,
    finished_at = now()
WHERE id = $1;
`

const latestRunSQL = `
SELECT id, correlation_id, dataset, status, processed, skipped, failed, duration_ms, error, started_at, finished_at
FROM ingest_runs
WHERE dataset = $1
ORDER BY started_at DESC
LIMIT 1;
`

const predictDurationSQL = `
SELECT COALESCE(AVG(duration_ms), 0)::bigint
FROM (
    SELECT duration_ms
    FROM ingest_runs
    WHERE dataset = $1 AND status = $2
    ORDER BY started_at DESC
    LIMIT 10
) recent;
`
