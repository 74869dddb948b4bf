package queue

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/OFFIS-RIT/influence/pkg/pipeline"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// IngestJobMsg asks a worker to ingest datasets from staging.
type IngestJobMsg struct {
	CorrelationID string    `json:"correlation_id"`
	Datasets      []string  `json:"datasets"`
	RequestedAt   time.Time `json:"requested_at"`
	Message       string    `json:"message,omitempty"`
}

// NewIngestJob creates a job for datasets, or for all datasets if none
// are given.
func NewIngestJob(message string, datasets ...string) (IngestJobMsg, error) {
	if len(datasets) == 0 {
		datasets = slices.Clone(pipeline.Datasets)
	}
	for _, d := range datasets {
		if !slices.Contains(pipeline.Datasets, d) {
			return IngestJobMsg{}, fmt.Errorf("unknown dataset %q", d)
		}
	}

	id, err := gonanoid.New()
	if err != nil {
		return IngestJobMsg{}, err
	}
	return IngestJobMsg{
		CorrelationID: id,
		Datasets:      datasets,
		RequestedAt:   time.Now().UTC(),
		Message:       message,
	}, nil
}

// PublishIngestJob queues job on IngestQueue.
func PublishIngestJob(ch Publisher, job IngestJobMsg) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return PublishFIFO(ch, IngestQueue, body)
}

// DecodeIngestJob parses a queued job.
func DecodeIngestJob(body []byte) (IngestJobMsg, error) {
	var job IngestJobMsg
	if err := json.Unmarshal(body, &job); err != nil {
		return IngestJobMsg{}, fmt.Errorf("decode ingest job: %w", err)
	}
	if len(job.Datasets) == 0 {
		job.Datasets = slices.Clone(pipeline.Datasets)
	}
	return job, nil
}
