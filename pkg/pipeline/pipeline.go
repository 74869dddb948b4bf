// Package pipeline drives staged records through extraction into the graph.
//
// Records are applied one at a time in staging order. A record that fails
// is logged and counted; only a lost store connection stops a run.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/OFFIS-RIT/influence/pkg/logger"
	"github.com/OFFIS-RIT/influence/pkg/store"
)

// Summary counts the outcome of one run.
type Summary struct {
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Add accumulates other into s.
func (s *Summary) Add(other Summary) {
	s.Processed += other.Processed
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.Duration += other.Duration
}

// outcome sorts a record error into the summary. It returns the error when
// the run has to stop.
func (s *Summary) outcome(component string, err error, keyvals ...any) error {
	if err == nil {
		s.Processed++
		return nil
	}
	if isFatal(err) {
		logger.Error("["+component+"] Aborting run", append(keyvals, "err", err)...)
		return err
	}
	s.Failed++
	logger.Warn("["+component+"] Record failed", append(keyvals, "err", err)...)
	return nil
}

func isFatal(err error) bool {
	return errors.Is(err, store.ErrUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func logSummary(component string, s Summary) {
	logger.Info("["+component+"] Run finished",
		"processed", s.Processed,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"duration", s.Duration,
	)
}
