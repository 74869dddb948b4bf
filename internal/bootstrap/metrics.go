package bootstrap

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/influence/pkg/ai"
	"github.com/OFFIS-RIT/influence/pkg/logger"
	"github.com/OFFIS-RIT/influence/pkg/pipeline"

	"github.com/dustin/go-humanize"
)

// clock formats d as hh:mm:ss.
func clock(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// LogAIMetrics logs and resets the usage counters of client. A nil client
// is ignored.
func LogAIMetrics(client ai.Client) {
	if client == nil {
		return
	}
	metrics := client.GetMetrics()
	logger.Info(
		"AI Metrics",
		"requests", humanize.Comma(int64(metrics.Requests)),
		"input_tokens", humanize.Comma(int64(metrics.InputTokens)),
		"output_tokens", humanize.Comma(int64(metrics.OutputTokens)),
		"total_tokens", humanize.Comma(int64(metrics.TotalTokens)),
		"duration", clock(time.Duration(metrics.DurationMs)*time.Millisecond),
	)
	client.ResetMetrics()
}

// LogSummaries logs the per dataset results of an ingest job.
func LogSummaries(results map[string]pipeline.Summary, started time.Time) {
	var total pipeline.Summary
	for dataset, sum := range results {
		logger.Info(
			"Dataset ingested",
			"dataset", dataset,
			"processed", humanize.Comma(int64(sum.Processed)),
			"skipped", humanize.Comma(int64(sum.Skipped)),
			"failed", humanize.Comma(int64(sum.Failed)),
		)
		total.Add(sum)
	}
	logger.Info(
		"Processing time",
		"records", humanize.Comma(int64(total.Processed+total.Skipped+total.Failed)),
		"duration", clock(time.Since(started)),
		"started", humanize.Time(started),
	)
}
