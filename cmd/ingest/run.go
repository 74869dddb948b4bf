package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/OFFIS-RIT/influence/internal/bootstrap"
	"github.com/OFFIS-RIT/influence/internal/queue"
	"github.com/OFFIS-RIT/influence/pkg/pipeline"

	"github.com/spf13/cobra"
)

func validDatasets(cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		if !slices.Contains(pipeline.Datasets, arg) {
			return fmt.Errorf("unknown dataset %q, expected one of %v", arg, pipeline.Datasets)
		}
	}
	return nil
}

func newRunCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:       "run [dataset...]",
		Short:     "Ingest datasets in process (all datasets if none are given)",
		ValidArgs: pipeline.Datasets,
		Args:      validDatasets,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			started := time.Now()

			res, err := a.open(ctx, true)
			if err != nil {
				return err
			}
			defer res.Close()

			entities, aiClient, err := bootstrap.NewEntityExtractor(a.cfg)
			if err != nil {
				return err
			}

			job, err := queue.NewIngestJob("cli", args...)
			if err != nil {
				return err
			}
			runner := bootstrap.NewRunner(a.cfg, res.graph, res.source, entities)
			results, runErr := a.processor(res, runner).RunJob(ctx, job)

			bootstrap.LogSummaries(results, started)
			bootstrap.LogAIMetrics(aiClient)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run summaries as JSON")
	return cmd
}

func newEnqueueCmd(a *app) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:       "enqueue [dataset...]",
		Short:     "Queue an ingest job for the workers",
		ValidArgs: pipeline.Datasets,
		Args:      validDatasets,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := queue.NewIngestJob(message, args...)
			if err != nil {
				return err
			}

			conn, err := queue.Init()
			if err != nil {
				return err
			}
			defer conn.Close()

			ch, err := conn.Channel()
			if err != nil {
				return fmt.Errorf("open channel: %w", err)
			}
			defer ch.Close()

			if err := queue.SetupQueues(ch, queue.IngestQueue); err != nil {
				return err
			}
			if err := queue.PublishIngestJob(ch, job); err != nil {
				return fmt.Errorf("publish ingest job: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), job.CorrelationID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "note stored with the job")
	return cmd
}
