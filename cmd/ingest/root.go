package main

import (
	"context"
	"os"

	"github.com/OFFIS-RIT/influence/internal/bootstrap"
	"github.com/OFFIS-RIT/influence/internal/queue"
	"github.com/OFFIS-RIT/influence/internal/runs"
	"github.com/OFFIS-RIT/influence/pkg/runlock"
	"github.com/OFFIS-RIT/influence/pkg/staging"
	"github.com/OFFIS-RIT/influence/pkg/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// app holds the configuration shared by all subcommands. Flags override
// the environment.
type app struct {
	cfg         bootstrap.Config
	closeLogger func()
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: bootstrap.ConfigFromEnv()}

	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Build the political influence graph from staged register data",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.closeLogger = bootstrap.InitLogger(a.cfg)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closeLogger != nil {
				a.closeLogger()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&a.cfg.Debug, "debug", a.cfg.Debug, "enable debug logging")
	flags.StringVar(&a.cfg.LogFormat, "log-format", a.cfg.LogFormat, "console log format: text, logfmt or json")
	flags.StringVar(&a.cfg.LogFile, "log-file", a.cfg.LogFile, "also write logs to this file")
	flags.StringVar(&a.cfg.DatabaseURL, "database-url", a.cfg.DatabaseURL, "PostgreSQL connection string")
	flags.StringVar(&a.cfg.GraphBackend, "graph", a.cfg.GraphBackend, "graph backend: postgres, neo4j or memory")
	flags.StringVar(&a.cfg.StagingSource, "staging", a.cfg.StagingSource, "staging source: fs, s3 or mongo")
	flags.StringVar(&a.cfg.StagingDir, "staging-dir", a.cfg.StagingDir, "staging directory for the fs source")
	flags.DurationVar(&a.cfg.LockTTL, "lock-ttl", a.cfg.LockTTL, "lease of the dataset run lock")
	flags.StringVar(&a.cfg.AIAdapter, "ai-adapter", a.cfg.AIAdapter, "organization name extraction: openai, ollama or none")

	root.AddCommand(
		newRunCmd(a),
		newEnqueueCmd(a),
		newMigrateCmd(a),
		newDescribeCmd(a),
	)
	return root
}

// resources are the opened backends of one command invocation.
type resources struct {
	pool   *pgxpool.Pool
	graph  store.Store
	source staging.Source

	closers []func()
}

func (r *resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// open connects to the database when one is configured, then opens the
// graph store and, if withSource is set, the staging area.
func (a *app) open(ctx context.Context, withSource bool) (*resources, error) {
	res := &resources{}

	if a.cfg.DatabaseURL != "" {
		pool, err := bootstrap.OpenPool(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		res.pool = pool
		res.closers = append(res.closers, pool.Close)
	}

	graph, err := bootstrap.OpenGraphStore(ctx, a.cfg, res.pool)
	if err != nil {
		res.Close()
		return nil, err
	}
	res.graph = graph
	res.closers = append(res.closers, func() { _ = graph.Close(context.Background()) })

	if withSource {
		source, closeSource, err := bootstrap.OpenStagingSource(ctx, a.cfg)
		if err != nil {
			res.Close()
			return nil, err
		}
		res.source = source
		res.closers = append(res.closers, closeSource)
	}
	return res, nil
}

// processor runs jobs in process. Runs are recorded and locked only when a
// database is available.
func (a *app) processor(res *resources, runner queue.DatasetRunner) *queue.Processor {
	params := queue.NewProcessorParams{Runner: runner}
	if res.pool != nil {
		hostname, _ := os.Hostname()
		params.Recorder = runs.New(res.pool)
		params.Locker = runlock.New(res.pool)
		params.LockOptions = runlock.Options{
			TTL:    a.cfg.LockTTL,
			Wait:   true,
			Holder: hostname + " (cli)",
		}
	}
	return queue.NewProcessor(params)
}
