package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/influence/internal/bootstrap"
	"github.com/OFFIS-RIT/influence/internal/migrations"
	"github.com/OFFIS-RIT/influence/internal/queue"
	"github.com/OFFIS-RIT/influence/internal/runs"
	"github.com/OFFIS-RIT/influence/internal/server"
	mid "github.com/OFFIS-RIT/influence/internal/server/middleware"
	"github.com/OFFIS-RIT/influence/internal/util"
	"github.com/OFFIS-RIT/influence/pkg/logger"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := bootstrap.ConfigFromEnv()
	closeLogger := bootstrap.InitLogger(cfg)
	defer closeLogger()

	if err := migrations.Up(cfg.DatabaseURL); err != nil {
		logger.Fatal("Failed to migrate database", "err", err)
	}

	pool, err := bootstrap.OpenPool(ctx, cfg)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pool.Close()

	graph, err := bootstrap.OpenGraphStore(ctx, cfg, pool)
	if err != nil {
		logger.Fatal("Unable to open graph store", "backend", cfg.GraphBackend, "err", err)
	}
	defer graph.Close(context.Background())

	conn, err := queue.Init()
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.IngestQueue); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	e := server.New(&mid.App{
		Store:        graph,
		Queue:        ch,
		Runs:         runs.New(pool),
		MasterAPIKey: util.GetEnv("MASTER_API_KEY"),
	})
	if err := server.Run(ctx, e, util.GetEnvString("PORT", "8080")); err != nil {
		logger.Fatal("Server stopped", "err", err)
	}
}
