package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/influence/internal/bootstrap"
	"github.com/OFFIS-RIT/influence/internal/migrations"
	"github.com/OFFIS-RIT/influence/internal/queue"
	"github.com/OFFIS-RIT/influence/internal/runs"
	"github.com/OFFIS-RIT/influence/internal/util"
	"github.com/OFFIS-RIT/influence/pkg/logger"
	"github.com/OFFIS-RIT/influence/pkg/runlock"
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

	source, closeSource, err := bootstrap.OpenStagingSource(ctx, cfg)
	if err != nil {
		logger.Fatal("Unable to open staging area", "source", cfg.StagingSource, "err", err)
	}
	defer closeSource()

	entities, aiClient, err := bootstrap.NewEntityExtractor(cfg)
	if err != nil {
		logger.Fatal("Could not create AI client", "adapter", cfg.AIAdapter, "err", err)
	}

	hostname, _ := os.Hostname()
	processor := queue.NewProcessor(queue.NewProcessorParams{
		Runner:   bootstrap.NewRunner(cfg, graph, source, entities),
		Recorder: runs.New(pool),
		Locker:   runlock.New(pool),
		LockOptions: runlock.Options{
			TTL:    cfg.LockTTL,
			Holder: hostname,
		},
	})

	// Init rabbitmq
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

	// One ingest job at a time.
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := ch.Consume(
		queue.IngestQueue,
		queue.IngestQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.IngestQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.IngestQueue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queue.IngestQueue)
				return
			}
			startTime := time.Now()
			logger.Info("Received message", "queue", queue.IngestQueue)

			job, err := queue.DecodeIngestJob(msg.Body)
			if err != nil {
				// Malformed jobs never succeed on retry.
				logger.Error("Discarding malformed message", "err", err)
				if err := msg.Nack(false, false); err != nil {
					logger.Error("Failed to nack message", "err", err)
				}
				continue
			}

			results, err := processor.RunJob(ctx, job)
			if err != nil {
				logger.Error("Error processing message", "queue", queue.IngestQueue, "correlation_id", job.CorrelationID, "err", err)
				queue.HandleProcessingError(ch, msg, queue.IngestQueue)
			} else {
				if err := msg.Ack(false); err != nil {
					logger.Error("Failed to ack message", "err", err)
				}
				logger.Info("Message processed successfully", "queue", queue.IngestQueue, "correlation_id", job.CorrelationID)
			}

			bootstrap.LogSummaries(results, startTime)
			bootstrap.LogAIMetrics(aiClient)
			logger.Info("Waiting for next message")
		}
	}
}
