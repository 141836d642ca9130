package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"tasca/internal/amqp"
	"tasca/internal/cli"
	applog "tasca/internal/log"
	"tasca/internal/notify"
	"tasca/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, os.Stderr, applog.ComponentWorker)
	logger.Info("Starting tasca-alerts", applog.FieldOperation, applog.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required to consume budget alerts")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func() {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", applog.FieldError, err)
		}
	})
	ctx = applog.NewContext(ctx, logger)

	alertWorker := worker.NewAlertWorker(notify.Multi{
		notify.NewWriterNotifier(os.Stdout),
		notify.NewLogNotifier(logger),
	})

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- amqpClient.ConsumeBudgetAlerts(ctx, alertWorker.HandleAlert)
	}()

	select {
	case err := <-consumeErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
			amqpClient.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
	}
	cli.WaitForShutdown(ctx, done)
}
