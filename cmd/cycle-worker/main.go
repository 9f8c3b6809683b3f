package main

import (
	"context"
	"errors"
	"os"
	"time"

	"casa/internal/cli"
	"casa/internal/log"
	"casa/internal/services"
	"casa/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting cycle-worker")

	checker, err := services.GetRolloverChecker(cfg.CycleRollover)
	if err != nil {
		logger.Error("Invalid rollover schedule", log.FieldError, err)
		os.Exit(1)
	}

	res := cli.InitBackend(log.NewContext(context.Background(), logger), cfg)
	client := cli.InitAMQP(logger, cfg)

	service := cli.NewCycleService(logger, res, client)
	processor := services.NewRolloverProcessor(service, checker)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if client != nil {
			client.Close()
		}
		if err := res.Close(); err != nil {
			logger.Warn("Failed to release backend", log.FieldError, err)
		}
	})

	logger.Info("Cycle rollover configured",
		"schedule", cfg.CycleRollover,
		"interval", cfg.WorkerInterval,
		log.FieldBackend, cfg.DataBackend)

	process := func(now time.Time) {
		closed, err := processor.Process(ctx)
		switch {
		case err != nil:
			logger.Error("Rollover processing failed", log.FieldError, err)
		case closed:
			logger.Info("Cycle rolled over", "next_check", now.Add(cfg.WorkerInterval).Format("15:04:05"))
		default:
			logger.Debug("Rollover processing complete", "next_check", now.Add(cfg.WorkerInterval).Format("15:04:05"))
		}
	}

	// Run initial processing on startup
	process(time.Now())

	ticker := time.NewTicker(cfg.WorkerInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				process(now)
			}
		}
	}()

	if client != nil {
		settlements := worker.NewSettlementWorker(res.Cycles, logger)
		go func() {
			err := client.ConsumeCycleEvents(ctx, settlements.HandleCycleClosed)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Cycle event consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("Skipping cycle event consumption - AMQP disabled")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Cycle-worker stopped")
}
