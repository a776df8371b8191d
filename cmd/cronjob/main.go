package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"consolerent-backend/internal/bootstrap"
	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/config"
	"consolerent-backend/internal/jobs"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/metrics"
	"consolerent-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'overdue-sweep', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting console rental cronjob runner...", "log_level", cfg.Log.Level)
	if cfg.Engine.Store == "memory" {
		logger.Warn("Cron runner is using the in-memory store; sweeps only see this process's data")
	}

	m := metrics.New()
	rt, err := bootstrap.Build(context.Background(), cfg, m, clock.NewSystem())
	if err != nil {
		logger.Error("Failed to initialize engine", "error", err)
		log.Fatalf("Failed to initialize engine: %v", err)
	}
	defer rt.Close()

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(rt.Engine, m, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := runJobOnce(jobRunner, *runOnce); err != nil {
			logger.Error("Job execution failed", "job", *runOnce, "error", err)
			rt.Close()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		logger.Error("Failed to create scheduler", "error", err)
		rt.Close()
		os.Exit(1)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a single job by name, or every job for "all".
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) error {
	if jobName == "all" {
		return jobRunner.RunAll()
	}
	for _, name := range jobs.JobNames() {
		if name == jobName {
			report, err := jobRunner.Run(name)
			if err != nil {
				return err
			}
			logger.Info("Job report",
				"job", report.Job,
				"examined", report.Examined,
				"applied", report.Applied,
				"skipped", report.Skipped,
				"failed", report.Failed,
				"duration", report.Duration,
			)
			return nil
		}
	}

	fmt.Printf("Available jobs:\n")
	for _, name := range jobs.JobNames() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Printf("  - all\n")
	return fmt.Errorf("unknown job name: %s", jobName)
}
