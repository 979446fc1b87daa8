package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/tbdose-api/config"
	"github.com/giygas/tbdose-api/data"
	"github.com/giygas/tbdose-api/drugtable"
	"github.com/giygas/tbdose-api/health"
	"github.com/giygas/tbdose-api/logging"
	"github.com/giygas/tbdose-api/metrics"
	"github.com/giygas/tbdose-api/scheduler"
	"github.com/giygas/tbdose-api/server"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.InitLoggerWithConfig(cfg)
	defer logging.Close()

	loader := drugtable.NewLoader(cfg.DrugTableFile, cfg.DrugTableEncoding)

	logging.Info("Configuration loaded",
		"env", cfg.Env.String(),
		"address", cfg.Address,
		"port", cfg.Port,
		"table_source", loader.Source(),
		"check_interval_minutes", cfg.TableCheckIntervalMn,
	)

	table, err := loader.Load()
	if err != nil {
		logging.Error("Failed to load drug table", "source", loader.Source(), "error", err)
		logging.Close()
		os.Exit(1)
	}

	dataContainer := data.NewDataContainer()
	if err := dataContainer.Load(table); err != nil {
		logging.Error("Failed to store drug table", "error", err)
		logging.Close()
		os.Exit(1)
	}
	dataContainer.SetServerStartTime(time.Now())
	metrics.TableDrugs.Set(float64(len(table.Drugs)))

	checkInterval := time.Duration(cfg.TableCheckIntervalMn) * time.Minute

	sched := scheduler.NewScheduler(dataContainer, loader, checkInterval)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		logging.Close()
		os.Exit(1)
	}

	healthChecker := health.NewHealthChecker(dataContainer, checkInterval)
	srv := server.NewServer(cfg, dataContainer, healthChecker)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logging.Error("Server failed to start", "error", err)
			sched.Stop()
			logging.Close()
			os.Exit(1)
		}
	case <-quit:
	}

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Graceful shutdown failed", "error", err)
	}
}
