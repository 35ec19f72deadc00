package main

import (
	"flag"
	"log"
	"os"

	"SolPulse/internal/di"
	"SolPulse/pkg/config"
	applogger "SolPulse/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	boot, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	boot.Info("starting solpulse",
		applogger.String("storage", cfg.Storage.Driver),
		applogger.String("cache", cfg.Cache.Backend),
		applogger.Bool("kafka", cfg.Kafka.Enabled),
		applogger.Bool("scheduler", cfg.Scheduler.Enabled),
		applogger.Bool("queue", cfg.Queue.Enabled),
		applogger.Bool("live", cfg.Live.Enabled),
	)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		boot.Error("app initialization failed", applogger.Error(err))
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		boot.Error("app stopped with error", applogger.Error(err))
		os.Exit(1)
	}
	boot.Info("solpulse stopped")
}
