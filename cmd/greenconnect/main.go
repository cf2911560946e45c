package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"GreenConnect/internal/accrual"
	"GreenConnect/internal/config"
	"GreenConnect/internal/console"
	"GreenConnect/internal/recorder"
	"GreenConnect/internal/scheduler"
	"GreenConnect/internal/sensor"
	"GreenConnect/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] GreenConnect starting...")
	// Registered first so it runs after every other deferred shutdown step.
	defer log.Println("[INFO] GreenConnect stopped")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init counter store
	var st store.Store
	switch cfg.Store.Backend {
	case config.StoreSQLite:
		ss, err := store.OpenSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			log.Printf("[WARN] open sqlite store failed, counters start from seeds in memory: %v", err)
			st = store.NewMemoryStore()
		} else {
			defer ss.Close()
			st = ss
		}
	case config.StoreMemory:
		log.Println("[WARN] memory store selected, counters will not survive a restart")
		st = store.NewMemoryStore()
	default:
		fs, err := store.OpenFileStore(cfg.Store.StateFile)
		if err != nil {
			log.Printf("[WARN] open state file failed, counters start from seeds in memory: %v", err)
			st = store.NewMemoryStore()
		} else {
			st = fs
		}
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.HistoryPath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.HistoryPath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init sensing strategies
	sensorRand := rand.New(rand.NewSource(cfg.Sensors.Seed))
	var power sensor.PowerSource
	if cfg.Sensors.Simulate {
		power = sensor.NewSyntheticPower(sensorRand)
	} else {
		power = sensor.DetectPower(cfg.Sensors.PowerSupplyDir, cfg.Sensors.WatchInterval, sensorRand)
	}
	network := sensor.DetectNetwork(cfg.Sensors.WatchInterval)
	sampler := sensor.NewSampler(power, network)

	engine := accrual.NewEngine(st, sampler, rand.New(rand.NewSource(cfg.Sensors.Seed+1)), rec)

	sched := scheduler.NewScheduler(sampler, engine, rec, cfg.Export.Dir)
	if err := sched.RegisterAll(cfg.Schedule.ReportCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	if err := sched.Start(); err != nil {
		log.Fatalf("[FATAL] start: %v", err)
	}
	defer sched.Stop()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	con := &console.Console{In: os.Stdin, Out: os.Stdout, Activity: sampler.RecordActivity}
	go func() {
		if err := con.Run(ctx, sched.HandleCommand); err != nil {
			log.Printf("[ERROR] console: %v", err)
		}
	}()

	if os.Getenv("REPORT_ON_START") == "true" {
		sched.RunReportNow()
	}

	log.Println("[INFO] GreenConnect is running. Type \"help\" for commands, Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
}
