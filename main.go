package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dbaccountsync/bootstrap"
	"dbaccountsync/config"
	"dbaccountsync/pkg/logger"
	"dbaccountsync/services/accountsync"
	_ "dbaccountsync/services/accountsync/mysql"
	_ "dbaccountsync/services/accountsync/oracle"
	_ "dbaccountsync/services/accountsync/postgres"
	_ "dbaccountsync/services/accountsync/sqlserver"
	"dbaccountsync/services/verify"
)

func main() {
	mode := flag.String("mode", "sync", "run mode: sync or verify")
	targetID := flag.Uint("target", 0, "sync a single target by ID (0 means all enabled targets)")
	sampleSize := flag.Int("sample", 0, "verify sample size (0 uses VERIFY_SAMPLE_SIZE)")
	flag.Parse()

	// 1) Load config
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("LoadConfig error: %v", err)
	}

	// 2) Connect inventory DB (GORM)
	if err := config.ConnectDB(); err != nil {
		log.Fatalf("ConnectDB error: %v", err)
	}
	if config.DB == nil {
		log.Fatal("Database is nil after ConnectDB")
	}

	// 3) Init structured logger with config
	logLevel := logger.ParseLogLevel(config.Cfg.LogLevel)
	logger.InitWithConfig(
		config.Cfg.LogFile,
		logLevel,
		config.Cfg.LogMaxSize,
		config.Cfg.LogMaxBackups,
		config.Cfg.LogMaxAge,
		config.Cfg.LogCompress,
	)
	logger.Infof("Starting DB Account Sync with log level: %s", config.Cfg.LogLevel)

	if err := bootstrap.LoadData(); err != nil {
		log.Fatalf("Load data error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		logger.Warnf("Received signal %v, cancelling run", sig)
		cancel()
	}()

	switch *mode {
	case "sync":
		runSync(ctx, *targetID)
	case "verify":
		runVerify(*sampleSize)
	default:
		log.Fatalf("Unknown mode %q (want sync or verify)", *mode)
	}
}

func runSync(ctx context.Context, targetID uint) {
	service := accountsync.NewSyncService()
	var err error
	if targetID > 0 {
		err = service.SyncTarget(ctx, targetID)
	} else {
		err = service.SyncAll(ctx)
	}
	if err != nil {
		logger.Fatalf("Sync run failed: %v", err)
	}
	logger.Infof("Sync run completed successfully")
}

func runVerify(sampleSize int) {
	if sampleSize <= 0 {
		sampleSize = config.Cfg.VerifySampleSize
	}
	report, err := verify.NewVerifier().Run(sampleSize)
	if err != nil {
		logger.Fatalf("Verification run failed: %v", err)
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to render verification report: %v", err)
	}
	os.Stdout.Write(append(out, '\n'))
	if report.Inconsistent > 0 {
		os.Exit(1)
	}
}
