package main

import (
	"log"

	"github.com/vbonduro/feestatement/internal/config"
	"github.com/vbonduro/feestatement/internal/db"
	"github.com/vbonduro/feestatement/internal/logging"
	"github.com/vbonduro/feestatement/internal/repository"
	"github.com/vbonduro/feestatement/internal/service"
	"github.com/vbonduro/feestatement/internal/snapshotstore/local"
	"github.com/vbonduro/feestatement/internal/store"
	"github.com/vbonduro/feestatement/internal/web"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	snapshots, err := local.NewLocalSnapshotStore(cfg.CachePath)
	if err != nil {
		logger.Error("failed to initialize statement cache", "error", err)
		return
	}

	repo := repository.New(snapshots, store.NewVersionStore(database))
	statementService := service.NewStatementService(repo, service.Options{
		DefaultProjectType:  cfg.DefaultProjectType,
		DefaultProfitMargin: cfg.DefaultProfitMargin,
		SessionTTL:          cfg.SessionTTL,
	}, logger)

	logger.Info("statement service ready",
		"default_project_type", cfg.DefaultProjectType,
		"default_profit_margin", cfg.DefaultProfitMargin,
		"session_ttl", cfg.SessionTTL.String(),
	)

	server := web.NewServer(statementService, web.Options{Company: cfg.CompanyName}, logger)
	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}
