package main

import (
	"log"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/parcelops/shipcost-reconciler/internal/api"
	"github.com/parcelops/shipcost-reconciler/internal/config"
	"github.com/parcelops/shipcost-reconciler/internal/metrics"
	"github.com/parcelops/shipcost-reconciler/internal/reconciliation"
	"github.com/parcelops/shipcost-reconciler/internal/repository"
	"github.com/parcelops/shipcost-reconciler/internal/shiprocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	metrics.Register()

	logger.Info("initializing database", zap.String("path", cfg.DB.Path))
	db, err := repository.InitDB(cfg.DB.Path)
	if err != nil {
		logger.Fatal("failed to init DB", zap.Error(err))
	}
	defer db.Close()

	chargeRepo := repository.NewChargeRepo(db)

	httpc := &http.Client{Timeout: cfg.Shiprocket.RequestTimeout}
	tokens := shiprocket.NewTokenManager(cfg.Shiprocket, httpc, logger)
	platform := shiprocket.NewClient(cfg.Shiprocket, tokens, httpc, logger)

	reconSvc := reconciliation.NewService(platform, chargeRepo, cfg.Batch, logger)

	router := api.NewRouter(reconSvc, chargeRepo, platform, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("shipping-cost reconciler listening",
		zap.String("port", cfg.Server.Port),
		zap.String("platform", cfg.Shiprocket.BaseURL))

	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc.Encoding = "console"
	}
	if lvl, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}
