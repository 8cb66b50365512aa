package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/koensakamoto/friendbet/internal/account"
	rediscache "github.com/koensakamoto/friendbet/internal/cache/redis"
	"github.com/koensakamoto/friendbet/internal/config"
	cronrunner "github.com/koensakamoto/friendbet/internal/cron"
	"github.com/koensakamoto/friendbet/internal/db"
	"github.com/koensakamoto/friendbet/internal/handler"
	"github.com/koensakamoto/friendbet/internal/logger"
	"github.com/koensakamoto/friendbet/internal/membership"
	"github.com/koensakamoto/friendbet/internal/notify"
	gormrepository "github.com/koensakamoto/friendbet/internal/repository/gorm"
	"github.com/koensakamoto/friendbet/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("FB_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if raw := os.Getenv("FB_ENV_ONLY"); raw != "" {
		envOnly = strings.EqualFold(raw, "true") || raw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	locks := rediscache.NewLockManager(cfg.Redis)
	if locks == nil {
		logger.Info("redis not configured, sweep locking disabled")
	} else {
		defer locks.Close()
	}

	// The balance ledger and membership directory are external collaborators;
	// the in-process fallbacks keep a standalone deployment functional.
	ledger := account.NewMemoryLedger()
	ledger.AllowOverdraft = true
	members := &membership.StaticService{AllowAll: true}

	senders := []notify.Sender{&notify.LogSender{Logger: logger}}
	if cfg.Notify.WebhookURL != "" {
		senders = append(senders, &notify.WebhookSender{
			URL:     cfg.Notify.WebhookURL,
			Timeout: cfg.Notify.WebhookTimeout,
		})
	}
	notifier := notify.New(senders, cfg.Notify.Events, logger)

	betSvc := &service.BetService{
		Repo:    store,
		Ledger:  ledger,
		Members: members,
		Config:  cfg.Bets,
		Logger:  logger,
	}
	resolverSvc := &service.ResolverService{Repo: store, Members: members, Logger: logger}
	consensusSvc := &service.ConsensusService{
		Repo:         store,
		Resolver:     resolverSvc,
		Logger:       logger,
		MaxReasoning: cfg.Bets.MaxReasoningLength,
	}
	engine := service.NewResolutionEngine(store, ledger, members, consensusSvc, resolverSvc, notifier, logger)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(router)
	betHandler := &handler.BetHandler{
		Bets:      betSvc,
		Engine:    engine,
		Consensus: consensusSvc,
		Resolver:  resolverSvc,
		Repo:      store,
	}
	betHandler.Register(router)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deadlineSweep := &service.DeadlineSweepService{
		Repo:      store,
		Locks:     locks,
		Logger:    logger,
		BatchSize: cfg.Bets.SweepBatchSize,
	}
	resolutionSweep := &service.ResolutionSweepService{
		Repo:      store,
		Engine:    engine,
		Notifier:  notifier,
		Locks:     locks,
		Logger:    logger,
		BatchSize: cfg.Bets.SweepBatchSize,
	}

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		if _, err := cronRunner.Add(cfg.Cron.DeadlineSweep, "deadline_sweep", deadlineSweep.RunOnce); err != nil {
			logger.Warn("cron register deadline sweep failed", zap.Error(err))
		}
		if _, err := cronRunner.Add(cfg.Cron.ResolutionSweep, "resolution_sweep", resolutionSweep.RunOnce); err != nil {
			logger.Warn("cron register resolution sweep failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
