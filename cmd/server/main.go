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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	googleclient "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/client/google"
	metaclient "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/client/meta"
	whatchimpclient "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/client/whatchimp"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/config"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/credentials"
	cronrunner "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/cron"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/db"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/handler"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/httpx"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/logger"
	gormrepository "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/repository/gorm"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/service"

	_ "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/docs"
)

func main() {
	cfgPath := os.Getenv("LVP_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("LVP_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
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

	policy := httpx.Policy{
		MaxAttempts: cfg.Sync.MaxAttempts,
		BaseDelay:   cfg.Sync.RetryBaseDelay,
	}
	googleHTTP := httpx.New(&http.Client{Timeout: cfg.Google.Timeout}, policy, logger).
		WithRateLimit(cfg.Sync.RequestsPerSecond).
		WithBreaker("google")
	metaHTTP := httpx.New(&http.Client{Timeout: cfg.Meta.Timeout}, policy, logger).
		WithRateLimit(cfg.Sync.RequestsPerSecond).
		WithBreaker("meta")
	crmHTTP := httpx.New(&http.Client{Timeout: cfg.WhatChimp.Timeout}, policy, logger).
		WithRateLimit(cfg.Sync.RequestsPerSecond).
		WithBreaker("whatchimp")

	creds := credentials.NewManager(store, &http.Client{Timeout: cfg.Google.Timeout}, cfg.Google, logger)
	googleAPI := googleclient.NewClient(googleHTTP, cfg.Google.APIBaseURL, creds.GetValidToken)
	metaAPI := metaclient.NewClient(metaHTTP, cfg.Meta.BaseURL, cfg.Meta.WABAID, cfg.Meta.AccessToken)
	crmAPI := whatchimpclient.NewClient(crmHTTP, cfg.WhatChimp.BaseURL, cfg.WhatChimp.APIKey)

	googleSvc := &service.GoogleSyncService{
		Store:     store,
		API:       googleAPI,
		Tokens:    creds,
		AccountID: cfg.Google.AccountID,
		Locations: cfg.Google.LocationIDs,
		Cfg:       cfg.Sync,
		Logger:    logger,
	}
	metaSvc := &service.MetaSyncService{
		Store:  store,
		API:    metaAPI,
		Cfg:    cfg.Sync,
		Logger: logger,
	}
	crmSvc := &service.CrmSyncService{
		Store:     store,
		API:       crmAPI,
		Labels:    cfg.WhatChimp.Labels,
		Blacklist: cfg.WhatChimp.Blacklist,
		Cfg:       cfg.Sync,
		Logger:    logger,
	}
	orchestrator := &service.Orchestrator{
		Google: googleSvc,
		Meta:   metaSvc,
		Crm:    crmSvc,
		Store:  store,
		Logger: logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	authHandler := &handler.AuthHandler{Creds: creds, Logger: logger}
	authHandler.Register(engine)
	syncHandler := &handler.SyncHandler{
		Google:       googleSvc,
		Meta:         metaSvc,
		Crm:          crmSvc,
		Orchestrator: orchestrator,
		Store:        store,
		Auth:         creds,
		Logger:       logger,
	}
	syncHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		registerCronJobs(cronRunner, cfg.Cron, googleSvc, metaSvc, crmSvc, logger)
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

func registerCronJobs(runner *cronrunner.Runner, cfg config.CronConfig, googleSvc *service.GoogleSyncService, metaSvc *service.MetaSyncService, crmSvc *service.CrmSyncService, logger *zap.Logger) {
	if cfg.GoogleSync != "" {
		_, err := runner.Add("google_sync", cfg.GoogleSync, func(ctx context.Context) {
			if result, err := googleSvc.SyncMetrics(ctx, service.MetricsOptions{}); err != nil {
				logger.Warn("cron google metrics sync failed", zap.Error(err))
			} else {
				logger.Info("cron google metrics sync ok",
					zap.Int("locations", result.Locations),
					zap.Int("rows", result.Rows),
					zap.Int("failed", result.Failed))
			}
			if result, err := googleSvc.SyncReviews(ctx, service.ReviewsOptions{}); err != nil {
				logger.Warn("cron google reviews sync failed", zap.Error(err))
			} else {
				logger.Info("cron google reviews sync ok",
					zap.Int("reviews", result.Reviews),
					zap.Bool("partial", result.Partial))
			}
		})
		if err != nil {
			logger.Fatal("invalid google cron spec", zap.Error(err))
		}
	}
	if cfg.MetaSync != "" {
		_, err := runner.Add("meta_sync", cfg.MetaSync, func(ctx context.Context) {
			if result, err := metaSvc.Sync(ctx, service.MetaOptions{}); err != nil {
				logger.Warn("cron meta sync failed", zap.Error(err))
			} else {
				logger.Info("cron meta sync ok",
					zap.Int("chunks", result.Chunks),
					zap.Int("conversation_rows", result.ConversationRows),
					zap.Int("message_rows", result.MessageRows),
					zap.Int("failed", result.Failed))
			}
		})
		if err != nil {
			logger.Fatal("invalid meta cron spec", zap.Error(err))
		}
	}
	if cfg.CrmSync != "" {
		_, err := runner.Add("crm_sync", cfg.CrmSync, func(ctx context.Context) {
			if result, err := crmSvc.Sync(ctx, service.CrmOptions{}); err != nil {
				logger.Warn("cron crm sync failed", zap.Error(err))
			} else {
				logger.Info("cron crm sync ok",
					zap.Int("fetched", result.Fetched),
					zap.Int("processed", result.Processed),
					zap.Int("failed", result.Failed))
			}
		})
		if err != nil {
			logger.Fatal("invalid crm cron spec", zap.Error(err))
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
