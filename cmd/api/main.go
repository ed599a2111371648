package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/crawdwall/capital-review-api/api/swagger"
	"github.com/crawdwall/capital-review-api/internal/handler"
	internalmiddleware "github.com/crawdwall/capital-review-api/internal/middleware"
	"github.com/crawdwall/capital-review-api/internal/repository"
	"github.com/crawdwall/capital-review-api/internal/service"
	"github.com/crawdwall/capital-review-api/pkg/cache"
	"github.com/crawdwall/capital-review-api/pkg/config"
	"github.com/crawdwall/capital-review-api/pkg/database"
	"github.com/crawdwall/capital-review-api/pkg/logger"
	"github.com/crawdwall/capital-review-api/pkg/mailer"
	corsmiddleware "github.com/crawdwall/capital-review-api/pkg/middleware/cors"
	reqidmiddleware "github.com/crawdwall/capital-review-api/pkg/middleware/requestid"
	"github.com/crawdwall/capital-review-api/pkg/storage"
)

// @title Crawdwall Capital Review API
// @version 1.0.0
// @description Funding proposal review and voting decision engine
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("report storage unavailable", "error", err)
	}

	validate := validator.New()
	mail := mailer.NewSMTP(cfg.SMTP)

	// Repositories.
	decisionRepo := repository.NewDecisionRepository(db)
	proposalRepo := repository.NewProposalRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	officerRepo := repository.NewOfficerRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	reportRepo := repository.NewReportRepository(db)
	investmentRepo := repository.NewInvestmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	configSvc := service.NewConfigurationService(configRepo, auditRepo, cfg.Voting, cfg.Investment, logr)
	notifySvc := service.NewNotificationService(userRepo, mail, metricsSvc, cfg.Notifications, logr)
	votingSvc := service.NewVotingService(
		decisionRepo, officerRepo, proposalRepo, voteRepo, auditRepo,
		configSvc, notifySvc, cacheRepo, metricsSvc,
		validate, logr, cfg.Voting.SummaryCacheTTL,
	)
	proposalSvc := service.NewProposalService(proposalRepo, auditRepo, validate, logr)
	officerSvc := service.NewOfficerService(officerRepo, auditRepo, validate, logr)
	authSvc := service.NewAuthService(userRepo, officerRepo, cacheRepo, mail, cfg.JWT, cfg.OTP, validate, logr)
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	reportSvc := service.NewReportService(
		reportRepo, proposalRepo, voteRepo, auditRepo, configSvc,
		fileStore, signer, cfg.Reports.WorkerConcurrency, logr,
	)
	statsSvc := service.NewStatsService(proposalRepo, voteRepo, officerRepo, auditRepo, logr)
	investmentSvc := service.NewInvestmentService(investmentRepo, configSvc, auditRepo, metricsSvc, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifySvc.Start(ctx)
	defer notifySvc.Stop()
	reportSvc.Start(ctx)
	defer reportSvc.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, handler.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Proposal: handler.NewProposalHandler(proposalSvc, votingSvc),
		Voting:   handler.NewVotingHandler(votingSvc),
		Investor: handler.NewInvestorHandler(investmentSvc),
		Admin:    handler.NewAdminHandler(votingSvc, officerSvc, configSvc, reportSvc, statsSvc),
		Metrics:  handler.NewMetricsHandler(metricsSvc),
		AuthSvc:  authSvc,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
