package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushub/codeathon-api/api/swagger"
	"github.com/campushub/codeathon-api/internal/handler"
	"github.com/campushub/codeathon-api/internal/mailer"
	"github.com/campushub/codeathon-api/internal/middleware"
	"github.com/campushub/codeathon-api/internal/repository"
	"github.com/campushub/codeathon-api/internal/service"
	"github.com/campushub/codeathon-api/pkg/cache"
	"github.com/campushub/codeathon-api/pkg/config"
	"github.com/campushub/codeathon-api/pkg/database"
	"github.com/campushub/codeathon-api/pkg/jobs"
	"github.com/campushub/codeathon-api/pkg/logger"
	corsmiddleware "github.com/campushub/codeathon-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushub/codeathon-api/pkg/middleware/requestid"
	"github.com/campushub/codeathon-api/pkg/storage"
)

// @title Codeathon API
// @version 1.0.0
// @description Hackathon participation tracking and credit accounting service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	reportSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	proctorRepo := repository.NewProctorRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	opportunityRepo := repository.NewOpportunityRepository(db)
	hackathonRepo := repository.NewHackathonRepository(db)

	metrics := service.NewMetricsService()

	var sender service.Sender
	if cfg.Notifications.Enabled && cfg.Notifications.Sender == "sendgrid" {
		sender = mailer.NewSendgridSender(cfg.Notifications.SendgridAPIKey, cfg.Notifications.FromName, cfg.Notifications.FromEmail, logr)
	} else {
		sender = mailer.NewConsoleSender(logr)
	}
	notifier := service.NewNotificationService(sender, jobs.QueueConfig{
		Workers:    cfg.Notifications.WorkerConcurrency,
		MaxRetries: cfg.Notifications.WorkerRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, metrics, logr)

	proctorSvc := service.NewProctorService(proctorRepo, studentRepo, nil, logr)
	authSvc := service.NewAuthService(userRepo,
		cache.NewRedisCodeStore(redisClient, "reset-codes"), notifier, nil, logr,
		service.AuthConfig{
			AccessTokenSecret:  cfg.JWT.Secret,
			AccessTokenExpiry:  cfg.JWT.Expiration,
			RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
			Issuer:             "codeathon-api",
			ResetCodeTTL:       cfg.PasswordReset.CodeTTL,
		})
	studentSvc := service.NewStudentService(studentRepo, userRepo, proctorSvc, nil, logr)
	participationSvc := service.NewParticipationService(participationRepo, studentRepo, proctorSvc, notifier, metrics, nil, logr)
	teamSvc := service.NewTeamService(teamRepo, studentRepo, hackathonRepo, proctorSvc, notifier, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, hackathonRepo, proctorSvc, notifier, nil, logr)
	opportunitySvc := service.NewOpportunityService(opportunityRepo, studentRepo, notifier, redisClient, cfg.Opportunities.ScanCacheTTL, nil, logr)
	hackathonSvc := service.NewHackathonService(hackathonRepo, nil, logr)
	reportSvc := service.NewReportService(studentRepo, participationRepo, reportStore, reportSigner, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier.Start(ctx)
	defer notifier.Stop()

	if cfg.Reports.Enabled && cfg.Reports.CleanupInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Reports.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					reportSvc.CleanupExpired(cfg.Reports.SignedURLTTL)
				}
			}
		}()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r, handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Student:       handler.NewStudentHandler(studentSvc, proctorSvc),
		Participation: handler.NewParticipationHandler(participationSvc, uploadStore, cfg.Uploads),
		Team:          handler.NewTeamHandler(teamSvc, uploadStore, cfg.Uploads),
		Enrollment:    handler.NewEnrollmentHandler(enrollmentSvc),
		Opportunity:   handler.NewOpportunityHandler(opportunitySvc, proctorSvc, uploadStore, cfg.Uploads),
		Hackathon:     handler.NewHackathonHandler(hackathonSvc),
		Report:        handler.NewReportHandler(reportSvc),
		Metrics:       handler.NewMetricsHandler(metrics),
	}, authSvc, userRepo)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
