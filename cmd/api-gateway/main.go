package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/eduorg-api/api/swagger"
	"github.com/noah-isme/eduorg-api/internal/handler"
	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/repository"
	"github.com/noah-isme/eduorg-api/internal/service"
	"github.com/noah-isme/eduorg-api/pkg/cache"
	"github.com/noah-isme/eduorg-api/pkg/config"
	"github.com/noah-isme/eduorg-api/pkg/database"
	"github.com/noah-isme/eduorg-api/pkg/export"
	"github.com/noah-isme/eduorg-api/pkg/jobs"
	"github.com/noah-isme/eduorg-api/pkg/logger"
	"github.com/noah-isme/eduorg-api/pkg/mail"
	"github.com/noah-isme/eduorg-api/pkg/storage"
)

// @title EduOrg API
// @version 1.0.0
// @description Multi-tenant API for people, courses, enrollments, grades and certificates
// @BasePath /api/v1
// @schemes http https
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(db, "up"); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Redis.CacheTTL, logr, cacheRepo != nil)

	app, err := buildApp(cfg, db, cacheSvc, metricsSvc, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.notificationQueue.Start(ctx)
	app.certificateQueue.Start(ctx)

	checks := map[string]handler.ReadinessCheck{"database": repository.NewTenantRepository(db).Ping}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	r := newRouter(cfg, app, handler.NewMetricsHandler(metricsSvc, checks), metricsSvc, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logr.Error("server failed", zap.Error(err))
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
		_ = srv.Close()
	}
	app.certificateQueue.Stop()
	app.notificationQueue.Stop()
	logr.Info("server stopped")
}

type application struct {
	tenants           *service.TenantService
	auth              *service.AuthService
	persons           *service.PersonService
	groups            *service.GroupService
	memberships       *service.MembershipService
	courses           *service.CourseService
	instances         *service.CourseInstanceService
	enrollments       *service.EnrollmentService
	grades            *service.GradeService
	schedules         *service.ScheduleService
	attendance        *service.AttendanceService
	certificates      *service.CertificateService
	exports           *service.ExportService
	notificationQueue *jobs.Queue
	certificateQueue  *jobs.Queue
}

func buildApp(cfg *config.Config, db *sqlx.DB, cacheSvc *service.CacheService, metricsSvc *service.MetricsService, logr *zap.Logger) (*application, error) {
	validate := validator.New()

	tenantRepo := repository.NewTenantRepository(db)
	userRepo := repository.NewUserRepository(db)
	personRepo := repository.NewPersonRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	instanceRepo := repository.NewCourseInstanceRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)

	var sender mail.Sender = mail.NewLogSender(logr)
	if cfg.Mail.Provider == "sendgrid" {
		if cfg.Mail.APIKey == "" {
			return nil, errors.New("MAIL_PROVIDER=sendgrid requires SENDGRID_API_KEY")
		}
		sender = mail.NewSendGridSender(cfg.Mail.APIKey, cfg.Mail.FromName, cfg.Mail.FromAddress)
	}

	notificationQueue := jobs.NewQueue("notifications", jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		BufferSize: 256,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	notifications := service.NewNotificationService(notificationQueue, sender, personRepo, cfg.Mail.AppBaseURL, metricsSvc, logr)
	notificationQueue.Handle(service.JobTypeNotification, notifications.Handle)
	notificationQueue.SetOnDrop(notifications.OnDrop)

	files, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("certificate storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Certificates.SignedURLSecret, cfg.Certificates.SignedURLTTL)

	certificateQueue := jobs.NewQueue("certificates", jobs.QueueConfig{
		Workers:    cfg.Certificates.WorkerConcurrency,
		BufferSize: 128,
		MaxRetries: cfg.Certificates.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	certificates := service.NewCertificateService(
		certificateRepo,
		enrollmentRepo,
		export.NewCertificateRenderer(),
		files,
		signer,
		certificateQueue,
		notifications,
		cacheSvc,
		metricsSvc,
		validate,
		logr,
		service.CertificateOptions{
			DownloadURL:    cfg.PublicURL + cfg.APIPrefix + "/certificates/download",
			VerifyCacheTTL: cfg.Certificates.VerifyCacheTTL,
		},
	)
	certificateQueue.Handle(service.JobTypeCertificateRender, certificates.HandleRender)
	certificateQueue.SetOnDrop(certificates.OnRenderDrop)

	enrollments := service.NewEnrollmentService(enrollmentRepo, personRepo, notifications, metricsSvc, validate, logr, cfg.Enrollment.DefaultCapacity)
	instances := service.NewCourseInstanceService(instanceRepo, courseRepo, personRepo, validate, logr, cfg.Enrollment.DefaultCapacity)
	instances.SetWaitlistProcessor(enrollments)

	auth := service.NewAuthService(userRepo, notifications, validate, logr, service.AuthConfig{
		Secret:              cfg.JWT.Secret,
		AccessTokenExpiry:   cfg.JWT.Expiration,
		ResetTokenExpiry:    cfg.JWT.PasswordResetExpiration,
		Issuer:              cfg.JWT.Issuer,
		DefaultRegisterRole: models.RoleStudent,
	})

	return &application{
		tenants:           service.NewTenantService(tenantRepo, cacheSvc, cfg.Tenant.CacheTTL, logr),
		auth:              auth,
		persons:           service.NewPersonService(personRepo, validate, logr),
		groups:            service.NewGroupService(groupRepo, personRepo, validate, logr),
		memberships:       service.NewMembershipService(membershipRepo, personRepo, validate, logr),
		courses:           service.NewCourseService(courseRepo, validate, logr),
		instances:         instances,
		enrollments:       enrollments,
		grades:            service.NewGradeService(gradeRepo, enrollmentRepo, validate, logr),
		schedules:         service.NewScheduleService(scheduleRepo, instanceRepo, validate, logr),
		attendance:        service.NewAttendanceService(attendanceRepo, enrollmentRepo, scheduleRepo, validate, logr),
		certificates:      certificates,
		exports:           service.NewExportService(instanceRepo, gradeRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr),
		notificationQueue: notificationQueue,
		certificateQueue:  certificateQueue,
	}, nil
}
