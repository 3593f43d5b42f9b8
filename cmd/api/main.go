package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/complaint-portal/internal/api/http"
	"github.com/spec-kit/complaint-portal/internal/api/http/handlers"
	"github.com/spec-kit/complaint-portal/internal/auth"
	"github.com/spec-kit/complaint-portal/internal/clock"
	"github.com/spec-kit/complaint-portal/internal/config"
	"github.com/spec-kit/complaint-portal/internal/events"
	"github.com/spec-kit/complaint-portal/internal/notify"
	"github.com/spec-kit/complaint-portal/internal/observability"
	"github.com/spec-kit/complaint-portal/internal/persistence"
	"github.com/spec-kit/complaint-portal/internal/repository"
	"github.com/spec-kit/complaint-portal/internal/service"
	"github.com/spec-kit/complaint-portal/internal/storage"
	"github.com/spec-kit/complaint-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	files, err := storage.NewFileStore(cfg.Storage.UploadDir)
	if err != nil {
		logger.Fatal("failed to init file store", zap.Error(err))
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	complaintRepo := repository.NewComplaintRepository(pool)
	statusUpdateRepo := repository.NewStatusUpdateRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	personalNoteRepo := repository.NewPersonalNoteRepository(pool)
	employeeRequestRepo := repository.NewEmployeeRequestRepository(pool)

	clk := clock.System()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		ComplaintRepo: complaintRepo,
		UserRepo:      userRepo,
		Dispatcher:    dispatcher,
		Clock:         clk,
		Window:        cfg.Escalation.Window(),
	})
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo:    complaintRepo,
		StatusUpdateRepo: statusUpdateRepo,
		AttachmentRepo:   attachmentRepo,
		UserRepo:         userRepo,
		Dispatcher:       dispatcher,
		Clock:            clk,
		Window:           cfg.Escalation.Window(),
	})
	adminService := service.NewAdminService(lifecycleService)
	reportService := service.NewReportService(complaintRepo, clk)
	authService := service.NewAuthService(cfg.Auth, userRepo)
	personalNoteService := service.NewPersonalNoteService(service.PersonalNoteDependencies{
		NoteRepo:   personalNoteRepo,
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Clock:      clk,
	})
	employeeRequestService := service.NewEmployeeRequestService(employeeRequestRepo, clk)

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:  dispatcher,
		UserRepo:    userRepo,
		Mailer:      notify.NewSMTPMailer(cfg.Notification),
		Broadcaster: notify.NewRealtimeBroadcaster(redis.Client, cfg.Notification, logger),
		Logger:      logger,
		Config:      cfg.Notification,
	})
	notificationService.RegisterHandlers()

	sweeper := worker.NewEscalationSweeper(worker.SweeperDependencies{
		ComplaintRepo:  complaintRepo,
		UserRepo:       userRepo,
		Dispatcher:     dispatcher,
		Logger:         logger,
		Metrics:        metrics,
		Clock:          clk,
		Window:         cfg.Escalation.Window(),
		Interval:       cfg.Escalation.SweepInterval(),
		AuthorityEmail: cfg.Escalation.AuthorityEmail,
	})
	sweeper.Start()
	defer sweeper.Stop()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:           handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:            handlers.NewUsersHandler(authService),
		Complaints:       handlers.NewComplaintsHandler(complaintService, files),
		Admin:            handlers.NewAdminHandler(complaintService, lifecycleService, adminService),
		Reports:          handlers.NewReportsHandler(reportService),
		PersonalNotes:    handlers.NewPersonalNotesHandler(personalNoteService),
		EmployeeRequests: handlers.NewEmployeeRequestsHandler(employeeRequestService),
		AuthMiddleware:   authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
