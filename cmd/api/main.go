package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/caosaude/solicitacoes/internal/api/http"
	"github.com/caosaude/solicitacoes/internal/api/http/handlers"
	"github.com/caosaude/solicitacoes/internal/auth"
	"github.com/caosaude/solicitacoes/internal/config"
	"github.com/caosaude/solicitacoes/internal/domain"
	"github.com/caosaude/solicitacoes/internal/events"
	"github.com/caosaude/solicitacoes/internal/export"
	"github.com/caosaude/solicitacoes/internal/observability"
	"github.com/caosaude/solicitacoes/internal/persistence"
	"github.com/caosaude/solicitacoes/internal/repository"
	"github.com/caosaude/solicitacoes/internal/service"
	"github.com/caosaude/solicitacoes/internal/storage"
	"github.com/caosaude/solicitacoes/internal/worker"
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
	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	blobs, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		logger.Fatal("failed to prepare attachment storage", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	validate := validator.New()

	ticketRepo := repository.NewTicketRepository(pool)
	timelineRepo := repository.NewTimelineRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)

	var policy domain.TransitionPolicy = domain.PermissivePolicy{}
	if cfg.Tickets.StrictWorkflow {
		policy = domain.StrictPolicy{}
	}

	queueService := service.NewQueueService(service.QueueDependencies{
		TicketRepo: ticketRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		TimelineRepo: timelineRepo,
		Blobs:        blobs,
		Queue:        queueService,
		Dispatcher:   dispatcher,
		Policy:       policy,
		Validator:    validate,
		Logger:       logger,
	})
	attachmentService := service.NewAttachmentService(service.AttachmentDependencies{
		Tickets:        ticketService,
		AttachmentRepo: attachmentRepo,
		Blobs:          blobs,
		Dispatcher:     dispatcher,
		Logger:         logger,
		MaxBytes:       cfg.Storage.MaxAttachmentBytes,
	})
	reportService := service.NewReportService(service.ReportDependencies{
		TicketRepo: ticketRepo,
		Lister:     ticketService,
		Redis:      redis.Client,
		Exporter:   export.NewExporter(),
		Metrics:    metrics,
		Logger:     logger,
		CacheTTL:   cfg.Reports.CacheTTL(),
		TopN:       cfg.Reports.TopSubjects,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		ProfileRepo: profileRepo,
		Validator:   validate,
		Logger:      logger,
	})
	if err := authService.EnsureBootstrapAdmin(ctx, cfg.Bootstrap); err != nil {
		logger.Fatal("failed to bootstrap manager account", zap.Error(err))
	}

	notificationService := service.NewNotificationService(dispatcher, redis.Client, reportService, logger, cfg.Changefeed)
	worker.StartNotificationWorker(notificationService)

	queueWorker, err := worker.NewQueueWorker(queueService, cfg.Queue.RecomputeSchedule, logger)
	if err != nil {
		logger.Fatal("failed to configure queue worker", zap.Error(err))
	}
	go func() {
		if err := queueWorker.Run(ctx); err != nil {
			logger.Error("queue worker stopped", zap.Error(err))
		}
	}()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), profileRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    int(cfg.Storage.MaxAttachmentBytes) + 1<<20,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Attachments:    handlers.NewAttachmentsHandler(attachmentService),
		Queue:          handlers.NewQueueHandler(queueService),
		Reports:        handlers.NewReportsHandler(reportService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics.Handler(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	queueWorker.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
