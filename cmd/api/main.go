package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/bug-tracker/internal/api/http"
	"github.com/spec-kit/bug-tracker/internal/api/http/handlers"
	"github.com/spec-kit/bug-tracker/internal/audit"
	"github.com/spec-kit/bug-tracker/internal/auth"
	"github.com/spec-kit/bug-tracker/internal/cache"
	"github.com/spec-kit/bug-tracker/internal/config"
	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/events"
	"github.com/spec-kit/bug-tracker/internal/observability"
	"github.com/spec-kit/bug-tracker/internal/persistence"
	"github.com/spec-kit/bug-tracker/internal/repository"
	"github.com/spec-kit/bug-tracker/internal/repository/memory"
	"github.com/spec-kit/bug-tracker/internal/service"
	"github.com/spec-kit/bug-tracker/internal/worker"
	"github.com/spec-kit/bug-tracker/internal/workflow"
)

type stores struct {
	users    repository.UserRepository
	trackers repository.TrackerRepository
	items    repository.ItemRepository
	audit    repository.AuditRepository
	comments repository.CommentRepository
}

func main() {
	envFiles := pflag.StringSlice("env-file", nil, "dotenv file to load (repeatable)")
	migrateOnly := pflag.Bool("migrate-only", false, "apply migrations and exit")
	pflag.Parse()

	cfg, err := config.Load(*envFiles...)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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

	if pg.Pool != nil && (cfg.Postgres.RunMigrations || *migrateOnly) {
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	if *migrateOnly {
		return
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	st := openStores(pg, logger)
	userCache := cache.NewUserCache(st.users, redis.Client, cfg.Cache.UserTTL(), logger)
	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher(logger)
	notifier := worker.NewNotificationWorker(service.NewNotificationService(logger, cfg.Notification), 256, logger)
	notifier.Register(dispatcher)
	notifier.Start(ctx)

	guards := workflow.DefaultRegistry()
	itemService := service.NewItemService(service.ItemDependencies{
		ItemRepo:    st.items,
		TrackerRepo: st.trackers,
		Users:       userCache,
		Engine:      workflow.NewEngine(guards, logger),
		Undo:        workflow.NewUndoCoordinator(guards, st.audit, cfg.Workflow.UndoOffset, logger),
		History:     audit.NewLog(st.audit, userCache, cfg.Workflow.StrictReferences, logger),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		CommentRepo: st.comments,
		ItemRepo:    st.items,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:  st.users,
		UserCache: userCache,
		Logger:    logger,
	})

	dependencies := map[string]handlers.Pinger{}
	if pg.Pool != nil {
		dependencies["postgres"] = pg
	}
	if redis.Enabled() {
		dependencies["redis"] = redis
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, dependencies),
		Users:          handlers.NewUsersHandler(authService),
		Items:          handlers.NewItemsHandler(itemService),
		Comments:       handlers.NewCommentsHandler(commentService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userCache),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	notifier.Wait()
}

// openStores picks Postgres-backed repositories, or in-memory ones with a seeded tracker when no
// DSN is configured.
func openStores(pg *persistence.Postgres, logger *zap.Logger) stores {
	if pg.Pool != nil {
		auditRepo := repository.NewAuditRepository(pg.Pool)
		return stores{
			users:    repository.NewUserRepository(pg.Pool),
			trackers: repository.NewTrackerRepository(pg.Pool),
			items:    repository.NewItemRepository(pg.Pool, auditRepo),
			audit:    auditRepo,
			comments: repository.NewCommentRepository(pg.Pool),
		}
	}

	trackers := memory.NewTrackerRepository()
	tracker := trackers.Add(domain.Tracker{Title: "Default", IsActive: true})
	logger.Warn("POSTGRES_DSN not set, using in-memory storage", zap.String("tracker_id", tracker.ID))

	auditRepo := memory.NewAuditRepository()
	return stores{
		users:    memory.NewUserRepository(),
		trackers: trackers,
		items:    memory.NewItemRepository(auditRepo),
		audit:    auditRepo,
		comments: memory.NewCommentRepository(),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
