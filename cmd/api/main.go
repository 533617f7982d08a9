package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/support-hub/internal/api/http"
	"github.com/spec-kit/support-hub/internal/api/http/handlers"
	"github.com/spec-kit/support-hub/internal/api/ws"
	"github.com/spec-kit/support-hub/internal/auth"
	"github.com/spec-kit/support-hub/internal/config"
	"github.com/spec-kit/support-hub/internal/events"
	"github.com/spec-kit/support-hub/internal/hub"
	"github.com/spec-kit/support-hub/internal/observability"
	"github.com/spec-kit/support-hub/internal/persistence"
	"github.com/spec-kit/support-hub/internal/presence"
	"github.com/spec-kit/support-hub/internal/repository"
	"github.com/spec-kit/support-hub/internal/repository/memory"
	"github.com/spec-kit/support-hub/internal/rules"
	"github.com/spec-kit/support-hub/internal/service"
	"github.com/spec-kit/support-hub/internal/validation"
	"github.com/spec-kit/support-hub/internal/worker"
)

const shutdownTimeout = 10 * time.Second

type repositories struct {
	tickets  repository.TicketRepository
	history  repository.TicketHistoryRepository
	tx       repository.TicketTransactor
	agents   repository.AgentRepository
	sessions repository.SessionRepository
	messages repository.MessageRepository
}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	repos := newRepositories(pg, logger)
	metrics := observability.NewMetrics()

	registry := presence.NewRegistry()
	realtime := hub.New(registry, logger.Named("hub"), metrics, cfg.Hub)
	dispatcher := events.NewInMemoryDispatcher(logger.Named("events"), metrics)

	var relay *worker.NotificationRelay
	var notifyRelay service.NotificationRelay
	if cfg.Notification.RelayEnabled {
		relay = worker.NewNotificationRelay(redis.Client, cfg.Notification.RelayChannel, realtime, logger.Named("relay"))
		notifyRelay = relay
	}
	g, gctx := errgroup.WithContext(ctx)
	worker.StartNotificationWorker(gctx, g, service.NewNotificationService(dispatcher, realtime, notifyRelay, logger), relay)

	validators := validation.NewSet(repos.agents, cfg.Query)
	engine := rules.NewEngine(cfg.SLA)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	agentService := service.NewAgentService(cfg.Presence, service.AgentDependencies{
		AgentRepo: repos.agents,
		Tokens:    tokens,
		Passwords: auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Presence:  registry,
		Logger:    logger,
	})
	if seed := cfg.Auth.SeedAgent; seed.Enabled() {
		if _, err := agentService.EnsureAgent(ctx, seed.Name, seed.Email, seed.Password); err != nil {
			logger.Fatal("failed to seed agent", zap.Error(err))
		}
	}
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		HistoryRepo: repos.history,
		Transactor:  repos.tx,
		AgentRepo:   repos.agents,
		Validators:  validators,
		Engine:      engine,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	sessionService := service.NewSessionService(service.SessionDependencies{
		SessionRepo: repos.sessions,
		MessageRepo: repos.messages,
		Validators:  validators,
		Broadcaster: realtime,
		Logger:      logger,
	})

	hubTransport := ws.NewHandler(realtime, agentService, logger.Named("ws"), ws.Config{
		WriteTimeout: cfg.Hub.WriteTimeout(),
		Heartbeat:    cfg.Presence.OnlineThreshold() / 2,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	deps := []handlers.Dependency{{Name: "redis", Pinger: redis}}
	if pg.Enabled() {
		deps = append(deps, handlers.Dependency{Name: "postgres", Pinger: pg})
	}
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps...),
		Agents:         handlers.NewAgentsHandler(agentService),
		Tickets:        handlers.NewTicketsHandler(ticketService, cfg.Query.DefaultPageSize),
		Sessions:       handlers.NewSessionsHandler(sessionService),
		Hub:            hubTransport.Upgrade(),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewIdentityResolver(tokens, repos.agents)),
	})

	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped with error", zap.Error(err))
	}
}

func newRepositories(pg *persistence.Postgres, logger *zap.Logger) repositories {
	if !pg.Enabled() {
		logger.Warn("using in-memory repositories; data is lost on restart")
		store := memory.New()
		return repositories{
			tickets:  store.Tickets(),
			history:  store.TicketHistory(),
			tx:       store.Transactor(),
			agents:   store.Agents(),
			sessions: store.Sessions(),
			messages: store.Messages(),
		}
	}
	pool := pg.PoolHandle()
	return repositories{
		tickets:  repository.NewTicketRepository(pool),
		history:  repository.NewTicketHistoryRepository(pool),
		tx:       repository.NewTicketTransactor(pool),
		agents:   repository.NewAgentRepository(pool),
		sessions: repository.NewSessionRepository(pool),
		messages: repository.NewMessageRepository(pool),
	}
}
