package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/workitem-gateway/internal/api/http"
	"github.com/spec-kit/workitem-gateway/internal/api/http/handlers"
	"github.com/spec-kit/workitem-gateway/internal/azure"
	"github.com/spec-kit/workitem-gateway/internal/config"
	"github.com/spec-kit/workitem-gateway/internal/events"
	"github.com/spec-kit/workitem-gateway/internal/observability"
	"github.com/spec-kit/workitem-gateway/internal/service"
	"github.com/spec-kit/workitem-gateway/internal/worker"
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

	metrics := observability.NewMetrics()
	store := azure.NewClient(cfg.Azure, logger, metrics)
	dispatcher := events.NewInMemoryDispatcher(logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	reversalService := service.NewReversalService(service.ReversalDependencies{
		Tickets: ticketService,
		Store:   store,
		Logger:  logger,
	})
	teamService := service.NewTeamService(service.TeamDependencies{
		Store:   store,
		Tickets: ticketService,
		Project: cfg.Azure.Project,
		Logger:  logger,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Upload.MaxFileSize) * (cfg.Upload.MaxFiles + 1),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, store),
		Tickets:   handlers.NewTicketsHandler(ticketService, cfg.Upload),
		Reversals: handlers.NewReversalsHandler(reversalService, cfg.Upload),
		Teams:     handlers.NewTeamsHandler(teamService),
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
