package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"bhandaraboard/internal/config"
	"bhandaraboard/internal/database"
	"bhandaraboard/internal/handler"
	"bhandaraboard/internal/queue"
	"bhandaraboard/internal/realtime"
	"bhandaraboard/internal/redis"
	"bhandaraboard/internal/repository"
	"bhandaraboard/internal/service"
	"bhandaraboard/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// Run wires every layer together and serves until SIGINT/SIGTERM.
func Run() error {
	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Connect to Postgres
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// 3. Connect to Redis
	rdb, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer rdb.Close()

	// 4. Repositories
	listingRepo := repository.NewListingRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	broadcastRepo := repository.NewBroadcastRepository(db)

	// 5. Queue and change feed
	publisher := queue.NewPublisher(rdb.Client)
	consumer := queue.NewConsumer(rdb.Client)
	feed := realtime.NewChangeFeed(rdb.Client)

	// 6. Services
	mediaService, err := service.NewMediaService(cfg)
	if err != nil {
		return fmt.Errorf("failed to create media service: %w", err)
	}
	listingService := service.NewListingService(listingRepo, mediaService, publisher, feed, cfg.AdminPassword)
	voteService := service.NewVoteService(voteRepo, listingRepo, publisher, feed)
	notificationService := service.NewNotificationService(
		subRepo, broadcastRepo, service.NewWebPushSender(cfg), cfg.VAPIDPublicKey)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 7. Realtime hub
	hub := realtime.NewHub(feed)
	go func() {
		if err := hub.Run(ctx); err != nil {
			log.Printf("[Server] Hub stopped: err=%v", err)
		}
	}()

	// 8. Notification workers
	workerCfg := worker.DefaultManagerConfig()
	workerCfg.WorkerCount = cfg.WorkerCount
	manager := worker.NewManager(consumer, worker.NewHandler(notificationService), workerCfg)
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer manager.Stop()

	// 9. HTTP server
	router := NewRouter(RouterConfig{
		ListingHandler:      handler.NewListingHandler(listingService, voteService),
		AdminHandler:        handler.NewAdminHandler(listingService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		EventsHandler:       handler.NewEventsHandler(hub, listingService),
		AuthSecret:          cfg.AuthSecret,
	})

	srv := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Printf("[Server] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Printf("[Server] Stopped")
	return nil
}
