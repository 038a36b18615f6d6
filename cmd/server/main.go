package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cluster-registration/config"
	"cluster-registration/internal/cache"
	"cluster-registration/internal/database"
	"cluster-registration/internal/handler"
	"cluster-registration/internal/notification"
	"cluster-registration/internal/queue"
	"cluster-registration/internal/repository"
	"cluster-registration/internal/service"
	"cluster-registration/internal/telemetry"
	"cluster-registration/internal/worker"
	"cluster-registration/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.L.Fatal("Failed to load config", zap.Error(err))
	}
	defer logger.Sync()

	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		logger.L.Warn("Invalid log level, keep info", zap.String("level", cfg.Log.Level), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		logger.L.Warn("Failed to initialize tracing", zap.Error(err))
	}

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		logger.L.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.MigrationURL()); err != nil {
			logger.L.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.L.Fatal("Failed to initialize redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	// 快取：沒有 Redis 時直接讀資料庫
	eventCache := cache.NewNoopEventCache()
	if rdb != nil && cfg.Cache.Enabled {
		eventCache = cache.NewRedisEventCache(rdb, cfg.Cache.EventTTL)
	}

	notificationQueue, err := newNotificationQueue(cfg, rdb)
	if err != nil {
		logger.L.Fatal("Failed to initialize notification queue", zap.Error(err))
	}

	sinks := []notification.Sink{notification.NewLogSink(logger.WithComponent("notification"))}
	if cfg.Notification.AMQPURL != "" {
		amqpSink, err := notification.NewAMQPSink(cfg.Notification.AMQPURL, cfg.Notification.AMQPExchange)
		if err != nil {
			logger.L.Fatal("Failed to initialize rabbitmq sink", zap.Error(err))
		}
		defer amqpSink.Close()
		sinks = append(sinks, amqpSink)
	}
	if cfg.Notification.WebhookURL != "" {
		sinks = append(sinks, notification.NewWebhookSink(cfg.Notification.WebhookURL, cfg.Notification.WebhookTimeout))
	}

	eventRepository := repository.NewEventRepository(pool)
	registrationRepository := repository.NewRegistrationRepository(pool)

	eventService := service.NewEventService(pool, eventRepository, eventCache)
	registrationService := service.NewRegistrationService(
		pool,
		eventRepository,
		registrationRepository,
		eventCache,
		notificationQueue,
		cfg.Notification.PublishTimeout,
	)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(handler.Recovery(logger.WithComponent("http")), handler.RequestLogger(logger.WithComponent("http")))

	checks := map[string]handler.Pinger{"postgres": pool}
	if rdb != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	handler.NewHealthHandler(checks).RegisterRoutes(router)
	handler.NewEventHandler(eventService).RegisterRoutes(router)
	handler.NewRegistrationHandler(registrationService).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	notificationWorker := worker.NewNotificationWorker(
		notification.NewMultiSink(sinks...),
		notificationQueue,
		cfg.Notification.WebhookTimeout*2,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := notificationWorker.Start(gctx); err != nil {
			return err
		}
		<-notificationWorker.Done()
		return nil
	})

	g.Go(func() error {
		logger.L.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.L.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		// 等待已提交報名的通知送進隊列
		registrationService.WaitNotifications()
		if shutdownTracing != nil {
			if terr := shutdownTracing(shutdownCtx); terr != nil {
				logger.L.Warn("Failed to flush traces", zap.Error(terr))
			}
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.L.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.L.Info("Server stopped")
}

func newNotificationQueue(cfg *config.Config, rdb *redis.Client) (queue.NotificationQueue, error) {
	if cfg.Notification.Queue == "redis" {
		hostname, _ := os.Hostname()
		return queue.NewRedisStreamNotificationQueue(rdb, hostname, &queue.RedisStreamQueueConfig{
			MaxRetryCount: cfg.Notification.MaxRetries,
		})
	}
	return queue.NewMemoryNotificationQueue(cfg.Notification.BufferSize, cfg.Notification.MaxRetries), nil
}
