package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"vitalstream/internal/auth"
	"vitalstream/internal/classifier"
	"vitalstream/internal/config"
	"vitalstream/internal/consumer"
	"vitalstream/internal/dispatcher"
	"vitalstream/internal/fhir"
	httpapi "vitalstream/internal/http"
	"vitalstream/internal/hub"
	"vitalstream/internal/notifier"
	"vitalstream/internal/repository"
	"vitalstream/internal/service"
	"vitalstream/internal/sink"
	"vitalstream/internal/store"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg)
	defer logger.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Redis 是可选依赖：不可达时禁用缓存/流发布，核心管线照常工作
	var cache *store.LatestVitalsCache
	var streamClient *redis.Client
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, snapshot cache and stream publishing disabled", zap.Error(err))
	} else {
		cache = store.NewLatestVitalsCache(store.NewRedisKV(redisClient))
		streamClient = redisClient
	}
	pingCancel()

	// 仓储：DB 就绪用 Postgres，否则退化为内存 repo 支持本地联测
	var (
		db           *sql.DB
		devicesRepo  repository.DevicesRepo
		usersRepo    repository.UsersRepo
		readingsRepo repository.ReadingsRepo
		obsRepo      repository.ObservationsRepo
	)
	if cfg.DBEnabled {
		if d, err := sql.Open("postgres", cfg.DSN()); err == nil && d.Ping() == nil {
			d.SetMaxOpenConns(cfg.Database.MaxConns)
			d.SetMaxIdleConns(cfg.Database.MaxIdle)
			db = d
			logger.Info("DB enabled for vitalstream")
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}
	if db != nil {
		devicesRepo = repository.NewPostgresDevicesRepo(db)
		usersRepo = repository.NewPostgresUsersRepo(db)
		readingsRepo = repository.NewPostgresReadingsRepo(db)
		obsRepo = repository.NewPostgresObservationsRepo(db)
	} else {
		memDevices := repository.NewMemoryDevicesRepo()
		memUsers := repository.NewMemoryUsersRepo()
		// Dev seed: one device + one clinician account so the pipeline is
		// exercisable out of the box (override via env, disable in prod).
		if os.Getenv("SEED_DEV_FIXTURES") != "false" {
			memDevices.UpsertDevice(
				getenv("SEED_DEVICE_ID", "dev-device-001"),
				getenv("SEED_DEVICE_SECRET", "dev-device-secret"),
				true,
			)
			memUsers.UpsertUser(
				getenv("SEED_USER_ACCOUNT", "clinician"),
				getenv("SEED_USER_PASSWORD", "ChangeMe123!"),
				"Clinician",
			)
		}
		devicesRepo = memDevices
		usersRepo = memUsers
		readingsRepo = repository.NewMemoryReadingsRepo()
		obsRepo = repository.NewMemoryObservationsRepo()
	}

	sessions := auth.NewSessionAuthority(
		cfg.Session.Secret,
		time.Duration(cfg.Session.TTLHours)*time.Hour,
		logger,
	)
	verifier := auth.NewDeviceVerifier(devicesRepo, cfg.Device.ReplayWindowSeconds, logger)

	var alerts notifier.AlertNotifier = notifier.NopNotifier{}
	if cfg.Notifier.WebhookURL != "" {
		alerts = notifier.NewWebhookNotifier(
			cfg.Notifier.WebhookURL,
			time.Duration(cfg.Notifier.TimeoutSeconds)*time.Second,
			logger,
		)
	}

	fhirBuilder := fhir.NewBuilder(getenv("FHIR_SUBJECT_REFERENCE", ""))
	persistence := sink.New(
		readingsRepo, obsRepo, fhirBuilder,
		streamClient, cfg.Redis.Stream,
		cache, alerts,
		cfg.Sink.QueueCapacity, logger,
	)

	broadcastHub := hub.New(hub.Config{
		QueueCapacity:     cfg.Broadcast.QueueCapacity,
		HeartbeatInterval: time.Duration(cfg.Broadcast.HeartbeatSeconds) * time.Second,
		EvictionThreshold: cfg.Broadcast.EvictionThreshold,
	}, sessions, logger)

	disp := dispatcher.New(verifier, broadcastHub, persistence, dispatcher.Config{
		Thresholds: classifier.Thresholds{
			CriticalHRLow:  cfg.Classifier.CriticalHRLow,
			CriticalHRHigh: cfg.Classifier.CriticalHRHigh,
			CriticalSpO2:   cfg.Classifier.CriticalSpO2,
		},
		AlertThreshold: cfg.Classifier.AlertThreshold,
		WindowSize:     cfg.Classifier.WindowSize,
	}, logger)

	router := httpapi.NewRouter(logger)
	router.RegisterIngestRoutes(httpapi.NewIngestHandler(disp, logger))
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(usersRepo, sessions, logger))
	router.RegisterStreamRoutes(
		httpapi.NewStreamHandler(broadcastHub, logger),
		httpapi.NewWSHandler(broadcastHub, logger),
	)
	router.RegisterVitalsRoutes(httpapi.NewVitalsHandler(sessions, cache, readingsRepo, fhirBuilder, logger))
	router.RegisterOpsRoutes()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go broadcastHub.Run(ctx)
	go persistence.Run(ctx)

	var mqttConsumer *consumer.MQTTConsumer
	if cfg.MQTT.Enabled {
		mc, err := consumer.NewMQTTConsumer(consumer.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
		}, disp, logger)
		if err != nil {
			logger.Warn("MQTT consumer unavailable, HTTP ingest only", zap.Error(err))
		} else if err := mc.Start(ctx); err != nil {
			logger.Warn("MQTT subscribe failed, HTTP ingest only", zap.Error(err))
			mc.Stop()
		} else {
			mqttConsumer = mc
		}
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttConsumer != nil {
		mqttConsumer.Stop()
	}
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var zcfg zap.Config
	if cfg.Log.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(cfg.Log.Level); err == nil {
		zcfg.Level = lvl
	}
	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
