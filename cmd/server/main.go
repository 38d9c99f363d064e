package main

import (
	"context"   // context package is needed for Redis operations
	"errors"    // Error matching on shutdown
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"github.com/gin-gonic/gin"                       // Gin web framework
	"github.com/prometheus/client_golang/prometheus" // Metrics registry
	"github.com/redis/go-redis/v9"                   // Redis client
	"github.com/sirupsen/logrus"                     // Logrus for structured logging

	"mobcash_portal/internal/api"        // Custom package for API handlers
	"mobcash_portal/internal/backend"    // MobCash REST client
	"mobcash_portal/internal/betid"      // Bet-ID search flow
	"mobcash_portal/internal/bonus"      // Bonus deposits
	"mobcash_portal/internal/config"     // Custom package for configuration
	"mobcash_portal/internal/db"         // Database connection and journal
	"mobcash_portal/internal/domain"     // Domain models
	"mobcash_portal/internal/events"     // Kafka flow events
	"mobcash_portal/internal/listing"    // Cached list views
	"mobcash_portal/internal/metrics"    // Prometheus metrics
	"mobcash_portal/internal/middleware" // Custom package for middleware
	"mobcash_portal/internal/session"    // Portal sessions
	"mobcash_portal/internal/wizard"     // Deposit/withdrawal wizard
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine readable logs in production
	}
	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET is required")
	}

	// Connect to the database
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	sealer, err := session.NewSealer(cfg.TokenSealKey) // Backend tokens are sealed at rest
	if err != nil {
		logrus.Fatalf("invalid TOKEN_SEAL_KEY: %v", err)
	}

	client := backend.New(cfg.BackendURL, cfg.BackendTimeout) // MobCash backend client

	// Flow outcome observers
	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)
	journal := db.NewJournal(gdb)
	observers := []wizard.Observer{recorder, journal}
	var publisher *events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewPublisher(events.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopicWizard))
		observers = append(observers, publisher)
	}

	// Stores and flows
	wizards := wizard.NewRedisStore(redisClient, cfg.WizardTTL)
	guard := wizard.NewRedisGuard(redisClient, cfg.SubmitLockTTL)
	engine := wizard.NewEngine(client, guard, wizards, wizard.Options{
		ConfirmSummary:   cfg.ConfirmSummary,
		USSDFeeDeduction: cfg.USSDFeeDeduction,
		SourceTag:        cfg.SourceTag,
	}, observers...)
	betIDs := betid.NewFlow(client, betid.NewRedisPending(redisClient, cfg.WizardTTL))
	bonuses := bonus.NewService(client, guard, observers...)
	lists := listing.New(client, redisClient, cfg.ListCacheTTL)
	settings := session.NewSettingsCache(client, redisClient, cfg.SettingsTTL)

	// Logout clears everything the session owns
	sessionStore := session.NewGormStore(gdb)
	sessions := session.NewManager(client, session.NewCachedStore(sessionStore, redisClient, cfg.SessionTTL), sealer, cfg.JWTSecret, cfg.SessionTTL,
		func(ctx context.Context, sid string) error {
			return errors.Join(
				wizards.Delete(ctx, sid, domain.TypeDeposit),
				wizards.Delete(ctx, sid, domain.TypeWithdrawal),
			)
		},
		betIDs.Abandon,
		lists.Invalidate,
	)

	deps := &api.Deps{
		Backend:  client,
		Sessions: sessions,
		Settings: settings,
		Lists:    lists,
		Wizards:  wizards,
		Engine:   engine,
		BetIDs:   betIDs,
		Bonus:    bonuses,
		Journal:  journal,
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}
	r.Use(middleware.RequestID(), recorder.Middleware())
	api.Routes(r, deps, cfg.JWTSecret, sessions)

	// Metrics and health on their own port
	metricsSrv := metrics.StartServer(cfg.MetricsPort, reg, func(ctx context.Context) error {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go janitor(ctx, sessionStore, journal, cfg.JournalRetention)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("server shutdown")
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("metrics shutdown")
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logrus.WithError(err).Warn("kafka writer close")
		}
	}
	if err := redisClient.Close(); err != nil {
		logrus.WithError(err).Warn("redis close")
	}
}

// janitor purges expired sessions and old journal rows once an hour
func janitor(ctx context.Context, sessions *session.GormStore, journal *db.Journal, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n, err := sessions.PurgeExpired(ctx, now); err != nil {
				logrus.WithError(err).Warn("session purge failed")
			} else if n > 0 {
				logrus.WithField("count", n).Info("expired sessions purged")
			}
			if n, err := journal.Purge(ctx, retention); err != nil {
				logrus.WithError(err).Warn("journal purge failed")
			} else if n > 0 {
				logrus.WithField("count", n).Info("old submissions purged")
			}
		}
	}
}
