package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/auth"
	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/connect"
	"github.com/MrSnakeDoc/marks/internal/httpserver"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/migrate"
	"github.com/MrSnakeDoc/marks/internal/realtime"
	"github.com/MrSnakeDoc/marks/internal/redis"
	"github.com/MrSnakeDoc/marks/internal/scheduler"
	"github.com/MrSnakeDoc/marks/internal/sources/providers"
	"github.com/MrSnakeDoc/marks/internal/store/postgres"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
	"github.com/MrSnakeDoc/marks/internal/ui"
	"github.com/MrSnakeDoc/marks/internal/utils"
	"github.com/MrSnakeDoc/marks/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	db          *postgres.DB
	broker      *realtime.Broker
	refresher   *scheduler.SessionRefresher
	gc          *scheduler.GarbageCollector
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	ctx := context.Background()

	// Initialize Redis early - fail fast if unavailable
	redisClient, err := redis.New(ctx, redis.ConnectOptions{
		Addr:         cfg.RedisAddr,
		User:         cfg.RedisUser,
		Password:     cfg.RedisPassword,
		RedisDB:      cfg.RedisDB,
		DialTimeout:  cfg.RedisDT,
		ReadTimeout:  cfg.RedisRT,
		WriteTimeout: cfg.RedisWT,
		PoolSize:     cfg.RedisPoolSize,
		Retry: connect.RetryOptions{
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		},
	}, loggerClient)
	if err != nil {
		loggerClient.Fatal("failed to connect to Redis", logger.Error(err))
	}

	// PostgreSQL holds the bookmarks; same fail-fast policy
	db, err := postgres.New(ctx, cfg.DatabaseURL, connect.RetryOptions{
		ConnectTimeout: cfg.DBConnectTimeout,
		RetryInterval:  cfg.DBRetryInterval,
		MaxWait:        cfg.DBMaxWait,
		PingTimeout:    cfg.DBPingTimeout,
		WarnThreshold:  cfg.DBWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Fatal("failed to connect to PostgreSQL", logger.Error(err))
	}

	if cfg.MigrateOnStartup {
		if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
			loggerClient.Fatal("failed to apply migrations", logger.Error(err))
		}
		loggerClient.Info("database migrations applied")
	}

	// Provider catalogue
	catalogue, err := providers.NewLoader(cfg.ProvidersFile).Load()
	if err != nil {
		loggerClient.Fatal("failed to load providers", logger.Error(err))
	}
	catalogue = catalogue.WithCredentials(cfg.OAuthClientID, cfg.OAuthClientSecret)
	provider, ok := catalogue.Get(cfg.OAuthProvider)
	if !ok {
		loggerClient.Fatal("OAuth provider not in catalogue",
			logger.String("provider", cfg.OAuthProvider),
			logger.Strings("available", catalogue.Names()))
	}

	store := redisstore.NewStore(redisClient)
	broker := realtime.NewBroker(redisClient, loggerClient)
	feed := realtime.NewService(broker, loggerClient)

	identity := auth.NewService(store, broker, catalogue, auth.Options{
		RedirectURL: cfg.RedirectURL(),
		SessionTTL:  cfg.SessionTTL,
		StateTTL:    cfg.StateTTL,
	}, loggerClient)

	// Mutations are announced on the change feed after they commit
	data := realtime.NewNotifyingData(postgres.NewBookmarkRepo(db), ui.BookmarksTable, feed, loggerClient)

	// Create manual refresh trigger channel
	refreshTrigger := make(chan struct{}, 1)

	refresher := scheduler.NewSessionRefresher(
		store,
		identity,
		loggerClient,
		cfg.RefreshInterval,
		cfg.RefreshWindow,
		refreshTrigger,
	)

	gc := scheduler.NewGarbageCollector(
		store,
		loggerClient,
		cfg.GCInterval,
	)

	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		RequestTimeout: cfg.RequestTimeout,
		CookieName:     cfg.CookieName,
		CookieSecure:   cfg.CookieSecure,
		Provider:       cfg.OAuthProvider,
		ProviderLabel:  provider.Label,
		Heartbeat:      cfg.Heartbeat,
		RateLimit: mw.RateLimitConfig{
			Burst:        cfg.RateBurst,
			RefillPerMin: cfg.RateRefillPerMin,
			MaxEntries:   10000,
			TrustProxy:   cfg.TrustProxy,
		},
		Identity:       identity,
		SignIn:         identity,
		Data:           data,
		Realtime:       feed,
		Channels:       broker,
		Sessions:       store,
		Redis:          store,
		Database:       db,
		RefreshTrigger: refreshTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		db:          db,
		broker:      broker,
		refresher:   refresher,
		gc:          gc,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting marks v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("marks %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start session refresher (refreshes due tokens now, then periodically)
	if err := a.refresher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session refresher: %w", err)
	}
	a.logger.Info("session refresher started",
		logger.Duration("interval", a.cfg.RefreshInterval))

	// Start garbage collector
	if err := a.gc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start garbage collector: %w", err)
	}
	a.logger.Info("garbage collector started",
		logger.Duration("interval", a.cfg.GCInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.refresher.Stop()
	a.gc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		a.logger.Warn("server did not stop cleanly", logger.Error(err))
	}

	// Release pub/sub connections before closing the client
	utils.MustClose(a.broker, "realtime broker", a.logger)

	if a.redisClient != nil && utils.MustClose(a.redisClient, "redis", a.logger) {
		a.logger.Info("✅ Redis closed cleanly")
	}

	a.db.Close()
	a.logger.Info("✅ PostgreSQL pool closed")

	a.logger.Info("✅ marks stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
