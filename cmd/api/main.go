package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"rollbook/internal/account"
	"rollbook/internal/api"
	"rollbook/internal/attendance"
	"rollbook/internal/auth"
	"rollbook/internal/config"
	"rollbook/internal/logging"
	"rollbook/internal/queue"
	"rollbook/internal/store"
	"rollbook/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}

// backend is the selected persistence for students, records and teachers.
type backend struct {
	records  attendance.Store
	teachers account.Repository
	ping     api.Check
	close    func()
}

func openBackend(ctx context.Context, cfg config.App, log zerolog.Logger) (*backend, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &backend{
			records:  attendance.NewRepository(db.Client),
			teachers: account.NewPostgresRepository(db.Client),
			ping:     db.Client.PingContext,
			close:    func() { _ = db.Close() },
		}, nil

	case config.BackendMongo:
		m, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		records := attendance.NewMongoStore(m.Database)
		teachers := account.NewMongoRepository(m.Database)
		if err := records.EnsureIndexes(ctx); err != nil {
			_ = m.Close(context.Background())
			return nil, err
		}
		if err := teachers.EnsureIndexes(ctx); err != nil {
			_ = m.Close(context.Background())
			return nil, err
		}
		return &backend{
			records:  records,
			teachers: teachers,
			ping:     records.Ping,
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = m.Close(closeCtx)
			},
		}, nil
	}

	log.Warn().Msg("using in-memory store; data is lost on restart")
	records := attendance.NewMemoryStore()
	return &backend{
		records:  records,
		teachers: account.NewMemoryRepository(),
		ping:     records.Ping,
		close:    func() {},
	}, nil
}

func run(cfg config.App, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return errors.Wrapf(err, "open %s store", cfg.StoreBackend)
	}
	defer be.close()

	checks := map[string]api.Check{"store": be.ping}

	var redisClient *store.Redis
	if cfg.CacheEnabled || cfg.QueueBackend == config.BackendRedis {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error {
			if !redisClient.Healthy(ctx) {
				return errors.New("redis unreachable")
			}
			return nil
		}
	}

	opts := []attendance.Option{
		attendance.WithLogger(logger),
		attendance.WithClock(func() time.Time { return time.Now().In(loc) }),
	}

	var cache attendance.SummaryCache
	if cfg.CacheEnabled {
		cache = attendance.NewRedisSummaryCache(redisClient.Client, cfg.SummaryCacheTTL)
		opts = append(opts, attendance.WithCache(cache))
	}

	switch {
	case cfg.QueueBackend == config.BackendRedis:
		opts = append(opts, attendance.WithEvents(queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)))
	case cache != nil:
		// No separate worker process can see an in-memory queue.
		q := queue.NewInMemory(256)
		opts = append(opts, attendance.WithEvents(q))
		go func() {
			if err := worker.NewInvalidator(q, cache, logger).Run(ctx); err != nil {
				logger.Error().Err(err).Msg("in-process invalidator stopped")
			}
		}()
	}

	router := api.NewRouter(api.Deps{
		Attendance:      attendance.NewService(be.records, opts...),
		Accounts:        account.NewService(be.teachers),
		Tokens:          auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL),
		Institution:     cfg.InstitutionName,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Checks:          checks,
		Logger:          logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("store", cfg.StoreBackend).Str("queue", cfg.QueueBackend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced shutdown")
	}

	logger.Info().Msg("server exited")
	return nil
}
