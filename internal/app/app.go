package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizhall/quizhall/internal/config"
	"github.com/quizhall/quizhall/internal/content"
	"github.com/quizhall/quizhall/internal/db/repository"
	"github.com/quizhall/quizhall/internal/lifecycle"
	"github.com/quizhall/quizhall/internal/logging"
	"github.com/quizhall/quizhall/internal/result"
	"github.com/quizhall/quizhall/internal/server"
	"github.com/quizhall/quizhall/internal/session"
	ws "github.com/quizhall/quizhall/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	resultWriter *result.Writer
	bgCancels    []context.CancelFunc
	bgDone       chan struct{}
}

// New bootstraps config, logger, Postgres, Redis and the session coordinator.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	quizRepo := repository.NewQuizRepository(pool)
	resultRepo := repository.NewResultRepository(pool)

	loader := content.NewCachedLoader(content.NewStore(quizRepo), redisClient, cfg.Session.QuestionCacheTTL, logger)

	resultWriter := result.NewWriter(
		result.NewPostgresSink(resultRepo),
		cfg.Session.SinkQueueSize,
		cfg.Session.SinkWriteTimeout,
		logger,
	)

	notifier := lifecycle.NewNotifier(quizRepo, redisClient, cfg.Session.LifecycleChannel, logger)
	hub := ws.NewHub(logger)

	sessionSvc := session.NewService(session.NewRegistry(), loader, resultWriter, notifier, hub, logger)
	sessionHandler := session.NewHandler(sessionSvc, hub, server.NewUpgrader(cfg.CORS.AllowedOrigins), logger)
	sessionHTTP := session.NewHTTPHandler(sessionSvc, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, server.Handlers{
		SessionWS:     sessionHandler.HandleWebSocket,
		SessionGet:    sessionHTTP.HandleGet,
		SessionRemove: sessionHTTP.HandleRemove,
	})

	return &Application{
		cfg:          cfg,
		logger:       logger,
		pool:         pool,
		redis:        redisClient,
		http:         apiServer,
		resultWriter: resultWriter,
		bgCancels:    make([]context.CancelFunc, 0, 1),
		bgDone:       make(chan struct{}),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	// let the result writer flush its queue before the pool goes away
	select {
	case <-a.bgDone:
	case <-shutdownCtx.Done():
		a.logger.Warn().Msg("result writer did not drain in time")
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		defer close(a.bgDone)
		if err := a.resultWriter.Run(bgCtx); err != nil && err != context.Canceled {
			a.logger.Warn().Err(err).Msg("result writer stopped")
		}
	}()
}
