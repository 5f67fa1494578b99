package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/sudo-init-do/masterhub/internal/admin"
	"github.com/sudo-init-do/masterhub/internal/alerts"
	"github.com/sudo-init-do/masterhub/internal/auth"
	"github.com/sudo-init-do/masterhub/internal/config"
	"github.com/sudo-init-do/masterhub/internal/db"
	"github.com/sudo-init-do/masterhub/internal/marketplace"
	"github.com/sudo-init-do/masterhub/internal/messaging"
	mware "github.com/sudo-init-do/masterhub/internal/middleware"
	"github.com/sudo-init-do/masterhub/internal/user"
	"github.com/sudo-init-do/masterhub/internal/utils"
)

type stores struct {
	market   marketplace.Store
	users    user.Store
	alerts   alerts.Store
	messages messaging.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	var pool *pgxpool.Pool
	var st stores
	switch cfg.Store {
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		st = stores{
			market:   marketplace.NewMemoryStore(),
			users:    user.NewMemoryStore(),
			alerts:   alerts.NewMemoryStore(),
			messages: messaging.NewMemoryStore(),
		}
	default:
		var err error
		pool, err = db.Connect(ctx, cfg.DSN(), logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		st = stores{
			market:   marketplace.NewPGStore(pool),
			users:    user.NewPGStore(pool),
			alerts:   alerts.NewPGStore(pool),
			messages: messaging.NewPGStore(pool),
		}
	}

	// Redis: rate limiter and notification queue
	var rdb *redis.Client
	var emitter alerts.Emitter = alerts.NewDirectEmitter(st.alerts)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}

		opt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		queue := asynq.NewClient(opt)
		defer queue.Close()
		emitter = alerts.NewAsynqEmitter(queue)

		worker, err := alerts.StartWorker(opt, alerts.NewProcessor(st.alerts, logger), cfg.WorkerConcurrency)
		if err != nil {
			return err
		}
		defer worker.Shutdown()
	} else {
		logger.Info("REDIS_ADDR not set, notifications are written inline")
	}

	// Domain
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	directory := user.NewDirectory(st.users)
	hub := messaging.NewHub(logger)
	market := marketplace.NewMarket(st.market, directory, emitter, logger, marketplace.WithBroadcaster(hub))
	threads := messaging.NewService(st.market, st.messages, directory, emitter, hub, logger)

	e := newServer(logger)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "masterhub"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		rctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if pool != nil {
			if err := pool.Ping(rctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
			}
		}
		if rdb != nil {
			if err := rdb.Ping(rctx).Err(); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "redis unreachable"})
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	authGroup := e.Group("/auth")
	authGroup.Use(mware.RateLimiter(rdb, cfg.AuthRateLimit, logger))

	pub := e.Group("")
	api := e.Group("", mware.JWTMiddleware(tokens))
	adminGroup := e.Group("/admin", mware.JWTMiddleware(tokens), mware.AdminGuard)

	auth.NewHandler(st.users, tokens, cfg.AdminBootstrapSecret, logger).Register(authGroup, api)
	user.NewHandler(st.users, market, logger).Register(pub, api)
	marketplace.NewHandler(market, logger).Register(pub, api)
	messaging.NewHandler(threads, hub, logger).Register(api)
	alerts.NewHandler(alerts.NewInbox(st.alerts), logger).Register(api)
	admin.NewHandler(st.users, market, logger).Register(adminGroup)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("port", cfg.AppPort), zap.String("store", cfg.Store))
		if err := e.Start(":" + cfg.AppPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newServer(logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = utils.NewRequestValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(mware.RequestLogger(logger))

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code >= http.StatusInternalServerError {
			logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
	return e
}
