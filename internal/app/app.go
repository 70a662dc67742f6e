package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/httpapi"
	"github.com/MrEthical07/authcore/memory"
	promexport "github.com/MrEthical07/authcore/metrics/export/prometheus"
	"github.com/MrEthical07/authcore/notify"
	"github.com/MrEthical07/authcore/postgres"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// App owns the engine and the connections it was built on.
type App struct {
	Config *Config
	Logger *slog.Logger
	Engine *authcore.Engine

	closers []func()
}

// New connects the configured backends and builds the engine. Close releases
// everything New opened, including on a partial failure.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	var (
		pool *pgxpool.Pool
		rdb  *redis.Client
		err  error
	)
	if cfg.UsesPostgres() {
		pool, err = OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
	}
	if cfg.TokenBackend == BackendRedis {
		rdb = redis.NewClient(cfg.RedisOptions())
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		})
	}

	notifier, err := a.newNotifier()
	if err != nil {
		a.Close()
		return nil, err
	}

	b := authcore.New().
		WithConfig(cfg.AuthConfig()).
		WithNotifier(notifier).
		WithLogger(logger)

	switch cfg.UserBackend {
	case BackendPostgres:
		b.WithUserStore(postgres.NewUserStore(pool))
	default:
		logger.Warn("using in-memory user store; accounts are lost on restart")
		b.WithUserStore(memory.NewUserStore())
	}
	switch cfg.TokenBackend {
	case BackendPostgres:
		b.WithTokenStore(postgres.NewTokenStore(pool))
	case BackendRedis:
		b.WithRedis(rdb)
	default:
		b.WithTokenStore(memory.NewTokenStore())
	}

	engine, err := b.Build()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Engine = engine
	a.closers = append(a.closers, engine.Close)
	return a, nil
}

func (a *App) newNotifier() (authcore.Notifier, error) {
	switch a.Config.Notifier {
	case NotifierQueue:
		client := asynq.NewClient(a.Config.AsynqRedisOpt())
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.Logger.Warn("asynq client close", slog.Any("error", err))
			}
		})
		return notify.NewQueueNotifier(client), nil
	case NotifierSMTP:
		return notify.NewSenderNotifier(notify.NewSMTPSender(a.Config.SMTPConfig())), nil
	default:
		return &notify.LogNotifier{Logger: a.Logger, IncludeLink: a.Config.IsLocal()}, nil
	}
}

// Handler returns the HTTP router.
func (a *App) Handler() http.Handler {
	var metrics http.Handler
	if a.Config.MetricsEnabled {
		metrics = promexport.Handler(a.Engine)
	}
	return httpapi.NewRouter(httpapi.RouterConfig{
		Service:        a.Engine,
		Logger:         a.Logger,
		Cookies:        a.Config.CookieConfig(),
		AllowedOrigins: a.Config.CORSOrigins,
		Production:     a.Config.IsProduction(),
		RequestTimeout: a.Config.RequestTimeout,
		Metrics:        metrics,
	})
}

// Server wraps Handler in an http.Server with the configured timeouts.
func (a *App) Server() *http.Server {
	return &http.Server{
		Addr:              a.Config.HTTPAddr,
		Handler:           a.Handler(),
		ReadTimeout:       a.Config.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      a.Config.WriteTimeout,
	}
}

// RunSweeper purges expired single-use tokens every interval until ctx is done.
func (a *App) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := a.Engine.SweepExpiredTokens(ctx)
			if err != nil {
				a.Logger.WarnContext(ctx, "token sweep failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				a.Logger.InfoContext(ctx, "expired tokens removed", slog.Int64("count", n))
			}
		}
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// OpenPostgres connects to PG_DSN with retries.
func OpenPostgres(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	return postgres.Connect(ctx, cfg.PGDSN, postgres.ConnectConfig{MaxConns: cfg.PGMaxConns})
}

// NewWorker builds the email worker delivering queued messages over SMTP.
func NewWorker(cfg *Config, logger *slog.Logger) (*notify.Worker, error) {
	mailer := notify.NewMailer(notify.NewSMTPSender(cfg.SMTPConfig()), logger)
	return notify.NewWorker(notify.WorkerConfig{
		RedisOpts:   cfg.AsynqRedisOpt(),
		Concurrency: cfg.WorkerConcurrency,
		Logger:      logger,
		Mailer:      mailer,
	})
}
