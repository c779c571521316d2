// Package matchmaker собирает приложение: хранилище, кеш, брокер, клиент Zoom,
// сервисы и HTTP-сервер.
package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/cache"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/config"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/lib/jwt"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/lib/password"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/lib/sl"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/metrics"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/migrations"
	authservice "github.com/magabrotheeeer/discussion-matchmaker/internal/services/auth"
	feedbackservice "github.com/magabrotheeeer/discussion-matchmaker/internal/services/feedback"
	sessionservice "github.com/magabrotheeeer/discussion-matchmaker/internal/services/session"
	themeservice "github.com/magabrotheeeer/discussion-matchmaker/internal/services/theme"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/storage"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/zoom"
)

// App владеет HTTP-сервером и всеми внешними подключениями.
type App struct {
	server  *http.Server
	cfg     *config.Config
	logger  *slog.Logger
	db      *storage.Storage
	cache   *cache.Cache
	closers []io.Closer
}

// New подключается ко всем внешним системам и собирает обработчики.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "matchmaker.New"

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{
		cfg:    cfg,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}

	publisher, err := app.initPublisher()
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	themes := themeservice.NewService(db, cacheRedis, cfg.ThemeCacheTTL, logger)
	services := Services{
		Auth: authservice.NewService(db, password.NewHasher(0),
			jwt.NewMaker(cfg.JWTToken.SecretKey, cfg.JWTToken.TokenTTL), logger),
		Sessions: sessionservice.NewService(db, db, themes, zoom.NewClient(cfg.Zoom), publisher, collector, logger),
		Themes:   themes,
		Feedback: feedbackservice.NewService(db, db, collector, logger),
		Storage:  db,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, services, collector, reg)

	app.server = &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout + cfg.Zoom.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	return app, nil
}

// initPublisher подключается к RabbitMQ. Без URL события не публикуются.
func (a *App) initPublisher() (sessionservice.Publisher, error) {
	if a.cfg.RabbitMQ.URL == "" {
		a.logger.Warn("rabbitmq url is empty, session events are disabled")
		return rabbitmq.NopPublisher{}, nil
	}

	conn, err := rabbitmq.Connect(a.cfg.RabbitMQ.URL, a.cfg.RabbitMQ.Retries, a.cfg.RabbitMQ.Delay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, a.cfg.RabbitMQ.Exchange, rabbitmq.SessionQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	a.closers = append(a.closers, ch, conn)
	return rabbitmq.NewPublisher(ch, a.cfg.RabbitMQ.Exchange), nil
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.ShutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("failed to close resource", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close storage", sl.Err(err))
	}
}
