package matchmaker

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/config"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/handlers/feedback/list"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/handlers/feedback/submit"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/handlers/health"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/handlers/session/end"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/handlers/session/join"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/handlers/session/meeting"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/handlers/theme/add"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/metrics"
)

// AuthService объединяет регистрацию и вход.
type AuthService interface {
	register.Service
	login.Service
}

// SessionService объединяет операции над сессиями.
type SessionService interface {
	join.Service
	end.Service
	meeting.Service
}

// FeedbackService объединяет сохранение и чтение отзывов.
type FeedbackService interface {
	submit.Service
	list.Service
}

// Services содержит зависимости обработчиков.
type Services struct {
	Auth     AuthService
	Sessions SessionService
	Themes   add.Service
	Feedback FeedbackService
	Storage  health.Pinger
}

// corsOptions строит политику CORS. Запросы с credentials не принимают
// Access-Control-Allow-Origin: *, поэтому при "*" возвращается Origin запроса.
func corsOptions(cfg config.CORS) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           cfg.MaxAge,
	}
	if slices.Contains(cfg.AllowedOrigins, "*") {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	}
	return opts
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(
	r chi.Router,
	logger *slog.Logger,
	cfg *config.Config,
	svc Services,
	collector *metrics.Collector,
	gatherer prometheus.Gatherer,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		collector.Middleware,
		cors.Handler(corsOptions(cfg.CORS)),
	)

	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)))

		r.Post("/register", register.New(logger, svc.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, svc.Auth).ServeHTTP)

		r.Post("/session", join.New(logger, svc.Sessions).ServeHTTP)
		r.Get("/end_session", end.New(logger, svc.Sessions).ServeHTTP)
		r.Get("/end_session/{session_id}", end.New(logger, svc.Sessions).ServeHTTP)
		r.Get("/get_zoom_url/{id}", meeting.New(logger, svc.Sessions).ServeHTTP)

		r.Post("/add_theme", add.New(logger, svc.Themes).ServeHTTP)

		r.Post("/feedback", submit.New(logger, svc.Feedback).ServeHTTP)
		r.Get("/get_feedback/{user_id}", list.New(logger, svc.Feedback).ServeHTTP)
	})

	r.Get("/health", health.New(logger, svc.Storage).ServeHTTP)
	r.Handle("/metrics", metrics.Handler(gatherer))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
