// Package list реализует HTTP-обработчик получения отзывов о пользователе.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/response"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/lib/sl"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

// Service описывает чтение отзывов.
type Service interface {
	ForUser(ctx context.Context, userID string) ([]models.Feedback, error)
}

// Handler возвращает все отзывы, в которых оценивался пользователь.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отзывы о пользователе
// @Tags Feedback
// @Produce  json
// @Param user_id path string true "ID пользователя"
// @Success 200 {array} models.Feedback
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /get_feedback/{user_id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.feedback.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := chi.URLParam(r, "user_id")
	records, err := h.service.ForUser(r.Context(), userID)
	if err != nil {
		log.Error("failed to list feedback", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list feedback"))
		return
	}
	if records == nil {
		records = []models.Feedback{}
	}

	log.Debug("feedback listed", slog.String("user_id", userID), slog.Int("count", len(records)))
	render.JSON(w, r, records)
}
