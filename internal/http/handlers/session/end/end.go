// Package end реализует HTTP-обработчик завершения сессии.
package end

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/response"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/lib/sl"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

// Service описывает завершение сессии.
type Service interface {
	EndSession(ctx context.Context, sessionID string) error
}

// Handler обрабатывает запросы на завершение сессии.
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
// @Summary Завершить сессию
// @Description ID сессии передаётся в пути или в параметре session_id. Повторный вызов ничего не меняет.
// @Tags Sessions
// @Produce  json
// @Param session_id path string true "ID сессии"
// @Success 200 {object} response.Message
// @Failure 400 {object} response.ErrorResponse "Не передан ID"
// @Failure 404 {object} response.ErrorResponse "Сессия не найдена"
// @Router /end_session/{session_id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.end"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session_id")
	}
	if sessionID == "" {
		log.Error("session id is missing")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("session_id is required"))
		return
	}

	err := h.service.EndSession(r.Context(), sessionID)
	if errors.Is(err, models.ErrSessionNotFound) {
		log.Info("session not found", slog.String("session_id", sessionID))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("session not found"))
		return
	}
	if err != nil {
		log.Error("failed to end session", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to end session"))
		return
	}

	log.Info("session ended", slog.String("session_id", sessionID))
	render.JSON(w, r, response.Message{Message: "session ended"})
}
