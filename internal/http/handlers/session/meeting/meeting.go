// Package meeting реализует HTTP-обработчик получения ссылки на встречу набранной сессии.
package meeting

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

// Response содержит ссылку на встречу, тему и участников.
type Response struct {
	ZoomURL   string   `json:"zoomUrl"`
	Theme     string   `json:"theme"`
	UserIDs   []string `json:"userId"`
	UserNames []string `json:"userName"`
}

// Service описывает получение данных о встрече.
type Service interface {
	MeetingInfo(ctx context.Context, sessionID string) (*models.MeetingInfo, error)
}

// Handler обрабатывает запросы на получение ссылки на встречу.
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
// @Summary Ссылка на встречу
// @Tags Sessions
// @Produce  json
// @Param id path string true "ID сессии"
// @Success 200 {object} Response
// @Failure 404 {object} response.ErrorResponse "Сессия, тема или встреча не найдены"
// @Router /get_zoom_url/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.meeting"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sessionID := chi.URLParam(r, "id")
	info, err := h.service.MeetingInfo(r.Context(), sessionID)
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("session not found"))
		return
	case errors.Is(err, models.ErrThemeNotFound):
		log.Warn("session theme is missing", slog.String("session_id", sessionID))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("theme not found"))
		return
	case errors.Is(err, models.ErrMeetingNotReady):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("zoom url is not ready yet"))
		return
	case err != nil:
		log.Error("failed to get meeting info", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to get meeting info"))
		return
	}

	render.JSON(w, r, Response{
		ZoomURL:   info.MeetingURL,
		Theme:     info.Theme,
		UserIDs:   info.MemberIDs,
		UserNames: info.MemberNames,
	})
}
