// Package join реализует HTTP-обработчик распределения пользователя по сессии.
//
// Пользователь попадает в открытую сессию или в новую со случайной темой.
// Пятый участник получает в ответе ссылку на созданную встречу.
package join

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/response"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/lib/sl"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

var messages = map[models.JoinStatus]string{
	models.JoinStatusCreated: "session created",
	models.JoinStatusJoined:  "joined session",
	models.JoinStatusAlready: "already in session",
}

// Request запрос на участие.
type Request struct {
	UserID string `json:"userId" validate:"required"`
}

// Response описывает сессию пользователя и её текущий состав.
type Response struct {
	SessionID  string `json:"sessionId"`
	UserCount  int    `json:"userCount"`
	Message    string `json:"message"`
	Theme      string `json:"theme,omitempty"`
	MeetingURL string `json:"zoomUrl,omitempty"`
}

// Service описывает распределитель сессий.
type Service interface {
	JoinOrCreate(ctx context.Context, userID string) (models.SessionView, error)
}

// Handler обрабатывает запросы на участие в сессии.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Присоединиться к сессии
// @Description Добавляет пользователя в открытую сессию или создаёт новую.
// @Tags Sessions
// @Accept  json
// @Produce  json
// @Param request body Request true "ID пользователя"
// @Success 201 {object} Response "Создана новая сессия"
// @Success 200 {object} Response "Пользователь добавлен или уже был в сессии"
// @Failure 400 {object} response.ErrorResponse "Не передан userId"
// @Failure 409 {object} response.ErrorResponse "Сессия изменилась параллельно"
// @Failure 502 {object} response.ErrorResponse "Не удалось создать встречу"
// @Failure 503 {object} response.ErrorResponse "Нет тем"
// @Router /session [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.join"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	view, err := h.service.JoinOrCreate(r.Context(), req.UserID)
	switch {
	case errors.Is(err, models.ErrProvisionFailed):
		log.Error("user joined but meeting was not created",
			slog.String("session_id", view.SessionID), sl.Err(err))
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, response.Error("joined session, but failed to create meeting"))
		return
	case errors.Is(err, models.ErrNoThemes):
		log.Error("cannot create session", sl.Err(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("no themes configured"))
		return
	case errors.Is(err, models.ErrConflict):
		log.Warn("join lost to concurrent requests", sl.Err(err))
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("session is busy, try again"))
		return
	case err != nil:
		log.Error("failed to join session", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to join session"))
		return
	}

	log.Info("join handled",
		slog.String("session_id", view.SessionID),
		slog.Int("user_count", view.UserCount),
		slog.String("status", string(view.Status)),
	)
	if view.Status == models.JoinStatusCreated {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, Response{
		SessionID:  view.SessionID,
		UserCount:  view.UserCount,
		Message:    messages[view.Status],
		Theme:      view.Theme,
		MeetingURL: view.MeetingURL,
	})
}
