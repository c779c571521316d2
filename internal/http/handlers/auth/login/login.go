// Package login реализует HTTP-обработчик входа пользователя.
//
// При успешной проверке пароля возвращает ID пользователя и токен доступа.
package login

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

const msgInvalidCredentials = "invalid email or password"

// Request учетные данные пользователя.
type Request struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Response ответ на успешный вход.
type Response struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// Service описывает бизнес-логику входа.
type Service interface {
	Login(ctx context.Context, email, password string) (userID, token string, err error)
}

// Handler обрабатывает запросы на вход.
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
// @Summary Вход пользователя
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Email и пароль"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Не заполнены поля или неверный пароль"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
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

	userID, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		log.Info("login for unknown email")
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error(msgInvalidCredentials))
		return
	case errors.Is(err, models.ErrInvalidCredentials):
		log.Info("wrong password", slog.String("user_id", userID))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(msgInvalidCredentials))
		return
	case err != nil:
		log.Error("login failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to login"))
		return
	}

	log.Info("login success", slog.String("user_id", userID))
	render.JSON(w, r, Response{UserID: userID, Token: token})
}
