// Package add реализует административный HTTP-обработчик добавления темы.
package add

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/response"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/lib/sl"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

// Service описывает сохранение темы.
type Service interface {
	Add(ctx context.Context, theme models.Theme) error
}

// Handler обрабатывает запросы на добавление темы.
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
// @Summary Добавить тему
// @Description Сохраняет тему. Тема с тем же id перезаписывается.
// @Tags Themes
// @Accept  json
// @Produce  json
// @Param request body models.Theme true "Тема"
// @Success 200 {object} response.Message
// @Failure 400 {object} response.ErrorResponse "Не заполнены поля"
// @Router /add_theme [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.theme.add"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var theme models.Theme
	if err := json.NewDecoder(r.Body).Decode(&theme); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(theme); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.Add(r.Context(), theme); err != nil {
		log.Error("failed to add theme", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to add theme"))
		return
	}

	render.JSON(w, r, response.Message{Message: "theme added"})
}
