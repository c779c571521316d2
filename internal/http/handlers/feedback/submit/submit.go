// Package submit реализует HTTP-обработчик отправки отзывов об участниках сессии.
//
// Тело запроса является объектом, где помимо sessionId и необязательного authorUserId
// каждый ключ является ID оценённого участника, а значение содержит его оценки:
//
//	{
//	  "sessionId": "...",
//	  "authorUserId": "...",
//	  "5b0c...": {"proactivity": 4, "logicality": 5, ..., "comment": "..."}
//	}
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/http/response"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/lib/sl"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

const (
	keySessionID = "sessionId"
	keyAuthorID  = "authorUserId"
)

// Request разобранное тело запроса.
type Request struct {
	SessionID    string `validate:"required"`
	AuthorUserID string
	Ratings      map[string]models.RatingPayload `validate:"required,min=1,dive,keys,uuid,endkeys"`
}

// Service описывает сохранение отзывов.
type Service interface {
	Submit(ctx context.Context, sessionID, authorID string, ratings map[string]models.RatingPayload) (int, error)
}

// Handler обрабатывает отправку отзывов.
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
// @Summary Отправить отзывы
// @Description Сохраняет по одной записи на каждого оценённого участника. Дата записи равна дате создания сессии.
// @Tags Feedback
// @Accept  json
// @Produce  json
// @Param request body object true "sessionId, authorUserId и оценки по ID участников"
// @Success 201 {object} response.Message
// @Failure 400 {object} response.ErrorResponse "Некорректное тело запроса"
// @Failure 404 {object} response.ErrorResponse "Сессия не найдена"
// @Router /feedback [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.feedback.submit"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	req, err := h.parse(raw)
	if err != nil {
		log.Error("invalid feedback request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			render.JSON(w, r, response.ValidationError(vErrs))
			return
		}
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	n, err := h.service.Submit(r.Context(), req.SessionID, req.AuthorUserID, req.Ratings)
	if errors.Is(err, models.ErrSessionNotFound) {
		log.Info("session not found", slog.String("session_id", req.SessionID))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("session not found"))
		return
	}
	if err != nil {
		log.Error("failed to save feedback", slog.Int("saved", n), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to save feedback"))
		return
	}

	log.Info("feedback saved", slog.String("session_id", req.SessionID), slog.Int("records", n))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.Message{Message: "feedback saved"})
}

func (h *Handler) parse(raw map[string]json.RawMessage) (Request, error) {
	req := Request{Ratings: make(map[string]models.RatingPayload, len(raw))}

	for key, value := range raw {
		switch key {
		case keySessionID:
			if err := json.Unmarshal(value, &req.SessionID); err != nil {
				return Request{}, fmt.Errorf("field %s must be a string", keySessionID)
			}
		case keyAuthorID:
			if err := json.Unmarshal(value, &req.AuthorUserID); err != nil {
				return Request{}, fmt.Errorf("field %s must be a string", keyAuthorID)
			}
		default:
			var payload models.RatingPayload
			dec := json.NewDecoder(bytes.NewReader(value))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&payload); err != nil {
				return Request{}, fmt.Errorf("field %s must be a rating object", key)
			}
			if err := h.validate.Struct(payload); err != nil {
				return Request{}, err
			}
			req.Ratings[key] = payload
		}
	}

	if err := h.validate.Struct(req); err != nil {
		return Request{}, err
	}
	return req, nil
}
