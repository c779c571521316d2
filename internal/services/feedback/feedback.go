// Package feedback сохраняет и выдаёт отзывы участников сессий.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

// Repository описывает хранилище отзывов.
type Repository interface {
	CreateFeedback(ctx context.Context, f models.Feedback) error
	ListFeedbackByUser(ctx context.Context, userID string) ([]models.Feedback, error)
}

// SessionReader возвращает сессию, к которой относится отзыв.
type SessionReader interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
}

// Metrics учитывает сохранённые отзывы.
type Metrics interface {
	RecordFeedback(count int)
}

// Service записывает по одному отзыву на каждого оценённого участника.
type Service struct {
	feedback Repository
	sessions SessionReader
	metrics  Metrics
	log      *slog.Logger
	newID    func() string
}

// NewService создает новый экземпляр Service.
func NewService(feedback Repository, sessions SessionReader, metrics Metrics, log *slog.Logger) *Service {
	return &Service{
		feedback: feedback,
		sessions: sessions,
		metrics:  metrics,
		log:      log,
		newID:    uuid.NewString,
	}
}

// Submit сохраняет оценки ratings, выставленные автором authorID в сессии sessionID.
// Дата каждой записи равна дате создания сессии. Возвращает число сохранённых записей.
//
// Записи не откатываются: при ошибке уже сохранённые остаются в хранилище.
func (s *Service) Submit(ctx context.Context, sessionID, authorID string, ratings map[string]models.RatingPayload) (int, error) {
	const op = "feedback.Submit"

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	subjects := make([]string, 0, len(ratings))
	for userID := range ratings {
		subjects = append(subjects, userID)
	}
	sort.Strings(subjects)

	written := 0
	for _, userID := range subjects {
		record := models.Feedback{
			ID:            s.newID(),
			SessionID:     session.ID,
			UserID:        userID,
			AuthorUserID:  authorID,
			Date:          session.CreatedAt,
			RatingPayload: ratings[userID],
		}
		if err := s.feedback.CreateFeedback(ctx, record); err != nil {
			s.metrics.RecordFeedback(written)
			return written, fmt.Errorf("%s: %w", op, err)
		}
		written++
	}

	s.metrics.RecordFeedback(written)
	s.log.Info("feedback saved", slog.String("session_id", sessionID), slog.Int("records", written))
	return written, nil
}

// ForUser возвращает все отзывы, в которых оценивался userID.
func (s *Service) ForUser(ctx context.Context, userID string) ([]models.Feedback, error) {
	const op = "feedback.ForUser"

	records, err := s.feedback.ListFeedbackByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}
