package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

// CreateFeedback сохраняет одну запись отзыва.
func (s *Storage) CreateFeedback(ctx context.Context, f models.Feedback) error {
	const op = "storage.CreateFeedback"

	query := `INSERT INTO feedback (id, session_id, user_id, author_user_id, date,
			      proactivity, logicality, leadership, cooperation, expression, consideration, comment)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.DB.ExecContext(ctx, query,
		f.ID, f.SessionID, f.UserID, f.AuthorUserID, f.Date,
		f.Proactivity, f.Logicality, f.Leadership, f.Cooperation, f.Expression, f.Consideration, f.Comment)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListFeedbackByUser возвращает все отзывы, в которых оценивался userID.
func (s *Storage) ListFeedbackByUser(ctx context.Context, userID string) ([]models.Feedback, error) {
	const op = "storage.ListFeedbackByUser"

	query := `SELECT id, session_id, user_id, author_user_id, date,
			      proactivity, logicality, leadership, cooperation, expression, consideration, comment
			  FROM feedback
			  WHERE user_id = $1`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Feedback, 0)
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.SessionID, &f.UserID, &f.AuthorUserID, &f.Date,
			&f.Proactivity, &f.Logicality, &f.Leadership, &f.Cooperation, &f.Expression, &f.Consideration,
			&f.Comment); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
