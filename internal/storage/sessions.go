package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

const sessionColumns = `id, theme_id, to_json(member_ids), is_ended, created_at, meeting_url`

// CreateSession сохраняет новую сессию.
func (s *Storage) CreateSession(ctx context.Context, session models.Session) error {
	const op = "storage.CreateSession"

	query := `INSERT INTO sessions (id, theme_id, member_ids, is_ended, created_at, meeting_url)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.DB.ExecContext(ctx, query,
		session.ID, session.ThemeID, session.MemberIDs, session.IsEnded, session.CreatedAt, session.MeetingURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSession возвращает сессию по ID.
func (s *Storage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	const op = "storage.GetSession"

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	session, err := scanSession(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

// FirstOpenSession возвращает самую раннюю сессию, в которой меньше capacity участников.
//
// Завершённые сессии не отфильтровываются: свободная завершённая сессия
// тоже считается открытой.
func (s *Storage) FirstOpenSession(ctx context.Context, capacity int) (*models.Session, error) {
	const op = "storage.FirstOpenSession"

	query := `SELECT ` + sessionColumns + ` FROM sessions
			  WHERE cardinality(member_ids) < $1
			  ORDER BY created_at, id
			  LIMIT 1`
	session, err := scanSession(s.DB.QueryRowContext(ctx, query, capacity))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

// AddMember добавляет userID в участники сессии, только если сейчас в ней ровно
// expectedCount участников и userID среди них нет. Возвращает новое количество участников.
//
// Если условие не выполнено (сессию изменил параллельный запрос), возвращает models.ErrConflict.
func (s *Storage) AddMember(ctx context.Context, sessionID, userID string, expectedCount int) (int, error) {
	const op = "storage.AddMember"

	query := `UPDATE sessions
			  SET member_ids = array_append(member_ids, $2)
			  WHERE id = $1
			    AND cardinality(member_ids) = $3
			    AND NOT ($2 = ANY(member_ids))
			  RETURNING cardinality(member_ids)`
	var count int
	err := s.DB.QueryRowContext(ctx, query, sessionID, userID, expectedCount).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, models.ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// SetMeetingURL сохраняет ссылку на встречу, если она ещё не была сохранена.
func (s *Storage) SetMeetingURL(ctx context.Context, sessionID, meetingURL string) error {
	const op = "storage.SetMeetingURL"

	query := `UPDATE sessions SET meeting_url = $2 WHERE id = $1 AND meeting_url = ''`
	res, err := s.DB.ExecContext(ctx, query, sessionID, meetingURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrConflict)
	}
	return nil
}

// EndSession помечает сессию завершённой. Повторный вызов ничего не меняет.
func (s *Storage) EndSession(ctx context.Context, sessionID string) error {
	const op = "storage.EndSession"

	res, err := s.DB.ExecContext(ctx, `UPDATE sessions SET is_ended = true WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrSessionNotFound)
	}
	return nil
}

func scanSession(row *sql.Row) (*models.Session, error) {
	var (
		session models.Session
		members []byte
	)
	err := row.Scan(&session.ID, &session.ThemeID, &members, &session.IsEnded, &session.CreatedAt, &session.MeetingURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(members, &session.MemberIDs); err != nil {
		return nil, err
	}
	return &session, nil
}
