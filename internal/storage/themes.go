package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

// SaveTheme добавляет тему или обновляет текст существующей.
func (s *Storage) SaveTheme(ctx context.Context, theme models.Theme) error {
	const op = "storage.SaveTheme"

	query := `INSERT INTO themes (id, content) VALUES ($1, $2)
			  ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content`
	if _, err := s.DB.ExecContext(ctx, query, theme.ID, theme.Content); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListThemes возвращает все темы.
func (s *Storage) ListThemes(ctx context.Context) ([]models.Theme, error) {
	const op = "storage.ListThemes"

	rows, err := s.DB.QueryContext(ctx, `SELECT id, content FROM themes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var themes []models.Theme
	for rows.Next() {
		var t models.Theme
		if err := rows.Scan(&t.ID, &t.Content); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		themes = append(themes, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return themes, nil
}

// GetTheme возвращает тему по ID.
func (s *Storage) GetTheme(ctx context.Context, id string) (*models.Theme, error) {
	const op = "storage.GetTheme"

	var t models.Theme
	err := s.DB.QueryRowContext(ctx, `SELECT id, content FROM themes WHERE id = $1`, id).Scan(&t.ID, &t.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrThemeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}
