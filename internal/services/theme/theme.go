// Package theme выбирает темы для обсуждения и управляет их набором.
package theme

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/lib/sl"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

// CacheKey — ключ, под которым в кеше хранится весь набор тем.
const CacheKey = "themes:all"

// Repository описывает хранилище тем.
type Repository interface {
	SaveTheme(ctx context.Context, theme models.Theme) error
	ListThemes(ctx context.Context) ([]models.Theme, error)
	GetTheme(ctx context.Context, id string) (*models.Theme, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Service выдаёт случайную тему из набора, закешированного в Redis.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
	pick  func(n int) int
}

// NewService создает новый экземпляр Service.
func NewService(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
		pick:  rand.Intn,
	}
}

// Add сохраняет тему и сбрасывает закешированный набор.
func (s *Service) Add(ctx context.Context, theme models.Theme) error {
	const op = "theme.Add"

	if err := s.repo.SaveTheme(ctx, theme); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(ctx, CacheKey); err != nil {
		s.log.Warn("failed to invalidate theme cache", sl.Op(op), sl.Err(err))
	}
	s.log.Info("theme saved", slog.String("theme_id", theme.ID))
	return nil
}

// RandomTheme выбирает тему равновероятно из всего набора.
// Пустой набор даёт models.ErrNoThemes.
func (s *Service) RandomTheme(ctx context.Context) (*models.Theme, error) {
	const op = "theme.RandomTheme"

	themes, err := s.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(themes) == 0 {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNoThemes)
	}
	theme := themes[s.pick(len(themes))]
	return &theme, nil
}

// Get возвращает тему по ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Theme, error) {
	const op = "theme.Get"

	theme, err := s.repo.GetTheme(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return theme, nil
}

func (s *Service) all(ctx context.Context) ([]models.Theme, error) {
	var themes []models.Theme
	found, err := s.cache.Get(ctx, CacheKey, &themes)
	if err != nil {
		s.log.Warn("theme cache read failed", sl.Err(err))
	}
	if found && len(themes) > 0 {
		return themes, nil
	}

	themes, err = s.repo.ListThemes(ctx)
	if err != nil {
		return nil, err
	}
	if len(themes) > 0 {
		if err := s.cache.Set(ctx, CacheKey, themes, s.ttl); err != nil {
			s.log.Warn("failed to cache themes", sl.Err(err))
		}
	}
	return themes, nil
}
