// Package session распределяет пользователей по сессиям группового обсуждения.
//
// Новый участник попадает в самую раннюю сессию, где есть свободное место,
// либо в новую сессию со случайной темой. Участник, заполнивший последнее место,
// запускает создание встречи. Добавление участника выполняется условным
// обновлением по ожидаемому числу участников, поэтому параллельные запросы
// не теряют друг друга и встреча создаётся ровно один раз.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/lib/sl"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

const maxJoinAttempts = 3

// Repository описывает хранилище сессий.
type Repository interface {
	CreateSession(ctx context.Context, session models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	FirstOpenSession(ctx context.Context, capacity int) (*models.Session, error)
	AddMember(ctx context.Context, sessionID, userID string, expectedCount int) (int, error)
	SetMeetingURL(ctx context.Context, sessionID, meetingURL string) error
	EndSession(ctx context.Context, sessionID string) error
}

// UserRepository разрешает имена участников.
type UserRepository interface {
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// ThemePicker выбирает тему для новой сессии.
type ThemePicker interface {
	RandomTheme(ctx context.Context) (*models.Theme, error)
	Get(ctx context.Context, id string) (*models.Theme, error)
}

// Provisioner создаёт встречу и возвращает ссылку для подключения.
type Provisioner interface {
	CreateMeeting(ctx context.Context) (string, error)
}

// Publisher отправляет события в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Metrics учитывает события распределителя.
type Metrics interface {
	RecordJoin(status models.JoinStatus)
	RecordJoinConflict()
	RecordProvisioned(duration time.Duration)
	RecordProvisionFailure()
	RecordSessionEnded()
}

// Service — распределитель сессий.
type Service struct {
	sessions    Repository
	users       UserRepository
	themes      ThemePicker
	provisioner Provisioner
	publisher   Publisher
	metrics     Metrics
	log         *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService создает новый экземпляр Service.
func NewService(
	sessions Repository,
	users UserRepository,
	themes ThemePicker,
	provisioner Provisioner,
	publisher Publisher,
	metrics Metrics,
	log *slog.Logger,
) *Service {
	return &Service{
		sessions:    sessions,
		users:       users,
		themes:      themes,
		provisioner: provisioner,
		publisher:   publisher,
		metrics:     metrics,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// JoinOrCreate добавляет пользователя в открытую сессию или создаёт новую.
//
// Если добавление заполнило сессию, но встречу создать не удалось, участник
// остаётся в сессии: возвращается заполненный SessionView и ошибка,
// оборачивающая models.ErrProvisionFailed.
func (s *Service) JoinOrCreate(ctx context.Context, userID string) (models.SessionView, error) {
	const op = "session.JoinOrCreate"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	for attempt := 1; attempt <= maxJoinAttempts; attempt++ {
		view, err := s.tryJoin(ctx, log, userID)
		if errors.Is(err, models.ErrConflict) {
			s.metrics.RecordJoinConflict()
			log.Debug("session changed concurrently, retrying", slog.Int("attempt", attempt))
			continue
		}
		if err != nil && view.SessionID == "" {
			return models.SessionView{}, fmt.Errorf("%s: %w", op, err)
		}
		s.metrics.RecordJoin(view.Status)
		if err != nil {
			return view, fmt.Errorf("%s: %w", op, err)
		}
		return view, nil
	}
	return models.SessionView{}, fmt.Errorf("%s: %w", op, models.ErrConflict)
}

func (s *Service) tryJoin(ctx context.Context, log *slog.Logger, userID string) (models.SessionView, error) {
	open, err := s.sessions.FirstOpenSession(ctx, models.SessionCapacity)
	if errors.Is(err, models.ErrSessionNotFound) {
		return s.create(ctx, log, userID)
	}
	if err != nil {
		return models.SessionView{}, err
	}

	if open.HasMember(userID) {
		return models.SessionView{
			SessionID:  open.ID,
			UserCount:  len(open.MemberIDs),
			Status:     models.JoinStatusAlready,
			MeetingURL: open.MeetingURL,
		}, nil
	}

	count, err := s.sessions.AddMember(ctx, open.ID, userID, len(open.MemberIDs))
	if err != nil {
		return models.SessionView{}, err
	}
	log.Info("user joined session", slog.String("session_id", open.ID), slog.Int("user_count", count))

	view := models.SessionView{
		SessionID: open.ID,
		UserCount: count,
		Status:    models.JoinStatusJoined,
	}
	if count < models.SessionCapacity {
		return view, nil
	}

	members := append(open.MemberIDs[:len(open.MemberIDs):len(open.MemberIDs)], userID)
	url, err := s.provision(context.WithoutCancel(ctx), log, open, members)
	if err != nil {
		return view, err
	}
	view.MeetingURL = url
	return view, nil
}

func (s *Service) create(ctx context.Context, log *slog.Logger, userID string) (models.SessionView, error) {
	theme, err := s.themes.RandomTheme(ctx)
	if err != nil {
		return models.SessionView{}, err
	}

	session := models.Session{
		ID:        s.newID(),
		ThemeID:   theme.ID,
		MemberIDs: []string{userID},
		CreatedAt: s.now(),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return models.SessionView{}, err
	}
	log.Info("session created", slog.String("session_id", session.ID), slog.String("theme_id", theme.ID))

	return models.SessionView{
		SessionID: session.ID,
		UserCount: 1,
		Status:    models.JoinStatusCreated,
		Theme:     theme.Content,
	}, nil
}

// provision вызывается только тем запросом, чьё условное обновление
// довело сессию до полного состава.
func (s *Service) provision(ctx context.Context, log *slog.Logger, session *models.Session, members []string) (string, error) {
	log = log.With(slog.String("session_id", session.ID))
	log.Info("session is full, creating meeting")

	start := time.Now()
	url, err := s.provisioner.CreateMeeting(ctx)
	if err != nil {
		s.metrics.RecordProvisionFailure()
		log.Error("failed to create meeting", sl.Err(err))
		return "", fmt.Errorf("%w: %w", models.ErrProvisionFailed, err)
	}
	if err := s.sessions.SetMeetingURL(ctx, session.ID, url); err != nil {
		s.metrics.RecordProvisionFailure()
		log.Error("failed to store meeting url", sl.Err(err))
		return "", fmt.Errorf("%w: %w", models.ErrProvisionFailed, err)
	}
	s.metrics.RecordProvisioned(time.Since(start))
	log.Info("meeting created")

	event := models.SessionReadyEvent{
		SessionID:  session.ID,
		ThemeID:    session.ThemeID,
		MeetingURL: url,
		MemberIDs:  members,
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingKeySessionReady, event); err != nil {
		log.Warn("failed to publish session ready event", sl.Err(err))
	}
	return url, nil
}

// EndSession помечает сессию завершённой.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	const op = "session.EndSession"

	if err := s.sessions.EndSession(ctx, sessionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.RecordSessionEnded()
	s.log.Info("session ended", slog.String("session_id", sessionID))
	return nil
}

// MeetingInfo возвращает ссылку на встречу, тему и участников сессии.
// Пока ссылки нет, возвращает models.ErrMeetingNotReady.
func (s *Service) MeetingInfo(ctx context.Context, sessionID string) (*models.MeetingInfo, error) {
	const op = "session.MeetingInfo"

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if session.MeetingURL == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrMeetingNotReady)
	}

	theme, err := s.themes.Get(ctx, session.ThemeID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users, err := s.users.GetUsersByIDs(ctx, session.MemberIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	memberNames := make([]string, 0, len(session.MemberIDs))
	for _, id := range session.MemberIDs {
		if name, ok := names[id]; ok {
			memberNames = append(memberNames, name)
		}
	}

	return &models.MeetingInfo{
		MeetingURL:  session.MeetingURL,
		Theme:       theme.Content,
		MemberIDs:   session.MemberIDs,
		MemberNames: memberNames,
	}, nil
}
