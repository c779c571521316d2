package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

// memRepo повторяет семантику условного обновления хранилища.
type memRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	addHook  func(sessionID string)
}

func newMemRepo() *memRepo {
	return &memRepo{sessions: make(map[string]*models.Session)}
}

func (r *memRepo) CreateSession(_ context.Context, session models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.MemberIDs = slices.Clone(session.MemberIDs)
	r.sessions[session.ID] = &session
	return nil
}

func (r *memRepo) GetSession(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	cp := *s
	cp.MemberIDs = slices.Clone(s.MemberIDs)
	return &cp, nil
}

func (r *memRepo) FirstOpenSession(_ context.Context, capacity int) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var open []*models.Session
	for _, s := range r.sessions {
		if len(s.MemberIDs) < capacity {
			open = append(open, s)
		}
	}
	if len(open) == 0 {
		return nil, models.ErrSessionNotFound
	}
	sort.Slice(open, func(i, j int) bool {
		if open[i].CreatedAt.Equal(open[j].CreatedAt) {
			return open[i].ID < open[j].ID
		}
		return open[i].CreatedAt.Before(open[j].CreatedAt)
	})
	cp := *open[0]
	cp.MemberIDs = slices.Clone(open[0].MemberIDs)
	return &cp, nil
}

func (r *memRepo) AddMember(_ context.Context, sessionID, userID string, expectedCount int) (int, error) {
	if r.addHook != nil {
		r.addHook(sessionID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || len(s.MemberIDs) != expectedCount || s.HasMember(userID) {
		return 0, models.ErrConflict
	}
	s.MemberIDs = append(s.MemberIDs, userID)
	return len(s.MemberIDs), nil
}

func (r *memRepo) SetMeetingURL(_ context.Context, sessionID, meetingURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.MeetingURL != "" {
		return models.ErrConflict
	}
	s.MeetingURL = meetingURL
	return nil
}

func (r *memRepo) EndSession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	s.IsEnded = true
	return nil
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

type ThemePickerMock struct{ mock.Mock }

func (m *ThemePickerMock) RandomTheme(ctx context.Context) (*models.Theme, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Theme), args.Error(1)
}

func (m *ThemePickerMock) Get(ctx context.Context, id string) (*models.Theme, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Theme), args.Error(1)
}

type ProvisionerMock struct{ mock.Mock }

func (m *ProvisionerMock) CreateMeeting(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

type noopMetrics struct{}

func (noopMetrics) RecordJoin(models.JoinStatus)    {}
func (noopMetrics) RecordJoinConflict()             {}
func (noopMetrics) RecordProvisioned(time.Duration) {}
func (noopMetrics) RecordProvisionFailure()         {}
func (noopMetrics) RecordSessionEnded()             {}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testTheme = &models.Theme{ID: "theme-1", Content: "Is remote work here to stay?"}

type fixture struct {
	repo        *memRepo
	users       *UserRepoMock
	themes      *ThemePickerMock
	provisioner *ProvisionerMock
	publisher   *PublisherMock
	svc         *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:        newMemRepo(),
		users:       new(UserRepoMock),
		themes:      new(ThemePickerMock),
		provisioner: new(ProvisionerMock),
		publisher:   new(PublisherMock),
	}
	f.svc = NewService(f.repo, f.users, f.themes, f.provisioner, f.publisher, noopMetrics{}, newNoopLogger())

	var (
		mu  sync.Mutex
		seq int
	)
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	f.svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("session-%d", seq)
	}
	f.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return base.Add(time.Duration(seq) * time.Minute)
	}
	return f
}

func TestService_JoinOrCreate_CreatesSession(t *testing.T) {
	f := newFixture(t)
	f.themes.On("RandomTheme", mock.Anything).Return(testTheme, nil).Once()

	view, err := f.svc.JoinOrCreate(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionView{
		SessionID: "session-1",
		UserCount: 1,
		Status:    models.JoinStatusCreated,
		Theme:     testTheme.Content,
	}, view)

	stored, err := f.repo.GetSession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, stored.MemberIDs)
	assert.Equal(t, testTheme.ID, stored.ThemeID)
	assert.False(t, stored.IsEnded)
	assert.Empty(t, stored.MeetingURL)
	f.themes.AssertExpectations(t)
}

func TestService_JoinOrCreate_NoThemes(t *testing.T) {
	f := newFixture(t)
	f.themes.On("RandomTheme", mock.Anything).Return(nil, models.ErrNoThemes).Once()

	_, err := f.svc.JoinOrCreate(context.Background(), "u1")
	assert.ErrorIs(t, err, models.ErrNoThemes)
	assert.Empty(t, f.repo.sessions)
}

func TestService_JoinOrCreate_AlreadyJoinedIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.themes.On("RandomTheme", mock.Anything).Return(testTheme, nil).Once()

	first, err := f.svc.JoinOrCreate(context.Background(), "u1")
	require.NoError(t, err)

	again, err := f.svc.JoinOrCreate(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, again.SessionID)
	assert.Equal(t, 1, again.UserCount)
	assert.Equal(t, models.JoinStatusAlready, again.Status)
	assert.Empty(t, again.Theme)

	stored, err := f.repo.GetSession(context.Background(), first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, stored.MemberIDs)
}

func TestService_JoinOrCreate_FillsAndProvisionsOnce(t *testing.T) {
	f := newFixture(t)
	f.themes.On("RandomTheme", mock.Anything).Return(testTheme, nil).Once()
	f.provisioner.On("CreateMeeting", mock.Anything).Return("https://zoom.us/j/42", nil).Once()
	f.publisher.On("Publish", mock.Anything, rabbitmq.RoutingKeySessionReady, models.SessionReadyEvent{
		SessionID:  "session-1",
		ThemeID:    testTheme.ID,
		MeetingURL: "https://zoom.us/j/42",
		MemberIDs:  []string{"u1", "u2", "u3", "u4", "u5"},
	}).Return(nil).Once()

	for i, user := range []string{"u1", "u2", "u3", "u4", "u5"} {
		view, err := f.svc.JoinOrCreate(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, "session-1", view.SessionID)
		assert.Equal(t, i+1, view.UserCount)
		if i+1 < models.SessionCapacity {
			assert.Empty(t, view.MeetingURL)
		} else {
			assert.Equal(t, "https://zoom.us/j/42", view.MeetingURL)
		}
	}

	stored, err := f.repo.GetSession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "https://zoom.us/j/42", stored.MeetingURL)
	assert.Len(t, stored.MemberIDs, models.SessionCapacity)

	f.themes.On("RandomTheme", mock.Anything).Return(testTheme, nil).Once()
	view, err := f.svc.JoinOrCreate(context.Background(), "u6")
	require.NoError(t, err)
	assert.Equal(t, models.JoinStatusCreated, view.Status, "a full session accepts nobody")
	assert.NotEqual(t, "session-1", view.SessionID)

	f.provisioner.AssertNumberOfCalls(t, "CreateMeeting", 1)
	f.publisher.AssertExpectations(t)
}

func TestService_JoinOrCreate_ProvisionFailureKeepsMembership(t *testing.T) {
	f := newFixture(t)
	f.themes.On("RandomTheme", mock.Anything).Return(testTheme, nil).Once()
	f.provisioner.On("CreateMeeting", mock.Anything).Return("", errors.New("zoom token acquisition failed: status 401")).Once()

	for _, user := range []string{"u1", "u2", "u3", "u4"} {
		_, err := f.svc.JoinOrCreate(context.Background(), user)
		require.NoError(t, err)
	}

	view, err := f.svc.JoinOrCreate(context.Background(), "u5")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrProvisionFailed)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, 5, view.UserCount)
	assert.Equal(t, models.JoinStatusJoined, view.Status)

	stored, err := f.repo.GetSession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Len(t, stored.MemberIDs, 5)
	assert.Empty(t, stored.MeetingURL)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_JoinOrCreate_PublishFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.CreateSession(context.Background(), models.Session{
		ID: "s", ThemeID: testTheme.ID, MemberIDs: []string{"u1", "u2", "u3", "u4"}, CreatedAt: time.Now(),
	}))
	f.provisioner.On("CreateMeeting", mock.Anything).Return("https://zoom.us/j/7", nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	view, err := f.svc.JoinOrCreate(context.Background(), "u5")
	require.NoError(t, err)
	assert.Equal(t, "https://zoom.us/j/7", view.MeetingURL)
}

func TestService_JoinOrCreate_RetriesOnConflict(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.CreateSession(context.Background(), models.Session{
		ID: "s", ThemeID: testTheme.ID, MemberIDs: []string{"u1"}, CreatedAt: time.Now(),
	}))

	var once sync.Once
	f.repo.addHook = func(sessionID string) {
		once.Do(func() {
			f.repo.mu.Lock()
			f.repo.sessions[sessionID].MemberIDs = append(f.repo.sessions[sessionID].MemberIDs, "rival")
			f.repo.mu.Unlock()
		})
	}

	view, err := f.svc.JoinOrCreate(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, 3, view.UserCount)

	stored, err := f.repo.GetSession(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "rival", "u2"}, stored.MemberIDs)
}

func TestService_JoinOrCreate_GivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.CreateSession(context.Background(), models.Session{
		ID: "s", ThemeID: testTheme.ID, MemberIDs: []string{"u1"}, CreatedAt: time.Now(),
	}))

	rival := 0
	f.repo.addHook = func(sessionID string) {
		f.repo.mu.Lock()
		defer f.repo.mu.Unlock()
		rival++
		s := f.repo.sessions[sessionID]
		if len(s.MemberIDs) < models.SessionCapacity-1 {
			s.MemberIDs = append(s.MemberIDs, fmt.Sprintf("rival-%d", rival))
		}
	}

	_, err := f.svc.JoinOrCreate(context.Background(), "u2")
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Equal(t, maxJoinAttempts, rival)
}

func TestService_JoinOrCreate_ConcurrentJoiners(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.CreateSession(context.Background(), models.Session{
		ID: "s", ThemeID: testTheme.ID, MemberIDs: []string{"u0"}, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	f.themes.On("RandomTheme", mock.Anything).Return(testTheme, nil)
	f.provisioner.On("CreateMeeting", mock.Anything).Return("https://zoom.us/j/1", nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	for i := 1; i <= 4; i++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			_, _ = f.svc.JoinOrCreate(context.Background(), user)
		}(fmt.Sprintf("u%d", i))
	}
	wg.Wait()

	stored := f.repo.sessions["s"]
	assert.LessOrEqual(t, len(stored.MemberIDs), models.SessionCapacity)
	sortedIDs := slices.Clone(stored.MemberIDs)
	slices.Sort(sortedIDs)
	assert.Len(t, slices.Compact(sortedIDs), len(stored.MemberIDs), "no duplicate members")
	if len(stored.MemberIDs) == models.SessionCapacity {
		assert.Equal(t, "https://zoom.us/j/1", stored.MeetingURL)
		f.provisioner.AssertNumberOfCalls(t, "CreateMeeting", 1)
	} else {
		f.provisioner.AssertNotCalled(t, "CreateMeeting", mock.Anything)
	}
}

func TestService_EndSession(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.CreateSession(context.Background(), models.Session{ID: "s", MemberIDs: []string{"u1"}}))

	require.NoError(t, f.svc.EndSession(context.Background(), "s"))
	require.NoError(t, f.svc.EndSession(context.Background(), "s"))
	assert.True(t, f.repo.sessions["s"].IsEnded)

	assert.ErrorIs(t, f.svc.EndSession(context.Background(), "missing"), models.ErrSessionNotFound)
}

func TestService_MeetingInfo(t *testing.T) {
	f := newFixture(t)
	members := []string{"u1", "u2", "u3", "u4", "u5"}
	require.NoError(t, f.repo.CreateSession(context.Background(), models.Session{
		ID: "full", ThemeID: testTheme.ID, MemberIDs: members, MeetingURL: "https://zoom.us/j/9",
	}))
	require.NoError(t, f.repo.CreateSession(context.Background(), models.Session{
		ID: "partial", ThemeID: testTheme.ID, MemberIDs: []string{"u1"},
	}))
	f.themes.On("Get", mock.Anything, testTheme.ID).Return(testTheme, nil).Once()
	f.users.On("GetUsersByIDs", mock.Anything, members).Return([]models.User{
		{ID: "u3", Name: "Carol"}, {ID: "u1", Name: "Alice"}, {ID: "u2", Name: "Bob"}, {ID: "u5", Name: "Eve"},
	}, nil).Once()

	info, err := f.svc.MeetingInfo(context.Background(), "full")
	require.NoError(t, err)
	assert.Equal(t, &models.MeetingInfo{
		MeetingURL:  "https://zoom.us/j/9",
		Theme:       testTheme.Content,
		MemberIDs:   members,
		MemberNames: []string{"Alice", "Bob", "Carol", "Eve"},
	}, info)

	_, err = f.svc.MeetingInfo(context.Background(), "partial")
	assert.ErrorIs(t, err, models.ErrMeetingNotReady)

	_, err = f.svc.MeetingInfo(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestService_MeetingInfo_ThemeDeleted(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.CreateSession(context.Background(), models.Session{
		ID: "full", ThemeID: "gone", MemberIDs: []string{"u1"}, MeetingURL: "https://zoom.us/j/9",
	}))
	f.themes.On("Get", mock.Anything, "gone").
		Return(nil, fmt.Errorf("storage.GetTheme: %w", models.ErrThemeNotFound)).Once()

	info, err := f.svc.MeetingInfo(context.Background(), "full")
	assert.ErrorIs(t, err, models.ErrThemeNotFound)
	assert.Nil(t, info)
	f.users.AssertNotCalled(t, "GetUsersByIDs", mock.Anything, mock.Anything)
}
