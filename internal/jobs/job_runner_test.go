package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bookbridge-backend/internal/config"
	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/service"
)

type MockFineService struct {
	mock.Mock
}

func (m *MockFineService) CreateFine(ctx context.Context, actor service.Actor, in service.FineInput) (*domain.Fine, error) {
	args := m.Called(ctx, actor, in)
	return nil, args.Error(1)
}

func (m *MockFineService) ListFines(ctx context.Context) ([]domain.Fine, error) {
	args := m.Called(ctx)
	return nil, args.Error(1)
}

func (m *MockFineService) ListUserFines(ctx context.Context, actor service.Actor, userID int32) ([]domain.Fine, error) {
	args := m.Called(ctx, actor, userID)
	return nil, args.Error(1)
}

func (m *MockFineService) DecideFine(ctx context.Context, actor service.Actor, id int32, decision domain.Decision) (*domain.Fine, error) {
	args := m.Called(ctx, actor, id, decision)
	return nil, args.Error(1)
}

func (m *MockFineService) DeleteFine(ctx context.Context, id int32) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockFineService) AssessOverdueFines(ctx context.Context, asOf time.Time) (*service.AssessmentReport, error) {
	args := m.Called(ctx, asOf)
	if r := args.Get(0); r != nil {
		return r.(*service.AssessmentReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFineService) SendFineReminders(ctx context.Context, asOf time.Time) (int, error) {
	args := m.Called(ctx, asOf)
	return args.Int(0), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) ListForUser(ctx context.Context, actor service.Actor, userID int32) ([]domain.Notification, error) {
	args := m.Called(ctx, actor, userID)
	return nil, args.Error(1)
}

func (m *MockNotificationService) GetNotification(ctx context.Context, actor service.Actor, id int32) (*domain.Notification, error) {
	args := m.Called(ctx, actor, id)
	return nil, args.Error(1)
}

func (m *MockNotificationService) MarkAsRead(ctx context.Context, actor service.Actor, id int32) (*domain.Notification, error) {
	args := m.Called(ctx, actor, id)
	return nil, args.Error(1)
}

func (m *MockNotificationService) DeleteNotification(ctx context.Context, actor service.Actor, id int32) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockNotificationService) DeleteAllForUser(ctx context.Context, actor service.Actor, userID int32) (int64, error) {
	args := m.Called(ctx, actor, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) Send(ctx context.Context, in service.NotificationInput) (*domain.Notification, error) {
	args := m.Called(ctx, in)
	return nil, args.Error(1)
}

func (m *MockNotificationService) PurgeRead(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func newTestRunner() (*JobRunner, *MockFineService, *MockNotificationService, time.Time) {
	fines := new(MockFineService)
	notes := new(MockNotificationService)
	cfg := &config.Config{Fines: config.FinesConfig{PurgeReadAfterDays: 30}}
	jr := NewJobRunner(cfg, fines, notes)
	now := time.Date(2026, 3, 15, 2, 0, 0, 0, time.UTC)
	jr.now = func() time.Time { return now }
	return jr, fines, notes, now
}

func TestJobRunner_AssessOverdueFines(t *testing.T) {
	jr, fines, _, now := newTestRunner()
	fines.On("AssessOverdueFines", mock.Anything, now).Return(&service.AssessmentReport{Created: 2, Updated: 1}, nil).Once()

	require.NoError(t, jr.AssessOverdueFines())
	fines.AssertExpectations(t)
}

func TestJobRunner_PurgeUsesRetentionWindow(t *testing.T) {
	jr, _, notes, now := newTestRunner()
	notes.On("PurgeRead", mock.Anything, now.AddDate(0, 0, -30)).Return(int64(4), nil).Once()

	require.NoError(t, jr.Run(JobPurgeReadNotifications))
	notes.AssertExpectations(t)
}

func TestJobRunner_ErrorsAndPanics(t *testing.T) {
	t.Run("service error is returned", func(t *testing.T) {
		jr, fines, _, now := newTestRunner()
		fines.On("SendFineReminders", mock.Anything, now).Return(0, errors.New("db down")).Once()

		err := jr.SendFineReminders()
		assert.EqualError(t, err, "db down")
	})

	t.Run("panic is recovered", func(t *testing.T) {
		jr, _, _, _ := newTestRunner()
		err := jr.runWithRecovery("boom", func(ctx context.Context) error {
			panic("kaboom")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kaboom")
	})
}

func TestJobRunner_RunAll(t *testing.T) {
	jr, fines, notes, now := newTestRunner()
	fines.On("AssessOverdueFines", mock.Anything, now).Return(nil, errors.New("first")).Once()
	fines.On("SendFineReminders", mock.Anything, now).Return(3, nil).Once()
	notes.On("PurgeRead", mock.Anything, mock.Anything).Return(int64(0), nil).Once()

	err := jr.RunAllNightlyJobs()
	assert.EqualError(t, err, "first")
	fines.AssertExpectations(t)
	notes.AssertExpectations(t)
}

func TestJobRunner_UnknownJob(t *testing.T) {
	jr, _, _, _ := newTestRunner()
	err := jr.Run("rebuild-index")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job")
}
