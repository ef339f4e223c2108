package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/events"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/repository"
	"bookbridge-backend/internal/validation"
)

type notificationService struct {
	store    repository.Store
	notifier *notifier
}

func NewNotificationService(store repository.Store, emailSvc EmailService, publisher events.Publisher) NotificationService {
	return &notificationService{store: store, notifier: newNotifier(store, emailSvc, publisher)}
}

func (s *notificationService) ListForUser(ctx context.Context, actor Actor, userID int32) ([]domain.Notification, error) {
	if !actor.CanAccess(userID) {
		return nil, domain.NewForbiddenError("cannot view another user's notifications")
	}
	return s.store.Repos().Notifications.ListByUser(ctx, userID)
}

func (s *notificationService) GetNotification(ctx context.Context, actor Actor, id int32) (*domain.Notification, error) {
	note, err := s.store.Repos().Notifications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(note.UserID) {
		return nil, domain.NewForbiddenError("cannot view another user's notification")
	}
	return note, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, actor Actor, id int32) (*domain.Notification, error) {
	note, err := s.GetNotification(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if note.IsRead {
		return note, nil
	}
	if err := s.store.Repos().Notifications.MarkAsRead(ctx, id); err != nil {
		return nil, err
	}
	note.IsRead = true
	return note, nil
}

func (s *notificationService) DeleteNotification(ctx context.Context, actor Actor, id int32) error {
	if _, err := s.GetNotification(ctx, actor, id); err != nil {
		return err
	}
	return s.store.Repos().Notifications.Delete(ctx, id)
}

func (s *notificationService) DeleteAllForUser(ctx context.Context, actor Actor, userID int32) (int64, error) {
	if !actor.CanAccess(userID) {
		return 0, domain.NewForbiddenError("cannot delete another user's notifications")
	}
	n, err := s.store.Repos().Notifications.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	logger.Info("Notifications cleared", "userID", userID, "deleted", n)
	return n, nil
}

func (s *notificationService) Send(ctx context.Context, in NotificationInput) (*domain.Notification, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)

	v := validation.Violations{}
	validation.Required("title", in.Title, v)
	validation.Required("message", in.Message, v)
	if in.UserID == 0 {
		v["userId"] = "required"
	}
	if err := v.Err("invalid notification"); err != nil {
		return nil, err
	}

	var note *domain.Notification
	fx := &effects{}
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Users.GetByID(ctx, in.UserID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewValidationError("unknown user", map[string]string{"userId": "unknown_user"})
			}
			return err
		}
		note = &domain.Notification{
			UserID:     in.UserID,
			Title:      in.Title,
			Message:    in.Message,
			Attributes: in.Attributes,
		}
		return s.notifier.record(ctx, tx, fx, note)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.flush(ctx, fx)
	return note, nil
}

// PurgeRead removes read notifications created before olderThan.
func (s *notificationService) PurgeRead(ctx context.Context, olderThan time.Time) (int64, error) {
	return s.store.Repos().Notifications.DeleteReadBefore(ctx, olderThan)
}
