package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/events"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/metrics"
	"bookbridge-backend/internal/repository"
)

type pendingEvent struct {
	eventType string
	key       string
	payload   any
}

type pendingEmail struct {
	userID  int32
	subject string
	body    string
}

// effects collects the side channels of one unit of work. They are delivered
// only after the transaction commits.
type effects struct {
	events  []pendingEvent
	emails  []pendingEmail
	entries []domain.WalletEntry
}

func (fx *effects) event(eventType, key string, payload any) {
	fx.events = append(fx.events, pendingEvent{eventType: eventType, key: key, payload: payload})
}

// notifier writes in-app notifications inside the caller's transaction and
// delivers email and events afterwards.
type notifier struct {
	store     repository.Store
	emailSvc  EmailService
	publisher events.Publisher
}

func newNotifier(store repository.Store, emailSvc EmailService, publisher events.Publisher) *notifier {
	return &notifier{store: store, emailSvc: emailSvc, publisher: publisher}
}

func (n *notifier) notify(ctx context.Context, tx repository.Repositories, fx *effects, userID int32, title, message string, attrs map[string]string) error {
	return n.record(ctx, tx, fx, &domain.Notification{
		UserID:     userID,
		Title:      title,
		Message:    message,
		Attributes: attrs,
	})
}

// record stores note and queues the matching email.
func (n *notifier) record(ctx context.Context, tx repository.Repositories, fx *effects, note *domain.Notification) error {
	if err := tx.Notifications.Create(ctx, note); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	fx.emails = append(fx.emails, pendingEmail{userID: note.UserID, subject: note.Title, body: note.Message})
	return nil
}

func (n *notifier) flush(ctx context.Context, fx *effects) {
	for _, e := range fx.entries {
		metrics.RecordWalletMovement(string(e.Type), e.AmountCents)
	}
	for _, ev := range fx.events {
		n.publisher.Publish(ctx, ev.eventType, ev.key, ev.payload)
	}
	for _, em := range fx.emails {
		user, err := n.store.Repos().Users.GetByID(ctx, em.userID)
		if err != nil {
			logger.Warn("Skipping email for unknown user", "userID", em.userID, "error", err)
			continue
		}
		if err := n.emailSvc.Send(ctx, user.Email, user.Name, em.subject, em.body); err != nil {
			logger.Warn("Failed to send notification email", "userID", em.userID, "error", err)
		}
	}
}

// newCode returns a human-readable unique code such as ORD-1A2B3C4D5E6F.
func newCode(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(id[:12])
}

func idString(id int32) string {
	return fmt.Sprintf("%d", id)
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
