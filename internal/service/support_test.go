package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/events"
	"bookbridge-backend/internal/service"
)

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.notes.Send(ctx, service.NotificationInput{UserID: 999, Title: "Hi", Message: "there"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.notes.Send(ctx, service.NotificationInput{UserID: f.alice.UserID})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	first, err := f.notes.Send(ctx, service.NotificationInput{
		UserID:     f.alice.UserID,
		Title:      "Library closed",
		Message:    "The exchange desk is closed on Friday.",
		Attributes: map[string]string{"kind": "announcement"},
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	f.email.AssertCalled(t, "Send", mock.Anything, "alice@example.com", "Alice", "Library closed", mock.Anything)

	_, err = f.notes.Send(ctx, service.NotificationInput{UserID: f.alice.UserID, Title: "Reminder", Message: "Bring your card."})
	require.NoError(t, err)

	t.Run("RecipientOnly", func(t *testing.T) {
		_, err := f.notes.GetNotification(ctx, f.bob, first.ID)
		assert.True(t, errors.Is(err, domain.ErrForbidden))
		err = f.notes.DeleteNotification(ctx, f.bob, first.ID)
		assert.True(t, errors.Is(err, domain.ErrForbidden))
		_, err = f.notes.ListForUser(ctx, f.bob, f.alice.UserID)
		assert.True(t, errors.Is(err, domain.ErrForbidden))
	})

	t.Run("MarkAsRead", func(t *testing.T) {
		note, err := f.notes.MarkAsRead(ctx, f.alice, first.ID)
		require.NoError(t, err)
		assert.True(t, note.IsRead)

		got, err := f.notes.GetNotification(ctx, f.admin, first.ID)
		require.NoError(t, err)
		assert.True(t, got.IsRead)
		assert.Equal(t, "announcement", got.Attributes["kind"])
	})

	t.Run("PurgeRead", func(t *testing.T) {
		n, err := f.notes.PurgeRead(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("DeleteAll", func(t *testing.T) {
		n, err := f.notes.DeleteAllForUser(ctx, f.alice, f.alice.UserID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		notes, err := f.notes.ListForUser(ctx, f.alice, f.alice.UserID)
		require.NoError(t, err)
		assert.Empty(t, notes)

		err = f.notes.DeleteNotification(ctx, f.alice, first.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestTicketService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.tickets.OpenTicket(ctx, f.alice, service.TicketInput{Subject: "Hi"})
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Fields, "subject")
	assert.Contains(t, de.Fields, "message")

	ticket, err := f.tickets.OpenTicket(ctx, f.alice, service.TicketInput{Subject: "Missing book", Message: "My order arrived without the workbook."})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)

	_, err = f.tickets.Reply(ctx, f.bob, ticket.ID, "not mine")
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	answered, err := f.tickets.Reply(ctx, f.admin, ticket.ID, "We will send it tomorrow.")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAnswered, answered.Status)
	f.pub.AssertCalled(t, "Publish", mock.Anything, events.TicketAnswered, mock.Anything, mock.Anything)

	_, err = f.tickets.Close(ctx, f.bob, ticket.ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	closed, err := f.tickets.Close(ctx, f.alice, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	assert.Equal(t, "We will send it tomorrow.", closed.Reply)

	_, err = f.tickets.Reply(ctx, f.admin, ticket.ID, "again")
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	_, err = f.tickets.Close(ctx, f.alice, ticket.ID)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	mine, err := f.tickets.ListUserTickets(ctx, f.alice, f.alice.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	require.NoError(t, f.tickets.DeleteTicket(ctx, ticket.ID))
	all, err := f.tickets.ListTickets(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
