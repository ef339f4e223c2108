package service

import (
	"context"
	"fmt"
	"strings"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/events"
	"bookbridge-backend/internal/repository"
	"bookbridge-backend/internal/validation"
)

type ticketService struct {
	store    repository.Store
	notifier *notifier
}

func NewTicketService(store repository.Store, emailSvc EmailService, publisher events.Publisher) TicketService {
	return &ticketService{store: store, notifier: newNotifier(store, emailSvc, publisher)}
}

func (s *ticketService) OpenTicket(ctx context.Context, actor Actor, in TicketInput) (*domain.Ticket, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)

	v := validation.Violations{}
	validation.Length("subject", in.Subject, 3, 100, v)
	validation.Required("message", in.Message, v)
	if err := v.Err("invalid ticket"); err != nil {
		return nil, err
	}

	t := &domain.Ticket{
		UserID:  actor.UserID,
		Subject: in.Subject,
		Message: in.Message,
		Status:  domain.TicketStatusOpen,
	}
	if err := s.store.Repos().Tickets.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *ticketService) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	return s.store.Repos().Tickets.List(ctx)
}

func (s *ticketService) ListUserTickets(ctx context.Context, actor Actor, userID int32) ([]domain.Ticket, error) {
	if !actor.CanAccess(userID) {
		return nil, domain.NewForbiddenError("cannot view another user's tickets")
	}
	return s.store.Repos().Tickets.ListByUser(ctx, userID)
}

func (s *ticketService) Reply(ctx context.Context, actor Actor, id int32, reply string) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, domain.NewForbiddenError("only admins can answer tickets")
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, domain.NewValidationError("invalid reply", map[string]string{"reply": "required"})
	}

	var out *domain.Ticket
	fx := &effects{}
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		t, err := tx.Tickets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t.Status == domain.TicketStatusClosed {
			return domain.NewInvalidTransitionError("ticket", t.Status, domain.TicketStatusAnswered)
		}
		t.Reply = reply
		t.Status = domain.TicketStatusAnswered
		if err := tx.Tickets.Update(ctx, t); err != nil {
			return err
		}
		out = t
		fx.event(events.TicketAnswered, idString(t.ID), t)
		return s.notifier.notify(ctx, tx, fx, t.UserID, "Support ticket answered",
			fmt.Sprintf("Your ticket %q has a reply: %s", t.Subject, reply),
			map[string]string{"ticketId": idString(t.ID)})
	})
	if err != nil {
		return nil, err
	}
	s.notifier.flush(ctx, fx)
	return out, nil
}

func (s *ticketService) Close(ctx context.Context, actor Actor, id int32) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		t, err := tx.Tickets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanAccess(t.UserID) {
			return domain.NewForbiddenError("cannot close another user's ticket")
		}
		if t.Status == domain.TicketStatusClosed {
			return domain.NewInvalidTransitionError("ticket", t.Status, domain.TicketStatusClosed)
		}
		t.Status = domain.TicketStatusClosed
		if err := tx.Tickets.Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ticketService) DeleteTicket(ctx context.Context, id int32) error {
	return s.store.Repos().Tickets.Delete(ctx, id)
}
