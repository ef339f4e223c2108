package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/events"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/metrics"
	"bookbridge-backend/internal/repository"
)

type refundService struct {
	store    repository.Store
	notifier *notifier
}

func NewRefundService(store repository.Store, emailSvc EmailService, publisher events.Publisher) RefundService {
	return &refundService{store: store, notifier: newNotifier(store, emailSvc, publisher)}
}

func (s *refundService) CreateRefund(ctx context.Context, actor Actor, in RefundInput) (*domain.Refund, error) {
	if in.PaymentID == 0 {
		return nil, domain.NewValidationError("invalid refund", map[string]string{"paymentId": "required"})
	}

	var rf *domain.Refund
	fx := &effects{}
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		p, err := tx.Payments.GetForUpdate(ctx, in.PaymentID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && p.BuyerID != actor.UserID {
			return domain.NewForbiddenError("only the buyer can request a refund")
		}
		existing, err := tx.Refunds.ListByPayment(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.Status != domain.FinanceStatusRejected {
				return domain.NewConflictError(fmt.Sprintf("payment %s already has a %s refund", p.PaymentCode, strings.ToLower(string(e.Status))))
			}
		}

		rf = &domain.Refund{
			RefundCode:  newCode("REF"),
			PaymentID:   p.ID,
			BuyerID:     p.BuyerID,
			GiverID:     p.GiverID,
			Description: strings.TrimSpace(in.Description),
			AmountCents: p.AmountCents,
			Status:      domain.FinanceStatusPending,
		}
		if err := tx.Refunds.Create(ctx, rf); err != nil {
			return err
		}
		fx.event(events.RefundCreated, rf.RefundCode, rf)
		return s.notifier.notify(ctx, tx, fx, rf.GiverID, "Refund requested",
			fmt.Sprintf("A refund of %s was requested for payment %s.", formatCents(rf.AmountCents), p.PaymentCode),
			map[string]string{"refundId": rf.RefundCode, "paymentId": p.PaymentCode})
	})
	if err != nil {
		return nil, err
	}
	s.notifier.flush(ctx, fx)
	return rf, nil
}

func (s *refundService) ListRefunds(ctx context.Context) ([]domain.Refund, error) {
	return s.store.Repos().Refunds.List(ctx)
}

func (s *refundService) ListUserRefunds(ctx context.Context, actor Actor, userID int32) ([]domain.Refund, error) {
	if !actor.CanAccess(userID) {
		return nil, domain.NewForbiddenError("cannot view another user's refunds")
	}
	return s.store.Repos().Refunds.ListByUser(ctx, userID)
}

func (s *refundService) DecideRefund(ctx context.Context, actor Actor, id int32, decision domain.Decision) (*domain.Refund, error) {
	logger.EnterMethod("refundService.DecideRefund", "refundID", id, "decision", decision)

	want, err := checkDecision(actor, decision)
	if err != nil {
		return nil, err
	}

	var out *domain.Refund
	var changed bool
	fx := &effects{}
	err = s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		rf, err := tx.Refunds.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if rf.Status != domain.FinanceStatusPending {
			out = rf
			return alreadyDecided("refund", rf.Status, want)
		}

		if want == domain.FinanceStatusApproved {
			if err := s.checkRefundable(ctx, tx, rf); err != nil {
				return err
			}
		}
		if err := tx.Refunds.Decide(ctx, id, want, actor.UserID); err != nil {
			if !errors.Is(err, domain.ErrConflict) {
				return err
			}
			if rf, err = tx.Refunds.GetByID(ctx, id); err != nil {
				return err
			}
			out = rf
			return alreadyDecided("refund", rf.Status, want)
		}

		if want == domain.FinanceStatusApproved {
			if err := moveUserFunds(ctx, tx, fx, rf.GiverID, -rf.AmountCents, domain.EntryTypeRefundDebit, rf.RefundCode, false); err != nil {
				return err
			}
			if err := moveUserFunds(ctx, tx, fx, rf.BuyerID, rf.AmountCents, domain.EntryTypeRefundCredit, rf.RefundCode, false); err != nil {
				return err
			}
		}

		if out, err = tx.Refunds.GetByID(ctx, id); err != nil {
			return err
		}
		changed = true
		fx.event(events.RefundDecided, out.RefundCode, out)
		attrs := map[string]string{"refundId": out.RefundCode, "status": string(want)}
		msg := fmt.Sprintf("Refund %s of %s was %s.", out.RefundCode, formatCents(out.AmountCents), strings.ToLower(string(want)))
		if err := s.notifier.notify(ctx, tx, fx, out.BuyerID, "Refund "+strings.ToLower(string(want)), msg, attrs); err != nil {
			return err
		}
		return s.notifier.notify(ctx, tx, fx, out.GiverID, "Refund "+strings.ToLower(string(want)), msg, attrs)
	})
	if err != nil {
		logger.ExitMethodWithError("refundService.DecideRefund", err, "refundID", id)
		return nil, err
	}

	if changed {
		metrics.RecordFinanceDecision("refund", string(want))
		s.notifier.flush(ctx, fx)
	}
	logger.ExitMethod("refundService.DecideRefund", "refundID", id, "status", out.Status, "changed", changed)
	return out, nil
}

// checkRefundable requires an approved payment with no other approved refund.
func (s *refundService) checkRefundable(ctx context.Context, tx repository.Repositories, rf *domain.Refund) error {
	p, err := tx.Payments.GetForUpdate(ctx, rf.PaymentID)
	if err != nil {
		return err
	}
	if p.Status != domain.FinanceStatusApproved {
		return domain.NewConflictError(fmt.Sprintf("payment %s is %s and cannot be refunded", p.PaymentCode, p.Status))
	}
	siblings, err := tx.Refunds.ListByPayment(ctx, p.ID)
	if err != nil {
		return err
	}
	for _, other := range siblings {
		if other.ID != rf.ID && other.Status == domain.FinanceStatusApproved {
			return domain.NewConflictError(fmt.Sprintf("payment %s was already refunded", p.PaymentCode))
		}
	}
	return nil
}

func (s *refundService) DeleteRefund(ctx context.Context, id int32) error {
	return s.store.Repos().Refunds.Delete(ctx, id)
}
