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
	"bookbridge-backend/internal/validation"
)

type paymentService struct {
	store    repository.Store
	notifier *notifier
}

func NewPaymentService(store repository.Store, emailSvc EmailService, publisher events.Publisher) PaymentService {
	return &paymentService{store: store, notifier: newNotifier(store, emailSvc, publisher)}
}

func (s *paymentService) CreatePayment(ctx context.Context, actor Actor, in PaymentInput) (*domain.Payment, error) {
	buyer := actor.UserID
	if actor.IsAdmin() && in.BuyerID != 0 {
		buyer = in.BuyerID
	}

	v := validation.Violations{}
	validation.Positive("amountCents", in.AmountCents, v)
	if in.GiverID == 0 {
		v["giverId"] = "required"
	} else if in.GiverID == buyer {
		v["giverId"] = "must_differ_from_buyer"
	}
	if err := v.Err("invalid payment"); err != nil {
		return nil, err
	}

	p := &domain.Payment{
		PaymentCode: newCode("PAY"),
		CodeID:      strings.TrimSpace(in.CodeID),
		BuyerID:     buyer,
		GiverID:     in.GiverID,
		BookCode:    strings.TrimSpace(in.BookCode),
		AmountCents: in.AmountCents,
		Status:      domain.FinanceStatusPending,
	}
	fx := &effects{}
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		for field, id := range map[string]int32{"buyerId": p.BuyerID, "giverId": p.GiverID} {
			if _, err := tx.Users.GetByID(ctx, id); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.NewValidationError("unknown user", map[string]string{field: "unknown_user"})
				}
				return err
			}
		}
		if err := tx.Payments.Create(ctx, p); err != nil {
			return err
		}
		fx.event(events.PaymentCreated, p.PaymentCode, p)
		return s.notifier.notify(ctx, tx, fx, p.GiverID, "Payment submitted",
			fmt.Sprintf("A payment of %s for %s is awaiting approval.", formatCents(p.AmountCents), p.BookCode),
			map[string]string{"paymentId": p.PaymentCode})
	})
	if err != nil {
		return nil, err
	}
	s.notifier.flush(ctx, fx)
	logger.Info("Payment created", "paymentID", p.ID, "buyerID", p.BuyerID, "giverID", p.GiverID, "amountCents", p.AmountCents)
	return p, nil
}

func (s *paymentService) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	return s.store.Repos().Payments.List(ctx)
}

func (s *paymentService) ListUserPayments(ctx context.Context, actor Actor, userID int32) ([]domain.Payment, error) {
	if !actor.CanAccess(userID) {
		return nil, domain.NewForbiddenError("cannot view another user's payments")
	}
	return s.store.Repos().Payments.ListByUser(ctx, userID)
}

func (s *paymentService) DecidePayment(ctx context.Context, actor Actor, id int32, decision domain.Decision) (*domain.Payment, error) {
	logger.EnterMethod("paymentService.DecidePayment", "paymentID", id, "decision", decision)

	want, err := checkDecision(actor, decision)
	if err != nil {
		return nil, err
	}

	var out *domain.Payment
	var changed bool
	fx := &effects{}
	err = s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		p, err := tx.Payments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p.Status != domain.FinanceStatusPending {
			out = p
			return alreadyDecided("payment", p.Status, want)
		}
		if err := tx.Payments.Decide(ctx, id, want, actor.UserID); err != nil {
			if !errors.Is(err, domain.ErrConflict) {
				return err
			}
			if p, err = tx.Payments.GetByID(ctx, id); err != nil {
				return err
			}
			out = p
			return alreadyDecided("payment", p.Status, want)
		}

		if want == domain.FinanceStatusApproved {
			if err := moveUserFunds(ctx, tx, fx, p.BuyerID, -p.AmountCents, domain.EntryTypePaymentDebit, p.PaymentCode, false); err != nil {
				return err
			}
			if err := moveUserFunds(ctx, tx, fx, p.GiverID, p.AmountCents, domain.EntryTypePaymentCredit, p.PaymentCode, false); err != nil {
				return err
			}
		}

		if out, err = tx.Payments.GetByID(ctx, id); err != nil {
			return err
		}
		changed = true
		fx.event(events.PaymentDecided, out.PaymentCode, out)
		attrs := map[string]string{"paymentId": out.PaymentCode, "status": string(want)}
		msg := fmt.Sprintf("Payment %s of %s was %s.", out.PaymentCode, formatCents(out.AmountCents), strings.ToLower(string(want)))
		if err := s.notifier.notify(ctx, tx, fx, out.BuyerID, "Payment "+strings.ToLower(string(want)), msg, attrs); err != nil {
			return err
		}
		return s.notifier.notify(ctx, tx, fx, out.GiverID, "Payment "+strings.ToLower(string(want)), msg, attrs)
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.DecidePayment", err, "paymentID", id)
		return nil, err
	}

	if changed {
		metrics.RecordFinanceDecision("payment", string(want))
		s.notifier.flush(ctx, fx)
	}
	logger.ExitMethod("paymentService.DecidePayment", "paymentID", id, "status", out.Status, "changed", changed)
	return out, nil
}

func (s *paymentService) DeletePayment(ctx context.Context, id int32) error {
	return s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Payments.GetForUpdate(ctx, id); err != nil {
			return err
		}
		refunds, err := tx.Refunds.ListByPayment(ctx, id)
		if err != nil {
			return err
		}
		for _, rf := range refunds {
			if rf.Status != domain.FinanceStatusRejected {
				return domain.NewConflictError(fmt.Sprintf("payment %d has an active refund", id))
			}
		}
		return tx.Payments.Delete(ctx, id)
	})
}
