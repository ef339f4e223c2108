package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/events"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/metrics"
	"bookbridge-backend/internal/repository"
	"bookbridge-backend/internal/validation"
)

// FinePolicy holds the overdue-fine settings.
type FinePolicy struct {
	DailyRateCents    int64
	MaxAmountCents    int64 // zero means uncapped
	ReminderAfterDays int
}

// Amount returns the fine owed for days overdue.
func (p FinePolicy) Amount(days int32) int64 {
	amount := int64(days) * p.DailyRateCents
	if p.MaxAmountCents > 0 && amount > p.MaxAmountCents {
		amount = p.MaxAmountCents
	}
	return amount
}

type fineService struct {
	store    repository.Store
	notifier *notifier
	policy   FinePolicy
}

func NewFineService(store repository.Store, emailSvc EmailService, publisher events.Publisher, policy FinePolicy) FineService {
	return &fineService{store: store, notifier: newNotifier(store, emailSvc, publisher), policy: policy}
}

func (s *fineService) CreateFine(ctx context.Context, actor Actor, in FineInput) (*domain.Fine, error) {
	if !actor.IsAdmin() {
		return nil, domain.NewForbiddenError("only admins can issue fines")
	}
	v := validation.Violations{}
	validation.Positive("amountCents", in.AmountCents, v)
	validation.NonNegative("overdueDays", int64(in.OverdueDays), v)
	if in.UserID == 0 {
		v["userId"] = "required"
	}
	if err := v.Err("invalid fine"); err != nil {
		return nil, err
	}

	f := &domain.Fine{
		UserID:      in.UserID,
		BookCode:    strings.TrimSpace(in.BookCode),
		OrderID:     in.OrderID,
		OverdueDays: in.OverdueDays,
		AmountCents: in.AmountCents,
		Status:      domain.FinanceStatusPending,
	}
	fx := &effects{}
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Users.GetByID(ctx, f.UserID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewValidationError("unknown user", map[string]string{"userId": "unknown_user"})
			}
			return err
		}
		if err := tx.Fines.Create(ctx, f); err != nil {
			return err
		}
		fx.event(events.FineAssessed, idString(f.ID), f)
		return s.notifier.notify(ctx, tx, fx, f.UserID, "Fine issued",
			fmt.Sprintf("A fine of %s was issued to your account.", formatCents(f.AmountCents)),
			map[string]string{"fineId": idString(f.ID)})
	})
	if err != nil {
		return nil, err
	}
	s.notifier.flush(ctx, fx)
	return f, nil
}

func (s *fineService) ListFines(ctx context.Context) ([]domain.Fine, error) {
	return s.store.Repos().Fines.List(ctx)
}

func (s *fineService) ListUserFines(ctx context.Context, actor Actor, userID int32) ([]domain.Fine, error) {
	if !actor.CanAccess(userID) {
		return nil, domain.NewForbiddenError("cannot view another user's fines")
	}
	return s.store.Repos().Fines.ListByUser(ctx, userID)
}

func (s *fineService) DecideFine(ctx context.Context, actor Actor, id int32, decision domain.Decision) (*domain.Fine, error) {
	logger.EnterMethod("fineService.DecideFine", "fineID", id, "decision", decision)

	want, err := checkDecision(actor, decision)
	if err != nil {
		return nil, err
	}

	var out *domain.Fine
	var changed bool
	fx := &effects{}
	err = s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		f, err := tx.Fines.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if f.Status != domain.FinanceStatusPending {
			out = f
			return alreadyDecided("fine", f.Status, want)
		}
		if err := tx.Fines.Decide(ctx, id, want, actor.UserID); err != nil {
			if !errors.Is(err, domain.ErrConflict) {
				return err
			}
			if f, err = tx.Fines.GetByID(ctx, id); err != nil {
				return err
			}
			out = f
			return alreadyDecided("fine", f.Status, want)
		}

		ref := "FINE-" + idString(f.ID)
		if want == domain.FinanceStatusApproved {
			// Fines are debts, so the user's balance may go negative.
			if err := moveUserFunds(ctx, tx, fx, f.UserID, -f.AmountCents, domain.EntryTypeFineDebit, ref, true); err != nil {
				return err
			}
			if err := moveSystemFunds(ctx, tx, fx, f.AmountCents, domain.EntryTypeFineCredit, ref, false); err != nil {
				return err
			}
		}

		if out, err = tx.Fines.GetByID(ctx, id); err != nil {
			return err
		}
		changed = true
		fx.event(events.FineDecided, idString(out.ID), out)
		title := "Fine approved"
		msg := fmt.Sprintf("Your fine of %s was charged to your wallet.", formatCents(out.AmountCents))
		if want == domain.FinanceStatusRejected {
			title = "Fine waived"
			msg = fmt.Sprintf("Your fine of %s was waived.", formatCents(out.AmountCents))
		}
		return s.notifier.notify(ctx, tx, fx, out.UserID, title, msg,
			map[string]string{"fineId": idString(out.ID), "status": string(want)})
	})
	if err != nil {
		logger.ExitMethodWithError("fineService.DecideFine", err, "fineID", id)
		return nil, err
	}

	if changed {
		metrics.RecordFinanceDecision("fine", string(want))
		s.notifier.flush(ctx, fx)
	}
	logger.ExitMethod("fineService.DecideFine", "fineID", id, "status", out.Status, "changed", changed)
	return out, nil
}

func (s *fineService) DeleteFine(ctx context.Context, id int32) error {
	return s.store.Repos().Fines.Delete(ctx, id)
}

// AssessOverdueFines keeps one pending fine per overdue order in step with the
// number of days it is late. Waived orders are left alone and amounts already
// collected for an order are not charged twice.
func (s *fineService) AssessOverdueFines(ctx context.Context, asOf time.Time) (*AssessmentReport, error) {
	logger.EnterMethod("fineService.AssessOverdueFines", "asOf", asOf)

	today := startOfDay(asOf)
	repos := s.store.Repos()
	orders, err := repos.Orders.ListOverdue(ctx, today)
	if err != nil {
		logger.ExitMethodWithError("fineService.AssessOverdueFines", err)
		return nil, fmt.Errorf("list overdue orders: %w", err)
	}
	fines, err := repos.Fines.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fines: %w", err)
	}

	waived := map[int32]bool{}
	collected := map[int32]int64{}
	for _, f := range fines {
		if f.OrderID == nil {
			continue
		}
		switch f.Status {
		case domain.FinanceStatusRejected:
			waived[*f.OrderID] = true
		case domain.FinanceStatusApproved:
			collected[*f.OrderID] += f.AmountCents
		}
	}

	report := &AssessmentReport{}
	for i := range orders {
		o := orders[i]
		days := o.OverdueDays(today)
		amount := s.policy.Amount(days) - collected[o.ID]
		if days <= 0 || amount <= 0 || waived[o.ID] {
			report.Skipped++
			continue
		}
		outcome, err := s.assessOrder(ctx, &o, days, amount)
		if err != nil {
			logger.Error("Failed to assess overdue order", "orderID", o.ID, "error", err)
			report.Skipped++
			continue
		}
		switch outcome {
		case fineCreated:
			report.Created++
		case fineUpdated:
			report.Updated++
		default:
			report.Skipped++
		}
	}

	logger.ExitMethod("fineService.AssessOverdueFines", "created", report.Created, "updated", report.Updated, "skipped", report.Skipped)
	return report, nil
}

type assessOutcome int

const (
	fineUnchanged assessOutcome = iota
	fineCreated
	fineUpdated
)

func (s *fineService) assessOrder(ctx context.Context, o *domain.Order, days int32, amount int64) (assessOutcome, error) {
	outcome := fineUnchanged
	fx := &effects{}
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		pending, err := tx.Fines.GetPendingByOrder(ctx, o.ID)
		if err == nil {
			if pending.OverdueDays == days && pending.AmountCents == amount {
				return nil
			}
			outcome = fineUpdated
			return tx.Fines.UpdateAssessment(ctx, pending.ID, days, amount)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		orderID := o.ID
		f := &domain.Fine{
			UserID:      o.UserID,
			BookCode:    orderBookCodes(o),
			OrderID:     &orderID,
			OverdueDays: days,
			AmountCents: amount,
			Status:      domain.FinanceStatusPending,
		}
		if err := tx.Fines.Create(ctx, f); err != nil {
			return err
		}
		outcome = fineCreated
		fx.event(events.FineAssessed, idString(f.ID), f)
		return s.notifier.notify(ctx, tx, fx, o.UserID, "Overdue fine",
			fmt.Sprintf("Order %s is %d day(s) overdue. A fine of %s has been assessed.", o.OrderCode, days, formatCents(amount)),
			map[string]string{"fineId": idString(f.ID), "orderId": o.OrderCode})
	})
	if err != nil {
		return fineUnchanged, err
	}
	s.notifier.flush(ctx, fx)
	return outcome, nil
}

// SendFineReminders nudges users whose fines have stayed pending for too long.
func (s *fineService) SendFineReminders(ctx context.Context, asOf time.Time) (int, error) {
	cutoff := asOf.AddDate(0, 0, -s.policy.ReminderAfterDays)
	fines, err := s.store.Repos().Fines.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list pending fines: %w", err)
	}

	sent := 0
	for _, f := range fines {
		fx := &effects{}
		err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
			return s.notifier.notify(ctx, tx, fx, f.UserID, "Fine reminder",
				fmt.Sprintf("You have an outstanding fine of %s. Please settle it with the library desk.", formatCents(f.AmountCents)),
				map[string]string{"fineId": idString(f.ID)})
		})
		if err != nil {
			logger.Warn("Failed to send fine reminder", "fineID", f.ID, "error", err)
			continue
		}
		s.notifier.flush(ctx, fx)
		sent++
	}
	return sent, nil
}

func orderBookCodes(o *domain.Order) string {
	codes := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		codes = append(codes, it.BookCode)
	}
	return strings.Join(codes, ",")
}
