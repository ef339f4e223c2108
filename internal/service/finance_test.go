package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/service"
)

func TestPaymentService_CreatePayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("BuyerIsCaller", func(t *testing.T) {
		p, err := f.payments.CreatePayment(ctx, f.alice, service.PaymentInput{BuyerID: f.admin.UserID, GiverID: f.bob.UserID, BookCode: "MATH-101", AmountCents: 500})
		require.NoError(t, err)
		assert.Equal(t, f.alice.UserID, p.BuyerID)
		assert.Equal(t, domain.FinanceStatusPending, p.Status)
		assert.NotEmpty(t, p.PaymentCode)
	})

	t.Run("AdminPaysOnBehalf", func(t *testing.T) {
		p, err := f.payments.CreatePayment(ctx, f.admin, service.PaymentInput{BuyerID: f.alice.UserID, GiverID: f.bob.UserID, AmountCents: 700})
		require.NoError(t, err)
		assert.Equal(t, f.alice.UserID, p.BuyerID)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := f.payments.CreatePayment(ctx, f.alice, service.PaymentInput{GiverID: f.alice.UserID, AmountCents: 0})
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.KindValidation, de.Kind)
		assert.Contains(t, de.Fields, "amountCents")
		assert.Contains(t, de.Fields, "giverId")
	})

	t.Run("UnknownGiver", func(t *testing.T) {
		_, err := f.payments.CreatePayment(ctx, f.alice, service.PaymentInput{GiverID: 999, AmountCents: 100})
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})
}

func TestPaymentService_DecidePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("ApproveMovesFunds", func(t *testing.T) {
		f := newFixture(t)
		f.fund(t, f.alice, 5000)
		p, err := f.payments.CreatePayment(ctx, f.alice, service.PaymentInput{GiverID: f.bob.UserID, AmountCents: 2000})
		require.NoError(t, err)

		approved, err := f.payments.DecidePayment(ctx, f.admin, p.ID, domain.DecisionApprove)
		require.NoError(t, err)
		assert.Equal(t, domain.FinanceStatusApproved, approved.Status)
		require.NotNil(t, approved.DecidedBy)
		assert.Equal(t, int64(3000), f.balance(t, f.alice))
		assert.Equal(t, int64(2000), f.balance(t, f.bob))

		again, err := f.payments.DecidePayment(ctx, f.admin, p.ID, domain.DecisionApprove)
		require.NoError(t, err)
		assert.Equal(t, domain.FinanceStatusApproved, again.Status)
		assert.Equal(t, int64(3000), f.balance(t, f.alice))

		_, err = f.payments.DecidePayment(ctx, f.admin, p.ID, domain.DecisionReject)
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	})

	t.Run("InsufficientFundsLeavesPending", func(t *testing.T) {
		f := newFixture(t)
		p, err := f.payments.CreatePayment(ctx, f.alice, service.PaymentInput{GiverID: f.bob.UserID, AmountCents: 2000})
		require.NoError(t, err)

		_, err = f.payments.DecidePayment(ctx, f.admin, p.ID, domain.DecisionApprove)
		assert.True(t, errors.Is(err, domain.ErrInsufficientFunds))

		list, err := f.payments.ListUserPayments(ctx, f.alice, f.alice.UserID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, domain.FinanceStatusPending, list[0].Status)
		assert.Equal(t, int64(0), f.balance(t, f.bob))
	})

	t.Run("RejectMovesNothing", func(t *testing.T) {
		f := newFixture(t)
		p, err := f.payments.CreatePayment(ctx, f.alice, service.PaymentInput{GiverID: f.bob.UserID, AmountCents: 2000})
		require.NoError(t, err)

		rejected, err := f.payments.DecidePayment(ctx, f.admin, p.ID, domain.DecisionReject)
		require.NoError(t, err)
		assert.Equal(t, domain.FinanceStatusRejected, rejected.Status)
		assert.Equal(t, int64(0), f.balance(t, f.bob))
	})

	t.Run("StudentForbidden", func(t *testing.T) {
		f := newFixture(t)
		p, err := f.payments.CreatePayment(ctx, f.alice, service.PaymentInput{GiverID: f.bob.UserID, AmountCents: 2000})
		require.NoError(t, err)
		_, err = f.payments.DecidePayment(ctx, f.bob, p.ID, domain.DecisionApprove)
		assert.True(t, errors.Is(err, domain.ErrForbidden))
	})

	t.Run("MissingPayment", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.payments.DecidePayment(ctx, f.admin, 42, domain.DecisionApprove)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestRefundService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, f.alice, 5000)
	p, err := f.payments.CreatePayment(ctx, f.alice, service.PaymentInput{GiverID: f.bob.UserID, AmountCents: 2000})
	require.NoError(t, err)

	_, err = f.refunds.CreateRefund(ctx, f.bob, service.RefundInput{PaymentID: p.ID})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = f.refunds.CreateRefund(ctx, f.alice, service.RefundInput{PaymentID: 999})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	rf, err := f.refunds.CreateRefund(ctx, f.alice, service.RefundInput{PaymentID: p.ID, Description: "wrong edition"})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), rf.AmountCents)
	assert.Equal(t, f.bob.UserID, rf.GiverID)

	_, err = f.refunds.CreateRefund(ctx, f.alice, service.RefundInput{PaymentID: p.ID})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	// The payment is still pending, so there is nothing to give back yet.
	_, err = f.refunds.DecideRefund(ctx, f.admin, rf.ID, domain.DecisionApprove)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	err = f.payments.DeletePayment(ctx, p.ID)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, err = f.payments.DecidePayment(ctx, f.admin, p.ID, domain.DecisionApprove)
	require.NoError(t, err)

	approved, err := f.refunds.DecideRefund(ctx, f.admin, rf.ID, domain.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, domain.FinanceStatusApproved, approved.Status)
	assert.Equal(t, int64(5000), f.balance(t, f.alice))
	assert.Equal(t, int64(0), f.balance(t, f.bob))

	mine, err := f.refunds.ListUserRefunds(ctx, f.bob, f.bob.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestRefundService_ConcurrentRequestsOpenOneRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, f.alice, 5000)
	p, err := f.payments.CreatePayment(ctx, f.alice, service.PaymentInput{GiverID: f.bob.UserID, AmountCents: 2000})
	require.NoError(t, err)
	_, err = f.payments.DecidePayment(ctx, f.admin, p.ID, domain.DecisionApprove)
	require.NoError(t, err)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.refunds.CreateRefund(ctx, f.alice, service.RefundInput{PaymentID: p.ID})
		}()
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, created)

	refunds, err := f.refunds.ListUserRefunds(ctx, f.alice, f.alice.UserID)
	require.NoError(t, err)
	require.Len(t, refunds, 1)

	_, err = f.refunds.DecideRefund(ctx, f.admin, refunds[0].ID, domain.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), f.balance(t, f.alice))
}

func TestFineService_AssessOverdueFines(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addBook(t, "MATH-101", 1500, 3)

	order, err := f.orders.CreateOrder(ctx, f.alice, validOrder(service.OrderItemInput{BookCode: "MATH-101", Quantity: 1}))
	require.NoError(t, err)
	_, err = f.orders.ChangeStatus(ctx, f.admin, order.ID, domain.OrderStatusApproved)
	require.NoError(t, err)

	now := time.Now()
	report, err := f.fines.AssessOverdueFines(ctx, now.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, service.AssessmentReport{}, *report)

	report, err = f.fines.AssessOverdueFines(ctx, now.AddDate(0, 0, 20))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	fines, err := f.fines.ListUserFines(ctx, f.alice, f.alice.UserID)
	require.NoError(t, err)
	require.Len(t, fines, 1)
	assert.Equal(t, int32(6), fines[0].OverdueDays)
	assert.Equal(t, int64(600), fines[0].AmountCents)
	assert.Equal(t, "MATH-101", fines[0].BookCode)

	report, err = f.fines.AssessOverdueFines(ctx, now.AddDate(0, 0, 22))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)

	report, err = f.fines.AssessOverdueFines(ctx, now.AddDate(0, 0, 22))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)

	fine, err := f.fines.DecideFine(ctx, f.admin, fines[0].ID, domain.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, int64(800), fine.AmountCents)
	assert.Equal(t, int64(-800), f.balance(t, f.alice))
	system, err := f.wallets.GetSystemWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(800), system.BalanceCents)

	// Only the days accrued since the approved fine are charged.
	report, err = f.fines.AssessOverdueFines(ctx, now.AddDate(0, 0, 25))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	fines, err = f.fines.ListUserFines(ctx, f.alice, f.alice.UserID)
	require.NoError(t, err)
	var pending *domain.Fine
	for i := range fines {
		if fines[i].Status == domain.FinanceStatusPending {
			pending = &fines[i]
		}
	}
	require.NotNil(t, pending)
	assert.Equal(t, int64(300), pending.AmountCents)

	_, err = f.fines.DecideFine(ctx, f.admin, pending.ID, domain.DecisionReject)
	require.NoError(t, err)
	report, err = f.fines.AssessOverdueFines(ctx, now.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Skipped)
}

func TestFineService_ReturnedOrdersAreNotFined(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addBook(t, "MATH-101", 1500, 3)

	order, err := f.orders.CreateOrder(ctx, f.alice, validOrder(service.OrderItemInput{BookCode: "MATH-101", Quantity: 1}))
	require.NoError(t, err)
	_, err = f.orders.ChangeStatus(ctx, f.admin, order.ID, domain.OrderStatusApproved)
	require.NoError(t, err)
	_, err = f.orders.MarkReturned(ctx, f.admin, order.ID)
	require.NoError(t, err)

	report, err := f.fines.AssessOverdueFines(ctx, time.Now().AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
}

func TestFineService_ManualFineAndReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.fines.CreateFine(ctx, f.alice, service.FineInput{UserID: f.bob.UserID, AmountCents: 100})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	fine, err := f.fines.CreateFine(ctx, f.admin, service.FineInput{UserID: f.bob.UserID, BookCode: "LOST-1", AmountCents: 2500})
	require.NoError(t, err)
	assert.Equal(t, domain.FinanceStatusPending, fine.Status)

	sent, err := f.fines.SendFineReminders(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	sent, err = f.fines.SendFineReminders(ctx, time.Now().AddDate(0, 0, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	notes, err := f.notes.ListForUser(ctx, f.bob, f.bob.UserID)
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	require.NoError(t, f.fines.DeleteFine(ctx, fine.ID))
	err = f.fines.DeleteFine(ctx, fine.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFinePolicy_Amount(t *testing.T) {
	p := service.FinePolicy{DailyRateCents: 100, MaxAmountCents: 1000}
	assert.Equal(t, int64(500), p.Amount(5))
	assert.Equal(t, int64(1000), p.Amount(30))
	assert.Equal(t, int64(3000), service.FinePolicy{DailyRateCents: 100}.Amount(30))
}
