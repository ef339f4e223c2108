package service

import (
	"context"
	"strings"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/events"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/repository"
)

type walletService struct {
	store    repository.Store
	notifier *notifier
}

func NewWalletService(store repository.Store, emailSvc EmailService, publisher events.Publisher) WalletService {
	return &walletService{store: store, notifier: newNotifier(store, emailSvc, publisher)}
}

func (s *walletService) ListWallets(ctx context.Context) ([]domain.Wallet, error) {
	return s.store.Repos().Wallets.List(ctx)
}

func (s *walletService) GetUserWallet(ctx context.Context, actor Actor, userID int32) (*domain.Wallet, error) {
	if !actor.CanAccess(userID) {
		return nil, domain.NewForbiddenError("cannot view another user's wallet")
	}
	repos := s.store.Repos()
	if _, err := repos.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return repos.Wallets.GetOrCreateForUser(ctx, userID)
}

func (s *walletService) ListEntries(ctx context.Context, actor Actor, userID int32, limit int32) ([]domain.WalletEntry, error) {
	w, err := s.GetUserWallet(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	return s.store.Repos().Wallets.ListEntries(ctx, w.ID, limit)
}

func (s *walletService) AdjustUserBalance(ctx context.Context, actor Actor, userID int32, deltaCents int64, reason string) (*domain.Wallet, error) {
	if err := checkAdjustment(actor, deltaCents); err != nil {
		return nil, err
	}
	logger.Info("Adjusting user wallet", "userID", userID, "deltaCents", deltaCents, "actorID", actor.UserID)

	var out *domain.Wallet
	fx := &effects{}
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		if err := moveUserFunds(ctx, tx, fx, userID, deltaCents, domain.EntryTypeAdjustment, adjustmentRef(reason), false); err != nil {
			return err
		}
		w, err := tx.Wallets.GetOrCreateForUser(ctx, userID)
		if err != nil {
			return err
		}
		out = w
		fx.event(events.WalletAdjusted, idString(w.ID), map[string]any{"walletId": w.ID, "userId": userID, "deltaCents": deltaCents, "balanceCents": w.BalanceCents})
		return s.notifier.notify(ctx, tx, fx, userID, "Wallet updated",
			"Your wallet balance is now "+formatCents(w.BalanceCents)+".",
			map[string]string{"walletId": idString(w.ID)})
	})
	if err != nil {
		return nil, err
	}
	s.notifier.flush(ctx, fx)
	return out, nil
}

func (s *walletService) GetSystemWallet(ctx context.Context) (*domain.Wallet, error) {
	return s.store.Repos().Wallets.GetOrCreateSystem(ctx)
}

func (s *walletService) AdjustSystemBalance(ctx context.Context, actor Actor, deltaCents int64, reason string) (*domain.Wallet, error) {
	if err := checkAdjustment(actor, deltaCents); err != nil {
		return nil, err
	}
	return s.moveSystem(ctx, func(w *domain.Wallet) (int64, domain.EntryType) {
		return deltaCents, domain.EntryTypeAdjustment
	}, adjustmentRef(reason))
}

// ResetSystemBalance zeroes the system wallet with a single RESET entry.
func (s *walletService) ResetSystemBalance(ctx context.Context, actor Actor) (*domain.Wallet, error) {
	if !actor.IsAdmin() {
		return nil, domain.NewForbiddenError("only admins can reset the system wallet")
	}
	return s.moveSystem(ctx, func(w *domain.Wallet) (int64, domain.EntryType) {
		return -w.BalanceCents, domain.EntryTypeReset
	}, "reset by admin "+idString(actor.UserID))
}

func (s *walletService) moveSystem(ctx context.Context, delta func(w *domain.Wallet) (int64, domain.EntryType), ref string) (*domain.Wallet, error) {
	var out *domain.Wallet
	fx := &effects{}
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		w, err := tx.Wallets.GetOrCreateSystem(ctx)
		if err != nil {
			return err
		}
		amount, typ := delta(w)
		if amount != 0 {
			// A reset may start from a negative balance, so it is allowed to cross zero.
			if err := applyMovement(ctx, tx, fx, w.ID, amount, typ, ref, typ == domain.EntryTypeReset); err != nil {
				return err
			}
		}
		if out, err = tx.Wallets.GetOrCreateSystem(ctx); err != nil {
			return err
		}
		fx.event(events.WalletAdjusted, idString(out.ID), map[string]any{"walletId": out.ID, "deltaCents": amount, "balanceCents": out.BalanceCents})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.flush(ctx, fx)
	return out, nil
}

// maxAdjustmentCents caps a single manual adjustment in either direction.
const maxAdjustmentCents int64 = 1_000_000_000_000

func checkAdjustment(actor Actor, deltaCents int64) error {
	if !actor.IsAdmin() {
		return domain.NewForbiddenError("only admins can adjust balances")
	}
	if deltaCents == 0 {
		return domain.NewValidationError("invalid adjustment", map[string]string{"deltaCents": "must_not_be_zero"})
	}
	if deltaCents > maxAdjustmentCents || deltaCents < -maxAdjustmentCents {
		return domain.NewValidationError("invalid adjustment", map[string]string{"deltaCents": "out_of_range"})
	}
	return nil
}

func adjustmentRef(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "manual adjustment"
	}
	return reason
}
