package service

import (
	"context"
	"fmt"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/repository"
)

// checkDecision validates a requested verdict and returns the status it leads to.
func checkDecision(actor Actor, decision domain.Decision) (domain.FinanceStatus, error) {
	if !actor.IsAdmin() {
		return "", domain.NewForbiddenError("only admins can decide finance records")
	}
	if decision != domain.DecisionApprove && decision != domain.DecisionReject {
		return "", domain.NewValidationError("invalid decision", map[string]string{"decision": "invalid"})
	}
	return decision.Status(), nil
}

// alreadyDecided applies the policy for records that are no longer pending:
// repeating the same verdict is a no-op, the opposite one is rejected.
func alreadyDecided(resource string, current, want domain.FinanceStatus) error {
	if current == want {
		return nil
	}
	return domain.NewInvalidTransitionError(resource, current, want)
}

// moveUserFunds applies delta to the user's wallet, creating it at zero first if needed.
func moveUserFunds(ctx context.Context, tx repository.Repositories, fx *effects, userID int32, delta int64, typ domain.EntryType, ref string, allowNegative bool) error {
	w, err := tx.Wallets.GetOrCreateForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("wallet for user %d: %w", userID, err)
	}
	return applyMovement(ctx, tx, fx, w.ID, delta, typ, ref, allowNegative)
}

func moveSystemFunds(ctx context.Context, tx repository.Repositories, fx *effects, delta int64, typ domain.EntryType, ref string, allowNegative bool) error {
	w, err := tx.Wallets.GetOrCreateSystem(ctx)
	if err != nil {
		return fmt.Errorf("system wallet: %w", err)
	}
	return applyMovement(ctx, tx, fx, w.ID, delta, typ, ref, allowNegative)
}

func applyMovement(ctx context.Context, tx repository.Repositories, fx *effects, walletID int32, delta int64, typ domain.EntryType, ref string, allowNegative bool) error {
	entry, err := tx.Wallets.Apply(ctx, domain.WalletMovement{
		WalletID:      walletID,
		AmountCents:   delta,
		Type:          typ,
		Reference:     ref,
		AllowNegative: allowNegative,
	})
	if err != nil {
		return err
	}
	fx.entries = append(fx.entries, *entry)
	return nil
}
