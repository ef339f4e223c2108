package domain

import "time"

type WalletType string

const (
	WalletTypeUser   WalletType = "USER"
	WalletTypeSystem WalletType = "SYSTEM"
)

type Wallet struct {
	ID           int32      `json:"id"`
	UserID       *int32     `json:"userId"` // nil for the system wallet
	BalanceCents int64      `json:"balanceCents"`
	Type         WalletType `json:"walletType"`
	CreatedOn    time.Time  `json:"createdOn"`
	UpdatedOn    time.Time  `json:"updatedOn"`
}

type EntryType string

const (
	EntryTypePaymentDebit  EntryType = "PAYMENT_DEBIT"
	EntryTypePaymentCredit EntryType = "PAYMENT_CREDIT"
	EntryTypeRefundDebit   EntryType = "REFUND_DEBIT"
	EntryTypeRefundCredit  EntryType = "REFUND_CREDIT"
	EntryTypeFineDebit     EntryType = "FINE_DEBIT"
	EntryTypeFineCredit    EntryType = "FINE_CREDIT"
	EntryTypeAdjustment    EntryType = "ADJUSTMENT"
	EntryTypeReset         EntryType = "RESET"
)

// WalletEntry is one immutable balance change. The wallet balance always equals
// the sum of its entries.
type WalletEntry struct {
	ID                int32     `json:"id"`
	WalletID          int32     `json:"walletId"`
	AmountCents       int64     `json:"amountCents"` // positive for credit, negative for debit
	Type              EntryType `json:"entryType"`
	Reference         string    `json:"reference"`
	BalanceAfterCents int64     `json:"balanceAfterCents"`
	CreatedOn         time.Time `json:"createdOn"`
}

// WalletMovement asks the wallet store to apply a signed delta and record it.
type WalletMovement struct {
	WalletID      int32
	AmountCents   int64
	Type          EntryType
	Reference     string
	AllowNegative bool
}
