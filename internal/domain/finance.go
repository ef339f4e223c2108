package domain

import "time"

// FinanceStatus is shared by payments, refunds and fines. Moves are one-way:
// PENDING -> APPROVED or PENDING -> REJECTED.
type FinanceStatus string

const (
	FinanceStatusPending  FinanceStatus = "PENDING"
	FinanceStatusApproved FinanceStatus = "APPROVED"
	FinanceStatusRejected FinanceStatus = "REJECTED"
)

func (s FinanceStatus) Valid() bool {
	return s == FinanceStatusPending || s == FinanceStatusApproved || s == FinanceStatusRejected
}

// Decision is an admin verdict on a pending finance record.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) Status() FinanceStatus {
	if d == DecisionApprove {
		return FinanceStatusApproved
	}
	return FinanceStatusRejected
}

type Payment struct {
	ID          int32         `json:"id"`
	PaymentCode string        `json:"paymentId"`
	CodeID      string        `json:"codeId"`
	BuyerID     int32         `json:"buyerId"`
	GiverID     int32         `json:"giverId"`
	BookCode    string        `json:"bookId"`
	AmountCents int64         `json:"amountCents"`
	Status      FinanceStatus `json:"status"`
	Date        time.Time     `json:"date"`
	DecidedBy   *int32        `json:"decidedBy,omitempty"`
	DecidedOn   *time.Time    `json:"decidedOn,omitempty"`
}

type Refund struct {
	ID          int32         `json:"id"`
	RefundCode  string        `json:"refundId"`
	PaymentID   int32         `json:"paymentId"`
	BuyerID     int32         `json:"buyerId"`
	GiverID     int32         `json:"giverId"`
	Description string        `json:"description"`
	AmountCents int64         `json:"amountCents"`
	Status      FinanceStatus `json:"status"`
	RequestDate time.Time     `json:"requestDate"`
	DecidedBy   *int32        `json:"decidedBy,omitempty"`
	DecidedOn   *time.Time    `json:"decidedOn,omitempty"`
}

type Fine struct {
	ID          int32         `json:"id"`
	UserID      int32         `json:"userId"`
	BookCode    string        `json:"bookId,omitempty"`
	OrderID     *int32        `json:"orderId,omitempty"`
	OverdueDays int32         `json:"overdueDays"`
	AmountCents int64         `json:"amountCents"`
	Status      FinanceStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	DecidedBy   *int32        `json:"decidedBy,omitempty"`
	DecidedOn   *time.Time    `json:"decidedOn,omitempty"`
}
