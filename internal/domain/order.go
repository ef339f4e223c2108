package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusApproved  OrderStatus = "Approved"
	OrderStatusRejected  OrderStatus = "Rejected"
	OrderStatusCancelled OrderStatus = "Cancelled"
	OrderStatusCompleted OrderStatus = "Completed"
)

// orderTransitions lists every legal status move. Anything absent is rejected.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:  {OrderStatusApproved, OrderStatusRejected, OrderStatusCancelled},
	OrderStatusApproved: {OrderStatusCompleted},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusRejected, OrderStatusCancelled, OrderStatusCompleted:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the order can only be deleted from here on.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled || s == OrderStatusRejected
}

// HoldsStock reports whether the order's items are reserved or out on loan
// rather than back in inventory. A recorded return ends the loan.
func (s OrderStatus) HoldsStock() bool {
	return s == OrderStatusPending || s == OrderStatusApproved || s == OrderStatusCompleted
}

type OrderItem struct {
	BookCode   string `json:"bookId"`
	ItemName   string `json:"itemName"`
	Quantity   int32  `json:"quantity"`
	PriceCents int64  `json:"priceCents"`
}

type Order struct {
	ID              int32       `json:"id"`
	OrderCode       string      `json:"orderId"`
	UserID          int32       `json:"userId"`
	CustomerName    string      `json:"customerName"`
	CustomerContact string      `json:"customerContact"`
	Items           []OrderItem `json:"items"`
	TotalItems      int32       `json:"totalItems"`
	TotalPriceCents int64       `json:"totalPriceCents"`
	Status          OrderStatus `json:"status"`
	ApprovedBy      *int32      `json:"approvedBy,omitempty"`
	RejectedBy      *int32      `json:"rejectedBy,omitempty"`
	DueDate         *time.Time  `json:"dueDate,omitempty"`
	ReturnedOn      *time.Time  `json:"returnedOn,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// Recalculate refreshes the totals from the item lines.
func (o *Order) Recalculate() {
	o.TotalItems = 0
	o.TotalPriceCents = 0
	for _, it := range o.Items {
		o.TotalItems += it.Quantity
		o.TotalPriceCents += int64(it.Quantity) * it.PriceCents
	}
}

// OverdueDays returns how many whole days past the due date the order is at asOf.
// Returned orders and orders without a due date are never overdue.
func (o *Order) OverdueDays(asOf time.Time) int32 {
	if o.DueDate == nil || o.ReturnedOn != nil {
		return 0
	}
	due := truncateDay(*o.DueDate)
	today := truncateDay(asOf)
	if !today.After(due) {
		return 0
	}
	return int32(today.Sub(due).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
