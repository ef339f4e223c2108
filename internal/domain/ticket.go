package domain

import "time"

type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusAnswered TicketStatus = "ANSWERED"
	TicketStatusClosed   TicketStatus = "CLOSED"
)

// Ticket is a helpdesk request raised by a student and answered by an admin.
type Ticket struct {
	ID        int32        `json:"id"`
	UserID    int32        `json:"userId"`
	Subject   string       `json:"subject"`
	Message   string       `json:"message"`
	Reply     string       `json:"reply,omitempty"`
	Status    TicketStatus `json:"status"`
	CreatedOn time.Time    `json:"createdOn"`
	UpdatedOn time.Time    `json:"updatedOn"`
}
