package domain

import "time"

// Book is the inventory record an order line is checked against. Code is the
// free-text book id students see on listings.
type Book struct {
	ID         int32     `json:"id"`
	Code       string    `json:"bookId"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	PriceCents int64     `json:"priceCents"`
	Stock      int32     `json:"stock"`
	GiverID    *int32    `json:"giverId,omitempty"`
	CreatedOn  time.Time `json:"createdOn"`
	UpdatedOn  time.Time `json:"updatedOn"`
}
