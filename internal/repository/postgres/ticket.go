package postgres

import (
	"context"
	"time"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/repository"
)

type ticketRepository struct {
	db DBTX
}

func NewTicketRepository(db DBTX) repository.TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, user_id, subject, message, reply, status, created_on, updated_on`

func (r *ticketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	query := `INSERT INTO tickets (user_id, subject, message, reply, status, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	now := time.Now().UTC()
	t.CreatedOn = now
	t.UpdatedOn = now
	err := r.db.QueryRowContext(ctx, query, t.UserID, t.Subject, t.Message, t.Reply, t.Status, now, now).Scan(&t.ID)
	return mapError(err, "ticket", t.UserID)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int32) (*domain.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "ticket", id)
	}
	return t, nil
}

func (r *ticketRepository) Update(ctx context.Context, t *domain.Ticket) error {
	t.UpdatedOn = time.Now().UTC()
	query := `UPDATE tickets SET subject = $1, message = $2, reply = $3, status = $4, updated_on = $5 WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query, t.Subject, t.Message, t.Reply, t.Status, t.UpdatedOn, t.ID)
	if err != nil {
		return mapError(err, "ticket", t.ID)
	}
	return affectedOne(res, "ticket", t.ID)
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	return r.query(ctx, `SELECT `+ticketColumns+` FROM tickets ORDER BY created_on DESC`)
}

func (r *ticketRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Ticket, error) {
	return r.query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE user_id = $1 ORDER BY created_on DESC`, userID)
}

func (r *ticketRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "ticket", id)
	}
	return affectedOne(res, "ticket", id)
}

func (r *ticketRepository) query(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "ticket", "list")
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, mapError(err, "ticket", "list")
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	t := &domain.Ticket{}
	err := row.Scan(&t.ID, &t.UserID, &t.Subject, &t.Message, &t.Reply, &t.Status, &t.CreatedOn, &t.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return t, nil
}
