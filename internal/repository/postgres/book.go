package postgres

import (
	"context"
	"time"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/repository"
)

type bookRepository struct {
	db DBTX
}

func NewBookRepository(db DBTX) repository.BookRepository {
	return &bookRepository{db: db}
}

const bookColumns = `id, code, title, author, price_cents, stock, giver_id, created_on, updated_on`

func (r *bookRepository) Create(ctx context.Context, b *domain.Book) error {
	query := `INSERT INTO books (code, title, author, price_cents, stock, giver_id, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	now := time.Now().UTC()
	b.CreatedOn = now
	b.UpdatedOn = now
	err := r.db.QueryRowContext(ctx, query, b.Code, b.Title, b.Author, b.PriceCents, b.Stock, b.GiverID, now, now).Scan(&b.ID)
	return mapError(err, "book", b.Code)
}

func (r *bookRepository) GetByCode(ctx context.Context, code string) (*domain.Book, error) {
	b := &domain.Book{}
	query := `SELECT ` + bookColumns + ` FROM books WHERE code = $1`
	err := r.db.QueryRowContext(ctx, query, code).Scan(&b.ID, &b.Code, &b.Title, &b.Author, &b.PriceCents, &b.Stock, &b.GiverID, &b.CreatedOn, &b.UpdatedOn)
	if err != nil {
		return nil, mapError(err, "book", code)
	}
	return b, nil
}

func (r *bookRepository) List(ctx context.Context) ([]domain.Book, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY title`)
	if err != nil {
		return nil, mapError(err, "book", "list")
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(&b.ID, &b.Code, &b.Title, &b.Author, &b.PriceCents, &b.Stock, &b.GiverID, &b.CreatedOn, &b.UpdatedOn); err != nil {
			return nil, mapError(err, "book", "list")
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (r *bookRepository) SetStock(ctx context.Context, code string, stock int32) error {
	res, err := r.db.ExecContext(ctx, `UPDATE books SET stock = $1, updated_on = $2 WHERE code = $3`, stock, time.Now().UTC(), code)
	if err != nil {
		return mapError(err, "book", code)
	}
	return affectedOne(res, "book", code)
}

func (r *bookRepository) Reserve(ctx context.Context, code string, qty int32) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	logger.DatabaseCall("UPDATE", "books.reserve", "code", code, "qty", qty)
	query := `UPDATE books SET stock = stock - $1, updated_on = $2 WHERE code = $3 AND stock >= $1`
	res, err := r.db.ExecContext(ctx, query, qty, time.Now().UTC(), code)
	if err != nil {
		return mapError(err, "book", code)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err, "code", code)
	if err != nil {
		return mapError(err, "book", code)
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetByCode(ctx, code); err != nil {
		return err
	}
	return domain.ErrInsufficientStock
}

func (r *bookRepository) Release(ctx context.Context, code string, qty int32) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	res, err := r.db.ExecContext(ctx, `UPDATE books SET stock = stock + $1, updated_on = $2 WHERE code = $3`, qty, time.Now().UTC(), code)
	if err != nil {
		return mapError(err, "book", code)
	}
	return affectedOne(res, "book", code)
}
