package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"bookbridge-backend/internal/domain"
)

type userRepository struct{ h *handle }

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	return r.h.run(func(d *data) error {
		for _, existing := range d.users {
			if strings.EqualFold(existing.Email, u.Email) {
				return domain.NewConflictError("user already exists")
			}
		}
		now := time.Now().UTC()
		u.ID = d.next("users")
		u.CreatedOn = now
		u.UpdatedOn = now
		d.users[u.ID] = *u
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	var out domain.User
	err := r.h.run(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return domain.NewNotFoundError("user", id)
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out domain.User
	err := r.h.run(func(d *data) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, email) {
				out = u
				return nil
			}
		}
		return domain.NewNotFoundError("user", email)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := r.h.run(func(d *data) error {
		for _, u := range d.users {
			out = append(out, u)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

type bookRepository struct{ h *handle }

func (r *bookRepository) Create(ctx context.Context, b *domain.Book) error {
	return r.h.run(func(d *data) error {
		if _, ok := d.books[b.Code]; ok {
			return domain.NewConflictError("book already exists")
		}
		if b.GiverID != nil {
			if _, ok := d.users[*b.GiverID]; !ok {
				return domain.NewValidationError("book references a missing record", nil)
			}
		}
		now := time.Now().UTC()
		b.ID = d.next("books")
		b.CreatedOn = now
		b.UpdatedOn = now
		d.books[b.Code] = *b
		return nil
	})
}

func (r *bookRepository) GetByCode(ctx context.Context, code string) (*domain.Book, error) {
	var out domain.Book
	err := r.h.run(func(d *data) error {
		b, ok := d.books[code]
		if !ok {
			return domain.NewNotFoundError("book", code)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *bookRepository) List(ctx context.Context) ([]domain.Book, error) {
	var out []domain.Book
	err := r.h.run(func(d *data) error {
		for _, b := range d.books {
			out = append(out, b)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title == out[j].Title {
			return out[i].ID < out[j].ID
		}
		return out[i].Title < out[j].Title
	})
	return out, err
}

func (r *bookRepository) SetStock(ctx context.Context, code string, stock int32) error {
	if stock < 0 {
		return domain.NewValidationError("book violates a constraint", nil)
	}
	return r.adjust(code, func(b *domain.Book) error {
		b.Stock = stock
		return nil
	})
}

func (r *bookRepository) Reserve(ctx context.Context, code string, qty int32) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return r.adjust(code, func(b *domain.Book) error {
		if b.Stock < qty {
			return domain.ErrInsufficientStock
		}
		b.Stock -= qty
		return nil
	})
}

func (r *bookRepository) Release(ctx context.Context, code string, qty int32) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return r.adjust(code, func(b *domain.Book) error {
		b.Stock += qty
		return nil
	})
}

func (r *bookRepository) adjust(code string, fn func(b *domain.Book) error) error {
	return r.h.run(func(d *data) error {
		b, ok := d.books[code]
		if !ok {
			return domain.NewNotFoundError("book", code)
		}
		if err := fn(&b); err != nil {
			return err
		}
		b.UpdatedOn = time.Now().UTC()
		d.books[code] = b
		return nil
	})
}
