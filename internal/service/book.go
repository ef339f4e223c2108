package service

import (
	"context"
	"strings"

	"bookbridge-backend/internal/cache"
	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/repository"
	"bookbridge-backend/internal/validation"
)

type bookService struct {
	store   repository.Store
	catalog cache.CatalogCache
}

func NewBookService(store repository.Store, catalog cache.CatalogCache) BookService {
	return &bookService{store: store, catalog: catalog}
}

func (s *bookService) ListCatalog(ctx context.Context) ([]domain.Book, error) {
	if books, ok := s.catalog.GetCatalog(ctx); ok {
		return books, nil
	}
	books, err := s.store.Repos().Books.List(ctx)
	if err != nil {
		return nil, err
	}
	s.catalog.SetCatalog(ctx, books)
	return books, nil
}

func (s *bookService) GetBook(ctx context.Context, code string) (*domain.Book, error) {
	return s.store.Repos().Books.GetByCode(ctx, code)
}

func (s *bookService) AddBook(ctx context.Context, actor Actor, in BookInput) (*domain.Book, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Title = strings.TrimSpace(in.Title)

	v := validation.Violations{}
	validation.Required("bookId", in.Code, v)
	validation.Required("title", in.Title, v)
	validation.NonNegative("priceCents", in.PriceCents, v)
	validation.NonNegative("stock", int64(in.Stock), v)
	if err := v.Err("invalid book"); err != nil {
		return nil, err
	}

	giver := in.GiverID
	if !actor.IsAdmin() {
		uid := actor.UserID
		giver = &uid
	}
	book := &domain.Book{
		Code:       in.Code,
		Title:      in.Title,
		Author:     strings.TrimSpace(in.Author),
		PriceCents: in.PriceCents,
		Stock:      in.Stock,
		GiverID:    giver,
	}
	if err := s.store.Repos().Books.Create(ctx, book); err != nil {
		return nil, err
	}
	s.catalog.Invalidate(ctx)
	return book, nil
}

func (s *bookService) SetStock(ctx context.Context, code string, stock int32) (*domain.Book, error) {
	if stock < 0 {
		return nil, domain.NewValidationError("invalid stock", map[string]string{"stock": "must_not_be_negative"})
	}
	repos := s.store.Repos()
	if err := repos.Books.SetStock(ctx, code, stock); err != nil {
		return nil, err
	}
	s.catalog.Invalidate(ctx)
	return repos.Books.GetByCode(ctx, code)
}
