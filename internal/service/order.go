package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"bookbridge-backend/internal/cache"
	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/events"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/metrics"
	"bookbridge-backend/internal/repository"
	"bookbridge-backend/internal/validation"
)

type orderService struct {
	store      repository.Store
	catalog    cache.CatalogCache
	notifier   *notifier
	loanPeriod int
	now        func() time.Time
}

func NewOrderService(
	store repository.Store,
	catalog cache.CatalogCache,
	emailSvc EmailService,
	publisher events.Publisher,
	loanPeriodDays int,
) OrderService {
	return &orderService{
		store:      store,
		catalog:    catalog,
		notifier:   newNotifier(store, emailSvc, publisher),
		loanPeriod: loanPeriodDays,
		now:        time.Now,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, actor Actor, in OrderInput) (*domain.Order, error) {
	logger.EnterMethod("orderService.CreateOrder", "userID", actor.UserID, "items", len(in.Items))

	in, err := normalizeOrderInput(in, false)
	if err != nil {
		logger.ExitMethodWithError("orderService.CreateOrder", err)
		return nil, err
	}

	order := &domain.Order{
		OrderCode:       newCode("ORD"),
		UserID:          actor.UserID,
		CustomerName:    in.CustomerName,
		CustomerContact: in.CustomerContact,
		Status:          domain.OrderStatusPending,
	}
	fx := &effects{}
	err = s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		items, err := reserveItems(ctx, tx, in.Items)
		if err != nil {
			return err
		}
		order.Items = items
		order.Recalculate()
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}
		fx.event(events.OrderCreated, order.OrderCode, order)
		return s.notifier.notify(ctx, tx, fx, order.UserID, "Order placed",
			fmt.Sprintf("Your order %s for %d item(s) is pending approval.", order.OrderCode, order.TotalItems),
			map[string]string{"orderId": order.OrderCode, "status": string(order.Status)})
	})
	if err != nil {
		logger.ExitMethodWithError("orderService.CreateOrder", err, "userID", actor.UserID)
		return nil, err
	}

	s.catalog.Invalidate(ctx)
	s.notifier.flush(ctx, fx)
	logger.ExitMethod("orderService.CreateOrder", "orderID", order.ID, "orderCode", order.OrderCode)
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor Actor, id int32) (*domain.Order, error) {
	order, err := s.store.Repos().Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, domain.NewForbiddenError("cannot view another user's order")
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if status != "" && !status.Valid() {
		return nil, domain.NewValidationError("invalid status filter", map[string]string{"status": "invalid"})
	}
	return s.store.Repos().Orders.List(ctx, status)
}

func (s *orderService) ListUserOrders(ctx context.Context, actor Actor, userID int32) ([]domain.Order, error) {
	if !actor.CanAccess(userID) {
		return nil, domain.NewForbiddenError("cannot view another user's orders")
	}
	return s.store.Repos().Orders.ListByUser(ctx, userID)
}

func (s *orderService) UpdateOrder(ctx context.Context, actor Actor, id int32, in OrderInput) (*domain.Order, error) {
	in, err := normalizeOrderInput(in, true)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	fx := &effects{}
	err = s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		o, err := tx.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.UserID != actor.UserID {
			return domain.NewForbiddenError("only the owner can edit an order")
		}
		if o.Status != domain.OrderStatusPending {
			return &domain.Error{Kind: domain.KindInvalidTransition, Message: fmt.Sprintf("order %s is %s and can no longer be edited", o.OrderCode, o.Status)}
		}

		if in.CustomerName != "" {
			o.CustomerName = in.CustomerName
		}
		if in.CustomerContact != "" {
			o.CustomerContact = in.CustomerContact
		}
		if in.Items != nil {
			if err := releaseItems(ctx, tx, o.Items); err != nil {
				return err
			}
			items, err := reserveItems(ctx, tx, in.Items)
			if err != nil {
				return err
			}
			o.Items = items
			o.Recalculate()
		}
		if err := tx.Orders.Update(ctx, o); err != nil {
			return err
		}
		fx.event(events.OrderUpdated, o.OrderCode, o)
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.Items != nil {
		s.catalog.Invalidate(ctx)
	}
	s.notifier.flush(ctx, fx)
	return order, nil
}

func (s *orderService) ChangeStatus(ctx context.Context, actor Actor, id int32, status domain.OrderStatus) (*domain.Order, error) {
	logger.EnterMethod("orderService.ChangeStatus", "orderID", id, "status", status, "actorID", actor.UserID)

	if !status.Valid() {
		return nil, domain.NewValidationError("invalid status", map[string]string{"status": "invalid"})
	}

	var order *domain.Order
	var released bool
	fx := &effects{}
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		o, err := tx.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanAccess(o.UserID) {
			return domain.NewForbiddenError("cannot change another user's order")
		}
		if !o.Status.CanTransitionTo(status) {
			return domain.NewInvalidTransitionError("order", o.Status, status)
		}
		if status != domain.OrderStatusCancelled && !actor.IsAdmin() {
			return domain.NewForbiddenError(fmt.Sprintf("only admins can mark an order %s", status))
		}

		prev := o.Status
		uid := actor.UserID
		switch status {
		case domain.OrderStatusApproved:
			due := startOfDay(s.now()).AddDate(0, 0, s.loanPeriod)
			o.ApprovedBy = &uid
			o.DueDate = &due
		case domain.OrderStatusRejected:
			o.RejectedBy = &uid
		}
		if prev.HoldsStock() && !status.HoldsStock() {
			if err := releaseItems(ctx, tx, o.Items); err != nil {
				return err
			}
			released = true
		}
		o.Status = status
		if err := tx.Orders.Update(ctx, o); err != nil {
			return err
		}

		fx.event(events.OrderStatusChanged, o.OrderCode, map[string]any{"orderId": o.OrderCode, "from": prev, "to": status, "actorId": uid})
		order = o
		return s.notifier.notify(ctx, tx, fx, o.UserID, "Order "+strings.ToLower(string(status)),
			orderStatusMessage(o), map[string]string{"orderId": o.OrderCode, "status": string(status)})
	})
	if err != nil {
		logger.ExitMethodWithError("orderService.ChangeStatus", err, "orderID", id)
		return nil, err
	}

	metrics.RecordOrderTransition(string(status))
	if released {
		s.catalog.Invalidate(ctx)
	}
	s.notifier.flush(ctx, fx)
	logger.ExitMethod("orderService.ChangeStatus", "orderID", id, "status", status)
	return order, nil
}

func (s *orderService) MarkReturned(ctx context.Context, actor Actor, id int32) (*domain.Order, error) {
	if !actor.IsAdmin() {
		return nil, domain.NewForbiddenError("only admins can record returns")
	}

	var order *domain.Order
	fx := &effects{}
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		o, err := tx.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != domain.OrderStatusApproved && o.Status != domain.OrderStatusCompleted {
			return &domain.Error{Kind: domain.KindInvalidTransition, Message: fmt.Sprintf("order %s is %s and cannot be returned", o.OrderCode, o.Status)}
		}
		if o.ReturnedOn != nil {
			return domain.NewConflictError(fmt.Sprintf("order %s was already returned", o.OrderCode))
		}
		if err := releaseItems(ctx, tx, o.Items); err != nil {
			return err
		}
		now := s.now().UTC()
		o.ReturnedOn = &now
		if err := tx.Orders.Update(ctx, o); err != nil {
			return err
		}
		fx.event(events.OrderReturned, o.OrderCode, map[string]any{"orderId": o.OrderCode, "returnedOn": now})
		order = o
		return s.notifier.notify(ctx, tx, fx, o.UserID, "Books returned",
			fmt.Sprintf("We recorded the return of order %s. Thank you!", o.OrderCode),
			map[string]string{"orderId": o.OrderCode})
	})
	if err != nil {
		return nil, err
	}
	s.catalog.Invalidate(ctx)
	s.notifier.flush(ctx, fx)
	return order, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, actor Actor, id int32) error {
	var released bool
	fx := &effects{}
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		o, err := tx.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanAccess(o.UserID) {
			return domain.NewForbiddenError("cannot delete another user's order")
		}
		if o.Status == domain.OrderStatusApproved {
			return &domain.Error{Kind: domain.KindInvalidTransition, Message: fmt.Sprintf("order %s is approved and cannot be deleted", o.OrderCode)}
		}
		// Books of an approved or completed order stay out until MarkReturned
		// restocks them, so deleting the record never touches inventory.
		if o.Status == domain.OrderStatusPending {
			if err := releaseItems(ctx, tx, o.Items); err != nil {
				return err
			}
			released = true
		}
		fx.event(events.OrderDeleted, o.OrderCode, map[string]any{"orderId": o.OrderCode, "status": o.Status})
		return tx.Orders.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	if released {
		s.catalog.Invalidate(ctx)
	}
	s.notifier.flush(ctx, fx)
	return nil
}

// normalizeOrderInput trims, validates and merges duplicate book lines. With
// partial set, empty fields are accepted and left for the caller to keep.
func normalizeOrderInput(in OrderInput, partial bool) (OrderInput, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerContact = strings.TrimSpace(in.CustomerContact)

	v := validation.Violations{}
	if !partial || in.CustomerName != "" {
		validation.Length("customerName", in.CustomerName, 2, 50, v)
	}
	if !partial || in.CustomerContact != "" {
		validation.Digits("customerContact", in.CustomerContact, 10, v)
	}
	if !partial || in.Items != nil {
		if len(in.Items) == 0 {
			v["items"] = "required"
		}
		for i, it := range in.Items {
			if strings.TrimSpace(it.BookCode) == "" {
				v[fmt.Sprintf("items[%d].bookId", i)] = "required"
			}
			if it.Quantity <= 0 {
				v[fmt.Sprintf("items[%d].quantity", i)] = "must_be_positive"
			}
		}
	}
	if err := v.Err("invalid order"); err != nil {
		return in, err
	}
	if in.Items != nil {
		merged, err := mergeItems(in.Items)
		if err != nil {
			return in, err
		}
		in.Items = merged
	}
	return in, nil
}

// mergeItems folds duplicate book lines into one. Quantities are summed in
// int64 so a merged line that no longer fits an int32 is rejected.
func mergeItems(items []OrderItemInput) ([]OrderItemInput, error) {
	totals := make([]int64, 0, len(items))
	codes := make([]string, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		code := strings.TrimSpace(it.BookCode)
		if i, ok := index[code]; ok {
			totals[i] += int64(it.Quantity)
			continue
		}
		index[code] = len(codes)
		codes = append(codes, code)
		totals = append(totals, int64(it.Quantity))
	}

	merged := make([]OrderItemInput, len(codes))
	for i, code := range codes {
		if totals[i] <= 0 || totals[i] > math.MaxInt32 {
			return nil, domain.NewValidationError("invalid order",
				map[string]string{fmt.Sprintf("items[%d].quantity", i): "out_of_range"})
		}
		merged[i] = OrderItemInput{BookCode: code, Quantity: int32(totals[i])}
	}
	return merged, nil
}

// reserveItems prices each line from the catalog and takes its stock.
func reserveItems(ctx context.Context, tx repository.Repositories, items []OrderItemInput) ([]domain.OrderItem, error) {
	out := make([]domain.OrderItem, 0, len(items))
	for i, it := range items {
		book, err := tx.Books.GetByCode(ctx, it.BookCode)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewValidationError("unknown book",
					map[string]string{fmt.Sprintf("items[%d].bookId", i): "unknown_book"})
			}
			return nil, err
		}
		if err := tx.Books.Reserve(ctx, it.BookCode, it.Quantity); err != nil {
			return nil, fmt.Errorf("reserve %s: %w", it.BookCode, err)
		}
		out = append(out, domain.OrderItem{
			BookCode:   book.Code,
			ItemName:   book.Title,
			Quantity:   it.Quantity,
			PriceCents: book.PriceCents,
		})
	}
	return out, nil
}

func releaseItems(ctx context.Context, tx repository.Repositories, items []domain.OrderItem) error {
	for _, it := range items {
		if err := tx.Books.Release(ctx, it.BookCode, it.Quantity); err != nil {
			return fmt.Errorf("release %s: %w", it.BookCode, err)
		}
	}
	return nil
}

func orderStatusMessage(o *domain.Order) string {
	switch o.Status {
	case domain.OrderStatusApproved:
		return fmt.Sprintf("Your order %s was approved. Please return the books by %s.", o.OrderCode, o.DueDate.Format("2006-01-02"))
	case domain.OrderStatusRejected:
		return fmt.Sprintf("Your order %s was rejected.", o.OrderCode)
	case domain.OrderStatusCancelled:
		return fmt.Sprintf("Your order %s was cancelled.", o.OrderCode)
	default:
		return fmt.Sprintf("Your order %s is now %s.", o.OrderCode, o.Status)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
