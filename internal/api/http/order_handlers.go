package http

import (
	"net/http"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/service"
)

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in service.OrderInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.svc.Orders.CreateOrder(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))
	orders, err := h.svc.Orders.ListOrders(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, orders)
}

func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	orders, err := h.svc.Orders.ListUserOrders(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.svc.Orders.GetOrder(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, order)
}

// updateOrderRequest carries either a status change or an edit of a pending order.
type updateOrderRequest struct {
	Status *domain.OrderStatus `json:"status"`
	service.OrderInput
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var order *domain.Order
	if req.Status != nil {
		order, err = h.svc.Orders.ChangeStatus(r.Context(), actor(r), id, *req.Status)
	} else {
		order, err = h.svc.Orders.UpdateOrder(r.Context(), actor(r), id, req.OrderInput)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, order)
}

func (h *Handler) returnOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.svc.Orders.MarkReturned(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, order)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Orders.DeleteOrder(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}
