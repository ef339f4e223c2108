package http

import (
	"net/http"
	"strings"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/service"
)

// decisionFromPath reads the verdict from the trailing /approve or /reject segment.
func decisionFromPath(r *http.Request) domain.Decision {
	if strings.HasSuffix(r.URL.Path, "/approve") {
		return domain.DecisionApprove
	}
	return domain.DecisionReject
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.svc.Payments.ListPayments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, payments)
}

func (h *Handler) listUserPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := h.svc.Payments.ListUserPayments(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, payments)
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var in service.PaymentInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := h.svc.Payments.CreatePayment(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, payment)
}

func (h *Handler) decidePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := h.svc.Payments.DecidePayment(r.Context(), actor(r), id, decisionFromPath(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, payment)
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Payments.DeletePayment(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *Handler) listRefunds(w http.ResponseWriter, r *http.Request) {
	refunds, err := h.svc.Refunds.ListRefunds(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, refunds)
}

func (h *Handler) listUserRefunds(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	refunds, err := h.svc.Refunds.ListUserRefunds(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, refunds)
}

func (h *Handler) createRefund(w http.ResponseWriter, r *http.Request) {
	var in service.RefundInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	refund, err := h.svc.Refunds.CreateRefund(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, refund)
}

func (h *Handler) decideRefund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	refund, err := h.svc.Refunds.DecideRefund(r.Context(), actor(r), id, decisionFromPath(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, refund)
}

func (h *Handler) deleteRefund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Refunds.DeleteRefund(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *Handler) listFines(w http.ResponseWriter, r *http.Request) {
	fines, err := h.svc.Fines.ListFines(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, fines)
}

func (h *Handler) listUserFines(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	fines, err := h.svc.Fines.ListUserFines(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, fines)
}

func (h *Handler) createFine(w http.ResponseWriter, r *http.Request) {
	var in service.FineInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	fine, err := h.svc.Fines.CreateFine(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, fine)
}

func (h *Handler) decideFine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	fine, err := h.svc.Fines.DecideFine(r.Context(), actor(r), id, decisionFromPath(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, fine)
}

func (h *Handler) deleteFine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Fines.DeleteFine(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}
