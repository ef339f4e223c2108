package http

import (
	"net/http"
	"strconv"
)

type balanceRequest struct {
	DeltaCents int64  `json:"deltaCents"`
	Reason     string `json:"reason"`
}

func (h *Handler) listWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.svc.Wallets.ListWallets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, wallets)
}

func (h *Handler) getUserWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	wallet, err := h.svc.Wallets.GetUserWallet(r.Context(), actor(r), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, wallet)
}

func (h *Handler) listWalletEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 32)
	entries, err := h.svc.Wallets.ListEntries(r.Context(), actor(r), userID, int32(limit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, entries)
}

func (h *Handler) adjustUserBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req balanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	wallet, err := h.svc.Wallets.AdjustUserBalance(r.Context(), actor(r), userID, req.DeltaCents, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, wallet)
}

func (h *Handler) getSystemWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.svc.Wallets.GetSystemWallet(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, wallet)
}

func (h *Handler) adjustSystemBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	wallet, err := h.svc.Wallets.AdjustSystemBalance(r.Context(), actor(r), req.DeltaCents, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, wallet)
}

func (h *Handler) resetSystemBalance(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.svc.Wallets.ResetSystemBalance(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, wallet)
}
