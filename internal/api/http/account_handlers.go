package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"bookbridge-backend/internal/security"
	"bookbridge-backend/internal/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	var caller *service.Actor
	if security.ClaimsFromContext(r.Context()) != nil {
		a := actor(r)
		caller = &a
	}
	user, err := h.svc.Users.Register(r.Context(), caller, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, user)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, users)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	user, err := h.svc.Users.GetUser(r.Context(), a, a.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.svc.Users.GetUser(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.Books.ListCatalog(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, books)
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.svc.Books.GetBook(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, book)
}

func (h *Handler) addBook(w http.ResponseWriter, r *http.Request) {
	var in service.BookInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	book, err := h.svc.Books.AddBook(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, book)
}

type stockRequest struct {
	Stock int32 `json:"stock"`
}

func (h *Handler) setStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	book, err := h.svc.Books.SetStock(r.Context(), mux.Vars(r)["code"], req.Stock)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, book)
}
