package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/application/user"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/validate"
)

// UserHandler handles registration and account administration.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeCreated(w, u)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Me(r.Context(), c)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, u)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req domain.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), c, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, u)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req domain.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), c, req); err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, nil)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), c, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, nil)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	users, next, err := h.svc.List(r.Context(), c, parseLimit(r), r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, page(users, next))
}

func (h *UserHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req domain.AccountStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		httpError(w, err)
		return
	}
	u, err := h.svc.SetAccountStatus(r.Context(), c, chi.URLParam(r, "id"), *req.Enabled)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, u)
}

func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req domain.RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.SetRole(r.Context(), c, chi.URLParam(r, "id"), req.Role)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, u)
}
