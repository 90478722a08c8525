package handler

import (
	"net/http"

	"github.com/lostfound-api/internal/application/session"
)

// SessionHandler handles session endpoints.
type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type refreshResponse struct {
	Bearer       string `json:"bearer"`
	RefreshToken string `json:"refresh_token"`
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req session.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, result)
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	bearer, newToken, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, refreshResponse{Bearer: bearer, RefreshToken: newToken})
}

func (h *SessionHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	sess, err := h.svc.GetCurrent(r.Context(), c)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, sess)
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Logout(r.Context(), c); err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, nil)
}
