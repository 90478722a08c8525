package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/application/category"
	"github.com/lostfound-api/internal/domain"
)

// CategoryHandler handles category endpoints.
type CategoryHandler struct {
	svc category.Service
}

func NewCategoryHandler(svc category.Service) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.List(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	if cs == nil {
		cs = []domain.Category{}
	}
	writeOK(w, cs)
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, c)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var in domain.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	created, err := h.svc.Create(r.Context(), c, in)
	if err != nil {
		httpError(w, err)
		return
	}
	writeCreated(w, created)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var in domain.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	updated, err := h.svc.Update(r.Context(), c, chi.URLParam(r, "id"), in)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, updated)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
