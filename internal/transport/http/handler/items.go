package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/application/item"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/validate"
)

// ItemHandler serves both posting variants; {type} selects lost or found.
type ItemHandler struct {
	svc item.Service
}

func NewItemHandler(svc item.Service) *ItemHandler { return &ItemHandler{svc: svc} }

// filter builds an ItemFilter from the query string: title, category_id,
// status, limit and cursor.
func filter(w http.ResponseWriter, r *http.Request, t domain.ItemType) (domain.ItemFilter, bool) {
	q := r.URL.Query()
	f := domain.ItemFilter{
		ItemType:   t,
		Title:      q.Get("title"),
		CategoryID: q.Get("category_id"),
		Limit:      parseLimit(r),
		Cursor:     q.Get("cursor"),
	}
	code, err := optionalInt(r, "status")
	if err != nil {
		httpError(w, err)
		return f, false
	}
	if code != nil {
		st, err := domain.ParseItemStatus(*code)
		if err != nil {
			httpError(w, err)
			return f, false
		}
		f.Status = &st
	}
	return f, true
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	t, ok := itemTypeParam(w, r)
	if !ok {
		return
	}
	f, ok := filter(w, r, t)
	if !ok {
		return
	}
	items, next, err := h.svc.List(r.Context(), f)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, page(items, next))
}

func (h *ItemHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	t, ok := itemTypeParam(w, r)
	if !ok {
		return
	}
	f, ok := filter(w, r, t)
	if !ok {
		return
	}
	items, next, err := h.svc.ListMine(r.Context(), c, f)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, page(items, next))
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := itemTypeParam(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), t, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, p)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	t, ok := itemTypeParam(w, r)
	if !ok {
		return
	}
	var in domain.PostingInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.svc.Create(r.Context(), c, t, in)
	if err != nil {
		httpError(w, err)
		return
	}
	writeCreated(w, p)
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	t, ok := itemTypeParam(w, r)
	if !ok {
		return
	}
	var in domain.PostingInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.svc.Update(r.Context(), c, t, chi.URLParam(r, "id"), in)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, p)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	t, ok := itemTypeParam(w, r)
	if !ok {
		return
	}
	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "force must be true or false")
			return
		}
		force = v
	}
	if err := h.svc.Delete(r.Context(), c, t, chi.URLParam(r, "id"), force); err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, nil)
}

func (h *ItemHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	t, ok := itemTypeParam(w, r)
	if !ok {
		return
	}
	var req domain.StatusChangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		httpError(w, err)
		return
	}
	res, err := h.svc.UpdateStatus(r.Context(), c, t, chi.URLParam(r, "id"), *req.Status)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, res)
}
