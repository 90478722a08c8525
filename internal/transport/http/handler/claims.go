package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/application/claim"
	"github.com/lostfound-api/internal/domain"
)

// ClaimHandler handles claim applications.
type ClaimHandler struct {
	svc claim.Service
}

func NewClaimHandler(svc claim.Service) *ClaimHandler { return &ClaimHandler{svc: svc} }

func (h *ClaimHandler) Submit(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req domain.SubmitClaimRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	app, err := h.svc.Submit(r.Context(), c, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeCreated(w, app)
}

func (h *ClaimHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	app, err := h.svc.Get(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, app)
}

func (h *ClaimHandler) Audit(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req domain.AuditClaimRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	app, err := h.svc.Audit(r.Context(), c, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, app)
}

func (h *ClaimHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	app, err := h.svc.Cancel(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, app)
}

func (h *ClaimHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	status, err := claimStatusParam(r)
	if err != nil {
		httpError(w, err)
		return
	}
	apps, next, err := h.svc.ListMine(r.Context(), c, status, parseLimit(r), r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, page(apps, next))
}

func (h *ClaimHandler) ListToAudit(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	status, err := claimStatusParam(r)
	if err != nil {
		httpError(w, err)
		return
	}
	apps, next, err := h.svc.ListToAudit(r.Context(), c, status, parseLimit(r), r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, page(apps, next))
}

// List is the admin view across all claims: item_id, item_type, applicant_id
// and status narrow the result.
func (h *ClaimHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := domain.ClaimFilter{
		ItemID:      q.Get("item_id"),
		ApplicantID: q.Get("applicant_id"),
		Limit:       parseLimit(r),
		Cursor:      q.Get("cursor"),
	}
	if raw := q.Get("item_type"); raw != "" {
		t, err := domain.ParseItemTypeSlug(raw)
		if err != nil {
			httpError(w, err)
			return
		}
		f.ItemType = &t
	}
	status, err := claimStatusParam(r)
	if err != nil {
		httpError(w, err)
		return
	}
	f.Status = status
	apps, next, err := h.svc.List(r.Context(), c, f)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, page(apps, next))
}
