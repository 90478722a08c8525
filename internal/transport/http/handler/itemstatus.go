package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/application/item"
	"github.com/lostfound-api/internal/application/sweeper"
	"github.com/lostfound-api/internal/domain"
)

const defaultExpireDays = 30

type expirySweeper interface {
	SweepExpired(ctx context.Context, thresholdDays int) (sweeper.SweepResult, error)
}

// ItemStatusHandler exposes the status machine, statistics and the manual
// expiry sweep.
type ItemStatusHandler struct {
	items   item.Service
	sweeper expirySweeper
}

func NewItemStatusHandler(items item.Service, sw expirySweeper) *ItemStatusHandler {
	return &ItemStatusHandler{items: items, sweeper: sw}
}

type transitionsResponse struct {
	From domain.ItemStatusInfo   `json:"from"`
	Next []domain.ItemStatusInfo `json:"next"`
}

func (h *ItemStatusHandler) Enum(w http.ResponseWriter, _ *http.Request) {
	out := make([]domain.ItemStatusInfo, 0, len(domain.AllItemStatuses))
	for _, s := range domain.AllItemStatuses {
		out = append(out, s.Info())
	}
	writeOK(w, out)
}

func (h *ItemStatusHandler) Transitions(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "status must be an integer")
		return
	}
	from, err := domain.ParseItemStatus(code)
	if err != nil {
		httpError(w, err)
		return
	}
	next := domain.NextPossible(from)
	infos := make([]domain.ItemStatusInfo, len(next))
	for i, s := range next {
		infos[i] = s.Info()
	}
	writeOK(w, transitionsResponse{From: from.Info(), Next: infos})
}

func (h *ItemStatusHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.items.Statistics(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, stats)
}

func (h *ItemStatusHandler) ProcessExpired(w http.ResponseWriter, r *http.Request) {
	days := defaultExpireDays
	if raw := r.URL.Query().Get("expireDays"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expireDays must be an integer")
			return
		}
		days = n
	}
	res, err := h.sweeper.SweepExpired(r.Context(), days)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, res)
}
