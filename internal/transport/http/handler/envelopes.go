package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/transport/http/middleware"
)

const (
	codeSuccess = "200"
	codeFailure = "-1"
	msgSuccess  = "success"
)

// Envelope is the response wrapper shared by every endpoint.
type Envelope struct {
	Code string      `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// PageEnvelope carries one cursor-paginated page inside Envelope.Data.
type PageEnvelope[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

func page[T any](items []T, next string) PageEnvelope[T] {
	if items == nil {
		items = []T{}
	}
	return PageEnvelope[T]{Items: items, NextCursor: next}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Envelope{Code: codeSuccess, Msg: msgSuccess, Data: data})
}

func writeCreated(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, Envelope{Code: codeSuccess, Msg: msgSuccess, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Code: codeFailure, Msg: msg})
}

// httpError maps domain sentinels to HTTP status codes.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrDuplicateClaim):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			httpError(w, err)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// caller returns the authenticated caller or writes 401.
func caller(w http.ResponseWriter, r *http.Request) (domain.Caller, bool) {
	c, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Envelope{Code: middleware.CodeUnauthenticated, Msg: "unauthorized"})
	}
	return c, ok
}

func itemTypeParam(w http.ResponseWriter, r *http.Request) (domain.ItemType, bool) {
	t, err := domain.ParseItemTypeSlug(chi.URLParam(r, "type"))
	if err != nil {
		httpError(w, err)
		return 0, false
	}
	return t, true
}

func parseLimit(r *http.Request) int32 {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	switch {
	case err != nil, n < 1:
		return domain.DefaultPageSize
	case n > int(domain.MaxPageSize):
		return domain.MaxPageSize
	}
	return int32(n)
}

// optionalInt reads an integer query parameter. Absent means nil.
func optionalInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &paramError{name: name}
	}
	return &n, nil
}

type paramError struct{ name string }

func (e *paramError) Error() string { return "query parameter " + e.name + " must be an integer" }
func (e *paramError) Unwrap() error { return domain.ErrValidation }

func claimStatusParam(r *http.Request) (*domain.ClaimStatus, error) {
	code, err := optionalInt(r, "status")
	if err != nil || code == nil {
		return nil, err
	}
	s, err := domain.ParseClaimStatus(*code)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
