package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/require"
)

var (
	owner = domain.Caller{UserID: "owner", Role: domain.RoleUser, AccountStatus: domain.AccountEnabled, SessionID: "s-owner"}
	admin = domain.Caller{UserID: "root", Role: domain.RoleAdmin, AccountStatus: domain.AccountEnabled, SessionID: "s-root"}
)

// newReq builds a request with an optional JSON body, caller and chi URL params.
func newReq(t *testing.T, method, target string, body interface{}, c *domain.Caller, params map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	ctx := req.Context()
	if c != nil {
		ctx = middleware.WithCaller(ctx, *c)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

// envelope decodes the response body; data stays raw for per-test decoding.
func envelope(t *testing.T, rr *httptest.ResponseRecorder) (string, string, json.RawMessage) {
	t.Helper()
	var body struct {
		Code string          `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body.Code, body.Msg, body.Data
}
