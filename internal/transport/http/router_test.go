package http

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lostfound-api/internal/config"
	"github.com/lostfound-api/internal/domain"
	jwtinfra "github.com/lostfound-api/internal/infrastructure/jwt"
	"github.com/lostfound-api/internal/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(priv, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}), 0600))
	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pub, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}), 0600))
	return &config.Config{
		AllowedOrigins:     []string{"*"},
		JWTPrivateKeyPath:  priv,
		JWTPublicKeyPath:   pub,
		JWTExpiry:          time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	}
}

// userTable serves Get only; the routes under test never write users.
type userTable map[string]*domain.User

func (u userTable) Get(_ context.Context, id string) (*domain.User, error) {
	if usr, ok := u[id]; ok {
		return usr, nil
	}
	return nil, domain.ErrNotFound
}
func (u userTable) Put(context.Context, *domain.User) error { return nil }
func (u userTable) GetByUsername(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}
func (u userTable) ScanPage(context.Context, int32, string) ([]domain.User, string, error) {
	return nil, "", nil
}
func (u userTable) SetAccountStatus(context.Context, string, int) error { return nil }
func (u userTable) SetRole(context.Context, string, string) error       { return nil }
func (u userTable) Update(context.Context, string, map[string]interface{}) error {
	return nil
}
func (u userTable) Delete(context.Context, string) error { return nil }

func newTestRouter(t *testing.T) (http.Handler, *jwtinfra.Provider) {
	t.Helper()
	cfg := testConfig(t)
	provider, err := jwtinfra.NewProvider(cfg)
	require.NoError(t, err)
	deps := &Deps{
		UserRepo: userTable{
			"u1":  {UserID: "u1", Role: domain.RoleUser, AccountStatus: domain.AccountEnabled},
			"adm": {UserID: "adm", Role: domain.RoleAdmin, AccountStatus: domain.AccountEnabled},
		},
		Hub:         sse.NewHub(),
		JWTProvider: provider,
	}
	return NewRouter(cfg, deps, NewServices(cfg, deps)), provider
}

func do(h http.Handler, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_PublicAndProtected(t *testing.T) {
	h, provider := newTestRouter(t)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/v1/health", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/v1/item-status/enum", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(h, http.MethodGet, "/v1/items/stolen", "").Code)

	rr := do(h, http.MethodGet, "/v1/claims/mine", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"code":"401","msg":"missing credential, please log in"}`, rr.Body.String())

	userToken, err := provider.Sign("u1", domain.RoleUser, "s1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(h, http.MethodGet, "/v1/users", userToken).Code)
	assert.Equal(t, http.StatusForbidden, do(h, http.MethodPost, "/v1/item-status/process-expired", userToken).Code)
	assert.Equal(t, http.StatusForbidden, do(h, http.MethodDelete, "/v1/users/adm", userToken).Code)
}

func TestRouter_AdminPassesRoleGate(t *testing.T) {
	h, provider := newTestRouter(t)
	adminToken, err := provider.Sign("adm", domain.RoleAdmin, "s2")
	require.NoError(t, err)

	rr := do(h, http.MethodGet, "/v1/users?limit=5", adminToken)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"code":"200","msg":"success","data":{"items":[]}}`, rr.Body.String())
}
