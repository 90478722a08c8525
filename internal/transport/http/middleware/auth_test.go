package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lostfound-api/internal/config"
	"github.com/lostfound-api/internal/domain"
	jwtinfra "github.com/lostfound-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestProvider generates a fresh RSA key pair, writes them to temp files,
// and returns a *jwtinfra.Provider.
func newTestProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	cfg := &config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         24 * time.Hour,
	}
	p, err := jwtinfra.NewProvider(cfg)
	require.NoError(t, err)
	return p
}

type stubUsers map[string]*domain.User

func (s stubUsers) Get(_ context.Context, userID string) (*domain.User, error) {
	if u, ok := s[userID]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

var testUsers = stubUsers{
	"u1":  {UserID: "u1", Role: domain.RoleUser, AccountStatus: domain.AccountEnabled},
	"adm": {UserID: "adm", Role: domain.RoleAdmin, AccountStatus: domain.AccountEnabled},
	"off": {UserID: "off", Role: domain.RoleUser, AccountStatus: domain.AccountDisabled},
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func assertUnauthenticated(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "401", body["code"])
	assert.NotEmpty(t, body["msg"])
}

func TestAuth_MissingHeader(t *testing.T) {
	p := newTestProvider(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	Auth(p, testUsers)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assertUnauthenticated(t, rr)
}

func TestAuth_BadToken(t *testing.T) {
	p := newTestProvider(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rr := httptest.NewRecorder()
	Auth(p, testUsers)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assertUnauthenticated(t, rr)
}

func TestAuth_ForeignKeyToken(t *testing.T) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	claims := &jwtinfra.Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privKey)
	require.NoError(t, err)

	p := newTestProvider(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	Auth(p, testUsers)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assertUnauthenticated(t, rr)
}

func TestAuth_UnknownUser(t *testing.T) {
	p := newTestProvider(t)
	signed, err := p.Sign("ghost", domain.RoleUser, "s1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	Auth(p, testUsers)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assertUnauthenticated(t, rr)
}

func TestAuth_DisabledUser(t *testing.T) {
	p := newTestProvider(t)
	signed, err := p.Sign("off", domain.RoleUser, "s1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	Auth(p, testUsers)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assertUnauthenticated(t, rr)
}

func TestAuth_ValidToken_InjectsCaller(t *testing.T) {
	p := newTestProvider(t)

	// The token claims USER but the stored record says ADMIN; the record wins.
	signed, err := p.Sign("adm", domain.RoleUser, "sess1")
	require.NoError(t, err)

	var got domain.Caller
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	Auth(p, testUsers)(capture).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "adm", got.UserID)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.Equal(t, "sess1", got.SessionID)
}

func TestAuth_QueryToken(t *testing.T) {
	p := newTestProvider(t)
	signed, err := p.Sign("u1", domain.RoleUser, "s1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/stream?token="+signed, nil)
	rr := httptest.NewRecorder()
	Auth(p, testUsers)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
