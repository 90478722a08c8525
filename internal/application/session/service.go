package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/id"
	pkgtoken "github.com/lostfound-api/internal/pkg/token"
	"github.com/lostfound-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Bearer       string          `json:"bearer"`
	RefreshToken string          `json:"refresh_token"`
	Session      *domain.Session `json:"session"`
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, caller domain.Caller) error
	GetCurrent(ctx context.Context, caller domain.Caller) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (bearer, newRefreshToken string, err error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	Rotate(ctx context.Context, sessionID, oldToken, newToken string, newExpiry int64) error
	Revoke(ctx context.Context, sessionID, reason string) error
}

type jwtSigner interface {
	Sign(userID, role, sessionID string) (string, error)
}

type service struct {
	sessionRepo     sessionStore
	userRepo        userStore
	jwtProvider     jwtSigner
	refreshTokenDur time.Duration
}

type ServiceDeps struct {
	SessionRepo     sessionStore
	UserRepo        userStore
	JWTProvider     jwtSigner
	RefreshTokenDur time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		sessionRepo:     deps.SessionRepo,
		userRepo:        deps.UserRepo,
		jwtProvider:     deps.JWTProvider,
		refreshTokenDur: deps.RefreshTokenDur,
	}
}

var errInvalidCredentials = fmt.Errorf("invalid username or password: %w", domain.ErrUnauthenticated)

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	u, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	if !u.Enabled() {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}

	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Role:             u.Role,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &LoginResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}

func (s *service) Logout(ctx context.Context, caller domain.Caller) error {
	if caller.SessionID == "" {
		return fmt.Errorf("no active session: %w", domain.ErrUnauthenticated)
	}
	return s.sessionRepo.Revoke(ctx, caller.SessionID, domain.RevokeLogout)
}

func (s *service) GetCurrent(ctx context.Context, caller domain.Caller) (*domain.Session, error) {
	sess, err := s.sessionRepo.Get(ctx, caller.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable || sess.UserID != caller.UserID {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthenticated)
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return sess, nil
}

// Refresh rotates the refresh token and issues a new bearer for the same
// session. A session issued for a role the user no longer holds is revoked
// instead, so the user logs in again under the new role.
func (s *service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	if refreshToken == "" {
		return "", "", fmt.Errorf("refresh token required: %w", domain.ErrValidation)
	}
	sess, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", "", fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthenticated)
		}
		return "", "", err
	}
	if sess.RefreshExpiresAt < time.Now().Unix() {
		return "", "", fmt.Errorf("refresh token expired: %w", domain.ErrUnauthenticated)
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return "", "", err
	}
	if !u.Enabled() {
		return "", "", fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	if sess.Role != u.Role {
		if err := s.sessionRepo.Revoke(ctx, sess.SessionID, domain.RevokeRoleChanged); err != nil {
			return "", "", err
		}
		return "", "", fmt.Errorf("role changed, please log in again: %w", domain.ErrUnauthenticated)
	}
	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return "", "", err
	}
	newExpiry := time.Now().Add(s.refreshTokenDur).Unix()
	if err := s.sessionRepo.Rotate(ctx, sess.SessionID, refreshToken, newToken, newExpiry); err != nil {
		return "", "", err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return "", "", err
	}
	return bearer, newToken, nil
}
