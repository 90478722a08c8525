package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/lostfound-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldUsername     = "username"
	fieldName         = "name"
	fieldEmail        = "email"
	fieldPhone        = "phone"
	fieldPasswordHash = "password_hash"
)

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Me(ctx context.Context, caller domain.Caller) (*domain.User, error)
	UpdateProfile(ctx context.Context, caller domain.Caller, req domain.UpdateProfileRequest) (*domain.User, error)
	ChangePassword(ctx context.Context, caller domain.Caller, req domain.ChangePasswordRequest) error
	Delete(ctx context.Context, caller domain.Caller, userID string) error
	List(ctx context.Context, caller domain.Caller, limit int32, cursor string) ([]domain.User, string, error)
	SetAccountStatus(ctx context.Context, caller domain.Caller, userID string, enabled bool) (*domain.User, error)
	SetRole(ctx context.Context, caller domain.Caller, userID, role string) (*domain.User, error)
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	SetAccountStatus(ctx context.Context, userID string, status int) error
	SetRole(ctx context.Context, userID, role string) error
	Delete(ctx context.Context, userID string) error
}

type sessionStore interface {
	RevokeByUser(ctx context.Context, userID, keepSessionID, reason string) error
}

type service struct {
	repo        userStore
	sessionRepo sessionStore
	hashCost    int
}

type ServiceDeps struct {
	UserRepo    userStore
	SessionRepo sessionStore
	// HashCost overrides bcrypt.DefaultCost; tests use bcrypt.MinCost.
	HashCost int
}

func NewService(deps ServiceDeps) Service {
	cost := deps.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &service{repo: deps.UserRepo, sessionRepo: deps.SessionRepo, hashCost: cost}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	_, err := s.repo.GetByUsername(ctx, req.Username)
	switch {
	case err == nil:
		return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:        id.New(),
		Username:      req.Username,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		PasswordHash:  string(hash),
		Role:          domain.RoleUser,
		AccountStatus: domain.AccountEnabled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) Me(ctx context.Context, caller domain.Caller) (*domain.User, error) {
	return s.repo.Get(ctx, caller.UserID)
}

// UpdateProfile applies the non-nil fields of req to the caller's account.
// A new username must not belong to anyone else.
func (s *service) UpdateProfile(ctx context.Context, caller domain.Caller, req domain.UpdateProfileRequest) (*domain.User, error) {
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		req.Username = &name
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Username != nil {
		other, err := s.repo.GetByUsername(ctx, *req.Username)
		switch {
		case err == nil && other.UserID != caller.UserID:
			return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		updates[fieldUsername] = *req.Username
	}
	if req.Name != nil {
		updates[fieldName] = *req.Name
	}
	if req.Email != nil {
		updates[fieldEmail] = *req.Email
	}
	if req.Phone != nil {
		updates[fieldPhone] = *req.Phone
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, caller.UserID, updates); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, caller.UserID)
}

// ChangePassword replaces the caller's password and revokes every other
// session of the account. The session making the call stays logged in.
func (s *service) ChangePassword(ctx context.Context, caller domain.Caller, req domain.ChangePasswordRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	u, err := s.repo.Get(ctx, caller.UserID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.hashCost)
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, caller.UserID, map[string]interface{}{fieldPasswordHash: string(hash)}); err != nil {
		return err
	}
	if err := s.sessionRepo.RevokeByUser(ctx, caller.UserID, caller.SessionID, domain.RevokePasswordChanged); err != nil {
		slog.Warn("failed to revoke sessions after password change", "user_id", caller.UserID, "err", err)
	}
	return nil
}

// Delete removes an account and revokes its sessions. Postings and claims
// keep the user id they were filed under.
func (s *service) Delete(ctx context.Context, caller domain.Caller, userID string) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("admin only: %w", domain.ErrForbidden)
	}
	if userID == caller.UserID {
		return fmt.Errorf("cannot delete your own account: %w", domain.ErrInvalidState)
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	if err := s.sessionRepo.RevokeByUser(ctx, userID, "", domain.RevokeUserDeleted); err != nil {
		slog.Warn("failed to revoke sessions of deleted user", "user_id", userID, "err", err)
	}
	return nil
}

func (s *service) List(ctx context.Context, caller domain.Caller, limit int32, cursor string) ([]domain.User, string, error) {
	if !caller.IsAdmin() {
		return nil, "", fmt.Errorf("admin only: %w", domain.ErrForbidden)
	}
	return s.repo.ScanPage(ctx, domain.ClampLimit(limit), cursor)
}

// SetAccountStatus enables or disables an account. Disabling also revokes
// every session of the user.
func (s *service) SetAccountStatus(ctx context.Context, caller domain.Caller, userID string, enabled bool) (*domain.User, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("admin only: %w", domain.ErrForbidden)
	}
	if !enabled && userID == caller.UserID {
		return nil, fmt.Errorf("cannot disable your own account: %w", domain.ErrInvalidState)
	}
	status := domain.AccountDisabled
	if enabled {
		status = domain.AccountEnabled
	}
	if err := s.repo.SetAccountStatus(ctx, userID, status); err != nil {
		return nil, err
	}
	if !enabled {
		if err := s.sessionRepo.RevokeByUser(ctx, userID, "", domain.RevokeAccountDisabled); err != nil {
			slog.Warn("failed to revoke sessions of disabled user", "user_id", userID, "err", err)
		}
	}
	return s.repo.Get(ctx, userID)
}

// SetRole changes a user's role. Sessions issued under the old role are
// revoked so the next bearer carries the new one.
func (s *service) SetRole(ctx context.Context, caller domain.Caller, userID, role string) (*domain.User, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("admin only: %w", domain.ErrForbidden)
	}
	if err := validate.Struct(domain.RoleRequest{Role: role}); err != nil {
		return nil, err
	}
	if userID == caller.UserID && role != domain.RoleAdmin {
		return nil, fmt.Errorf("cannot drop your own admin role: %w", domain.ErrInvalidState)
	}
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role == role {
		return u, nil
	}
	if err := s.repo.SetRole(ctx, userID, role); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.RevokeByUser(ctx, userID, "", domain.RevokeRoleChanged); err != nil {
		slog.Warn("failed to revoke sessions after role change", "user_id", userID, "err", err)
	}
	u.Role = role
	return u, nil
}
