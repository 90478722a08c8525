package user

import (
	"context"
	"errors"
	"testing"

	"github.com/lostfound-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error) {
	args := m.Called(ctx, limit, cursor)
	return args.Get(0).([]domain.User), args.String(1), args.Error(2)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) SetAccountStatus(ctx context.Context, userID string, status int) error {
	return m.Called(ctx, userID, status).Error(0)
}
func (m *mockUserStore) SetRole(ctx context.Context, userID, role string) error {
	return m.Called(ctx, userID, role).Error(0)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}
func (m *mockUserStore) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) RevokeByUser(ctx context.Context, userID, keepSessionID, reason string) error {
	return m.Called(ctx, userID, keepSessionID, reason).Error(0)
}

// --- helpers ---

var (
	admin = domain.Caller{UserID: "root", Role: domain.RoleAdmin, AccountStatus: domain.AccountEnabled}
	plain = domain.Caller{UserID: "u1", Role: domain.RoleUser, AccountStatus: domain.AccountEnabled}
)

func newSvc(us *mockUserStore, ss *mockSessionStore) Service {
	return NewService(ServiceDeps{UserRepo: us, SessionRepo: ss, HashCost: bcrypt.MinCost})
}

func validRegisterReq() domain.CreateUserRequest {
	return domain.CreateUserRequest{
		Username: "alice",
		Password: "password123",
		Name:     "Alice",
		Email:    "alice@example.com",
		Phone:    "13800138000",
	}
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	u, err := newSvc(us, &mockSessionStore{}).Register(context.Background(), validRegisterReq())
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.Equal(t, domain.AccountEnabled, u.AccountStatus)
	assert.NotEmpty(t, u.UserID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password123")))
	us.AssertExpectations(t)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{UserID: "existing"}, nil)

	_, err := newSvc(us, &mockSessionStore{}).Register(context.Background(), validRegisterReq())
	assert.ErrorIs(t, err, domain.ErrConflict)
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_LookupFailureIsNotTreatedAsFree(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, errors.New("dynamo down"))

	_, err := newSvc(us, &mockSessionStore{}).Register(context.Background(), validRegisterReq())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConflict)
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_ValidationFailure(t *testing.T) {
	req := validRegisterReq()
	req.Password = "short"
	req.Phone = "123"

	_, err := newSvc(&mockUserStore{}, &mockSessionStore{}).Register(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// --- admin operations ---

func TestList_AdminOnlyAndClamped(t *testing.T) {
	us := &mockUserStore{}
	us.On("ScanPage", mock.Anything, domain.MaxPageSize, "cur").Return([]domain.User{{UserID: "u1"}}, "", nil)
	svc := newSvc(us, &mockSessionStore{})

	_, _, err := svc.List(context.Background(), plain, 10, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	users, _, err := svc.List(context.Background(), admin, 1000, "cur")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSetAccountStatus_DisableRevokesSessions(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	us.On("SetAccountStatus", mock.Anything, "u1", domain.AccountDisabled).Return(nil)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", AccountStatus: domain.AccountDisabled}, nil)
	ss.On("RevokeByUser", mock.Anything, "u1", "", domain.RevokeAccountDisabled).Return(nil)

	u, err := newSvc(us, ss).SetAccountStatus(context.Background(), admin, "u1", false)
	require.NoError(t, err)
	assert.False(t, u.Enabled())
	ss.AssertExpectations(t)
}

func TestSetAccountStatus_EnableKeepsSessions(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	us.On("SetAccountStatus", mock.Anything, "u1", domain.AccountEnabled).Return(nil)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", AccountStatus: domain.AccountEnabled}, nil)

	_, err := newSvc(us, ss).SetAccountStatus(context.Background(), admin, "u1", true)
	require.NoError(t, err)
	ss.AssertNotCalled(t, "RevokeByUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetAccountStatus_Guards(t *testing.T) {
	svc := newSvc(&mockUserStore{}, &mockSessionStore{})

	_, err := svc.SetAccountStatus(context.Background(), plain, "u2", false)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.SetAccountStatus(context.Background(), admin, "root", false)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSetRole_RevokesSessionsIssuedUnderOldRole(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Role: domain.RoleUser}, nil)
	us.On("SetRole", mock.Anything, "u1", domain.RoleAdmin).Return(nil)
	ss.On("RevokeByUser", mock.Anything, "u1", "", domain.RevokeRoleChanged).Return(nil)

	u, err := newSvc(us, ss).SetRole(context.Background(), admin, "u1", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	us.AssertExpectations(t)
	ss.AssertExpectations(t)
}

func TestSetRole_UnchangedRoleIsANoop(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Role: domain.RoleAdmin}, nil)

	u, err := newSvc(us, ss).SetRole(context.Background(), admin, "u1", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	us.AssertNotCalled(t, "SetRole", mock.Anything, mock.Anything, mock.Anything)
	ss.AssertNotCalled(t, "RevokeByUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetRole_Guards(t *testing.T) {
	svc := newSvc(&mockUserStore{}, &mockSessionStore{})

	_, err := svc.SetRole(context.Background(), admin, "u1", "SUPERUSER")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.SetRole(context.Background(), plain, "u1", domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.SetRole(context.Background(), admin, "root", domain.RoleUser)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestMe(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	u, err := newSvc(us, &mockSessionStore{}).Me(context.Background(), plain)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
}

// --- profile ---

func strp(s string) *string { return &s }

func TestUpdateProfile_WritesOnlyGivenFields(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice2").Return(nil, domain.ErrNotFound)
	us.On("Update", mock.Anything, "u1", map[string]interface{}{
		"username": "alice2",
		"email":    "",
	}).Return(nil)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Username: "alice2"}, nil)

	u, err := newSvc(us, &mockSessionStore{}).UpdateProfile(context.Background(), plain, domain.UpdateProfileRequest{
		Username: strp("  alice2 "),
		Email:    strp(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Username)
	us.AssertExpectations(t)
}

func TestUpdateProfile_KeepingOwnUsernameIsAllowed(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{UserID: "u1"}, nil)
	us.On("Update", mock.Anything, "u1", map[string]interface{}{"username": "alice"}).Return(nil)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Username: "alice"}, nil)

	_, err := newSvc(us, &mockSessionStore{}).UpdateProfile(context.Background(), plain, domain.UpdateProfileRequest{Username: strp("alice")})
	require.NoError(t, err)
	us.AssertExpectations(t)
}

func TestUpdateProfile_UsernameTakenIsConflict(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "bob").Return(&domain.User{UserID: "u2"}, nil)

	_, err := newSvc(us, &mockSessionStore{}).UpdateProfile(context.Background(), plain, domain.UpdateProfileRequest{Username: strp("bob")})
	assert.ErrorIs(t, err, domain.ErrConflict)
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProfile_Validation(t *testing.T) {
	svc := newSvc(&mockUserStore{}, &mockSessionStore{})

	_, err := svc.UpdateProfile(context.Background(), plain, domain.UpdateProfileRequest{Username: strp("  ")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.UpdateProfile(context.Background(), plain, domain.UpdateProfileRequest{Phone: strp("123")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.UpdateProfile(context.Background(), plain, domain.UpdateProfileRequest{Email: strp("not-an-email")})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateProfile_EmptyRequestReturnsCurrentUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	_, err := newSvc(us, &mockSessionStore{}).UpdateProfile(context.Background(), plain, domain.UpdateProfileRequest{})
	require.NoError(t, err)
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

// --- password ---

func userWithPassword(t *testing.T, pw string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{UserID: "u1", PasswordHash: string(hash)}
}

func TestChangePassword_RevokesOtherSessions(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	caller := plain
	caller.SessionID = "s-current"
	us.On("Get", mock.Anything, "u1").Return(userWithPassword(t, "password123"), nil)
	var stored string
	us.On("Update", mock.Anything, "u1", mock.Anything).Run(func(args mock.Arguments) {
		stored, _ = args.Get(2).(map[string]interface{})["password_hash"].(string)
	}).Return(nil)
	ss.On("RevokeByUser", mock.Anything, "u1", "s-current", domain.RevokePasswordChanged).Return(nil)

	err := newSvc(us, ss).ChangePassword(context.Background(), caller, domain.ChangePasswordRequest{
		CurrentPassword: "password123",
		NewPassword:     "n3w-password",
	})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("n3w-password")))
	ss.AssertExpectations(t)
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	us.On("Get", mock.Anything, "u1").Return(userWithPassword(t, "password123"), nil)

	err := newSvc(us, ss).ChangePassword(context.Background(), plain, domain.ChangePasswordRequest{
		CurrentPassword: "guess-guess",
		NewPassword:     "n3w-password",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	ss.AssertNotCalled(t, "RevokeByUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_NewMustDiffer(t *testing.T) {
	err := newSvc(&mockUserStore{}, &mockSessionStore{}).ChangePassword(context.Background(), plain, domain.ChangePasswordRequest{
		CurrentPassword: "password123",
		NewPassword:     "password123",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// --- delete ---

func TestDelete_RemovesUserAndRevokesSessions(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	us.On("Delete", mock.Anything, "u1").Return(nil)
	ss.On("RevokeByUser", mock.Anything, "u1", "", domain.RevokeUserDeleted).Return(nil)

	require.NoError(t, newSvc(us, ss).Delete(context.Background(), admin, "u1"))
	us.AssertExpectations(t)
	ss.AssertExpectations(t)
}

func TestDelete_RevocationFailureDoesNotFailTheDelete(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	us.On("Delete", mock.Anything, "u1").Return(nil)
	ss.On("RevokeByUser", mock.Anything, "u1", "", domain.RevokeUserDeleted).Return(errors.New("throttled"))

	assert.NoError(t, newSvc(us, ss).Delete(context.Background(), admin, "u1"))
}

func TestDelete_Guards(t *testing.T) {
	us := &mockUserStore{}
	us.On("Delete", mock.Anything, "ghost").Return(domain.ErrNotFound)
	svc := newSvc(us, &mockSessionStore{})

	assert.ErrorIs(t, svc.Delete(context.Background(), plain, "u2"), domain.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(context.Background(), admin, "root"), domain.ErrInvalidState)
	assert.ErrorIs(t, svc.Delete(context.Background(), admin, "ghost"), domain.ErrNotFound)
}
