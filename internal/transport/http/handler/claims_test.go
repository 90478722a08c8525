package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/lostfound-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockClaimSvc struct{ mock.Mock }

func (m *mockClaimSvc) Submit(ctx context.Context, c domain.Caller, req domain.SubmitClaimRequest) (*domain.ClaimApplication, error) {
	args := m.Called(ctx, c, req)
	a, _ := args.Get(0).(*domain.ClaimApplication)
	return a, args.Error(1)
}
func (m *mockClaimSvc) Audit(ctx context.Context, c domain.Caller, claimID string, req domain.AuditClaimRequest) (*domain.ClaimApplication, error) {
	args := m.Called(ctx, c, claimID, req)
	a, _ := args.Get(0).(*domain.ClaimApplication)
	return a, args.Error(1)
}
func (m *mockClaimSvc) Cancel(ctx context.Context, c domain.Caller, claimID string) (*domain.ClaimApplication, error) {
	args := m.Called(ctx, c, claimID)
	a, _ := args.Get(0).(*domain.ClaimApplication)
	return a, args.Error(1)
}
func (m *mockClaimSvc) CascadeCancelForDeletedItem(ctx context.Context, t domain.ItemType, itemID string) (int, error) {
	args := m.Called(ctx, t, itemID)
	return args.Int(0), args.Error(1)
}
func (m *mockClaimSvc) Get(ctx context.Context, c domain.Caller, claimID string) (*domain.ClaimApplication, error) {
	args := m.Called(ctx, c, claimID)
	a, _ := args.Get(0).(*domain.ClaimApplication)
	return a, args.Error(1)
}
func (m *mockClaimSvc) ListMine(ctx context.Context, c domain.Caller, st *domain.ClaimStatus, limit int32, cursor string) ([]domain.ClaimApplication, string, error) {
	args := m.Called(ctx, c, st, limit, cursor)
	as, _ := args.Get(0).([]domain.ClaimApplication)
	return as, args.String(1), args.Error(2)
}
func (m *mockClaimSvc) ListToAudit(ctx context.Context, c domain.Caller, st *domain.ClaimStatus, limit int32, cursor string) ([]domain.ClaimApplication, string, error) {
	args := m.Called(ctx, c, st, limit, cursor)
	as, _ := args.Get(0).([]domain.ClaimApplication)
	return as, args.String(1), args.Error(2)
}
func (m *mockClaimSvc) List(ctx context.Context, c domain.Caller, f domain.ClaimFilter) ([]domain.ClaimApplication, string, error) {
	args := m.Called(ctx, c, f)
	as, _ := args.Get(0).([]domain.ClaimApplication)
	return as, args.String(1), args.Error(2)
}

var applicant = domain.Caller{UserID: "alice", Role: domain.RoleUser, AccountStatus: domain.AccountEnabled}

func TestClaimSubmit(t *testing.T) {
	svc := &mockClaimSvc{}
	req := domain.SubmitClaimRequest{ItemID: "i1", ItemType: domain.ItemTypeFound, Description: "it has my initials on it"}
	svc.On("Submit", mock.Anything, applicant, req).Return(&domain.ClaimApplication{ClaimID: "c1"}, nil).Once()
	svc.On("Submit", mock.Anything, applicant, req).Return(nil, fmt.Errorf("already applied: %w", domain.ErrDuplicateClaim)).Once()
	h := NewClaimHandler(svc)

	rr := serve(h.Submit, newReq(t, http.MethodPost, "/v1/claims", req, &applicant, nil))
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(h.Submit, newReq(t, http.MethodPost, "/v1/claims", req, &applicant, nil))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestClaimAudit_DecisionParsing(t *testing.T) {
	svc := &mockClaimSvc{}
	svc.On("Audit", mock.Anything, owner, "c1", domain.AuditClaimRequest{Decision: domain.DecisionApprove, Remark: "matches"}).
		Return(&domain.ClaimApplication{ClaimID: "c1", Status: domain.ClaimApproved}, nil)
	h := NewClaimHandler(svc)
	params := map[string]string{"id": "c1"}

	rr := serve(h.Audit, newReq(t, http.MethodPut, "/v1/claims/c1/audit", `{"decision":"approve","remark":"matches"}`, &owner, params))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(h.Audit, newReq(t, http.MethodPut, "/v1/claims/c1/audit", `{"decision":"maybe"}`, &owner, params))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	svc.AssertNumberOfCalls(t, "Audit", 1)
}

func TestClaimCancel_Approved(t *testing.T) {
	svc := &mockClaimSvc{}
	svc.On("Cancel", mock.Anything, applicant, "c1").Return(nil, fmt.Errorf("approved: %w", domain.ErrInvalidState))

	rr := serve(NewClaimHandler(svc).Cancel, newReq(t, http.MethodPut, "/v1/claims/c1/cancel", nil, &applicant, map[string]string{"id": "c1"}))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestClaimListMine_StatusFilter(t *testing.T) {
	svc := &mockClaimSvc{}
	rejected := domain.ClaimRejected
	svc.On("ListMine", mock.Anything, applicant, &rejected, domain.DefaultPageSize, "").Return([]domain.ClaimApplication{{ClaimID: "c1"}}, "", nil)
	h := NewClaimHandler(svc)

	rr := serve(h.ListMine, newReq(t, http.MethodGet, "/v1/claims/mine?status=2", nil, &applicant, nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(h.ListMine, newReq(t, http.MethodGet, "/v1/claims/mine?status=7", nil, &applicant, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestClaimList_AdminFilter(t *testing.T) {
	svc := &mockClaimSvc{}
	lost := domain.ItemTypeLost
	svc.On("List", mock.Anything, admin, domain.ClaimFilter{ItemID: "i1", ItemType: &lost, Limit: domain.DefaultPageSize}).
		Return([]domain.ClaimApplication{}, "", nil)

	rr := serve(NewClaimHandler(svc).List, newReq(t, http.MethodGet, "/v1/claims?item_id=i1&item_type=lost", nil, &admin, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestClaimGet_NotVisible(t *testing.T) {
	svc := &mockClaimSvc{}
	svc.On("Get", mock.Anything, applicant, "c9").Return(nil, fmt.Errorf("not yours: %w", domain.ErrForbidden))

	rr := serve(NewClaimHandler(svc).Get, newReq(t, http.MethodGet, "/v1/claims/c9", nil, &applicant, map[string]string{"id": "c9"}))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
