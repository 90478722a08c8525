package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lostfound-api/internal/application/notification"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/lostfound-api/internal/pkg/validate"
)

type Service interface {
	Submit(ctx context.Context, caller domain.Caller, req domain.SubmitClaimRequest) (*domain.ClaimApplication, error)
	Audit(ctx context.Context, caller domain.Caller, claimID string, req domain.AuditClaimRequest) (*domain.ClaimApplication, error)
	Cancel(ctx context.Context, caller domain.Caller, claimID string) (*domain.ClaimApplication, error)
	CascadeCancelForDeletedItem(ctx context.Context, t domain.ItemType, itemID string) (int, error)

	Get(ctx context.Context, caller domain.Caller, claimID string) (*domain.ClaimApplication, error)
	ListMine(ctx context.Context, caller domain.Caller, status *domain.ClaimStatus, limit int32, cursor string) ([]domain.ClaimApplication, string, error)
	ListToAudit(ctx context.Context, caller domain.Caller, status *domain.ClaimStatus, limit int32, cursor string) ([]domain.ClaimApplication, string, error)
	List(ctx context.Context, caller domain.Caller, f domain.ClaimFilter) ([]domain.ClaimApplication, string, error)
}

type claimStore interface {
	Put(ctx context.Context, c *domain.ClaimApplication) error
	Get(ctx context.Context, claimID string) (*domain.ClaimApplication, error)
	ListByItem(ctx context.Context, t domain.ItemType, itemID string, status *domain.ClaimStatus) ([]domain.ClaimApplication, error)
	ListByApplicant(ctx context.Context, applicantID string, status *domain.ClaimStatus, limit int32, cursor string) ([]domain.ClaimApplication, string, error)
	ListByPublisher(ctx context.Context, publisherID string, status *domain.ClaimStatus, limit int32, cursor string) ([]domain.ClaimApplication, string, error)
	List(ctx context.Context, f domain.ClaimFilter) ([]domain.ClaimApplication, string, error)
	Resolve(ctx context.Context, c *domain.ClaimApplication, to domain.ClaimStatus, auditorID, remark string, at time.Time) error
	Approve(ctx context.Context, in domain.ClaimApproval) error
}

type itemReader interface {
	Get(ctx context.Context, t domain.ItemType, itemID string) (*domain.Posting, error)
}

type userReader interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type service struct {
	repo     claimStore
	items    itemReader
	users    userReader
	notifier notification.Notifier
	now      func() time.Time
}

type ServiceDeps struct {
	ClaimRepo claimStore
	ItemRepo  itemReader
	UserRepo  userReader
	Notifier  notification.Notifier
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:     deps.ClaimRepo,
		items:    deps.ItemRepo,
		users:    deps.UserRepo,
		notifier: deps.Notifier,
		now:      time.Now,
	}
}

// Submit files a new claim. Self-claims are refused whatever the posting's
// status. Rejected and cancelled claims do not block a resubmission. The store
// re-checks that the posting is Pending when the claim is written, so a claim
// never lands on a posting that was approved in the meantime.
func (s *service) Submit(ctx context.Context, caller domain.Caller, req domain.SubmitClaimRequest) (*domain.ClaimApplication, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	p, err := s.items.Get(ctx, req.ItemType, req.ItemID)
	if err != nil {
		return nil, err
	}
	if p.PublisherUserID == caller.UserID {
		return nil, fmt.Errorf("cannot claim your own item: %w", domain.ErrForbidden)
	}
	if p.Status != domain.StatusPending {
		return nil, fmt.Errorf("%s item is not open for claims: %w", p.Status, domain.ErrInvalidState)
	}
	existing, err := s.repo.ListByItem(ctx, req.ItemType, req.ItemID, nil)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if c.ApplicantUserID == caller.UserID && c.Status.Active() {
			return nil, fmt.Errorf("claim %s is still %s: %w", c.ClaimID, c.Status, domain.ErrDuplicateClaim)
		}
	}

	now := s.now().UTC()
	c := &domain.ClaimApplication{
		ClaimID:         id.New(),
		ItemID:          p.ItemID,
		ItemType:        p.ItemType,
		ApplicantUserID: caller.UserID,
		PublisherUserID: p.PublisherUserID,
		Description:     req.Description,
		Status:          domain.ClaimPendingReview,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return nil, err
	}
	title, content := submittedMessage(p, s.displayName(ctx, caller.UserID))
	s.notifier.Notify(p.PublisherUserID, title, content, domain.NotificationApplication, c.ClaimID)
	return c, nil
}

// Audit approves or rejects a pending claim. Approval is committed together
// with the posting flip and the rejection of every rival pending claim.
func (s *service) Audit(ctx context.Context, caller domain.Caller, claimID string, req domain.AuditClaimRequest) (*domain.ClaimApplication, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	c, err := s.repo.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.ClaimPendingReview {
		return nil, fmt.Errorf("claim already %s: %w", c.Status, domain.ErrInvalidState)
	}
	p, err := s.items.Get(ctx, c.ItemType, c.ItemID)
	if err != nil {
		return nil, err
	}
	if !caller.CanManage(p.PublisherUserID) {
		return nil, fmt.Errorf("only the publisher or an admin may audit this claim: %w", domain.ErrForbidden)
	}

	now := s.now().UTC()
	switch req.Decision {
	case domain.DecisionApprove:
		if err := s.approve(ctx, caller, c, p, req.Remark, now); err != nil {
			return nil, err
		}
		c.Status = domain.ClaimApproved
	case domain.DecisionReject:
		if err := s.repo.Resolve(ctx, c, domain.ClaimRejected, caller.UserID, req.Remark, now); err != nil {
			return nil, err
		}
		c.Status = domain.ClaimRejected
	default:
		return nil, fmt.Errorf("unknown decision %q: %w", req.Decision, domain.ErrValidation)
	}
	c.AuditorUserID = caller.UserID
	c.AuditedAt = &now
	c.AuditRemark = req.Remark
	c.UpdatedAt = now

	title, content := auditedMessage(p, c.Status == domain.ClaimApproved, req.Remark)
	s.notifier.Notify(c.ApplicantUserID, title, content, domain.NotificationAudit, c.ClaimID)
	return c, nil
}

func (s *service) approve(ctx context.Context, caller domain.Caller, c *domain.ClaimApplication, p *domain.Posting, remark string, now time.Time) error {
	if p.Status != domain.StatusPending {
		return fmt.Errorf("item is already %s: %w", p.Status, domain.ErrConflict)
	}
	pending := domain.ClaimPendingReview
	open, err := s.repo.ListByItem(ctx, c.ItemType, c.ItemID, &pending)
	if err != nil {
		return err
	}
	var rivals []domain.ClaimApplication
	rivalIDs := make([]string, 0, len(open))
	for _, o := range open {
		if o.ClaimID != c.ClaimID {
			rivals = append(rivals, o)
			rivalIDs = append(rivalIDs, o.ClaimID)
		}
	}
	if err := s.repo.Approve(ctx, domain.ClaimApproval{
		Claim:      c,
		AuditorID:  caller.UserID,
		Remark:     remark,
		RivalIDs:   rivalIDs,
		OpenClaims: len(open),
		At:         now,
	}); err != nil {
		return err
	}
	for _, r := range rivals {
		title, content := auditedMessage(p, false, domain.RemarkSuperseded)
		s.notifier.Notify(r.ApplicantUserID, title, content, domain.NotificationAudit, r.ClaimID)
	}
	return nil
}

func (s *service) Cancel(ctx context.Context, caller domain.Caller, claimID string) (*domain.ClaimApplication, error) {
	c, err := s.repo.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.ApplicantUserID != caller.UserID {
		return nil, fmt.Errorf("only the applicant may cancel a claim: %w", domain.ErrForbidden)
	}
	if c.Status != domain.ClaimPendingReview {
		return nil, fmt.Errorf("claim already %s: %w", c.Status, domain.ErrInvalidState)
	}
	now := s.now().UTC()
	if err := s.repo.Resolve(ctx, c, domain.ClaimCancelled, "", domain.RemarkCancelledByApplicant, now); err != nil {
		return nil, err
	}
	c.Status = domain.ClaimCancelled
	c.AuditRemark = domain.RemarkCancelledByApplicant
	c.UpdatedAt = now
	return c, nil
}

// CascadeCancelForDeletedItem cancels every claim still pending review on an
// item about to be deleted. Claims resolved concurrently are skipped, so the
// call is safe to repeat.
func (s *service) CascadeCancelForDeletedItem(ctx context.Context, t domain.ItemType, itemID string) (int, error) {
	pending := domain.ClaimPendingReview
	open, err := s.repo.ListByItem(ctx, t, itemID, &pending)
	if err != nil {
		return 0, err
	}
	now := s.now().UTC()
	cancelled := 0
	var firstErr error
	for i := range open {
		c := &open[i]
		err := s.repo.Resolve(ctx, c, domain.ClaimCancelled, "", domain.RemarkItemDeleted, now)
		switch {
		case err == nil:
			cancelled++
			s.notifier.Notify(c.ApplicantUserID, "Claim cancelled",
				"The item you applied for was deleted by its publisher.", domain.NotificationSystem, c.ClaimID)
		case errors.Is(err, domain.ErrConflict):
			continue
		default:
			slog.Warn("failed to cancel claim of deleted item", "claim_id", c.ClaimID, "item_id", itemID, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return cancelled, firstErr
}

// Get is visible to the applicant, the posting's publisher and admins.
func (s *service) Get(ctx context.Context, caller domain.Caller, claimID string) (*domain.ClaimApplication, error) {
	c, err := s.repo.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.ApplicantUserID != caller.UserID && !caller.CanManage(c.PublisherUserID) {
		return nil, fmt.Errorf("claim belongs to another user: %w", domain.ErrForbidden)
	}
	return c, nil
}

func (s *service) ListMine(ctx context.Context, caller domain.Caller, status *domain.ClaimStatus, limit int32, cursor string) ([]domain.ClaimApplication, string, error) {
	return s.repo.ListByApplicant(ctx, caller.UserID, status, domain.ClampLimit(limit), cursor)
}

// ListToAudit lists claims awaiting the caller's decision: those on the
// caller's postings, or every claim for an admin. Status defaults to PendingReview.
func (s *service) ListToAudit(ctx context.Context, caller domain.Caller, status *domain.ClaimStatus, limit int32, cursor string) ([]domain.ClaimApplication, string, error) {
	if status == nil {
		pending := domain.ClaimPendingReview
		status = &pending
	}
	limit = domain.ClampLimit(limit)
	if caller.IsAdmin() {
		return s.repo.List(ctx, domain.ClaimFilter{Status: status, Limit: limit, Cursor: cursor})
	}
	return s.repo.ListByPublisher(ctx, caller.UserID, status, limit, cursor)
}

func (s *service) List(ctx context.Context, caller domain.Caller, f domain.ClaimFilter) ([]domain.ClaimApplication, string, error) {
	if !caller.IsAdmin() {
		return nil, "", fmt.Errorf("admin only: %w", domain.ErrForbidden)
	}
	f.Limit = domain.ClampLimit(f.Limit)
	return s.repo.List(ctx, f)
}

func (s *service) displayName(ctx context.Context, userID string) string {
	if s.users == nil {
		return userID
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return userID
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

func submittedMessage(p *domain.Posting, applicant string) (title, content string) {
	return "New claim application",
		fmt.Sprintf("User %s applied to claim your item \"%s\". Please review it.", applicant, p.Title)
}

func auditedMessage(p *domain.Posting, approved bool, remark string) (title, content string) {
	title, result := "Claim application rejected", "rejected"
	if approved {
		title, result = "Claim application approved", "approved"
	}
	content = fmt.Sprintf("Your claim on \"%s\" was %s.", p.Title, result)
	if remark != "" {
		content += " Remark: " + remark
	}
	return title, content
}
