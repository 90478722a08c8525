package item

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

// DynamoDB attribute names used in partial update maps.
const (
	fieldTitle        = "title"
	fieldDescription  = "description"
	fieldCategoryID   = "category_id"
	fieldPlace        = "place"
	fieldEventTime    = "event_time"
	fieldContactName  = "contact_name"
	fieldContactPhone = "contact_phone"
	fieldImages       = "images"
)

type Service interface {
	Create(ctx context.Context, caller domain.Caller, t domain.ItemType, in domain.PostingInput) (*domain.Posting, error)
	Get(ctx context.Context, t domain.ItemType, itemID string) (*domain.Posting, error)
	List(ctx context.Context, f domain.ItemFilter) ([]domain.Posting, string, error)
	ListMine(ctx context.Context, caller domain.Caller, f domain.ItemFilter) ([]domain.Posting, string, error)
	Update(ctx context.Context, caller domain.Caller, t domain.ItemType, itemID string, in domain.PostingInput) (*domain.Posting, error)
	Delete(ctx context.Context, caller domain.Caller, t domain.ItemType, itemID string, force bool) error
	UpdateStatus(ctx context.Context, caller domain.Caller, t domain.ItemType, itemID string, to domain.ItemStatus) (*domain.StatusChangeResult, error)
	Statistics(ctx context.Context) (*Statistics, error)
}

type itemStore interface {
	Put(ctx context.Context, p *domain.Posting) error
	Get(ctx context.Context, t domain.ItemType, itemID string) (*domain.Posting, error)
	Update(ctx context.Context, t domain.ItemType, itemID string, expected domain.ItemStatus, updates map[string]interface{}) error
	CompareAndSwapStatus(ctx context.Context, t domain.ItemType, itemID string, from, to domain.ItemStatus) error
	Delete(ctx context.Context, t domain.ItemType, itemID string) error
	List(ctx context.Context, f domain.ItemFilter) ([]domain.Posting, string, error)
	CountByStatus(ctx context.Context, t domain.ItemType, s domain.ItemStatus) (int, error)
}

// claimCascader is the slice of the claim engine the item store needs on delete.
type claimCascader interface {
	CascadeCancelForDeletedItem(ctx context.Context, t domain.ItemType, itemID string) (int, error)
}

type categoryLookup interface {
	Get(ctx context.Context, categoryID string) (*domain.Category, error)
}

type service struct {
	repo       itemStore
	claims     claimCascader
	categories categoryLookup
	notifier   notification.Notifier
	now        func() time.Time
}

type ServiceDeps struct {
	ItemRepo     itemStore
	Claims       claimCascader
	CategoryRepo categoryLookup
	Notifier     notification.Notifier
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:       deps.ItemRepo,
		claims:     deps.Claims,
		categories: deps.CategoryRepo,
		notifier:   deps.Notifier,
		now:        time.Now,
	}
}

func (s *service) Create(ctx context.Context, caller domain.Caller, t domain.ItemType, in domain.PostingInput) (*domain.Posting, error) {
	now := s.now().UTC()
	if err := s.validate(ctx, in, now); err != nil {
		return nil, err
	}
	p := &domain.Posting{
		ItemID:          id.New(),
		ItemType:        t,
		PublisherUserID: caller.UserID,
		Status:          domain.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	apply(p, in)
	if err := s.repo.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Get(ctx context.Context, t domain.ItemType, itemID string) (*domain.Posting, error) {
	return s.repo.Get(ctx, t, itemID)
}

func (s *service) List(ctx context.Context, f domain.ItemFilter) ([]domain.Posting, string, error) {
	f.Limit = domain.ClampLimit(f.Limit)
	return s.repo.List(ctx, f)
}

func (s *service) ListMine(ctx context.Context, caller domain.Caller, f domain.ItemFilter) ([]domain.Posting, string, error) {
	f.PublisherID = caller.UserID
	return s.List(ctx, f)
}

// Update replaces the editable content. The write is guarded by the status
// read here, so a concurrent status change surfaces as ErrConflict.
func (s *service) Update(ctx context.Context, caller domain.Caller, t domain.ItemType, itemID string, in domain.PostingInput) (*domain.Posting, error) {
	p, err := s.manageable(ctx, caller, t, itemID)
	if err != nil {
		return nil, err
	}
	if !p.Status.CanBeEdited() {
		return nil, fmt.Errorf("%s item cannot be edited: %w", p.Status, domain.ErrInvalidState)
	}
	now := s.now().UTC()
	if err := s.validate(ctx, in, now); err != nil {
		return nil, err
	}
	apply(p, in)
	updates := map[string]interface{}{
		fieldTitle:        p.Title,
		fieldDescription:  p.Description,
		fieldCategoryID:   p.CategoryID,
		fieldPlace:        p.Place,
		fieldEventTime:    p.EventTime,
		fieldContactName:  p.ContactName,
		fieldContactPhone: p.ContactPhone,
		fieldImages:       p.Images,
	}
	if err := s.repo.Update(ctx, t, itemID, p.Status, updates); err != nil {
		return nil, err
	}
	p.UpdatedAt = now
	return p, nil
}

// deleteAttempts bounds how often a forced delete re-runs the cascade when a
// claim lands between the cascade and the delete.
const deleteAttempts = 3

// Delete removes a posting. Open claims block it unless force is set, in
// which case they are cancelled first. The store refuses to delete a posting
// whose open-claim counter is not zero, so a claim filed concurrently either
// blocks the delete or is caught by another cascade round.
func (s *service) Delete(ctx context.Context, caller domain.Caller, t domain.ItemType, itemID string, force bool) error {
	p, err := s.manageable(ctx, caller, t, itemID)
	if err != nil {
		return err
	}
	if !force {
		if p.OpenClaims > 0 {
			return fmt.Errorf("item has %d claims pending review: %w", p.OpenClaims, domain.ErrConflict)
		}
		return s.repo.Delete(ctx, t, itemID)
	}
	cascade := p.OpenClaims > 0
	for attempt := 1; ; attempt++ {
		if cascade {
			cancelled, err := s.claims.CascadeCancelForDeletedItem(ctx, t, itemID)
			if err != nil {
				return err
			}
			slog.Info("cancelled open claims before delete", "item_id", itemID, "item_type", t.String(), "cancelled", cancelled)
		}
		err := s.repo.Delete(ctx, t, itemID)
		if !errors.Is(err, domain.ErrConflict) || attempt == deleteAttempts {
			return err
		}
		cascade = true
	}
}

func (s *service) UpdateStatus(ctx context.Context, caller domain.Caller, t domain.ItemType, itemID string, to domain.ItemStatus) (*domain.StatusChangeResult, error) {
	p, err := s.manageable(ctx, caller, t, itemID)
	if err != nil {
		return nil, err
	}
	from := p.Status
	if err := domain.ValidateTransition(from, to); err != nil {
		return nil, err
	}
	if err := s.repo.CompareAndSwapStatus(ctx, t, itemID, from, to); err != nil {
		return nil, err
	}
	p.Status = to
	p.UpdatedAt = s.now().UTC()
	title, content := StatusChangedMessage(p, from, to)
	s.notifier.Notify(p.PublisherUserID, title, content, domain.NotificationSystem, p.ItemID)
	return &domain.StatusChangeResult{Item: p, Advice: domain.TransitionAdvice(from, to)}, nil
}

func (s *service) manageable(ctx context.Context, caller domain.Caller, t domain.ItemType, itemID string) (*domain.Posting, error) {
	p, err := s.repo.Get(ctx, t, itemID)
	if err != nil {
		return nil, err
	}
	if !caller.CanManage(p.PublisherUserID) {
		return nil, fmt.Errorf("only the publisher or an admin may modify this item: %w", domain.ErrForbidden)
	}
	return p, nil
}

func (s *service) validate(ctx context.Context, in domain.PostingInput, now time.Time) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if err := in.Validate(now); err != nil {
		return err
	}
	if in.CategoryID == "" {
		return nil
	}
	if _, err := s.categories.Get(ctx, in.CategoryID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("category %s does not exist: %w", in.CategoryID, domain.ErrValidation)
		}
		return err
	}
	return nil
}

func apply(p *domain.Posting, in domain.PostingInput) {
	p.Title = in.Title
	p.Description = in.Description
	p.CategoryID = in.CategoryID
	p.Place = in.Place
	p.EventTime = in.EventTime.UTC()
	p.ContactName = in.ContactName
	p.ContactPhone = in.ContactPhone
	p.Images = append([]string{}, in.Images...)
}

// StatusChangedMessage is the owner-facing notification for a status move.
func StatusChangedMessage(p *domain.Posting, from, to domain.ItemStatus) (title, content string) {
	title = "Item status changed"
	content = fmt.Sprintf("Your %s item \"%s\" moved from %s to %s.", p.ItemType, p.Title, from.Label(), to.Label())
	if advice := domain.TransitionAdvice(from, to); advice != "" {
		content += " " + advice + "."
	}
	return title, content
}
