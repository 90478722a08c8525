package category

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/lostfound-api/internal/pkg/validate"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName        = "name"
	fieldDescription = "description"
)

type Service interface {
	List(ctx context.Context) ([]domain.Category, error)
	Get(ctx context.Context, categoryID string) (*domain.Category, error)
	Create(ctx context.Context, caller domain.Caller, input domain.CategoryInput) (*domain.Category, error)
	Update(ctx context.Context, caller domain.Caller, categoryID string, input domain.CategoryInput) (*domain.Category, error)
	Delete(ctx context.Context, caller domain.Caller, categoryID string) error // hard delete
}

type categoryStore interface {
	Scan(ctx context.Context) ([]domain.Category, error)
	Get(ctx context.Context, categoryID string) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	Put(ctx context.Context, c *domain.Category) error
	Update(ctx context.Context, categoryID string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, categoryID string) error
}

type service struct {
	repo categoryStore
}

func NewService(repo categoryStore) Service {
	return &service{repo: repo}
}

// List returns every category ordered by name.
func (s *service) List(ctx context.Context) ([]domain.Category, error) {
	cs, err := s.repo.Scan(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
	return cs, nil
}

func (s *service) Get(ctx context.Context, categoryID string) (*domain.Category, error) {
	return s.repo.Get(ctx, categoryID)
}

func (s *service) Create(ctx context.Context, caller domain.Caller, input domain.CategoryInput) (*domain.Category, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("admin only: %w", domain.ErrForbidden)
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, input.Name, ""); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c := &domain.Category{
		CategoryID:  id.New(),
		Name:        input.Name,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Update(ctx context.Context, caller domain.Caller, categoryID string, input domain.CategoryInput) (*domain.Category, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("admin only: %w", domain.ErrForbidden)
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, input.Name, categoryID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		fieldName:        input.Name,
		fieldDescription: input.Description,
	}
	if err := s.repo.Update(ctx, categoryID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, categoryID)
}

func (s *service) Delete(ctx context.Context, caller domain.Caller, categoryID string) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("admin only: %w", domain.ErrForbidden)
	}
	if _, err := s.repo.Get(ctx, categoryID); err != nil {
		return err
	}
	return s.repo.HardDelete(ctx, categoryID)
}

// ensureNameFree fails with ErrConflict when another category already uses name.
func (s *service) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repo.GetByName(ctx, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.CategoryID == selfID:
		return nil
	}
	return fmt.Errorf("category %q already exists: %w", name, domain.ErrConflict)
}
