package category

import (
	"context"
	"testing"

	"github.com/lostfound-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCategoryStore struct{ mock.Mock }

func (m *mockCategoryStore) Scan(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	cs, _ := args.Get(0).([]domain.Category)
	return cs, args.Error(1)
}
func (m *mockCategoryStore) Get(ctx context.Context, categoryID string) (*domain.Category, error) {
	args := m.Called(ctx, categoryID)
	if c, _ := args.Get(0).(*domain.Category); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCategoryStore) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	args := m.Called(ctx, name)
	if c, _ := args.Get(0).(*domain.Category); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCategoryStore) Put(ctx context.Context, c *domain.Category) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockCategoryStore) Update(ctx context.Context, categoryID string, updates map[string]interface{}) error {
	return m.Called(ctx, categoryID, updates).Error(0)
}
func (m *mockCategoryStore) HardDelete(ctx context.Context, categoryID string) error {
	return m.Called(ctx, categoryID).Error(0)
}

var (
	admin = domain.Caller{UserID: "root", Role: domain.RoleAdmin, AccountStatus: domain.AccountEnabled}
	plain = domain.Caller{UserID: "u1", Role: domain.RoleUser, AccountStatus: domain.AccountEnabled}
)

func TestList_SortedByName(t *testing.T) {
	repo := &mockCategoryStore{}
	repo.On("Scan", mock.Anything).Return([]domain.Category{{Name: "Wallets"}, {Name: "Cards"}, {Name: "Keys"}}, nil)

	cs, err := NewService(repo).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Cards", "Keys", "Wallets"}, []string{cs[0].Name, cs[1].Name, cs[2].Name})
}

func TestCreate(t *testing.T) {
	repo := &mockCategoryStore{}
	repo.On("GetByName", mock.Anything, "Electronics").Return(nil, domain.ErrNotFound)
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.Category")).Return(nil)

	c, err := NewService(repo).Create(context.Background(), admin, domain.CategoryInput{Name: "  Electronics ", Description: "phones, laptops"})
	require.NoError(t, err)
	assert.Equal(t, "Electronics", c.Name)
	assert.NotEmpty(t, c.CategoryID)
}

func TestCreate_DuplicateName(t *testing.T) {
	repo := &mockCategoryStore{}
	repo.On("GetByName", mock.Anything, "Keys").Return(&domain.Category{CategoryID: "c1", Name: "Keys"}, nil)

	_, err := NewService(repo).Create(context.Background(), admin, domain.CategoryInput{Name: "Keys"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCreate_Guards(t *testing.T) {
	svc := NewService(&mockCategoryStore{})

	_, err := svc.Create(context.Background(), plain, domain.CategoryInput{Name: "Keys"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.Create(context.Background(), admin, domain.CategoryInput{Name: "K"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdate_KeepsOwnName(t *testing.T) {
	repo := &mockCategoryStore{}
	repo.On("GetByName", mock.Anything, "Keys").Return(&domain.Category{CategoryID: "c1", Name: "Keys"}, nil)
	repo.On("Update", mock.Anything, "c1", map[string]interface{}{"name": "Keys", "description": "door keys"}).Return(nil)
	repo.On("Get", mock.Anything, "c1").Return(&domain.Category{CategoryID: "c1", Name: "Keys", Description: "door keys"}, nil)

	c, err := NewService(repo).Update(context.Background(), admin, "c1", domain.CategoryInput{Name: "Keys", Description: "door keys"})
	require.NoError(t, err)
	assert.Equal(t, "door keys", c.Description)
}

func TestUpdate_NameTakenByAnother(t *testing.T) {
	repo := &mockCategoryStore{}
	repo.On("GetByName", mock.Anything, "Keys").Return(&domain.Category{CategoryID: "c2", Name: "Keys"}, nil)

	_, err := NewService(repo).Update(context.Background(), admin, "c1", domain.CategoryInput{Name: "Keys"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDelete(t *testing.T) {
	repo := &mockCategoryStore{}
	repo.On("Get", mock.Anything, "c1").Return(&domain.Category{CategoryID: "c1"}, nil)
	repo.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)
	repo.On("HardDelete", mock.Anything, "c1").Return(nil)
	svc := NewService(repo)

	require.NoError(t, svc.Delete(context.Background(), admin, "c1"))
	assert.ErrorIs(t, svc.Delete(context.Background(), admin, "missing"), domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), plain, "c1"), domain.ErrForbidden)
	repo.AssertNumberOfCalls(t, "HardDelete", 1)
}
