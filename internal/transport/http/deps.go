package http

import (
	"context"
	"time"

	"github.com/lostfound-api/internal/application/category"
	"github.com/lostfound-api/internal/application/claim"
	"github.com/lostfound-api/internal/application/item"
	"github.com/lostfound-api/internal/application/notification"
	"github.com/lostfound-api/internal/application/session"
	"github.com/lostfound-api/internal/application/sweeper"
	"github.com/lostfound-api/internal/application/user"
	"github.com/lostfound-api/internal/config"
	"github.com/lostfound-api/internal/domain"
	jwtinfra "github.com/lostfound-api/internal/infrastructure/jwt"
	"github.com/lostfound-api/internal/pkg/sse"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// ScanPage walks the whole table; admin listing only.
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	SetAccountStatus(ctx context.Context, userID string, status int) error
	SetRole(ctx context.Context, userID, role string) error
	Delete(ctx context.Context, userID string) error
}

// SessionRepository is the minimal interface the router requires from a session store.
type SessionRepository interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	Rotate(ctx context.Context, sessionID, oldToken, newToken string, newExpiry int64) error
	Revoke(ctx context.Context, sessionID, reason string) error
	RevokeByUser(ctx context.Context, userID, keepSessionID, reason string) error
}

// CategoryRepository is the minimal interface the router requires from a category store.
type CategoryRepository interface {
	Scan(ctx context.Context) ([]domain.Category, error)
	Get(ctx context.Context, categoryID string) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	Put(ctx context.Context, c *domain.Category) error
	Update(ctx context.Context, categoryID string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, categoryID string) error
}

// ItemRepository stores both posting variants.
type ItemRepository interface {
	Put(ctx context.Context, p *domain.Posting) error
	Get(ctx context.Context, t domain.ItemType, itemID string) (*domain.Posting, error)
	Update(ctx context.Context, t domain.ItemType, itemID string, expected domain.ItemStatus, updates map[string]interface{}) error
	CompareAndSwapStatus(ctx context.Context, t domain.ItemType, itemID string, from, to domain.ItemStatus) error
	Delete(ctx context.Context, t domain.ItemType, itemID string) error
	List(ctx context.Context, f domain.ItemFilter) ([]domain.Posting, string, error)
	ListPendingCreatedBefore(ctx context.Context, t domain.ItemType, cutoff time.Time) ([]domain.Posting, error)
	CountByStatus(ctx context.Context, t domain.ItemType, s domain.ItemStatus) (int, error)
}

// ClaimRepository is the minimal interface the router requires from a claim store.
type ClaimRepository interface {
	Put(ctx context.Context, c *domain.ClaimApplication) error
	Get(ctx context.Context, claimID string) (*domain.ClaimApplication, error)
	ListByItem(ctx context.Context, t domain.ItemType, itemID string, status *domain.ClaimStatus) ([]domain.ClaimApplication, error)
	ListByApplicant(ctx context.Context, applicantID string, status *domain.ClaimStatus, limit int32, cursor string) ([]domain.ClaimApplication, string, error)
	ListByPublisher(ctx context.Context, publisherID string, status *domain.ClaimStatus, limit int32, cursor string) ([]domain.ClaimApplication, string, error)
	List(ctx context.Context, f domain.ClaimFilter) ([]domain.ClaimApplication, string, error)
	Resolve(ctx context.Context, c *domain.ClaimApplication, to domain.ClaimStatus, auditorID, remark string, at time.Time) error
	Approve(ctx context.Context, in domain.ClaimApproval) error
}

// NotificationRepository is the minimal interface the router requires from a notification store.
type NotificationRepository interface {
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, userID string, f domain.NotificationFilter) ([]domain.Notification, string, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkAsRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, notificationID string) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         UserRepository
	SessionRepo      SessionRepository
	CategoryRepo     CategoryRepository
	ItemRepo         ItemRepository
	ClaimRepo        ClaimRepository
	NotificationRepo NotificationRepository
	Notifier         notification.Notifier
	Hub              *sse.Hub
	JWTProvider      *jwtinfra.Provider
}

// Services are the application services built from Deps. The scheduler in
// cmd/api shares them with the router.
type Services struct {
	User         user.Service
	Session      session.Service
	Category     category.Service
	Item         item.Service
	Claim        claim.Service
	Notification notification.Service
	Sweeper      *sweeper.Sweeper
}

func NewServices(cfg *config.Config, deps *Deps) *Services {
	claimSvc := claim.NewService(claim.ServiceDeps{
		ClaimRepo: deps.ClaimRepo,
		ItemRepo:  deps.ItemRepo,
		UserRepo:  deps.UserRepo,
		Notifier:  deps.Notifier,
	})
	return &Services{
		User: user.NewService(user.ServiceDeps{
			UserRepo:    deps.UserRepo,
			SessionRepo: deps.SessionRepo,
		}),
		Session: session.NewService(session.ServiceDeps{
			SessionRepo:     deps.SessionRepo,
			UserRepo:        deps.UserRepo,
			JWTProvider:     deps.JWTProvider,
			RefreshTokenDur: cfg.RefreshTokenExpiry,
		}),
		Category: category.NewService(deps.CategoryRepo),
		Item: item.NewService(item.ServiceDeps{
			ItemRepo:     deps.ItemRepo,
			Claims:       claimSvc,
			CategoryRepo: deps.CategoryRepo,
			Notifier:     deps.Notifier,
		}),
		Claim:        claimSvc,
		Notification: notification.NewService(deps.NotificationRepo),
		Sweeper:      sweeper.New(deps.ItemRepo, deps.Notifier),
	}
}
