package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/shop_backend/internal/models"
)

type Mailer interface {
	Welcome(ctx context.Context, u *models.User) error
	OrderConfirmation(ctx context.Context, u *models.User, o *models.Order) error
	OrderStatusUpdate(ctx context.Context, u *models.User, o *models.Order) error
	PasswordReset(ctx context.Context, u *models.User, token string, ttl time.Duration) error
	EmailVerification(ctx context.Context, u *models.User, token string) error
}

type ProductIndex interface {
	Upsert(ctx context.Context, p *models.Product) error
	Remove(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error)
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

func (a Actor) IsStaff() bool { return a.Role.IsStaff() }

func (a Actor) IsSuperAdmin() bool { return a.Role == models.RoleSuperAdmin }

// bestEffortTimeout bounds side effects that outlive the request.
const bestEffortTimeout = 15 * time.Second

func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), bestEffortTimeout)
}

func nowFunc(f func() time.Time) time.Time {
	if f != nil {
		return f().UTC()
	}
	return time.Now().UTC()
}
