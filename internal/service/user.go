package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/repo"
	"github.com/Skotchmaster/shop_backend/internal/transport"
	"github.com/Skotchmaster/shop_backend/internal/util"
	pkg_hash "github.com/Skotchmaster/shop_backend/pkg/hash"
)

type UserService struct {
	Repo *repo.GormRepo
}

// guardSuperAdmin enforces that only a super-admin may touch super-admin
// accounts or hand out that role.
func guardSuperAdmin(actor Actor, target *models.User, newRole models.Role) error {
	if actor.IsSuperAdmin() {
		return nil
	}
	if target != nil && target.Role == models.RoleSuperAdmin {
		return fmt.Errorf("%w: only a super-admin may modify a super-admin", ErrForbidden)
	}
	if newRole == models.RoleSuperAdmin {
		return fmt.Errorf("%w: only a super-admin may grant the super-admin role", ErrForbidden)
	}
	return nil
}

func (svc *UserService) List(ctx context.Context, q transport.UserQuery) ([]models.User, util.Pagination, error) {
	offset, limit := util.Calculate(q.Page, q.Limit)
	total, users, err := svc.Repo.ListUsers(ctx, repo.UserFilter{
		Search: q.Search,
		Role:   models.Role(q.Role),
		Status: models.UserStatus(q.Status),
		Sort:   q.Sort,
	}, repo.Page{Offset: offset, Limit: limit})
	if err != nil {
		return nil, util.Pagination{}, err
	}
	return users, util.NewPagination(offset, limit, total), nil
}

func (svc *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := svc.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return u, nil
}

func addressFrom(a *transport.UserAddressRequest) models.UserAddress {
	return models.UserAddress{
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

func addressFields(a *transport.UserAddressRequest, fields map[string]any) {
	addr := addressFrom(a)
	fields["address_street"] = addr.Street
	fields["address_city"] = addr.City
	fields["address_state"] = addr.State
	fields["address_postal_code"] = addr.PostalCode
	fields["address_country"] = addr.Country
}

func (svc *UserService) Create(ctx context.Context, actor Actor, req transport.CreateUserRequest) (*models.User, error) {
	role := models.RoleCustomer
	if req.Role != "" {
		role = models.Role(req.Role)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, req.Role)
	}
	if err := guardSuperAdmin(actor, nil, role); err != nil {
		return nil, err
	}
	status := models.UserActive
	if req.Status != "" {
		status = models.UserStatus(req.Status)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
	}
	if len(req.Password) < pkg_hash.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, pkg_hash.MinPasswordLength)
	}
	pwHash, err := pkg_hash.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        normalizeEmail(req.Email),
		PasswordHash: pwHash,
		Role:         role,
		Status:       status,
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
	}
	if req.Address != nil {
		u.Address = addressFrom(req.Address)
	}
	if err := svc.Repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, err
	}
	return u, nil
}

func (svc *UserService) Update(ctx context.Context, actor Actor, id uuid.UUID, req transport.UpdateUserRequest) (*models.User, error) {
	target, err := svc.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	var newRole models.Role
	if req.Role != nil {
		newRole = models.Role(*req.Role)
		if !newRole.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, *req.Role)
		}
	}
	if err := guardSuperAdmin(actor, target, newRole); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		fields["email"] = normalizeEmail(*req.Email)
	}
	if req.Role != nil {
		fields["role"] = newRole
	}
	if req.Status != nil {
		s := models.UserStatus(*req.Status)
		if !s.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *req.Status)
		}
		fields["status"] = s
	}
	if req.PhoneNumber != nil {
		fields["phone_number"] = strings.TrimSpace(*req.PhoneNumber)
	}
	if req.Avatar != nil {
		fields["avatar"] = strings.TrimSpace(*req.Avatar)
	}
	if req.EmailVerified != nil {
		fields["email_verified"] = *req.EmailVerified
	}
	if req.Address != nil {
		addressFields(req.Address, fields)
	}

	u, err := svc.Repo.UpdateUser(ctx, id, fields)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return u, nil
}

func (svc *UserService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if id == actor.ID {
		return fmt.Errorf("%w: cannot delete your own account", ErrConflict)
	}
	target, err := svc.Repo.GetUserByID(ctx, id)
	if err != nil {
		return storeErr(err, "user")
	}
	if err := guardSuperAdmin(actor, target, ""); err != nil {
		return err
	}
	return storeErr(svc.Repo.DeleteUser(ctx, id), "user")
}

// UpdateProfile edits the caller's own contact details. Role, status and
// email are not reachable from here.
func (svc *UserService) UpdateProfile(ctx context.Context, actor Actor, req transport.UpdateProfileRequest) (*models.User, error) {
	fields := map[string]any{}
	if req.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.PhoneNumber != nil {
		fields["phone_number"] = strings.TrimSpace(*req.PhoneNumber)
	}
	if req.Avatar != nil {
		fields["avatar"] = strings.TrimSpace(*req.Avatar)
	}
	if req.Address != nil {
		addressFields(req.Address, fields)
	}
	u, err := svc.Repo.UpdateUser(ctx, actor.ID, fields)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return u, nil
}

func (svc *UserService) Wishlist(ctx context.Context, actor Actor) ([]models.Product, error) {
	return svc.Repo.Wishlist(ctx, actor.ID)
}

func (svc *UserService) AddToWishlist(ctx context.Context, actor Actor, productID uuid.UUID) ([]models.Product, error) {
	if _, err := svc.Repo.GetProduct(ctx, productID); err != nil {
		return nil, storeErr(err, "product")
	}
	if err := svc.Repo.AddToWishlist(ctx, actor.ID, productID); err != nil {
		return nil, err
	}
	return svc.Repo.Wishlist(ctx, actor.ID)
}

func (svc *UserService) RemoveFromWishlist(ctx context.Context, actor Actor, productID uuid.UUID) ([]models.Product, error) {
	if err := svc.Repo.RemoveFromWishlist(ctx, actor.ID, productID); err != nil {
		return nil, err
	}
	return svc.Repo.Wishlist(ctx, actor.ID)
}

func (svc *UserService) Notifications(ctx context.Context, actor Actor) ([]models.Notification, error) {
	return svc.Repo.Notifications(ctx, actor.ID)
}

func (svc *UserService) MarkNotificationRead(ctx context.Context, actor Actor, id uuid.UUID) (*models.Notification, error) {
	n, err := svc.Repo.MarkNotificationRead(ctx, actor.ID, id)
	if err != nil {
		return nil, storeErr(err, "notification")
	}
	return n, nil
}

func (svc *UserService) ClearNotifications(ctx context.Context, actor Actor) error {
	return svc.Repo.ClearNotifications(ctx, actor.ID)
}
