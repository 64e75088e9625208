package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super-admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin || r == RoleSuperAdmin
}

// IsStaff reports whether the role may use admin routes.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

type UserStatus string

const (
	UserActive    UserStatus = "Active"
	UserInactive  UserStatus = "Inactive"
	UserSuspended UserStatus = "Suspended"
)

func (s UserStatus) Valid() bool {
	return s == UserActive || s == UserInactive || s == UserSuspended
}

type UserAddress struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

type User struct {
	ID            uuid.UUID   `gorm:"primaryKey"                             json:"id"`
	FirstName     string      `gorm:"size:50;not null"                       json:"firstName"`
	LastName      string      `gorm:"size:50;not null"                       json:"lastName"`
	Email         string      `gorm:"size:255;uniqueIndex;not null"          json:"email"`
	PasswordHash  string      `gorm:"not null"                               json:"-"`
	Role          Role        `gorm:"size:20;not null;default:customer"      json:"role"`
	Avatar        string      `json:"avatar,omitempty"`
	PhoneNumber   string      `json:"phoneNumber,omitempty"`
	Address       UserAddress `gorm:"embedded;embeddedPrefix:address_"       json:"address"`
	Status        UserStatus  `gorm:"size:20;not null;default:Active;index" json:"status"`
	LastLogin     *time.Time  `json:"lastLogin,omitempty"`
	EmailVerified bool        `gorm:"not null;default:false"                 json:"emailVerified"`

	Wishlist      []Product      `gorm:"many2many:user_wishlist;"        json:"wishlist,omitempty"`
	Notifications []Notification `gorm:"constraint:OnDelete:CASCADE;"    json:"notifications,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type NotificationType string

const (
	NotificationOrder     NotificationType = "order"
	NotificationSystem    NotificationType = "system"
	NotificationPromotion NotificationType = "promotion"
)

type Notification struct {
	ID        uuid.UUID        `gorm:"primaryKey"              json:"id"`
	UserID    uuid.UUID        `gorm:"index;not null"          json:"user"`
	Message   string           `gorm:"not null"                json:"message"`
	Type      NotificationType `gorm:"size:20;not null"        json:"type"`
	Read      bool             `gorm:"not null;default:false"  json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

type RefreshToken struct {
	ID        uuid.UUID `gorm:"primaryKey"             json:"id"`
	TokenHash string    `gorm:"uniqueIndex;not null"   json:"-"`
	UserID    uuid.UUID `gorm:"index;not null"         json:"user_id"`
	JTI       string    `gorm:"uniqueIndex;not null"   json:"jti"`
	ExpiresAt int64     `gorm:"not null"               json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false" json:"revoked"`
}

func (t *RefreshToken) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type TokenPurpose string

const (
	TokenPasswordReset     TokenPurpose = "password-reset"
	TokenEmailVerification TokenPurpose = "email-verification"
)

// UserToken is a single-use emailed token. Only its sha256 is stored.
type UserToken struct {
	ID        uuid.UUID    `gorm:"primaryKey"             json:"id"`
	UserID    uuid.UUID    `gorm:"index;not null"         json:"user_id"`
	Purpose   TokenPurpose `gorm:"size:30;not null;index" json:"purpose"`
	TokenHash string       `gorm:"uniqueIndex;not null"   json:"-"`
	ExpiresAt int64        `gorm:"not null"               json:"expires_at"`
	Used      bool         `gorm:"not null;default:false" json:"used"`
}

func (t *UserToken) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
