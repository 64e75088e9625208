package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/repo"
	"github.com/Skotchmaster/shop_backend/internal/transport"
	pkg_hash "github.com/Skotchmaster/shop_backend/pkg/hash"
	jwthelp "github.com/Skotchmaster/shop_backend/pkg/jwt"
	"github.com/Skotchmaster/shop_backend/pkg/logging"
	middleware "github.com/Skotchmaster/shop_backend/pkg/middleware/auth"
	"github.com/Skotchmaster/shop_backend/pkg/tokens"
)

type AuthService struct {
	Repo          *repo.GormRepo
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Mail          Mailer
	Now           func() time.Time
}

const (
	passwordResetTTL     = time.Hour
	emailVerificationTTL = 24 * time.Hour
)

type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (svc *AuthService) ttl() (time.Duration, time.Duration) {
	access, refresh := svc.AccessTTL, svc.RefreshTTL
	if access <= 0 {
		access = 15 * time.Minute
	}
	if refresh <= 0 {
		refresh = 7 * 24 * time.Hour
	}
	return access, refresh
}

// issue signs a token pair and returns the refresh row to persist.
func (svc *AuthService) issue(u *models.User) (*LoginResult, *models.RefreshToken, error) {
	now := nowFunc(svc.Now)
	accessTTL, refreshTTL := svc.ttl()
	accessExp := now.Add(accessTTL)
	refreshExp := now.Add(refreshTTL)

	access, err := tokens.NewAccessToken(svc.AccessSecret, u.ID.String(), string(u.Role), accessExp)
	if err != nil {
		return nil, nil, err
	}
	jti := jwthelp.NewJTI()
	refresh, err := tokens.NewRefreshToken(svc.RefreshSecret, u.ID.String(), jti, refreshExp)
	if err != nil {
		return nil, nil, err
	}
	row := &models.RefreshToken{
		TokenHash: jwthelp.Sha256Hex(refresh),
		UserID:    u.ID,
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
	}
	return &LoginResult{
		User:         u,
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, row, nil
}

func (svc *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if len(req.Password) < pkg_hash.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, pkg_hash.MinPasswordLength)
	}
	pwHash, err := pkg_hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}
	u := &models.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        normalizeEmail(req.Email),
		PasswordHash: pwHash,
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		Role:         models.RoleCustomer,
		Status:       models.UserActive,
	}
	if err := svc.Repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			l.Warn("register_error", "status", 409, "reason", "email already registered")
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, err
	}

	if svc.Mail != nil {
		if err := svc.Mail.Welcome(ctx, u); err != nil {
			l.Warn("welcome_mail_error", "user_id", u.ID, "error", err)
		}
		if err := svc.sendVerification(ctx, u); err != nil {
			l.Warn("verification_mail_error", "user_id", u.ID, "error", err)
		}
	}
	return svc.startSession(ctx, u)
}

// emailToken stores the hash of a fresh token for purpose and returns the
// plain value for the link.
func (svc *AuthService) emailToken(ctx context.Context, u *models.User, purpose models.TokenPurpose, ttl time.Duration) (string, error) {
	token, err := jwthelp.NewOpaqueToken()
	if err != nil {
		return "", err
	}
	err = svc.Repo.IssueUserToken(ctx, &models.UserToken{
		UserID:    u.ID,
		Purpose:   purpose,
		TokenHash: jwthelp.Sha256Hex(token),
		ExpiresAt: nowFunc(svc.Now).Add(ttl).Unix(),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

func (svc *AuthService) sendVerification(ctx context.Context, u *models.User) error {
	token, err := svc.emailToken(ctx, u, models.TokenEmailVerification, emailVerificationTTL)
	if err != nil {
		return err
	}
	return svc.Mail.EmailVerification(ctx, u, token)
}

// ForgotPassword mails a reset link when the email belongs to an active
// account. The caller gets the same answer either way.
func (svc *AuthService) ForgotPassword(ctx context.Context, req transport.ForgotPasswordRequest) error {
	l := logging.FromContext(ctx).With("svc", "auth.forgot_password")

	u, err := svc.Repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Info("forgot_password_skipped", "reason", "unknown email")
			return nil
		}
		return err
	}
	if u.Status != models.UserActive {
		l.Info("forgot_password_skipped", "reason", "account not active", "user_id", u.ID)
		return nil
	}
	if svc.Mail == nil {
		l.Warn("forgot_password_skipped", "reason", "mail is not configured", "user_id", u.ID)
		return nil
	}

	token, err := svc.emailToken(ctx, u, models.TokenPasswordReset, passwordResetTTL)
	if err != nil {
		return err
	}
	if err := svc.Mail.PasswordReset(ctx, u, token, passwordResetTTL); err != nil {
		l.Error("reset_mail_error", "user_id", u.ID, "error", err)
	}
	return nil
}

// ResetPassword consumes a reset token, sets the new password, revokes every
// session and starts a fresh one.
func (svc *AuthService) ResetPassword(ctx context.Context, token string, req transport.ResetPasswordRequest) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.reset_password")

	if len(req.Password) < pkg_hash.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, pkg_hash.MinPasswordLength)
	}
	pwHash, err := pkg_hash.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	uid, err := svc.Repo.ConsumeUserToken(ctx, models.TokenPasswordReset, token, nowFunc(svc.Now))
	if err != nil {
		if errors.Is(err, repo.ErrTokenRevoked) {
			l.Warn("reset_password_error", "status", 400, "reason", "invalid or expired token")
			return nil, fmt.Errorf("%w: invalid or expired token", ErrValidation)
		}
		return nil, err
	}

	u, err := svc.Repo.UpdateUser(ctx, uid, map[string]any{"password_hash": pwHash})
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if err := svc.Repo.RevokeUserTokens(ctx, u.ID); err != nil {
		return nil, err
	}
	if u.Status != models.UserActive {
		return nil, fmt.Errorf("%w: account is %s", ErrUnauthorized, strings.ToLower(string(u.Status)))
	}
	return svc.startSession(ctx, u)
}

func (svc *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	uid, err := svc.Repo.ConsumeUserToken(ctx, models.TokenEmailVerification, token, nowFunc(svc.Now))
	if err != nil {
		if errors.Is(err, repo.ErrTokenRevoked) {
			return nil, fmt.Errorf("%w: invalid or expired token", ErrValidation)
		}
		return nil, err
	}
	u, err := svc.Repo.UpdateUser(ctx, uid, map[string]any{"email_verified": true})
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return u, nil
}

func (svc *AuthService) startSession(ctx context.Context, u *models.User) (*LoginResult, error) {
	res, row, err := svc.issue(u)
	if err != nil {
		return nil, err
	}
	if err := svc.Repo.AddRefreshToken(ctx, row); err != nil {
		return nil, err
	}
	now := nowFunc(svc.Now)
	if err := svc.Repo.TouchLastLogin(ctx, u.ID, now); err != nil {
		logging.FromContext(ctx).Warn("last_login_error", "user_id", u.ID, "error", err)
	}
	u.LastLogin = &now
	return res, nil
}

func (svc *AuthService) Login(ctx context.Context, req transport.LoginRequest) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	u, err := svc.Repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		return nil, err
	}
	if !pkg_hash.CheckPassword(u.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "user_id", u.ID)
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if u.Status != models.UserActive {
		l.Warn("login_failed", "status", 401, "reason", "account not active", "user_id", u.ID)
		return nil, fmt.Errorf("%w: account is %s", ErrUnauthorized, strings.ToLower(string(u.Status)))
	}
	return svc.startSession(ctx, u)
}

// Refresh rotates the refresh token: the presented one is revoked and a new
// pair is issued.
func (svc *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token required", ErrUnauthorized)
	}
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, svc.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrUnauthorized)
	}
	u, err := svc.Repo.GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrUnauthorized)
		}
		return nil, err
	}
	if u.Status != models.UserActive {
		return nil, fmt.Errorf("%w: account is not active", ErrUnauthorized)
	}

	res, row, err := svc.issue(u)
	if err != nil {
		return nil, err
	}
	if err := svc.Repo.RotateRefreshToken(ctx, claims.ID, row); err != nil {
		return nil, storeErr(err, "refresh token")
	}
	return res, nil
}

func (svc *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return svc.Repo.RevokeRefreshToken(ctx, refreshToken)
}

func (svc *AuthService) Me(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := svc.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return u, nil
}

// UpdatePassword checks the current password, revokes every session and
// starts a fresh one.
func (svc *AuthService) UpdatePassword(ctx context.Context, actor Actor, req transport.UpdatePasswordRequest) (*LoginResult, error) {
	u, err := svc.Repo.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if !pkg_hash.CheckPassword(u.PasswordHash, req.CurrentPassword) {
		return nil, fmt.Errorf("%w: current password is incorrect", ErrUnauthorized)
	}
	if len(req.NewPassword) < pkg_hash.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, pkg_hash.MinPasswordLength)
	}
	pwHash, err := pkg_hash.HashPassword(req.NewPassword)
	if err != nil {
		return nil, err
	}
	if u, err = svc.Repo.UpdateUser(ctx, u.ID, map[string]any{"password_hash": pwHash}); err != nil {
		return nil, storeErr(err, "user")
	}
	if err := svc.Repo.RevokeUserTokens(ctx, u.ID); err != nil {
		return nil, err
	}
	return svc.startSession(ctx, u)
}

// Principal re-reads the role and status behind a token subject.
func (svc *AuthService) Principal(ctx context.Context, userID string) (string, bool, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return "", false, middleware.ErrUnknownPrincipal
	}
	u, err := svc.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, middleware.ErrUnknownPrincipal
		}
		return "", false, err
	}
	return string(u.Role), u.Status == models.UserActive, nil
}
