package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/service"
	"github.com/Skotchmaster/shop_backend/internal/transport"
	jwthelp "github.com/Skotchmaster/shop_backend/pkg/jwt"
	"github.com/Skotchmaster/shop_backend/pkg/logging"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	Notify       *Notifier
	CookieSecure bool
}

type sessionResponse struct {
	User                  *models.User `json:"user"`
	AccessToken           string       `json:"accessToken"`
	RefreshToken          string       `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time    `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time    `json:"refreshTokenExpiresAt"`
}

func (h *AuthHTTP) session(c echo.Context, status int, res *service.LoginResult) error {
	c.SetCookie(jwthelp.CreateCookie(jwthelp.AccessCookie, res.AccessToken, "/", res.AccessExp, h.CookieSecure))
	c.SetCookie(jwthelp.CreateCookie(jwthelp.RefreshCookie, res.RefreshToken, "/", res.RefreshExp, h.CookieSecure))
	return respond(c, status, sessionResponse{
		User:                  res.User,
		AccessToken:           res.AccessToken,
		RefreshToken:          res.RefreshToken,
		AccessTokenExpiresAt:  res.AccessExp,
		RefreshTokenExpiresAt: res.RefreshExp,
	})
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := bind(c, l, "register_error", &req); err != nil {
		return err
	}
	res, err := h.Svc.Register(ctx, req)
	if err != nil {
		return fail(l, "register_error", err)
	}

	l.Info("register_success", "user_id", res.User.ID)
	h.Notify.Mutation(ctx, "user", KindCreated, res.User.ID.String(), res.User)
	return h.session(c, http.StatusCreated, res)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := bind(c, l, "login_error", &req); err != nil {
		return err
	}
	res, err := h.Svc.Login(ctx, req)
	if err != nil {
		return fail(l, "login_error", err)
	}

	l.Info("login_success", "user_id", res.User.ID)
	return h.session(c, http.StatusOK, res)
}

// refreshToken prefers the body and falls back to the cookie.
func refreshToken(c echo.Context) string {
	var req transport.RefreshRequest
	if err := c.Bind(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if ck, err := c.Cookie(jwthelp.RefreshCookie); err == nil {
		return ck.Value
	}
	return ""
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	res, err := h.Svc.Refresh(ctx, refreshToken(c))
	if err != nil {
		c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookie, "/", h.CookieSecure))
		c.SetCookie(jwthelp.DeleteCookie(jwthelp.RefreshCookie, "/", h.CookieSecure))
		return fail(l, "refresh_error", err)
	}

	l.Info("refresh_success", "user_id", res.User.ID)
	return h.session(c, http.StatusOK, res)
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if err := h.Svc.Logout(ctx, refreshToken(c)); err != nil {
		l.Error("logout_error", "status", 500, "reason", "cannot revoke refresh token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot revoke refresh token")
	}
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookie, "/", h.CookieSecure))
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.RefreshCookie, "/", h.CookieSecure))

	l.Info("logout_success")
	return respond(c, http.StatusOK, map[string]any{})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.me")

	a, err := actor(c)
	if err != nil {
		return err
	}
	u, err := h.Svc.Me(ctx, a.ID)
	if err != nil {
		return fail(l, "me_error", err)
	}
	return respond(c, http.StatusOK, u)
}

func (h *AuthHTTP) UpdatePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.update_password")

	a, err := actor(c)
	if err != nil {
		return err
	}
	var req transport.UpdatePasswordRequest
	if err := bind(c, l, "update_password_error", &req); err != nil {
		return err
	}
	res, err := h.Svc.UpdatePassword(ctx, a, req)
	if err != nil {
		return fail(l, "update_password_error", err)
	}

	l.Info("update_password_success", "user_id", a.ID)
	return h.session(c, http.StatusOK, res)
}

func (h *AuthHTTP) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.forgot_password")

	var req transport.ForgotPasswordRequest
	if err := bind(c, l, "forgot_password_error", &req); err != nil {
		return err
	}
	if err := h.Svc.ForgotPassword(ctx, req); err != nil {
		return fail(l, "forgot_password_error", err)
	}
	return respond(c, http.StatusOK, map[string]string{
		"message": "if that email is registered, a reset link has been sent",
	})
}

func (h *AuthHTTP) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.reset_password")

	var req transport.ResetPasswordRequest
	if err := bind(c, l, "reset_password_error", &req); err != nil {
		return err
	}
	res, err := h.Svc.ResetPassword(ctx, c.Param("token"), req)
	if err != nil {
		return fail(l, "reset_password_error", err)
	}

	l.Info("reset_password_success", "user_id", res.User.ID)
	return h.session(c, http.StatusOK, res)
}

func (h *AuthHTTP) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.verify_email")

	u, err := h.Svc.VerifyEmail(ctx, c.Param("token"))
	if err != nil {
		return fail(l, "verify_email_error", err)
	}

	l.Info("verify_email_success", "user_id", u.ID)
	h.Notify.Mutation(ctx, "user", KindUpdated, u.ID.String(), u)
	return respond(c, http.StatusOK, u)
}
