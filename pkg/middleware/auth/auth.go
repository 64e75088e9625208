package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	jwthelp "github.com/Skotchmaster/shop_backend/pkg/jwt"
	"github.com/Skotchmaster/shop_backend/pkg/tokens"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"

	ctxToken = "jwt_token"
)

var (
	ErrUnknownPrincipal = errors.New("unknown principal")
	ErrNoToken          = errors.New("no access token")
)

// PrincipalLookup resolves the current role and activity of a token subject.
type PrincipalLookup func(ctx context.Context, userID string) (role string, active bool, err error)

type Authenticator struct {
	Secret []byte
	Lookup PrincipalLookup
}

func NewAuthenticator(secret []byte, lookup PrincipalLookup) *Authenticator {
	return &Authenticator{Secret: secret, Lookup: lookup}
}

func (a *Authenticator) parser() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    a.Secret,
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		ContextKey:    ctxToken,
		TokenLookup:   "header:Authorization:Bearer ,cookie:" + jwthelp.AccessCookie,
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(tokens.AccessClaims) },
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authorized to access this route")
		},
	})
}

func (a *Authenticator) RequireAuth() echo.MiddlewareFunc {
	parse := a.parser()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return parse(func(c echo.Context) error {
			token, ok := c.Get(ctxToken).(*jwt.Token)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authorized to access this route")
			}
			claims, ok := token.Claims.(*tokens.AccessClaims)
			if !ok || claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
			}

			role := claims.Role
			if a.Lookup != nil {
				current, active, err := a.Lookup(c.Request().Context(), claims.Subject)
				if err != nil {
					if errors.Is(err, ErrUnknownPrincipal) {
						return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
					}
					return err
				}
				if !active {
					return echo.NewHTTPError(http.StatusUnauthorized, "user account is not active")
				}
				role = current
			}

			setUserContext(c, claims.Subject, role)
			return next(c)
		})
	}
}

func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			if role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing role")
			}
			if !slices.Contains(roles, role) {
				return echo.NewHTTPError(http.StatusForbidden, "user role "+role+" is not authorized to access this route")
			}
			return next(c)
		}
	}
}

// ClaimsFromRequest reads an access token without rejecting the request.
// Used where authentication is optional.
func ClaimsFromRequest(r *http.Request, secret []byte) (*tokens.AccessClaims, error) {
	raw := ""
	if h := r.Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		raw = strings.TrimPrefix(h, "Bearer ")
	}
	if raw == "" {
		if ck, err := r.Cookie(jwthelp.AccessCookie); err == nil {
			raw = ck.Value
		}
	}
	if raw == "" {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		return nil, ErrNoToken
	}
	return tokens.AccessClaimsFromToken(raw, secret)
}

func UserID(c echo.Context) string {
	v, _ := c.Get(CtxUserID).(string)
	return v
}

func Role(c echo.Context) string {
	v, _ := c.Get(CtxRole).(string)
	return v
}

func setUserContext(c echo.Context, userID, role string) {
	c.Set(CtxUserID, userID)
	c.Set(CtxRole, role)
}
