package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/realtime"
	"github.com/Skotchmaster/shop_backend/internal/repo"
	"github.com/Skotchmaster/shop_backend/pkg/logging"
	middleware "github.com/Skotchmaster/shop_backend/pkg/middleware/auth"
)

type WSHTTP struct {
	Hub            *realtime.Hub
	Secret         []byte
	AllowedOrigins []string
}

func (h *WSHTTP) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.AllowedOrigins) == 0 || slices.Contains(h.AllowedOrigins, "*") {
		return true
	}
	if slices.Contains(h.AllowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// Serve upgrades the connection. A valid token is optional; anonymous
// sockets can only join public rooms.
func (h *WSHTTP) Serve(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "ws.serve")

	var p *realtime.Principal
	if claims, err := middleware.ClaimsFromRequest(c.Request(), h.Secret); err == nil {
		p = &realtime.Principal{UserID: claims.Subject, Role: claims.Role}
	} else if !errors.Is(err, middleware.ErrNoToken) {
		l.Warn("ws_token_error", "reason", "invalid token, continuing anonymous", "error", err)
	}

	if err := h.Hub.ServeWS(c.Response(), c.Request(), p, h.checkOrigin); err != nil {
		l.Warn("ws_upgrade_error", "error", err)
	}
	return nil
}

// NewRoomAuthorizer gates room joins. Catalog rooms are public, collection
// rooms of private entities are staff only, and entity rooms need the owner,
// a participant or staff. The role is re-read through lookup so a demoted
// or suspended account loses access without reconnecting.
func NewRoomAuthorizer(r *repo.GormRepo, lookup middleware.PrincipalLookup) realtime.Authorizer {
	return func(ctx context.Context, p *realtime.Principal, room string) error {
		switch room {
		case realtime.RoomProducts, realtime.RoomCategories:
			return nil
		}
		entity, id, _ := strings.Cut(room, "-")
		if entity == "product" || entity == "category" {
			return nil
		}
		if p == nil {
			return realtime.ErrRoomDenied
		}

		role := models.Role(p.Role)
		if lookup != nil {
			current, active, err := lookup(ctx, p.UserID)
			if err != nil || !active {
				return realtime.ErrRoomDenied
			}
			role = models.Role(current)
		}
		if role.IsStaff() {
			return nil
		}

		switch room {
		case realtime.RoomOrders, realtime.RoomUsers, realtime.RoomMessages:
			return realtime.ErrRoomDenied
		}

		switch entity {
		case "user":
			if id == p.UserID {
				return nil
			}
		case "order":
			oid, err := uuid.Parse(id)
			if err != nil {
				return realtime.ErrRoomDenied
			}
			o, err := r.GetOrder(ctx, oid)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return realtime.ErrRoomDenied
				}
				return err
			}
			if o.UserID.String() == p.UserID {
				return nil
			}
		case "message":
			mid, err := uuid.Parse(id)
			if err != nil {
				return realtime.ErrRoomDenied
			}
			m, err := r.GetMessage(ctx, mid)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return realtime.ErrRoomDenied
				}
				return err
			}
			if m.SenderID.String() == p.UserID || m.RecipientID.String() == p.UserID {
				return nil
			}
		}
		return realtime.ErrRoomDenied
	}
}
