package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_backend/pkg/logging"
)

const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderRetry     = "Retry-After"
)

type Config struct {
	// Name separates counters of different limiters sharing one Store.
	Name    string
	Store   Store
	Limit   int
	Window  time.Duration
	Message string
	KeyFunc func(c echo.Context) string
	Skipper func(c echo.Context) bool
}

// CallerKey prefers the authenticated user id and falls back to client IP.
func CallerKey(c echo.Context) string {
	if id, ok := c.Get("user_id").(string); ok && id != "" {
		return "user:" + id
	}
	return "ip:" + c.RealIP()
}

func Middleware(cfg Config) echo.MiddlewareFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = CallerKey
	}
	if cfg.Message == "" {
		cfg.Message = "too many requests, please try again later"
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}
			ctx := c.Request().Context()

			res, err := cfg.Store.Hit(ctx, cfg.Name+"|"+cfg.KeyFunc(c), cfg.Limit, cfg.Window)
			if err != nil {
				logging.FromContext(ctx).Error("rate_limit_error", "limiter", cfg.Name, "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set(HeaderLimit, strconv.Itoa(res.Limit))
			h.Set(HeaderRemaining, strconv.Itoa(res.Remaining))
			h.Set(HeaderReset, strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retry := int(math.Ceil(time.Until(res.ResetAt).Seconds()))
				if retry < 1 {
					retry = 1
				}
				h.Set(HeaderRetry, strconv.Itoa(retry))
				return echo.NewHTTPError(http.StatusTooManyRequests, cfg.Message)
			}
			return next(c)
		}
	}
}
