package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_backend/internal/realtime"
	"github.com/Skotchmaster/shop_backend/pkg/db"
	middleware "github.com/Skotchmaster/shop_backend/pkg/middleware/auth"
	"github.com/Skotchmaster/shop_backend/pkg/middleware/ratelimit"
)

type Limits struct {
	Store           ratelimit.Store
	Window          time.Duration
	MaxRequests     int
	AuthWindow      time.Duration
	AuthMaxRequests int
}

type Deps struct {
	DB     *gorm.DB
	Hub    *realtime.Hub
	Auth   *middleware.Authenticator
	Limits Limits

	AuthHandler     *AuthHTTP
	UserHandler     *UserHTTP
	ProductHandler  *ProductHTTP
	CategoryHandler *CategoryHTTP
	OrderHandler    *OrderHTTP
	MessageHandler  *MessageHTTP
	PaymentHandler  *PaymentHTTP
	WSHandler       *WSHTTP
}

// callerKey keys limits by token subject when one verifies, otherwise by
// client IP. The limiter runs ahead of RequireAuth, so it parses the token
// itself.
func callerKey(secret []byte) func(c echo.Context) string {
	return func(c echo.Context) string {
		if claims, err := middleware.ClaimsFromRequest(c.Request(), secret); err == nil && claims.Subject != "" {
			return "user:" + claims.Subject
		}
		return "ip:" + c.RealIP()
	}
}

func (d *Deps) health(c echo.Context) error {
	dbStatus := "connected"
	status := http.StatusOK
	if d.DB == nil {
		dbStatus, status = "disconnected", http.StatusServiceUnavailable
	} else if err := db.Ping(c.Request().Context(), d.DB); err != nil {
		dbStatus, status = "disconnected", http.StatusServiceUnavailable
	}
	body := map[string]any{
		"success":   status == http.StatusOK,
		"server":    "running",
		"database":  dbStatus,
		"timestamp": time.Now().UTC(),
	}
	if d.Hub != nil {
		body["websocketClients"] = d.Hub.Clients()
	}
	return c.JSON(status, body)
}

const webhookPath = "/api/v1/payments/webhook"

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.DB == nil || db.Ping(c.Request().Context(), d.DB) != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/health", d.health)

	if d.WSHandler != nil {
		e.GET("/ws", d.WSHandler.Serve)
	}

	key := callerKey(d.Auth.Secret)
	v1 := e.Group("/api/v1", ratelimit.Middleware(ratelimit.Config{
		Name:    "api",
		Store:   d.Limits.Store,
		Limit:   d.Limits.MaxRequests,
		Window:  d.Limits.Window,
		KeyFunc: key,
		// Processor deliveries come in bursts from a few shared IPs and are
		// authenticated by signature instead.
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == webhookPath
		},
	}))

	authed := d.Auth.RequireAuth()
	staff := middleware.RequireRole("admin", "super-admin")

	auth := v1.Group("/auth", ratelimit.Middleware(ratelimit.Config{
		Name:    "auth",
		Store:   d.Limits.Store,
		Limit:   d.Limits.AuthMaxRequests,
		Window:  d.Limits.AuthWindow,
		Message: "too many authentication attempts, please try again later",
		KeyFunc: key,
	}))
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.GET("/me", d.AuthHandler.Me, authed)
	auth.PUT("/update-password", d.AuthHandler.UpdatePassword, authed)
	auth.POST("/forgot-password", d.AuthHandler.ForgotPassword)
	auth.PUT("/reset-password/:token", d.AuthHandler.ResetPassword)
	auth.GET("/verify-email/:token", d.AuthHandler.VerifyEmail)

	orders := v1.Group("/orders", authed)
	orders.GET("", d.OrderHandler.List)
	orders.POST("", d.OrderHandler.Create)
	orders.GET("/my-orders", d.OrderHandler.MyOrders)
	orders.GET("/stats", d.OrderHandler.Stats, staff)
	orders.GET("/:id", d.OrderHandler.Get)
	orders.DELETE("/:id", d.OrderHandler.Delete, staff)
	orders.PUT("/:id/status", d.OrderHandler.UpdateStatus, staff)
	orders.POST("/:id/refund", d.OrderHandler.Refund, staff)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.List)
	products.GET("/search", d.ProductHandler.Search)
	products.GET("/:id", d.ProductHandler.Get)
	products.POST("", d.ProductHandler.Create, authed, staff)
	products.PUT("/:id", d.ProductHandler.Update, authed, staff)
	products.DELETE("/:id", d.ProductHandler.Delete, authed, staff)
	products.POST("/:id/ratings", d.ProductHandler.AddRating, authed)
	products.PUT("/:id/ratings/:ratingId", d.ProductHandler.UpdateRating, authed)
	products.DELETE("/:id/ratings/:ratingId", d.ProductHandler.DeleteRating, authed)

	categories := v1.Group("/categories")
	categories.GET("", d.CategoryHandler.List)
	categories.GET("/tree", d.CategoryHandler.Tree)
	categories.GET("/:id", d.CategoryHandler.Get)
	categories.POST("", d.CategoryHandler.Create, authed, staff)
	categories.PUT("/:id", d.CategoryHandler.Update, authed, staff)
	categories.DELETE("/:id", d.CategoryHandler.Delete, authed, staff)

	users := v1.Group("/users", authed)
	users.PUT("/profile", d.UserHandler.UpdateProfile)
	users.GET("/wishlist", d.UserHandler.Wishlist)
	users.POST("/wishlist", d.UserHandler.AddToWishlist)
	users.DELETE("/wishlist/:productId", d.UserHandler.RemoveFromWishlist)
	users.GET("/notifications", d.UserHandler.Notifications)
	users.PUT("/notifications/:id/read", d.UserHandler.MarkNotificationRead)
	users.DELETE("/notifications", d.UserHandler.ClearNotifications)
	users.GET("", d.UserHandler.List, staff)
	users.POST("", d.UserHandler.Create, staff)
	users.GET("/:id", d.UserHandler.Get, staff)
	users.PUT("/:id", d.UserHandler.Update, staff)
	users.DELETE("/:id", d.UserHandler.Delete, staff)

	messages := v1.Group("/messages", authed)
	messages.GET("", d.MessageHandler.List)
	messages.POST("", d.MessageHandler.Create)
	messages.GET("/admin/all", d.MessageHandler.ListAll, staff)
	messages.GET("/:id", d.MessageHandler.Get)
	messages.PUT("/:id", d.MessageHandler.Update)
	messages.DELETE("/:id", d.MessageHandler.Delete)
	messages.PUT("/:id/archive", d.MessageHandler.Archive)

	v1.POST("/payments/webhook", d.PaymentHandler.Webhook)
}
