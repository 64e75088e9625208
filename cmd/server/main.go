package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_backend/internal/config"
	"github.com/Skotchmaster/shop_backend/internal/events"
	"github.com/Skotchmaster/shop_backend/internal/httpserver"
	"github.com/Skotchmaster/shop_backend/internal/mailer"
	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/payment"
	"github.com/Skotchmaster/shop_backend/internal/realtime"
	"github.com/Skotchmaster/shop_backend/internal/repo"
	"github.com/Skotchmaster/shop_backend/internal/search"
	"github.com/Skotchmaster/shop_backend/internal/service"
	"github.com/Skotchmaster/shop_backend/pkg/db"
	jwthelp "github.com/Skotchmaster/shop_backend/pkg/jwt"
	"github.com/Skotchmaster/shop_backend/pkg/logging"
	middleware "github.com/Skotchmaster/shop_backend/pkg/middleware/auth"
	"github.com/Skotchmaster/shop_backend/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/shop_backend/pkg/middleware/logging"
	"github.com/Skotchmaster/shop_backend/pkg/middleware/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, log)

	gdb, err := db.Open(ctx, db.Options{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseURL})
	if err != nil {
		log.Error("db_connect_error", "error", err)
		os.Exit(1)
	}
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		log.Error("db_migrate_error", "error", err)
		os.Exit(1)
	}
	store := repo.New(gdb)

	var gateway payment.Gateway
	if cfg.Stripe.SecretKey != "" {
		gateway = payment.NewStripe(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	} else {
		log.Warn("payments_offline", "reason", "STRIPE_SECRET_KEY not set")
		gateway = payment.NewOffline()
	}

	sender, err := mailer.NewSender(cfg.Mail.Provider, cfg.Mail.SendGridAPIKey, cfg.Mail.PostmarkToken, cfg.Mail.From, cfg.Mail.FromName, log)
	if err != nil {
		log.Error("mailer_error", "error", err)
		os.Exit(1)
	}
	mail, err := mailer.New(sender, cfg.Mail.StoreName, cfg.Mail.ClientURL)
	if err != nil {
		log.Error("mailer_error", "error", err)
		os.Exit(1)
	}

	var index service.ProductIndex
	if cfg.ES.URL != "" {
		idx, err := search.NewIndex(ctx, search.Config{URL: cfg.ES.URL, User: cfg.ES.User, Password: cfg.ES.Password, Index: cfg.ES.Index})
		if err != nil {
			log.Warn("search_unavailable", "reason", "falling back to database search", "error", err)
		} else {
			index = idx
		}
	}

	var publisher events.Publisher = events.Discard{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, log)
		publisher = producer
	}

	authSvc := &service.AuthService{
		Repo:          store,
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		Mail:          mail,
	}
	productSvc := &service.ProductService{Repo: store, Index: index}
	orderSvc := &service.OrderService{
		Repo:     store,
		Payments: gateway,
		Mail:     mail,
		Shipping: service.ShippingPolicy{
			FlatRate: cfg.ShippingFlatRate,
			FreeOver: cfg.FreeShippingThreshold,
		},
		Currency:     cfg.Stripe.Currency,
		NumberPrefix: cfg.OrderNumberPrefix,
	}

	hub := realtime.NewHub(log, httpserver.NewRoomAuthorizer(store, authSvc.Principal), realtime.WithSendBuffer(cfg.WSSendBuffer))
	notify := &httpserver.Notifier{Hub: hub, Events: publisher}

	limits := ratelimit.NewMemoryStore()
	go limits.Run(ctx, time.Minute)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpserver.NewValidator()
	e.HTTPErrorHandler = httpserver.ErrorHandler

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.CookieSecure
	csrfCfg.SkipPrefixes = []string{"/api/v1/auth", "/api/v1/payments/webhook"}
	cookieAuthed := csrf.CookieAuthenticated(jwthelp.AccessCookie)
	csrfCfg.Skipper = func(c echo.Context) bool {
		return !strings.HasPrefix(c.Request().URL.Path, "/api/v1") || !cookieAuthed(c)
	}

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(
		echomw.Recover(),
		echomw.RequestID(),
		echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowCredentials: true,
			AllowHeaders: []string{
				echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
				echo.HeaderAuthorization, csrfCfg.HeaderName,
			},
		}),
		echomw.Secure(),
		loggingmw.RequestLogger(log),
		csrf.Middleware(csrfCfg),
	)

	httpserver.Register(e, &httpserver.Deps{
		DB:   gdb,
		Hub:  hub,
		Auth: middleware.NewAuthenticator(cfg.JWTAccessSecret, authSvc.Principal),
		Limits: httpserver.Limits{
			Store:           limits,
			Window:          cfg.RateLimit.Window,
			MaxRequests:     cfg.RateLimit.MaxRequests,
			AuthWindow:      cfg.RateLimit.AuthWindow,
			AuthMaxRequests: cfg.RateLimit.AuthMaxRequests,
		},
		AuthHandler:     &httpserver.AuthHTTP{Svc: authSvc, Notify: notify, CookieSecure: cfg.CookieSecure},
		UserHandler:     &httpserver.UserHTTP{Svc: &service.UserService{Repo: store}, Notify: notify},
		ProductHandler:  &httpserver.ProductHTTP{Svc: productSvc, Notify: notify},
		CategoryHandler: &httpserver.CategoryHTTP{Svc: &service.CategoryService{Repo: store}, Notify: notify},
		OrderHandler:    &httpserver.OrderHTTP{Svc: orderSvc, Products: productSvc, Notify: notify},
		MessageHandler:  &httpserver.MessageHTTP{Svc: &service.MessageService{Repo: store}, Notify: notify},
		PaymentHandler:  &httpserver.PaymentHTTP{Gateway: gateway, Orders: orderSvc, Notify: notify},
		WSHandler:       &httpserver.WSHTTP{Hub: hub, Secret: cfg.JWTAccessSecret, AllowedOrigins: cfg.AllowedOrigins},
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server_error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting_down")
	shutdown(log, srv, hub, producer, gdb)
}

func shutdown(log *slog.Logger, srv *http.Server, hub *realtime.Hub, producer *events.Producer, gdb *gorm.DB) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server_shutdown_error", "error", err)
	}
	hub.Close()
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("kafka_close_error", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		log.Error("db_close_error", "error", err)
	}
	log.Info("shutdown_complete")
}
