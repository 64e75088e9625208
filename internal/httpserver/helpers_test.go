package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/payment"
	"github.com/Skotchmaster/shop_backend/internal/realtime"
	"github.com/Skotchmaster/shop_backend/internal/repo"
	"github.com/Skotchmaster/shop_backend/internal/service"
	"github.com/Skotchmaster/shop_backend/internal/testutil"
	middleware "github.com/Skotchmaster/shop_backend/pkg/middleware/auth"
	"github.com/Skotchmaster/shop_backend/pkg/middleware/ratelimit"
	"github.com/Skotchmaster/shop_backend/pkg/tokens"
)

var testSecret = []byte("test-access-secret")

type testServer struct {
	e        *echo.Echo
	repo     *repo.GormRepo
	hub      *realtime.Hub
	category *models.Category
}

type limitsOption func(*Limits)

func newTestServer(t *testing.T, opts ...limitsOption) *testServer {
	t.Helper()
	gdb := testutil.NewDB(t)
	r := repo.New(gdb)
	gw := payment.NewOffline()

	authSvc := &service.AuthService{Repo: r, AccessSecret: testSecret, RefreshSecret: []byte("test-refresh-secret")}
	productSvc := &service.ProductService{Repo: r}
	orderSvc := &service.OrderService{
		Repo:     r,
		Payments: gw,
		Shipping: service.ShippingPolicy{FlatRate: decimal.NewFromInt(3)},
		Currency: "usd",
	}
	hub := realtime.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), NewRoomAuthorizer(r, authSvc.Principal))
	t.Cleanup(hub.Close)
	notify := &Notifier{Hub: hub}

	limits := Limits{
		Store:           ratelimit.NewMemoryStore(),
		Window:          time.Minute,
		MaxRequests:     1000,
		AuthWindow:      time.Minute,
		AuthMaxRequests: 1000,
	}
	for _, o := range opts {
		o(&limits)
	}

	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler
	Register(e, &Deps{
		DB:              gdb,
		Hub:             hub,
		Auth:            middleware.NewAuthenticator(testSecret, authSvc.Principal),
		Limits:          limits,
		AuthHandler:     &AuthHTTP{Svc: authSvc, Notify: notify},
		UserHandler:     &UserHTTP{Svc: &service.UserService{Repo: r}, Notify: notify},
		ProductHandler:  &ProductHTTP{Svc: productSvc, Notify: notify},
		CategoryHandler: &CategoryHTTP{Svc: &service.CategoryService{Repo: r}, Notify: notify},
		OrderHandler:    &OrderHTTP{Svc: orderSvc, Products: productSvc, Notify: notify},
		MessageHandler:  &MessageHTTP{Svc: &service.MessageService{Repo: r}, Notify: notify},
		PaymentHandler:  &PaymentHTTP{Gateway: gw, Orders: orderSvc, Notify: notify},
		WSHandler:       &WSHTTP{Hub: hub, Secret: testSecret},
	})

	cat := &models.Category{Name: "Garden", Slug: "garden", Status: models.CategoryActive}
	require.NoError(t, r.CreateCategory(context.Background(), cat))
	return &testServer{e: e, repo: r, hub: hub, category: cat}
}

func (s *testServer) addUser(t *testing.T, email string, role models.Role) (*models.User, string) {
	t.Helper()
	u := &models.User{FirstName: "Test", LastName: "User", Email: email, PasswordHash: "x", Role: role, Status: models.UserActive}
	require.NoError(t, s.repo.CreateUser(context.Background(), u))
	tok, err := tokens.NewAccessToken(testSecret, u.ID.String(), string(role), time.Now().Add(time.Hour))
	require.NoError(t, err)
	return u, tok
}

func (s *testServer) addProduct(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		CategoryID:  s.category.ID,
		Stock:       stock,
	}
	require.NoError(t, s.repo.CreateProduct(context.Background(), p))
	return p
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

type response struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Count      *int            `json:"count"`
	Pagination map[string]int  `json:"pagination"`
	Error      json.RawMessage `json:"error"`

	ClientSecret string                `json:"clientSecret"`
	Refund       json.RawMessage       `json:"refund"`
	Inventory    []repo.InventoryLevel `json:"inventory"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var r response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r), rec.Body.String())
	return r
}

func errorText(t *testing.T, r response) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(r.Error, &s))
	return s
}

func orderBody(items ...map[string]any) map[string]any {
	return map[string]any{
		"items": items,
		"shippingAddress": map[string]any{
			"firstName": "Ada", "lastName": "Lovelace", "street": "1 Main St",
			"city": "London", "state": "LDN", "postalCode": "N1", "country": "UK",
		},
		"paymentMethod": "credit_card",
	}
}

func line(p *models.Product, qty int) map[string]any {
	return map[string]any{"product": p.ID.String(), "quantity": qty}
}

func statusOK(t *testing.T, want int, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, rec.Code, rec.Body.String())
}

