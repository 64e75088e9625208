package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/payment"
	"github.com/Skotchmaster/shop_backend/internal/repo"
	"github.com/Skotchmaster/shop_backend/internal/testutil"
	"github.com/Skotchmaster/shop_backend/internal/transport"
)

var fixedNow = time.Date(2025, 3, 7, 10, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// recordingGateway wraps the offline gateway and counts calls.
type recordingGateway struct {
	*payment.OfflineGateway

	mu         sync.Mutex
	creates    int
	cancels    []string
	refunds    []decimal.Decimal
	failCreate bool
	failRefund bool
	afterCreate func()
}

func newGateway() *recordingGateway {
	return &recordingGateway{OfflineGateway: payment.NewOffline()}
}

func (g *recordingGateway) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	g.mu.Lock()
	g.creates++
	fail, hook := g.failCreate, g.afterCreate
	g.mu.Unlock()
	if fail {
		return nil, errors.New("card network down")
	}
	in, err := g.OfflineGateway.CreateIntent(ctx, req)
	if err == nil && hook != nil {
		hook()
	}
	return in, err
}

func (g *recordingGateway) CancelIntent(ctx context.Context, id string) error {
	g.mu.Lock()
	g.cancels = append(g.cancels, id)
	g.mu.Unlock()
	return g.OfflineGateway.CancelIntent(ctx, id)
}

func (g *recordingGateway) Refund(ctx context.Context, intentID string, amount decimal.Decimal) (*payment.Refund, error) {
	g.mu.Lock()
	g.refunds = append(g.refunds, amount)
	fail := g.failRefund
	g.mu.Unlock()
	if fail {
		return nil, errors.New("refund declined")
	}
	return g.OfflineGateway.Refund(ctx, intentID, amount)
}

func (g *recordingGateway) createCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.creates
}

type fixture struct {
	repo     *repo.GormRepo
	gateway  *recordingGateway
	orders   *OrderService
	products *ProductService
	cats     *CategoryService
	customer Actor
	admin    Actor
	category *models.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := repo.New(testutil.NewDB(t))
	gw := newGateway()
	f := &fixture{
		repo:    r,
		gateway: gw,
		orders: &OrderService{
			Repo:     r,
			Payments: gw,
			Shipping: ShippingPolicy{FlatRate: decimal.NewFromInt(3)},
			Currency: "usd",
			Now:      clock,
		},
		products: &ProductService{Repo: r, Now: clock},
		cats:     &CategoryService{Repo: r},
	}
	f.customer = f.addUser(t, "buyer@example.com", models.RoleCustomer)
	f.admin = f.addUser(t, "admin@example.com", models.RoleAdmin)

	cat, err := f.cats.Create(context.Background(), transport.CreateCategoryRequest{Name: "Kitchen"})
	require.NoError(t, err)
	f.category = cat
	return f
}

func (f *fixture) addUser(t *testing.T, email string, role models.Role) Actor {
	t.Helper()
	u := &models.User{FirstName: "Test", LastName: "User", Email: email, PasswordHash: "x", Role: role, Status: models.UserActive}
	require.NoError(t, f.repo.CreateUser(context.Background(), u))
	return Actor{ID: u.ID, Role: role}
}

func (f *fixture) addProduct(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), transport.CreateProductRequest{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Category:    f.category.ID,
		Stock:       &stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, p *models.Product) int {
	t.Helper()
	got, err := f.repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	return got.Stock
}

func address() transport.AddressRequest {
	return transport.AddressRequest{
		FirstName: "Ada", LastName: "Lovelace", Street: "1 Main St", City: "London",
		State: "LDN", PostalCode: "N1", Country: "UK",
	}
}

func repoFilterAll() repo.OrderFilter { return repo.OrderFilter{} }

func pageAll() repo.Page { return repo.Page{Limit: 100} }

// interleave runs fn once, right after the next read of table finishes.
// It stands in for a concurrent request landing between a read and a write.
func (f *fixture) interleave(t *testing.T, table string, fn func()) (arm func()) {
	t.Helper()
	var armed atomic.Bool
	err := f.repo.DB.Callback().Query().After("gorm:query").Register("test:interleave", func(db *gorm.DB) {
		if db.Statement.Table == table && armed.CompareAndSwap(true, false) {
			fn()
		}
	})
	require.NoError(t, err)
	return func() { armed.Store(true) }
}

// captureMailer keeps the tokens that would have been emailed.
type captureMailer struct {
	mu     sync.Mutex
	resets []string
	verify []string
}

func (m *captureMailer) Welcome(context.Context, *models.User) error { return nil }

func (m *captureMailer) OrderConfirmation(context.Context, *models.User, *models.Order) error {
	return nil
}

func (m *captureMailer) OrderStatusUpdate(context.Context, *models.User, *models.Order) error {
	return nil
}

func (m *captureMailer) PasswordReset(_ context.Context, _ *models.User, token string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, token)
	return nil
}

func (m *captureMailer) EmailVerification(_ context.Context, _ *models.User, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verify = append(m.verify, token)
	return nil
}

func (m *captureMailer) lastReset(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.resets)
	return m.resets[len(m.resets)-1]
}
