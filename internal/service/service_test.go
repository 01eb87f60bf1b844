package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/electrosolucion2025/Whats2Want/internal/model"
	"github.com/electrosolucion2025/Whats2Want/internal/repository"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.Entities()...))
	return db
}

type fakeWhatsApp struct {
	sent []string
}

func (f *fakeWhatsApp) SendText(_ context.Context, _ *model.Tenant, _, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

type fixture struct {
	db      *gorm.DB
	tenant  *model.Tenant
	contact *model.Contact
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)
	tenant := &model.Tenant{
		ID:       uuid.NewString(),
		Name:     "Casa Pepe",
		Currency: "EUR",
		IsActive: true,
	}
	require.NoError(t, db.Create(tenant).Error)
	contact := &model.Contact{
		ID:          uuid.NewString(),
		TenantID:    tenant.ID,
		PhoneNumber: "34600111222",
		FirstBuy:    false,
	}
	require.NoError(t, db.Create(contact).Error)
	// The model's `gorm:"default:true"` tag makes Create omit the zero-value
	// false, so force the column and verify the fixture holds what it declares.
	require.NoError(t, db.Model(contact).Update("first_buy", false).Error)
	var persisted model.Contact
	require.NoError(t, db.First(&persisted, "id = ?", contact.ID).Error)
	require.False(t, persisted.FirstBuy)
	return &fixture{db: db, tenant: tenant, contact: contact}
}

func (f *fixture) addProduct(t *testing.T, name string, price string, opts ...func(*model.Product)) *model.Product {
	t.Helper()
	p := &model.Product{
		ID:        uuid.NewString(),
		TenantID:  f.tenant.ID,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Available: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) addExtra(t *testing.T, name, price string) *model.Extra {
	t.Helper()
	e := &model.Extra{
		ID:        uuid.NewString(),
		TenantID:  f.tenant.ID,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Available: true,
	}
	require.NoError(t, f.db.Create(e).Error)
	return e
}

func (f *fixture) addZone(t *testing.T, name string) *model.PrinterZone {
	t.Helper()
	z := &model.PrinterZone{
		ID:          uuid.NewString(),
		TenantID:    f.tenant.ID,
		Name:        name,
		PrinterIP:   "10.0.0.5",
		PrinterPort: 9100,
		IsActive:    true,
	}
	require.NoError(t, f.db.Create(z).Error)
	return z
}

func (f *fixture) ticketService(t *testing.T) TicketService {
	t.Helper()
	return NewTicketService(f.db, zap.NewNop(),
		repository.NewOrderRepository(f.db),
		repository.NewTicketRepository(f.db),
		repository.NewTenantRepository(f.db))
}

// storedOrder persists an order with items directly, bypassing the
// materializer, so ticket and settlement tests control their input exactly.
func (f *fixture) storedOrder(t *testing.T, total string, items ...*model.OrderItem) *model.Order {
	t.Helper()
	order := &model.Order{
		ID:            uuid.NewString(),
		TenantID:      f.tenant.ID,
		PhoneNumber:   f.contact.PhoneNumber,
		OrderNumber:   uuid.NewString()[:12],
		TotalPrice:    decimal.RequireFromString(total),
		Status:        model.OrderPending,
		PaymentStatus: model.PaymentStatePending,
		PrinterStatus: model.PrintPending,
	}
	require.NoError(t, f.db.Create(order).Error)
	for _, item := range items {
		item.ID = uuid.NewString()
		item.TenantID = f.tenant.ID
		item.OrderID = order.ID
		require.NoError(t, f.db.Create(item).Error)
	}
	return order
}

func (f *fixture) storedPayment(t *testing.T, order *model.Order) *model.Payment {
	t.Helper()
	payment := &model.Payment{
		ID:        uuid.NewString(),
		TenantID:  f.tenant.ID,
		OrderID:   order.ID,
		PaymentID: order.OrderNumber,
		Amount:    order.TotalPrice,
		Currency:  "EUR",
		Status:    model.SettlementPending,
	}
	require.NoError(t, f.db.Create(payment).Error)
	return payment
}
