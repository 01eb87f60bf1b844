package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is one purchase attempt. A FAILED order is terminal and immutable;
// retries clone it into a fresh PENDING order instead of mutating it.
type Order struct {
	ID            string  `gorm:"primaryKey;size:36"`
	TenantID      string  `gorm:"size:36;index;not null"`
	PhoneNumber   string  `gorm:"size:20;index;not null"`
	OrderNumber   string  `gorm:"size:20;uniqueIndex;not null"`
	ChatSessionID *string `gorm:"size:36;index"`
	Notes         string
	TableNumber   string          `gorm:"size:10"`
	DeliveryType  DeliveryType    `gorm:"size:20;default:DINE_IN"`
	Discount      decimal.Decimal `gorm:"type:decimal(6,2)"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(6,2)"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(8,2)"`
	IsScheduled   bool            `gorm:"default:false"`
	ScheduledTime *time.Time

	Status        OrderStatus  `gorm:"size:20;index;default:PENDING"`
	PaymentStatus PaymentState `gorm:"size:20;index;default:PENDING"`
	PrinterStatus PrintStatus  `gorm:"size:20;default:PENDING"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemExtra is a snapshotted add-on. Name and price are copied at
// materialization time, never resolved against the live catalog again.
type ItemExtra struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// OrderItem is one line of an order. Price is the unit price snapshot;
// FinalPrice is derived by the pricing engine and persisted.
type OrderItem struct {
	ID        string   `gorm:"primaryKey;size:36"`
	TenantID  string   `gorm:"size:36;index;not null"`
	OrderID   string   `gorm:"size:36;index;not null"`
	ProductID string   `gorm:"size:36;index;not null"`
	Product   *Product `gorm:"foreignKey:ProductID"`

	Quantity            int             `gorm:"not null;default:1"`
	Price               decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	FinalPrice          decimal.Decimal `gorm:"type:decimal(8,2)"`
	Extras              []ItemExtra     `gorm:"serializer:json"`
	Exclusions          []string        `gorm:"serializer:json"`
	SpecialInstructions string
	DiscountPct         decimal.Decimal `gorm:"type:decimal(6,2)"`
	TaxPct              decimal.Decimal `gorm:"type:decimal(6,2)"`

	CreatedAt time.Time
}

// Payment is one settlement attempt, 1:1 with an order. PaymentID doubles as
// the gateway correlation key and equals the order's OrderNumber.
type Payment struct {
	ID        string `gorm:"primaryKey;size:36"`
	TenantID  string `gorm:"size:36;index;not null"`
	OrderID   string `gorm:"size:36;uniqueIndex;not null"`
	Order     *Order `gorm:"foreignKey:OrderID"`
	PaymentID string `gorm:"size:100;uniqueIndex;not null"`

	Amount            decimal.Decimal  `gorm:"type:decimal(10,2);not null"`
	Currency          string           `gorm:"size:10;default:EUR"`
	Status            SettlementStatus `gorm:"size:50;index;default:pending"`
	PaymentMethod     string           `gorm:"size:50"`
	AuthorizationCode string           `gorm:"size:50"`
	ResponseCode      string           `gorm:"size:10"`
	CardLastDigits    string           `gorm:"size:4"`
	RefundReason      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PrintTicket is the zone-filtered rendering of a paid order, one per
// (order, zone) pair. Content is already printer-safe ASCII.
type PrintTicket struct {
	ID            string       `gorm:"primaryKey;size:36"`
	TenantID      string       `gorm:"size:36;index;not null"`
	OrderID       string       `gorm:"size:36;index;not null"`
	Order         *Order       `gorm:"foreignKey:OrderID"`
	PrinterZoneID string       `gorm:"size:36;index;not null"`
	PrinterZone   *PrinterZone `gorm:"foreignKey:PrinterZoneID"`
	Content       string
	Status        PrintStatus `gorm:"size:20;index;default:PENDING"`
	PrintedAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// GatewayNotification records every processed gateway callback so a replayed
// delivery can be acknowledged without re-running settlement.
type GatewayNotification struct {
	EventID      string `gorm:"primaryKey;size:128"`
	OrderNumber  string `gorm:"size:20;index"`
	ResponseCode int
	ProcessedAt  time.Time
	CreatedAt    time.Time
}

// OutboxEvent stages one settlement event inside the settlement transaction.
// The relay publishes staged rows to the broker and stamps PublishedAt, so a
// crash between commit and publish loses nothing.
type OutboxEvent struct {
	ID          string `gorm:"primaryKey;size:36"`
	EventType   string `gorm:"size:50;not null"`
	Key         string `gorm:"size:36;not null"`
	Payload     []byte `gorm:"not null"`
	CreatedAt   time.Time
	PublishedAt *time.Time `gorm:"index"`
}

// Entities returns every model registered for migration, in FK-safe order.
func Entities() []any {
	return []any{
		&Tenant{}, &Contact{}, &ChatSession{}, &PrinterZone{}, &Category{},
		&Product{}, &Extra{}, &VIPAccess{}, &Order{}, &OrderItem{},
		&Payment{}, &PrintTicket{}, &GatewayNotification{}, &OutboxEvent{},
	}
}
