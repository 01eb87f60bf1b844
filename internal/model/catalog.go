package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tenant is one restaurant on the platform. Every other entity is scoped to
// exactly one tenant.
type Tenant struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"size:100;not null"`
	OwnerName   string `gorm:"size:100"`
	PhoneNumber string `gorm:"size:20"`
	Email       string `gorm:"size:100"`
	Address     string
	Currency    string `gorm:"size:10;default:EUR"`
	Timezone    string `gorm:"size:50;default:UTC"`
	IsActive    bool   `gorm:"default:true"`

	// Per-tenant WhatsApp sender credentials, consumed as a black box.
	WhatsAppToken   string `gorm:"size:255"`
	WhatsAppPhoneID string `gorm:"size:64"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contact is a customer identified by phone number. FirstBuy gates the
// one-shot free-product promotion.
type Contact struct {
	ID          string `gorm:"primaryKey;size:36"`
	TenantID    string `gorm:"size:36;index;not null"`
	PhoneNumber string `gorm:"size:20;index;not null"`
	Name        string `gorm:"size:100"`
	FirstBuy    bool   `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ChatSession links an order back to the conversation that produced it.
// Session bookkeeping itself is owned by the conversational layer.
type ChatSession struct {
	ID          string `gorm:"primaryKey;size:36"`
	TenantID    string `gorm:"size:36;index;not null"`
	SessionID   string `gorm:"size:100;uniqueIndex;not null"`
	PhoneNumber string `gorm:"size:20;index;not null"`
	IsActive    bool   `gorm:"default:true"`
	StartTime   time.Time
	EndTime     *time.Time
}

// PrinterZone is a named physical destination (e.g. KITCHEN, BAR) with the
// network coordinates of its thermal printer.
type PrinterZone struct {
	ID          string `gorm:"primaryKey;size:36"`
	TenantID    string `gorm:"size:36;index;not null"`
	Name        string `gorm:"size:100;not null"`
	PrinterIP   string `gorm:"size:45"`
	PrinterPort int    `gorm:"default:9100"`
	IsActive    bool   `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category groups products. Zones assigned here take precedence over the
// product's own zones during ticket fan-out.
type Category struct {
	ID       string        `gorm:"primaryKey;size:36"`
	TenantID string        `gorm:"size:36;index;not null"`
	Name     string        `gorm:"size:100;not null"`
	IsActive bool          `gorm:"default:true"`
	Zones    []PrinterZone `gorm:"many2many:category_print_zones"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product is a catalog entry. Price is the live catalog price; orders snapshot
// it into OrderItem.Price at materialization time.
type Product struct {
	ID         string          `gorm:"primaryKey;size:36"`
	TenantID   string          `gorm:"size:36;index;not null"`
	CategoryID string          `gorm:"size:36;index"`
	Category   *Category       `gorm:"foreignKey:CategoryID"`
	Name       string          `gorm:"size:100;index;not null"`
	Price      decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	Available  bool            `gorm:"default:true"`
	// IsPromotional marks the product a first-purchase customer may receive
	// at a zero unit price.
	IsPromotional bool          `gorm:"default:false"`
	Zones         []PrinterZone `gorm:"many2many:product_print_zones"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Extra is an add-on a line item can carry.
type Extra struct {
	ID        string          `gorm:"primaryKey;size:36"`
	TenantID  string          `gorm:"size:36;index;not null"`
	Name      string          `gorm:"size:100;index;not null"`
	Price     decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	Available bool            `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VIPAccess grants a contact a privilege within one tenant. The no_payment
// permission settles orders without touching the gateway.
type VIPAccess struct {
	ID          string        `gorm:"primaryKey;size:36"`
	TenantID    string        `gorm:"size:36;index;not null"`
	PhoneNumber string        `gorm:"size:20;index;not null"`
	Permission  VIPPermission `gorm:"size:50;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
