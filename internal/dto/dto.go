package dto

import "github.com/shopspring/decimal"

// OrderIntent is the structured "finalized order" document the
// conversational layer delivers once the customer confirms.
type OrderIntent struct {
	TableNumber   string          `json:"table_number,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	DeliveryType  string          `json:"delivery_type"`
	PaymentMethod string          `json:"payment_method"`
	Discount      decimal.Decimal `json:"discount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	OrderItems    []ItemIntent    `json:"order_items"`
}

type ItemIntent struct {
	ProductName         string          `json:"product_name"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	Extras              []ExtraIntent   `json:"extras,omitempty"`
	Exclusions          []string        `json:"exclusions,omitempty"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	Discount            decimal.Decimal `json:"discount"`
	TaxAmount           decimal.Decimal `json:"tax_amount"`
}

type ExtraIntent struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// IngestRequest wraps an intent document with the conversation identity the
// materializer needs to resolve catalog and promotions.
type IngestRequest struct {
	TenantID    string      `json:"tenant_id"`
	PhoneNumber string      `json:"phone_number"`
	SessionID   string      `json:"session_id,omitempty"`
	Order       OrderIntent `json:"order"`
}

// MaterializeResponse acknowledges an ingested intent document.
type MaterializeResponse struct {
	OrderID     string   `json:"order_id"`
	OrderNumber string   `json:"order_number"`
	TotalPrice  string   `json:"total_price"`
	PaymentLink string   `json:"payment_link,omitempty"`
	VIP         bool     `json:"vip"`
	Warnings    []string `json:"warnings,omitempty"`
}

// PendingTicket is one entry of the print-agent pull API.
type PendingTicket struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	PrinterIP   string `json:"printer_ip"`
	PrinterPort int    `json:"printer_port"`
	Content     string `json:"content"`
}
