package model

// OrderStatus is the kitchen-facing lifecycle of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderReady      OrderStatus = "READY"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderFailed     OrderStatus = "FAILED"
)

var orderNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:    {OrderInProgress: true, OrderCompleted: true, OrderCancelled: true, OrderFailed: true},
	OrderInProgress: {OrderReady: true, OrderCompleted: true, OrderCancelled: true},
	OrderReady:      {OrderCompleted: true},
	OrderCompleted:  {},
	OrderCancelled:  {},
	OrderFailed:     {},
}

// CanTransition reports whether an order may move from one status to another.
// COMPLETED, CANCELLED and FAILED are terminal.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	return orderNext[s][to]
}

// Terminal reports whether no further order transitions are allowed.
func (s OrderStatus) Terminal() bool {
	return len(orderNext[s]) == 0
}

// PaymentState is the order-level payment flag.
type PaymentState string

const (
	PaymentStatePending PaymentState = "PENDING"
	PaymentStatePaid    PaymentState = "PAID"
	PaymentStateFailed  PaymentState = "FAILED"
)

// SettlementStatus is the lifecycle of a Payment row.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementCompleted SettlementStatus = "completed"
	SettlementFailed    SettlementStatus = "failed"
	SettlementRefunded  SettlementStatus = "refunded"
)

// Terminal reports whether the settlement attempt already reached an outcome.
// A replayed gateway notification against a terminal payment must be a no-op.
func (s SettlementStatus) Terminal() bool {
	return s == SettlementCompleted || s == SettlementFailed || s == SettlementRefunded
}

// PrintStatus covers both Order.PrinterStatus and PrintTicket.Status.
type PrintStatus string

const (
	PrintPending PrintStatus = "PENDING"
	PrintPrinted PrintStatus = "PRINTED"
	PrintFailed  PrintStatus = "FAILED"
)

// DeliveryType says how the customer receives the order.
type DeliveryType string

const (
	DeliveryDineIn   DeliveryType = "DINE_IN"
	DeliveryTakeaway DeliveryType = "TAKEAWAY"
	DeliveryDelivery DeliveryType = "DELIVERY"
)

// VIPPermission is the privilege attached to a VIP contact.
type VIPPermission string

const (
	VIPNoPayment VIPPermission = "no_payment"
	VIPPriority  VIPPermission = "priority"
	VIPDiscount  VIPPermission = "discount"
)
