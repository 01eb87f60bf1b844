package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/electrosolucion2025/Whats2Want/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	CreateItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error)
	SetTotal(ctx context.Context, tx *gorm.DB, orderID string, total decimal.Decimal) error
	MarkPaid(ctx context.Context, tx *gorm.DB, orderID string) error
	MarkFailed(ctx context.Context, tx *gorm.DB, orderID string) error
	SetPrinterStatus(ctx context.Context, tx *gorm.DB, orderID string, status model.PrintStatus) error
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{db: db}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) CreateItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("Items.Product.Category").
		Preload("Items.Product.Category.Zones").
		Preload("Items.Product.Zones").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) FindByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) SetTotal(ctx context.Context, tx *gorm.DB, orderID string, total decimal.Decimal) error {
	return tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"total_price": total,
			"updated_at":  time.Now(),
		}).Error
}

// MarkPaid flips a live order to PAID/COMPLETED. The status guard keeps a
// terminal order untouched even if called twice.
func (r *orderRepoImpl) MarkPaid(ctx context.Context, tx *gorm.DB, orderID string) error {
	return tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status NOT IN ?", orderID,
			[]model.OrderStatus{model.OrderCompleted, model.OrderCancelled, model.OrderFailed}).
		Updates(map[string]interface{}{
			"status":         model.OrderCompleted,
			"payment_status": model.PaymentStatePaid,
			"updated_at":     time.Now(),
		}).Error
}

// MarkFailed moves a live order to its terminal FAILED state.
func (r *orderRepoImpl) MarkFailed(ctx context.Context, tx *gorm.DB, orderID string) error {
	return tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status NOT IN ?", orderID,
			[]model.OrderStatus{model.OrderCompleted, model.OrderCancelled, model.OrderFailed}).
		Updates(map[string]interface{}{
			"status":         model.OrderFailed,
			"payment_status": model.PaymentStateFailed,
			"updated_at":     time.Now(),
		}).Error
}

func (r *orderRepoImpl) SetPrinterStatus(ctx context.Context, tx *gorm.DB, orderID string, status model.PrintStatus) error {
	return tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"printer_status": status,
			"updated_at":     time.Now(),
		}).Error
}
