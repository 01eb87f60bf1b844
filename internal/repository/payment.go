package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/electrosolucion2025/Whats2Want/internal/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error
	FindByPaymentID(ctx context.Context, paymentID string) (*model.Payment, error)
	// MarkCompleted transitions pending -> completed and reports whether this
	// call won the transition. A false return with nil error means another
	// delivery already settled the payment.
	MarkCompleted(ctx context.Context, tx *gorm.DB, paymentID, authCode, responseCode, cardLast4 string) (bool, error)
	// MarkFailed transitions pending -> failed with the same guard semantics.
	MarkFailed(ctx context.Context, tx *gorm.DB, paymentID, responseCode string) (bool, error)
}

type paymentRepoImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepoImpl{db: db}
}

func (r *paymentRepoImpl) Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error {
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepoImpl) FindByPaymentID(ctx context.Context, paymentID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Order.Items").
		Preload("Order.Items.Product").
		Where("payment_id = ?", paymentID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepoImpl) MarkCompleted(ctx context.Context, tx *gorm.DB, paymentID, authCode, responseCode, cardLast4 string) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Payment{}).
		Where("payment_id = ? AND status = ?", paymentID, model.SettlementPending).
		Updates(map[string]interface{}{
			"status":             model.SettlementCompleted,
			"authorization_code": authCode,
			"response_code":      responseCode,
			"card_last_digits":   cardLast4,
			"updated_at":         time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *paymentRepoImpl) MarkFailed(ctx context.Context, tx *gorm.DB, paymentID, responseCode string) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Payment{}).
		Where("payment_id = ? AND status = ?", paymentID, model.SettlementPending).
		Updates(map[string]interface{}{
			"status":        model.SettlementFailed,
			"response_code": responseCode,
			"updated_at":    time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}
