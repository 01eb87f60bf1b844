package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/electrosolucion2025/Whats2Want/internal/events"
	"github.com/electrosolucion2025/Whats2Want/internal/model"
	"github.com/electrosolucion2025/Whats2Want/internal/redisx"
	"github.com/electrosolucion2025/Whats2Want/internal/redsys"
	"github.com/electrosolucion2025/Whats2Want/internal/repository"
)

// ErrPaymentNotFound rejects callbacks whose correlation id matches no
// payment. Forged or unknown notifications change no state.
var ErrPaymentNotFound = errors.New("service: payment not found for notification")

// SettlementOutcome tells the webhook handler what to acknowledge.
type SettlementOutcome struct {
	OrderNumber string
	Authorized  bool
	Replayed    bool
	RetryOrder  *model.Order
}

type SettlementService interface {
	// HandleNotification runs the settlement state machine for one gateway
	// callback. It either completes the payment, fails it and spawns a
	// retry clone, or recognizes a replay and does nothing.
	HandleNotification(ctx context.Context, parameterBlob, signature string) (*SettlementOutcome, error)
}

type settlementImpl struct {
	db        *gorm.DB
	log       *zap.Logger
	rdb       *redis.Client
	gateway   *redsys.Client
	baseURL   string
	orderRepo repository.OrderRepository
	payRepo   repository.PaymentRepository
	sessRepo  repository.SessionRepository
	notifRepo repository.NotificationRepository
	publisher events.Publisher
}

func NewSettlementService(
	db *gorm.DB,
	log *zap.Logger,
	rdb *redis.Client,
	gateway *redsys.Client,
	baseURL string,
	orderRepo repository.OrderRepository,
	payRepo repository.PaymentRepository,
	sessRepo repository.SessionRepository,
	notifRepo repository.NotificationRepository,
	publisher events.Publisher,
) SettlementService {
	return &settlementImpl{
		db:        db,
		log:       log,
		rdb:       rdb,
		gateway:   gateway,
		baseURL:   baseURL,
		orderRepo: orderRepo,
		payRepo:   payRepo,
		sessRepo:  sessRepo,
		notifRepo: notifRepo,
		publisher: publisher,
	}
}

func (s *settlementImpl) HandleNotification(ctx context.Context, parameterBlob, signature string) (*SettlementOutcome, error) {
	// Every callback must carry a valid signature. An absent one verifies
	// against nothing and is rejected the same as a forged one.
	if err := s.gateway.VerifyNotification(parameterBlob, signature); err != nil {
		return nil, err
	}

	notification, err := redsys.DecodeNotification(parameterBlob)
	if err != nil {
		return nil, err
	}

	eventID := notificationEventID(parameterBlob)

	// Fast-path replay guard; redis downtime just falls through to the
	// durable guards below.
	if s.rdb != nil {
		key := fmt.Sprintf(redisx.KeyNotificationSeen, eventID)
		if seen, err := redisx.Exists(ctx, s.rdb, key); err == nil && seen {
			return &SettlementOutcome{OrderNumber: notification.OrderNumber, Authorized: notification.Authorized(), Replayed: true}, nil
		}
	}
	if seen, err := s.notifRepo.Exists(ctx, eventID); err == nil && seen {
		return &SettlementOutcome{OrderNumber: notification.OrderNumber, Authorized: notification.Authorized(), Replayed: true}, nil
	}

	payment, err := s.payRepo.FindByPaymentID(ctx, notification.OrderNumber)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup payment: %w", err)
	}

	// Replayed notification against an already settled payment: safe no-op,
	// no side effects re-applied.
	if payment.Status.Terminal() {
		s.log.Info("replayed notification ignored",
			zap.String("order_number", notification.OrderNumber),
			zap.String("payment_status", string(payment.Status)))
		return &SettlementOutcome{OrderNumber: notification.OrderNumber, Authorized: notification.Authorized(), Replayed: true}, nil
	}

	var outcome *SettlementOutcome
	if notification.Authorized() {
		outcome, err = s.settleAuthorized(ctx, payment, notification, eventID)
	} else {
		outcome, err = s.settleDeclined(ctx, payment, notification, eventID)
	}
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		key := fmt.Sprintf(redisx.KeyNotificationSeen, eventID)
		if err := s.rdb.Set(ctx, key, notification.OrderNumber, redisx.TTLNotificationSeen).Err(); err != nil {
			s.log.Warn("cache notification id", zap.Error(err))
		}
	}
	return outcome, nil
}

func (s *settlementImpl) settleAuthorized(ctx context.Context, payment *model.Payment, n *redsys.Notification, eventID string) (*SettlementOutcome, error) {
	var won bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		won, err = s.payRepo.MarkCompleted(ctx, tx, payment.PaymentID,
			n.AuthorizationCode, strconv.Itoa(n.ResponseCode), n.CardLast4)
		if err != nil {
			return fmt.Errorf("mark payment completed: %w", err)
		}
		if !won {
			return nil
		}
		if err := s.orderRepo.MarkPaid(ctx, tx, payment.OrderID); err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		if payment.Order != nil && payment.Order.ChatSessionID != nil {
			if err := s.sessRepo.Close(ctx, tx, *payment.Order.ChatSessionID); err != nil {
				s.log.Warn("close chat session", zap.Error(err))
			}
		}
		if err := s.notifRepo.MarkProcessed(ctx, tx, &model.GatewayNotification{
			EventID:      eventID,
			OrderNumber:  n.OrderNumber,
			ResponseCode: n.ResponseCode,
		}); err != nil {
			return err
		}
		// Staged in the same transaction; the relay delivers it to the
		// broker after commit, so the event survives a crash here.
		return s.publisher.PublishOrderPaid(ctx, tx, events.OrderPaidPayload{
			OrderID:     payment.OrderID,
			OrderNumber: n.OrderNumber,
			TenantID:    payment.TenantID,
			PhoneNumber: orderPhone(payment),
			Amount:      payment.Amount.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}
	if !won {
		// Concurrent duplicate delivery lost the guarded update.
		return &SettlementOutcome{OrderNumber: n.OrderNumber, Authorized: true, Replayed: true}, nil
	}

	s.log.Info("payment authorized",
		zap.String("order_number", n.OrderNumber),
		zap.Int("response_code", n.ResponseCode))
	return &SettlementOutcome{OrderNumber: n.OrderNumber, Authorized: true}, nil
}

func (s *settlementImpl) settleDeclined(ctx context.Context, payment *model.Payment, n *redsys.Notification, eventID string) (*SettlementOutcome, error) {
	if payment.Order == nil {
		return nil, fmt.Errorf("payment %s has no order loaded", payment.PaymentID)
	}

	var (
		won      bool
		newOrder *model.Order
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		won, err = s.payRepo.MarkFailed(ctx, tx, payment.PaymentID, strconv.Itoa(n.ResponseCode))
		if err != nil {
			return fmt.Errorf("mark payment failed: %w", err)
		}
		if !won {
			return nil
		}
		if err := s.orderRepo.MarkFailed(ctx, tx, payment.OrderID); err != nil {
			return fmt.Errorf("mark order failed: %w", err)
		}
		newOrder, _, err = s.CloneOrderForRetry(ctx, tx, payment.Order)
		if err != nil {
			return fmt.Errorf("clone order for retry: %w", err)
		}
		if err := s.notifRepo.MarkProcessed(ctx, tx, &model.GatewayNotification{
			EventID:      eventID,
			OrderNumber:  n.OrderNumber,
			ResponseCode: n.ResponseCode,
		}); err != nil {
			return err
		}
		return s.publisher.PublishPaymentRetry(ctx, tx, events.PaymentRetryPayload{
			OrderID:     newOrder.ID,
			OrderNumber: newOrder.OrderNumber,
			TenantID:    newOrder.TenantID,
			PhoneNumber: newOrder.PhoneNumber,
			Amount:      newOrder.TotalPrice.StringFixed(2),
			PaymentLink: paymentLink(s.baseURL, newOrder.ID),
		})
	})
	if err != nil {
		return nil, err
	}
	if !won {
		return &SettlementOutcome{OrderNumber: n.OrderNumber, Replayed: true}, nil
	}

	s.log.Info("payment declined, retry order issued",
		zap.String("failed_order", n.OrderNumber),
		zap.String("retry_order", newOrder.OrderNumber),
		zap.Int("response_code", n.ResponseCode))
	return &SettlementOutcome{OrderNumber: n.OrderNumber, RetryOrder: newOrder}, nil
}

// CloneOrderForRetry copies a failed order into a fresh PENDING order with a
// new order number, item-for-item, plus a pending payment keyed to the new
// number. The failed pair is never mutated again; this is the only place
// allowed to copy a terminal order.
func (s *settlementImpl) CloneOrderForRetry(ctx context.Context, tx *gorm.DB, old *model.Order) (*model.Order, *model.Payment, error) {
	clone := &model.Order{
		ID:            uuid.NewString(),
		TenantID:      old.TenantID,
		PhoneNumber:   old.PhoneNumber,
		OrderNumber:   generateOrderNumber(),
		ChatSessionID: old.ChatSessionID,
		Notes:         old.Notes,
		TableNumber:   old.TableNumber,
		DeliveryType:  old.DeliveryType,
		Discount:      old.Discount,
		TaxAmount:     old.TaxAmount,
		TotalPrice:    old.TotalPrice,
		IsScheduled:   old.IsScheduled,
		ScheduledTime: old.ScheduledTime,
		Status:        model.OrderPending,
		PaymentStatus: model.PaymentStatePending,
		PrinterStatus: model.PrintPending,
	}
	if err := s.orderRepo.Create(ctx, tx, clone); err != nil {
		return nil, nil, err
	}

	items := make([]*model.OrderItem, 0, len(old.Items))
	for _, item := range old.Items {
		items = append(items, &model.OrderItem{
			ID:                  uuid.NewString(),
			TenantID:            item.TenantID,
			OrderID:             clone.ID,
			ProductID:           item.ProductID,
			Quantity:            item.Quantity,
			Price:               item.Price,
			FinalPrice:          item.FinalPrice,
			Extras:              item.Extras,
			Exclusions:          item.Exclusions,
			SpecialInstructions: item.SpecialInstructions,
			DiscountPct:         item.DiscountPct,
			TaxPct:              item.TaxPct,
		})
	}
	if len(items) > 0 {
		if err := s.orderRepo.CreateItems(ctx, tx, items); err != nil {
			return nil, nil, err
		}
	}

	payment := &model.Payment{
		ID:        uuid.NewString(),
		TenantID:  clone.TenantID,
		OrderID:   clone.ID,
		PaymentID: clone.OrderNumber,
		Amount:    clone.TotalPrice,
		Currency:  "EUR",
		Status:    model.SettlementPending,
	}
	if err := s.payRepo.Create(ctx, tx, payment); err != nil {
		return nil, nil, err
	}
	return clone, payment, nil
}

func orderPhone(payment *model.Payment) string {
	if payment.Order != nil {
		return payment.Order.PhoneNumber
	}
	return ""
}

// notificationEventID derives a stable id from the raw blob so the same
// delivery always maps to the same dedup record.
func notificationEventID(parameterBlob string) string {
	sum := sha256.Sum256([]byte(parameterBlob))
	return hex.EncodeToString(sum[:])
}
