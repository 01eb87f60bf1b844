package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/electrosolucion2025/Whats2Want/internal/events"
	"github.com/electrosolucion2025/Whats2Want/internal/model"
	"github.com/electrosolucion2025/Whats2Want/internal/redsys"
	"github.com/electrosolucion2025/Whats2Want/internal/repository"
)

const testOrderNumber = "248159263748"

func testGateway(t *testing.T) *redsys.Client {
	t.Helper()
	secret := base64.StdEncoding.EncodeToString(make([]byte, 24))
	c, err := redsys.NewClient(&redsys.Config{SecretKey: secret})
	require.NoError(t, err)
	return c
}

func newSettlement(t *testing.T, f *fixture) SettlementService {
	t.Helper()
	publisher := events.NewPublisher(repository.NewOutboxRepository(f.db), "settlement-test")
	return NewSettlementService(
		f.db, zap.NewNop(), nil, testGateway(t), "https://pay.example.com",
		repository.NewOrderRepository(f.db),
		repository.NewPaymentRepository(f.db),
		repository.NewSessionRepository(f.db),
		repository.NewNotificationRepository(f.db),
		publisher,
	)
}

// notificationBlob encodes a gateway callback the way the hosted page posts
// it: URL-safe base64 over a JSON object with zero-padded order number.
func notificationBlob(t *testing.T, orderNumber string, responseCode any) string {
	t.Helper()
	padded, err := redsys.FormatOrderNumber(orderNumber)
	require.NoError(t, err)
	raw, err := json.Marshal(map[string]any{
		"Ds_Order":             padded,
		"Ds_Response":          responseCode,
		"Ds_AuthorisationCode": "987654",
		"Ds_Card_Number":       "454881******0004",
	})
	require.NoError(t, err)
	return base64.URLEncoding.EncodeToString(raw)
}

// signBlob computes the signature the gateway would attach to the blob, using
// the same merchant secret as testGateway.
func signBlob(t *testing.T, blob string) string {
	t.Helper()
	sig, err := testGateway(t).SignNotification(blob)
	require.NoError(t, err)
	return sig
}

// stagedPaid decodes the OrderPaid events the settlement transaction staged
// in the outbox.
func stagedPaid(t *testing.T, f *fixture) []events.OrderPaidPayload {
	t.Helper()
	var out []events.OrderPaidPayload
	for _, env := range stagedEnvelopes(t, f, events.EventOrderPaid) {
		var p events.OrderPaidPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		out = append(out, p)
	}
	return out
}

func stagedRetries(t *testing.T, f *fixture) []events.PaymentRetryPayload {
	t.Helper()
	var out []events.PaymentRetryPayload
	for _, env := range stagedEnvelopes(t, f, events.EventPaymentRetry) {
		var p events.PaymentRetryPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		out = append(out, p)
	}
	return out
}

func stagedEnvelopes(t *testing.T, f *fixture, eventType string) []events.Envelope {
	t.Helper()
	var rows []model.OutboxEvent
	require.NoError(t, f.db.Where("event_type = ?", eventType).Order("created_at").Find(&rows).Error)
	envs := make([]events.Envelope, 0, len(rows))
	for _, row := range rows {
		assert.Nil(t, row.PublishedAt, "staged event must wait for the relay")
		var env events.Envelope
		require.NoError(t, json.Unmarshal(row.Payload, &env))
		assert.Equal(t, row.ID, env.EventID)
		envs = append(envs, env)
	}
	return envs
}

func settledFixture(t *testing.T) (*fixture, *model.Order, *model.Payment) {
	f := newFixture(t)
	product := f.addProduct(t, "Paella", "12.50")
	order := f.storedOrder(t, "12.50", &model.OrderItem{
		ProductID:  product.ID,
		Quantity:   1,
		Price:      decimal.RequireFromString("12.50"),
		FinalPrice: decimal.RequireFromString("12.50"),
	})
	require.NoError(t, f.db.Model(order).Update("order_number", testOrderNumber).Error)
	order.OrderNumber = testOrderNumber
	payment := f.storedPayment(t, order)
	return f, order, payment
}

func TestHandleNotificationAuthorized(t *testing.T) {
	f, order, _ := settledFixture(t)
	svc := newSettlement(t, f)

	blob := notificationBlob(t, testOrderNumber, "0000")
	outcome, err := svc.HandleNotification(context.Background(), blob, signBlob(t, blob))
	require.NoError(t, err)
	assert.True(t, outcome.Authorized)
	assert.False(t, outcome.Replayed)
	assert.Equal(t, testOrderNumber, outcome.OrderNumber)

	var payment model.Payment
	require.NoError(t, f.db.First(&payment, "payment_id = ?", testOrderNumber).Error)
	assert.Equal(t, model.SettlementCompleted, payment.Status)
	assert.Equal(t, "987654", payment.AuthorizationCode)
	assert.Equal(t, "0004", payment.CardLastDigits)

	var got model.Order
	require.NoError(t, f.db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, model.OrderCompleted, got.Status)
	assert.Equal(t, model.PaymentStatePaid, got.PaymentStatus)

	paid := stagedPaid(t, f)
	require.Len(t, paid, 1)
	assert.Equal(t, order.ID, paid[0].OrderID)
	assert.Equal(t, "12.50", paid[0].Amount)
	assert.Empty(t, stagedRetries(t, f))
}

func TestHandleNotificationReplayIsNoOp(t *testing.T) {
	f, _, _ := settledFixture(t)
	svc := newSettlement(t, f)
	blob := notificationBlob(t, testOrderNumber, "0000")
	sig := signBlob(t, blob)

	_, err := svc.HandleNotification(context.Background(), blob, sig)
	require.NoError(t, err)

	outcome, err := svc.HandleNotification(context.Background(), blob, sig)
	require.NoError(t, err)
	assert.True(t, outcome.Replayed)

	// side effects staged exactly once
	assert.Len(t, stagedPaid(t, f), 1)

	var count int64
	require.NoError(t, f.db.Model(&model.GatewayNotification{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestHandleNotificationDeclineSpawnsRetryOrder(t *testing.T) {
	f, order, _ := settledFixture(t)
	svc := newSettlement(t, f)

	blob := notificationBlob(t, testOrderNumber, 180)
	outcome, err := svc.HandleNotification(context.Background(), blob, signBlob(t, blob))
	require.NoError(t, err)
	assert.False(t, outcome.Authorized)
	require.NotNil(t, outcome.RetryOrder)

	// failed pair is terminal
	var failed model.Order
	require.NoError(t, f.db.First(&failed, "id = ?", order.ID).Error)
	assert.Equal(t, model.OrderFailed, failed.Status)
	var failedPayment model.Payment
	require.NoError(t, f.db.First(&failedPayment, "payment_id = ?", testOrderNumber).Error)
	assert.Equal(t, model.SettlementFailed, failedPayment.Status)
	assert.Equal(t, "180", failedPayment.ResponseCode)

	// clone is a fresh pending attempt with the same economics
	clone := outcome.RetryOrder
	assert.NotEqual(t, order.ID, clone.ID)
	assert.NotEqual(t, order.OrderNumber, clone.OrderNumber)
	assert.Equal(t, model.OrderPending, clone.Status)
	assert.True(t, order.TotalPrice.Equal(clone.TotalPrice))

	var cloneItems []model.OrderItem
	require.NoError(t, f.db.Where("order_id = ?", clone.ID).Find(&cloneItems).Error)
	require.Len(t, cloneItems, 1)
	assert.Equal(t, "12.50", cloneItems[0].FinalPrice.StringFixed(2))

	var clonePayment model.Payment
	require.NoError(t, f.db.First(&clonePayment, "order_id = ?", clone.ID).Error)
	assert.Equal(t, model.SettlementPending, clonePayment.Status)
	assert.Equal(t, clone.OrderNumber, clonePayment.PaymentID)

	retries := stagedRetries(t, f)
	require.Len(t, retries, 1)
	assert.Contains(t, retries[0].PaymentLink, clone.ID)
	assert.Empty(t, stagedPaid(t, f))
}

func TestHandleNotificationDeclineReplay(t *testing.T) {
	f, _, _ := settledFixture(t)
	svc := newSettlement(t, f)
	blob := notificationBlob(t, testOrderNumber, 180)
	sig := signBlob(t, blob)

	_, err := svc.HandleNotification(context.Background(), blob, sig)
	require.NoError(t, err)
	outcome, err := svc.HandleNotification(context.Background(), blob, sig)
	require.NoError(t, err)
	assert.True(t, outcome.Replayed)

	// exactly one clone, not one per delivery
	var count int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
	assert.Len(t, stagedRetries(t, f), 1)
}

func TestHandleNotificationUnknownOrder(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(t, f)

	blob := notificationBlob(t, "999999999999", "0000")
	_, err := svc.HandleNotification(context.Background(), blob, signBlob(t, blob))
	require.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestHandleNotificationMalformedBlob(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(t, f)

	_, err := svc.HandleNotification(context.Background(), "not-base64!!", "irrelevant")
	require.ErrorIs(t, err, redsys.ErrDecode)
}

func TestHandleNotificationBadSignature(t *testing.T) {
	f, _, _ := settledFixture(t)
	svc := newSettlement(t, f)

	blob := notificationBlob(t, testOrderNumber, "0000")
	_, err := svc.HandleNotification(context.Background(), blob, "Zm9yZ2VkLXNpZ25hdHVyZQ==")
	require.ErrorIs(t, err, redsys.ErrBadSignature)

	// nothing settled
	var payment model.Payment
	require.NoError(t, f.db.First(&payment, "payment_id = ?", testOrderNumber).Error)
	assert.Equal(t, model.SettlementPending, payment.Status)
	assert.Empty(t, stagedPaid(t, f))
}

func TestHandleNotificationUnsignedRejected(t *testing.T) {
	f, order, _ := settledFixture(t)
	svc := newSettlement(t, f)

	// A callback without a signature must not settle anything, otherwise
	// anyone who knows an order number could mark it paid.
	blob := notificationBlob(t, testOrderNumber, "0000")
	_, err := svc.HandleNotification(context.Background(), blob, "")
	require.ErrorIs(t, err, redsys.ErrBadSignature)

	var payment model.Payment
	require.NoError(t, f.db.First(&payment, "payment_id = ?", testOrderNumber).Error)
	assert.Equal(t, model.SettlementPending, payment.Status)

	var got model.Order
	require.NoError(t, f.db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, model.OrderPending, got.Status)
	assert.Equal(t, model.PaymentStatePending, got.PaymentStatus)

	var staged int64
	require.NoError(t, f.db.Model(&model.OutboxEvent{}).Count(&staged).Error)
	assert.Zero(t, staged)
	var processed int64
	require.NoError(t, f.db.Model(&model.GatewayNotification{}).Count(&processed).Error)
	assert.Zero(t, processed)
}

func TestHandleNotificationMissingResponseCodeDeclines(t *testing.T) {
	f, _, _ := settledFixture(t)
	svc := newSettlement(t, f)

	padded, err := redsys.FormatOrderNumber(testOrderNumber)
	require.NoError(t, err)
	raw, err := json.Marshal(map[string]any{"Ds_Order": padded})
	require.NoError(t, err)
	blob := base64.URLEncoding.EncodeToString(raw)

	outcome, err := svc.HandleNotification(context.Background(), blob, signBlob(t, blob))
	require.NoError(t, err)
	assert.False(t, outcome.Authorized)
	require.NotNil(t, outcome.RetryOrder)
}
