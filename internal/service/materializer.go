package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/electrosolucion2025/Whats2Want/internal/client"
	"github.com/electrosolucion2025/Whats2Want/internal/dto"
	"github.com/electrosolucion2025/Whats2Want/internal/model"
	"github.com/electrosolucion2025/Whats2Want/internal/pricing"
	"github.com/electrosolucion2025/Whats2Want/internal/repository"
)

// ErrEmptyOrder means not a single line of the intent document resolved to a
// catalog product; nothing was persisted.
var ErrEmptyOrder = errors.New("service: no order line resolved to a valid product")

type WarningKind string

const (
	WarnUnresolvedProduct WarningKind = "unresolved_product"
	WarnUnresolvedExtra   WarningKind = "unresolved_extra"
)

// Warning records a catalog-resolution miss that was skipped rather than
// failing the order. Callers decide whether to surface them.
type Warning struct {
	Kind WarningKind
	Name string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Name)
}

// MaterializeResult is everything the caller needs after an order lands.
type MaterializeResult struct {
	Order       *model.Order
	Payment     *model.Payment
	PaymentLink string
	VIP         bool
	Warnings    []Warning
}

type MaterializerService interface {
	MaterializeOrder(ctx context.Context, doc *dto.OrderIntent, session *model.ChatSession) (*MaterializeResult, error)
}

type materializerImpl struct {
	db          *gorm.DB
	log         *zap.Logger
	baseURL     string
	catalogRepo repository.CatalogRepository
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	contactRepo repository.ContactRepository
	tenantRepo  repository.TenantRepository
	vip         VIPPolicy
	tickets     TicketService
	whatsapp    client.WhatsAppClient
}

func NewMaterializerService(
	db *gorm.DB,
	log *zap.Logger,
	baseURL string,
	catalogRepo repository.CatalogRepository,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	contactRepo repository.ContactRepository,
	tenantRepo repository.TenantRepository,
	vip VIPPolicy,
	tickets TicketService,
	whatsapp client.WhatsAppClient,
) MaterializerService {
	return &materializerImpl{
		db:          db,
		log:         log,
		baseURL:     baseURL,
		catalogRepo: catalogRepo,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		contactRepo: contactRepo,
		tenantRepo:  tenantRepo,
		vip:         vip,
		tickets:     tickets,
		whatsapp:    whatsapp,
	}
}

func (s *materializerImpl) MaterializeOrder(ctx context.Context, doc *dto.OrderIntent, session *model.ChatSession) (*MaterializeResult, error) {
	tenant, err := s.tenantRepo.ByID(ctx, session.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}

	contact, err := s.contactRepo.ByPhone(ctx, session.TenantID, session.PhoneNumber)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load contact: %w", err)
	}
	firstBuy := contact != nil && contact.FirstBuy

	items, lineFinals, warnings, err := s.resolveLines(ctx, doc, session.TenantID, firstBuy)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	total := pricing.ComputeOrderTotal(lineFinals, doc.Discount, doc.TaxAmount)

	feeFree, err := s.vip.FeeFreeSettlement(ctx, session.TenantID, session.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("vip policy: %w", err)
	}

	order := &model.Order{
		ID:            uuid.NewString(),
		TenantID:      session.TenantID,
		PhoneNumber:   session.PhoneNumber,
		OrderNumber:   generateOrderNumber(),
		Notes:         doc.Notes,
		TableNumber:   doc.TableNumber,
		DeliveryType:  deliveryType(doc.DeliveryType),
		Discount:      doc.Discount,
		TaxAmount:     doc.TaxAmount,
		TotalPrice:    total,
		Status:        model.OrderPending,
		PaymentStatus: model.PaymentStatePending,
		PrinterStatus: model.PrintPending,
	}
	if session.ID != "" {
		sid := session.ID
		order.ChatSessionID = &sid
	}

	payment := &model.Payment{
		ID:            uuid.NewString(),
		TenantID:      session.TenantID,
		OrderID:       order.ID,
		PaymentID:     order.OrderNumber,
		Amount:        total,
		Currency:      tenant.Currency,
		Status:        model.SettlementPending,
		PaymentMethod: doc.PaymentMethod,
	}
	if feeFree {
		payment.Status = model.SettlementCompleted
		payment.PaymentMethod = "VIP"
	}

	// One unit of work: order, items, promo flag flip and payment land
	// together or not at all.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("store order: %w", err)
		}
		for _, item := range items {
			item.OrderID = order.ID
		}
		if err := s.orderRepo.CreateItems(ctx, tx, items); err != nil {
			return fmt.Errorf("store order items: %w", err)
		}
		if firstBuy {
			if err := s.contactRepo.ClearFirstBuy(ctx, tx, contact.ID); err != nil {
				return fmt.Errorf("clear first-buy flag: %w", err)
			}
		}
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return fmt.Errorf("store payment: %w", err)
		}
		if feeFree {
			if err := s.orderRepo.MarkPaid(ctx, tx, order.ID); err != nil {
				return fmt.Errorf("settle vip order: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &MaterializeResult{Order: order, Payment: payment, VIP: feeFree, Warnings: warnings}

	if feeFree {
		order.Status = model.OrderCompleted
		order.PaymentStatus = model.PaymentStatePaid
		if _, err := s.tickets.GenerateTickets(ctx, order.ID); err != nil {
			s.log.Error("vip ticket fan-out", zap.Error(err), zap.String("order_number", order.OrderNumber))
		}
		s.notify(ctx, tenant, order.PhoneNumber, fmt.Sprintf(
			"Tu pedido %s esta confirmado, sin cargo. Gracias por tu visita.", order.OrderNumber))
		return result, nil
	}

	result.PaymentLink = paymentLink(s.baseURL, order.ID)
	s.notify(ctx, tenant, order.PhoneNumber, fmt.Sprintf(
		"Para pagar tu pedido %s (%s %s), haz clic aqui: %s",
		order.OrderNumber, total.StringFixed(2), tenant.Currency, result.PaymentLink))

	s.log.Info("order materialized",
		zap.String("order_number", order.OrderNumber),
		zap.String("total", total.StringFixed(2)),
		zap.Bool("vip", feeFree),
		zap.Int("warnings", len(warnings)))
	return result, nil
}

// resolveLines maps intent lines onto catalog entities. A product or extra
// miss skips the line or the extra and accumulates a warning; price and
// quantity violations abort the whole materialization.
func (s *materializerImpl) resolveLines(ctx context.Context, doc *dto.OrderIntent, tenantID string, firstBuy bool) ([]*model.OrderItem, []decimal.Decimal, []Warning, error) {
	var (
		items      []*model.OrderItem
		lineFinals []decimal.Decimal
		warnings   []Warning
	)

	for _, line := range doc.OrderItems {
		if line.Quantity < 1 {
			return nil, nil, nil, pricing.ErrInvalidQuantity
		}

		product, err := s.catalogRepo.ProductByName(ctx, tenantID, line.ProductName)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			warnings = append(warnings, Warning{Kind: WarnUnresolvedProduct, Name: line.ProductName})
			s.log.Warn("product not in catalog, line skipped", zap.String("product", line.ProductName))
			continue
		}
		if err != nil {
			return nil, nil, nil, fmt.Errorf("resolve product %q: %w", line.ProductName, err)
		}

		var extras []model.ItemExtra
		var extraPrices []decimal.Decimal
		for _, extraIntent := range line.Extras {
			extra, err := s.catalogRepo.ExtraByName(ctx, tenantID, extraIntent.Name)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				warnings = append(warnings, Warning{Kind: WarnUnresolvedExtra, Name: extraIntent.Name})
				s.log.Warn("extra not in catalog, skipped", zap.String("extra", extraIntent.Name))
				continue
			}
			if err != nil {
				return nil, nil, nil, fmt.Errorf("resolve extra %q: %w", extraIntent.Name, err)
			}
			extras = append(extras, model.ItemExtra{Name: extra.Name, Price: extraIntent.Price})
			extraPrices = append(extraPrices, extraIntent.Price)
		}

		// A first purchase trusts the intent price so the promo product can
		// be free; everyone else gets the catalog's current price, which
		// defends against manipulated or stale proposed prices.
		unitPrice := product.Price
		if firstBuy {
			unitPrice = line.UnitPrice
		}
		sanctionedZero := firstBuy && product.IsPromotional
		if err := pricing.ValidateUnitPrice(unitPrice, sanctionedZero); err != nil {
			return nil, nil, nil, err
		}

		finalPrice, err := pricing.ComputeLinePrice(unitPrice, line.Quantity, extraPrices, line.Discount, line.TaxAmount)
		if err != nil {
			return nil, nil, nil, err
		}

		items = append(items, &model.OrderItem{
			ID:                  uuid.NewString(),
			TenantID:            tenantID,
			ProductID:           product.ID,
			Quantity:            line.Quantity,
			Price:               unitPrice,
			FinalPrice:          finalPrice,
			Extras:              extras,
			Exclusions:          line.Exclusions,
			SpecialInstructions: line.SpecialInstructions,
			DiscountPct:         line.Discount,
			TaxPct:              line.TaxAmount,
		})

		// Promotional zero-price lines stay off the total but remain
		// persisted so the kitchen still prepares them.
		if unitPrice.IsPositive() {
			lineFinals = append(lineFinals, finalPrice)
		}
	}

	return items, lineFinals, warnings, nil
}

func (s *materializerImpl) notify(ctx context.Context, tenant *model.Tenant, to, text string) {
	if err := s.whatsapp.SendText(ctx, tenant, to, text); err != nil {
		s.log.Error("send whatsapp message", zap.Error(err), zap.String("to", to))
	}
}

// generateOrderNumber derives a 12-digit number from a fresh UUID, matching
// the gateway's numeric field width.
func generateOrderNumber() string {
	u := uuid.New()
	return new(big.Int).SetBytes(u[:]).String()[:12]
}

func paymentLink(baseURL, orderID string) string {
	return fmt.Sprintf("%s/api/payments/redsys/%s", baseURL, orderID)
}

func deliveryType(raw string) model.DeliveryType {
	switch model.DeliveryType(raw) {
	case model.DeliveryTakeaway:
		return model.DeliveryTakeaway
	case model.DeliveryDelivery:
		return model.DeliveryDelivery
	default:
		return model.DeliveryDineIn
	}
}
