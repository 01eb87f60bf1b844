package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/electrosolucion2025/Whats2Want/internal/model"
	"github.com/electrosolucion2025/Whats2Want/internal/repository"
	"github.com/electrosolucion2025/Whats2Want/internal/ticketfmt"
)

// ErrTicketGeneration means no ticket of the order was persisted; the order
// stays PAID and printing is retried out-of-band.
var ErrTicketGeneration = errors.New("service: ticket generation failed")

type TicketService interface {
	// GenerateTickets fans a settled order out into one ticket per printer
	// zone, all-or-nothing. Calling it again for the same order returns the
	// existing tickets untouched.
	GenerateTickets(ctx context.Context, orderID string) ([]*model.PrintTicket, error)
	// MarkPrinted is the printing agent's idempotent completion call.
	MarkPrinted(ctx context.Context, ticketID string) error
	PendingTickets(ctx context.Context) ([]*model.PrintTicket, error)
}

type ticketServiceImpl struct {
	db         *gorm.DB
	log        *zap.Logger
	orderRepo  repository.OrderRepository
	ticketRepo repository.TicketRepository
	tenantRepo repository.TenantRepository
}

func NewTicketService(
	db *gorm.DB,
	log *zap.Logger,
	orderRepo repository.OrderRepository,
	ticketRepo repository.TicketRepository,
	tenantRepo repository.TenantRepository,
) TicketService {
	return &ticketServiceImpl{
		db:         db,
		log:        log,
		orderRepo:  orderRepo,
		ticketRepo: ticketRepo,
		tenantRepo: tenantRepo,
	}
}

func (s *ticketServiceImpl) GenerateTickets(ctx context.Context, orderID string) ([]*model.PrintTicket, error) {
	existing, err := s.ticketRepo.ByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTicketGeneration, err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTicketGeneration, err)
	}
	tenant, err := s.tenantRepo.ByID(ctx, order.TenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTicketGeneration, err)
	}

	zones, itemsByZone := routeItems(order)
	if len(zones) == 0 {
		s.log.Info("order has no printer zones, nothing to print",
			zap.String("order_number", order.OrderNumber))
		return nil, nil
	}

	now := time.Now()
	tickets := make([]*model.PrintTicket, 0, len(zones))
	for _, zone := range zones {
		tickets = append(tickets, &model.PrintTicket{
			ID:            uuid.NewString(),
			TenantID:      order.TenantID,
			OrderID:       order.ID,
			PrinterZoneID: zone.ID,
			PrinterZone:   zone,
			Content:       ticketfmt.RenderTicket(tenant.Name, order, zone, itemsByZone[zone.ID], now),
			Status:        model.PrintPending,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.ticketRepo.CreateAll(ctx, tx, tickets)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTicketGeneration, err)
	}

	s.log.Info("print tickets generated",
		zap.String("order_number", order.OrderNumber),
		zap.Int("zones", len(tickets)))
	return tickets, nil
}

func (s *ticketServiceImpl) MarkPrinted(ctx context.Context, ticketID string) error {
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ticketRepo.MarkPrinted(ctx, tx, ticket.ID); err != nil {
			return err
		}
		pending, err := s.ticketRepo.CountPending(ctx, tx, ticket.OrderID)
		if err != nil {
			return err
		}
		if pending == 0 {
			return s.orderRepo.SetPrinterStatus(ctx, tx, ticket.OrderID, model.PrintPrinted)
		}
		return nil
	})
}

func (s *ticketServiceImpl) PendingTickets(ctx context.Context) ([]*model.PrintTicket, error) {
	return s.ticketRepo.Pending(ctx)
}

// routeItems resolves each line item's zone set and unions them. Zones on
// the product's category take precedence over the product's own zones.
func routeItems(order *model.Order) ([]*model.PrinterZone, map[string][]model.OrderItem) {
	zonesByID := map[string]*model.PrinterZone{}
	itemsByZone := map[string][]model.OrderItem{}
	var ordered []*model.PrinterZone

	for _, item := range order.Items {
		for _, zone := range itemZones(&item) {
			if !zone.IsActive {
				continue
			}
			if _, seen := zonesByID[zone.ID]; !seen {
				z := zone
				zonesByID[zone.ID] = &z
				ordered = append(ordered, &z)
			}
			itemsByZone[zone.ID] = append(itemsByZone[zone.ID], item)
		}
	}
	return ordered, itemsByZone
}

func itemZones(item *model.OrderItem) []model.PrinterZone {
	if item.Product == nil {
		return nil
	}
	if item.Product.Category != nil && len(item.Product.Category.Zones) > 0 {
		return item.Product.Category.Zones
	}
	return item.Product.Zones
}
