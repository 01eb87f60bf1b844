// Package worker consumes settlement events and runs the slow side effects:
// ticket fan-out, customer messaging and the receipt email. Everything here
// is at-least-once, so every step must tolerate a second delivery.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/electrosolucion2025/Whats2Want/internal/client"
	"github.com/electrosolucion2025/Whats2Want/internal/events"
	"github.com/electrosolucion2025/Whats2Want/internal/model"
	"github.com/electrosolucion2025/Whats2Want/internal/repository"
	"github.com/electrosolucion2025/Whats2Want/internal/service"
)

// Deduper remembers event ids this consumer has already handled. The redisx
// implementation backs it in production.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type SettlementWorker struct {
	log        *zap.Logger
	dedup      Deduper
	tickets    service.TicketService
	payRepo    repository.PaymentRepository
	tenantRepo repository.TenantRepository
	whatsapp   client.WhatsAppClient
	mailer     client.Mailer
	printer    client.PrinterClient
}

func NewSettlementWorker(
	log *zap.Logger,
	dedup Deduper,
	tickets service.TicketService,
	payRepo repository.PaymentRepository,
	tenantRepo repository.TenantRepository,
	whatsapp client.WhatsAppClient,
	mailer client.Mailer,
	printer client.PrinterClient,
) *SettlementWorker {
	return &SettlementWorker{
		log:        log,
		dedup:      dedup,
		tickets:    tickets,
		payRepo:    payRepo,
		tenantRepo: tenantRepo,
		whatsapp:   whatsapp,
		mailer:     mailer,
		printer:    printer,
	}
}

// Handle is the kafka consumer entry point. Returning nil commits the offset.
func (w *SettlementWorker) Handle(ctx context.Context, m kafka.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		w.log.Error("malformed event envelope, dropping", zap.Error(err))
		return nil
	}

	seen, err := w.dedup.Seen(ctx, env.EventID)
	if err != nil {
		w.log.Warn("event dedup check", zap.Error(err))
	}
	if seen {
		w.log.Debug("duplicate event skipped", zap.String("event_id", env.EventID))
		return nil
	}

	switch env.EventType {
	case events.EventOrderPaid:
		var p events.OrderPaidPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			w.log.Error("malformed OrderPaid payload, dropping", zap.Error(err))
			return nil
		}
		if err := w.handleOrderPaid(ctx, p); err != nil {
			return err
		}
	case events.EventPaymentRetry:
		var p events.PaymentRetryPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			w.log.Error("malformed PaymentRetry payload, dropping", zap.Error(err))
			return nil
		}
		if err := w.handlePaymentRetry(ctx, p); err != nil {
			return err
		}
	default:
		w.log.Warn("unknown event type, dropping", zap.String("event_type", env.EventType))
		return nil
	}

	if err := w.dedup.Mark(ctx, env.EventID); err != nil {
		w.log.Warn("mark event handled", zap.Error(err))
	}
	return nil
}

// handleOrderPaid fans the settled order out to the print zones, confirms to
// the customer and mails the receipt. Ticket generation is the only step that
// forces a retry; messaging and email are best effort.
func (w *SettlementWorker) handleOrderPaid(ctx context.Context, p events.OrderPaidPayload) error {
	tickets, err := w.tickets.GenerateTickets(ctx, p.OrderID)
	if err != nil {
		return fmt.Errorf("ticket fan-out for order %s: %w", p.OrderNumber, err)
	}
	w.log.Info("order paid, tickets generated",
		zap.String("order_number", p.OrderNumber),
		zap.Int("tickets", len(tickets)))

	// Push directly to reachable printers; anything left PENDING stays
	// available on the pull API for the on-premise agent.
	w.printDirect(ctx, tickets)

	tenant, err := w.tenantRepo.ByID(ctx, p.TenantID)
	if err != nil {
		w.log.Error("load tenant for notifications", zap.Error(err))
		return nil
	}

	if p.PhoneNumber != "" {
		msg := fmt.Sprintf("Pago confirmado. Tu pedido %s (%s %s) esta en preparacion. Gracias!",
			p.OrderNumber, p.Amount, tenant.Currency)
		if err := w.whatsapp.SendText(ctx, tenant, p.PhoneNumber, msg); err != nil {
			w.log.Error("send payment confirmation", zap.Error(err), zap.String("to", p.PhoneNumber))
		}
	}

	w.sendReceipt(ctx, tenant, p.OrderNumber)
	return nil
}

func (w *SettlementWorker) handlePaymentRetry(ctx context.Context, p events.PaymentRetryPayload) error {
	tenant, err := w.tenantRepo.ByID(ctx, p.TenantID)
	if err != nil {
		return fmt.Errorf("load tenant %s: %w", p.TenantID, err)
	}
	if p.PhoneNumber == "" {
		return nil
	}
	msg := fmt.Sprintf("Tu pago no se ha completado. Puedes intentarlo de nuevo con tu pedido %s aqui: %s",
		p.OrderNumber, p.PaymentLink)
	if err := w.whatsapp.SendText(ctx, tenant, p.PhoneNumber, msg); err != nil {
		return fmt.Errorf("send retry link: %w", err)
	}
	w.log.Info("retry link delivered", zap.String("order_number", p.OrderNumber))
	return nil
}

func (w *SettlementWorker) printDirect(ctx context.Context, tickets []*model.PrintTicket) {
	if w.printer == nil {
		return
	}
	for _, t := range tickets {
		if t.Status != model.PrintPending || t.PrinterZone == nil || t.PrinterZone.PrinterIP == "" {
			continue
		}
		if err := w.printer.Print(ctx, t.PrinterZone.PrinterIP, t.PrinterZone.PrinterPort, t.Content); err != nil {
			w.log.Warn("direct print failed, ticket left for pull agent",
				zap.Error(err), zap.String("ticket_id", t.ID), zap.String("zone", t.PrinterZone.Name))
			continue
		}
		if err := w.tickets.MarkPrinted(ctx, t.ID); err != nil {
			w.log.Error("mark ticket printed", zap.Error(err), zap.String("ticket_id", t.ID))
		}
	}
}

func (w *SettlementWorker) sendReceipt(ctx context.Context, tenant *model.Tenant, orderNumber string) {
	payment, err := w.payRepo.FindByPaymentID(ctx, orderNumber)
	if err != nil || payment.Order == nil {
		w.log.Error("load order for receipt", zap.Error(err), zap.String("order_number", orderNumber))
		return
	}
	if err := w.mailer.SendReceipt(ctx, tenant, payment.Order, payment); err != nil {
		w.log.Error("send receipt email", zap.Error(err), zap.String("order_number", orderNumber))
	}
}
