package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/electrosolucion2025/Whats2Want/internal/dto"
	"github.com/electrosolucion2025/Whats2Want/internal/service"
)

// PrinterHandler is the pull API for the on-premise printing agent. The agent
// polls for pending tickets, pushes them to the thermal printers on its LAN
// and reports completions back.
type PrinterHandler struct {
	tickets service.TicketService
}

func NewPrinterHandler(tickets service.TicketService) *PrinterHandler {
	return &PrinterHandler{tickets: tickets}
}

func (h *PrinterHandler) PendingTickets(c echo.Context) error {
	ctx := c.Request().Context()

	tickets, err := h.tickets.PendingTickets(ctx)
	if err != nil {
		return err
	}

	out := make([]*dto.PendingTicket, 0, len(tickets))
	for _, t := range tickets {
		entry := &dto.PendingTicket{
			ID:      t.ID,
			Content: t.Content,
		}
		if t.Order != nil {
			entry.OrderNumber = t.Order.OrderNumber
		}
		if t.PrinterZone != nil {
			entry.PrinterIP = t.PrinterZone.PrinterIP
			entry.PrinterPort = t.PrinterZone.PrinterPort
		}
		out = append(out, entry)
	}
	return c.JSON(http.StatusOK, out)
}

// MarkPrinted acknowledges one delivered ticket. Safe to call twice; the
// second call changes nothing.
func (h *PrinterHandler) MarkPrinted(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		TicketID string `json:"ticket_id"`
	}
	if err := c.Bind(&req); err != nil || req.TicketID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ticket_id is required")
	}

	if err := h.tickets.MarkPrinted(ctx, req.TicketID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "printed"})
}
