package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/electrosolucion2025/Whats2Want/internal/dto"
	"github.com/electrosolucion2025/Whats2Want/internal/model"
	"github.com/electrosolucion2025/Whats2Want/internal/pricing"
	"github.com/electrosolucion2025/Whats2Want/internal/service"
)

type OrderHandler struct {
	materializer service.MaterializerService
}

func NewOrderHandler(materializer service.MaterializerService) *OrderHandler {
	return &OrderHandler{materializer: materializer}
}

// IngestIntent turns a confirmed intent document into a persisted order plus
// payment, answering with the payment link the customer must follow.
func (h *OrderHandler) IngestIntent(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.IngestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TenantID == "" || req.PhoneNumber == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tenant_id and phone_number are required")
	}

	session := &model.ChatSession{
		ID:          req.SessionID,
		TenantID:    req.TenantID,
		PhoneNumber: req.PhoneNumber,
	}

	result, err := h.materializer.MaterializeOrder(ctx, &req.Order, session)
	switch {
	case errors.Is(err, service.ErrEmptyOrder):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "no order line resolved to a valid product")
	case errors.Is(err, pricing.ErrInvalidQuantity), errors.Is(err, pricing.ErrInvalidPrice):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return err
	}

	warnings := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		warnings = append(warnings, w.String())
	}

	return c.JSON(http.StatusCreated, &dto.MaterializeResponse{
		OrderID:     result.Order.ID,
		OrderNumber: result.Order.OrderNumber,
		TotalPrice:  result.Order.TotalPrice.StringFixed(2),
		PaymentLink: result.PaymentLink,
		VIP:         result.VIP,
		Warnings:    warnings,
	})
}
