package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/electrosolucion2025/Whats2Want/internal/model"
	"github.com/electrosolucion2025/Whats2Want/internal/redsys"
	"github.com/electrosolucion2025/Whats2Want/internal/repository"
	"github.com/electrosolucion2025/Whats2Want/internal/service"
)

type PaymentHandler struct {
	gateway    *redsys.Client
	settlement service.SettlementService
	orderRepo  repository.OrderRepository
}

func NewPaymentHandler(gateway *redsys.Client, settlement service.SettlementService, orderRepo repository.OrderRepository) *PaymentHandler {
	return &PaymentHandler{
		gateway:    gateway,
		settlement: settlement,
		orderRepo:  orderRepo,
	}
}

// RedirectForm serves the auto-submitting form that carries the customer to
// the gateway's hosted payment page.
func (h *PaymentHandler) RedirectForm(c echo.Context) error {
	ctx := c.Request().Context()

	orderID := c.Param("orderID")
	order, err := h.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	if order.PaymentStatus == model.PaymentStatePaid {
		return c.HTML(http.StatusOK, infoPage("Pedido ya pagado",
			fmt.Sprintf("El pedido %s ya esta pagado. No es necesario volver a pagar.", order.OrderNumber)))
	}

	req, err := h.gateway.BuildRedirectRequest(order.OrderNumber, order.ID, order.TotalPrice)
	if err != nil {
		return err
	}

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Redirigiendo al pago</title>
</head>
<body onload="document.forms[0].submit()">
	<p>Redirigiendo a la pasarela de pago segura...</p>
	<form action="%s" method="POST">
		<input type="hidden" name="Ds_SignatureVersion" value="%s"/>
		<input type="hidden" name="Ds_MerchantParameters" value="%s"/>
		<input type="hidden" name="Ds_Signature" value="%s"/>
		<noscript><button type="submit">Continuar al pago</button></noscript>
	</form>
</body>
</html>`, req.URL, req.SignatureVersion, req.MerchantParameters, req.Signature)

	return c.HTML(http.StatusOK, html)
}

// Notification is the gateway's server-to-server callback. It must always be
// answered quickly; side effects run asynchronously after the settlement
// transaction commits.
func (h *PaymentHandler) Notification(c echo.Context) error {
	ctx := c.Request().Context()

	params := c.FormValue("Ds_MerchantParameters")
	signature := c.FormValue("Ds_Signature")
	if params == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing Ds_MerchantParameters")
	}
	if signature == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing Ds_Signature")
	}

	outcome, err := h.settlement.HandleNotification(ctx, params, signature)
	switch {
	case errors.Is(err, redsys.ErrDecode):
		return echo.NewHTTPError(http.StatusBadRequest, "malformed notification")
	case errors.Is(err, redsys.ErrBadSignature):
		return echo.NewHTTPError(http.StatusUnauthorized, "signature mismatch")
	case errors.Is(err, service.ErrPaymentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "unknown order")
	case err != nil:
		return err
	}

	resp := map[string]any{
		"order_number": outcome.OrderNumber,
		"authorized":   outcome.Authorized,
		"replayed":     outcome.Replayed,
	}
	if outcome.RetryOrder != nil {
		resp["retry_order_number"] = outcome.RetryOrder.OrderNumber
	}
	return c.JSON(http.StatusOK, resp)
}

// Success is the browser's return leg after an approved payment. Settlement
// truth comes from the notification, so this only shows a friendly page.
func (h *PaymentHandler) Success(c echo.Context) error {
	return c.HTML(http.StatusOK, infoPage("Pago aprobado",
		"Tu pago se ha realizado correctamente. Recibiras la confirmacion por WhatsApp en unos segundos."))
}

// Failure is the browser's return leg after a declined or cancelled payment.
func (h *PaymentHandler) Failure(c echo.Context) error {
	return c.HTML(http.StatusOK, infoPage("Pago no completado",
		"Tu pago no se ha completado. Te enviaremos un nuevo enlace de pago por WhatsApp."))
}

func infoPage(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>%s</title>
	<style>
		body {
			font-family: Arial, sans-serif;
			text-align: center;
			margin-top: 80px;
		}
	</style>
</head>
<body>
	<h2>%s</h2>
	<p>%s</p>
</body>
</html>`, title, title, body)
}
