package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electrosolucion2025/Whats2Want/internal/redsys"
	"github.com/electrosolucion2025/Whats2Want/internal/service"
)

type stubSettlement struct {
	calls   int
	outcome *service.SettlementOutcome
	err     error
}

func (s *stubSettlement) HandleNotification(_ context.Context, _, _ string) (*service.SettlementOutcome, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome, nil
}

func postNotification(t *testing.T, settlement service.SettlementService, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	h := NewPaymentHandler(nil, settlement, nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/redsys/notify", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Notification(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestNotificationRejectsMissingSignature(t *testing.T) {
	stub := &stubSettlement{}

	rec := postNotification(t, stub, url.Values{
		"Ds_MerchantParameters": {"eyJEc19PcmRlciI6IjAwMDAwMDAwMDAwMSJ9"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, stub.calls, "settlement must not run for an unsigned callback")
}

func TestNotificationRejectsMissingParameters(t *testing.T) {
	stub := &stubSettlement{}

	rec := postNotification(t, stub, url.Values{"Ds_Signature": {"c2ln"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, stub.calls)
}

func TestNotificationAcknowledgesSettlement(t *testing.T) {
	stub := &stubSettlement{outcome: &service.SettlementOutcome{
		OrderNumber: "248159263748",
		Authorized:  true,
	}}

	rec := postNotification(t, stub, url.Values{
		"Ds_SignatureVersion":   {"HMAC_SHA256_V1"},
		"Ds_MerchantParameters": {"eyJEc19PcmRlciI6IjAwMDAwMDAwMDAwMSJ9"},
		"Ds_Signature":          {"c2ln"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, stub.calls)
	assert.Contains(t, rec.Body.String(), "248159263748")
}

func TestNotificationErrorMapping(t *testing.T) {
	form := url.Values{
		"Ds_MerchantParameters": {"eyJEc19PcmRlciI6IjAwMDAwMDAwMDAwMSJ9"},
		"Ds_Signature":          {"c2ln"},
	}

	rec := postNotification(t, &stubSettlement{err: redsys.ErrBadSignature}, form)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postNotification(t, &stubSettlement{err: redsys.ErrDecode}, form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postNotification(t, &stubSettlement{err: service.ErrPaymentNotFound}, form)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
