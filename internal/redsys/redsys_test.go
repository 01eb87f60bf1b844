package redsys

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 24 zero bytes, base64: a syntactically valid 3DES merchant secret.
var testSecret = base64.StdEncoding.EncodeToString(make([]byte, 24))

func testClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(&Config{
		SecretKey:    testSecret,
		MerchantCode: "999008881",
		Terminal:     "001",
		RedirectURL:  "https://sis-t.example/sis/realizarPago",
		NotifyURL:    "https://shop.example/api/payments/notify",
		SuccessURL:   "https://shop.example/api/payments/success/",
		FailureURL:   "https://shop.example/api/payments/failure/",
	})
	require.NoError(t, err)
	return c
}

func encodeNotification(t *testing.T, fields map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestFormatOrderNumber(t *testing.T) {
	got, err := FormatOrderNumber("482915")
	require.NoError(t, err)
	assert.Equal(t, "000000482915", got)

	got, err = FormatOrderNumber("123456789012")
	require.NoError(t, err)
	assert.Equal(t, "123456789012", got)

	_, err = FormatOrderNumber("1234567890123")
	assert.ErrorIs(t, err, ErrOrderNumber)
}

func TestBuildRedirectRequest(t *testing.T) {
	c := testClient(t)

	req, err := c.BuildRedirectRequest("482915", "order-uuid-1", decimal.RequireFromString("10.50"))
	require.NoError(t, err)

	assert.Equal(t, "https://sis-t.example/sis/realizarPago", req.URL)
	assert.Equal(t, "HMAC_SHA256_V1", req.SignatureVersion)
	assert.NotEmpty(t, req.Signature)

	raw, err := base64.StdEncoding.DecodeString(req.MerchantParameters)
	require.NoError(t, err)
	var params map[string]string
	require.NoError(t, json.Unmarshal(raw, &params))

	assert.Equal(t, "000000482915", params["DS_MERCHANT_ORDER"])
	assert.Equal(t, "1050", params["DS_MERCHANT_AMOUNT"], "amount travels in cents")
	assert.Equal(t, "978", params["DS_MERCHANT_CURRENCY"])
	assert.Equal(t, "0", params["DS_MERCHANT_TRANSACTIONTYPE"])
	assert.Equal(t, "999008881", params["DS_MERCHANT_MERCHANTCODE"])
	assert.Equal(t, "https://shop.example/api/payments/success/order-uuid-1/", params["DS_MERCHANT_URLOK"])
}

func TestBuildRedirectRequestDeterministic(t *testing.T) {
	c := testClient(t)
	a, err := c.BuildRedirectRequest("7", "o1", decimal.RequireFromString("6.10"))
	require.NoError(t, err)
	b, err := c.BuildRedirectRequest("7", "o1", decimal.RequireFromString("6.10"))
	require.NoError(t, err)
	assert.Equal(t, a.Signature, b.Signature)
}

func TestDecodeNotification(t *testing.T) {
	blob := encodeNotification(t, map[string]any{
		"Ds_Order":             "000000482915",
		"Ds_Response":          "0000",
		"Ds_AuthorisationCode": "123456",
		"Ds_Card_Number":       "454881******0004",
	})

	n, err := DecodeNotification(blob)
	require.NoError(t, err)
	assert.Equal(t, "482915", n.OrderNumber, "zero padding stripped")
	assert.Equal(t, 0, n.ResponseCode)
	assert.Equal(t, "123456", n.AuthorizationCode)
	assert.Equal(t, "0004", n.CardLast4)
	assert.True(t, n.Authorized())
}

func TestDecodeNotificationNumericResponse(t *testing.T) {
	blob := encodeNotification(t, map[string]any{
		"Ds_Order":    "000000000007",
		"Ds_Response": 99,
	})
	n, err := DecodeNotification(blob)
	require.NoError(t, err)
	assert.Equal(t, 99, n.ResponseCode)
	assert.True(t, n.Authorized())
}

func TestDecodeNotificationDeclines(t *testing.T) {
	for _, code := range []any{"0180", "9915", 100, -1} {
		blob := encodeNotification(t, map[string]any{"Ds_Order": "000000000001", "Ds_Response": code})
		n, err := DecodeNotification(blob)
		require.NoError(t, err)
		assert.False(t, n.Authorized(), "code %v must decline", code)
	}
}

func TestDecodeNotificationMissingResponseIsSentinel(t *testing.T) {
	blob := encodeNotification(t, map[string]any{"Ds_Order": "000000000001"})
	n, err := DecodeNotification(blob)
	require.NoError(t, err)
	assert.Equal(t, -1, n.ResponseCode)
	assert.False(t, n.Authorized())
}

func TestDecodeNotificationMalformed(t *testing.T) {
	_, err := DecodeNotification("not-base64!!!")
	assert.ErrorIs(t, err, ErrDecode)

	_, err = DecodeNotification(base64.StdEncoding.EncodeToString([]byte("{broken")))
	assert.ErrorIs(t, err, ErrDecode)

	// decodes but carries no order reference
	_, err = DecodeNotification(encodeNotification(t, map[string]any{"Ds_Response": "0"}))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestVerifyNotification(t *testing.T) {
	c := testClient(t)

	blob := encodeNotification(t, map[string]any{
		"Ds_Order":    "000000482915",
		"Ds_Response": "0000",
	})
	sig, err := c.SignNotification(blob)
	require.NoError(t, err)

	assert.NoError(t, c.VerifyNotification(blob, sig))
	assert.ErrorIs(t, c.VerifyNotification(blob, "AAAA"), ErrBadSignature)
	assert.ErrorIs(t, c.VerifyNotification(blob, ""), ErrBadSignature)
}
