// Package redsys builds outbound redirect requests for the card-payment
// gateway and decodes its asynchronous notifications. The gateway speaks a
// form-encoded protocol: a base64 JSON parameter blob plus an HMAC signature
// keyed per order.
package redsys

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// TransactionStandard is the gateway code for a plain authorization.
	TransactionStandard = "0"
	// CurrencyEUR is the ISO 4217 numeric code the gateway expects.
	CurrencyEUR = "978"
	// OrderNumberWidth is the fixed width of the gateway's order field.
	OrderNumberWidth = 12

	// responseCodeSentinel marks a missing or unparseable response code.
	// It sits outside the authorized 0..99 range, so it always declines.
	responseCodeSentinel = -1
)

var (
	ErrDecode        = errors.New("redsys: malformed notification payload")
	ErrOrderNumber   = errors.New("redsys: order number exceeds gateway field width")
	ErrBadSignature  = errors.New("redsys: notification signature mismatch")
	ErrInvalidSecret = errors.New("redsys: secret key is not valid base64")
)

// Config carries the merchant credentials and callback URLs.
type Config struct {
	SecretKey    string `env:"SECRET_KEY"`
	MerchantCode string `env:"MERCHANT_CODE"`
	Terminal     string `env:"TERMINAL" envDefault:"001"`
	RedirectURL  string `env:"URL_REDSYS"`
	NotifyURL    string `env:"URL_NOTIFY"`
	SuccessURL   string `env:"URL_OK"`
	FailureURL   string `env:"URL_KO"`
}

// Client assembles signed requests. It does not perform any network I/O;
// the browser posts the form to the gateway's hosted page.
type Client struct {
	secretKey    []byte
	merchantCode string
	terminal     string
	redirectURL  string
	notifyURL    string
	successURL   string
	failureURL   string
}

func NewClient(cfg *Config) (*Client, error) {
	key, err := base64.StdEncoding.DecodeString(cfg.SecretKey)
	if err != nil {
		return nil, ErrInvalidSecret
	}
	return &Client{
		secretKey:    key,
		merchantCode: cfg.MerchantCode,
		terminal:     cfg.Terminal,
		redirectURL:  cfg.RedirectURL,
		notifyURL:    cfg.NotifyURL,
		successURL:   cfg.SuccessURL,
		failureURL:   cfg.FailureURL,
	}, nil
}

// FormatOrderNumber zero-pads an order number to the gateway's fixed width.
func FormatOrderNumber(orderNumber string) (string, error) {
	if len(orderNumber) > OrderNumberWidth {
		return "", ErrOrderNumber
	}
	return strings.Repeat("0", OrderNumberWidth-len(orderNumber)) + orderNumber, nil
}

type merchantParameters struct {
	Amount          string `json:"DS_MERCHANT_AMOUNT"`
	Order           string `json:"DS_MERCHANT_ORDER"`
	MerchantCode    string `json:"DS_MERCHANT_MERCHANTCODE"`
	Currency        string `json:"DS_MERCHANT_CURRENCY"`
	TransactionType string `json:"DS_MERCHANT_TRANSACTIONTYPE"`
	Terminal        string `json:"DS_MERCHANT_TERMINAL"`
	MerchantURL     string `json:"DS_MERCHANT_MERCHANTURL"`
	URLOK           string `json:"DS_MERCHANT_URLOK"`
	URLKO           string `json:"DS_MERCHANT_URLKO"`
}

// RedirectRequest is everything the auto-submitting HTML form needs.
type RedirectRequest struct {
	URL                string
	MerchantParameters string
	Signature          string
	SignatureVersion   string
}

// BuildRedirectRequest packs the order into the gateway's signed form
// parameters. Amount travels as an integer number of cents.
func (c *Client) BuildRedirectRequest(orderNumber, orderID string, amount decimal.Decimal) (*RedirectRequest, error) {
	padded, err := FormatOrderNumber(orderNumber)
	if err != nil {
		return nil, err
	}

	params := merchantParameters{
		Amount:          amount.Shift(2).Round(0).String(),
		Order:           padded,
		MerchantCode:    c.merchantCode,
		Currency:        CurrencyEUR,
		TransactionType: TransactionStandard,
		Terminal:        c.terminal,
		MerchantURL:     c.notifyURL,
		URLOK:           fmt.Sprintf("%s%s/", c.successURL, orderID),
		URLKO:           fmt.Sprintf("%s%s/", c.failureURL, orderID),
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	blob := base64.StdEncoding.EncodeToString(raw)

	sig, err := c.sign(padded, blob)
	if err != nil {
		return nil, err
	}

	return &RedirectRequest{
		URL:                c.redirectURL,
		MerchantParameters: blob,
		Signature:          sig,
		SignatureVersion:   signatureVersion,
	}, nil
}

// Notification is a gateway callback normalized into usable fields.
type Notification struct {
	OrderNumber       string
	ResponseCode      int
	AuthorizationCode string
	CardLast4         string
	ReceivedAt        time.Time
}

// Authorized reports the gateway's verdict: response codes 0..99 mean the
// charge went through, everything else is a decline.
func (n *Notification) Authorized() bool {
	return n.ResponseCode >= 0 && n.ResponseCode <= 99
}

// DecodeNotification base64-decodes and parses the notification blob.
// Malformed input yields ErrDecode; the caller must answer the gateway with
// a protocol-level error, never silently accept.
func DecodeNotification(blob string) (*Notification, error) {
	raw, err := decodeBase64(blob)
	if err != nil {
		return nil, ErrDecode
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, ErrDecode
	}

	orderNumber := stringField(fields, "Ds_Order")
	if orderNumber == "" {
		return nil, ErrDecode
	}

	n := &Notification{
		OrderNumber:       strings.TrimLeft(orderNumber, "0"),
		ResponseCode:      intField(fields, "Ds_Response"),
		AuthorizationCode: stringField(fields, "Ds_AuthorisationCode"),
		ReceivedAt:        time.Now().UTC(),
	}
	if card := stringField(fields, "Ds_Card_Number"); len(card) >= 4 {
		n.CardLast4 = card[len(card)-4:]
	}
	return n, nil
}

// decodeBase64 accepts both standard and URL-safe alphabets; the gateway
// uses URL-safe encoding on the notification leg.
func decodeBase64(blob string) ([]byte, error) {
	if raw, err := base64.StdEncoding.DecodeString(blob); err == nil {
		return raw, nil
	}
	return base64.URLEncoding.DecodeString(blob)
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func intField(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return responseCodeSentinel
		}
		return i
	case float64:
		return int(v)
	default:
		return responseCodeSentinel
	}
}
