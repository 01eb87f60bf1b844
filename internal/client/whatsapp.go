package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/electrosolucion2025/Whats2Want/internal/model"
)

// WhatsAppClient sends text messages through the hosted messaging API,
// keyed by the tenant's own credentials. Consumed as a black box by the
// settlement pipeline; delivery failures are the caller's to log.
type WhatsAppClient interface {
	SendText(ctx context.Context, tenant *model.Tenant, to, text string) error
}

type whatsAppClientImpl struct {
	httpClient *http.Client
	baseApiURL string
}

func NewWhatsAppClient(baseApiURL string) WhatsAppClient {
	return &whatsAppClientImpl{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseApiURL: baseApiURL,
	}
}

func (c *whatsAppClientImpl) SendText(ctx context.Context, tenant *model.Tenant, to, text string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text": map[string]string{
			"body": text,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseApiURL, tenant.WhatsAppPhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tenant.WhatsAppToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp api error %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
