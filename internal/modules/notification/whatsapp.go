package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/georgemunganga/furnish-backend/internal/platform/config"
)

const maxResponseBody = 4 << 10

// WhatsAppClient sends text messages through the WhatsApp Cloud API.
type WhatsAppClient struct {
	cfg        config.WhatsAppConfig
	httpClient *http.Client
}

// NewWhatsAppClient returns nil when the token or phone id is missing.
func NewWhatsAppClient(cfg config.WhatsAppConfig, httpClient *http.Client) *WhatsAppClient {
	if cfg.Token == "" || cfg.PhoneID == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &WhatsAppClient{cfg: cfg, httpClient: httpClient}
}

type waText struct {
	Body string `json:"body"`
}

type waMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             waText `json:"text"`
}

func (c *WhatsAppClient) SendWhatsApp(ctx context.Context, to, message string) SendResult {
	payload, err := json.Marshal(waMessage{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(to, "+"),
		Type:             "text",
		Text:             waText{Body: message},
	})
	if err != nil {
		return SendResult{Error: err.Error()}
	}

	url := strings.TrimRight(c.cfg.APIURL, "/") + "/" + c.cfg.PhoneID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return SendResult{Error: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SendResult{Error: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return SendResult{Success: true}
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	return SendResult{Error: fmt.Sprintf("whatsapp api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
}
