package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lulgamer69/event-ticket-system/internal/config"
)

// WhatsApp sends text messages through the WhatsApp Cloud API.  The URL is
// the full messages endpoint of the sending phone number.
type WhatsApp struct {
	url    string
	token  string
	client *http.Client
}

type whatsappText struct {
	Body string `json:"body"`
}

type whatsappRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsappText `json:"text"`
}

type whatsappError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// NewWhatsApp returns a sender, or nil when the API is not configured.
func NewWhatsApp(cfg config.NotifyConfig) *WhatsApp {
	if cfg.WhatsAppURL == "" || cfg.WhatsAppToken == "" {
		return nil
	}
	return &WhatsApp{
		url:    cfg.WhatsAppURL,
		token:  cfg.WhatsAppToken,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Send posts one text message.  Attachments are not uploaded; the body is
// expected to carry a link instead.
func (w *WhatsApp) Send(ctx context.Context, msg Message) error {
	to := normalizePhone(msg.To)
	if to == "" {
		return errors.New("whatsapp: empty recipient")
	}
	body := msg.Body
	if msg.Subject != "" {
		body = "*" + msg.Subject + "*\n" + body
	}
	payload, err := json.Marshal(whatsappRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             whatsappText{Body: body},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("whatsapp: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.token)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr whatsappError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("whatsapp: status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("whatsapp: status %d", resp.StatusCode)
	}
	return nil
}

// normalizePhone keeps digits only; the Cloud API wants the number with
// country code and no plus sign.
func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
