// Package whatsapp sends birthday reminders through an HTTP WhatsApp
// gateway, with a logged simulation fallback when the gateway is not
// configured.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crm_backend/platform/config"
	"crm_backend/platform/logger"
	"crm_backend/platform/phone"
)

// Sender delivers WhatsApp messages.
type Sender interface {
	SendMessage(ctx context.Context, toPhone, message string) error
	// Simulated reports whether sends are logged instead of delivered.
	Simulated() bool
}

// NewSender picks the gateway client when configured, otherwise the
// simulated one.
func NewSender(cfg config.WhatsAppConfig, log *logger.Logger) Sender {
	if cfg.GetWhatsAppURL() == "" {
		log.Warn("WhatsApp gateway not configured; messages will be simulated")
		return &SimulatedSender{log: log}
	}
	return NewClient(cfg)
}

// SimulatedSender logs instead of sending.
type SimulatedSender struct {
	log *logger.Logger
}

func (s *SimulatedSender) SendMessage(_ context.Context, toPhone, message string) error {
	s.log.Info("simulated whatsapp message", "to", toPhone, "length", len(message))
	return nil
}

func (s *SimulatedSender) Simulated() bool { return true }

// Client talks to a gowa-compatible gateway: JSON POST /send/message with
// Basic auth and an optional device id header.
type Client struct {
	baseURL  string
	authKey  string
	deviceID string
	http     *http.Client
}

func NewClient(cfg config.WhatsAppConfig) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		authKey:  cfg.GetWhatsAppKey(),
		deviceID: cfg.GetWhatsAppDeviceID(),
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Simulated() bool { return false }

type sendMessageRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (c *Client) SendMessage(ctx context.Context, toPhone, message string) error {
	body, err := json.Marshal(sendMessageRequest{
		// Gateway addressing is raw digits plus the JID suffix.
		Phone:   phone.Digits(toPhone) + "@s.whatsapp.net",
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("whatsapp marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send/message", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authKey != "" {
		req.Header.Set("Authorization", "Basic "+c.authKey)
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
