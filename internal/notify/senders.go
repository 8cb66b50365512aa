package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LogSender writes events to the structured log. Always wired; it doubles as
// the audit trail when no webhook is configured.
type LogSender struct {
	Logger *zap.Logger
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(ctx context.Context, event string, payload any) error {
	if s == nil || s.Logger == nil {
		return nil
	}
	s.Logger.Info("bet event",
		zap.String("event", event),
		zap.Any("payload", payload),
	)
	return nil
}

// WebhookSender POSTs events as JSON to a configured endpoint, the delivery
// mechanism the surrounding system's notification service consumes.
type WebhookSender struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

func (s *WebhookSender) Name() string { return "webhook" }

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
	SentAt  string `json:"sent_at"`
}

func (s *WebhookSender) Send(ctx context.Context, event string, payload any) error {
	if s == nil || s.URL == "" {
		return nil
	}
	body, err := json.Marshal(webhookEnvelope{
		Event:   event,
		Payload: payload,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("notify: marshal %s: %w", event, err)
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post %s: %w", event, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned %d for %s", resp.StatusCode, event)
	}
	return nil
}

var (
	_ Sender = (*LogSender)(nil)
	_ Sender = (*WebhookSender)(nil)
)
