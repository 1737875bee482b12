package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// LogSender writes alerts to the application log.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a sender that logs every alert at info level.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("alerts")}
}

// Send logs the alert.
func (s *LogSender) Send(_ context.Context, title, message string) error {
	s.logger.Info(title, zap.String("message", message))
	return nil
}

// Name returns the sender identifier.
func (s *LogSender) Name() string { return "log" }

// WebhookSender posts alerts as JSON to a chat webhook.
type WebhookSender struct {
	client *resty.Client
	url    string
}

type webhookPayload struct {
	Content string `json:"content"`
}

// NewWebhookSender creates a WebhookSender for url.
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		client: resty.New().SetTimeout(10 * time.Second),
		url:    url,
	}
}

// Send posts the alert with the title rendered in bold.
func (s *WebhookSender) Send(ctx context.Context, title, message string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(webhookPayload{Content: fmt.Sprintf("**%s**\n%s", title, message)}).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("webhook: send request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook: unexpected status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// Name returns the sender identifier.
func (s *WebhookSender) Name() string { return "webhook" }
