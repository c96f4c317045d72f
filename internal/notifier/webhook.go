// Package notifier 报警外送（Webhook）
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"vitalstream/internal/domain"
)

// AlertNotifier 报警通知接口
type AlertNotifier interface {
	Notify(ctx context.Context, alert domain.AlertPayload) error
}

// WebhookNotifier 把 Alert 事件 POST 到外部 Webhook
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &WebhookNotifier{
		client: client,
		url:    url,
		logger: logger,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, alert domain.AlertPayload) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(alert).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post alert webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode())
	}

	n.logger.Info("Alert webhook delivered",
		zap.String("level", string(alert.Level)),
		zap.Int("status", resp.StatusCode()),
	)
	return nil
}

// NopNotifier 未配置 Webhook 时的空实现
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, domain.AlertPayload) error { return nil }
