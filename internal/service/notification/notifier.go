package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var _ Notifier = (*LogNotifier)(nil)

// LogNotifier 只打日志, 没有配置 webhook 时使用
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	n.logger.InfoContext(ctx, "notify", "kind", event.Kind, "pair", event.Pair, "message", event.Message, "fields", event.Fields)
	return nil
}

var _ Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier 把事件 POST 到 webhook
type WebhookNotifier struct {
	svc WebhookService
	url string
}

func NewWebhookNotifier(svc WebhookService, url string) *WebhookNotifier {
	return &WebhookNotifier{svc: svc, url: url}
}

func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	return n.svc.Send(ctx, n.url, map[string]any{
		"kind":    event.Kind,
		"pair":    event.Pair,
		"message": event.Message,
		"fields":  event.Fields,
		"at":      event.At.Format(time.RFC3339),
	})
}

// Multi 依次通知, 汇总所有错误
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AsyncNotifier 后台发送, 不阻塞交易循环; 失败只记录日志
type AsyncNotifier struct {
	next    Notifier
	timeout time.Duration
	logger  *slog.Logger
}

func NewAsyncNotifier(next Notifier, timeout time.Duration, logger *slog.Logger) *AsyncNotifier {
	return &AsyncNotifier{next: next, timeout: timeout, logger: logger}
}

func (a *AsyncNotifier) Notify(ctx context.Context, event Event) error {
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		if err := a.next.Notify(sendCtx, event); err != nil {
			a.logger.Error("notify event err", "error", err, "kind", event.Kind, "pair", event.Pair)
		}
	}()
	return nil
}
