package ioc

import (
	"log/slog"
	"time"

	"github.com/KNICEX/auto-trader/internal/config"
	"github.com/KNICEX/auto-trader/internal/service/notification"
	"github.com/go-resty/resty/v2"
)

func InitNotifier(cfg config.NotifyConfig, logger *slog.Logger) notification.Notifier {
	logger = logger.With("component", "notifier")
	notifiers := notification.Multi{notification.NewLogNotifier(logger)}
	if cfg.WebhookURL != "" {
		cli := resty.New().
			SetTimeout(5 * time.Second).
			SetRetryCount(2)
		notifiers = append(notifiers, notification.NewWebhookNotifier(notification.NewRestyWebhookService(cli), cfg.WebhookURL))
	}
	return notification.NewAsyncNotifier(notifiers, 10*time.Second, logger)
}
