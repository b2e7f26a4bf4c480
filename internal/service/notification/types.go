package notification

import (
	"context"
	"time"
)

type EventKind string

const (
	EventPositionOpened EventKind = "position_opened"
	EventPositionClosed EventKind = "position_closed"
	EventOrderFailed    EventKind = "order_failed"
	EventDailyLossLimit EventKind = "daily_loss_limit"
)

// Event 需要推送给人的交易事件
type Event struct {
	Kind    EventKind      `json:"kind"`
	Pair    string         `json:"pair"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
	At      time.Time      `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type WebhookService interface {
	Send(ctx context.Context, url string, data map[string]any) error
}
