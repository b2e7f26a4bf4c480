package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/jpillora/backoff"
)

// Executor 下单并在失败时有限次重试.
// 同一请求的所有尝试使用同一个客户端订单号, 每次失败后先按订单号查询, 已成交则视为成功.
type Executor struct {
	orderSvc exchange.OrderService

	retries    int
	timeout    time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration
	logger     *slog.Logger
}

type ExecutorOption func(*Executor)

// WithRetries 首次失败后的最多重试次数
func WithRetries(n int) ExecutorOption {
	return func(e *Executor) {
		if n >= 0 {
			e.retries = n
		}
	}
}

// WithOrderTimeout 单次交易所调用超时
func WithOrderTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithBackoff(minDelay, maxDelay time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.minBackoff = minDelay
		e.maxBackoff = maxDelay
	}
}

func WithExecutorLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = l
	}
}

func NewExecutor(orderSvc exchange.OrderService, opts ...ExecutorOption) *Executor {
	e := &Executor{
		orderSvc:   orderSvc,
		retries:    3,
		timeout:    10 * time.Second,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 5 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "executor")
	return e
}

// Submit 提交市价单直到确认成交或重试耗尽.
// 调用不受 ctx 取消影响, 已经开始的下单总会走完.
func (e *Executor) Submit(ctx context.Context, req exchange.PlaceOrderReq) (exchange.OrderResult, error) {
	if req.ClientOrderId == "" {
		req.ClientOrderId = exchange.NewClientOrderId()
	}
	ctx = context.WithoutCancel(ctx)
	b := &backoff.Backoff{
		Min:    e.minBackoff,
		Max:    e.maxBackoff,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(b.Duration())
		}

		res, err := e.place(ctx, req)
		if err == nil {
			if res.IsConfirmed() {
				return res, nil
			}
			// 市价单没有成交, 重试也不会变
			return res, fmt.Errorf("order %s not filled, status %s: %w", req.ClientOrderId, res.Status, exchange.ErrOrderRejected)
		}
		lastErr = err
		e.logger.Warn("place order failed", "client_order_id", req.ClientOrderId,
			"pair", req.TradingPair, "side", req.Side, "attempt", attempt+1, "error", err)

		// 超时的请求可能已经到达交易所
		if res, ok := e.lookup(ctx, req); ok {
			e.logger.Info("order confirmed by lookup", "client_order_id", req.ClientOrderId, "status", res.Status)
			return res, nil
		}
		if !exchange.IsRetryable(err) {
			break
		}
	}
	return exchange.OrderResult{}, fmt.Errorf("place order %s: %w", req.ClientOrderId, lastErr)
}

func (e *Executor) place(ctx context.Context, req exchange.PlaceOrderReq) (exchange.OrderResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	res, err := e.orderSvc.PlaceOrder(callCtx, req)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, exchange.ErrNetwork) {
		err = fmt.Errorf("%w: %w", exchange.ErrNetwork, err)
	}
	return res, err
}

func (e *Executor) lookup(ctx context.Context, req exchange.PlaceOrderReq) (exchange.OrderResult, bool) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	res, err := e.orderSvc.GetOrder(callCtx, req.TradingPair, req.ClientOrderId)
	if err != nil {
		if !errors.Is(err, exchange.ErrOrderNotFound) {
			e.logger.Warn("query order failed", "client_order_id", req.ClientOrderId, "error", err)
		}
		return exchange.OrderResult{}, false
	}
	return res, res.IsConfirmed()
}
