package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/shopspring/decimal"
)

var ErrTerminated = errors.New("engine terminated")

// State 引擎状态机, TERMINATED 之后不再回到其他状态
type State string

const (
	StateIdle       State = "IDLE"
	StateFetching   State = "FETCHING"
	StateEvaluating State = "EVALUATING"
	StateDeciding   State = "DECIDING"
	StateExecuting  State = "EXECUTING"
	StateTerminated State = "TERMINATED"
)

type Engine interface {
	// Run 阻塞运行直到 ctx 取消
	Run(ctx context.Context) error
	State() State
	SetTradingEnabled(enabled bool)
}

type Config struct {
	Pairs    []exchange.TradingPair
	Interval exchange.Interval
	// 每轮至少拉取的K线数量, 不足策略回看长度时取回看长度
	CandleCount  int
	TickInterval time.Duration
	// 每笔买单的计价币金额, 0 表示使用全部可用余额
	OrderAmount decimal.Decimal
	// 关闭后只记录策略决策, 止盈止损仍然执行
	TradingEnabled bool
	OrderRetries   int
	OrderTimeout   time.Duration
	// 看板保留的最近信号和决策条数
	HistorySize int
}

func (c Config) Validate() error {
	if len(c.Pairs) == 0 {
		return errors.New("no trading pair configured")
	}
	for _, p := range c.Pairs {
		if p.IsZero() {
			return fmt.Errorf("invalid trading pair %q", p)
		}
		// 余额只同步一种计价币
		if p.Quote != c.Pairs[0].Quote {
			return fmt.Errorf("all pairs must share quote asset %s, got %s", c.Pairs[0].Quote, p)
		}
	}
	if !c.Interval.IsValid() {
		return fmt.Errorf("invalid interval %q", c.Interval)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.OrderAmount.IsNegative() {
		return fmt.Errorf("order amount must not be negative, got %s", c.OrderAmount)
	}
	if c.OrderRetries < 0 {
		return fmt.Errorf("order retries must not be negative, got %d", c.OrderRetries)
	}
	return nil
}
