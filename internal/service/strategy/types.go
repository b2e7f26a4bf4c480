package strategy

import (
	"context"
	"errors"
	"time"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ErrInsufficientData K线数量不足以计算指标, 该策略本轮不参与聚合
var ErrInsufficientData = errors.New("insufficient data")

type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// Snapshot 某交易对最近 N 根K线, 每个 tick 重建, 策略只读
type Snapshot struct {
	TradingPair exchange.TradingPair
	Interval    exchange.Interval
	Klines      []exchange.Kline
	FetchedAt   time.Time
}

func (s Snapshot) Len() int {
	return len(s.Klines)
}

func (s Snapshot) Closes() []decimal.Decimal {
	return lo.Map(s.Klines, func(k exchange.Kline, _ int) decimal.Decimal {
		return k.Close
	})
}

// Last 最后一根K线
func (s Snapshot) Last() (exchange.Kline, bool) {
	if len(s.Klines) == 0 {
		return exchange.Kline{}, false
	}
	return s.Klines[len(s.Klines)-1], true
}

type Signal struct {
	StrategyId  string
	TradingPair exchange.TradingPair
	Direction   Direction
	// 0-1
	Strength float64
	// 最后一根K线的收盘时间, 保证同一快照重复计算结果一致
	GeneratedAt time.Time
	Reason      string
	Metadata    map[string]any
}

// Strategy 信号策略, 必须是快照的纯函数
type Strategy interface {
	Name() string
	// Lookback 计算一次信号需要的最少K线数量
	Lookback() int
	GenerateSignal(ctx context.Context, snapshot Snapshot) (Signal, error)
}

// Decision 某交易对本轮的聚合决策
type Decision struct {
	TradingPair exchange.TradingPair
	Direction   Direction
	// 买单为计价币金额, 卖单为基础币数量
	RequestedSize  decimal.Decimal
	ReferencePrice decimal.Decimal
	Signals        []Signal
	// 止盈止损触发的强制卖出
	Forced bool
	Reason string
}

func (d Decision) IsHold() bool {
	return d.Direction == DirectionHold
}

func holdSignal(id string, snapshot Snapshot, reason string) Signal {
	return newSignal(id, snapshot, DirectionHold, 0, reason)
}

func newSignal(id string, snapshot Snapshot, direction Direction, strength float64, reason string) Signal {
	sig := Signal{
		StrategyId:  id,
		TradingPair: snapshot.TradingPair,
		Direction:   direction,
		Strength:    strength,
		Reason:      reason,
	}
	if last, ok := snapshot.Last(); ok {
		sig.GeneratedAt = last.CloseTime
	}
	return sig
}
