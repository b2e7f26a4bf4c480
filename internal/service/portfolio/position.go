package portfolio

import (
	"errors"
	"time"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/shopspring/decimal"
)

var (
	ErrPositionExists   = errors.New("position already open for pair")
	ErrPositionNotFound = errors.New("position not found")
)

type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "OPEN"
	PositionStatusClosed PositionStatus = "CLOSED"
)

type ExitReason string

const (
	ExitReasonStopLoss   ExitReason = "stop_loss"
	ExitReasonTakeProfit ExitReason = "take_profit"
	ExitReasonSignal     ExitReason = "signal"
)

// Position 现货多头持仓
type Position struct {
	Id          string
	TradingPair exchange.TradingPair
	EntryPrice  decimal.Decimal
	Size        decimal.Decimal // 基础币数量
	EntryTime   time.Time
	StopLoss    decimal.Decimal
	TakeProfit  decimal.Decimal
	Status      PositionStatus
	ExitPrice   decimal.Decimal
	ExitTime    time.Time
	ExitReason  ExitReason
	RealizedPnl decimal.Decimal
}

func (p Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}

// Cost 开仓成本
func (p Position) Cost() decimal.Decimal {
	return p.EntryPrice.Mul(p.Size)
}

// UnrealizedPnl 按 price 计算的浮动盈亏
func (p Position) UnrealizedPnl(price decimal.Decimal) decimal.Decimal {
	return price.Sub(p.EntryPrice).Mul(p.Size)
}

// ReturnPct 已平仓的收益率
func (p Position) ReturnPct() decimal.Decimal {
	cost := p.Cost()
	if cost.IsZero() {
		return decimal.Zero
	}
	return p.RealizedPnl.Div(cost)
}

type OpenReq struct {
	TradingPair exchange.TradingPair
	Price       decimal.Decimal
	Size        decimal.Decimal
	StopLoss    decimal.Decimal
	TakeProfit  decimal.Decimal
	At          time.Time
}
