package analytics

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/KNICEX/auto-trader/internal/service/portfolio"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ========== 性能报告（输出结果）==========

// Report 基于已平仓持仓的绩效报告
type Report struct {
	StartTime time.Time
	EndTime   time.Time

	// 交易统计
	Trading TradingMetrics

	// 风险指标
	Risk RiskMetrics

	// 累计已实现盈亏曲线
	Equity []EquityPoint

	// 生成时间
	GeneratedAt time.Time
}

func (r Report) String() string {
	b, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(b)
}

// TradingMetrics 交易统计
type TradingMetrics struct {
	TotalTrades     int
	WinningTrades   int
	LosingTrades    int
	BreakevenTrades int

	TotalPnL     decimal.Decimal
	WinRate      decimal.Decimal // 胜率
	AvgWin       decimal.Decimal // 平均盈利
	AvgLoss      decimal.Decimal // 平均亏损 (负数)
	ProfitFactor decimal.Decimal // 总盈利/总亏损, 没有亏损时为 0

	LargestWin  decimal.Decimal
	LargestLoss decimal.Decimal

	AvgHoldDuration time.Duration

	StopLossExits   int
	TakeProfitExits int
	SignalExits     int
}

// RiskMetrics 风险指标
type RiskMetrics struct {
	MaxDrawdown decimal.Decimal // 累计盈亏曲线从峰值的最大回落
}

// EquityPoint 资金曲线点
type EquityPoint struct {
	Timestamp   time.Time
	CumulatePnL decimal.Decimal
	Drawdown    decimal.Decimal
}

// Analyze 计算报告, positions 顺序无关
func Analyze(positions []portfolio.Position, now time.Time) Report {
	closed := lo.Filter(positions, func(p portfolio.Position, _ int) bool {
		return p.Status == portfolio.PositionStatusClosed
	})
	slices.SortFunc(closed, func(a, b portfolio.Position) int {
		return a.ExitTime.Compare(b.ExitTime)
	})

	report := Report{GeneratedAt: now}
	if len(closed) == 0 {
		return report
	}
	report.StartTime = closed[0].EntryTime
	report.EndTime = closed[len(closed)-1].ExitTime
	report.Trading = tradingMetrics(closed)
	report.Equity, report.Risk.MaxDrawdown = equityCurve(closed)
	return report
}

func tradingMetrics(closed []portfolio.Position) TradingMetrics {
	m := TradingMetrics{TotalTrades: len(closed)}

	grossWin, grossLoss := decimal.Zero, decimal.Zero
	var hold time.Duration
	for _, p := range closed {
		pnl := p.RealizedPnl
		m.TotalPnL = m.TotalPnL.Add(pnl)
		hold += p.ExitTime.Sub(p.EntryTime)

		switch {
		case pnl.IsPositive():
			m.WinningTrades++
			grossWin = grossWin.Add(pnl)
			m.LargestWin = decimal.Max(m.LargestWin, pnl)
		case pnl.IsNegative():
			m.LosingTrades++
			grossLoss = grossLoss.Add(pnl)
			m.LargestLoss = decimal.Min(m.LargestLoss, pnl)
		default:
			m.BreakevenTrades++
		}

		switch p.ExitReason {
		case portfolio.ExitReasonStopLoss:
			m.StopLossExits++
		case portfolio.ExitReasonTakeProfit:
			m.TakeProfitExits++
		default:
			m.SignalExits++
		}
	}

	m.WinRate = decimal.NewFromInt(int64(m.WinningTrades)).Div(decimal.NewFromInt(int64(m.TotalTrades)))
	if m.WinningTrades > 0 {
		m.AvgWin = grossWin.Div(decimal.NewFromInt(int64(m.WinningTrades)))
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = grossLoss.Div(decimal.NewFromInt(int64(m.LosingTrades)))
		m.ProfitFactor = grossWin.Div(grossLoss.Abs())
	}
	m.AvgHoldDuration = hold / time.Duration(m.TotalTrades)
	return m
}

func equityCurve(closed []portfolio.Position) ([]EquityPoint, decimal.Decimal) {
	points := make([]EquityPoint, 0, len(closed))
	cum, peak, maxDD := decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range closed {
		cum = cum.Add(p.RealizedPnl)
		peak = decimal.Max(peak, cum)
		dd := peak.Sub(cum)
		maxDD = decimal.Max(maxDD, dd)
		points = append(points, EquityPoint{
			Timestamp:   p.ExitTime,
			CumulatePnL: cum,
			Drawdown:    dd,
		})
	}
	return points, maxDD
}
