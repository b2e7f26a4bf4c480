package strategy

import (
	"context"
	"fmt"

	"github.com/KNICEX/auto-trader/pkg/decimalx"
	"github.com/shopspring/decimal"
)

var _ Strategy = (*RSIStrategy)(nil)

// RSIStrategy RSI 穿越超卖线向上买入, 穿越超买线向下卖出
type RSIStrategy struct {
	name       string
	period     int
	oversold   decimal.Decimal
	overbought decimal.Decimal
}

func NewRSIStrategy(period int, oversold, overbought float64) (*RSIStrategy, error) {
	if period <= 0 {
		return nil, fmt.Errorf("rsi: invalid period %d", period)
	}
	if oversold <= 0 || overbought >= 100 || oversold >= overbought {
		return nil, fmt.Errorf("rsi: invalid thresholds oversold=%v overbought=%v", oversold, overbought)
	}
	return &RSIStrategy{
		name:       fmt.Sprintf("rsi(%d)", period),
		period:     period,
		oversold:   decimal.NewFromFloat(oversold),
		overbought: decimal.NewFromFloat(overbought),
	}, nil
}

func (s *RSIStrategy) Name() string {
	return s.name
}

// Lookback period 个涨跌幅需要 period+1 根, 再加前一根用于判断穿越
func (s *RSIStrategy) Lookback() int {
	return s.period + 2
}

func (s *RSIStrategy) GenerateSignal(ctx context.Context, snapshot Snapshot) (Signal, error) {
	if snapshot.Len() < s.Lookback() {
		return Signal{}, fmt.Errorf("%s: need %d klines, got %d: %w", s.name, s.Lookback(), snapshot.Len(), ErrInsufficientData)
	}

	series := s.series(snapshot.Closes())
	rsi, prev := series[len(series)-1], series[len(series)-2]

	var direction Direction
	var reason string
	switch {
	case prev.LessThanOrEqual(s.oversold) && rsi.GreaterThan(s.oversold):
		direction = DirectionBuy
		reason = fmt.Sprintf("rsi %s crossed above oversold %s", rsi.StringFixed(2), s.oversold)
	case prev.GreaterThanOrEqual(s.overbought) && rsi.LessThan(s.overbought):
		direction = DirectionSell
		reason = fmt.Sprintf("rsi %s crossed below overbought %s", rsi.StringFixed(2), s.overbought)
	default:
		direction = DirectionHold
		reason = fmt.Sprintf("rsi %s", rsi.StringFixed(2))
	}

	strength := 0.0
	if direction != DirectionHold {
		strength = decimalx.Clamp01(rsi.Sub(prev).Abs().Div(s.overbought.Sub(s.oversold))).InexactFloat64()
	}

	sig := newSignal(s.name, snapshot, direction, strength, reason)
	sig.Metadata = map[string]any{
		"rsi":      rsi.StringFixed(4),
		"prev_rsi": prev.StringFixed(4),
	}
	return sig, nil
}

// series 只返回有效部分, 调用方保证 closes 足够长
func (s *RSIStrategy) series(closes []decimal.Decimal) []decimal.Decimal {
	gains := make([]decimal.Decimal, len(closes)-1)
	losses := make([]decimal.Decimal, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		delta := closes[i].Sub(closes[i-1])
		if delta.IsPositive() {
			gains[i-1] = delta
			losses[i-1] = decimal.Zero
		} else {
			gains[i-1] = decimal.Zero
			losses[i-1] = delta.Neg()
		}
	}

	avgGain, ok := decimalx.RollingMean(gains, s.period)
	avgLoss, _ := decimalx.RollingMean(losses, s.period)

	res := make([]decimal.Decimal, 0, len(gains))
	for i := range gains {
		if !ok[i] {
			continue
		}
		res = append(res, rsiValue(avgGain[i], avgLoss[i]))
	}
	return res
}

func rsiValue(avgGain, avgLoss decimal.Decimal) decimal.Decimal {
	if avgLoss.IsZero() {
		if avgGain.IsZero() {
			return decimal.NewFromInt(50)
		}
		return decimalx.Hundred
	}
	rs := avgGain.Div(avgLoss)
	return decimalx.Hundred.Sub(decimalx.Hundred.Div(decimalx.One.Add(rs)))
}

// rsiParams 默认参数 14/30/70
func rsiParams(p Params) (int, float64, float64) {
	return p.Int("period", 14), p.Float("oversold", 30), p.Float("overbought", 70)
}
