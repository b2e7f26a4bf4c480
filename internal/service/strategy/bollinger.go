package strategy

import (
	"context"
	"fmt"

	"github.com/KNICEX/auto-trader/pkg/decimalx"
	"github.com/shopspring/decimal"
)

var _ Strategy = (*BollingerStrategy)(nil)

// BollingerStrategy 收盘价从下轨外回到带内买入, 从上轨外回到带内卖出
type BollingerStrategy struct {
	name   string
	period int
	k      decimal.Decimal
}

func NewBollingerStrategy(period int, k float64) (*BollingerStrategy, error) {
	if period < 2 {
		return nil, fmt.Errorf("bollinger: invalid period %d", period)
	}
	if k <= 0 {
		return nil, fmt.Errorf("bollinger: invalid k %v", k)
	}
	return &BollingerStrategy{
		name:   fmt.Sprintf("bollinger(%d,%s)", period, decimal.NewFromFloat(k)),
		period: period,
		k:      decimal.NewFromFloat(k),
	}, nil
}

func (s *BollingerStrategy) Name() string {
	return s.name
}

func (s *BollingerStrategy) Lookback() int {
	return s.period + 1
}

type bands struct {
	middle decimal.Decimal
	upper  decimal.Decimal
	lower  decimal.Decimal
}

// bandsAt 以 end 为最后一根的窗口
func (s *BollingerStrategy) bandsAt(closes []decimal.Decimal, end int) bands {
	window := closes[end-s.period+1 : end+1]
	middle := decimalx.Mean(window)
	width := decimalx.SampleStdDev(window).Mul(s.k)
	return bands{
		middle: middle,
		upper:  middle.Add(width),
		lower:  middle.Sub(width),
	}
}

func (s *BollingerStrategy) GenerateSignal(ctx context.Context, snapshot Snapshot) (Signal, error) {
	if snapshot.Len() < s.Lookback() {
		return Signal{}, fmt.Errorf("%s: need %d klines, got %d: %w", s.name, s.Lookback(), snapshot.Len(), ErrInsufficientData)
	}

	closes := snapshot.Closes()
	last := len(closes) - 1
	cur, prev := s.bandsAt(closes, last), s.bandsAt(closes, last-1)
	price, prevPrice := closes[last], closes[last-1]

	var direction Direction
	var reason string
	switch {
	case prevPrice.LessThanOrEqual(prev.lower) && price.GreaterThan(cur.lower):
		direction = DirectionBuy
		reason = fmt.Sprintf("close %s re-entered above lower band %s", price, cur.lower.StringFixed(4))
	case prevPrice.GreaterThanOrEqual(prev.upper) && price.LessThan(cur.upper):
		direction = DirectionSell
		reason = fmt.Sprintf("close %s re-entered below upper band %s", price, cur.upper.StringFixed(4))
	default:
		direction = DirectionHold
		reason = fmt.Sprintf("close %s inside bands [%s, %s]", price, cur.lower.StringFixed(4), cur.upper.StringFixed(4))
	}

	strength := 0.0
	halfWidth := cur.upper.Sub(cur.middle)
	if direction != DirectionHold && halfWidth.IsPositive() {
		strength = decimalx.Clamp01(price.Sub(cur.middle).Abs().Div(halfWidth)).InexactFloat64()
	}

	sig := newSignal(s.name, snapshot, direction, strength, reason)
	sig.Metadata = map[string]any{
		"middle": cur.middle.StringFixed(4),
		"upper":  cur.upper.StringFixed(4),
		"lower":  cur.lower.StringFixed(4),
	}
	return sig, nil
}

// bollingerParams 默认参数 20/2
func bollingerParams(p Params) (int, float64) {
	return p.Int("period", 20), p.Float("k", 2)
}
